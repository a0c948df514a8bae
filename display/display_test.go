package display

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Capstone-NovoCert/novo/pipeline"
	"github.com/Capstone-NovoCert/novo/pipeline/controller"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

func failedDecoy() *pipeline.Execution {
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	started := created.Add(time.Second)
	done := started.Add(90 * time.Second)
	return &pipeline.Execution{
		ID:           "3b1f9c2e-7d4a-4e0b-9a51-2c8e6f0d1a77",
		PipelineType: pipeline.TypeDecoy,
		Status:       pipeline.StatusFailed,
		Code:         pipeline.ErrorCodeVersionMismatch,
		Error:        "Exception in thread \"main\" java.lang.UnsupportedClassVersionError\n\tat java.lang.ClassLoader",
		Params: &pipeline.DecoyParams{
			InputDir:           "/data/spectra",
			OutputDir:          "/data/out",
			PrecursorTolerance: "20",
			RandomSeed:         "42",
			Memory:             "4",
		},
		Result: &pipeline.DecoyResult{
			Outcome: pipeline.Outcome{
				Message:   "Incompatible Java version. Java 8 or later is required.",
				HasOutput: true,
				ExitCode:  1,
				Command:   "/usr/bin/java -Xmx4G -jar swap.jar",
			},
			JavaVersionError: true,
		},
		CreatedAt:   created,
		UpdatedAt:   done,
		StartedAt:   &started,
		CompletedAt: &done,
	}
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "3b1f9c2e", ShortID("3b1f9c2e-7d4a-4e0b-9a51-2c8e6f0d1a77"))
	assert.Equal(t, "abc", ShortID("abc"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "-", FormatDuration(0))
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond+300*time.Microsecond))
	assert.Equal(t, "1m31s", FormatDuration(90*time.Second+600*time.Millisecond))
}

func TestExecutionTable(t *testing.T) {
	data := ExecutionTable([]*pipeline.Execution{failedDecoy()})
	require.Len(t, data, 2)
	assert.Equal(t, []string{"ID", "TYPE", "STATUS", "CREATED", "DURATION", "ERROR"}, data[0])

	row := data[1]
	assert.Equal(t, "3b1f9c2e", row[0])
	assert.Equal(t, "decoy", row[1])
	assert.Equal(t, "✕ failed", row[2])
	assert.Equal(t, "1m30s", row[4])
	assert.NotContains(t, row[5], "\n")
	assert.LessOrEqual(t, len([]rune(row[5])), errorWidth)
}

func TestRenderExecutionsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderExecutions(&buf, nil))
	assert.Equal(t, "No executions recorded\n", buf.String())
}

func TestRenderExecution(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderExecution(&buf, failedDecoy()))
	out := buf.String()

	assert.Contains(t, out, "3b1f9c2e-7d4a-4e0b-9a51-2c8e6f0d1a77")
	assert.Contains(t, out, "Code:      runtime_version_mismatch")
	assert.Contains(t, out, "input_dir = /data/spectra")
	assert.Contains(t, out, "command:   /usr/bin/java -Xmx4G -jar swap.jar")
	assert.Contains(t, out, "output:    captured, not stored")
	assert.Contains(t, out, "    \tat java.lang.ClassLoader")
}

func TestRenderStats(t *testing.T) {
	var buf bytes.Buffer
	err := RenderStats(&buf, controller.Stats{
		Total:    3,
		ByStatus: map[pipeline.Status]int{pipeline.StatusCompleted: 2, pipeline.StatusFailed: 1},
		ByType:   map[pipeline.Type]int{pipeline.TypeDecoy: 3},
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Total executions: 3")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "decoy")
	assert.NotContains(t, out, "denovo")
}

func TestRenderParams(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderParams(&buf, &pipeline.DenovoParams{
		TargetSpectraDir: "/t",
		DecoySpectraDir:  "/d",
	}))
	assert.Equal(t,
		"    casanovo_model_path = \n"+
			"    casanovo_yaml_path = \n"+
			"    decoy_spectra_dir = /d\n"+
			"    target_spectra_dir = /t\n",
		buf.String())
}

func newCmd() *cobra.Command {
	root := &cobra.Command{Use: "novo"}
	root.PersistentFlags().Bool("json", false, "")
	child := &cobra.Command{Use: "ls", Run: func(*cobra.Command, []string) {}}
	root.AddCommand(child)
	return child
}

func TestShouldOutputJSON(t *testing.T) {
	t.Setenv(OutputEnv, "")

	cmd := newCmd()
	assert.False(t, ShouldOutputJSON(cmd))

	require.NoError(t, cmd.Root().PersistentFlags().Set("json", "true"))
	assert.True(t, ShouldOutputJSON(cmd))

	t.Setenv(OutputEnv, "JSON")
	assert.True(t, ShouldOutputJSON(newCmd()))
	assert.True(t, ShouldOutputJSON(nil))

	explicit := newCmd()
	require.NoError(t, explicit.Root().PersistentFlags().Set("json", "false"))
	assert.False(t, ShouldOutputJSON(explicit))
}

func TestWriteJSON(t *testing.T) {
	t.Setenv(CompactEnv, "")
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]int{"total": 1}))
	assert.Equal(t, "{\n  \"total\": 1\n}\n", buf.String())

	t.Setenv(CompactEnv, "1")
	buf.Reset()
	require.NoError(t, WriteJSON(&buf, map[string]int{"total": 1}))
	assert.Equal(t, "{\"total\":1}\n", buf.String())
}
