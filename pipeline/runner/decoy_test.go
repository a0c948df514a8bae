package runner

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Capstone-NovoCert/novo/am"
	"github.com/Capstone-NovoCert/novo/errors"
	testutil "github.com/Capstone-NovoCert/novo/internal/testing"
	"github.com/Capstone-NovoCert/novo/pipeline"
)

func validDecoyParams() *pipeline.DecoyParams {
	return &pipeline.DecoyParams{
		InputDir:           "/data/spectra",
		OutputDir:          "/data/decoy",
		PrecursorTolerance: "20",
		RandomSeed:         "42",
		Memory:             "4",
	}
}

func TestDecoyCommand(t *testing.T) {
	d := &DecoyTool{Jar: "/opt/novo/binaries/decoy/PrecursorSwap.jar", JVMOptions: []string{"-Dfile.encoding=UTF-8"}}

	cmd := d.Command("/usr/bin/java", validDecoyParams())
	assert.Equal(t, "/usr/bin/java", cmd.Path)
	assert.Equal(t, []string{
		"-Dfile.encoding=UTF-8",
		"-Xmx4G",
		"-jar", "/opt/novo/binaries/decoy/PrecursorSwap.jar",
		"-i", "/data/spectra",
		"-o", "/data/decoy",
		"-d", "20",
		"-r", "42",
	}, cmd.Args)
	assert.Equal(t, "/opt/novo/binaries/decoy", cmd.Dir, "runs in the jar's directory")
}

func TestDecoyCommandTrimsValues(t *testing.T) {
	d := &DecoyTool{Jar: "/opt/decoy/PrecursorSwap.jar"}
	p := &pipeline.DecoyParams{
		InputDir:           " /data/spectra",
		OutputDir:          "/data/decoy\n",
		PrecursorTolerance: " 20 ",
		RandomSeed:         "42\t",
		Memory:             " 4",
	}
	require.NoError(t, p.Validate())

	cmd := d.Command("java", p)
	assert.Equal(t, []string{
		"-Xmx4G",
		"-jar", "/opt/decoy/PrecursorSwap.jar",
		"-i", "/data/spectra",
		"-o", "/data/decoy",
		"-d", "20",
		"-r", "42",
	}, cmd.Args)
}

func TestDecoyRunSucceeds(t *testing.T) {
	d := newTestDecoy(t, testutil.HelperSucceed)

	rep := d.Run(context.Background(), validDecoyParams())
	require.True(t, rep.Succeeded(), "code %s", rep.Code)

	res := rep.Result.(*pipeline.DecoyResult)
	assert.True(t, res.Success)
	assert.Equal(t, MessageDecoySucceeded, res.Message)
	assert.Equal(t, "done\n", res.Output)
	assert.True(t, res.HasOutput)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.JavaVersionError)
	assert.Contains(t, res.Command, "-Xmx4G -jar")
}

func TestDecoyRunsInJarDirectory(t *testing.T) {
	d := newTestDecoy(t, testutil.HelperEchoArgs)

	rep := d.Run(context.Background(), validDecoyParams())
	require.True(t, rep.Succeeded())

	res := rep.Result.(*pipeline.DecoyResult)
	want, err := filepath.EvalSymlinks(filepath.Dir(d.Jar))
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(strings.TrimSpace(strings.TrimPrefix(res.Error, "cwd=")))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, strings.Join(d.Command("java", validDecoyParams()).Args, "\n")+"\n", res.Output)
}

func TestDecoyRunClassifiesFailures(t *testing.T) {
	tests := []struct {
		name        string
		mode        string
		code        pipeline.ErrorCode
		message     string
		versionFlag bool
		output      string
	}{
		{"version mismatch", testutil.HelperClassVersion, pipeline.ErrorCodeVersionMismatch, MessageJavaVersion, true, ""},
		{"generic failure", testutil.HelperFail, pipeline.ErrorCodeToolFailure, MessageDecoyFailed, false, "partial\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDecoy(t, tt.mode)

			rep := d.Run(context.Background(), validDecoyParams())
			assert.False(t, rep.Succeeded())
			assert.Equal(t, tt.code, rep.Code)

			res := rep.Result.(*pipeline.DecoyResult)
			assert.False(t, res.Success)
			assert.Equal(t, tt.message, res.Message)
			assert.Equal(t, tt.versionFlag, res.JavaVersionError)
			assert.NotEmpty(t, res.Error)
			assert.Equal(t, 1, res.ExitCode)
			assert.Equal(t, tt.output, res.Output)
			assert.True(t, res.HasOutput, "the process ran")
		})
	}
}

func TestDecoyRunSpawnFailure(t *testing.T) {
	d := newTestDecoy(t, testutil.HelperSucceed)
	d.Java.Candidates = []string{filepath.Join(t.TempDir(), "java")}

	rep := d.Run(context.Background(), validDecoyParams())
	assert.Equal(t, pipeline.ErrorCodeExecutableNotFound, rep.Code)

	res := rep.Result.(*pipeline.DecoyResult)
	assert.Equal(t, MessageJavaNotStarted, res.Message)
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, res.Output, "nothing captured when nothing ran")
	assert.False(t, res.HasOutput)
}

func TestDecoyRunCancelled(t *testing.T) {
	d := newTestDecoy(t, testutil.HelperSleep)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)

	rep := d.Run(ctx, validDecoyParams())
	assert.Equal(t, pipeline.ErrorCodeCancelled, rep.Code)
	assert.Equal(t, pipeline.MessageCancelled, rep.Result.Summary().Message)
}

func TestDecoyRunWrongParams(t *testing.T) {
	d := newTestDecoy(t, testutil.HelperSucceed)

	rep := d.Run(context.Background(), &pipeline.DenovoParams{})
	assert.Equal(t, pipeline.ErrorCodeValidation, rep.Code)
	assert.True(t, errors.IsInvalidRequestError(d.Check(&pipeline.DenovoParams{})))
	assert.NoError(t, d.Check(validDecoyParams()))
}

func TestNewDecoyTool(t *testing.T) {
	cfg := am.Defaults()
	cfg.Tools.Decoy.JVMOptions = `-Xss4m -Dnovo.label='two words'`
	cfg.Tools.Decoy.Jar = "/opt/novo/PrecursorSwap.jar"

	d, err := NewDecoyTool(cfg, testRunner(t), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	assert.Equal(t, []string{"-Xss4m", "-Dnovo.label=two words"}, d.JVMOptions)
	assert.Equal(t, "/opt/novo/PrecursorSwap.jar", d.Jar)
	assert.Equal(t, cfg.Runtime.Java.Candidates, d.Java.Candidates)

	cfg.Tools.Decoy.JVMOptions = `-Dunterminated='oops`
	_, err = NewDecoyTool(cfg, testRunner(t), nil)
	assert.Error(t, err)
}

func TestCheckHeap(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	twoGiB := func() (uint64, error) { return 2 * gib, nil }
	broken := func() (uint64, error) { return 0, errors.New("no /proc") }

	assert.True(t, checkHeap(1, twoGiB, log))
	assert.True(t, checkHeap(2, twoGiB, log))
	assert.False(t, checkHeap(4, twoGiB, log))
	assert.True(t, checkHeap(64, broken, log), "unknown memory never warns")
	assert.True(t, checkHeap(64, nil, log))
}
