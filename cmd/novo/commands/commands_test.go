package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Capstone-NovoCert/novo/errors"
	testutil "github.com/Capstone-NovoCert/novo/internal/testing"
	"github.com/Capstone-NovoCert/novo/pipeline"
	"github.com/Capstone-NovoCert/novo/pipeline/store"
)

type record = map[string]any

func decoyArgs(outputDir string) []string {
	return []string{"run", "decoy",
		"--input-dir", "/data/spectra",
		"--output-dir", outputDir,
		"--precursor-tolerance", "20",
		"--random-seed", "42",
		"--memory", "1",
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "version", "--json")
	require.NoError(t, err)
	info := decodeJSON[map[string]string](t, out)
	assert.Equal(t, "dev", info["version"])
	assert.NotEmpty(t, info["go_version"])
}

func TestRunDecoyLifecycle(t *testing.T) {
	e := newEnv(t)
	t.Setenv(testutil.HelperModeEnv, testutil.HelperSucceed)

	out, err := e.run(t, decoyArgs("/data/decoy")...)
	require.NoError(t, err)
	res := decodeJSON[record](t, out)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "Decoy spectra generation completed successfully!", res["message"])
	id, _ := res["executionId"].(string)
	require.NotEmpty(t, id)

	// The partition file holds the record without its output
	data, err := os.ReadFile(store.PartitionFile(e.dataDir, pipeline.TypeDecoy))
	require.NoError(t, err)
	assert.Contains(t, string(data), id)
	assert.NotContains(t, string(data), `"output"`)

	out, err = e.run(t, "ls")
	require.NoError(t, err)
	list := decodeJSON[[]record](t, out)
	require.Len(t, list, 1)
	assert.Equal(t, "completed", list[0]["status"])

	out, err = e.run(t, "status", id[:8])
	require.NoError(t, err)
	rec := decodeJSON[record](t, out)
	assert.Equal(t, id, rec["id"])
	result, _ := rec["result"].(map[string]any)
	assert.Equal(t, true, result["hasOutput"])

	out, err = e.run(t, "last", "decoy")
	require.NoError(t, err)
	params := decodeJSON[map[string]string](t, out)
	assert.Equal(t, "/data/decoy", params["output_dir"])

	out, err = e.run(t, "stats")
	require.NoError(t, err)
	stats := decodeJSON[record](t, out)
	assert.Equal(t, float64(1), stats["total"])

	_, err = e.run(t, "rm", id)
	require.NoError(t, err)

	out, err = e.run(t, "ls")
	require.NoError(t, err)
	assert.Empty(t, decodeJSON[[]record](t, out))
}

func TestRunDecoyInvalidParamsIsRecorded(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "run", "decoy", "--input-dir", "/data/spectra", "--memory", "lots")
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "novo status")

	res := decodeJSON[record](t, out)
	assert.Equal(t, false, res["success"])
	assert.Equal(t, string(pipeline.ErrorCodeValidation), res["code"])
	assert.Contains(t, res["error"], "memory")

	out, err = e.run(t, "ls", "--status", "failed")
	require.NoError(t, err)
	assert.Len(t, decodeJSON[[]record](t, out), 1)
}

func TestRunDecoyVersionMismatch(t *testing.T) {
	e := newEnv(t)
	t.Setenv(testutil.HelperModeEnv, testutil.HelperClassVersion)

	out, err := e.run(t, decoyArgs("/data/decoy")...)
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "Java 8")

	res := decodeJSON[record](t, out)
	assert.Equal(t, true, res["versionError"])
	assert.Equal(t, string(pipeline.ErrorCodeVersionMismatch), res["code"])
}

func TestRunReservedStage(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "run", "fdr", "--param", "threshold=0.01")
	require.Error(t, err)
	res := decodeJSON[record](t, out)
	assert.Equal(t, string(pipeline.ErrorCodeNotImplemented), res["code"])

	out, err = e.run(t, "ls", "--type", "fdr")
	require.NoError(t, err)
	list := decodeJSON[[]record](t, out)
	require.Len(t, list, 1)
	assert.Equal(t, map[string]any{"threshold": "0.01"}, list[0]["params"])
}

func TestRunDenovoLastUsesDecoyOutput(t *testing.T) {
	e := newEnv(t)
	t.Setenv(testutil.HelperModeEnv, testutil.HelperSucceed)

	_, err := e.run(t, decoyArgs("/data/run1/decoy")...)
	require.NoError(t, err)

	out, err := e.run(t, "last", "denovo", "--suggest")
	require.NoError(t, err)
	suggested := decodeJSON[map[string]string](t, out)
	assert.Equal(t, "/data/run1/decoy", suggested["target_spectra_dir"])

	// Casanovo paths are still missing, so the run is rejected but recorded
	_, err = e.run(t, "run", "denovo", "--last")
	require.Error(t, err)

	out, err = e.run(t, "ls", "--type", "denovo")
	require.NoError(t, err)
	list := decodeJSON[[]record](t, out)
	require.Len(t, list, 1)
	params, _ := list[0]["params"].(map[string]any)
	assert.Equal(t, "/data/run1/decoy", params["target_spectra_dir"])
	assert.Equal(t, "/data/run1/decoy", params["decoy_spectra_dir"])
}

func TestStatusUnknownID(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "status", "no-such-id")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestLsRejectsBadFilters(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "ls", "--status", "done")
	assert.True(t, errors.IsInvalidRequestError(err))

	_, err = e.run(t, "ls", "--type", "blast")
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestRecover(t *testing.T) {
	e := newEnv(t)

	st, err := store.NewJSON(e.dataDir, store.Options{})
	require.NoError(t, err)
	rec, err := st.Create(t.Context(), pipeline.TypeDenovo, &pipeline.Execution{})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := e.run(t, "recover")
	require.NoError(t, err)
	res := decodeJSON[map[string][]string](t, out)
	assert.Equal(t, []string{rec.ID}, res["recovered"])

	out, err = e.run(t, "status", rec.ID)
	require.NoError(t, err)
	got := decodeJSON[record](t, out)
	assert.Equal(t, "failed", got["status"])
	assert.Equal(t, string(pipeline.ErrorCodeInterrupted), got["code"])
}

func TestStoreCommands(t *testing.T) {
	e := newEnv(t)
	t.Setenv(testutil.HelperModeEnv, testutil.HelperSucceed)

	out, err := e.run(t, "store", "where")
	require.NoError(t, err)
	where := decodeJSON[map[string]string](t, out)
	assert.Equal(t, "json", where["backend"])
	assert.Equal(t, e.dataDir, where["location"])

	_, err = e.run(t, decoyArgs("/data/decoy")...)
	require.NoError(t, err)

	dest := filepath.Join(e.dir, "backup")
	out, err = e.run(t, "store", "backup", dest)
	require.NoError(t, err)
	backup := decodeJSON[map[string]string](t, out)
	assert.FileExists(t, store.PartitionFile(backup["backup"], pipeline.TypeDecoy))

	_, err = e.run(t, "store", "clear")
	assert.True(t, errors.IsInvalidRequestError(err), "JSON mode never prompts")

	_, err = e.run(t, "store", "clear", "--yes")
	require.NoError(t, err)
	out, err = e.run(t, "ls")
	require.NoError(t, err)
	assert.Empty(t, decodeJSON[[]record](t, out))
}

func TestWatchNeedsJSONBackend(t *testing.T) {
	e := newEnv(t)
	t.Setenv("NOVO_STORE_BACKEND", "memory")

	_, err := e.run(t, "watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory")
}

func TestAmShowAndGet(t *testing.T) {
	e := newEnv(t)

	out, err := execute(t, "--config", e.config, "am", "show", "--format", "yaml")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# novo configuration\n"))
	assert.Contains(t, out, "backend: json")

	out, err = execute(t, "--config", e.config, "am", "get", "store.dir")
	require.NoError(t, err)
	assert.Equal(t, e.dataDir+"\n", out)

	_, err = execute(t, "--config", e.config, "am", "get", "store.nope")
	assert.True(t, errors.IsNotFoundError(err))

	_, err = execute(t, "--config", e.config, "am", "validate")
	require.NoError(t, err)
}

func TestAmInitAndLint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "novo.toml")

	_, err := execute(t, "am", "init", path)
	require.NoError(t, err)
	require.FileExists(t, path)

	_, err = execute(t, "am", "init", path)
	require.Error(t, err, "existing file needs --force")

	_, err = execute(t, "am", "init", path, "--force")
	require.NoError(t, err)
	assert.FileExists(t, path+".back1")

	out, err := execute(t, "--json", "am", "lint", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"undecoded": []`)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[store]\nbackend = \"json\"\nbackned = \"sqlite\"\n"), 0o644))
	out, err = execute(t, "--json", "am", "lint", bad)
	require.Error(t, err)
	assert.Contains(t, out, "store.backned")
}
