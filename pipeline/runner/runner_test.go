package runner

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Capstone-NovoCert/novo/errors"
	testutil "github.com/Capstone-NovoCert/novo/internal/testing"
	"github.com/Capstone-NovoCert/novo/pipeline"
)

func TestRunCapturesStreamsSeparately(t *testing.T) {
	bin := fakeInterpreter(t, testutil.HelperSucceed)

	out := testRunner(t).Run(context.Background(), Command{Path: bin, Args: []string{"-jar", "x.jar"}})
	require.NoError(t, out.Err)
	assert.True(t, out.Spawned)
	assert.True(t, out.Succeeded())
	assert.Equal(t, 0, out.ExitCode)
	assert.Equal(t, "done\n", out.Stdout)
	assert.Equal(t, "progress 100%\n", out.Stderr)
	assert.False(t, out.Stopped.Before(out.Started))
}

func TestRunNonZeroExit(t *testing.T) {
	bin := fakeInterpreter(t, testutil.HelperFail)

	out := testRunner(t).Run(context.Background(), Command{Path: bin, Args: []string{"run"}})
	assert.NoError(t, out.Err, "a plain non-zero exit is not a run error")
	assert.True(t, out.Spawned)
	assert.False(t, out.Succeeded())
	assert.Equal(t, 1, out.ExitCode)
	assert.Equal(t, "partial\n", out.Stdout)
	assert.Equal(t, "boom\n", out.Stderr)
}

func TestRunSpawnFailure(t *testing.T) {
	out := testRunner(t).Run(context.Background(), Command{Path: filepath.Join(t.TempDir(), "no-such-java")})
	require.Error(t, out.Err)
	assert.False(t, out.Spawned)
	assert.Equal(t, -1, out.ExitCode)
	assert.Empty(t, out.Stdout)
	assert.Equal(t, pipeline.ErrorCodeExecutableNotFound, pipeline.ClassifyError(out.Err))
}

func TestRunCancellation(t *testing.T) {
	bin := fakeInterpreter(t, testutil.HelperSleep)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	out := testRunner(t).Run(ctx, Command{Path: bin, Args: []string{"run"}})
	assert.Less(t, time.Since(start), 20*time.Second)
	assert.True(t, out.Spawned)
	assert.True(t, errors.Is(out.Err, context.Canceled))
	assert.Equal(t, pipeline.ErrorCodeCancelled, pipeline.ClassifyError(out.Err))
}

func TestRunTimeout(t *testing.T) {
	bin := fakeInterpreter(t, testutil.HelperSleep)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	out := testRunner(t).Run(ctx, Command{Path: bin, Args: []string{"run"}})
	assert.True(t, errors.Is(out.Err, context.DeadlineExceeded))
	assert.Equal(t, pipeline.ErrorCodeTimeout, pipeline.ClassifyError(out.Err))
}

func TestRunDirAndEnv(t *testing.T) {
	bin, err := filepath.Abs(fakeInterpreter(t, testutil.HelperFail))
	require.NoError(t, err)
	dir := t.TempDir()

	// Env is appended, so it overrides the inherited mode
	out := testRunner(t).Run(context.Background(), Command{
		Path: bin,
		Args: []string{"-i", "in dir"},
		Dir:  dir,
		Env:  []string{testutil.HelperModeEnv + "=" + testutil.HelperEchoArgs},
	})
	require.True(t, out.Succeeded(), out.Stderr)
	assert.Equal(t, "-i\nin dir\n", out.Stdout)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(strings.TrimSpace(strings.TrimPrefix(out.Stderr, "cwd=")))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCommandString(t *testing.T) {
	c := Command{Path: "/usr/bin/java", Args: []string{"-jar", "/opt/My Tools/swap.jar", "-i", "it's"}}
	assert.Equal(t, `/usr/bin/java -jar '/opt/My Tools/swap.jar' -i it\'s`, c.String())
}

func TestLineWriter(t *testing.T) {
	var lines []string
	w := newLineWriter(func(l string) { lines = append(lines, l) })

	for _, chunk := range []string{"first li", "ne\r\nsecond\n", "\n", "tail"} {
		n, err := w.Write([]byte(chunk))
		require.NoError(t, err)
		assert.Equal(t, len(chunk), n)
	}

	assert.Equal(t, []string{"first line", "second"}, lines)
	assert.Equal(t, "first line\r\nsecond\n\ntail", w.String())
}
