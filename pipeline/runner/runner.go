// Package runner supervises the external tools behind each pipeline type:
// it locates interpreters, builds command lines, spawns processes and
// classifies how they ended.
package runner

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/logger"
)

// DefaultKillGrace is how long a cancelled process gets between SIGTERM and SIGKILL
const DefaultKillGrace = 10 * time.Second

// Command is one process invocation
type Command struct {
	Path string
	Args []string
	// Dir is the working directory; empty inherits ours
	Dir string
	// Env is appended to the current environment
	Env []string
}

// String renders the command line, shell-quoted
func (c Command) String() string {
	return shellquote.Join(append([]string{c.Path}, c.Args...)...)
}

// Output is everything observed about one process run
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Started  time.Time
	Stopped  time.Time
	// Spawned is false when the process never started; Err says why
	Spawned bool
	// Err is the spawn failure, or the context error when the run was
	// cancelled or timed out. A plain non-zero exit leaves it nil.
	Err error
}

// Duration is the wall time of the run
func (o Output) Duration() time.Duration {
	return o.Stopped.Sub(o.Started)
}

// Succeeded reports a clean exit 0
func (o Output) Succeeded() bool {
	return o.Spawned && o.Err == nil && o.ExitCode == 0
}

// Runner spawns processes and collects their output
type Runner struct {
	log       *zap.SugaredLogger
	killGrace time.Duration
}

// New returns a Runner. killGrace <= 0 uses DefaultKillGrace.
func New(log *zap.SugaredLogger, killGrace time.Duration) *Runner {
	if log == nil {
		log = logger.ComponentLogger("runner")
	}
	if killGrace <= 0 {
		killGrace = DefaultKillGrace
	}
	return &Runner{log: log, killGrace: killGrace}
}

// Run starts c and blocks until it exits. Stdout and stderr are captured
// separately and in full. When ctx ends the process receives SIGTERM, then
// SIGKILL after the kill grace.
func (r *Runner) Run(ctx context.Context, c Command) Output {
	log := logger.FromContext(ctx, r.log).With(logger.FieldBinary, c.Path)

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = r.killGrace

	var stdout bytes.Buffer
	stderr := newLineWriter(func(line string) {
		log.Debugw("stderr", "line", line)
	})
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	out := Output{Started: time.Now(), ExitCode: -1}
	log.Debugw("Starting process", logger.FieldArgs, c.Args, logger.FieldDir, c.Dir)

	if err := cmd.Start(); err != nil {
		out.Stopped = time.Now()
		out.Err = errors.Wrapf(err, "failed to start %s", c.Path)
		log.Warnw("Process failed to start", logger.FieldError, err)
		return out
	}
	out.Spawned = true

	waitErr := cmd.Wait()
	out.Stopped = time.Now()
	out.Stdout = stdout.String()
	out.Stderr = stderr.String()
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case ctx.Err() != nil:
		out.Err = ctx.Err()
	case waitErr != nil && !isExit(waitErr) && !errors.Is(waitErr, exec.ErrWaitDelay):
		out.Err = errors.Wrapf(waitErr, "failed waiting for %s", c.Path)
	}

	log.Debugw("Process exited",
		logger.FieldPID, cmd.Process.Pid,
		logger.FieldExitCode, out.ExitCode,
		logger.FieldDurationMS, out.Duration().Milliseconds(),
	)
	return out
}

func isExit(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// lineWriter keeps everything written to it and reports each complete line
type lineWriter struct {
	mu      sync.Mutex
	all     bytes.Buffer
	pending []byte
	onLine  func(string)
}

func newLineWriter(onLine func(string)) *lineWriter {
	return &lineWriter{onLine: onLine}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.all.Write(p)
	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimRight(w.pending[:i], "\r")
		if len(line) > 0 {
			w.onLine(string(line))
		}
		w.pending = w.pending[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.all.String()
}
