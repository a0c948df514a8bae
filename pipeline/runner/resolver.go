package runner

import (
	"context"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/Capstone-NovoCert/novo/am"
	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/logger"
)

// DefaultProbeTimeout bounds a single candidate's version query
const DefaultProbeTimeout = 5 * time.Second

// ProbeFunc runs candidate with args and returns its combined output. A
// non-nil error means the candidate is unusable.
type ProbeFunc func(ctx context.Context, candidate string, args []string) (string, error)

// Resolver finds an interpreter by probing candidates in priority order
type Resolver struct {
	// Name labels the interpreter in logs ("java", "python")
	Name        string
	Candidates  []string
	VersionArgs []string
	// Constraint, when set, must be satisfied by the probed version
	Constraint *semver.Constraints
	Probe      ProbeFunc
	Timeout    time.Duration
	Log        *zap.SugaredLogger
}

// Resolution is the interpreter a Resolver settled on
type Resolution struct {
	Path    string
	Version *semver.Version
	// Fallback is true when no candidate passed and the first was returned
	Fallback bool
}

// NewResolver builds a Resolver from configuration. min_version becomes a
// ">= min_version" constraint.
func NewResolver(name string, cfg am.InterpreterConfig, timeout time.Duration, probe ProbeFunc, log *zap.SugaredLogger) (*Resolver, error) {
	r := &Resolver{
		Name:        name,
		Candidates:  cfg.Candidates,
		VersionArgs: cfg.VersionArgs,
		Probe:       probe,
		Timeout:     timeout,
		Log:         log,
	}
	if minVersion := strings.TrimSpace(cfg.MinVersion); minVersion != "" {
		c, err := semver.NewConstraint(">= " + minVersion)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s min_version %q", name, minVersion)
		}
		r.Constraint = c
	}
	return r, nil
}

// Resolve probes each candidate in order and returns the first that answers
// its version query (and satisfies the constraint, if any). When none does,
// the first candidate is returned anyway so the spawn failure surfaces where
// the tool runs.
func (r *Resolver) Resolve(ctx context.Context) (Resolution, error) {
	if len(r.Candidates) == 0 {
		return Resolution{}, errors.NewInvalidRequestError("no %s candidates configured", r.Name)
	}
	log := logger.FromContext(ctx, r.Log)
	probe := r.Probe
	if probe == nil {
		probe = ExecProbe(nil)
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	for _, candidate := range r.Candidates {
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}

		pctx, cancel := context.WithTimeout(ctx, timeout)
		out, err := probe(pctx, candidate, r.VersionArgs)
		cancel()
		if err != nil {
			log.Debugw("Interpreter candidate failed", logger.FieldBinary, candidate, logger.FieldError, err)
			continue
		}

		version, ok := ParseVersion(out)
		if r.Constraint != nil {
			if !ok {
				log.Debugw("Interpreter candidate reported no version", logger.FieldBinary, candidate)
				continue
			}
			if !r.Constraint.Check(version) {
				log.Debugw("Interpreter candidate too old",
					logger.FieldBinary, candidate,
					"version", version.String(),
					"constraint", r.Constraint.String(),
				)
				continue
			}
		}

		log.Debugw("Resolved interpreter", "interpreter", r.Name, logger.FieldBinary, candidate)
		return Resolution{Path: candidate, Version: version}, nil
	}

	log.Warnw("No interpreter candidate answered, using first",
		"interpreter", r.Name,
		logger.FieldBinary, r.Candidates[0],
	)
	return Resolution{Path: r.Candidates[0], Fallback: true}, nil
}

// ExecProbe returns a ProbeFunc that spawns the candidate through run.
// A nil run uses a quiet Runner.
func ExecProbe(run *Runner) ProbeFunc {
	if run == nil {
		run = New(zap.NewNop().Sugar(), time.Second)
	}
	return func(ctx context.Context, candidate string, args []string) (string, error) {
		out := run.Run(ctx, Command{Path: candidate, Args: args})
		if out.Err != nil {
			return "", out.Err
		}
		// java -version writes to stderr
		combined := out.Stdout + out.Stderr
		if out.ExitCode != 0 {
			return combined, errors.Newf("%s exited with code %d", candidate, out.ExitCode)
		}
		return combined, nil
	}
}
