package runner

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/Capstone-NovoCert/novo/am"
	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/logger"
	"github.com/Capstone-NovoCert/novo/pipeline"
)

// Decoy outcome messages
const (
	MessageDecoySucceeded = "Decoy spectra generation completed successfully!"
	MessageDecoyFailed    = "Decoy program failed."
	MessageJavaVersion    = "Incompatible Java version. Java 8 or later is required."
	MessageJavaNotStarted = "Could not start Java. Check that Java is installed."

	unsupportedClassVersion = "UnsupportedClassVersionError"
)

// DecoyTool generates decoy spectra by running the PrecursorSwap jar on a
// Java runtime:
//
//	<java> [jvm_options...] -Xmx<memory>G -jar <jar> -i <input_dir> -o <output_dir> -d <precursor_tolerance> -r <random_seed>
//
// The process runs in the jar's directory.
type DecoyTool struct {
	Java       *Resolver
	Jar        string
	JVMOptions []string
	Runner     *Runner
	// Available feeds the heap check; nil skips it
	Available AvailableMemoryFunc
	Log       *zap.SugaredLogger
}

var _ Tool = (*DecoyTool)(nil)

// NewDecoyTool builds the decoy tool from configuration
func NewDecoyTool(cfg *am.Config, run *Runner, log *zap.SugaredLogger) (*DecoyTool, error) {
	if log == nil {
		log = logger.ComponentLogger("decoy")
	}
	java, err := NewResolver("java", cfg.Runtime.Java, cfg.ProbeTimeout(), ExecProbe(nil), log)
	if err != nil {
		return nil, err
	}
	opts, err := shellquote.Split(cfg.Tools.Decoy.JVMOptions)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid tools.decoy.jvm_options %q", cfg.Tools.Decoy.JVMOptions)
	}
	jar, err := filepath.Abs(am.ExpandHome(cfg.Tools.Decoy.Jar))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve decoy jar %s", cfg.Tools.Decoy.Jar)
	}
	return &DecoyTool{
		Java:       java,
		Jar:        jar,
		JVMOptions: opts,
		Runner:     run,
		Available:  SystemAvailableMemory,
		Log:        log,
	}, nil
}

func (d *DecoyTool) Type() pipeline.Type { return pipeline.TypeDecoy }

// Check has nothing to add to the field rules
func (d *DecoyTool) Check(params pipeline.Params) error {
	_, err := decoyParams(params)
	return err
}

// Command builds the invocation for java. Values are trimmed the same way
// validation trims them.
func (d *DecoyTool) Command(java string, p *pipeline.DecoyParams) Command {
	args := make([]string, 0, len(d.JVMOptions)+11)
	args = append(args, d.JVMOptions...)
	args = append(args,
		"-Xmx"+strings.TrimSpace(p.Memory)+"G",
		"-jar", d.Jar,
		"-i", strings.TrimSpace(p.InputDir),
		"-o", strings.TrimSpace(p.OutputDir),
		"-d", strings.TrimSpace(p.PrecursorTolerance),
		"-r", strings.TrimSpace(p.RandomSeed),
	)
	return Command{Path: java, Args: args, Dir: filepath.Dir(d.Jar)}
}

func (d *DecoyTool) Run(ctx context.Context, params pipeline.Params) Report {
	result := &pipeline.DecoyResult{}
	p, err := decoyParams(params)
	if err != nil {
		result.Message = pipeline.MessageValidationError
		result.Error = err.Error()
		return Report{Result: result, Code: pipeline.ErrorCodeValidation}
	}

	java, err := d.Java.Resolve(ctx)
	if err != nil {
		result.Message = MessageJavaNotStarted
		result.Error = err.Error()
		if code, msg, ok := interrupted(Output{Err: err}); ok {
			result.Message = msg
			return Report{Result: result, Code: code}
		}
		return Report{Result: result, Code: pipeline.ErrorCodeExecutableNotFound}
	}

	log := logger.FromContext(ctx, d.Log)
	if mem, err := strconv.Atoi(strings.TrimSpace(p.Memory)); err == nil {
		checkHeap(mem, d.Available, log)
	}

	cmd := d.Command(java.Path, p)
	log.Infow("Running decoy generation", "command", cmd.String(), logger.FieldDir, cmd.Dir)

	out := d.Runner.Run(ctx, cmd)
	result.Outcome = outcome(cmd, out)

	if code, msg, ok := interrupted(out); ok {
		result.Message = msg
		return Report{Result: result, Code: code}
	}

	switch {
	case !out.Spawned:
		result.Message = MessageJavaNotStarted
		return Report{Result: result, Code: pipeline.ErrorCodeExecutableNotFound}
	case out.Err != nil:
		result.Message = MessageDecoyFailed
		result.Error = strings.TrimSpace(out.Stderr + "\n" + out.Err.Error())
		return Report{Result: result, Code: pipeline.ErrorCodeToolFailure}
	case out.ExitCode == 0:
		result.Success = true
		result.Message = MessageDecoySucceeded
		return Report{Result: result}
	case strings.Contains(out.Stderr, unsupportedClassVersion):
		result.JavaVersionError = true
		result.Message = MessageJavaVersion
		return Report{Result: result, Code: pipeline.ErrorCodeVersionMismatch}
	default:
		result.Message = MessageDecoyFailed
		return Report{Result: result, Code: pipeline.ErrorCodeToolFailure}
	}
}

func decoyParams(params pipeline.Params) (*pipeline.DecoyParams, error) {
	p, ok := params.(*pipeline.DecoyParams)
	if !ok || p == nil {
		return nil, errors.NewInvalidRequestError("decoy tool needs decoy params, got %T", params)
	}
	return p, nil
}
