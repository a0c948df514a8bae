package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Capstone-NovoCert/novo/am"
	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/internal/util"
	"github.com/Capstone-NovoCert/novo/logger"
	"github.com/Capstone-NovoCert/novo/pipeline"
)

// De novo outcome messages
const (
	MessageDenovoSucceeded  = "De novo peptide sequencing completed successfully!"
	MessageDenovoFailed     = "De novo program failed."
	MessageModuleMissing    = "Casanovo module not found. Run pip install casanovo."
	MessagePythonNotStarted = "Could not start Python. Check that Python is installed."
)

var moduleMarkers = []string{"ModuleNotFoundError", "ImportError"}

// DenovoTool sequences peptides with Casanovo:
//
//	<python> -m <module> --model <model> --config <yaml> --target-dir <target> --decoy-dir <decoy> --output-dir <target>/../denovo_output
type DenovoTool struct {
	Python *Resolver
	Module string
	Runner *Runner
	Log    *zap.SugaredLogger
}

var _ Tool = (*DenovoTool)(nil)

// NewDenovoTool builds the de novo tool from configuration
func NewDenovoTool(cfg *am.Config, run *Runner, log *zap.SugaredLogger) (*DenovoTool, error) {
	if log == nil {
		log = logger.ComponentLogger("denovo")
	}
	python, err := NewResolver("python", cfg.Runtime.Python, cfg.ProbeTimeout(), ExecProbe(nil), log)
	if err != nil {
		return nil, err
	}
	module := cfg.Tools.Denovo.Module
	if module == "" {
		module = "casanovo"
	}
	return &DenovoTool{Python: python, Module: module, Runner: run, Log: log}, nil
}

func (d *DenovoTool) Type() pipeline.Type { return pipeline.TypeDenovo }

// Check parses the Casanovo config when it exists. A missing file is left
// for Casanovo to report.
func (d *DenovoTool) Check(params pipeline.Params) error {
	p, err := denovoParams(params)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(strings.TrimSpace(p.CasanovoYAMLPath))
	if err != nil {
		return nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		v := &pipeline.ValidationError{}
		v.Add("casanovo_yaml_path", "is not valid YAML: "+util.FirstLine(err.Error()))
		return v
	}
	return nil
}

// OutputDir is where Casanovo writes its results: a denovo_output directory
// next to the target spectra directory
func OutputDir(targetSpectraDir string) string {
	return filepath.Join(targetSpectraDir, "..", "denovo_output")
}

// Command builds the invocation for python
func (d *DenovoTool) Command(python string, p *pipeline.DenovoParams) Command {
	target := strings.TrimSpace(p.TargetSpectraDir)
	return Command{
		Path: python,
		Args: []string{
			"-m", d.Module,
			"--model", strings.TrimSpace(p.CasanovoModelPath),
			"--config", strings.TrimSpace(p.CasanovoYAMLPath),
			"--target-dir", target,
			"--decoy-dir", strings.TrimSpace(p.DecoySpectraDir),
			"--output-dir", OutputDir(target),
		},
	}
}

func (d *DenovoTool) Run(ctx context.Context, params pipeline.Params) Report {
	result := &pipeline.DenovoResult{}
	p, err := denovoParams(params)
	if err != nil {
		result.Message = pipeline.MessageValidationError
		result.Error = err.Error()
		return Report{Result: result, Code: pipeline.ErrorCodeValidation}
	}

	python, err := d.Python.Resolve(ctx)
	if err != nil {
		result.Message = MessagePythonNotStarted
		result.Error = err.Error()
		if code, msg, ok := interrupted(Output{Err: err}); ok {
			result.Message = msg
			return Report{Result: result, Code: code}
		}
		return Report{Result: result, Code: pipeline.ErrorCodeExecutableNotFound}
	}

	log := logger.FromContext(ctx, d.Log)
	cmd := d.Command(python.Path, p)
	log.Infow("Running de novo sequencing", "command", cmd.String())

	out := d.Runner.Run(ctx, cmd)
	result.Outcome = outcome(cmd, out)

	if code, msg, ok := interrupted(out); ok {
		result.Message = msg
		return Report{Result: result, Code: code}
	}

	switch {
	case !out.Spawned:
		result.Message = MessagePythonNotStarted
		return Report{Result: result, Code: pipeline.ErrorCodeExecutableNotFound}
	case out.Err != nil:
		result.Message = MessageDenovoFailed
		result.Error = strings.TrimSpace(out.Stderr + "\n" + out.Err.Error())
		return Report{Result: result, Code: pipeline.ErrorCodeToolFailure}
	case out.ExitCode == 0:
		result.Success = true
		result.Message = MessageDenovoSucceeded
		return Report{Result: result}
	case util.ContainsAny(out.Stderr, moduleMarkers):
		result.PythonModuleError = true
		result.Message = MessageModuleMissing
		return Report{Result: result, Code: pipeline.ErrorCodeModuleNotFound}
	default:
		result.Message = MessageDenovoFailed
		return Report{Result: result, Code: pipeline.ErrorCodeToolFailure}
	}
}

func denovoParams(params pipeline.Params) (*pipeline.DenovoParams, error) {
	p, ok := params.(*pipeline.DenovoParams)
	if !ok || p == nil {
		return nil, errors.NewInvalidRequestError("denovo tool needs denovo params, got %T", params)
	}
	return p, nil
}
