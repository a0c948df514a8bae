package runner

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Capstone-NovoCert/novo/am"
	"github.com/Capstone-NovoCert/novo/pipeline"
)

// Tool runs the external program behind one pipeline type
type Tool interface {
	// Type is the pipeline type the tool serves
	Type() pipeline.Type

	// Check validates params beyond their field rules, e.g. by reading
	// referenced files. Returned errors are validation failures.
	Check(params pipeline.Params) error

	// Run executes the tool. It always returns a Report; the run's failure
	// modes are classified in Report.Code rather than returned as errors.
	// Cancelling ctx stops the process.
	Run(ctx context.Context, params pipeline.Params) Report
}

// Report is a tool's account of one run
type Report struct {
	Result pipeline.Result
	// Code is empty on success
	Code pipeline.ErrorCode
}

// Succeeded reports whether the run completed cleanly
func (r Report) Succeeded() bool {
	return r.Code == ""
}

// Registry maps pipeline types to tools. Safe for concurrent use.
type Registry struct {
	tools map[pipeline.Type]Tool
	mu    sync.RWMutex
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[pipeline.Type]Tool)}
}

// Register adds tool under its type. Panics on a duplicate registration.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := tool.Type()
	if _, exists := r.tools[t]; exists {
		panic(fmt.Sprintf("tool already registered for pipeline type: %s", t))
	}
	r.tools[t] = tool
}

// Get returns the tool for t, or nil
func (r *Registry) Get(t pipeline.Type) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[t]
}

// Has reports whether a tool is registered for t
func (r *Registry) Has(t pipeline.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[t]
	return ok
}

// Types returns the registered types in pipeline order
func (r *Registry) Types() []pipeline.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]pipeline.Type, 0, len(r.tools))
	for _, t := range pipeline.AllTypes {
		if _, ok := r.tools[t]; ok {
			types = append(types, t)
		}
	}
	return types
}

// NewDefaultRegistry registers every implemented tool, configured from cfg
func NewDefaultRegistry(cfg *am.Config, log *zap.SugaredLogger) (*Registry, error) {
	run := New(log, cfg.KillGrace())

	decoy, err := NewDecoyTool(cfg, run, log)
	if err != nil {
		return nil, err
	}
	denovo, err := NewDenovoTool(cfg, run, log)
	if err != nil {
		return nil, err
	}

	reg := NewRegistry()
	reg.Register(decoy)
	reg.Register(denovo)
	return reg, nil
}

// outcome fills the fields every tool reports from a finished run
func outcome(c Command, out Output) pipeline.Outcome {
	o := pipeline.Outcome{
		ExitCode:   out.ExitCode,
		Command:    c.String(),
		DurationMs: out.Duration().Milliseconds(),
	}
	if !out.Spawned {
		if out.Err != nil {
			o.Error = out.Err.Error()
		}
		return o
	}
	// A process that ran always has an output stream, even an empty one
	o.Output = out.Stdout
	o.HasOutput = true
	o.Error = out.Stderr
	return o
}

// interrupted classifies a run stopped by its context, whether or not the
// process had started. ok is false for any other ending.
func interrupted(out Output) (pipeline.ErrorCode, string, bool) {
	switch pipeline.ClassifyError(out.Err) {
	case pipeline.ErrorCodeTimeout:
		return pipeline.ErrorCodeTimeout, pipeline.MessageTimeout, true
	case pipeline.ErrorCodeCancelled:
		return pipeline.ErrorCodeCancelled, pipeline.MessageCancelled, true
	}
	return "", "", false
}
