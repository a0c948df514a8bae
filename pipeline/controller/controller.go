// Package controller drives executions through their lifecycle: it records
// each submission, runs the matching tool and persists every transition.
// Queries always read through to the store.
package controller

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/logger"
	"github.com/Capstone-NovoCert/novo/pipeline"
	"github.com/Capstone-NovoCert/novo/pipeline/runner"
	"github.com/Capstone-NovoCert/novo/pipeline/store"
)

// Options tune a Controller
type Options struct {
	// Timeout bounds each tool run; zero means no limit
	Timeout time.Duration
	Logger  *zap.SugaredLogger
	Now     func() time.Time
}

// Controller orchestrates submissions against a store and a tool registry
type Controller struct {
	store   store.Store
	tools   *runner.Registry
	log     *zap.SugaredLogger
	timeout time.Duration
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// New returns a Controller. tools may be nil, in which case every
// submission fails as not implemented.
func New(st store.Store, tools *runner.Registry, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = logger.ComponentLogger("controller")
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if tools == nil {
		tools = runner.NewRegistry()
	}
	return &Controller{
		store:    st,
		tools:    tools,
		log:      opts.Logger,
		timeout:  opts.Timeout,
		now:      opts.Now,
		inflight: make(map[string]context.CancelFunc),
	}
}

// SubmitResult summarises a finished submission
type SubmitResult struct {
	Success     bool               `json:"success"`
	ExecutionID string             `json:"executionId,omitempty"`
	Message     string             `json:"message"`
	Error       string             `json:"error,omitempty"`
	Code        pipeline.ErrorCode `json:"code,omitempty"`
	// VersionError is set when the Java runtime was too old for the tool
	VersionError bool `json:"versionError,omitempty"`
	// ModuleError is set when the Python module could not be imported
	ModuleError bool `json:"moduleError,omitempty"`
}

// Submit records a new execution of type t, runs it to completion and
// returns its outcome. Invalid params and reserved types still leave a
// failed record behind. Only store failures and unusable input (an unknown
// type, params of another type) are returned as errors.
//
// Cancelling ctx stops the tool; the execution is then recorded as
// cancelled.
func (c *Controller) Submit(ctx context.Context, t pipeline.Type, params pipeline.Params) (SubmitResult, error) {
	rec, err := pipeline.NewExecution(t, params)
	if err != nil {
		return SubmitResult{}, err
	}
	created, err := c.store.Create(ctx, t, rec)
	if err != nil {
		return SubmitResult{}, errors.Wrapf(err, "failed to record %s execution", t)
	}

	id := created.ID
	ctx = logger.WithPipelineType(logger.WithExecutionID(ctx, id), string(t))
	log := logger.FromContext(ctx, c.log)
	log.Infow("Execution submitted")

	tool := c.tools.Get(t)
	if tool == nil {
		msg := "no tool is available for " + string(t) + " pipelines yet"
		return c.failEarly(ctx, created, pipeline.ErrorCodeNotImplemented, pipeline.MessageNotImplemented, msg)
	}

	if err := validate(tool, created.Params); err != nil {
		return c.failEarly(ctx, created, pipeline.ErrorCodeValidation, pipeline.MessageValidationError, err.Error())
	}

	runCtx, cancel := c.runContext(ctx)
	defer cancel()
	c.track(id, cancel)
	defer c.untrack(id)

	started, err := c.store.Update(ctx, t, id, func(e *pipeline.Execution) error {
		return e.Start(c.now())
	})
	if err != nil {
		return SubmitResult{ExecutionID: id}, errors.Wrapf(err, "failed to mark execution %s running", id)
	}
	if started == nil {
		return c.vanished(ctx, id), nil
	}

	report := c.runTool(runCtx, tool, created.Params)
	sum := report.Result.Summary()

	// Record the outcome even when the caller has gone away
	final, err := c.store.Update(context.WithoutCancel(ctx), t, id, func(e *pipeline.Execution) error {
		now := c.now()
		switch {
		case report.Succeeded():
			return e.Complete(report.Result, now)
		case report.Code == pipeline.ErrorCodeCancelled:
			return e.Cancel(sum.Message, report.Result, now)
		default:
			return e.Fail(report.Code, failureText(sum), report.Result, now)
		}
	})
	if err != nil {
		return SubmitResult{ExecutionID: id}, errors.Wrapf(err, "failed to record outcome of execution %s", id)
	}
	if final == nil {
		return c.vanished(ctx, id), nil
	}

	log.Infow("Execution finished",
		logger.FieldStatus, final.Status,
		logger.FieldErrorCode, report.Code,
		logger.FieldDurationMS, final.Duration().Milliseconds(),
	)
	return submitResult(id, report), nil
}

// runTool runs tool, turning a panic into a tool failure so the record
// still reaches a terminal state
func (c *Controller) runTool(ctx context.Context, tool runner.Tool, params pipeline.Params) (rep runner.Report) {
	defer func() {
		if r := recover(); r != nil {
			res, _ := pipeline.NewResult(tool.Type())
			res.Summary().Message = "tool crashed"
			res.Summary().Error = errors.Newf("panic: %v", r).Error()
			rep = runner.Report{Result: res, Code: pipeline.ErrorCodeToolFailure}
		}
	}()
	rep = tool.Run(ctx, params)
	if rep.Result == nil {
		res, _ := pipeline.NewResult(tool.Type())
		rep.Result = res
	}
	return rep
}

// failEarly records a submission that never reached its tool
func (c *Controller) failEarly(ctx context.Context, rec *pipeline.Execution, code pipeline.ErrorCode, message, detail string) (SubmitResult, error) {
	failed, err := c.store.Update(context.WithoutCancel(ctx), rec.PipelineType, rec.ID, func(e *pipeline.Execution) error {
		return e.Fail(code, detail, nil, c.now())
	})
	if err != nil {
		return SubmitResult{ExecutionID: rec.ID}, errors.Wrapf(err, "failed to record rejected execution %s", rec.ID)
	}
	if failed == nil {
		return c.vanished(ctx, rec.ID), nil
	}
	logger.FromContext(ctx, c.log).Infow("Execution rejected",
		logger.FieldErrorCode, code,
		logger.FieldError, detail,
	)
	return SubmitResult{
		ExecutionID: rec.ID,
		Message:     message,
		Error:       detail,
		Code:        code,
	}, nil
}

// vanished reports a submission whose record was deleted under it
func (c *Controller) vanished(ctx context.Context, id string) SubmitResult {
	logger.FromContext(ctx, c.log).Warnw("Execution deleted before it finished")
	return SubmitResult{
		ExecutionID: id,
		Message:     pipeline.MessageDeleted,
		Error:       "execution " + id + " no longer exists",
		Code:        pipeline.ErrorCodeDeleted,
	}
}

func (c *Controller) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

func validate(tool runner.Tool, params pipeline.Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	return tool.Check(params)
}

// failureText is what the record's error field says about a failed run:
// the tool's stderr when there is any
func failureText(sum *pipeline.Outcome) string {
	if text := strings.TrimSpace(sum.Error); text != "" {
		return text
	}
	return sum.Message
}

func submitResult(id string, rep runner.Report) SubmitResult {
	sum := rep.Result.Summary()
	res := SubmitResult{
		Success:     rep.Succeeded() && sum.Success,
		ExecutionID: id,
		Message:     sum.Message,
		Code:        rep.Code,
	}
	if !res.Success {
		res.Error = failureText(sum)
	}
	switch r := rep.Result.(type) {
	case *pipeline.DecoyResult:
		res.VersionError = r.JavaVersionError
	case *pipeline.DenovoResult:
		res.ModuleError = r.PythonModuleError
	}
	return res
}

// Cancel stops an execution submitted through this controller that is still
// running. It reports whether there was one to stop.
func (c *Controller) Cancel(id string) bool {
	c.mu.Lock()
	cancel, ok := c.inflight[id]
	c.mu.Unlock()
	if ok {
		c.log.Infow("Cancelling execution", logger.FieldExecutionID, id)
		cancel()
	}
	return ok
}

// InFlight returns the ids of executions this controller is running
func (c *Controller) InFlight() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.inflight))
	for id := range c.inflight {
		ids = append(ids, id)
	}
	return ids
}

func (c *Controller) track(id string, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight[id] = cancel
}

func (c *Controller) untrack(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, id)
}

func (c *Controller) isInFlight(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[id]
	return ok
}
