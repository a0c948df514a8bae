package pipeline

import (
	"encoding/json"
	"time"

	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/internal/util"
)

// Execution is one submitted run of a pipeline stage.
//
// Status moves forward only: pending -> running -> {completed, failed,
// cancelled}. A pending record may also go straight to failed or cancelled
// when the tool was never started. StartedAt and CompletedAt are set at most
// once.
type Execution struct {
	ID           string     `json:"id"`
	PipelineType Type       `json:"pipelineType"`
	Params       Params     `json:"params"`
	Status       Status     `json:"status"`
	Result       Result     `json:"result,omitempty"`
	Error        string     `json:"error,omitempty"`
	Code         ErrorCode  `json:"code,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// NewExecution creates a pending execution for params. The store assigns the
// id and timestamps on create.
func NewExecution(t Type, params Params) (*Execution, error) {
	if !t.Valid() {
		return nil, errors.NewInvalidRequestError("unknown pipeline type %q", t)
	}
	if params == nil {
		var err error
		if params, err = NewParams(t); err != nil {
			return nil, err
		}
	}
	if params.PipelineType() != t {
		return nil, errors.NewInvalidRequestError("%s params submitted as %s", params.PipelineType(), t)
	}
	return &Execution{
		PipelineType: t,
		Params:       params,
		Status:       StatusPending,
	}, nil
}

// Start marks the execution as running
func (e *Execution) Start(now time.Time) error {
	if e.Status != StatusPending {
		return e.transitionError(StatusRunning)
	}
	e.Status = StatusRunning
	if e.StartedAt == nil {
		e.StartedAt = util.Ptr(now)
	}
	return nil
}

// Complete marks the execution as completed with its result
func (e *Execution) Complete(result Result, now time.Time) error {
	if e.Status != StatusRunning {
		return e.transitionError(StatusCompleted)
	}
	e.finish(StatusCompleted, result, now)
	e.Error = ""
	e.Code = ""
	return nil
}

// Fail marks the execution as failed. result may be nil when nothing ran.
func (e *Execution) Fail(code ErrorCode, message string, result Result, now time.Time) error {
	if e.Status.Terminal() {
		return e.transitionError(StatusFailed)
	}
	e.finish(StatusFailed, result, now)
	e.Error = message
	e.Code = code
	return nil
}

// Cancel marks the execution as cancelled
func (e *Execution) Cancel(message string, result Result, now time.Time) error {
	if e.Status.Terminal() {
		return e.transitionError(StatusCancelled)
	}
	e.finish(StatusCancelled, result, now)
	e.Error = message
	e.Code = ErrorCodeCancelled
	return nil
}

func (e *Execution) finish(status Status, result Result, now time.Time) {
	e.Status = status
	e.Result = result
	if e.CompletedAt == nil {
		e.CompletedAt = util.Ptr(now)
	}
}

func (e *Execution) transitionError(to Status) error {
	return errors.Wrapf(ErrInvalidTransition, "execution %s: %s -> %s", e.ID, e.Status, to)
}

// Duration returns the running time of a finished execution, or zero
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil || e.CompletedAt == nil {
		return 0
	}
	return e.CompletedAt.Sub(*e.StartedAt)
}

// Clone returns a deep copy
func (e *Execution) Clone() *Execution {
	if e == nil {
		return nil
	}
	c := *e
	if e.Params != nil {
		c.Params = e.Params.cloneParams()
	}
	if e.Result != nil {
		c.Result = e.Result.cloneResult()
	}
	if e.StartedAt != nil {
		t := *e.StartedAt
		c.StartedAt = &t
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// UnmarshalJSON decodes params and result into the variants selected by
// pipelineType.
func (e *Execution) UnmarshalJSON(data []byte) error {
	type plain Execution
	var wire struct {
		plain
		Params json.RawMessage `json:"params"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if !wire.PipelineType.Valid() {
		return errors.Newf("execution %s has unknown pipelineType %q", wire.ID, wire.PipelineType)
	}

	params, err := DecodeParams(wire.PipelineType, wire.Params)
	if err != nil {
		return err
	}
	result, err := DecodeResult(wire.PipelineType, wire.Result)
	if err != nil {
		return err
	}

	*e = Execution(wire.plain)
	e.Params = params
	e.Result = result
	return nil
}
