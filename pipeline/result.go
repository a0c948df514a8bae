package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/Capstone-NovoCert/novo/errors"
)

// Outcome is the part of a result every tool reports
type Outcome struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Output     string `json:"output,omitempty"` // captured stdout, dropped on persist
	HasOutput  bool   `json:"hasOutput"`
	Error      string `json:"error,omitempty"` // captured stderr or spawn error
	ExitCode   int    `json:"exitCode"`
	Command    string `json:"command,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

// Result is the terminal outcome of an execution. The set of implementations
// is closed: DecoyResult, DenovoResult and StageResult.
type Result interface {
	PipelineType() Type
	Summary() *Outcome
	cloneResult() Result
}

// DecoyResult is the outcome of a decoy spectra generation run
type DecoyResult struct {
	Outcome
	JavaVersionError bool `json:"java_version_error,omitempty"`
}

func (r *DecoyResult) PipelineType() Type { return TypeDecoy }
func (r *DecoyResult) Summary() *Outcome  { return &r.Outcome }
func (r *DecoyResult) cloneResult() Result {
	c := *r
	return &c
}

// DenovoResult is the outcome of a de novo sequencing run
type DenovoResult struct {
	Outcome
	PythonModuleError bool `json:"python_module_error,omitempty"`
}

func (r *DenovoResult) PipelineType() Type { return TypeDenovo }
func (r *DenovoResult) Summary() *Outcome  { return &r.Outcome }
func (r *DenovoResult) cloneResult() Result {
	c := *r
	return &c
}

// StageResult is the outcome recorded for reserved stages
type StageResult struct {
	Outcome
	Stage Type `json:"-"`
}

func (r *StageResult) PipelineType() Type { return r.Stage }
func (r *StageResult) Summary() *Outcome  { return &r.Outcome }
func (r *StageResult) cloneResult() Result {
	c := *r
	return &c
}

// NewResult returns an empty Result for t
func NewResult(t Type) (Result, error) {
	switch t {
	case TypeDecoy:
		return &DecoyResult{}, nil
	case TypeDenovo:
		return &DenovoResult{}, nil
	default:
		if !t.Valid() {
			return nil, errors.NewInvalidRequestError("unknown pipeline type %q", t)
		}
		return &StageResult{Stage: t}, nil
	}
}

// DecodeResult decodes raw JSON into the Result variant for t. Empty or null
// input yields nil.
func DecodeResult(t Type, raw json.RawMessage) (Result, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	r, err := NewResult(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, r); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s result", t)
	}
	return r, nil
}
