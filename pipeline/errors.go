package pipeline

import (
	"context"
	"io/fs"
	"os/exec"
	"strings"

	"github.com/Capstone-NovoCert/novo/errors"
)

// ErrorCode classifies why an execution did not complete
type ErrorCode string

const (
	ErrorCodeValidation         ErrorCode = "validation_error"
	ErrorCodeNotImplemented     ErrorCode = "not_implemented"
	ErrorCodeExecutableNotFound ErrorCode = "executable_not_found"
	ErrorCodeVersionMismatch    ErrorCode = "runtime_version_mismatch"
	ErrorCodeModuleNotFound     ErrorCode = "module_not_found"
	ErrorCodeToolFailure        ErrorCode = "external_tool_failure"
	ErrorCodeCancelled          ErrorCode = "cancelled"
	ErrorCodeTimeout            ErrorCode = "timeout"
	ErrorCodeInterrupted        ErrorCode = "interrupted"
	ErrorCodeDeleted            ErrorCode = "deleted"
)

// User-facing summary messages
const (
	MessageValidationError = "validation error"
	MessageNotImplemented  = "pipeline not implemented"
	MessageCancelled       = "execution cancelled"
	MessageTimeout         = "execution timed out"
	MessageInterrupted     = "execution interrupted by process exit"
	MessageSpawnFailed     = "failed to start external tool"
	MessageDeleted         = "execution deleted before it finished"
)

// ErrInvalidTransition is returned when a status change would move an
// execution backwards or out of a terminal state.
var ErrInvalidTransition = errors.New("invalid status transition")

// ClassifyError maps an error from validation or process supervision onto
// an ErrorCode. Tool-specific markers (version, module) are classified by
// the tools themselves from captured stderr.
func ClassifyError(err error) ErrorCode {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr), errors.IsInvalidRequestError(err):
		return ErrorCodeValidation
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, errors.ErrTimeout):
		return ErrorCodeTimeout
	case errors.Is(err, context.Canceled):
		return ErrorCodeCancelled
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return ErrorCodeExecutableNotFound
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "executable file not found"), strings.Contains(msg, "no such file"):
		return ErrorCodeExecutableNotFound
	default:
		return ErrorCodeToolFailure
	}
}
