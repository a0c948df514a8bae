package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across novo.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldExecutionID  = "execution_id"
	FieldPipelineType = "pipeline_type"
	FieldPartition    = "partition"
	FieldComponent    = "component"

	// Operations
	FieldOperation = "operation"
	FieldPath      = "path"
	FieldBackend   = "backend"

	// Processes
	FieldBinary   = "binary"
	FieldArgs     = "args"
	FieldDir      = "dir"
	FieldExitCode = "exit_code"
	FieldPID      = "pid"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorCode = "error_code"

	// Counts and status
	FieldCount  = "count"
	FieldStatus = "status"
)

// Context keys for propagating logging context
type contextKey string

const (
	executionIDKey  contextKey = "logger_execution_id"
	pipelineTypeKey contextKey = "logger_pipeline_type"
	componentKey    contextKey = "logger_component"
)

// WithExecutionID adds an execution ID to the context for logging
func WithExecutionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, executionIDKey, id)
}

// WithPipelineType adds the pipeline type to the context for logging
func WithPipelineType(ctx context.Context, pipelineType string) context.Context {
	return context.WithValue(ctx, pipelineTypeKey, pipelineType)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if id, ok := ctx.Value(executionIDKey).(string); ok && id != "" {
		fields = append(fields, FieldExecutionID, id)
	}
	if pt, ok := ctx.Value(pipelineTypeKey).(string); ok && pt != "" {
		fields = append(fields, FieldPipelineType, pt)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// FromContext returns base enriched with fields carried by ctx.
// A nil base falls back to the global Logger.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Controller struct {
//	    log *zap.SugaredLogger
//	}
//
//	func New() *Controller {
//	    return &Controller{log: logger.ComponentLogger("controller")}
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
