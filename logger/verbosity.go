package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts (-v, -vv).
const (
	VerbosityUser  = 0 // No flags: results and errors only
	VerbosityInfo  = 1 // -v: + execution lifecycle, resolved binaries
	VerbosityDebug = 2 // -vv: + probe attempts, store writes, command lines
)

// VerbosityToLevel maps verbosity flags to zap log levels.
//
//	0 (none) -> WarnLevel
//	1 (-v)   -> InfoLevel
//	2+ (-vv) -> DebugLevel
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityUser:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// EffectiveLevel picks the more verbose of the configured level and the
// level implied by -v flags. Unknown configured levels fall back to the flags.
func EffectiveLevel(configured string, verbosity int) string {
	fromFlags := VerbosityToLevel(verbosity)
	lvl, err := ParseLevel(configured)
	if err != nil || configured == "" {
		return fromFlags.String()
	}
	if fromFlags < lvl {
		return fromFlags.String()
	}
	return lvl.String()
}
