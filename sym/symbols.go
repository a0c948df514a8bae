// Package sym defines the glyphs novo prints for commands and execution
// states. They are stable across CLI help, tables and documentation.
package sym

// Command glyphs, shown in help text next to each command group
const (
	Run   = "▶" // run: launch a pipeline stage
	Ls    = "☰" // ls: list executions
	Watch = "◉" // watch: follow executions live
	Store = "⊔" // store: execution storage layer
	AM    = "≡" // am: configuration and system settings
)

// Execution state glyphs
const (
	Pending   = "○"
	Running   = "◐"
	Completed = "●"
	Failed    = "✕"
	Cancelled = "⊘"
)

// SymbolToCommand maps command glyphs to the command they prefix
var SymbolToCommand = map[string]string{
	Run:   "run",
	Ls:    "ls",
	Watch: "watch",
	Store: "store",
	AM:    "am",
}

// CommandToSymbol maps command names to their glyph
var CommandToSymbol = map[string]string{
	"run":   Run,
	"ls":    Ls,
	"watch": Watch,
	"store": Store,
	"am":    AM,
}

// StatusGlyphs maps execution status names to their glyph
var StatusGlyphs = map[string]string{
	"pending":   Pending,
	"running":   Running,
	"completed": Completed,
	"failed":    Failed,
	"cancelled": Cancelled,
}

// ForStatus returns the glyph for a status name, or a blank of the same
// width for unknown ones so table columns stay aligned
func ForStatus(status string) string {
	if g, ok := StatusGlyphs[status]; ok {
		return g
	}
	return " "
}

// ForCommand prefixes a help line with the command's glyph when it has one
func ForCommand(command, text string) string {
	if g, ok := CommandToSymbol[command]; ok {
		return g + " " + text
	}
	return text
}
