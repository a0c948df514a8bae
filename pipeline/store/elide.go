package store

import "github.com/Capstone-NovoCert/novo/pipeline"

// elide returns a copy of rec without the captured output. hasOutput records
// that there was some.
func elide(rec *pipeline.Execution) *pipeline.Execution {
	c := rec.Clone()
	if c.Result == nil {
		return c
	}
	sum := c.Result.Summary()
	sum.HasOutput = sum.HasOutput || sum.Output != ""
	sum.Output = ""
	return c
}
