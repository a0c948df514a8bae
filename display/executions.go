package display

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/Capstone-NovoCert/novo/internal/util"
	"github.com/Capstone-NovoCert/novo/pipeline"
	"github.com/Capstone-NovoCert/novo/pipeline/controller"
	"github.com/Capstone-NovoCert/novo/sym"
)

// Column widths for the execution table
const (
	idWidth    = 8
	errorWidth = 60
)

// TimeLayout is how timestamps appear in human output
const TimeLayout = "2006-01-02 15:04:05"

// StatusLabel colours a status for the terminal
func StatusLabel(s pipeline.Status) string {
	label := sym.ForStatus(string(s)) + " " + string(s)
	switch s {
	case pipeline.StatusCompleted:
		return pterm.Green(label)
	case pipeline.StatusFailed:
		return pterm.Red(label)
	case pipeline.StatusCancelled:
		return pterm.Yellow(label)
	case pipeline.StatusRunning:
		return pterm.LightCyan(label)
	default:
		return pterm.Gray(label)
	}
}

// ShortID abbreviates an execution id for tables. Full ids are accepted
// everywhere an id is taken.
func ShortID(id string) string {
	if len(id) <= idWidth {
		return id
	}
	return id[:idWidth]
}

// FormatDuration renders d rounded for humans, "-" when zero
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

// ExecutionTable builds the rows of the ls table, header first
func ExecutionTable(recs []*pipeline.Execution) pterm.TableData {
	data := pterm.TableData{{"ID", "TYPE", "STATUS", "CREATED", "DURATION", "ERROR"}}
	for _, rec := range recs {
		data = append(data, []string{
			ShortID(rec.ID),
			string(rec.PipelineType),
			StatusLabel(rec.Status),
			rec.CreatedAt.Local().Format(TimeLayout),
			FormatDuration(rec.Duration()),
			util.Truncate(util.FirstLine(rec.Error), errorWidth),
		})
	}
	return data
}

// RenderExecutions writes the ls table to w
func RenderExecutions(w io.Writer, recs []*pipeline.Execution) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No executions recorded")
		return err
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(ExecutionTable(recs)).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// RenderExecution writes one execution in full: lifecycle, params and the
// tool outcome
func RenderExecution(w io.Writer, rec *pipeline.Execution) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", pterm.Bold.Sprint("Execution"), rec.ID)
	fmt.Fprintf(&b, "  Type:      %s\n", rec.PipelineType)
	fmt.Fprintf(&b, "  Status:    %s\n", StatusLabel(rec.Status))
	fmt.Fprintf(&b, "  Created:   %s\n", rec.CreatedAt.Local().Format(TimeLayout))
	if rec.StartedAt != nil {
		fmt.Fprintf(&b, "  Started:   %s\n", rec.StartedAt.Local().Format(TimeLayout))
	}
	if rec.CompletedAt != nil {
		fmt.Fprintf(&b, "  Completed: %s (%s)\n", rec.CompletedAt.Local().Format(TimeLayout), FormatDuration(rec.Duration()))
	}
	if rec.Code != "" {
		fmt.Fprintf(&b, "  Code:      %s\n", rec.Code)
	}

	if rec.Params != nil {
		values, err := pipeline.ParamsToMap(rec.Params)
		if err != nil {
			return err
		}
		if len(values) > 0 {
			b.WriteString("  Params:\n")
			writeSorted(&b, values)
		}
	}

	if rec.Result != nil {
		sum := rec.Result.Summary()
		b.WriteString("  Result:\n")
		fmt.Fprintf(&b, "    message:   %s\n", sum.Message)
		if sum.Command != "" {
			fmt.Fprintf(&b, "    command:   %s\n", sum.Command)
		}
		fmt.Fprintf(&b, "    exit code: %d\n", sum.ExitCode)
		fmt.Fprintf(&b, "    output:    %s\n", outputNote(sum))
	}

	if rec.Error != "" {
		fmt.Fprintf(&b, "  Error:\n%s\n", indent(rec.Error, "    "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderStats writes execution counts by status and by type
func RenderStats(w io.Writer, s controller.Stats) error {
	data := pterm.TableData{{"STATUS", "COUNT"}}
	for _, st := range pipeline.AllStatuses {
		if n := s.ByStatus[st]; n > 0 {
			data = append(data, []string{StatusLabel(st), fmt.Sprint(n)})
		}
	}
	byStatus, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}

	data = pterm.TableData{{"TYPE", "COUNT"}}
	for _, t := range pipeline.AllTypes {
		if n := s.ByType[t]; n > 0 {
			data = append(data, []string{string(t), fmt.Sprint(n)})
		}
	}
	byType, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "Total executions: %d\n\n%s\n\n%s\n", s.Total, byStatus, byType)
	return err
}

// RenderParams writes params as sorted key = value lines
func RenderParams(w io.Writer, p pipeline.Params) error {
	values, err := pipeline.ParamsToMap(p)
	if err != nil {
		return err
	}
	var b strings.Builder
	writeSorted(&b, values)
	_, err = io.WriteString(w, b.String())
	return err
}

func writeSorted(b *strings.Builder, values map[string]string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "    %s = %s\n", k, values[k])
	}
}

func outputNote(sum *pipeline.Outcome) string {
	switch {
	case sum.Output != "":
		return fmt.Sprintf("%d bytes", len(sum.Output))
	case sum.HasOutput:
		return "captured, not stored"
	default:
		return "none"
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
