package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Capstone-NovoCert/novo/display"
	"github.com/Capstone-NovoCert/novo/pipeline"
	"github.com/Capstone-NovoCert/novo/sym"
)

// StatusCmd shows one execution
var StatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show an execution's status, params and result",
	Long:  "Show one execution in full. The id may be any unambiguous prefix, as printed by novo ls.",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

// LsCmd lists executions
var LsCmd = &cobra.Command{
	Use:   "ls",
	Short: sym.ForCommand("ls", "List executions, newest first"),
	Long: `List recorded executions, newest first.

Examples:
  novo ls                      # every execution
  novo ls --type decoy         # one pipeline type
  novo ls --status failed -n 5 # the five most recent failures`,
	Args: cobra.NoArgs,
	RunE: runLs,
}

// RmCmd deletes executions
var RmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Delete executions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRm,
}

// StatsCmd counts executions
var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count executions by status and type",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var (
	lsType   string
	lsStatus string
	lsLimit  int
)

func init() {
	LsCmd.Flags().StringVarP(&lsType, "type", "t", "", "Only list this pipeline type")
	LsCmd.Flags().StringVarP(&lsStatus, "status", "s", "", "Only list executions in this status")
	LsCmd.Flags().IntVarP(&lsLimit, "limit", "n", 0, "Show at most this many executions (0 = all)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	rec, err := resolveID(cmd.Context(), sess.ctrl, args[0])
	if err != nil {
		return err
	}
	return display.Output(cmd, rec, func() error {
		return display.RenderExecution(cmd.OutOrStdout(), rec)
	})
}

func runLs(cmd *cobra.Command, args []string) error {
	recs, err := listExecutions(cmd, lsType, lsStatus, lsLimit)
	if err != nil {
		return err
	}
	return display.Output(cmd, recs, func() error {
		return display.RenderExecutions(cmd.OutOrStdout(), recs)
	})
}

// listExecutions applies the ls filters. Shared with watch.
func listExecutions(cmd *cobra.Command, typ, status string, limit int) ([]*pipeline.Execution, error) {
	sess, err := openSession(cmd, false)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	return filterExecutions(cmd, sess, typ, status, limit)
}

func filterExecutions(cmd *cobra.Command, sess *session, typ, status string, limit int) ([]*pipeline.Execution, error) {
	if status != "" && !pipeline.IsValidStatus(status) {
		v := &pipeline.ValidationError{}
		v.Add("status", "must be one of pending, running, completed, failed, cancelled")
		return nil, v.OrNil()
	}

	var recs []*pipeline.Execution
	var err error
	if typ != "" {
		t, perr := pipeline.ParseType(typ)
		if perr != nil {
			return nil, perr
		}
		recs, err = sess.ctrl.ListByType(cmd.Context(), t)
	} else {
		recs, err = sess.ctrl.ListAll(cmd.Context())
	}
	if err != nil {
		return nil, err
	}

	if status != "" {
		kept := recs[:0]
		for _, r := range recs {
			if r.Status == pipeline.Status(status) {
				kept = append(kept, r)
			}
		}
		recs = kept
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func runRm(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	type deleted struct {
		ID      string `json:"id"`
		Deleted bool   `json:"deleted"`
	}
	var out []deleted
	for _, arg := range args {
		rec, err := resolveID(cmd.Context(), sess.ctrl, arg)
		if err != nil {
			return err
		}
		ok, err := sess.ctrl.Delete(cmd.Context(), rec.ID)
		if err != nil {
			return err
		}
		out = append(out, deleted{ID: rec.ID, Deleted: ok})
	}

	return display.Output(cmd, out, func() error {
		for _, d := range out {
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Deleted %s", d.ID)
		}
		return nil
	})
}

func runStats(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	s, err := sess.ctrl.Stats(cmd.Context())
	if err != nil {
		return err
	}
	return display.Output(cmd, s, func() error {
		return display.RenderStats(cmd.OutOrStdout(), s)
	})
}
