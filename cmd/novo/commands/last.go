package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Capstone-NovoCert/novo/display"
	"github.com/Capstone-NovoCert/novo/pipeline"
)

// LastCmd shows the parameters of the previous run of a type
var LastCmd = &cobra.Command{
	Use:   "last <type>",
	Short: "Show the parameters of the most recent run of a pipeline type",
	Long: `Show the parameters of the most recent run of a pipeline type.

With --suggest, a denovo type with no history of its own proposes the last
decoy run's output directory as both spectra directories. novo run --last
uses the same suggestion.`,
	Args: cobra.ExactArgs(1),
	RunE: runLast,
}

// RecoverCmd closes out executions whose process died
var RecoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Mark executions left pending or running by a dead process as failed",
	Long: `Mark executions left pending or running by a process that exited without
recording an outcome (a crash, kill -9, a closed terminal) as failed with
code interrupted.

Only run this when no other novo process is running a pipeline against the
same store: their executions would be marked too.`,
	Args: cobra.NoArgs,
	RunE: runRecover,
}

var lastSuggest bool

func init() {
	LastCmd.Flags().BoolVar(&lastSuggest, "suggest", false, "Derive params from related runs when this type has none")
}

func runLast(cmd *cobra.Command, args []string) error {
	t, err := pipeline.ParseType(args[0])
	if err != nil {
		return err
	}

	sess, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	var params pipeline.Params
	if lastSuggest {
		params, err = sess.ctrl.SuggestParams(cmd.Context(), t)
	} else {
		params, err = sess.ctrl.LastParamsFor(cmd.Context(), t)
	}
	if err != nil {
		return err
	}

	return display.Output(cmd, params, func() error {
		if params == nil {
			pterm.Info.WithWriter(cmd.OutOrStdout()).Printfln("No previous %s run", t)
			return nil
		}
		pterm.Fprintln(cmd.OutOrStdout(), pterm.Bold.Sprintf("Last %s parameters", t))
		return display.RenderParams(cmd.OutOrStdout(), params)
	})
}

func runRecover(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	ids, err := sess.ctrl.RecoverOrphaned(cmd.Context())
	if err != nil {
		return err
	}
	if ids == nil {
		ids = []string{}
	}

	return display.Output(cmd, map[string][]string{"recovered": ids}, func() error {
		if len(ids) == 0 {
			pterm.Info.WithWriter(cmd.OutOrStdout()).Println("No orphaned executions")
			return nil
		}
		for _, id := range ids {
			pterm.Warning.WithWriter(cmd.OutOrStdout()).Printfln("Marked %s as interrupted", id)
		}
		return nil
	})
}
