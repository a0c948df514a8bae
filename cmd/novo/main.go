package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Capstone-NovoCert/novo/cmd/novo/commands"
	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/logger"
)

var rootCmd = &cobra.Command{
	Use:   "novo",
	Short: "novo - proteomics pipeline runner",
	Long: `novo runs proteomics analysis stages and keeps a record of every execution.

Decoy spectra generation (precursor swap, Java) and de novo peptide
sequencing (Casanovo, Python) run as external tools; novo finds the
interpreter, runs the tool, and records status, parameters and outcome.

Available commands:
  run     - Run a pipeline stage (decoy, denovo, ...)
  status  - Show one execution
  ls      - List executions
  rm      - Delete executions
  stats   - Count executions by status and type
  last    - Show the parameters of the previous run
  recover - Close out executions left behind by a dead process
  watch   - Follow executions live
  store   - Back up, clear or locate the execution store
  am      - Manage configuration ("I am")

Examples:
  novo run decoy --input-dir ./mgf --output-dir ./decoy --precursor-tolerance 20 --random-seed 42 --memory 8
  novo run denovo --last --casanovo-yaml casanovo.yaml --casanovo-model casanovo.ckpt
  novo ls --type decoy
  novo status 3b1f9c2e`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return commands.Setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	commands.AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.LsCmd)
	rootCmd.AddCommand(commands.RmCmd)
	rootCmd.AddCommand(commands.StatsCmd)
	rootCmd.AddCommand(commands.LastCmd)
	rootCmd.AddCommand(commands.RecoverCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.StoreCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		os.Exit(1)
	}
}
