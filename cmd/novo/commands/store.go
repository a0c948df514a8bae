package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Capstone-NovoCert/novo/display"
	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/sym"
)

// StoreCmd groups execution store maintenance
var StoreCmd = &cobra.Command{
	Use:   "store",
	Short: sym.ForCommand("store", "Maintain the execution store"),
	Long: `Maintain the execution store.

Examples:
  novo store where              # backend and data location
  novo store backup             # timestamped copy inside the data directory
  novo store backup /mnt/usb    # copy to a directory of your choice
  novo store clear --yes        # delete every execution record`,
}

var storeWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show the store backend and where it keeps data",
	Args:  cobra.NoArgs,
	RunE:  runStoreWhere,
}

var storeBackupCmd = &cobra.Command{
	Use:   "backup [dest]",
	Short: "Copy the store's data",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStoreBackup,
}

var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every execution record",
	Args:  cobra.NoArgs,
	RunE:  runStoreClear,
}

var clearYes bool

func init() {
	storeClearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Do not ask for confirmation")

	StoreCmd.AddCommand(storeWhereCmd)
	StoreCmd.AddCommand(storeBackupCmd)
	StoreCmd.AddCommand(storeClearCmd)
}

func runStoreWhere(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	where := map[string]string{
		"backend":  sess.store.Backend(),
		"location": sess.store.Location(),
	}
	return display.Output(cmd, where, func() error {
		pterm.Fprintln(cmd.OutOrStdout(), "Backend: ", where["backend"])
		pterm.Fprintln(cmd.OutOrStdout(), "Location:", where["location"])
		return nil
	})
}

func runStoreBackup(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	var dest string
	if len(args) == 1 {
		dest = args[0]
	}
	path, err := sess.store.Backup(cmd.Context(), dest)
	if err != nil {
		return err
	}

	return display.Output(cmd, map[string]string{"backup": path}, func() error {
		pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Backed up %s store to %s", sess.store.Backend(), path)
		return nil
	})
}

func runStoreClear(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	if !clearYes {
		if display.ShouldOutputJSON(cmd) {
			return errors.WithHint(errors.NewInvalidRequestError("refusing to clear the store without confirmation"), "pass --yes")
		}
		ok, err := pterm.DefaultInteractiveConfirm.Show("Delete every execution record in " + sess.store.Location() + "?")
		if err != nil {
			return errors.Wrap(err, "failed to read confirmation")
		}
		if !ok {
			return nil
		}
	}

	if err := sess.store.Clear(cmd.Context()); err != nil {
		return err
	}
	return display.Output(cmd, map[string]bool{"cleared": true}, func() error {
		pterm.Success.WithWriter(cmd.OutOrStdout()).Println("Execution store cleared")
		return nil
	})
}
