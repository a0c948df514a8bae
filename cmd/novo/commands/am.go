package commands

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Capstone-NovoCert/novo/am"
	"github.com/Capstone-NovoCert/novo/display"
	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.ForCommand("am", "Manage novo configuration"),
	Long: `Manage novo configuration ("I am")

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/novo/novo.toml)
3. User config (~/.novo/novo.toml)
4. Project config (./novo.toml, searched up from the working directory)
5. Environment variables (NOVO_* prefix, e.g. NOVO_STORE_DIR)
6. The file named by --config

Examples:
  novo am show                    # Show current configuration
  novo am show --format json      # Show configuration in JSON format
  novo am get store.backend       # Get a specific value
  novo am init                    # Write defaults to ~/.novo/novo.toml
  novo am lint ./novo.toml        # Report keys novo does not understand`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., store.dir, runtime.java.candidates)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Args:  cobra.NoArgs,
	RunE:  runAmValidate,
}

var amInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Long:  "Write the default configuration to path, or ~/.novo/novo.toml. An existing file is kept as a .back1 backup.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAmInit,
}

var amLintCmd = &cobra.Command{
	Use:   "lint [path]",
	Short: "Check a config file for unknown keys and invalid values",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAmLint,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show which config files were loaded",
	Args:  cobra.NoArgs,
	RunE:  runAmWhere,
}

var (
	configFormat string
	initForce    bool
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", am.FormatTOML, "Output format: toml, json, yaml")
	amInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amInitCmd)
	AmCmd.AddCommand(amLintCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	format := configFormat
	if display.ShouldOutputJSON(cmd) {
		format = am.FormatJSON
	}
	data, err := am.Encode(cfg, format)
	if err != nil {
		return err
	}
	if format != am.FormatJSON {
		fmt.Fprintln(cmd.OutOrStdout(), "# novo configuration")
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runAmGet(cmd *cobra.Command, args []string) error {
	if _, err := LoadConfig(cmd); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	key := args[0]
	if !am.IsSet(key) {
		return errors.NewNotFoundError("configuration key %q not found", key)
	}
	value := am.Get(key)
	return display.Output(cmd, map[string]interface{}{key: value}, func() error {
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	})
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}

	pterm.Success.WithWriter(cmd.OutOrStdout()).Println("Configuration is valid")
	return nil
}

func runAmInit(cmd *cobra.Command, args []string) error {
	path := am.UserConfigPath()
	if len(args) == 1 {
		path = am.ExpandHome(args[0])
	}
	if path == "" {
		return errors.New("cannot determine the home directory, pass a path")
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return errors.WithHint(
			errors.Newf("%s already exists", path),
			"pass --force to overwrite it (the old file is kept as .back1)",
		)
	}
	if err := am.WriteDefault(path); err != nil {
		return err
	}

	pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Wrote default configuration to %s", path)
	return nil
}

func runAmLint(cmd *cobra.Command, args []string) error {
	path := ""
	switch {
	case len(args) == 1:
		path = args[0]
	default:
		path, _ = cmd.Flags().GetString("config")
	}
	if path == "" {
		files := am.MergedFiles()
		if len(files) == 0 {
			return errors.WithHint(errors.New("no config file to lint"), "pass a path or --config")
		}
		path = files[len(files)-1]
	}

	report, err := am.Lint(am.ExpandHome(path))
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		if err := display.WriteJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		for _, key := range report.Undecoded {
			pterm.Warning.WithWriter(out).Printfln("%s: unknown key %s", report.Path, key)
		}
		if report.ValidError != "" {
			pterm.Error.WithWriter(out).Printfln("%s: %s", report.Path, report.ValidError)
		}
		if report.OK() {
			pterm.Success.WithWriter(out).Printfln("%s is clean", report.Path)
		}
	}

	if !report.OK() {
		return errors.Newf("%s has problems", report.Path)
	}
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	if _, err := LoadConfig(cmd); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	files := am.MergedFiles()

	return display.Output(cmd, map[string][]string{"files": files}, func() error {
		out := cmd.OutOrStdout()
		if len(files) == 0 {
			fmt.Fprintln(out, "No config files found, using defaults and NOVO_* environment variables")
			return nil
		}
		fmt.Fprintln(out, "Config files (later overrides earlier):")
		for i, f := range files {
			fmt.Fprintf(out, "  %d. %s\n", i+1, f)
		}
		return nil
	})
}
