package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Capstone-NovoCert/novo/display"
	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/logger"
	"github.com/Capstone-NovoCert/novo/pipeline"
	"github.com/Capstone-NovoCert/novo/pipeline/controller"
	"github.com/Capstone-NovoCert/novo/sym"
)

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: sym.ForCommand("run", "Run a pipeline stage and record the execution"),
	Long: `Run a pipeline stage in the foreground and record its execution.

Every run leaves a record, including runs rejected for bad parameters.
Ctrl+C stops the tool and records the execution as cancelled.

Examples:
  novo run decoy --input-dir ./mgf --output-dir ./decoy --precursor-tolerance 20 --random-seed 42 --memory 8
  novo run denovo --last                        # reuse the last decoy output as spectra dirs
  novo run denovo --last --casanovo-yaml cfg.yaml --casanovo-model casanovo.ckpt`,
}

// paramFlag binds a CLI flag to a params field by its JSON name
type paramFlag struct {
	flag  string
	key   string
	usage string
}

var stageFlags = map[pipeline.Type][]paramFlag{
	pipeline.TypeDecoy: {
		{"input-dir", "input_dir", "Directory of target spectra (MGF)"},
		{"output-dir", "output_dir", "Directory for generated decoy spectra"},
		{"precursor-tolerance", "precursor_tolerance", "Precursor mass tolerance in ppm"},
		{"random-seed", "random_seed", "Seed for the precursor swap"},
		{"memory", "memory", "JVM heap in GiB"},
	},
	pipeline.TypeDenovo: {
		{"target-spectra-dir", "target_spectra_dir", "Directory of target spectra"},
		{"decoy-spectra-dir", "decoy_spectra_dir", "Directory of decoy spectra"},
		{"casanovo-yaml", "casanovo_yaml_path", "Casanovo config file"},
		{"casanovo-model", "casanovo_model_path", "Casanovo model checkpoint"},
	},
}

func init() {
	for _, t := range pipeline.AllTypes {
		RunCmd.AddCommand(newRunStageCmd(t))
	}
}

func newRunStageCmd(t pipeline.Type) *cobra.Command {
	cmd := &cobra.Command{
		Use:  string(t),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd, t)
		},
	}

	switch t {
	case pipeline.TypeDecoy:
		cmd.Short = "Generate decoy spectra by precursor swap"
	case pipeline.TypeDenovo:
		cmd.Short = "Run de novo peptide sequencing with Casanovo"
	default:
		cmd.Short = fmt.Sprintf("Record a %s run (stage not implemented yet)", t)
		cmd.Flags().StringToString("param", nil, "Stage parameter as key=value (repeatable)")
	}

	for _, f := range stageFlags[t] {
		cmd.Flags().String(f.flag, "", f.usage)
	}
	cmd.Flags().Bool("last", false, "Start from the parameters of the previous run (flags override)")
	return cmd
}

func runStage(cmd *cobra.Command, t pipeline.Type) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	sess, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer sess.Close()

	params, err := stageParams(cmd, sess.ctrl, t)
	if err != nil {
		return err
	}

	jsonOut := display.ShouldOutputJSON(cmd)
	var spinner *pterm.SpinnerPrinter
	if !jsonOut {
		spinner, _ = pterm.DefaultSpinner.WithWriter(cmd.ErrOrStderr()).Start(fmt.Sprintf("Running %s...", t))
	}

	res, err := sess.ctrl.Submit(ctx, t, params)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	logger.Debugw("Run finished", logger.FieldExecutionID, res.ExecutionID, logger.FieldPipelineType, t, "success", res.Success)

	if jsonOut {
		if err := display.WriteJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	} else {
		printSubmitResult(cmd, t, res)
	}

	if !res.Success {
		return withCodeHint(errors.Newf("%s execution %s %s", t, display.ShortID(res.ExecutionID), res.Code), res.Code)
	}
	return nil
}

// stageParams builds params from --last and the stage flags
func stageParams(cmd *cobra.Command, ctrl *controller.Controller, t pipeline.Type) (pipeline.Params, error) {
	values := map[string]string{}

	if last, _ := cmd.Flags().GetBool("last"); last {
		prev, err := ctrl.SuggestParams(cmd.Context(), t)
		if err != nil {
			return nil, err
		}
		if prev == nil {
			pterm.Warning.WithWriter(cmd.ErrOrStderr()).Printfln("No previous %s run to start from", t)
		} else {
			m, err := pipeline.ParamsToMap(prev)
			if err != nil {
				return nil, err
			}
			values = m
		}
	}

	for _, f := range stageFlags[t] {
		if cmd.Flags().Changed(f.flag) {
			values[f.key], _ = cmd.Flags().GetString(f.flag)
		}
	}
	if cmd.Flags().Lookup("param") != nil {
		extra, _ := cmd.Flags().GetStringToString("param")
		for k, v := range extra {
			values[k] = v
		}
	}

	return pipeline.ParamsFromMap(t, values)
}

func printSubmitResult(cmd *cobra.Command, t pipeline.Type, res controller.SubmitResult) {
	out := cmd.OutOrStdout()
	if res.Success {
		pterm.Success.WithWriter(out).Printfln("%s", res.Message)
		pterm.Fprintln(out, "Execution:", res.ExecutionID)
		return
	}

	pterm.Error.WithWriter(out).Printfln("%s", res.Message)
	pterm.Fprintln(out, "Execution:", res.ExecutionID)
	if res.Error != "" && res.Error != res.Message {
		pterm.Fprintln(out, pterm.Gray(res.Error))
	}
	if res.VersionError {
		pterm.Warning.WithWriter(out).Printfln("The %s tool needs a newer Java runtime", t)
	}
	if res.ModuleError {
		pterm.Warning.WithWriter(out).Printfln("The Python interpreter could not import the sequencing module")
	}
}

// withCodeHint attaches the usual remedy for an error code
func withCodeHint(err error, code pipeline.ErrorCode) error {
	switch code {
	case pipeline.ErrorCodeExecutableNotFound:
		return errors.WithHint(err, "install the interpreter or list its path under runtime.java.candidates / runtime.python.candidates")
	case pipeline.ErrorCodeVersionMismatch:
		return errors.WithHint(err, "install Java 8 or later, or set runtime.java.min_version to skip older runtimes")
	case pipeline.ErrorCodeModuleNotFound:
		return errors.WithHint(err, "pip install casanovo")
	case pipeline.ErrorCodeValidation:
		return errors.WithHint(err, "see 'novo status <id>' for the rejected fields")
	case pipeline.ErrorCodeInterrupted:
		return errors.WithHint(err, "run 'novo recover' after a crash to close out stale executions")
	}
	return err
}
