package commands

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Capstone-NovoCert/novo/am"
	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/logger"
	"github.com/Capstone-NovoCert/novo/pipeline"
	"github.com/Capstone-NovoCert/novo/pipeline/controller"
	"github.com/Capstone-NovoCert/novo/pipeline/runner"
	"github.com/Capstone-NovoCert/novo/pipeline/store"
)

// AddGlobalFlags registers the flags every novo command understands
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().String("config", "", "Config file to apply over the regular sources")
	root.PersistentFlags().Bool("json", false, "Output JSON instead of tables")
	root.PersistentFlags().CountP("verbose", "v", "Increase log verbosity (-v info, -vv debug)")
}

// Setup initializes the global logger from config and -v flags. A config
// that fails to load is reported by the command itself, so here it only
// falls back to the flag level.
func Setup(cmd *cobra.Command) error {
	verbosity, _ := cmd.Flags().GetCount("verbose")

	cfg, err := LoadConfig(cmd)
	if err != nil {
		return logger.Initialize(false, logger.VerbosityToLevel(verbosity).String())
	}
	var sink logger.FileSink
	if cfg.Log.File != "" {
		sink = logger.FileSink{
			Path:       am.ExpandHome(cfg.Log.File),
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		}
	}
	return logger.Initialize(cfg.Log.JSON, logger.EffectiveLevel(cfg.Log.Level, verbosity), sink)
}

// LoadConfig loads the configuration, applying --config when given
func LoadConfig(cmd *cobra.Command) (*am.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return am.Load()
	}
	return am.LoadFromFile(am.ExpandHome(path))
}

// session bundles what the pipeline commands share: config, store and a
// controller wired to them
type session struct {
	cfg   *am.Config
	store *store.PartitionStore
	ctrl  *controller.Controller
}

// openSession builds a store and controller from config. withTools also
// builds the tool registry, which only run needs.
func openSession(cmd *cobra.Command, withTools bool) (*session, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithHint(err, "run 'novo am lint' to check the config file")
	}

	st, err := store.New(cfg.Store, logger.ComponentLogger("store"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open execution store")
	}

	var tools *runner.Registry
	if withTools {
		if tools, err = runner.NewDefaultRegistry(cfg, logger.ComponentLogger("runner")); err != nil {
			st.Close()
			return nil, errors.Wrap(err, "failed to set up pipeline tools")
		}
	}

	ctrl := controller.New(st, tools, controller.Options{
		Timeout: cfg.Timeout(),
		Logger:  logger.ComponentLogger("controller"),
	})
	return &session{cfg: cfg, store: st, ctrl: ctrl}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// signalContext is cancelled by Ctrl+C or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// resolveID accepts a full execution id or any unambiguous prefix of one,
// as printed by novo ls
func resolveID(ctx context.Context, ctrl *controller.Controller, arg string) (*pipeline.Execution, error) {
	rec, err := ctrl.GetStatus(ctx, arg)
	if err != nil || rec != nil {
		return rec, err
	}

	all, err := ctrl.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var matches []*pipeline.Execution
	for _, r := range all {
		if strings.HasPrefix(r.ID, arg) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return nil, errors.NewNotFoundError("no execution matches %q", arg)
	case 1:
		return matches[0], nil
	default:
		return nil, errors.WithHint(
			errors.NewInvalidRequestError("%q matches %d executions", arg, len(matches)),
			"use a longer prefix or the full id",
		)
	}
}
