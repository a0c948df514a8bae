package commands

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/Capstone-NovoCert/novo/am"
	"github.com/Capstone-NovoCert/novo/display"
	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/logger"
	"github.com/Capstone-NovoCert/novo/pipeline"
	"github.com/Capstone-NovoCert/novo/pipeline/store"
	"github.com/Capstone-NovoCert/novo/sym"
)

// WatchCmd follows the store as other novo processes write to it
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: sym.ForCommand("watch", "Show executions live as other novo processes update them"),
	Long: `Redraw the execution list whenever a partition file changes.

Only the json store backend can be watched. Redraws are limited to one per
--interval however fast runs write.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var (
	watchInterval time.Duration
	watchType     string
	watchLimit    int
)

func init() {
	WatchCmd.Flags().DurationVar(&watchInterval, "interval", time.Second, "Minimum time between redraws")
	WatchCmd.Flags().StringVarP(&watchType, "type", "t", "", "Only show this pipeline type")
	WatchCmd.Flags().IntVarP(&watchLimit, "limit", "n", 20, "Show at most this many executions (0 = all)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	if cfg.Store.Backend != am.BackendJSON && cfg.Store.Backend != "" {
		return errors.WithHint(
			errors.NewInvalidRequestError("cannot watch the %s store backend", cfg.Store.Backend),
			"watch follows partition files, set store.backend = \"json\"",
		)
	}
	if watchInterval <= 0 {
		return errors.NewInvalidRequestError("--interval must be positive")
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	// Opening the store creates the data directory the watcher needs
	if err := redraw(cmd); err != nil {
		return err
	}

	w, err := store.NewWatcher(cfg.Store.ResolvedDir(), logger.ComponentLogger("watch"))
	if err != nil {
		return err
	}
	w.Start()
	defer w.Stop()

	limiter := rate.NewLimiter(rate.Every(watchInterval), 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case t, ok := <-w.Events():
			if !ok {
				return nil
			}
			logger.Debugw("Partition changed", logger.FieldPartition, t)
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			drain(w.Events())
			if err := redraw(cmd); err != nil {
				return err
			}
		}
	}
}

// drain discards events already queued; the next redraw covers them
func drain(events <-chan pipeline.Type) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// redraw reads through a fresh store each time: a long-lived store would
// keep serving the partitions it loaded first.
func redraw(cmd *cobra.Command) error {
	recs, err := listExecutions(cmd, watchType, "", watchLimit)
	if err != nil {
		return err
	}
	if display.ShouldOutputJSON(cmd) {
		return display.WriteJSON(cmd.OutOrStdout(), recs)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, "\033[H\033[2J")
	pterm.Fprintln(out, pterm.Bold.Sprintf("novo executions"), pterm.Gray(time.Now().Format(display.TimeLayout)))
	return display.RenderExecutions(out, recs)
}
