package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"weatherapp/internal/env"
)

// commandTimeout bounds one-shot commands, including the wait for remote
// writes to drain.
const commandTimeout = 30 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "favorites",
		Short:         "Manage favorite places and show their weather",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newListCmd(),
		newAddCmd(),
		newRemoveCmd(),
		newSyncCmd(),
		newForecastCmd(),
		newDashboardCmd(),
		newWatchCmd(),
	)
	return root
}

// withApp loads the configuration, wires an app, starts the synchronizer and
// hands it to run. The app is closed afterwards, draining remote writes.
func withApp(cmd *cobra.Command, run func(ctx context.Context, a *app) error) error {
	cfg, err := env.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	a.sync.Start(ctx)
	return run(ctx, a)
}
