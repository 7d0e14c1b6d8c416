package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/snap-companion/internal/daemon"
	"github.com/ramonehamilton/snap-companion/internal/storage"
)

func newWatchCmd(a *app) *cobra.Command {
	var stateDir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Track matches until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if stateDir != "" {
				a.settings.Game.StateDir = stateDir
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.runDaemon(ctx)
		},
	}
	cmd.Flags().StringVar(&stateDir, "state-dir", "", "Game States directory (auto-detect if empty)")
	return cmd
}

// runDaemon runs the tracker daemon in the foreground until ctx is done.
func (a *app) runDaemon(ctx context.Context) error {
	cfg, err := daemon.FromSettings(a.settings)
	if err != nil {
		return err
	}
	cfg.Logger = a.logger

	return a.withStore(func(store *storage.Service) error {
		svc, err := daemon.New(cfg, store)
		if err != nil {
			return err
		}
		err = svc.Run(ctx)
		health := svc.GetHealth()
		a.logger.Info("session summary",
			zap.Int64("ticks", health.Metrics.Ticks),
			zap.Int64("commits", health.Metrics.Commits),
			zap.Int64("errors", health.Metrics.Errors))
		return err
	})
}
