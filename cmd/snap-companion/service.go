package main

import (
	"context"
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// daemonProgram implements service.Interface
type daemonProgram struct {
	app    *app
	cancel context.CancelFunc
	done   chan error
}

// Start implements service.Interface
func (p *daemonProgram) Start(s service.Service) error {
	p.app.logger.Info("starting snap-companion service")
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		p.done <- p.app.runDaemon(ctx)
	}()
	return nil
}

// Stop implements service.Interface
func (p *daemonProgram) Stop(s service.Service) error {
	p.app.logger.Info("stopping snap-companion service")
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	if err := <-p.done; err != nil {
		p.app.logger.Error("daemon exited with error", zap.Error(err))
		return err
	}
	return nil
}

// serviceConfig returns the service configuration. The installed service
// re-invokes this binary with "service run" and the same config file.
func (a *app) serviceConfig() *service.Config {
	args := []string{"service", "run"}
	if a.cfgFile != "" {
		args = append(args, "--config", a.cfgFile)
	}
	if a.dbPath != "" {
		args = append(args, "--db", a.dbPath)
	}
	return &service.Config{
		Name:        "SnapCompanion",
		DisplayName: "SNAP Companion",
		Description: "Background service that records Marvel Snap matches from the game's state files",
		Arguments:   args,
	}
}

func newServiceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the tracker as a system service",
	}

	control := func(action string, do func(service.Service) error, done string) *cobra.Command {
		return &cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the system service", action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := service.New(&daemonProgram{app: a}, a.serviceConfig())
				if err != nil {
					return fmt.Errorf("failed to create service: %w", err)
				}
				if err := do(s); err != nil {
					return fmt.Errorf("failed to %s service: %w", action, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), done)
				return nil
			},
		}
	}

	cmd.AddCommand(
		control("install", service.Service.Install, "Service installed"),
		control("uninstall", service.Service.Uninstall, "Service uninstalled"),
		control("start", service.Service.Start, "Service started"),
		control("stop", service.Service.Stop, "Service stopped"),
		control("restart", service.Service.Restart, "Service restarted"),
		&cobra.Command{
			Use:   "status",
			Short: "Show system service status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := a.serviceConfig()
				s, err := service.New(&daemonProgram{app: a}, cfg)
				if err != nil {
					return fmt.Errorf("failed to create service: %w", err)
				}
				status, err := s.Status()
				if err != nil {
					return fmt.Errorf("failed to get service status: %w", err)
				}

				out := cmd.OutOrStdout()
				switch status {
				case service.StatusRunning:
					fmt.Fprintln(out, "Status: Running")
				case service.StatusStopped:
					fmt.Fprintln(out, "Status: Stopped")
				default:
					fmt.Fprintln(out, "Status: Unknown")
				}
				fmt.Fprintf(out, "Name: %s\n", cfg.Name)
				fmt.Fprintf(out, "Platform: %s\n", service.Platform())
				return nil
			},
		},
		&cobra.Command{
			Use:    "run",
			Short:  "Run under the service manager",
			Hidden: true,
			Args:   cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := service.New(&daemonProgram{app: a}, a.serviceConfig())
				if err != nil {
					return fmt.Errorf("failed to create service: %w", err)
				}
				return s.Run()
			},
		},
	)
	return cmd
}
