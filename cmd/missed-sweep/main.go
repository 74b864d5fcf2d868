package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinical-encounters/internal/app"
	"github.com/hackgods/clinical-encounters/internal/appointment"
	"github.com/hackgods/clinical-encounters/internal/config"
	"github.com/hackgods/clinical-encounters/internal/logging"
)

const runTimeout = 2 * time.Minute

func main() {
	rootCmd := &cobra.Command{
		Use:   "missed-sweep",
		Short: "Marks unattended video consultations as missed",
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a single sweep and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				_, err := runOnce(ctx, a.Sweeper, a.Log)
				return err
			})
		},
	}
}

func watchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sweep on a fixed interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				sweeper, logger := a.Sweeper, a.Log
				if interval <= 0 {
					interval = a.Config.SweepInterval
				}
				logger.Info().Dur("interval", interval).Msg("watching for missed consultations")

				// Failed runs are logged and retried on the next tick.
				_, _ = runOnce(ctx, sweeper, logger)

				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				for {
					select {
					case <-ctx.Done():
						logger.Info().Msg("shutdown signal received, stopping sweep")
						return nil
					case <-ticker.C:
						_, _ = runOnce(ctx, sweeper, logger)
					}
				}
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Time between sweeps (defaults to SWEEP_INTERVAL)")
	return cmd
}

func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "missed-sweep").Logger()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(rootCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing backends")
		}
	}()

	return fn(rootCtx, a)
}

func runOnce(ctx context.Context, sweeper *appointment.Sweeper, logger zerolog.Logger) (appointment.SweepResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	res, err := sweeper.Run(runCtx)
	if err != nil {
		logger.Error().Err(err).Msg("sweep run failed")
		return res, err
	}

	logger.Info().
		Int("patient_missed", res.PatientMissed).
		Int("doctor_missed", res.DoctorMissed).
		Bool("skipped", res.Skipped).
		Dur("took", time.Since(start)).
		Msg("sweep run complete")
	return res, nil
}
