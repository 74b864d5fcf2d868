package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinical-encounters/internal/api"
	"github.com/hackgods/clinical-encounters/internal/app"
	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/config"
	"github.com/hackgods/clinical-encounters/internal/db"
	"github.com/hackgods/clinical-encounters/internal/logging"
	"github.com/hackgods/clinical-encounters/internal/seed"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "api-server",
		Short: "Clinical encounter coordination API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var (
		migrate  bool
		seedDemo bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config load: %w", err)
			}
			logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "api-server").Logger()
			return runServer(cfg, logger, migrate, seedDemo)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply pending migrations before serving")
	cmd.Flags().BoolVar(&seedDemo, "seed", false, "Load demo patients, staff and beds on startup")
	return cmd
}

func runServer(cfg config.Config, logger zerolog.Logger, migrate, seedDemo bool) error {
	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("store", cfg.StoreDriver).
		Msg("api-server starting up")

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

	if migrate && a.Pool != nil {
		n, err := db.NewMigrator(a.Pool).Up(rootCtx)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Int("applied", n).Msg("migrations applied")
	}

	if seedDemo {
		res, err := seed.Run(rootCtx, a.Directory, a.AdmissionRepo, seed.DefaultOptions(), logger)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info().Int("patients", res.Patients).Int("beds", res.Beds).Msg("demo data loaded")
	}

	if cfg.IsDev() {
		logger.Warn().Msg("dev auth enabled, identities are taken from X-User-ID and X-User-Role")
	}

	router := api.NewRouter(api.RouterConfig{
		Appointments:  a.Appointments,
		Sweeper:       a.Sweeper,
		Admissions:    a.Admissions,
		Clinical:      a.Clinical,
		Notifications: a.Notifications,
		PgPool:        a.Pool,
		Redis:         a.Redis,
		Log:           logger,
		Auth:          auth.JWTConfig{SigningKey: []byte(cfg.AuthSigningKey), Issuer: cfg.AuthIssuer},
		DevAuth:       cfg.IsDev(),
		Env:           cfg.Env,
		Version:       version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-rootCtx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logger.Info().Msg("api-server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.PostgresDSN == "" {
				return fmt.Errorf("POSTGRES_DSN is required to run migrations")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolConfig{MaxConns: 2, MinConns: 1})
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})
	return cmd
}
