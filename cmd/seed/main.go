package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hackgods/clinical-encounters/internal/app"
	"github.com/hackgods/clinical-encounters/internal/config"
	"github.com/hackgods/clinical-encounters/internal/logging"
	"github.com/hackgods/clinical-encounters/internal/seed"
)

func main() {
	opts := seed.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load fake patients, staff, units and beds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config load: %w", err)
			}
			if cfg.StoreDriver == config.DriverMemory {
				return fmt.Errorf("seeding the in-memory store is pointless, use api-server serve --seed instead")
			}
			logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "seed").Logger()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := seed.Run(ctx, a.Directory, a.AdmissionRepo, opts, logger)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d patients, %d staff, %d units, %d beds.\n", res.Patients, res.Staff, res.Units, res.Beds)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Patients, "patients", opts.Patients, "Number of patients")
	cmd.Flags().IntVar(&opts.Doctors, "doctors", opts.Doctors, "Number of doctors")
	cmd.Flags().IntVar(&opts.Nurses, "nurses", opts.Nurses, "Number of nurses")
	cmd.Flags().IntVar(&opts.Units, "units", opts.Units, "Number of ward units")
	cmd.Flags().IntVar(&opts.BedsPerUnit, "beds-per-unit", opts.BedsPerUnit, "Beds created in each unit")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "Faker seed, 0 for random")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
