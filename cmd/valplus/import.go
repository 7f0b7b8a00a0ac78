package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	fxmodules "valplus/internal/fx"
	"valplus/internal/service"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import encounter history from other tools",
}

var importVRYCmd = &cobra.Command{
	Use:   "vry <stats.json>",
	Short: "Import a VRY stats export",
	Long: `Import a VRY stats export into the local history database.

Existing summaries are never overwritten and already recorded matches and
names are skipped, so importing the same file twice is harmless.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			importer *service.Importer
			sqlDB    *sql.DB
			logger   zerolog.Logger
		)
		app := fx.New(
			fxmodules.Storage,
			fx.Provide(service.NewImporter),
			fx.Populate(&importer, &sqlDB, &logger),
			fx.NopLogger,
		)
		if err := app.Err(); err != nil {
			return fmt.Errorf("failed to initialise storage: %w", err)
		}
		defer sqlDB.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		stats, err := importer.ImportVRY(ctx, f)
		if err != nil {
			return err
		}

		logger.Info().
			Int("success", stats.Success).
			Int("failed", stats.Failed).
			Int("total", stats.Total).
			Msg("vry import finished")
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d entries (%d failed)\n", stats.Success, stats.Total, stats.Failed)
		return nil
	},
}
