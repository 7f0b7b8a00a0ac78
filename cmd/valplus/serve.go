package main

import (
	"context"
	"database/sql"
	fxmodules "valplus/internal/fx"
	"valplus/internal/poll"
	"valplus/internal/server"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll the game client and serve snapshots on localhost",
	Run: func(cmd *cobra.Command, args []string) {
		fx.New(
			fxmodules.Module,
			fx.Invoke(runServer),
		).Run()
	},
}

func runServer(
	lc fx.Lifecycle,
	cycle *poll.Cycle,
	hub *server.Hub,
	srv *server.Server,
	db *sql.DB,
	logger zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go hub.Run()
			go hub.Forward(cycle.Snapshots())
			if err := srv.Start(); err != nil {
				return err
			}
			cycle.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cycle.Stop()
			hub.Stop()

			err := srv.Stop(ctx)
			if cerr := db.Close(); cerr != nil {
				logger.Warn().Err(cerr).Msg("error closing database connection")
			}
			return err
		},
	})
}
