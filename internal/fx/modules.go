package fx

import (
	"database/sql"
	"valplus/internal/api"
	"valplus/internal/auth"
	"valplus/internal/config"
	"valplus/internal/database"
	"valplus/internal/db"
	"valplus/internal/logger"
	"valplus/internal/poll"
	"valplus/internal/repository"
	"valplus/internal/server"
	"valplus/internal/service"

	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

// Storage is everything needed to read and write player history.
var Storage = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewNameHistoryRepository),
	fx.Provide(repository.NewMatchHistoryRepository),
	fx.Provide(fx.Annotate(
		repository.NewHistoryStore,
		fx.As(new(service.HistoryStore)),
		fx.As(new(service.ImportStore)),
		fx.As(new(server.History)),
	)),
)

var Module = fx.Options(
	Storage,
	fx.Provide(fx.Annotate(
		config.NewSettingsStore,
		fx.As(new(poll.SettingsSource)),
		fx.As(new(server.Settings)),
	)),
	// riot client
	fx.Provide(fx.Annotate(
		api.NewRiotClient,
		fx.As(new(service.MatchClient)),
		fx.As(new(service.NameClient)),
	)),
	fx.Provide(fx.Annotate(auth.NewEnvAuthenticator, fx.As(new(auth.Authenticator)))),
	// svc
	fx.Provide(service.NewMatchPoller),
	fx.Provide(service.NewIdentityResolver),
	fx.Provide(fx.Annotate(service.NewMatchReconciler, fx.As(new(poll.Reconciler)))),
	fx.Provide(fx.Annotate(poll.NewCycle, fx.As(fx.Self()), fx.As(new(server.Cycle)))),
	// server
	fx.Provide(server.NewHub),
	fx.Provide(server.NewServer),
)
