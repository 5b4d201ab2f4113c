package fx

import (
	"database/sql"

	"go.uber.org/fx"

	"ranked-engine/internal/clock"
	"ranked-engine/internal/config"
	"ranked-engine/internal/database"
	"ranked-engine/internal/lifecycle"
	"ranked-engine/internal/logger"
	"ranked-engine/internal/matchmaker"
	"ranked-engine/internal/notifier"
	"ranked-engine/internal/queue"
	"ranked-engine/internal/rating"
	"ranked-engine/internal/repository"
	"ranked-engine/internal/season"
	"ranked-engine/internal/server"
	"ranked-engine/internal/session"
	"ranked-engine/internal/store"

	"github.com/rs/zerolog"
)

func ProvideStore(db *sql.DB, log zerolog.Logger) store.Store {
	return store.NewSQLite(db, log)
}

func ProvideClock() clock.Clock {
	return clock.NewSystem()
}

func ProvideNotifier(hub *notifier.Hub) notifier.Notifier {
	return hub
}

func ProvideSeasonService(ratings *repository.RatingRepository, n notifier.Notifier, clk clock.Clock, log zerolog.Logger) *season.Service {
	return season.NewService(ratings, n, clk, log)
}

func ProvideSessions(client *session.Client) lifecycle.SessionCreator {
	return client
}

func ProvideMatchmaker(queueRepo *repository.QueueRepository, matches *repository.MatchRepository, controller *lifecycle.Controller, clk clock.Clock, log zerolog.Logger) *matchmaker.Matchmaker {
	return matchmaker.New(queueRepo, matches, controller, clk, log)
}

func ProvideSweeper(ratings *repository.RatingRepository, clk clock.Clock, log zerolog.Logger) *rating.Sweeper {
	return rating.NewSweeper(ratings, clk, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(ProvideStore),
	fx.Provide(ProvideClock),
	// repos
	fx.Provide(repository.NewQueueRepository),
	fx.Provide(repository.NewRatingRepository),
	fx.Provide(repository.NewMatchRepository),
	// notifications
	fx.Provide(notifier.NewHub),
	fx.Provide(ProvideNotifier),
	// session service client
	fx.Provide(session.NewClient),
	fx.Provide(ProvideSessions),
	// svc
	fx.Provide(ProvideSeasonService),
	fx.Provide(queue.NewManager),
	fx.Provide(lifecycle.NewController),
	fx.Provide(ProvideMatchmaker),
	fx.Provide(ProvideSweeper),
	// server
	fx.Provide(server.New),
)
