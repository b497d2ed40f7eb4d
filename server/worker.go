package server

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"render-orchestrator/config"
	"render-orchestrator/pkg/rabbitmq"
	"render-orchestrator/provider"
	"render-orchestrator/queue"
	"render-orchestrator/repository"
	"render-orchestrator/storage"
	"render-orchestrator/worker"
)

// RunWorker starts the queue consumer: render/export processors plus the
// lifecycle event publisher.
func RunWorker(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := config.NewRabbitMQConn(ctx, cfg.Events)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("NewRabbitMQConn")
	}

	repo := repository.NewRepo(cfg.DB)
	q := queue.NewAsynqQueue(cfg.Redis, cfg.Queue)
	defer q.Close()

	videoProvider := provider.NewVideoProvider(cfg.Provider.VideoBaseURL, cfg.Provider.APIKey)
	printProvider := provider.NewPrintProvider(cfg.Provider.PrintBaseURL, cfg.Provider.APIKey)
	store := storage.NewMinIOStore(cfg.Storage, cfg.MinIOBucket)
	publisher := rabbitmq.NewPublisher(conn, cfg.Events)

	processor := worker.NewProcessor(repo, videoProvider, printProvider, store, q)
	eventProcessor := worker.NewEventProcessor(publisher)

	srv := worker.NewServer(cfg)
	mux := worker.NewMux(processor, eventProcessor)

	go func() {
		zerolog.Ctx(ctx).Info().Int("workers", cfg.Server.Workers).Msg("start queue worker")
		if err := srv.Run(mux); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("queue worker stopped")
			cancel()
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down worker")
	srv.Shutdown()
	zerolog.Ctx(ctx).Info().Msg("worker shutdown")
}
