package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vodhub/backend/internal/collect"
	"github.com/vodhub/backend/internal/config"
	"github.com/vodhub/backend/internal/handler"
	"github.com/vodhub/backend/internal/merge"
	"github.com/vodhub/backend/internal/queue"
	"github.com/vodhub/backend/internal/repo"
	"github.com/vodhub/backend/internal/scheduler"
	"github.com/vodhub/backend/internal/search"
	"github.com/vodhub/backend/internal/source"
	"github.com/vodhub/backend/internal/validate"
	"github.com/vodhub/backend/internal/worker"
	"github.com/vodhub/backend/pkg/logger"
	"github.com/vodhub/backend/pkg/nats"

	_ "github.com/vodhub/backend/docs"
)

func main() {
	godotenv.Load()
	cfg := config.Load()
	logger.Init(logger.IsDev())
	log := logger.Log

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoClient, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURL))
	connectCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	db := mongoClient.Database(cfg.MongoDB)

	natsClient, err := nats.New(cfg.NatsURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer natsClient.Close()

	searchClient, err := search.New(cfg.MeiliURL, cfg.MeiliKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Meilisearch")
	}
	log.Info().Str("url", cfg.MeiliURL).Msg("meilisearch connected")

	videoRepo := repo.NewVideoRepo(db)
	taskRepo := repo.NewTaskRepo(db)
	sourceRepo := repo.NewSourceRepo(db)
	leaseRepo := repo.NewLeaseRepo(db)

	publisher := queue.NewPublisher(natsClient)

	clients := source.NewFactory(source.RetryPolicy{
		MaxAttempts: cfg.MaxRetries + 1,
		Backoff:     cfg.RequestDelay,
	}, cfg.ListTimeout, cfg.DetailTimeout)

	engine := merge.NewEngine(videoRepo, searchClient)
	validator := validate.New(videoRepo, searchClient, cfg.ProbeTimeout, cfg.MaxRetries+1, cfg.BatchDelay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orchestrator := collect.NewOrchestrator(ctx, sourceRepo, taskRepo, leaseRepo, clients, engine, publisher, collect.Options{
		IncrementalPages:  cfg.IncrementalPages,
		FullPagesCeiling:  cfg.FullPagesCeiling,
		SourceConcurrency: cfg.SourceConcurrency,
		RequestDelay:      cfg.RequestDelay,
	})

	collectHandler := handler.NewCollectHandler(orchestrator)
	taskHandler := handler.NewTaskHandler(taskRepo)
	videoHandler := handler.NewVideoHandler(videoRepo, searchClient)
	sourceHandler := handler.NewSourceHandler(sourceRepo)
	reportHandler := handler.NewReportHandler(publisher, validator, int64(cfg.ValidateBatchSize))

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Error().Err(err).Str("path", c.Path()).Msg("request error")
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Post("/collect", collectHandler.Trigger)
	api.Get("/tasks", taskHandler.List)
	api.Get("/tasks/:id", taskHandler.Get)
	api.Post("/tasks/:id/cancel", taskHandler.Cancel)
	api.Get("/videos", videoHandler.List)
	api.Get("/videos/search", videoHandler.Search)
	api.Get("/videos/:id", videoHandler.Get)
	api.Get("/sources", sourceHandler.List)
	api.Post("/sources", sourceHandler.Create)
	api.Put("/sources/:id", sourceHandler.Update)
	api.Delete("/sources/:id", sourceHandler.Delete)
	api.Post("/report", reportHandler.Report)
	api.Post("/validate", reportHandler.Validate)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/swagger/*", swagger.HandlerDefault)

	sched, err := scheduler.New(orchestrator, validator, engine, clients, sourceRepo, taskRepo, leaseRepo, videoRepo, int64(cfg.ValidateBatchSize))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	reportProcessor := worker.NewReportProcessor(natsClient, validator)
	go func() {
		if err := reportProcessor.Run(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("report processor error")
		}
	}()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutting down")
		cancel()
		app.Shutdown()
	}()

	log.Info().Str("port", cfg.Port).Str("nats", cfg.NatsURL).Msg("vodhub started")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
