package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"vodflow/stream-api/internal/config"
	stream "vodflow/stream-api/internal/domain/stream"
	"vodflow/stream-api/internal/infrastructure/database"
	"vodflow/stream-api/internal/infrastructure/logger"
	"vodflow/stream-api/internal/infrastructure/observability"
	repo "vodflow/stream-api/internal/infrastructure/repository/asset"
	"vodflow/stream-api/internal/infrastructure/storage"
	"vodflow/stream-api/internal/infrastructure/transcoder"
	"vodflow/stream-api/internal/interfaces/httpserver"
)

// Application bundles the long-running pieces of the stream service.
type Application struct {
	httpServer *httpserver.HttpServer
	scheduler  *stream.Scheduler
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, scheduler *stream.Scheduler, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		scheduler:  scheduler,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	go a.scheduler.Run(ctx)
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Config{
		DSN:             cfg.GetDatabaseWriteDSN(),
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	store, err := provideStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	assetRepository := repo.NewRepository(db)
	encoder := transcoder.NewFFmpeg(cfg, log)
	streamService := stream.NewService(cfg, assetRepository, store, encoder, log)
	scheduler := stream.NewScheduler(cfg, streamService, log)

	httpServer := httpserver.New(cfg, log, streamService, store)
	app := NewApplication(httpServer, scheduler, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// provideStorage creates the appropriate storage backend based on configuration.
func provideStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (stream.ObjectStore, error) {
	if cfg.IsLocalStorage() {
		return storage.NewLocalStorage(cfg, log)
	}
	return storage.NewS3Storage(ctx, cfg, log)
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
