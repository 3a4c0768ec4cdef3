//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"vodflow/stream-api/internal/config"
	stream "vodflow/stream-api/internal/domain/stream"
	"vodflow/stream-api/internal/infrastructure/database"
	"vodflow/stream-api/internal/infrastructure/logger"
	repo "vodflow/stream-api/internal/infrastructure/repository/asset"
	"vodflow/stream-api/internal/infrastructure/transcoder"
	"vodflow/stream-api/internal/interfaces/httpserver"
)

var streamSet = wire.NewSet(
	repo.NewRepository,
	wire.Bind(new(stream.Repository), new(*repo.Repository)),
	provideStorage,
	transcoder.NewFFmpeg,
	wire.Bind(new(transcoder.Transcoder), new(*transcoder.FFmpeg)),
	stream.NewService,
	stream.NewScheduler,
)

// BuildApplication assembles the stream API with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newDatabaseConfig,
		newGormDB,
		streamSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.GetDatabaseWriteDSN(),
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}
