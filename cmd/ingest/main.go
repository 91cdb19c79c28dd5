package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/surge-forecast-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/surge-forecast-etl/internal/adapter/kafka"
	"github.com/couchcryptid/surge-forecast-etl/internal/config"
	"github.com/couchcryptid/surge-forecast-etl/internal/domain"
	"github.com/couchcryptid/surge-forecast-etl/internal/observability"
	"github.com/couchcryptid/surge-forecast-etl/internal/pipeline"
	"github.com/couchcryptid/surge-forecast-etl/internal/scheduler"
	"github.com/couchcryptid/surge-forecast-etl/internal/stager"
	"github.com/couchcryptid/surge-forecast-etl/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Local development convenience; absent .env files are not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return 1
	}
	defer db.Close()
	if err := db.Init(ctx); err != nil {
		logger.Error("failed to initialize schema", "error", err)
		return 1
	}

	var notifier pipeline.Notifier
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		kafkaWriter = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		notifier = kafkaWriter
		logger.Info("artifact event publishing enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("artifact event publishing disabled")
	}

	station := &pipeline.StationPipeline{
		Clock: clock,
		Stager: &stager.MountStager{
			SourceRoot: cfg.SurgeSourceRoot,
			DestRoot:   cfg.SurgeLocalRoot,
			Name:       domain.StationSurgeFileName,
			Files:      db.Tasks,
			Logger:     logger,
		},
		Tasks:    db.Tasks,
		Steps:    db.Tasks,
		Stations: db.Stations,
		Metrics:  metrics,
		Logger:   logger,
	}
	maxSurge := &pipeline.MaxSurgePipeline{
		Clock: clock,
		Stager: &stager.MountStager{
			SourceRoot: cfg.SurgeSourceRoot,
			DestRoot:   cfg.SurgeLocalRoot,
			Name:       func(c domain.Cycle) string { return domain.MaxSurgeFileName(c, "txt") },
			Files:      db.Tasks,
			Logger:     logger,
		},
		Tasks:     db.Tasks,
		Steps:     db.Tasks,
		Coverages: db.Coverages,
		Notifier:  notifier,
		Metrics:   metrics,
		Logger:    logger,
	}
	wind := &pipeline.WindPipeline{
		Clock: clock,
		Stager: &stager.FTPStager{
			Addr:       cfg.FTPAddr,
			User:       cfg.FTPUser,
			Password:   cfg.FTPPassword,
			RemotePath: cfg.FTPRemotePath,
			DestRoot:   cfg.WindLocalRoot,
			Name:       domain.WindFileName,
			Dial:       stager.DialFTP,
			Files:      db.Tasks,
			Logger:     logger,
		},
		Tasks:     db.Tasks,
		Steps:     db.Tasks,
		Coverages: db.Coverages,
		Notifier:  notifier,
		FieldName: cfg.WindFieldName,
		Metrics:   metrics,
		Logger:    logger,
	}

	exitCode := 0
	switch cfg.RunMode {
	case config.ModeStation:
		exitCode = runOnce(ctx, logger, station)
	case config.ModeMaxSurge:
		exitCode = runOnce(ctx, logger, maxSurge)
	case config.ModeWind:
		exitCode = runOnce(ctx, logger, wind)
	case config.ModeServe:
		serve(ctx, cfg, logger, clock, db, station, maxSurge, wind)
	}

	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	return exitCode
}

// runOnce executes a single pipeline run, for cron-style deployments and
// manual backfills.
func runOnce(ctx context.Context, logger *slog.Logger, r scheduler.Runner) int {
	if err := r.Run(ctx); err != nil {
		logger.Error("one-shot run failed", "error", err)
		return 1
	}
	return 0
}

// serve runs the timer-driven service with the operational HTTP surface.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, clock clockwork.Clock,
	db *store.Store, station, maxSurge, wind scheduler.Runner) {

	sched := scheduler.New(clock, logger)
	sched.Add("station", cfg.StationInterval, station)
	sched.Add("max_surge", cfg.StationInterval, maxSurge)
	sched.Add("wind", cfg.WindInterval, wind)

	srv := httpadapter.NewServer(cfg.HTTPAddr, db, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	sched.Run(ctx)
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
