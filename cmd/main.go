package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Deepnarayan70/ai-stock-trading-simulator/config"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/data"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/data/cache"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/data/repository/postgres"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/data/session"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/externalApi/yahooApi"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/forecast"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/reportGenerator/xlsxGenerator"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/scheduler"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/service/tradingService"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/transport/httpserver"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	yahooApiClient := yahooApi.New(cfg)

	forecaster := forecast.NewLinear()

	reportGenerator := xlsxGenerator.New()

	tradingSrv := tradingService.New(cfg, pgRepo, redisCache, yahooApiClient, forecaster, reportGenerator)

	sched := scheduler.New()
	sched.NewIntervalJob("refresh quotes cache", tradingSrv.RefreshQuotesCache, cfg.Jobs.RefreshQuotesInterval, true)
	sched.Start()
	defer sched.Stop()

	ctrl := httpserver.NewController(tradingSrv, redisSession)

	srv := httpserver.NewServer(cfg, ctrl)
	srv.Start()
	defer srv.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
