package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/statusservice/internal/app"
	"github.com/turtacn/statusservice/internal/config"
	"github.com/turtacn/statusservice/internal/infrastructure/monitoring"
	"github.com/turtacn/statusservice/pkg/constants"
	"github.com/turtacn/statusservice/pkg/logger"
)

func main() {
	configFile := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// Logger for startup
	startupLogger, err := monitoring.NewZapLogger(&config.LogConfig{Level: "info"})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	loader := config.NewLoader(*configFile, startupLogger)
	cfg, err := loader.Load()
	if err != nil {
		startupLogger.Fatal(context.Background(), "Failed to load config", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	loader.WatchLogLevel(func(level constants.LogLevel) {
		appLogger.SetLevel(level)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize StatusService", err)
	}

	appLogger.Info(ctx, "StatusService starting",
		logger.String("address", cfg.Server.Addr()),
		logger.String("storage", cfg.Storage.Backend),
		logger.String("log_store", cfg.LogStore.Driver),
	)
	if err := application.Run(ctx); err != nil {
		appLogger.Error(context.Background(), "StatusService stopped with error", err)
		os.Exit(1)
	}
	appLogger.Info(context.Background(), "StatusService stopped")
}
