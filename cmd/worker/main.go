package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"ticket-storefront/internal/config"
	"ticket-storefront/internal/logging"
	"ticket-storefront/internal/server"
)

func main() {
	queueURL := pflag.String("queue-url", "", "SQS queue URL (overrides SQS_QUEUE_URL)")
	driver := pflag.String("driver", "", "queue driver, sqs or memory (overrides QUEUE_DRIVER)")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if *queueURL != "" {
		cfg.Queue.SQSQueueURL = *queueURL
	}
	if *driver != "" {
		cfg.Queue.Driver = *driver
	}

	logger, err := logging.New(cfg.Server.Env)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	if cfg.Queue.Driver != "sqs" {
		logger.Warn("Worker started with the in-memory queue; jobs from the web server will not reach it")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer app.Close()

	logger.Info("Worker starting", zap.String("queue", cfg.Queue.Driver))
	if err := app.Queue.Run(ctx, app.Jobs.Handle); err != nil {
		logger.Error("Worker stopped", zap.Error(err))
		return
	}
	logger.Info("Worker stopped")
}
