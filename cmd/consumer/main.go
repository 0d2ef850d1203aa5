package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/arena-booking/internal/config"
	"github.com/iliyamo/arena-booking/internal/logger"
	"github.com/iliyamo/arena-booking/internal/queue"
)

// The consumer appends every booking and payment event to the activity log.
func main() {
	cfg := config.Load()
	log := logger.Must("arena-activity", cfg.IsDev())
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("activity consumer starting",
		zap.String("exchange", cfg.EventsExchange),
		zap.String("queue", cfg.ActivityQueue),
		zap.String("log_path", cfg.ActivityLogPath))
	err := queue.StartActivityConsumer(ctx, queue.ConsumerConfig{
		URL:      cfg.AMQPURL,
		Exchange: cfg.EventsExchange,
		Queue:    cfg.ActivityQueue,
		LogPath:  cfg.ActivityLogPath,
	}, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("activity consumer failed", zap.Error(err))
	}
	log.Info("activity consumer stopped")
}
