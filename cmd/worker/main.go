package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/benvon/smart-tasks/internal/app"
	"github.com/benvon/smart-tasks/internal/config"
	"github.com/benvon/smart-tasks/internal/database"
	"github.com/benvon/smart-tasks/internal/handlers"
	"github.com/benvon/smart-tasks/internal/logger"
	"github.com/benvon/smart-tasks/internal/queue"
	"github.com/benvon/smart-tasks/internal/reminders"
	"github.com/benvon/smart-tasks/internal/telemetry"
	"github.com/benvon/smart-tasks/internal/workers"
	"go.uber.org/zap"
)

// DLQ garbage collection runs hourly and keeps a day of failed jobs
const (
	dlqGCInterval  = time.Hour
	dlqGCRetention = 24 * time.Hour
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.New(debugMode, cfg.DevelopmentLogging())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("storage_driver", cfg.StorageDriver),
		zap.Bool("scheduler_enabled", cfg.ReminderSchedulerEnabled),
		zap.Duration("reminder_interval", cfg.ReminderInterval),
		zap.Duration("reminder_window", cfg.ReminderWindow),
		zap.Bool("push_enabled", cfg.PushEnabled()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTELEnabled, telemetry.ServiceWorker, handlers.Version, cfg.OTELEndpoint, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_initialize_tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zapLogger.Error("failed_to_shutdown_tracing", zap.Error(err))
		}
	}()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_storage", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(context.Background()); err != nil {
			zapLogger.Warn("failed_to_close_storage", zap.Error(err))
		}
	}()

	rdb, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()

	jobQueue, err := app.ConnectQueue(ctx, cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	engine := app.NewEngine(cfg, stores, rdb, app.NewDispatcher(cfg, zapLogger), zapLogger)
	scanner := workers.NewReminderScanner(stores.Users, engine, jobQueue, zapLogger)

	var wg sync.WaitGroup

	if cfg.ReminderSchedulerEnabled {
		scheduler := reminders.NewScheduler(engine, stores.Users, cfg.ReminderInterval, zapLogger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("reminder_scheduler_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_reminder_scheduler", zap.Duration("interval", cfg.ReminderInterval))
	}

	dlqGC := queue.NewGarbageCollector(jobQueue, dlqGCInterval, dlqGCRetention, zapLogger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := dlqGC.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}
	zapLogger.Info("worker_started", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}
				if err := scanner.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("failed_to_process_job",
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
						zap.Error(err),
					)
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("worker_shutting_down")
	cancel()
	wg.Wait()
	zapLogger.Info("worker_stopped")
}
