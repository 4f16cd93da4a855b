package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"todoist-git-sync/internal/config"
	"todoist-git-sync/internal/logger"
	"todoist-git-sync/internal/service"
	"todoist-git-sync/internal/todoist"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default $"+config.EnvConfigPath+" or config.yaml)")
	once := flag.Bool("once", false, "run a single sync and exit even if a schedule is configured")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zapLogger.Sync()

	api, err := todoist.NewClient(todoist.Config{
		Token:            cfg.TodoistToken,
		HTTPClient:       &http.Client{Timeout: cfg.RequestTimeout},
		Logger:           zapLogger,
		MaxRetries:       cfg.MaxRetries,
		DetailFetchDelay: cfg.DetailFetchDelay,
	})
	if err != nil {
		zapLogger.Fatal("todoist client", zap.Error(err))
	}

	var notifier *service.NotifyService
	if cfg.TelegramToken != "" {
		notifier, err = service.NewNotifyService(cfg.TelegramToken, cfg.TelegramChatID, zapLogger)
		if err != nil {
			zapLogger.Fatal("telegram notifier", zap.Error(err))
		}
	}

	syncService := service.NewSyncService(api, &cfg, zapLogger, notifier)

	if *once || (cfg.SyncInterval == 0 && cfg.SyncAt == "") {
		if err := syncService.Run(ctx); err != nil {
			zapLogger.Fatal("sync failed", zap.Error(err))
		}
		return
	}

	scheduler := service.NewSchedulerService(time.Local)
	job := func() {
		jobCtx, cancel := context.WithTimeout(ctx, 15*time.Minute)
		defer cancel()
		if err := syncService.Run(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("sync failed", zap.Error(err))
		}
	}
	if cfg.SyncAt != "" {
		if _, err := scheduler.ScheduleDaily(cfg.SyncAt, job); err != nil {
			zapLogger.Fatal("schedule daily sync", zap.Error(err))
		}
		zapLogger.Info("scheduled daily sync", zap.String("at", cfg.SyncAt))
	} else {
		if _, err := scheduler.ScheduleInterval(cfg.SyncInterval, job); err != nil {
			zapLogger.Fatal("schedule periodic sync", zap.Error(err))
		}
		zapLogger.Info("scheduled periodic sync", zap.Duration("interval", cfg.SyncInterval))
	}
	scheduler.Start()
	defer scheduler.Stop()

	<-ctx.Done()
	zapLogger.Info("shutdown complete")
}
