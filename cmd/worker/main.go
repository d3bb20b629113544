package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"flowtrack/internal/notifier"
	"flowtrack/internal/scheduler"
	"flowtrack/platform/config"
	"flowtrack/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender := notifier.NewWebhookSender(cfg, log)
	if sender == nil {
		log.Warn("TDDM_WEBHOOK_URL not configured; queued notifications will be dropped")
	}

	var delivery notifier.Sender
	if sender != nil {
		delivery = sender
	}

	worker, err := scheduler.NewWorker(cfg, delivery, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	if err := worker.Run(ctx); err != nil {
		log.Error("worker stopped with error", "error", err)
		panic("worker stopped with error: " + err.Error())
	}
}
