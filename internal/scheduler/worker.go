package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"flowtrack/internal/notifier"
	"flowtrack/platform/config"
	"flowtrack/platform/logger"
)

// Worker consumes queued webhook deliveries. Failed deliveries are retried
// by asynq with its default backoff up to the task's MaxRetry.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	sender notifier.Sender
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sender notifier.Sender, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		sender: sender,
		log:    log,
	}

	mux.HandleFunc(TaskTDDMWebhook, w.handleTDDMWebhook)

	return w, nil
}

func (w *Worker) handleTDDMWebhook(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseTDDMWebhookPayload(task)
	if err != nil {
		return fmt.Errorf("parse TDDM webhook payload: %w", err)
	}
	if w.sender == nil {
		w.log.WebhookEvent(payload.CRN, false, "webhook sender not configured")
		return nil
	}
	return w.sender.SendTDDM(ctx, payload)
}

// Run blocks processing tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()
	return w.server.Run(w.mux)
}
