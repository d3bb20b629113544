package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"flowtrack/internal/notifier"
)

const TaskTDDMWebhook = "journey.tddm.webhook"

func NewTDDMWebhookTask(payload notifier.TDDMNotification) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTDDMWebhook, data, asynq.MaxRetry(5)), nil
}

func ParseTDDMWebhookPayload(task *asynq.Task) (notifier.TDDMNotification, error) {
	var payload notifier.TDDMNotification
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return notifier.TDDMNotification{}, err
	}
	return payload, nil
}
