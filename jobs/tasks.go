package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/nixcon/nixcon/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeDueReminder scans for tasks due soon and mails their assignees.
	TaskTypeDueReminder = "tasks:due_reminder"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// DueReminderPayload configures a reminder scan. Zero days means the job default.
type DueReminderPayload struct {
	WithinDays int `json:"within_days"`
}

// NewDueReminderTask constructs the reminder scan task.
func NewDueReminderTask(withinDays int) (*asynq.Task, error) {
	data, err := json.Marshal(DueReminderPayload{WithinDays: withinDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDueReminder, data), nil
}
