package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/nixcon/nixcon/internal/jobs"
	"github.com/nixcon/nixcon/internal/tasks"
)

// DueTaskSource lists open tasks due soon across all companies.
type DueTaskSource interface {
	DueWithin(ctx context.Context, days int) ([]tasks.Reminder, error)
}

// EmailEnqueuer queues one mail:send task.
type EmailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// DueReminderJob mails the assignee of every open task due within the window.
type DueReminderJob struct {
	Tasks       DueTaskSource
	Queue       EmailEnqueuer
	DefaultDays int
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	clock       func() time.Time
}

// NewDueReminderJob wires dependencies for the reminder handler.
func NewDueReminderJob(source DueTaskSource, queue EmailEnqueuer, defaultDays int, logger *slog.Logger, metrics *jobmetrics.Metrics) *DueReminderJob {
	return &DueReminderJob{
		Tasks:       source,
		Queue:       queue,
		DefaultDays: defaultDays,
		Logger:      logger,
		Metrics:     metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskTypeDueReminder tasks. Each reminder carries a task
// id derived from the task and the day and is retained until midnight, so a
// rerun on the same day does not mail twice.
func (j *DueReminderJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Tasks == nil || j.Queue == nil {
		return errors.New("due reminder: handler not configured")
	}
	var payload DueReminderPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	days := payload.WithinDays
	if days <= 0 {
		days = j.DefaultDays
	}

	tracker := j.metrics().Track(TaskTypeDueReminder)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("within_days", days))
	due, err := j.Tasks.DueWithin(ctx, days)
	if err != nil {
		logger.Error("load due tasks", slog.Any("error", err))
		return err
	}

	now := j.clock()
	today := now.Format("2006-01-02")
	retention := untilMidnight(now)
	enqueued, skipped := 0, 0
	for _, rem := range due {
		if rem.Task.AssigneeEmail == "" {
			skipped++
			continue
		}
		id := "reminder:" + strconv.FormatInt(rem.Task.ID, 10) + ":" + today
		_, err := j.Queue.EnqueueSendEmail(ctx, reminderEmail(rem), asynq.TaskID(id), asynq.MaxRetry(5), asynq.Retention(retention))
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			skipped++
			continue
		}
		if err != nil {
			logger.Error("enqueue reminder", slog.Int64("task_id", rem.Task.ID), slog.Any("error", err))
			return err
		}
		enqueued++
	}
	j.metrics().AddEnqueued(TaskTypeDueReminder, enqueued)
	logger.Info("due reminders queued", slog.Int("found", len(due)), slog.Int("enqueued", enqueued), slog.Int("skipped", skipped))
	return nil
}

func untilMidnight(now time.Time) time.Duration {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()).Sub(now)
}

func reminderEmail(rem tasks.Reminder) SendEmailPayload {
	due := "sem data"
	if rem.Task.DueDate != nil {
		due = rem.Task.DueDate.Format("02/01/2006")
	}
	return SendEmailPayload{
		To:      rem.Task.AssigneeEmail,
		Subject: fmt.Sprintf("Tarefa vence em %s: %s", due, rem.Task.Title),
		Body: fmt.Sprintf("Olá,\n\nA tarefa \"%s\" da empresa %s vence em %s.\n\n%s\n\nPortal NIXCON\n",
			rem.Task.Title, rem.CompanyName, due, rem.Task.Description),
	}
}

func (j *DueReminderJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DueReminderJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
