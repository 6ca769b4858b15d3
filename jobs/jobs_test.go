package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/nixcon/nixcon/internal/authz"
	jobmetrics "github.com/nixcon/nixcon/internal/jobs"
	"github.com/nixcon/nixcon/internal/platform/mail"
	"github.com/nixcon/nixcon/internal/tasks"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if msg.To == "" {
		return mail.ErrNoRecipient
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestSendEmailJob(t *testing.T) {
	mailer := &recordingMailer{}
	job := NewSendEmailJob(mailer, discard, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewSendEmailTask(SendEmailPayload{To: "ana@x.com", Subject: "Oi", Body: "corpo"})
	require.NoError(t, err)
	require.Equal(t, TaskTypeSendEmail, task.Type())
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, mailer.sent, 1)
	require.Equal(t, "Oi", mailer.sent[0].Subject)

	noRecipient, _ := NewSendEmailTask(SendEmailPayload{Subject: "x"})
	err = job.Handle(context.Background(), noRecipient)
	require.ErrorIs(t, err, asynq.SkipRetry)

	require.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{"))), asynq.SkipRetry)

	mailer.err = errors.New("smtp down")
	require.EqualError(t, job.Handle(context.Background(), task), "smtp down")
}

type staticDue struct {
	days      int
	reminders []tasks.Reminder
	err       error
}

func (s *staticDue) DueWithin(ctx context.Context, days int) ([]tasks.Reminder, error) {
	s.days = days
	return s.reminders, s.err
}

type fakeQueue struct {
	seen     map[string]bool
	payloads []SendEmailPayload
}

func (q *fakeQueue) EnqueueSendEmail(ctx context.Context, payload SendEmailPayload, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	var id string
	for _, opt := range opts {
		if opt.Type() == asynq.TaskIDOpt {
			id = opt.Value().(string)
		}
	}
	if q.seen[id] {
		return nil, asynq.ErrTaskIDConflict
	}
	q.seen[id] = true
	q.payloads = append(q.payloads, payload)
	return &asynq.TaskInfo{ID: id, Queue: QueueDefault}, nil
}

func TestDueReminderJobEnqueuesOncePerDay(t *testing.T) {
	due, err := tasks.ParseDate("2026-03-12")
	require.NoError(t, err)
	source := &staticDue{reminders: []tasks.Reminder{
		{Task: tasks.Task{ID: 1, Title: "Enviar DCTF", AssigneeEmail: "ana@x.com", DueDate: &due}, CompanyName: "Aurora Ltda"},
		{Task: tasks.Task{ID: 2, Title: "Sem responsável"}, CompanyName: "Aurora Ltda"},
		{Task: tasks.Task{ID: 3, Title: "Folha", AssigneeEmail: "rh@boreal.com"}, CompanyName: "Boreal SA"},
	}}
	queue := &fakeQueue{seen: map[string]bool{}}
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := NewDueReminderJob(source, queue, 3, discard, metrics)
	job.clock = func() time.Time { return time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC) }

	task, err := NewDueReminderTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 3, source.days)
	require.Len(t, queue.payloads, 2)
	require.Equal(t, "ana@x.com", queue.payloads[0].To)
	require.Contains(t, queue.payloads[0].Subject, "12/03/2026")
	require.Contains(t, queue.payloads[0].Body, "Aurora Ltda")
	require.Contains(t, queue.payloads[1].Subject, "sem data")

	// Same day rerun: ids collide, nothing new is queued.
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, queue.payloads, 2)

	custom, _ := NewDueReminderTask(7)
	require.NoError(t, job.Handle(context.Background(), custom))
	require.Equal(t, 7, source.days)

	require.Equal(t, 3.0, counterSum(t, reg, "nixcon_jobs_total"))
	require.Equal(t, 2.0, counterSum(t, reg, "nixcon_jobs_enqueued_total"))
}

func counterSum(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestDueReminderJobPropagatesSourceErrors(t *testing.T) {
	job := NewDueReminderJob(&staticDue{err: errors.New("db down")}, &fakeQueue{seen: map[string]bool{}}, 3, discard,
		jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, _ := NewDueReminderTask(0)
	require.EqualError(t, job.Handle(context.Background(), task), "db down")
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) Queues() ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{QueueDefault}, nil
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) { return f.info, f.err }

type fakeTrigger struct{ calls int }

func (f *fakeTrigger) EnqueueDueReminder(ctx context.Context, withinDays int) (*asynq.TaskInfo, error) {
	f.calls++
	return &asynq.TaskInfo{ID: "t1", Queue: QueueDefault}, nil
}

func TestJobsHandler(t *testing.T) {
	trigger := &fakeTrigger{}
	h := NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4, Retry: 1}}, trigger,
		authz.Guard{Logger: discard}, discard)
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)

	do := func(p *authz.Principal, method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if p != nil {
			req = req.WithContext(authz.ContextWithPrincipal(req.Context(), p))
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	admin := &authz.Principal{UserID: 1, Role: authz.RoleSystemAdmin}
	office := &authz.Principal{UserID: 2, Role: authz.RoleAccountingOffice}

	rr := do(admin, http.MethodGet, "/jobs/health")
	require.Equal(t, http.StatusOK, rr.Code)
	var health queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	require.Equal(t, 4, health.Pending)
	require.Equal(t, 1, health.Retry)

	require.Equal(t, http.StatusForbidden, do(office, http.MethodGet, "/jobs/health").Code)
	require.Equal(t, http.StatusUnauthorized, do(nil, http.MethodGet, "/jobs/health").Code)

	require.Equal(t, http.StatusAccepted, do(admin, http.MethodPost, "/jobs/reminders").Code)
	require.Equal(t, 1, trigger.calls)

	down := NewHandler(fakeInspector{err: errors.New("redis down")}, nil, authz.Guard{}, discard)
	r2 := chi.NewRouter()
	r2.Route("/jobs", down.MountRoutes)
	req := httptest.NewRequest(http.MethodGet, "/jobs/health", nil)
	req = req.WithContext(authz.ContextWithPrincipal(req.Context(), admin))
	rr = httptest.NewRecorder()
	r2.ServeHTTP(rr, req)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestJobsHealthOnFreshQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = inspector.Close() })

	h := NewHandler(inspector, nil, authz.Guard{Logger: discard}, discard)
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	req := httptest.NewRequest(http.MethodGet, "/jobs/health", nil)
	req = req.WithContext(authz.ContextWithPrincipal(req.Context(), &authz.Principal{UserID: 1, Role: authz.RoleSystemAdmin}))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var health queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	require.Equal(t, queueHealth{Queue: QueueDefault}, health)
}

func TestDueReminderRerunAfterDeliveryDoesNotMailAgain(t *testing.T) {
	mr := miniredis.RunT(t)
	redisOpts := asynq.RedisClientOpt{Addr: mr.Addr()}
	client := NewClient(redisOpts)
	t.Cleanup(func() { _ = client.Close() })

	mailer := &recordingMailer{}
	sender := NewSendEmailJob(mailer, discard, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	worker, err := NewWorker(WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    discard,
		Handlers:  []TaskHandler{{Type: TaskTypeSendEmail, Handler: sender.Handle}},
	})
	require.NoError(t, err)
	require.NoError(t, worker.server.Start(worker.mux))
	t.Cleanup(worker.server.Shutdown)

	source := &staticDue{reminders: []tasks.Reminder{
		{Task: tasks.Task{ID: 42, Title: "Enviar DCTF", AssigneeEmail: "ana@x.com"}, CompanyName: "Aurora Ltda"},
	}}
	reg := prometheus.NewRegistry()
	job := NewDueReminderJob(source, client, 3, discard, jobmetrics.NewMetrics(reg))
	task, err := NewDueReminderTask(0)
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))

	inspector := asynq.NewInspector(redisOpts)
	t.Cleanup(func() { _ = inspector.Close() })
	id := "reminder:42:" + job.clock().Format("2006-01-02")
	require.Eventually(t, func() bool {
		info, err := inspector.GetTaskInfo(QueueDefault, id)
		return err == nil && info.State == asynq.TaskStateCompleted
	}, 10*time.Second, 50*time.Millisecond)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1.0, counterSum(t, reg, "nixcon_jobs_enqueued_total"))

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	require.Len(t, mailer.sent, 1)
}
