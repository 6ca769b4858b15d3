package tasks

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memRepo struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]Task
	names  map[int64]string
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, tasks: make(map[int64]Task), names: map[int64]string{10: "Aurora Ltda", 11: "Boreal SA"}}
}

func (m *memRepo) List(ctx context.Context, companyID int64, filter ListFilter) ([]Task, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Task
	for _, t := range m.tasks {
		if t.CompanyID != companyID || (filter.Status != nil && t.Status != *filter.Status) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memRepo) Get(ctx context.Context, companyID, id int64) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.CompanyID != companyID {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (m *memRepo) Create(ctx context.Context, t Task) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.nextID
	m.nextID++
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.tasks[t.ID] = t
	return t, nil
}

func (m *memRepo) Update(ctx context.Context, t Task) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.tasks[t.ID]
	if !ok || current.CompanyID != t.CompanyID {
		return Task{}, ErrNotFound
	}
	t.UpdatedAt = time.Now()
	m.tasks[t.ID] = t
	return t, nil
}

func (m *memRepo) Delete(ctx context.Context, companyID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.CompanyID != companyID {
		return ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memRepo) Stats(ctx context.Context, companyID int64, today Date) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s Stats
	for _, t := range m.tasks {
		if t.CompanyID != companyID || !t.Status.Open() {
			continue
		}
		s.Open++
		if t.Overdue(today) {
			s.Overdue++
		}
	}
	return s, nil
}

func (m *memRepo) ListDueBetween(ctx context.Context, from, to Date) ([]Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Reminder
	for _, t := range m.tasks {
		if !t.Status.Open() || t.DueDate == nil || t.DueDate.Before(from.Time) || t.DueDate.After(to.Time) {
			continue
		}
		out = append(out, Reminder{Task: t, CompanyName: m.names[t.CompanyID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Task.ID < out[j].Task.ID })
	return out, nil
}
