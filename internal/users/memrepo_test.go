package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nixcon/nixcon/internal/authz"
)

type memRepo struct {
	mu        sync.Mutex
	nextID    int64
	users     map[int64]User
	overrides map[int64]authz.Overrides
	companies map[int64]bool
	loads     atomic.Int32
	loadDelay time.Duration
}

func newMemRepo() *memRepo {
	return &memRepo{
		nextID:    1,
		users:     make(map[int64]User),
		overrides: make(map[int64]authz.Overrides),
		companies: map[int64]bool{10: true, 11: true},
	}
}

func (m *memRepo) ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []User
	for _, u := range m.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.CompanyID > 0 && u.CompanyID != filter.CompanyID {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if filter.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (m *memRepo) GetUser(ctx context.Context, id int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memRepo) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, params.Email) {
			return User{}, ErrDuplicateEmail
		}
	}
	if params.CompanyID != 0 && !m.companies[params.CompanyID] {
		return User{}, ErrCompanyNotFound
	}
	now := time.Now()
	u := User{
		ID:        m.nextID,
		Email:     strings.ToLower(params.Email),
		Name:      params.Name,
		Role:      params.Role,
		CompanyID: params.CompanyID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.users[u.ID] = u
	m.nextID++
	return u, nil
}

func (m *memRepo) ListOverrides(ctx context.Context, userID int64) (authz.Overrides, error) {
	m.loads.Add(1)
	if m.loadDelay > 0 {
		time.Sleep(m.loadDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := authz.Overrides{}
	for k, v := range m.overrides[userID] {
		out[k] = v
	}
	return out, nil
}

func (m *memRepo) ReplaceOverrides(ctx context.Context, userID int64, overrides authz.Overrides) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := authz.Overrides{}
	for k, v := range overrides {
		copied[k] = v
	}
	m.overrides[userID] = copied
	return nil
}

func (m *memRepo) seed(u User) User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.nextID
	u.IsActive = true
	m.users[u.ID] = u
	m.nextID++
	return u
}
