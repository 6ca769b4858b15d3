package companies

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

type memRepo struct {
	mu        sync.Mutex
	nextID    int64
	companies map[int64]Company
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, companies: make(map[int64]Company)}
}

func (m *memRepo) seed(c Company) Company {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.companies[c.ID] = c
	return c
}

func (m *memRepo) List(ctx context.Context, filters ListFilters) ([]Company, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Company
	for _, c := range m.companies {
		if filters.IDs != nil && !slices.Contains(filters.IDs, c.ID) {
			continue
		}
		if filters.Search != "" && !strings.Contains(strings.ToLower(c.RazaoSocial), strings.ToLower(filters.Search)) {
			continue
		}
		if filters.IsActive != nil && c.IsActive != *filters.IsActive {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if filters.Limit > 0 {
		offset := (filters.Page - 1) * filters.Limit
		if offset >= len(out) {
			return nil, total, nil
		}
		out = out[offset:]
		if len(out) > filters.Limit {
			out = out[:filters.Limit]
		}
	}
	return out, total, nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return Company{}, ErrNotFound
	}
	return c, nil
}

func (m *memRepo) Create(ctx context.Context, c Company) (Company, error) {
	m.mu.Lock()
	for _, existing := range m.companies {
		if existing.CNPJ == c.CNPJ {
			m.mu.Unlock()
			return Company{}, ErrDuplicateCNPJ
		}
	}
	m.mu.Unlock()
	return m.seed(c), nil
}

func (m *memRepo) Update(ctx context.Context, id int64, c Company) (Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.companies[id]
	if !ok {
		return Company{}, ErrNotFound
	}
	for _, existing := range m.companies {
		if existing.ID != id && existing.CNPJ == c.CNPJ {
			return Company{}, ErrDuplicateCNPJ
		}
	}
	c.ID = id
	c.CreatedAt = current.CreatedAt
	c.UpdatedAt = time.Now()
	m.companies[id] = c
	return c, nil
}

func (m *memRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.companies[id]; !ok {
		return ErrNotFound
	}
	delete(m.companies, id)
	return nil
}

func (m *memRepo) Exists(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.companies[id]
	return ok, nil
}
