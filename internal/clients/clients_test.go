package clients

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/nixcon/nixcon/internal/authz"
)

type memRepo struct {
	mu      sync.Mutex
	nextID  int64
	clients map[int64]Client
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, clients: make(map[int64]Client)}
}

func (m *memRepo) List(ctx context.Context, companyID int64, filter ListFilter) ([]Client, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Client
	for _, c := range m.clients {
		if c.CompanyID != companyID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memRepo) Get(ctx context.Context, companyID, id int64) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.CompanyID != companyID {
		return Client{}, ErrNotFound
	}
	return c, nil
}

func (m *memRepo) Create(ctx context.Context, c Client) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.clients {
		if existing.CompanyID == c.CompanyID && existing.Document == c.Document {
			return Client{}, ErrDuplicateDocument
		}
	}
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.clients[c.ID] = c
	return c, nil
}

func (m *memRepo) Update(ctx context.Context, c Client) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.clients[c.ID]
	if !ok || current.CompanyID != c.CompanyID {
		return Client{}, ErrNotFound
	}
	c.CreatedAt = current.CreatedAt
	c.UpdatedAt = time.Now()
	m.clients[c.ID] = c
	return c, nil
}

func (m *memRepo) Delete(ctx context.Context, companyID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.CompanyID != companyID {
		return ErrNotFound
	}
	delete(m.clients, id)
	return nil
}

func (m *memRepo) Count(ctx context.Context, companyID int64) (int, error) {
	_, n, err := m.List(ctx, companyID, ListFilter{})
	return n, err
}

func newTestRouter(repo *memRepo) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := authz.Guard{Logger: logger}
	h := NewHandler(logger, NewService(repo), guard)
	r := chi.NewRouter()
	r.Route("/api/empresas/{empresaID}", func(r chi.Router) {
		r.Use(guard.RequireEmpresaContext("empresaID"))
		h.MountRoutes(r)
	})
	return r
}

func call(router http.Handler, p *authz.Principal, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if p != nil {
		req = req.WithContext(authz.ContextWithPrincipal(req.Context(), p))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

var (
	officeActor  = &authz.Principal{UserID: 2, Role: authz.RoleAccountingOffice}
	companyActor = &authz.Principal{UserID: 3, Role: authz.RoleClientCompany, CompanyID: 10}
	endClient    = &authz.Principal{UserID: 4, Role: authz.RoleEndClient}
)

func TestClientLifecycle(t *testing.T) {
	router := newTestRouter(newMemRepo())

	rr := call(router, companyActor, http.MethodPost, "/api/empresas/10/clientes/",
		`{"name":"Maria Souza","document":"529.982.247-25","email":"Maria@Example.com"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created Client
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, "52998224725", created.Document)
	require.Equal(t, "maria@example.com", created.Email)
	require.Equal(t, int64(10), created.CompanyID)

	rr = call(router, officeActor, http.MethodPost, "/api/empresas/10/clientes/",
		`{"name":"Maria S.","document":"52998224725"}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = call(router, officeActor, http.MethodPost, "/api/empresas/10/clientes/",
		`{"name":"Empresa X","document":"123"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = call(router, companyActor, http.MethodPut, "/api/empresas/10/clientes/1",
		`{"name":"Maria Souza Lima","document":"52998224725"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Maria Souza Lima")

	rr = call(router, companyActor, http.MethodGet, "/api/empresas/10/clientes/?q=lima", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)

	// The same client id under another company is invisible.
	require.Equal(t, http.StatusNotFound, call(router, officeActor, http.MethodGet, "/api/empresas/11/clientes/1", "").Code)
	require.Equal(t, http.StatusNoContent, call(router, companyActor, http.MethodDelete, "/api/empresas/10/clientes/1", "").Code)
	require.Equal(t, http.StatusNotFound, call(router, companyActor, http.MethodGet, "/api/empresas/10/clientes/1", "").Code)
}

func TestClientRoutesGuarded(t *testing.T) {
	router := newTestRouter(newMemRepo())

	require.Equal(t, http.StatusForbidden, call(router, companyActor, http.MethodGet, "/api/empresas/11/clientes/", "").Code)
	require.Equal(t, http.StatusForbidden, call(router, endClient, http.MethodGet, "/api/empresas/10/clientes/", "").Code)
	require.Equal(t, http.StatusUnauthorized, call(router, nil, http.MethodGet, "/api/empresas/10/clientes/", "").Code)
	require.Equal(t, http.StatusBadRequest, call(router, officeActor, http.MethodGet, "/api/empresas/0/clientes/", "").Code)
	require.Equal(t, http.StatusBadRequest, call(router, officeActor, http.MethodGet, "/api/empresas/10/clientes/x", "").Code)

	readOnly := &authz.Principal{UserID: 5, Role: authz.RoleClientCompany, CompanyID: 10,
		Overrides: authz.Overrides{authz.ModuleClientes: authz.AccessRead}}
	require.Equal(t, http.StatusOK, call(router, readOnly, http.MethodGet, "/api/empresas/10/clientes/", "").Code)
	require.Equal(t, http.StatusForbidden, call(router, readOnly, http.MethodPost, "/api/empresas/10/clientes/",
		`{"name":"x","document":"52998224725"}`).Code)
}
