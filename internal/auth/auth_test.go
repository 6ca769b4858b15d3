package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/nixcon/nixcon/internal/auth"
	"github.com/nixcon/nixcon/internal/authz"
	"github.com/nixcon/nixcon/internal/shared"
	_ "github.com/nixcon/nixcon/testing"
)

type stubRepo struct {
	mu      sync.Mutex
	users   map[int64]*auth.User
	touched map[int64]time.Time
}

func newStubRepo(users ...*auth.User) *stubRepo {
	repo := &stubRepo{users: make(map[int64]*auth.User), touched: make(map[int64]time.Time)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *stubRepo) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[id] = at
	return nil
}

type stubOverrides map[int64]authz.Overrides

func (s stubOverrides) Overrides(ctx context.Context, userID int64) (authz.Overrides, error) {
	return s[userID], nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	return hash
}

type fixture struct {
	repo     *stubRepo
	sessions *shared.SessionManager
	tokens   *auth.TokenIssuer
	router   http.Handler
}

func newFixture(t *testing.T, overrides stubOverrides, users ...*auth.User) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newStubRepo(users...)
	service := auth.NewService(repo)
	sessions := shared.NewSessionManager(client, "nixcon_session", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	tokens := auth.NewTokenIssuer("jwtsecret", time.Hour)
	handler := auth.NewHandler(logger, service, sessions, csrf, tokens, nil, 0)
	resolver := &auth.PrincipalResolver{Service: service, Tokens: tokens, Overrides: overrides, Logger: logger}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(req.Context(), sess)
			rec := &commitRecorder{ResponseWriter: w, commit: func() { require.NoError(t, sessions.Commit(ctx, w, sess)) }}
			next.ServeHTTP(rec, req.WithContext(ctx))
		})
	})
	r.Use(resolver.Middleware)
	r.Route("/auth", handler.MountRoutes)
	r.Route("/api", handler.MountMe)
	return &fixture{repo: repo, sessions: sessions, tokens: tokens, router: r}
}

type commitRecorder struct {
	http.ResponseWriter
	commit  func()
	written bool
}

func (c *commitRecorder) WriteHeader(status int) {
	if !c.written {
		c.written = true
		c.commit()
	}
	c.ResponseWriter.WriteHeader(status)
}

func (c *commitRecorder) Write(b []byte) (int, error) {
	if !c.written {
		c.WriteHeader(http.StatusOK)
	}
	return c.ResponseWriter.Write(b)
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, f *fixture, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"email":"` + email + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return f.do(req)
}

var officeUser = &auth.User{ID: 1, Email: "contador@nixcon.local", Name: "Ana", Role: authz.RoleAccountingOffice, IsActive: true}

func TestLoginIssuesTokenAndSession(t *testing.T) {
	user := *officeUser
	user.PasswordHash = mustHash(t, "segredo123")
	f := newFixture(t, nil, &user)

	rr := login(t, f, "contador@nixcon.local", "segredo123")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
		CSRFToken string    `json:"csrf_token"`
		User      struct {
			ID   int64  `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.NotEmpty(t, resp.CSRFToken)
	require.Equal(t, int64(1), resp.User.ID)
	require.Equal(t, "escritorio", resp.User.Role)
	require.NotContains(t, rr.Body.String(), "password")
	require.Contains(t, f.repo.touched, int64(1))

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "nixcon_session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	// Session cookie resolves the principal.
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	me := f.do(req)
	require.Equal(t, http.StatusOK, me.Code)
	require.Contains(t, me.Body.String(), `"view_mode":"escritorio"`)
	require.Contains(t, me.Body.String(), `"usuarios":"write"`)

	// So does the bearer token.
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	me = f.do(req)
	require.Equal(t, http.StatusOK, me.Code)
	require.NotContains(t, me.Body.String(), "csrf_token")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	inactive := &auth.User{ID: 2, Email: "inativo@nixcon.local", Role: authz.RoleClientCompany, CompanyID: 5, PasswordHash: mustHash(t, "segredo123")}
	user := *officeUser
	user.PasswordHash = mustHash(t, "segredo123")
	f := newFixture(t, nil, &user, inactive)

	for _, tc := range []struct{ email, password string }{
		{"contador@nixcon.local", "errada12345"},
		{"ninguem@nixcon.local", "segredo123"},
		{"inativo@nixcon.local", "segredo123"},
	} {
		rr := login(t, f, tc.email, tc.password)
		require.Equal(t, http.StatusUnauthorized, rr.Code, tc.email)
		require.JSONEq(t, `{"status":401,"message":"e-mail ou senha inválidos"}`, rr.Body.String())
	}

	rr := login(t, f, "not-an-email", "segredo123")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMeRequiresPrincipal(t *testing.T) {
	f := newFixture(t, nil)
	rr := f.do(httptest.NewRequest(http.MethodGet, "/api/me", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr = f.do(req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBearerForDeactivatedUserIsAnonymous(t *testing.T) {
	user := *officeUser
	f := newFixture(t, nil, &user)
	token, _, err := f.tokens.Issue(&user)
	require.NoError(t, err)

	f.repo.users[1].IsActive = false
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	require.Equal(t, http.StatusUnauthorized, f.do(req).Code)
}

func TestPrincipalCarriesOverridesAndActingContext(t *testing.T) {
	company := &auth.User{ID: 3, Email: "empresa@nixcon.local", Role: authz.RoleClientCompany, CompanyID: 12, IsActive: true}
	f := newFixture(t, stubOverrides{3: {authz.ModuleFiscalAjustes: authz.AccessWrite}}, company)
	token, _, err := f.tokens.Issue(company)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := f.do(req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Acting             authz.ActingContext `json:"acting"`
		EffectiveCompanyID int64               `json:"effective_company_id"`
		Permissions        map[string]string   `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, authz.ViewEmpresa, resp.Acting.Mode)
	require.Equal(t, int64(12), resp.Acting.CompanyID)
	require.Equal(t, int64(12), resp.EffectiveCompanyID)
	require.Equal(t, "write", resp.Permissions["fiscal_ajustes"])
	require.Equal(t, "none", resp.Permissions["usuarios"])
}

func TestLogoutDestroysSession(t *testing.T) {
	user := *officeUser
	user.PasswordHash = mustHash(t, "segredo123")
	f := newFixture(t, nil, &user)

	rr := login(t, f, "contador@nixcon.local", "segredo123")
	require.Equal(t, http.StatusOK, rr.Code)
	cookie := rr.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	require.Equal(t, http.StatusNoContent, f.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	require.Equal(t, http.StatusUnauthorized, f.do(req).Code)
}
