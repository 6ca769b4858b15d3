package authz

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newCheckRouter() http.Handler {
	h := NewHandler(nil, Guard{})
	r := chi.NewRouter()
	r.Route("/authz", h.MountCheck)
	r.Route("/api/permissions", h.MountRoutes)
	return r
}

func postCheck(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/authz/check", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	newCheckRouter().ServeHTTP(rr, req)
	return rr
}

func TestCheckEndpoint(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		allowed bool
	}{
		{"matrix grants read", `{"role":"empresa","module":"fiscal_ajustes","level":"read"}`, true},
		{"matrix denies write", `{"role":"empresa","module":"fiscal_ajustes","level":"write"}`, false},
		{"override upgrades", `{"role":"empresa","module":"fiscal_ajustes","level":"write","overrides":{"fiscal_ajustes":"write"}}`, true},
		{"override none wins", `{"role":"admin","module":"usuarios","level":1,"overrides":{"usuarios":"none"}}`, false},
		{"module zero", `{"role":"cliente","module":"dashboard","level":"read"}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := postCheck(t, tc.body)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			if tc.allowed {
				require.JSONEq(t, `{"allowed":true}`, rr.Body.String())
			} else {
				require.JSONEq(t, `{"allowed":false}`, rr.Body.String())
			}
		})
	}
}

func TestCheckEndpointRejectsBadInput(t *testing.T) {
	bodies := []string{
		`{"role":"root","module":"fiscal","level":"read"}`,
		`{"role":"admin","module":"estoque","level":"read"}`,
		`{"role":"admin","module":"fiscal","level":"owner"}`,
		`{"role":"admin","module":"fiscal","level":9}`,
		`{"role":"admin","level":"read"}`,
		`{"module":"fiscal","level":"read"}`,
		`{"role":"admin","module":"fiscal","level":"read","extra":true}`,
		`not json`,
	}
	for _, body := range bodies {
		rr := postCheck(t, body)
		require.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestMatrixRouteRequiresUserModule(t *testing.T) {
	r := newCheckRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/permissions/matrix", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/permissions/matrix", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), &Principal{UserID: 1, Role: RoleAccountingOffice}))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"fiscal_ajustes":"read"`)
}
