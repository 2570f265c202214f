package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/cache"
	"github.com/medconnect/backend/internal/config"
	"github.com/medconnect/backend/internal/testutil"
	"github.com/medconnect/backend/internal/upload"
)

type routerFixture struct {
	server *httptest.Server
	mock   sqlmock.Sqlmock
	redis  *miniredis.Miniredis
	issuer *auth.Issuer
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	perms, err := auth.LoadPermissions("../../permissions.yml")
	require.NoError(t, err)
	return newRouterFixtureWith(t, perms)
}

func newRouterFixtureWith(t *testing.T, perms auth.Permissions) *routerFixture {
	t.Helper()

	db, mock := testutil.NewMockDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	verifier, issuer := testutil.CreateTestVerifier(t)
	store, err := upload.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	r := SetupRouter(Dependencies{
		Config: &config.Config{
			UploadMaxBytes:       1 << 20,
			TwoFactorRequired:    true,
			TwoFactorTTL:         time.Minute,
			TwoFactorMaxAttempts: 3,
			LoginMaxFailures:     3,
			LoginLockout:         time.Minute,
		},
		DB:          db,
		Cache:       cache.Wrap(client),
		Verifier:    verifier,
		Issuer:      issuer,
		Permissions: perms,
		Store:       store,
	})

	srv := httptest.NewServer(CORS([]string{"http://localhost:4200"})(r))
	t.Cleanup(srv.Close)

	return &routerFixture{server: srv, mock: mock, redis: mr, issuer: issuer}
}

func (f *routerFixture) client(t *testing.T, userID, role string) *testutil.HTTPTestClient {
	token := ""
	if userID != "" {
		token = testutil.GenerateTestToken(t, f.issuer, userID, role)
	}
	return testutil.NewHTTPTestClient(f.server.URL, token)
}

func TestRouter_Health(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.client(t, "", "").Do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	testutil.ParseJSONResponse(t, resp, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Checks["redis"])
}

func TestRouter_Health_RedisDown(t *testing.T) {
	f := newRouterFixture(t)
	f.redis.Close()

	resp := f.client(t, "", "").Do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	testutil.ParseJSONResponse(t, resp, &body)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "unavailable", body.Checks["redis"])
}

func TestRouter_ProtectedRoutes(t *testing.T) {
	f := newRouterFixture(t)

	tests := []struct {
		name   string
		userID string
		role   string
		method string
		path   string
		want   int
	}{
		{"no token", "", "", http.MethodGet, "/dossiers/me", http.StatusUnauthorized},
		{"patient on admin", "p1", auth.RolePatient, http.MethodGet, "/admin/users", http.StatusForbidden},
		{"doctor on own dossier", "d1", auth.RoleDoctor, http.MethodGet, "/dossiers/me", http.StatusForbidden},
		{"admin on patient files", "a1", auth.RoleAdmin, http.MethodGet, "/patients/p1/files", http.StatusForbidden},
		{"patient on doctor list", "p1", auth.RolePatient, http.MethodGet, "/doctor/patients", http.StatusForbidden},
		{"doctor manages grants", "d1", auth.RoleDoctor, http.MethodDelete, "/access/d2", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.client(t, tt.userID, tt.role).Do(t, tt.method, tt.path, nil)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRouter_QueryTokenOnlyOnStream(t *testing.T) {
	f := newRouterFixture(t)
	token := testutil.GenerateTestToken(t, f.issuer, "p1", auth.RolePatient)

	resp := f.client(t, "", "").Do(t, http.MethodGet, "/notifications/unread-count?access_token="+token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_RoleGuardsSurviveLoosePermissions(t *testing.T) {
	perms, err := auth.ParsePermissions([]byte(`
roles:
  PATIENT: [access:view, user:manage]
  DOCTOR: [access:view]
  ADMIN: [user:manage]
`))
	require.NoError(t, err)
	f := newRouterFixtureWith(t, perms)

	for _, path := range []string{"/doctor/patients", "/admin/stats", "/admin/users"} {
		resp := f.client(t, "p1", auth.RolePatient).Do(t, http.MethodGet, path, nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.client(t, "", "").Do(t, http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	testutil.ParseJSONResponse(t, resp, &body)
	assert.Equal(t, "not_found", body["error"])
}

func TestRouter_LoginValidation(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.client(t, "", "").Do(t, http.MethodPost, "/auth/login", map[string]string{"email": ""})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_NotificationUnreadCount(t *testing.T) {
	f := newRouterFixture(t)
	f.mock.ExpectQuery(`SELECT COUNT\(\*\) AS "count" FROM "notifications"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	resp := f.client(t, "p1", auth.RolePatient).Do(t, http.MethodGet, "/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]int
	testutil.ParseJSONResponse(t, resp, &body)
	assert.Equal(t, 4, body["count"])
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://localhost:4200", " http://localhost:4201 "})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/doctors", nil)
		req.Header.Set("Origin", "http://localhost:4201")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusTeapot, rr.Code)
		assert.Equal(t, "http://localhost:4201", rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/doctors", nil)
		req.Header.Set("Origin", "https://evil.example")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/files", nil)
		req.Header.Set("Origin", "http://localhost:4200")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})
}

type requestRecorder struct {
	method, route string
	status        int
}

func (r *requestRecorder) RecordHTTPRequest(_ context.Context, method, route string, statusCode int, _ float64) {
	r.method, r.route, r.status = method, route, statusCode
}

func TestAccessLog_RecordsRouteTemplate(t *testing.T) {
	rec := &requestRecorder{}
	r := mux.NewRouter()
	r.Use(AccessLog(rec))
	r.HandleFunc("/files/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}).Methods("GET")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/files/abc", nil))

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "GET", rec.method)
	assert.Equal(t, "/files/{id}", rec.route)
	assert.Equal(t, http.StatusAccepted, rec.status)
}
