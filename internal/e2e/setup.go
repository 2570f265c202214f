//go:build integration

package e2e

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/medconnect/backend/internal/account"
	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/cache"
	"github.com/medconnect/backend/internal/config"
	"github.com/medconnect/backend/internal/db"
	httpserver "github.com/medconnect/backend/internal/http"
	"github.com/medconnect/backend/internal/messaging"
	"github.com/medconnect/backend/internal/testutil"
	"github.com/medconnect/backend/internal/upload"
	"github.com/medconnect/backend/internal/users"
)

// TestServer is a full API over a real PostgreSQL database, an in-memory
// Redis and an in-memory event publisher.
type TestServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	MockPublisher *testutil.MockPublisher
	Redis         *miniredis.Miniredis
}

// SetupE2ETest needs TEST_DATABASE_URL pointing at a disposable database.
func SetupE2ETest(t *testing.T, twoFactor bool) *TestServer {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	database, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.NewMigrator(database).Up(ctx); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	truncate(t, database)

	mr := miniredis.RunT(t)
	publisher := testutil.NewMockPublisher()

	perms, err := auth.LoadPermissions("../../permissions.yml")
	if err != nil {
		t.Fatalf("Failed to load permissions: %v", err)
	}
	store, err := upload.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}
	verifier, issuer := testutil.CreateTestVerifier(t)

	router := httpserver.SetupRouter(httpserver.Dependencies{
		Config: &config.Config{
			UploadMaxBytes:       1 << 20,
			TwoFactorRequired:    twoFactor,
			TwoFactorTTL:         5 * time.Minute,
			TwoFactorMaxAttempts: 3,
			LoginMaxFailures:     5,
			LoginLockout:         time.Minute,
		},
		DB:          database,
		Cache:       cache.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()})),
		Publisher:   messaging.PublisherInterface(publisher),
		Verifier:    verifier,
		Issuer:      issuer,
		Permissions: perms,
		Store:       store,
	})

	ts := &TestServer{
		Server:        httptest.NewServer(router),
		DB:            database,
		MockPublisher: publisher,
		Redis:         mr,
	}
	t.Cleanup(func() { ts.Cleanup(t) })
	return ts
}

func (ts *TestServer) Cleanup(t *testing.T) {
	t.Helper()
	ts.Server.Close()
	truncate(t, ts.DB)
	ts.DB.Close()
}

func truncate(t *testing.T, database *sql.DB) {
	t.Helper()
	_, err := database.Exec(`TRUNCATE notifications, messages, files, appointments,
		connection_requests, access_grants, dossier_entries, dossiers, users CASCADE`)
	if err != nil {
		t.Fatalf("Failed to truncate test database: %v", err)
	}
}

// NewClient returns an HTTP client for the test server using token.
func (ts *TestServer) NewClient(token string) *testutil.HTTPTestClient {
	return testutil.NewHTTPTestClient(ts.Server.URL, token)
}

type registeredUser struct {
	ID    string
	Email string
	Token string
}

const testPassword = "Secur3Passw0rd"

// Register creates an account and logs in without a second factor.
func (ts *TestServer) Register(t *testing.T, role, email string, extra map[string]interface{}) registeredUser {
	t.Helper()
	body := map[string]interface{}{
		"email":     email,
		"password":  testPassword,
		"firstName": "Test",
		"lastName":  role,
		"role":      role,
	}
	for k, v := range extra {
		body[k] = v
	}

	resp := ts.NewClient("").Do(t, http.MethodPost, "/auth/register", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d", email, resp.StatusCode)
	}
	var u struct {
		ID string `json:"id"`
	}
	testutil.ParseJSONResponse(t, resp, &u)
	return ts.login(t, u.ID, email)
}

// CreateAdmin inserts an administrator the way the create-admin command does
// and logs in.
func (ts *TestServer) CreateAdmin(t *testing.T, email string) registeredUser {
	t.Helper()
	u, err := account.CreateAdmin(context.Background(), users.NewRepository(ts.DB), account.AdminRequest{
		Email: email, Password: testPassword, FirstName: "Site", LastName: "Admin",
	})
	if err != nil {
		t.Fatalf("create admin %s: %v", email, err)
	}
	return ts.login(t, u.ID, email)
}

func (ts *TestServer) login(t *testing.T, id, email string) registeredUser {
	t.Helper()
	login := ts.NewClient("").Do(t, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": testPassword})
	if login.StatusCode != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d", email, login.StatusCode)
	}
	var res struct {
		AccessToken string `json:"accessToken"`
	}
	testutil.ParseJSONResponse(t, login, &res)
	if res.AccessToken == "" {
		t.Fatalf("login %s: no access token", email)
	}
	return registeredUser{ID: id, Email: email, Token: res.AccessToken}
}
