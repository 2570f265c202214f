package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordingMetrics struct {
	failures []string
	checks   []bool
}

func (m *recordingMetrics) RecordAuthFailure(_ context.Context, reason string) {
	m.failures = append(m.failures, reason)
}

func (m *recordingMetrics) RecordPermissionCheck(_ context.Context, _ string, _ float64, allowed bool) {
	m.checks = append(m.checks, allowed)
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_ValidToken(t *testing.T) {
	cfg := testConfig()
	pair, err := NewIssuer(cfg).IssuePair(testSubject())
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	called := false
	handler := Middleware(NewVerifier(cfg))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		pr, ok := FromContext(r.Context())
		if !ok {
			t.Error("Expected principal in context, got none")
			return
		}
		if pr.UserID != "user-123" {
			t.Errorf("Expected UserID 'user-123', got '%s'", pr.UserID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if !called {
		t.Error("Expected handler to be called")
	}
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
}

func TestMiddleware_QueryTokenFallback(t *testing.T) {
	cfg := testConfig()
	pair, err := NewIssuer(cfg).IssuePair(testSubject())
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	called := false
	handler := StreamMiddlewareWithMetrics(NewVerifier(cfg), nil)(okHandler(&called))
	req := httptest.NewRequest(http.MethodGet, "/notifications/stream?access_token="+pair.AccessToken, nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if !called || rr.Code != http.StatusOK {
		t.Errorf("Expected query token to authenticate, got status %d", rr.Code)
	}
}

func TestMiddleware_QueryTokenRejectedOutsideStreams(t *testing.T) {
	cfg := testConfig()
	pair, err := NewIssuer(cfg).IssuePair(testSubject())
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	called := false
	handler := Middleware(NewVerifier(cfg))(okHandler(&called))
	req := httptest.NewRequest(http.MethodGet, "/dossiers/me?access_token="+pair.AccessToken, nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if called || rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected query token to be ignored, got status %d", rr.Code)
	}
}

func TestMiddleware_Failures(t *testing.T) {
	cfg := testConfig()
	pair, err := NewIssuer(cfg).IssuePair(testSubject())
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	cases := []struct {
		name   string
		header string
		reason string
	}{
		{"missing header", "", "missing_authorization"},
		{"wrong scheme", "Basic abc", "invalid_header_format"},
		{"garbage token", "Bearer not-a-jwt", "invalid_token"},
		{"refresh token", "Bearer " + pair.RefreshToken, "invalid_token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			metrics := &recordingMetrics{}
			called := false
			handler := MiddlewareWithMetrics(NewVerifier(cfg), metrics)(okHandler(&called))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if called {
				t.Error("Expected handler not to be called")
			}
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", rr.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("Expected JSON error body: %v", err)
			}
			if body["error"] != "unauthorized" {
				t.Errorf("Expected error kind 'unauthorized', got %q", body["error"])
			}
			if len(metrics.failures) != 1 || metrics.failures[0] != tc.reason {
				t.Errorf("Expected failure reason %q, got %v", tc.reason, metrics.failures)
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	perms := Permissions{
		RoleDoctor:  {"dossier:read"},
		RolePatient: {"dossier:own"},
	}

	cases := []struct {
		name      string
		principal *Principal
		want      int
	}{
		{"allowed", &Principal{UserID: "d1", Roles: []string{RoleDoctor}}, http.StatusOK},
		{"denied", &Principal{UserID: "p1", Roles: []string{RolePatient}}, http.StatusForbidden},
		{"unauthenticated", nil, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			metrics := &recordingMetrics{}
			called := false
			handler := RequirePermissionWithMetrics("dossier:read", perms, metrics)(okHandler(&called))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tc.principal != nil {
				req = req.WithContext(ContextWithPrincipal(req.Context(), tc.principal))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tc.want {
				t.Errorf("Expected status %d, got %d", tc.want, rr.Code)
			}
			if called != (tc.want == http.StatusOK) {
				t.Errorf("Handler called = %v for status %d", called, tc.want)
			}
			if len(metrics.checks) != 1 {
				t.Errorf("Expected one permission check recorded, got %d", len(metrics.checks))
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	called := false
	handler := RequireRole(RoleDoctor, RoleAdmin)(okHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), &Principal{UserID: "p1", Roles: []string{RolePatient}}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden || called {
		t.Errorf("Expected patient to be forbidden, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), &Principal{UserID: "a1", Roles: []string{RoleAdmin}}))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !called {
		t.Errorf("Expected admin to pass, got %d", rr.Code)
	}
}
