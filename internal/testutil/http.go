package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

// NewJSONRequest builds a request with body encoded as JSON. A nil body sends no payload.
func NewJSONRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// AsUser attaches a principal for userID/role to req.
func AsUser(req *http.Request, userID, role string) *http.Request {
	return req.WithContext(WithPrincipal(req.Context(), userID, role))
}

// WithVars sets gorilla/mux route variables on req.
func WithVars(req *http.Request, vars map[string]string) *http.Request {
	return mux.SetURLVars(req, vars)
}

// DecodeBody decodes a recorded JSON response into v.
func DecodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response body %q: %v", rr.Body.String(), err)
	}
}

// HTTPTestClient calls a running test server with a bearer token.
type HTTPTestClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPTestClient(baseURL, token string) *HTTPTestClient {
	return &HTTPTestClient{BaseURL: baseURL, Token: token, Client: &http.Client{}}
}

// Do sends a JSON request and returns the response. The caller closes the body.
func (c *HTTPTestClient) Do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

// ParseJSONResponse decodes and closes resp.
func ParseJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}
