package account

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/testutil"
	"github.com/medconnect/backend/internal/users"
)

func TestHandler_Register(t *testing.T) {
	h := NewHandler(newFixture(t, false).svc)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", map[string]string{
		"email": "new@example.com", "password": testPassword, "firstName": "New", "lastName": "User", "role": "PATIENT",
	})
	rr := httptest.NewRecorder()
	h.Register(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "password")
	var u users.User
	testutil.DecodeBody(t, rr, &u)
	assert.Equal(t, "new@example.com", u.Email)
}

func TestHandler_Register_DuplicateEmail(t *testing.T) {
	f := newFixture(t, false)
	f.patient(t)
	h := NewHandler(f.svc)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", map[string]string{
		"email": "ana@example.com", "password": testPassword, "firstName": "Ana", "lastName": "Again", "role": "PATIENT",
	})
	rr := httptest.NewRecorder()
	h.Register(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandler_LoginAndRefresh(t *testing.T) {
	f := newFixture(t, false)
	f.patient(t)
	h := NewHandler(f.svc)

	rr := httptest.NewRecorder()
	h.Login(rr, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "ana@example.com", "password": testPassword}))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		TwoFactorRequired bool   `json:"twoFactorRequired"`
		AccessToken       string `json:"accessToken"`
		RefreshToken      string `json:"refreshToken"`
		TokenType         string `json:"tokenType"`
	}
	testutil.DecodeBody(t, rr, &body)
	assert.False(t, body.TwoFactorRequired)
	assert.NotEmpty(t, body.AccessToken)
	assert.Equal(t, "Bearer", body.TokenType)

	rr = httptest.NewRecorder()
	h.Refresh(rr, testutil.NewJSONRequest(t, http.MethodPost, "/auth/refresh",
		map[string]string{"refreshToken": body.RefreshToken}))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandler_Login_BadCredentials(t *testing.T) {
	h := NewHandler(newFixture(t, false).svc)

	rr := httptest.NewRecorder()
	h.Login(rr, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "ghost@example.com", "password": testPassword}))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_Login_ChallengeResponse(t *testing.T) {
	f := newFixture(t, true)
	f.patient(t)
	h := NewHandler(f.svc)

	rr := httptest.NewRecorder()
	h.Login(rr, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "ana@example.com", "password": testPassword}))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "accessToken")
	var body map[string]interface{}
	testutil.DecodeBody(t, rr, &body)
	assert.Equal(t, true, body["twoFactorRequired"])
	assert.NotEmpty(t, body["challengeId"])
}

func TestHandler_Logout(t *testing.T) {
	h := NewHandler(newFixture(t, false).svc)

	rr := httptest.NewRecorder()
	h.Logout(rr, testutil.NewJSONRequest(t, http.MethodPost, "/auth/logout", map[string]string{"refreshToken": "whatever"}))

	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestHandler_Me(t *testing.T) {
	f := newFixture(t, false)
	u := f.patient(t)
	h := NewHandler(f.svc)

	rr := httptest.NewRecorder()
	h.Me(rr, testutil.AsUser(httptest.NewRequest(http.MethodGet, "/auth/me", nil), u.ID, auth.RolePatient))

	require.Equal(t, http.StatusOK, rr.Code)
	var got users.User
	testutil.DecodeBody(t, rr, &got)
	assert.Equal(t, u.ID, got.ID)

	rr = httptest.NewRecorder()
	h.Me(rr, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_ChangePassword_UnknownField(t *testing.T) {
	h := NewHandler(newFixture(t, false).svc)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/password", map[string]string{"password": "x"})
	rr := httptest.NewRecorder()
	h.ChangePassword(rr, testutil.AsUser(req, "u1", auth.RolePatient))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
