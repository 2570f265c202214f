package account

import (
	"net/http"

	"github.com/medconnect/backend/internal/apierror"
	"github.com/medconnect/backend/internal/auth"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

func unauthorized(w http.ResponseWriter) {
	apierror.Respond(w, http.StatusUnauthorized, apierror.KindUnauthorized, "unauthorized")
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := apierror.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, err)
		return
	}
	u, err := h.service.Register(r.Context(), req)
	if err != nil {
		apierror.Handle(w, r, "register", err)
		return
	}
	apierror.JSON(w, http.StatusCreated, u)
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := apierror.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, err)
		return
	}
	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		apierror.Handle(w, r, "login", err)
		return
	}
	apierror.JSON(w, http.StatusOK, res)
}

// VerifyTwoFactor handles POST /auth/2fa/verify
func (h *Handler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req VerifyTwoFactorRequest
	if err := apierror.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, err)
		return
	}
	res, err := h.service.VerifyTwoFactor(r.Context(), req)
	if err != nil {
		apierror.Handle(w, r, "verify two factor", err)
		return
	}
	apierror.JSON(w, http.StatusOK, res)
}

// ResendTwoFactor handles POST /auth/2fa/resend
func (h *Handler) ResendTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req ResendTwoFactorRequest
	if err := apierror.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, err)
		return
	}
	res, err := h.service.ResendTwoFactor(r.Context(), req)
	if err != nil {
		apierror.Handle(w, r, "resend two factor", err)
		return
	}
	apierror.JSON(w, http.StatusOK, res)
}

// Refresh handles POST /auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := apierror.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, err)
		return
	}
	pair, err := h.service.Refresh(r.Context(), req)
	if err != nil {
		apierror.Handle(w, r, "refresh token", err)
		return
	}
	apierror.JSON(w, http.StatusOK, pair)
}

// Logout handles POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := apierror.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, err)
		return
	}
	if err := h.service.Logout(r.Context(), req); err != nil {
		apierror.Handle(w, r, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	u, err := h.service.Me(r.Context(), principal)
	if err != nil {
		apierror.Handle(w, r, "get current user", err)
		return
	}
	apierror.JSON(w, http.StatusOK, u)
}

// ChangePassword handles POST /auth/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	var req ChangePasswordRequest
	if err := apierror.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), principal, req); err != nil {
		apierror.Handle(w, r, "change password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
