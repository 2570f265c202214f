package users

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/medconnect/backend/internal/apierror"
	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/pagination"
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

// GetMe handles GET /users/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	u, err := h.service.GetProfile(r.Context(), principal)
	if err != nil {
		apierror.Handle(w, r, "get profile", err)
		return
	}
	apierror.JSON(w, http.StatusOK, u)
}

// UpdateMe handles PATCH /users/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	var req UpdateProfileRequest
	if err := apierror.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, err)
		return
	}
	u, err := h.service.UpdateProfile(r.Context(), principal, req)
	if err != nil {
		apierror.Handle(w, r, "update profile", err)
		return
	}
	apierror.JSON(w, http.StatusOK, u)
}

// ListDoctors handles GET /doctors?search=&specialty=
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.SearchDoctors(r.Context(),
		DoctorFilter{Search: q.Get("search"), Specialty: q.Get("specialty")},
		pagination.ParseParams(r))
	if err != nil {
		apierror.Handle(w, r, "list doctors", err)
		return
	}
	apierror.JSON(w, http.StatusOK, page)
}

// ListUsers handles GET /admin/users?role=&search=&active=
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ListFilter{Role: q.Get("role"), Search: q.Get("search")}
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			apierror.Write(w, apierror.Validation("active must be true or false"))
			return
		}
		f.Active = &active
	}
	page, err := h.service.ListUsers(r.Context(), f, pagination.ParseParams(r))
	if err != nil {
		apierror.Handle(w, r, "list users", err)
		return
	}
	apierror.JSON(w, http.StatusOK, page)
}

// GetUser handles GET /admin/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		apierror.Handle(w, r, "get user", err)
		return
	}
	apierror.JSON(w, http.StatusOK, u)
}

// UpdateStatus handles PATCH /admin/users/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	var req UpdateStatusRequest
	if err := apierror.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, err)
		return
	}
	u, err := h.service.SetStatus(r.Context(), principal, mux.Vars(r)["id"], req)
	if err != nil {
		apierror.Handle(w, r, "update user status", err)
		return
	}
	apierror.JSON(w, http.StatusOK, u)
}

// VerifyDoctor handles POST /admin/users/{id}/verify
func (h *Handler) VerifyDoctor(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	u, err := h.service.VerifyDoctor(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		apierror.Handle(w, r, "verify doctor", err)
		return
	}
	apierror.JSON(w, http.StatusOK, u)
}

// DeleteUser handles DELETE /admin/users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	if err := h.service.DeleteUser(r.Context(), principal, mux.Vars(r)["id"]); err != nil {
		apierror.Handle(w, r, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /admin/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Stats(r.Context())
	if err != nil {
		apierror.Handle(w, r, "user stats", err)
		return
	}
	apierror.JSON(w, http.StatusOK, s)
}
