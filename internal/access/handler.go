package access

import (
	"net/http"

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

// ListGrants handles GET /access
func (h *Handler) ListGrants(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	grants, err := h.service.ListGrants(r.Context(), principal)
	if err != nil {
		apierror.Handle(w, r, "list access grants", err)
		return
	}
	apierror.JSON(w, http.StatusOK, map[string]interface{}{"data": grants})
}

// ChangeLevel handles PATCH /access/{doctorId}
func (h *Handler) ChangeLevel(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	var req ChangeLevelRequest
	if err := apierror.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, err)
		return
	}
	g, err := h.service.ChangeLevel(r.Context(), principal, mux.Vars(r)["doctorId"], req)
	if err != nil {
		apierror.Handle(w, r, "change access level", err)
		return
	}
	apierror.JSON(w, http.StatusOK, g)
}

// Revoke handles DELETE /access/{doctorId}
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	if err := h.service.Revoke(r.Context(), principal, mux.Vars(r)["doctorId"]); err != nil {
		apierror.Handle(w, r, "revoke access", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPatients handles GET /doctor/patients?search=
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	page, err := h.service.ListPatients(r.Context(), principal, r.URL.Query().Get("search"), pagination.ParseParams(r))
	if err != nil {
		apierror.Handle(w, r, "list patients", err)
		return
	}
	apierror.JSON(w, http.StatusOK, page)
}
