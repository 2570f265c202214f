package dossier

import (
	"net/http"
	"strings"

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

// GetOwn handles GET /dossiers/me
func (h *Handler) GetOwn(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	h.get(w, r, principal, principal.UserID)
}

// UpdateOwn handles PATCH /dossiers/me
func (h *Handler) UpdateOwn(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	h.update(w, r, principal, principal.UserID)
}

// GetPatient handles GET /patients/{patientId}/dossier
func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	h.get(w, r, principal, mux.Vars(r)["patientId"])
}

// UpdatePatient handles PATCH /patients/{patientId}/dossier
func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	h.update(w, r, principal, mux.Vars(r)["patientId"])
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, principal *auth.Principal, patientID string) {
	d, err := h.service.Get(r.Context(), principal, patientID)
	if err != nil {
		apierror.Handle(w, r, "get dossier", err)
		return
	}
	apierror.JSON(w, http.StatusOK, d)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, principal *auth.Principal, patientID string) {
	var req UpdateRequest
	if err := apierror.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, err)
		return
	}
	d, err := h.service.Update(r.Context(), principal, patientID, req)
	if err != nil {
		apierror.Handle(w, r, "update dossier", err)
		return
	}
	apierror.JSON(w, http.StatusOK, d)
}

// AddEntry handles POST /patients/{patientId}/dossier/entries
func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	var req CreateEntryRequest
	if err := apierror.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, err)
		return
	}
	e, err := h.service.AddEntry(r.Context(), principal, mux.Vars(r)["patientId"], req)
	if err != nil {
		apierror.Handle(w, r, "add dossier entry", err)
		return
	}
	apierror.JSON(w, http.StatusCreated, e)
}

// ListEntries handles GET /patients/{patientId}/dossier/entries?type=
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	f := EntryFilter{Type: strings.ToUpper(r.URL.Query().Get("type"))}
	page, err := h.service.ListEntries(r.Context(), principal, mux.Vars(r)["patientId"], f, pagination.ParseParams(r))
	if err != nil {
		apierror.Handle(w, r, "list dossier entries", err)
		return
	}
	apierror.JSON(w, http.StatusOK, page)
}

// DeleteEntry handles DELETE /patients/{patientId}/dossier/entries/{entryId}
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	vars := mux.Vars(r)
	if err := h.service.DeleteEntry(r.Context(), principal, vars["patientId"], vars["entryId"]); err != nil {
		apierror.Handle(w, r, "delete dossier entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
