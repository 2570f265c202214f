package appointment

import (
	"net/http"
	"strings"
	"time"

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

// Create handles POST /appointments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	var req CreateRequest
	if err := apierror.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, err)
		return
	}
	a, err := h.service.Create(r.Context(), principal, req)
	if err != nil {
		apierror.Handle(w, r, "create appointment", err)
		return
	}
	apierror.JSON(w, http.StatusCreated, a)
}

func parseTime(raw, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apierror.Validation(name + " must be an RFC 3339 timestamp")
	}
	return &t, nil
}

// List handles GET /appointments?status=&from=&to=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	q := r.URL.Query()
	from, err := parseTime(q.Get("from"), "from")
	if err != nil {
		apierror.Write(w, err)
		return
	}
	to, err := parseTime(q.Get("to"), "to")
	if err != nil {
		apierror.Write(w, err)
		return
	}
	f := ListFilter{Status: strings.ToUpper(q.Get("status")), From: from, To: to}
	page, err := h.service.List(r.Context(), principal, f, pagination.ParseParams(r))
	if err != nil {
		apierror.Handle(w, r, "list appointments", err)
		return
	}
	apierror.JSON(w, http.StatusOK, page)
}

// Get handles GET /appointments/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	a, err := h.service.Get(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		apierror.Handle(w, r, "get appointment", err)
		return
	}
	apierror.JSON(w, http.StatusOK, a)
}

// Confirm handles POST /appointments/{id}/confirm
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	a, err := h.service.Confirm(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		apierror.Handle(w, r, "confirm appointment", err)
		return
	}
	apierror.JSON(w, http.StatusOK, a)
}

// Cancel handles POST /appointments/{id}/cancel. The body is optional.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	var req CancelRequest
	if r.ContentLength > 0 {
		if err := apierror.DecodeJSON(r, &req); err != nil {
			apierror.Write(w, err)
			return
		}
	}
	a, err := h.service.Cancel(r.Context(), principal, mux.Vars(r)["id"], req)
	if err != nil {
		apierror.Handle(w, r, "cancel appointment", err)
		return
	}
	apierror.JSON(w, http.StatusOK, a)
}

// Complete handles POST /appointments/{id}/complete
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	a, err := h.service.Complete(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		apierror.Handle(w, r, "complete appointment", err)
		return
	}
	apierror.JSON(w, http.StatusOK, a)
}
