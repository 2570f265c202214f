package connection

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

// Create handles POST /connections
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
	c, err := h.service.Create(r.Context(), principal, req)
	if err != nil {
		apierror.Handle(w, r, "create connection request", err)
		return
	}
	apierror.JSON(w, http.StatusCreated, c)
}

// List handles GET /connections?status=&direction=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	q := r.URL.Query()
	f := ListFilter{Status: strings.ToUpper(q.Get("status")), Direction: strings.ToLower(q.Get("direction"))}
	page, err := h.service.List(r.Context(), principal, f, pagination.ParseParams(r))
	if err != nil {
		apierror.Handle(w, r, "list connection requests", err)
		return
	}
	apierror.JSON(w, http.StatusOK, page)
}

// Get handles GET /connections/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	c, err := h.service.Get(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		apierror.Handle(w, r, "get connection request", err)
		return
	}
	apierror.JSON(w, http.StatusOK, c)
}

// Accept handles POST /connections/{id}/accept. The body is optional.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	var req RespondRequest
	if r.ContentLength > 0 {
		if err := apierror.DecodeJSON(r, &req); err != nil {
			apierror.Write(w, err)
			return
		}
	}
	c, err := h.service.Accept(r.Context(), principal, mux.Vars(r)["id"], req)
	if err != nil {
		apierror.Handle(w, r, "accept connection request", err)
		return
	}
	apierror.JSON(w, http.StatusOK, c)
}

// Refuse handles POST /connections/{id}/refuse
func (h *Handler) Refuse(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	c, err := h.service.Refuse(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		apierror.Handle(w, r, "refuse connection request", err)
		return
	}
	apierror.JSON(w, http.StatusOK, c)
}

// Cancel handles POST /connections/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	c, err := h.service.Cancel(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		apierror.Handle(w, r, "cancel connection request", err)
		return
	}
	apierror.JSON(w, http.StatusOK, c)
}
