package chat

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

// Send handles POST /messages
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	var req SendRequest
	if err := apierror.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, err)
		return
	}
	m, err := h.service.Send(r.Context(), principal, req)
	if err != nil {
		apierror.Handle(w, r, "send message", err)
		return
	}
	apierror.JSON(w, http.StatusCreated, m)
}

// Conversations handles GET /conversations
func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	list, err := h.service.Conversations(r.Context(), principal)
	if err != nil {
		apierror.Handle(w, r, "list conversations", err)
		return
	}
	apierror.JSON(w, http.StatusOK, map[string]interface{}{"data": list})
}

// Messages handles GET /conversations/{userId}
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	page, err := h.service.Messages(r.Context(), principal, mux.Vars(r)["userId"], pagination.ParseParams(r))
	if err != nil {
		apierror.Handle(w, r, "list messages", err)
		return
	}
	apierror.JSON(w, http.StatusOK, page)
}

// MarkRead handles POST /conversations/{userId}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	n, err := h.service.MarkRead(r.Context(), principal, mux.Vars(r)["userId"])
	if err != nil {
		apierror.Handle(w, r, "mark conversation read", err)
		return
	}
	apierror.JSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// UnreadCount handles GET /messages/unread-count
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	n, err := h.service.UnreadCount(r.Context(), principal)
	if err != nil {
		apierror.Handle(w, r, "count unread messages", err)
		return
	}
	apierror.JSON(w, http.StatusOK, map[string]int{"count": n})
}
