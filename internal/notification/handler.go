package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/medconnect/backend/internal/apierror"
	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/pagination"
)

// ServiceInterface defines the contract used by the HTTP handler.
type ServiceInterface interface {
	List(ctx context.Context, userID string, f ListFilter, params pagination.Params) (*pagination.Page[Notification], error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
	Subscribe(ctx context.Context, userID string) (<-chan *Notification, error)
}

var _ ServiceInterface = (*Service)(nil)

const defaultHeartbeat = 25 * time.Second

type Handler struct {
	service   ServiceInterface
	heartbeat time.Duration
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service, heartbeat: defaultHeartbeat}
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	pr, ok := auth.FromContext(r.Context())
	if !ok {
		apierror.Respond(w, http.StatusUnauthorized, apierror.KindUnauthorized, "unauthorized")
	}
	return pr, ok
}

// List handles GET /notifications?unread=true
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	pr, ok := h.principal(w, r)
	if !ok {
		return
	}
	f := ListFilter{UnreadOnly: r.URL.Query().Get("unread") == "true"}
	page, err := h.service.List(r.Context(), pr.UserID, f, pagination.ParseParams(r))
	if err != nil {
		apierror.Handle(w, r, "list notifications", err)
		return
	}
	apierror.JSON(w, http.StatusOK, page)
}

// UnreadCount handles GET /notifications/unread-count
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	pr, ok := h.principal(w, r)
	if !ok {
		return
	}
	n, err := h.service.UnreadCount(r.Context(), pr.UserID)
	if err != nil {
		apierror.Handle(w, r, "count unread notifications", err)
		return
	}
	apierror.JSON(w, http.StatusOK, map[string]int{"count": n})
}

// MarkRead handles POST /notifications/{id}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	pr, ok := h.principal(w, r)
	if !ok {
		return
	}
	if err := h.service.MarkRead(r.Context(), pr.UserID, mux.Vars(r)["id"]); err != nil {
		apierror.Handle(w, r, "mark notification read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /notifications/read-all
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	pr, ok := h.principal(w, r)
	if !ok {
		return
	}
	n, err := h.service.MarkAllRead(r.Context(), pr.UserID)
	if err != nil {
		apierror.Handle(w, r, "mark all notifications read", err)
		return
	}
	apierror.JSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// Delete handles DELETE /notifications/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	pr, ok := h.principal(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), pr.UserID, mux.Vars(r)["id"]); err != nil {
		apierror.Handle(w, r, "delete notification", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stream handles GET /notifications/stream as Server-Sent Events.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	pr, ok := h.principal(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		apierror.Respond(w, http.StatusInternalServerError, apierror.KindInternal, "streaming not supported")
		return
	}

	ctx := r.Context()
	events, err := h.service.Subscribe(ctx, pr.UserID)
	if err != nil {
		apierror.Handle(w, r, "subscribe notifications", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, "connected", map[string]interface{}{"userId": pr.UserID, "timestamp": time.Now().UTC()})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("user_id", pr.UserID).Msg("notification stream closed")
			return
		case <-ticker.C:
			writeEvent(w, "heartbeat", map[string]interface{}{"timestamp": time.Now().UTC()})
			flusher.Flush()
		case n, ok := <-events:
			if !ok {
				return
			}
			writeEvent(w, "notification", n)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal SSE payload")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
