// Package notifications implements the per-user notification inbox.
package notifications

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tidewater-dev/crewdeck/internal/api/middleware"
	"github.com/tidewater-dev/crewdeck/internal/models"
	"github.com/tidewater-dev/crewdeck/internal/policy"
	"github.com/tidewater-dev/crewdeck/internal/storage"
)

// Response helpers (local to avoid import cycle with api package)
type errorResponse struct {
	Error errorBody `json:"error"`
}
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeForbidden     = "FORBIDDEN"
	errCodeNotFound      = "NOT_FOUND"
	errCodeInternalError = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

type Handler struct {
	storage storage.Storage
}

func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// List returns the requesting user's notifications, newest first.
// ?unread_only=true filters to unread rows.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	unreadOnly := r.URL.Query().Get("unread_only") == "true"

	notifs, err := h.storage.Notifications().ListForUser(ctx, actor.ID, unreadOnly)
	if err != nil {
		log.Printf("list notifications error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if notifs == nil {
		notifs = []*models.Notification{}
	}
	jsonOK(w, notifs)
}

// UnreadCount returns the number of unread notifications for the requesting
// user. Kept separate from List so clients can poll it cheaply.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	count, err := h.storage.Notifications().UnreadCount(ctx, actor.ID)
	if err != nil {
		log.Printf("unread count error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonOK(w, map[string]int64{"count": count})
}

// MarkRead marks one notification as read. Marking an already-read
// notification succeeds without effect.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	notif, ok := h.fetchNotification(w, r)
	if !ok {
		return
	}
	if !policy.CanMutateNotification(actor, notif, policy.ActionUpdate) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	if err := h.storage.Notifications().MarkRead(ctx, notif.ID); err != nil {
		log.Printf("mark read error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	notif.Read = true
	jsonOK(w, notif)
}

// MarkAllRead marks every notification of the requesting user as read.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	if err := h.storage.Notifications().MarkAllRead(ctx, actor.ID); err != nil {
		log.Printf("mark all read error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonNoContent(w)
}

// Delete removes a notification from the recipient's inbox.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	notif, ok := h.fetchNotification(w, r)
	if !ok {
		return
	}
	if !policy.CanMutateNotification(actor, notif, policy.ActionDelete) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	if err := h.storage.Notifications().Delete(ctx, notif.ID); err != nil {
		log.Printf("delete notification error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonNoContent(w)
}

// fetchNotification loads a notification from the {id} URL parameter,
// writing the error response itself on failure.
func (h *Handler) fetchNotification(w http.ResponseWriter, r *http.Request) (*models.Notification, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "notification id required")
		return nil, false
	}

	notif, err := h.storage.Notifications().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get notification error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, false
	}
	if notif == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "notification not found")
		return nil, false
	}
	return notif, true
}
