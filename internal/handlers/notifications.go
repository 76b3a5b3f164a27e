package handlers

import (
	"net/http"

	"github.com/benvon/smart-tasks/internal/models"
	"github.com/benvon/smart-tasks/internal/request"
	"github.com/benvon/smart-tasks/internal/reminders"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NotificationHandler exposes the caller's notification feed
type NotificationHandler struct {
	feed   reminders.Feed
	logger *zap.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(feed reminders.Feed, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{feed: feed, logger: logger}
}

// FeedResponse is the body of GET /api/notifications
type FeedResponse struct {
	Entries []models.Notification `json:"entries"`
	Unread  int                   `json:"unread"`
}

// RegisterRoutes registers feed routes on a subrouter mounted at /api/notifications
func (h *NotificationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListNotifications).Methods("GET")
	r.HandleFunc("", h.ClearNotifications).Methods("DELETE")
	r.HandleFunc("/read", h.MarkRead).Methods("POST")
}

func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	entries, err := h.feed.List(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	unread, err := h.feed.Unread(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []models.Notification{}
	}
	respondJSON(w, http.StatusOK, FeedResponse{Entries: entries, Unread: unread})
}

// MarkRead resets the unread counter without touching the entries
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	if err := h.feed.MarkRead(r.Context(), user.ID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	if err := h.feed.Clear(r.Context(), user.ID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
