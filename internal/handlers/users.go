package handlers

import (
	"context"
	"net/http"

	"github.com/benvon/smart-tasks/internal/models"
	"github.com/benvon/smart-tasks/internal/request"
	"github.com/benvon/smart-tasks/internal/services/identity"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// PreferenceService updates a user's notification settings
type PreferenceService interface {
	SetNotificationPreferences(ctx context.Context, user *models.User, enabled bool, subscriptionID *string) (*models.User, error)
}

var _ PreferenceService = (*identity.Service)(nil)

// UserHandler serves the current user's profile
type UserHandler struct {
	service PreferenceService
	logger  *zap.Logger
}

func NewUserHandler(service PreferenceService, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{service: service, logger: logger}
}

type notificationPreferencesRequest struct {
	Enabled        *bool   `json:"enabled"`
	SubscriptionID *string `json:"subscription_id"`
}

// RegisterRoutes registers user routes on a subrouter mounted at /api/users
func (h *UserHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods("GET")
	r.HandleFunc("/me/notifications", h.UpdateNotifications).Methods("PATCH")
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateNotifications grants or revokes notification permission.
// An omitted enabled flag keeps the current setting.
func (h *UserHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	var req notificationPreferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	enabled := user.NotificationsEnabled
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	updated, err := h.service.SetNotificationPreferences(r.Context(), user, enabled, req.SubscriptionID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}
