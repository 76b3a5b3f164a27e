package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benvon/smart-tasks/internal/lifecycle"
	"github.com/benvon/smart-tasks/internal/logger"
	"github.com/benvon/smart-tasks/internal/services/identity"
	"github.com/benvon/smart-tasks/internal/services/projects"
	"github.com/benvon/smart-tasks/internal/services/tasks"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage keeps client-facing messages short
func sanitizeErrorMessage(message string) string {
	if len(message) > maxErrorMessageLength {
		return message[:maxErrorMessageLength] + "..."
	}
	return message
}

// respondJSONError sends an error JSON response
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	respondJSONErrorFields(w, status, errorType, message, nil)
}

// respondJSONErrorFields sends an error JSON response with per-field details
func respondJSONErrorFields(w http.ResponseWriter, status int, errorType, message string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if len(fields) > 0 {
		response["fields"] = fields
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// decodeJSON reads a single JSON object from the request body into dst
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body must not exceed %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("request body must not be empty")
		default:
			return fmt.Errorf("invalid request body: %w", err)
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// pathUUID parses a UUID route variable
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// respondServiceError maps service errors to HTTP statuses
func respondServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		taskValidation     *tasks.ValidationError
		identityValidation *identity.ValidationError
		transition         *lifecycle.TransitionError
	)

	switch {
	case errors.As(err, &taskValidation):
		respondJSONErrorFields(w, http.StatusBadRequest, "Bad Request", "Validation failed", taskValidation.Fields)
	case errors.As(err, &identityValidation):
		respondJSONErrorFields(w, http.StatusBadRequest, "Bad Request", "Validation failed", identityValidation.Fields)
	case errors.As(err, &transition):
		respondJSONError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", transition.Error())
	case errors.Is(err, projects.ErrInvalidName), errors.Is(err, projects.ErrInvalidDescription):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, identity.ErrInvalidCode):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, tasks.ErrNotFound), errors.Is(err, tasks.ErrProjectNotFound), errors.Is(err, projects.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, identity.ErrInvalidCredentials), errors.Is(err, identity.ErrInvalidToken), errors.Is(err, identity.ErrUserNotFound):
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, identity.ErrEmailNotVerified):
		respondJSONError(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, identity.ErrEmailTaken):
		respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
	default:
		log.Error("request_failed", zap.String("error", logger.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
	}
}
