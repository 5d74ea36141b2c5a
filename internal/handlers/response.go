package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/clipstream/backend/internal/apperror"
	"github.com/clipstream/backend/internal/logging"
)

// envelope is the shared response shape: {status, data, message} on success,
// {status, message} on error.
type envelope struct {
	Status  int    `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload := envelope{Status: status, Data: data, Message: message}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}

// respondError maps an error through the apperror taxonomy. Errors outside
// the taxonomy become a generic 500 so internals never leak to clients.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status := apperror.StatusOf(err)
	message := apperror.MessageOf(err)

	logger := logging.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request returned client error", "status", status, "message", message)
	}

	respondJSON(ctx, w, status, nil, message)
}
