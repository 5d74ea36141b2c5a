package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/clipstream/backend/internal/apperror"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// VideoHandler records watch events against the catalog.
type VideoHandler struct {
	Tokens  TokenVerifier
	Videos  VideoStore
	History WatchHistoryStore

	// NowFunc allows tests to pin timestamps. Defaults to time.Now.
	NowFunc func() time.Time
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

// RecordView handles POST /videos/{videoId}/view. Every view appends a fresh
// history entry; rewatches are kept.
func (h VideoHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := requireViewer(h.Tokens, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	videoID := r.PathValue("videoId")
	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, apperror.NotFound("video not found"))
			return
		}
		respondError(ctx, w, err)
		return
	}

	entry := models.WatchEntry{
		UserID:    userID,
		VideoID:   videoID,
		WatchedAt: h.now(),
	}
	if err := h.History.Append(ctx, entry); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, apperror.NotFound("video not found"))
			return
		}
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]string{"videoId": videoID}, "view recorded successfully")
}
