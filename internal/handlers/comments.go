package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/apperror"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
	"github.com/clipstream/backend/internal/views"
)

// CommentHandler implements the comment feed, comment mutations and the
// comment like toggle.
type CommentHandler struct {
	Tokens   TokenVerifier
	Views    ViewBuilder
	Comments CommentStore
	Videos   VideoStore
	Likes    LikeStore

	// NowFunc allows tests to pin timestamps. Defaults to time.Now.
	NowFunc func() time.Time
}

type commentRequest struct {
	Content string `json:"content"`
}

type commentPayload struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func commentResponse(c models.Comment) commentPayload {
	return commentPayload{
		ID:        c.ID,
		VideoID:   c.VideoID,
		OwnerID:   c.OwnerID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

// Feed handles GET /comments/{videoId}. Auth is optional; a signed-in viewer
// gets isLiked stamped against their own likes.
func (h CommentHandler) Feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := views.ParsePageRequest(r.URL.Query().Get("page"), r.URL.Query().Get("limit"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	viewer := viewerID(h.Tokens, r)
	feed, err := h.Views.VideoComments(ctx, viewer, r.PathValue("videoId"), page)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, feed, "comments fetched successfully")
}

// Add handles POST /comments/{videoId}.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := requireViewer(h.Tokens, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, apperror.Validation("invalid request body"))
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, apperror.Validation("content is required"))
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

	now := h.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Comments.Create(ctx, comment); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, apperror.NotFound("video not found"))
			return
		}
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, commentResponse(comment), "comment added successfully")
}

// Update handles PATCH /comments/{commentId}. Only the author may edit.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := requireViewer(h.Tokens, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, apperror.Validation("invalid request body"))
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, apperror.Validation("content is required"))
		return
	}

	comment, err := h.ownedComment(r, userID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	updated, err := h.Comments.UpdateContent(ctx, comment.ID, content)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, apperror.NotFound("comment not found"))
			return
		}
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, commentResponse(updated), "comment updated successfully")
}

// Delete handles DELETE /comments/{commentId}. Only the author may delete;
// the comment's likes go with it.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := requireViewer(h.Tokens, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	comment, err := h.ownedComment(r, userID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Comments.Delete(ctx, comment.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, apperror.NotFound("comment not found"))
			return
		}
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"id": comment.ID}, "comment deleted successfully")
}

// ToggleLike handles POST /likes/comment/{commentId}. Liking a liked comment
// removes the like.
func (h CommentHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := requireViewer(h.Tokens, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	commentID := r.PathValue("commentId")
	if _, err := h.Comments.FindByID(ctx, commentID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, apperror.NotFound("comment not found"))
			return
		}
		respondError(ctx, w, err)
		return
	}

	existing, err := h.Likes.Find(ctx, commentID, userID)
	switch {
	case err == nil:
		if err := h.Likes.Delete(ctx, existing.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, map[string]bool{"liked": false}, "like removed successfully")
	case errors.Is(err, repositories.ErrNotFound):
		like := models.Like{
			ID:        uuid.NewString(),
			CommentID: commentID,
			UserID:    userID,
			CreatedAt: h.now(),
		}
		if err := h.Likes.Create(ctx, like); err != nil {
			if errors.Is(err, repositories.ErrConflict) {
				// Lost a toggle race; the like already exists.
				respondJSON(ctx, w, http.StatusOK, map[string]bool{"liked": true}, "comment liked successfully")
				return
			}
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, map[string]bool{"liked": true}, "comment liked successfully")
	default:
		respondError(ctx, w, err)
	}
}

// ownedComment loads the path comment and verifies the caller authored it.
func (h CommentHandler) ownedComment(r *http.Request, userID string) (models.Comment, error) {
	comment, err := h.Comments.FindByID(r.Context(), r.PathValue("commentId"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Comment{}, apperror.NotFound("comment not found")
		}
		return models.Comment{}, err
	}
	if comment.OwnerID != userID {
		return models.Comment{}, apperror.Forbidden("only the comment owner can modify it")
	}
	return comment, nil
}
