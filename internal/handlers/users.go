package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clipstream/backend/internal/apperror"
	"github.com/clipstream/backend/internal/models"
)

// mediaUpdate persists a new media URL for a user.
type mediaUpdate func(ctx context.Context, userID, url string) (models.Profile, error)

// UserHandler implements account detail, channel profile and watch history
// endpoints.
type UserHandler struct {
	Credentials CredentialStore
	Sessions    SessionManager
	Tokens      TokenVerifier
	Views       ViewBuilder
	Media       BlobStorage
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type updateMediaRequest struct {
	URL string `json:"url"`
}

// Me handles GET /users/me.
func (h UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := requireViewer(h.Tokens, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	profile, err := h.Sessions.CurrentUser(ctx, userID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, profile, "current user found successfully")
}

// ChangePassword handles PATCH /users/password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := requireViewer(h.Tokens, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, apperror.Validation("invalid request body"))
		return
	}

	if err := h.Credentials.ChangePassword(ctx, userID, req.OldPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"passwordChanged": true}, "password changed successfully")
}

// UpdateAccount handles PATCH /users/account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := requireViewer(h.Tokens, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, apperror.Validation("invalid request body"))
		return
	}

	profile, err := h.Credentials.UpdateAccount(ctx, userID, req.FullName, req.Email)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, profile, "account details updated successfully")
}

// UpdateAvatar handles PATCH /users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateMedia(w, r, "avatar", h.Credentials.UpdateAvatar)
}

// UpdateCover handles PATCH /users/cover.
func (h UserHandler) UpdateCover(w http.ResponseWriter, r *http.Request) {
	h.updateMedia(w, r, "coverImage", h.Credentials.UpdateCover)
}

// Channel handles GET /users/channel/{username}. Auth is optional; a signed-in
// viewer gets isSubscribed stamped against their own subscriptions.
func (h UserHandler) Channel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	viewer := viewerID(h.Tokens, r)
	username := r.PathValue("username")

	channel, err := h.Views.ChannelProfile(ctx, viewer, username)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, channel, "user channel fetched successfully")
}

// WatchHistory handles GET /users/watch-history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := requireViewer(h.Tokens, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	history, err := h.Views.WatchHistory(ctx, userID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, history, "watch history fetched successfully")
}

// updateMedia accepts either a multipart upload (stored through the blob
// store) or a JSON body carrying a pre-resolved URL.
func (h UserHandler) updateMedia(w http.ResponseWriter, r *http.Request, field string, update mediaUpdate) {
	ctx := r.Context()

	userID, err := requireViewer(h.Tokens, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var url string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			respondError(ctx, w, apperror.Validation("invalid multipart form"))
			return
		}
		url, err = storeUpload(r, h.Media, field)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
	} else {
		var req updateMediaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(ctx, w, apperror.Validation("invalid request body"))
			return
		}
		url = req.URL
	}

	profile, err := update(ctx, userID, url)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, profile, field+" updated successfully")
}
