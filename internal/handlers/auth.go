package handlers

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/apperror"
	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
)

// maxUploadBytes caps multipart registration payloads.
const maxUploadBytes = 10 << 20

// AuthHandler implements registration, login, logout and token refresh.
type AuthHandler struct {
	Credentials  CredentialStore
	Sessions     SessionManager
	Tokens       TokenVerifier
	Media        BlobStorage
	LoginLimiter RateLimiter
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatarUrl"`
	Cover    string `json:"coverImageUrl"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type loginResponse struct {
	User   models.Profile   `json:"user"`
	Tokens models.TokenPair `json:"tokens"`
}

// Register handles POST /users/register. Media may arrive as multipart file
// uploads (stored through the blob store) or as pre-resolved URLs in a JSON
// body.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Credentials == nil {
		logger.Error("credential store unavailable")
		respondError(ctx, w, apperror.Internal("registration unavailable"))
		return
	}

	var input auth.RegisterInput

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			respondError(ctx, w, apperror.Validation("invalid multipart form"))
			return
		}
		input = auth.RegisterInput{
			FullName: r.FormValue("fullName"),
			Username: r.FormValue("username"),
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
		}

		avatarURL, err := storeUpload(r, h.Media, "avatar")
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		coverURL, err := storeUpload(r, h.Media, "coverImage")
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		input.AvatarURL = avatarURL
		input.CoverURL = coverURL
	} else {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(ctx, w, apperror.Validation("invalid request body"))
			return
		}
		input = auth.RegisterInput{
			FullName:  req.FullName,
			Username:  req.Username,
			Email:     req.Email,
			Password:  req.Password,
			AvatarURL: req.Avatar,
			CoverURL:  req.Cover,
		}
	}

	profile, err := h.Credentials.Register(ctx, input)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, profile, "user registered successfully")
}

// Login handles POST /users/login.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondError(ctx, w, apperror.Internal("authentication unavailable"))
		return
	}

	if h.LoginLimiter != nil && !h.LoginLimiter.Allow(clientIP(r)) {
		respondJSON(ctx, w, http.StatusTooManyRequests, nil, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, apperror.Validation("invalid request body"))
		return
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}

	pair, profile, err := h.Sessions.Login(ctx, identifier, req.Password)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	setAuthCookies(w, pair)
	respondJSON(ctx, w, http.StatusOK, loginResponse{User: profile, Tokens: pair}, "user logged in successfully")
}

// Logout handles POST /users/logout.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := requireViewer(h.Tokens, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Sessions.Logout(ctx, userID); err != nil {
		respondError(ctx, w, err)
		return
	}

	clearAuthCookies(w)
	respondJSON(ctx, w, http.StatusOK, nil, "user logged out")
}

// Refresh handles POST /users/refresh-token, rotating the token pair.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if r.Body != nil {
		// Body is optional when the cookie carries the token.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	presented := refreshTokenFrom(r, req.RefreshToken)
	pair, err := h.Sessions.Refresh(ctx, presented)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	setAuthCookies(w, pair)
	respondJSON(ctx, w, http.StatusOK, pair, "access token re-generated")
}

// storeUpload writes an uploaded form file to the blob store and returns its
// public URL. A missing file is not an error; callers validate required media.
func storeUpload(r *http.Request, media BlobStorage, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return "", nil
		}
		return "", apperror.Validation(fmt.Sprintf("invalid %s upload", field))
	}
	defer file.Close()

	if media == nil {
		return "", apperror.Internal("media storage unavailable")
	}

	key := fmt.Sprintf("media/%s/%s%s", field, uuid.NewString(), path.Ext(header.Filename))
	url, err := media.Save(r.Context(), key, file)
	if err != nil {
		return "", apperror.Internal(fmt.Sprintf("could not store %s image", field))
	}
	return url, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
