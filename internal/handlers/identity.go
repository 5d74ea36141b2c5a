package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/clipstream/backend/internal/apperror"
	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/models"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

// bearerToken extracts the access token from the Authorization header or,
// failing that, the accessToken cookie.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie(accessCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// viewerID resolves the optional caller identity. Anonymous or invalid
// credentials yield an empty id, never an error.
func viewerID(tokens TokenVerifier, r *http.Request) string {
	token := bearerToken(r)
	if token == "" {
		return ""
	}
	userID, err := tokens.Verify(token, auth.AccessToken)
	if err != nil {
		return ""
	}
	return userID
}

// requireViewer resolves the caller identity, rejecting anonymous requests.
func requireViewer(tokens TokenVerifier, r *http.Request) (string, error) {
	token := bearerToken(r)
	if token == "" {
		return "", apperror.Auth("authentication required")
	}
	userID, err := tokens.Verify(token, auth.AccessToken)
	if err != nil {
		return "", apperror.Auth("invalid or expired token")
	}
	return userID, nil
}

// refreshTokenFrom reads the refresh token from the cookie, falling back to
// the request body field for non-cookie clients.
func refreshTokenFrom(r *http.Request, bodyToken string) string {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return strings.TrimSpace(bodyToken)
}

func setAuthCookies(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
