package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/clipstream/backend/internal/apperror"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// UserStore captures the user persistence operations the auth services need.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) error
	ClearRefreshToken(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateAccount(ctx context.Context, userID, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, userID, url string) (models.User, error)
	UpdateCover(ctx context.Context, userID, url string) (models.User, error)
}

// SessionManager owns the access/refresh token lifecycle. A user holds at
// most one live refresh token; issuing a new pair invalidates the prior one.
type SessionManager struct {
	users  UserStore
	tokens *TokenService
	hasher *Hasher
}

// NewSessionManager wires the session lifecycle against its collaborators.
func NewSessionManager(users UserStore, tokens *TokenService, hasher *Hasher) *SessionManager {
	if users == nil || tokens == nil || hasher == nil {
		panic("auth: session manager dependencies must not be nil")
	}
	return &SessionManager{users: users, tokens: tokens, hasher: hasher}
}

// Login resolves the user by username or email, checks the password and
// issues a fresh token pair. The refresh token is persisted on the user
// record, unconditionally replacing any previous session.
func (m *SessionManager) Login(ctx context.Context, identifier, password string) (models.TokenPair, models.Profile, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return models.TokenPair{}, models.Profile{}, apperror.Validation("username or email and password are required")
	}

	user, err := m.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.TokenPair{}, models.Profile{}, apperror.Auth("no such user")
		}
		return models.TokenPair{}, models.Profile{}, fmt.Errorf("find user %q: %w", identifier, err)
	}

	ok, err := m.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		return models.TokenPair{}, models.Profile{}, apperror.Internal("could not verify credentials")
	}
	if !ok {
		return models.TokenPair{}, models.Profile{}, apperror.Auth("bad credentials")
	}

	pair, err := m.tokens.IssuePair(user.ID)
	if err != nil {
		return models.TokenPair{}, models.Profile{}, fmt.Errorf("issue token pair: %w", err)
	}

	if err := m.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return models.TokenPair{}, models.Profile{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return pair, user.AccountProfile(), nil
}

// Refresh exchanges a presented refresh token for a new pair, rotating the
// persisted value. Presenting a token that no longer matches the stored one
// is treated as reuse and forces a re-login.
func (m *SessionManager) Refresh(ctx context.Context, presented string) (models.TokenPair, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return models.TokenPair{}, apperror.Auth("unauthorized")
	}

	userID, err := m.tokens.Verify(presented, RefreshToken)
	if err != nil {
		return models.TokenPair{}, apperror.Auth("invalid token")
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.TokenPair{}, apperror.Auth("invalid token")
		}
		return models.TokenPair{}, fmt.Errorf("find user %s: %w", userID, err)
	}

	if subtle.ConstantTimeCompare([]byte(presented), []byte(user.RefreshToken)) != 1 {
		return models.TokenPair{}, apperror.Auth("refresh token reused or expired")
	}

	pair, err := m.tokens.IssuePair(user.ID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("issue token pair: %w", err)
	}

	// Conditional rotation: only the caller holding the current stored value
	// wins. A concurrent refresh with the same stale token loses here.
	if err := m.users.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.TokenPair{}, apperror.Auth("refresh token reused or expired")
		}
		return models.TokenPair{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	return pair, nil
}

// Logout clears the stored refresh token. Calling it for an already
// logged-out or unknown user is a no-op.
func (m *SessionManager) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return apperror.Validation("user id is required")
	}
	if err := m.users.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// CurrentUser returns the sanitized profile for an authenticated user.
func (m *SessionManager) CurrentUser(ctx context.Context, userID string) (models.Profile, error) {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Profile{}, apperror.NotFound("user not found")
		}
		return models.Profile{}, fmt.Errorf("find user %s: %w", userID, err)
	}
	return user.AccountProfile(), nil
}
