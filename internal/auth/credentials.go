package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/apperror"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// RegisterInput carries the fields required to create an account. Avatar and
// cover are URLs returned by the blob store; the avatar is mandatory.
type RegisterInput struct {
	FullName  string
	Username  string
	Email     string
	Password  string
	AvatarURL string
	CoverURL  string
}

// CredentialService owns account creation and credential mutation. It never
// exposes the password hash or the live refresh token to callers.
type CredentialService struct {
	users   UserStore
	hasher  *Hasher
	NowFunc func() time.Time
}

// NewCredentialService constructs the credential service.
func NewCredentialService(users UserStore, hasher *Hasher) *CredentialService {
	if users == nil || hasher == nil {
		panic("auth: credential service dependencies must not be nil")
	}
	return &CredentialService{users: users, hasher: hasher}
}

// Register validates the input, enforces username/email uniqueness and
// persists the new user with a hashed password.
func (s *CredentialService) Register(ctx context.Context, input RegisterInput) (models.Profile, error) {
	input.FullName = strings.TrimSpace(input.FullName)
	input.Username = strings.ToLower(strings.TrimSpace(input.Username))
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if input.FullName == "" || input.Username == "" || input.Email == "" || input.Password == "" {
		return models.Profile{}, apperror.Validation("fullName, username, email and password are required")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return models.Profile{}, apperror.Validation("invalid email address")
	}
	if len(input.Password) < 8 {
		return models.Profile{}, apperror.Validation("password must be at least 8 characters")
	}
	if strings.TrimSpace(input.AvatarURL) == "" {
		return models.Profile{}, apperror.Validation("avatar image is required")
	}

	// Pre-check for friendlier errors; the unique constraints still close the
	// race window at insert time.
	for _, identifier := range []string{input.Username, input.Email} {
		if _, err := s.users.FindByIdentifier(ctx, identifier); err == nil {
			return models.Profile{}, apperror.Conflict("user with this username or email already exists")
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return models.Profile{}, fmt.Errorf("check existing user: %w", err)
		}
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return models.Profile{}, apperror.Internal("could not secure password")
	}

	now := s.now()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		FullName:     input.FullName,
		PasswordHash: hash,
		AvatarURL:    input.AvatarURL,
		CoverURL:     input.CoverURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.Profile{}, apperror.Conflict("user with this username or email already exists")
		}
		return models.Profile{}, fmt.Errorf("create user: %w", err)
	}

	return user.AccountProfile(), nil
}

// ChangePassword verifies the old password before storing a hash of the new one.
func (s *CredentialService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirmPassword string) error {
	if oldPassword == "" {
		return apperror.Validation("old password is required")
	}
	if newPassword == "" || newPassword != confirmPassword {
		return apperror.Validation("new password and confirmation do not match")
	}
	if len(newPassword) < 8 {
		return apperror.Validation("password must be at least 8 characters")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperror.NotFound("user not found")
		}
		return fmt.Errorf("find user %s: %w", userID, err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, oldPassword)
	if err != nil {
		return apperror.Internal("could not verify credentials")
	}
	if !ok {
		return apperror.Validation("old password is incorrect")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperror.Internal("could not secure password")
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdateAccount replaces the mutable account detail fields.
func (s *CredentialService) UpdateAccount(ctx context.Context, userID, fullName, email string) (models.Profile, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" {
		return models.Profile{}, apperror.Validation("fullName and email are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.Profile{}, apperror.Validation("invalid email address")
	}

	user, err := s.users.UpdateAccount(ctx, userID, fullName, email)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return models.Profile{}, apperror.NotFound("user not found")
		case errors.Is(err, repositories.ErrConflict):
			return models.Profile{}, apperror.Conflict("email already in use")
		}
		return models.Profile{}, fmt.Errorf("update account: %w", err)
	}
	return user.AccountProfile(), nil
}

// UpdateAvatar stores the new avatar URL for the user.
func (s *CredentialService) UpdateAvatar(ctx context.Context, userID, url string) (models.Profile, error) {
	if strings.TrimSpace(url) == "" {
		return models.Profile{}, apperror.Validation("avatar image is required")
	}
	user, err := s.users.UpdateAvatar(ctx, userID, url)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Profile{}, apperror.NotFound("user not found")
		}
		return models.Profile{}, fmt.Errorf("update avatar: %w", err)
	}
	return user.AccountProfile(), nil
}

// UpdateCover stores the new cover image URL for the user.
func (s *CredentialService) UpdateCover(ctx context.Context, userID, url string) (models.Profile, error) {
	if strings.TrimSpace(url) == "" {
		return models.Profile{}, apperror.Validation("cover image is required")
	}
	user, err := s.users.UpdateCover(ctx, userID, url)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Profile{}, apperror.NotFound("user not found")
		}
		return models.Profile{}, fmt.Errorf("update cover: %w", err)
	}
	return user.AccountProfile(), nil
}

func (s *CredentialService) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}
