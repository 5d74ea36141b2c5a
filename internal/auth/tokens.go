package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clipstream/backend/internal/models"
)

const tokenIssuer = "clipstream"

var (
	// ErrTokenInvalid indicates a token failed signature or claim checks.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired indicates a token that verified but is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// TokenKind distinguishes the two halves of an issued pair.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// TokenService signs and verifies the HS256 token pair. Access tokens are
// stateless; refresh tokens are additionally persisted on the user record so
// they can be revoked server-side.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type sessionClaims struct {
	Kind TokenKind `json:"knd"`
	jwt.RegisteredClaims
}

// NewTokenService constructs a TokenService issuing tokens with the given TTLs.
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("token secret must be at least 16 characters")
	}
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// IssuePair mints a fresh access and refresh token for the user.
func (s *TokenService) IssuePair(userID string) (models.TokenPair, error) {
	if userID == "" {
		return models.TokenPair{}, errors.New("user id must be provided")
	}

	now := s.now().UTC()

	access, err := s.sign(userID, AccessToken, now, now.Add(s.accessTTL))
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, err := s.sign(userID, RefreshToken, now, now.Add(s.refreshTTL))
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  now.Add(s.accessTTL),
		RefreshToken:     refresh,
		RefreshExpiresAt: now.Add(s.refreshTTL),
	}, nil
}

// Verify checks signature, expiry, issuer and kind, returning the user id claim.
func (s *TokenService) Verify(tokenStr string, kind TokenKind) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.Subject == "" || claims.Kind != kind {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}

func (s *TokenService) sign(userID string, kind TokenKind, issuedAt, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}
