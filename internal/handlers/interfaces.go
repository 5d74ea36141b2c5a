package handlers

import (
	"context"
	"io"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/views"
)

// CredentialStore captures account creation and credential mutation.
type CredentialStore interface {
	Register(ctx context.Context, input auth.RegisterInput) (models.Profile, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirmPassword string) error
	UpdateAccount(ctx context.Context, userID, fullName, email string) (models.Profile, error)
	UpdateAvatar(ctx context.Context, userID, url string) (models.Profile, error)
	UpdateCover(ctx context.Context, userID, url string) (models.Profile, error)
}

// SessionManager owns the token pair lifecycle for authenticated users.
type SessionManager interface {
	Login(ctx context.Context, identifier, password string) (models.TokenPair, models.Profile, error)
	Refresh(ctx context.Context, presented string) (models.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	CurrentUser(ctx context.Context, userID string) (models.Profile, error)
}

// TokenVerifier resolves a bearer token into a user id.
type TokenVerifier interface {
	Verify(token string, kind auth.TokenKind) (string, error)
}

// ViewBuilder produces the derived, viewer-relative read models.
type ViewBuilder interface {
	VideoComments(ctx context.Context, viewerID, videoID string, page views.PageRequest) (views.CommentFeed, error)
	ChannelProfile(ctx context.Context, viewerID, username string) (views.ChannelView, error)
	ChannelSubscribers(ctx context.Context, channelID string) ([]views.SubscriberView, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]views.SubscribedChannelView, error)
	WatchHistory(ctx context.Context, viewerID string) ([]views.WatchedVideoView, error)
}

// CommentStore captures the persistence operations the comment handlers need.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	UpdateContent(ctx context.Context, id, content string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// VideoStore resolves videos referenced by mutations.
type VideoStore interface {
	FindByID(ctx context.Context, id string) (models.Video, error)
}

// UserStore resolves users referenced by mutations.
type UserStore interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// SubscriptionStore captures the persistence operations behind the
// subscription toggle.
type SubscriptionStore interface {
	Create(ctx context.Context, sub models.Subscription) error
	Find(ctx context.Context, subscriberID, channelID string) (models.Subscription, error)
	Delete(ctx context.Context, id string) error
}

// LikeStore captures the persistence operations behind the like toggle.
type LikeStore interface {
	Create(ctx context.Context, like models.Like) error
	Find(ctx context.Context, commentID, userID string) (models.Like, error)
	Delete(ctx context.Context, id string) error
}

// WatchHistoryStore records video views.
type WatchHistoryStore interface {
	Append(ctx context.Context, entry models.WatchEntry) error
}

// BlobStorage stores a media file and returns its public URL.
type BlobStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// RateLimiter gates an action per caller key.
type RateLimiter interface {
	Allow(key string) bool
}
