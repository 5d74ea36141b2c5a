package repositories

import (
	"context"

	"github.com/clipstream/backend/internal/models"
)

// UserRepository defines the data access contract for users, including the
// refresh-token slot that backs session revocation.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	UpdateAccount(ctx context.Context, userID, fullName, email string) (models.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateAvatar(ctx context.Context, userID, url string) (models.User, error)
	UpdateCover(ctx context.Context, userID, url string) (models.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) error
	ClearRefreshToken(ctx context.Context, userID string) error
}

// VideoRepository exposes read access to videos; this service never mutates them.
type VideoRepository interface {
	FindByID(ctx context.Context, id string) (models.Video, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Video, error)
}

// CommentRepository defines persistence for comments. Delete removes the
// comment and its dependent like edges in a single transaction.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	UpdateContent(ctx context.Context, id, content string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
	ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error)
}

// SubscriptionRepository defines persistence for subscriber→channel edges.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub models.Subscription) error
	Find(ctx context.Context, subscriberID, channelID string) (models.Subscription, error)
	Delete(ctx context.Context, id string) error
	ListForChannel(ctx context.Context, channelID string) ([]models.Subscription, error)
	ListForSubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error)
}

// LikeRepository defines persistence for comment like edges.
type LikeRepository interface {
	Create(ctx context.Context, like models.Like) error
	Find(ctx context.Context, commentID, userID string) (models.Like, error)
	Delete(ctx context.Context, id string) error
	ListForComments(ctx context.Context, commentIDs []string) ([]models.Like, error)
}

// WatchHistoryRepository records and lists per-user video views,
// most recent first.
type WatchHistoryRepository interface {
	Append(ctx context.Context, entry models.WatchEntry) error
	ListForUser(ctx context.Context, userID string) ([]models.WatchEntry, error)
}
