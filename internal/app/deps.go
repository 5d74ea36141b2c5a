package app

import (
	"context"
	"time"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/config"
	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/handlers"
	"github.com/clipstream/backend/internal/middleware"
	"github.com/clipstream/backend/internal/repositories"
	"github.com/clipstream/backend/internal/storage"
	"github.com/clipstream/backend/internal/views"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	users := repositories.NewPostgresUserRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)
	comments := repositories.NewPostgresCommentRepository(pool)
	subscriptions := repositories.NewPostgresSubscriptionRepository(pool)
	likes := repositories.NewPostgresLikeRepository(pool)
	history := repositories.NewPostgresWatchHistoryRepository(pool)

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		return handlers.Dependencies{}, err
	}
	hasher := auth.NewHasher(cfg.BcryptCost)

	deps := handlers.Dependencies{
		Credentials:   auth.NewCredentialService(users, hasher),
		Sessions:      auth.NewSessionManager(users, tokens, hasher),
		Tokens:        tokens,
		Views:         views.NewEngine(users, videos, comments, likes, subscriptions, history),
		Comments:      comments,
		Videos:        videos,
		Users:         users,
		Subscriptions: subscriptions,
		Likes:         likes,
		History:       history,
		LoginLimiter:  middleware.NewIPRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow, cfg.LoginRateLimit, 10*time.Minute),
	}

	// Media uploads are optional; without a bucket, clients supply URLs.
	if cfg.ObjectStore.Bucket != "" {
		media, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, err
		}
		deps.Media = media
	}

	return deps, nil
}
