package handlers

import "net/http"

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Credentials   CredentialStore
	Sessions      SessionManager
	Tokens        TokenVerifier
	Views         ViewBuilder
	Comments      CommentStore
	Videos        VideoStore
	Users         UserStore
	Subscriptions SubscriptionStore
	Likes         LikeStore
	History       WatchHistoryStore
	Media         BlobStorage
	LoginLimiter  RateLimiter
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{
		Credentials:  deps.Credentials,
		Sessions:     deps.Sessions,
		Tokens:       deps.Tokens,
		Media:        deps.Media,
		LoginLimiter: deps.LoginLimiter,
	}
	users := UserHandler{
		Credentials: deps.Credentials,
		Sessions:    deps.Sessions,
		Tokens:      deps.Tokens,
		Views:       deps.Views,
		Media:       deps.Media,
	}
	comments := CommentHandler{
		Tokens:   deps.Tokens,
		Views:    deps.Views,
		Comments: deps.Comments,
		Videos:   deps.Videos,
		Likes:    deps.Likes,
	}
	subscriptions := SubscriptionHandler{
		Tokens:        deps.Tokens,
		Views:         deps.Views,
		Subscriptions: deps.Subscriptions,
		Users:         deps.Users,
	}
	videos := VideoHandler{
		Tokens:  deps.Tokens,
		Videos:  deps.Videos,
		History: deps.History,
	}

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/users/register", auth.Register)
	mux.HandleFunc("POST /api/v1/users/login", auth.Login)
	mux.HandleFunc("POST /api/v1/users/logout", auth.Logout)
	mux.HandleFunc("POST /api/v1/users/refresh-token", auth.Refresh)

	mux.HandleFunc("GET /api/v1/users/me", users.Me)
	mux.HandleFunc("PATCH /api/v1/users/password", users.ChangePassword)
	mux.HandleFunc("PATCH /api/v1/users/account", users.UpdateAccount)
	mux.HandleFunc("PATCH /api/v1/users/avatar", users.UpdateAvatar)
	mux.HandleFunc("PATCH /api/v1/users/cover", users.UpdateCover)
	mux.HandleFunc("GET /api/v1/users/channel/{username}", users.Channel)
	mux.HandleFunc("GET /api/v1/users/watch-history", users.WatchHistory)

	mux.HandleFunc("GET /api/v1/comments/{videoId}", comments.Feed)
	mux.HandleFunc("POST /api/v1/comments/{videoId}", comments.Add)
	mux.HandleFunc("PATCH /api/v1/comments/{commentId}", comments.Update)
	mux.HandleFunc("DELETE /api/v1/comments/{commentId}", comments.Delete)
	mux.HandleFunc("POST /api/v1/likes/comment/{commentId}", comments.ToggleLike)

	mux.HandleFunc("POST /api/v1/subscriptions/{channelId}", subscriptions.Toggle)
	mux.HandleFunc("GET /api/v1/subscriptions/channel/{channelId}/subscribers", subscriptions.Subscribers)
	mux.HandleFunc("GET /api/v1/subscriptions/subscriber/{subscriberId}/channels", subscriptions.SubscribedChannels)

	mux.HandleFunc("POST /api/v1/videos/{videoId}/view", videos.RecordView)
}
