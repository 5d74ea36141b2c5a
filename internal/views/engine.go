// Package views builds viewer-relative projections over the normalized
// entities: it resolves a base set, batch-fetches related edges by foreign
// key, computes counts and membership flags in memory, and exposes only
// whitelisted owner fields.
package views

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/clipstream/backend/internal/apperror"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// CommentSource lists the comments on a video.
type CommentSource interface {
	ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error)
}

// LikeSource batch-fetches like edges for a set of comments.
type LikeSource interface {
	ListForComments(ctx context.Context, commentIDs []string) ([]models.Like, error)
}

// SubscriptionSource lists subscription edges from either end.
type SubscriptionSource interface {
	ListForChannel(ctx context.Context, channelID string) ([]models.Subscription, error)
	ListForSubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error)
}

// UserDirectory resolves user records for joins.
type UserDirectory interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
}

// VideoCatalog resolves video records for joins.
type VideoCatalog interface {
	FindByID(ctx context.Context, id string) (models.Video, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Video, error)
}

// HistorySource lists a user's recorded views, most recent first.
type HistorySource interface {
	ListForUser(ctx context.Context, userID string) ([]models.WatchEntry, error)
}

// Engine joins entity data into derived views. The viewer id parameter on
// each method may be empty: anonymous viewers get all membership flags false.
type Engine struct {
	users    UserDirectory
	videos   VideoCatalog
	comments CommentSource
	likes    LikeSource
	subs     SubscriptionSource
	history  HistorySource
}

// NewEngine wires the aggregation engine against its data sources.
func NewEngine(users UserDirectory, videos VideoCatalog, comments CommentSource, likes LikeSource, subs SubscriptionSource, history HistorySource) *Engine {
	return &Engine{
		users:    users,
		videos:   videos,
		comments: comments,
		likes:    likes,
		subs:     subs,
		history:  history,
	}
}

// CommentView is one entry in a video's comment feed.
type CommentView struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"createdAt"`
	Owner     models.Profile `json:"owner"`
	LikeCount int            `json:"likeCount"`
	IsLiked   bool           `json:"isLiked"`
}

// CommentFeed is a page of a video's comments.
type CommentFeed struct {
	Comments []CommentView `json:"comments"`
	PageInfo PageInfo      `json:"pageInfo"`
}

// ChannelView is the public profile of a channel with subscription-derived fields.
type ChannelView struct {
	ID                       string `json:"id"`
	Username                 string `json:"username"`
	FullName                 string `json:"fullName"`
	Email                    string `json:"email"`
	AvatarURL                string `json:"avatar"`
	CoverURL                 string `json:"coverImage"`
	SubscribersCount         int    `json:"subscribersCount"`
	ChannelSubscribedToCount int    `json:"channelSubscribedToCount"`
	IsSubscribed             bool   `json:"isSubscribed"`
}

// SubscriberView is one subscriber of a channel with their profile joined in.
type SubscriberView struct {
	ChannelID    string         `json:"channelId"`
	Subscriber   models.Profile `json:"subscriber"`
	SubscribedAt time.Time      `json:"subscribedAt"`
}

// SubscribedChannelView is one channel a user subscribes to.
type SubscribedChannelView struct {
	SubscriberID string         `json:"subscriberId"`
	Channel      models.Profile `json:"channel"`
	SubscribedAt time.Time      `json:"subscribedAt"`
}

// WatchedVideoView is one watch history entry with the video's owner joined in.
type WatchedVideoView struct {
	VideoID      string         `json:"videoId"`
	Title        string         `json:"title"`
	ThumbnailURL string         `json:"thumbnail"`
	Owner        models.Profile `json:"owner"`
	WatchedAt    time.Time      `json:"watchedAt"`
}

// VideoComments builds the paginated, viewer-relative comment feed for a video.
func (e *Engine) VideoComments(ctx context.Context, viewerID, videoID string, page PageRequest) (CommentFeed, error) {
	if _, err := e.videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return CommentFeed{}, apperror.NotFound("video not found")
		}
		return CommentFeed{}, fmt.Errorf("find video %s: %w", videoID, err)
	}

	comments, err := e.comments.ListForVideo(ctx, videoID)
	if err != nil {
		return CommentFeed{}, fmt.Errorf("list comments for video %s: %w", videoID, err)
	}

	// Fix the order before paging; an unstable order would leak or duplicate
	// entries across pages.
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})

	total := len(comments)
	start, end := page.slice(total)
	pageComments := comments[start:end]

	commentIDs := make([]string, 0, len(pageComments))
	ownerIDs := make([]string, 0, len(pageComments))
	for _, c := range pageComments {
		commentIDs = append(commentIDs, c.ID)
		ownerIDs = append(ownerIDs, c.OwnerID)
	}

	likes, err := e.likes.ListForComments(ctx, commentIDs)
	if err != nil {
		return CommentFeed{}, fmt.Errorf("list likes: %w", err)
	}

	likeCounts := make(map[string]int, len(pageComments))
	likedByViewer := make(map[string]bool, len(pageComments))
	for _, like := range likes {
		likeCounts[like.CommentID]++
		if viewerID != "" && like.UserID == viewerID {
			likedByViewer[like.CommentID] = true
		}
	}

	owners, err := e.profilesByID(ctx, ownerIDs)
	if err != nil {
		return CommentFeed{}, err
	}

	feed := make([]CommentView, 0, len(pageComments))
	for _, c := range pageComments {
		feed = append(feed, CommentView{
			ID:        c.ID,
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
			Owner:     owners[c.OwnerID],
			LikeCount: likeCounts[c.ID],
			IsLiked:   likedByViewer[c.ID],
		})
	}

	return CommentFeed{Comments: feed, PageInfo: page.info(total)}, nil
}

// ChannelProfile builds the channel page for a username. The lookup is
// case-insensitive; isSubscribed reflects whether the viewer is among the
// channel's subscribers.
func (e *Engine) ChannelProfile(ctx context.Context, viewerID, username string) (ChannelView, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return ChannelView{}, apperror.Validation("username is required")
	}

	channel, err := e.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ChannelView{}, apperror.NotFound("channel does not exist")
		}
		return ChannelView{}, fmt.Errorf("find channel %q: %w", username, err)
	}

	subscribers, err := e.subs.ListForChannel(ctx, channel.ID)
	if err != nil {
		return ChannelView{}, fmt.Errorf("list subscribers: %w", err)
	}
	subscribedTo, err := e.subs.ListForSubscriber(ctx, channel.ID)
	if err != nil {
		return ChannelView{}, fmt.Errorf("list subscribed channels: %w", err)
	}

	isSubscribed := false
	if viewerID != "" {
		for _, sub := range subscribers {
			if sub.SubscriberID == viewerID {
				isSubscribed = true
				break
			}
		}
	}

	return ChannelView{
		ID:                       channel.ID,
		Username:                 channel.Username,
		FullName:                 channel.FullName,
		Email:                    channel.Email,
		AvatarURL:                channel.AvatarURL,
		CoverURL:                 channel.CoverURL,
		SubscribersCount:         len(subscribers),
		ChannelSubscribedToCount: len(subscribedTo),
		IsSubscribed:             isSubscribed,
	}, nil
}

// ChannelSubscribers lists a channel's subscribers with profiles joined in.
func (e *Engine) ChannelSubscribers(ctx context.Context, channelID string) ([]SubscriberView, error) {
	edges, err := e.subs.ListForChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	ids := make([]string, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.SubscriberID)
	}
	profiles, err := e.profilesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]SubscriberView, 0, len(edges))
	for _, edge := range edges {
		result = append(result, SubscriberView{
			ChannelID:    edge.ChannelID,
			Subscriber:   profiles[edge.SubscriberID],
			SubscribedAt: edge.CreatedAt,
		})
	}
	return result, nil
}

// SubscribedChannels lists the channels a user subscribes to, with the
// channel profiles joined in.
func (e *Engine) SubscribedChannels(ctx context.Context, subscriberID string) ([]SubscribedChannelView, error) {
	edges, err := e.subs.ListForSubscriber(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("list subscribed channels: %w", err)
	}

	ids := make([]string, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.ChannelID)
	}
	profiles, err := e.profilesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]SubscribedChannelView, 0, len(edges))
	for _, edge := range edges {
		result = append(result, SubscribedChannelView{
			SubscriberID: edge.SubscriberID,
			Channel:      profiles[edge.ChannelID],
			SubscribedAt: edge.CreatedAt,
		})
	}
	return result, nil
}

// WatchHistory lists the viewer's watched videos, most recent first, with
// each video's owner profile joined in.
func (e *Engine) WatchHistory(ctx context.Context, viewerID string) ([]WatchedVideoView, error) {
	entries, err := e.history.ListForUser(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list watch history: %w", err)
	}

	videoIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		videoIDs = append(videoIDs, entry.VideoID)
	}
	videos, err := e.videos.FindByIDs(ctx, videoIDs)
	if err != nil {
		return nil, fmt.Errorf("find watched videos: %w", err)
	}

	videosByID := make(map[string]models.Video, len(videos))
	ownerIDs := make([]string, 0, len(videos))
	for _, video := range videos {
		videosByID[video.ID] = video
		ownerIDs = append(ownerIDs, video.OwnerID)
	}

	owners, err := e.profilesByID(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}

	result := make([]WatchedVideoView, 0, len(entries))
	for _, entry := range entries {
		video, ok := videosByID[entry.VideoID]
		if !ok {
			// Video deleted since it was watched; drop the entry.
			continue
		}
		result = append(result, WatchedVideoView{
			VideoID:      video.ID,
			Title:        video.Title,
			ThumbnailURL: video.ThumbnailURL,
			Owner:        owners[video.OwnerID],
			WatchedAt:    entry.WatchedAt,
		})
	}
	return result, nil
}

func (e *Engine) profilesByID(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	users, err := e.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	profiles := make(map[string]models.Profile, len(users))
	for _, user := range users {
		profiles[user.ID] = user.PublicProfile()
	}
	return profiles, nil
}
