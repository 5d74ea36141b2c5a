package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"testing"
	"time"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
	"github.com/clipstream/backend/internal/views"
)

// stubVerifier resolves pre-registered bearer tokens.
type stubVerifier struct {
	tokens map[string]string
}

func (v stubVerifier) Verify(token string, kind auth.TokenKind) (string, error) {
	if kind != auth.AccessToken {
		return "", auth.ErrTokenInvalid
	}
	userID, ok := v.tokens[token]
	if !ok {
		return "", auth.ErrTokenInvalid
	}
	return userID, nil
}

func verifierFor(userID string) stubVerifier {
	return stubVerifier{tokens: map[string]string{"token-" + userID: userID}}
}

func authorize(userID string) string {
	return "Bearer token-" + userID
}

// fakeCommentStore keeps comments in insertion order.
type fakeCommentStore struct {
	comments []models.Comment
	deleted  []string
}

func (s *fakeCommentStore) Create(_ context.Context, comment models.Comment) error {
	s.comments = append(s.comments, comment)
	return nil
}

func (s *fakeCommentStore) FindByID(_ context.Context, id string) (models.Comment, error) {
	for _, c := range s.comments {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Comment{}, repositories.ErrNotFound
}

func (s *fakeCommentStore) UpdateContent(_ context.Context, id, content string) (models.Comment, error) {
	for i, c := range s.comments {
		if c.ID == id {
			s.comments[i].Content = content
			s.comments[i].UpdatedAt = c.UpdatedAt.Add(time.Second)
			return s.comments[i], nil
		}
	}
	return models.Comment{}, repositories.ErrNotFound
}

func (s *fakeCommentStore) Delete(_ context.Context, id string) error {
	for i, c := range s.comments {
		if c.ID == id {
			s.comments = append(s.comments[:i], s.comments[i+1:]...)
			s.deleted = append(s.deleted, id)
			return nil
		}
	}
	return repositories.ErrNotFound
}

type fakeVideoStore struct {
	videos map[string]models.Video
}

func (s fakeVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

type fakeUserDirectory struct {
	users map[string]models.User
}

func (s fakeUserDirectory) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

type fakeLikeStore struct {
	likes []models.Like
}

func (s *fakeLikeStore) Create(_ context.Context, like models.Like) error {
	for _, l := range s.likes {
		if l.CommentID == like.CommentID && l.UserID == like.UserID {
			return repositories.ErrConflict
		}
	}
	s.likes = append(s.likes, like)
	return nil
}

func (s *fakeLikeStore) Find(_ context.Context, commentID, userID string) (models.Like, error) {
	for _, l := range s.likes {
		if l.CommentID == commentID && l.UserID == userID {
			return l, nil
		}
	}
	return models.Like{}, repositories.ErrNotFound
}

func (s *fakeLikeStore) Delete(_ context.Context, id string) error {
	for i, l := range s.likes {
		if l.ID == id {
			s.likes = append(s.likes[:i], s.likes[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

type fakeSubscriptionStore struct {
	subs []models.Subscription
}

func (s *fakeSubscriptionStore) Create(_ context.Context, sub models.Subscription) error {
	for _, existing := range s.subs {
		if existing.SubscriberID == sub.SubscriberID && existing.ChannelID == sub.ChannelID {
			return repositories.ErrConflict
		}
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *fakeSubscriptionStore) Find(_ context.Context, subscriberID, channelID string) (models.Subscription, error) {
	for _, sub := range s.subs {
		if sub.SubscriberID == subscriberID && sub.ChannelID == channelID {
			return sub, nil
		}
	}
	return models.Subscription{}, repositories.ErrNotFound
}

func (s *fakeSubscriptionStore) Delete(_ context.Context, id string) error {
	for i, sub := range s.subs {
		if sub.ID == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

type fakeHistoryStore struct {
	entries []models.WatchEntry
}

func (s *fakeHistoryStore) Append(_ context.Context, entry models.WatchEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

// fakeViewBuilder returns canned views and records the arguments it saw.
type fakeViewBuilder struct {
	feed        views.CommentFeed
	channel     views.ChannelView
	subscribers []views.SubscriberView
	channels    []views.SubscribedChannelView
	history     []views.WatchedVideoView
	err         error

	lastViewerID string
	lastPage     views.PageRequest
}

func (b *fakeViewBuilder) VideoComments(_ context.Context, viewerID, videoID string, page views.PageRequest) (views.CommentFeed, error) {
	b.lastViewerID = viewerID
	b.lastPage = page
	return b.feed, b.err
}

func (b *fakeViewBuilder) ChannelProfile(_ context.Context, viewerID, username string) (views.ChannelView, error) {
	b.lastViewerID = viewerID
	return b.channel, b.err
}

func (b *fakeViewBuilder) ChannelSubscribers(_ context.Context, channelID string) ([]views.SubscriberView, error) {
	return b.subscribers, b.err
}

func (b *fakeViewBuilder) SubscribedChannels(_ context.Context, subscriberID string) ([]views.SubscribedChannelView, error) {
	return b.channels, b.err
}

func (b *fakeViewBuilder) WatchHistory(_ context.Context, viewerID string) ([]views.WatchedVideoView, error) {
	b.lastViewerID = viewerID
	return b.history, b.err
}

// fakeBlobStorage records saved keys and returns deterministic URLs.
type fakeBlobStorage struct {
	saved []string
	err   error
}

func (s *fakeBlobStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	s.saved = append(s.saved, name)
	return fmt.Sprintf("https://cdn.example.com/%s", name), nil
}

// newMultipartFile writes a single-file multipart body into buf and returns
// the matching Content-Type header value.
func newMultipartFile(t *testing.T, buf *bytes.Buffer, field, filename string) string {
	t.Helper()
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("fake image bytes")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return writer.FormDataContentType()
}
