package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/views"
)

func newCommentRequest(method, target, token string, body any) *http.Request {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	return req
}

func TestCommentHandlerFeed(t *testing.T) {
	builder := &fakeViewBuilder{
		feed: views.CommentFeed{
			Comments: []views.CommentView{{ID: "c1", Content: "hello"}},
			PageInfo: views.PageInfo{Page: 2, Limit: 5, Total: 11, HasNext: true},
		},
	}
	handler := CommentHandler{Tokens: verifierFor("user-1"), Views: builder}

	req := newCommentRequest(http.MethodGet, "/api/v1/comments/v1?page=2&limit=5", authorize("user-1"), nil)
	req.SetPathValue("videoId", "v1")
	rec := httptest.NewRecorder()

	handler.Feed(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if builder.lastViewerID != "user-1" {
		t.Fatalf("expected viewer user-1 got %q", builder.lastViewerID)
	}
	if builder.lastPage != (views.PageRequest{Page: 2, Limit: 5}) {
		t.Fatalf("unexpected page request %+v", builder.lastPage)
	}
}

func TestCommentHandlerFeedAnonymous(t *testing.T) {
	builder := &fakeViewBuilder{lastViewerID: "sentinel"}
	handler := CommentHandler{Tokens: stubVerifier{}, Views: builder}

	req := newCommentRequest(http.MethodGet, "/api/v1/comments/v1", "", nil)
	req.SetPathValue("videoId", "v1")
	rec := httptest.NewRecorder()

	handler.Feed(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if builder.lastViewerID != "" {
		t.Fatalf("expected anonymous viewer got %q", builder.lastViewerID)
	}
}

func TestCommentHandlerFeedBadPagination(t *testing.T) {
	handler := CommentHandler{Tokens: stubVerifier{}, Views: &fakeViewBuilder{}}

	req := newCommentRequest(http.MethodGet, "/api/v1/comments/v1?page=zero", "", nil)
	req.SetPathValue("videoId", "v1")
	rec := httptest.NewRecorder()

	handler.Feed(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestCommentHandlerAdd(t *testing.T) {
	comments := &fakeCommentStore{}
	videos := fakeVideoStore{videos: map[string]models.Video{"v1": {ID: "v1"}}}
	handler := CommentHandler{Tokens: verifierFor("user-1"), Comments: comments, Videos: videos}

	req := newCommentRequest(http.MethodPost, "/api/v1/comments/v1", authorize("user-1"), commentRequest{Content: "  nice video  "})
	req.SetPathValue("videoId", "v1")
	rec := httptest.NewRecorder()

	handler.Add(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if len(comments.comments) != 1 {
		t.Fatalf("expected 1 stored comment got %d", len(comments.comments))
	}
	stored := comments.comments[0]
	if stored.Content != "nice video" {
		t.Fatalf("expected trimmed content got %q", stored.Content)
	}
	if stored.OwnerID != "user-1" || stored.VideoID != "v1" || stored.ID == "" {
		t.Fatalf("unexpected stored comment %+v", stored)
	}
}

func TestCommentHandlerAddRejections(t *testing.T) {
	videos := fakeVideoStore{videos: map[string]models.Video{"v1": {ID: "v1"}}}

	t.Run("empty content", func(t *testing.T) {
		handler := CommentHandler{Tokens: verifierFor("user-1"), Comments: &fakeCommentStore{}, Videos: videos}
		req := newCommentRequest(http.MethodPost, "/api/v1/comments/v1", authorize("user-1"), commentRequest{Content: "   "})
		req.SetPathValue("videoId", "v1")
		rec := httptest.NewRecorder()

		handler.Add(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("unknown video", func(t *testing.T) {
		handler := CommentHandler{Tokens: verifierFor("user-1"), Comments: &fakeCommentStore{}, Videos: videos}
		req := newCommentRequest(http.MethodPost, "/api/v1/comments/missing", authorize("user-1"), commentRequest{Content: "hi"})
		req.SetPathValue("videoId", "missing")
		rec := httptest.NewRecorder()

		handler.Add(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
		}
		if msg := decodeEnvelope(t, rec).Message; msg != "video not found" {
			t.Fatalf("unexpected message %q", msg)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		handler := CommentHandler{Tokens: stubVerifier{}, Comments: &fakeCommentStore{}, Videos: videos}
		req := newCommentRequest(http.MethodPost, "/api/v1/comments/v1", "", commentRequest{Content: "hi"})
		req.SetPathValue("videoId", "v1")
		rec := httptest.NewRecorder()

		handler.Add(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
		}
	})
}

func TestCommentHandlerUpdate(t *testing.T) {
	comments := &fakeCommentStore{comments: []models.Comment{
		{ID: "c1", VideoID: "v1", OwnerID: "user-1", Content: "before", CreatedAt: time.Now()},
	}}
	handler := CommentHandler{Tokens: verifierFor("user-1"), Comments: comments}

	req := newCommentRequest(http.MethodPatch, "/api/v1/comments/c1", authorize("user-1"), commentRequest{Content: "after"})
	req.SetPathValue("commentId", "c1")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if comments.comments[0].Content != "after" {
		t.Fatalf("expected updated content got %q", comments.comments[0].Content)
	}
}

func TestCommentHandlerUpdateForbiddenForNonOwner(t *testing.T) {
	comments := &fakeCommentStore{comments: []models.Comment{
		{ID: "c1", VideoID: "v1", OwnerID: "user-1", Content: "before"},
	}}
	handler := CommentHandler{Tokens: verifierFor("user-2"), Comments: comments}

	req := newCommentRequest(http.MethodPatch, "/api/v1/comments/c1", authorize("user-2"), commentRequest{Content: "hijack"})
	req.SetPathValue("commentId", "c1")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d got %d", http.StatusForbidden, rec.Code)
	}
	if comments.comments[0].Content != "before" {
		t.Fatal("expected content to be untouched")
	}
}

func TestCommentHandlerDelete(t *testing.T) {
	comments := &fakeCommentStore{comments: []models.Comment{
		{ID: "c1", VideoID: "v1", OwnerID: "user-1"},
	}}
	handler := CommentHandler{Tokens: verifierFor("user-1"), Comments: comments}

	req := newCommentRequest(http.MethodDelete, "/api/v1/comments/c1", authorize("user-1"), nil)
	req.SetPathValue("commentId", "c1")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if len(comments.deleted) != 1 || comments.deleted[0] != "c1" {
		t.Fatalf("expected c1 deleted, got %v", comments.deleted)
	}
}

func TestCommentHandlerDeleteForbiddenForNonOwner(t *testing.T) {
	comments := &fakeCommentStore{comments: []models.Comment{
		{ID: "c1", VideoID: "v1", OwnerID: "user-1"},
	}}
	handler := CommentHandler{Tokens: verifierFor("user-2"), Comments: comments}

	req := newCommentRequest(http.MethodDelete, "/api/v1/comments/c1", authorize("user-2"), nil)
	req.SetPathValue("commentId", "c1")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d got %d", http.StatusForbidden, rec.Code)
	}
	if len(comments.deleted) != 0 {
		t.Fatal("expected no deletion")
	}
}

func TestCommentHandlerToggleLike(t *testing.T) {
	comments := &fakeCommentStore{comments: []models.Comment{{ID: "c1", VideoID: "v1", OwnerID: "user-2"}}}
	likes := &fakeLikeStore{}
	handler := CommentHandler{Tokens: verifierFor("user-1"), Comments: comments, Likes: likes}

	toggle := func() *httptest.ResponseRecorder {
		req := newCommentRequest(http.MethodPost, "/api/v1/likes/comment/c1", authorize("user-1"), nil)
		req.SetPathValue("commentId", "c1")
		rec := httptest.NewRecorder()
		handler.ToggleLike(rec, req)
		return rec
	}

	rec := toggle()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	var resp struct {
		Data map[string]bool `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Data["liked"] {
		t.Fatal("expected liked=true after first toggle")
	}
	if len(likes.likes) != 1 {
		t.Fatalf("expected 1 like got %d", len(likes.likes))
	}

	rec = toggle()
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data["liked"] {
		t.Fatal("expected liked=false after second toggle")
	}
	if len(likes.likes) != 0 {
		t.Fatalf("expected like removed, got %d", len(likes.likes))
	}
}

func TestCommentHandlerToggleLikeUnknownComment(t *testing.T) {
	handler := CommentHandler{Tokens: verifierFor("user-1"), Comments: &fakeCommentStore{}, Likes: &fakeLikeStore{}}

	req := newCommentRequest(http.MethodPost, "/api/v1/likes/comment/missing", authorize("user-1"), nil)
	req.SetPathValue("commentId", "missing")
	rec := httptest.NewRecorder()

	handler.ToggleLike(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}
