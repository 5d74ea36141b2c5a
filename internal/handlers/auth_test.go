package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clipstream/backend/internal/apperror"
	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/models"
)

type fakeCredentialStore struct {
	lastRegister auth.RegisterInput
	registerErr  error

	passwordChanged bool
	lastAccount     [2]string
	lastAvatar      string
	lastCover       string
}

func (s *fakeCredentialStore) Register(_ context.Context, input auth.RegisterInput) (models.Profile, error) {
	s.lastRegister = input
	if s.registerErr != nil {
		return models.Profile{}, s.registerErr
	}
	return models.Profile{ID: "user-1", Username: strings.ToLower(input.Username), Email: strings.ToLower(input.Email)}, nil
}

func (s *fakeCredentialStore) ChangePassword(_ context.Context, userID, oldPassword, newPassword, confirmPassword string) error {
	if oldPassword == "wrong" {
		return apperror.Validation("old password is incorrect")
	}
	s.passwordChanged = true
	return nil
}

func (s *fakeCredentialStore) UpdateAccount(_ context.Context, userID, fullName, email string) (models.Profile, error) {
	s.lastAccount = [2]string{fullName, email}
	return models.Profile{ID: userID, FullName: fullName, Email: email}, nil
}

func (s *fakeCredentialStore) UpdateAvatar(_ context.Context, userID, url string) (models.Profile, error) {
	s.lastAvatar = url
	return models.Profile{ID: userID, AvatarURL: url}, nil
}

func (s *fakeCredentialStore) UpdateCover(_ context.Context, userID, url string) (models.Profile, error) {
	s.lastCover = url
	return models.Profile{ID: userID, CoverURL: url}, nil
}

type fakeSessionManager struct {
	pair    models.TokenPair
	profile models.Profile

	loginErr   error
	refreshErr error

	loggedOut      []string
	lastIdentifier string
	lastRefresh    string
}

func (m *fakeSessionManager) Login(_ context.Context, identifier, password string) (models.TokenPair, models.Profile, error) {
	m.lastIdentifier = identifier
	if m.loginErr != nil {
		return models.TokenPair{}, models.Profile{}, m.loginErr
	}
	return m.pair, m.profile, nil
}

func (m *fakeSessionManager) Refresh(_ context.Context, presented string) (models.TokenPair, error) {
	m.lastRefresh = presented
	if m.refreshErr != nil {
		return models.TokenPair{}, m.refreshErr
	}
	return m.pair, nil
}

func (m *fakeSessionManager) Logout(_ context.Context, userID string) error {
	m.loggedOut = append(m.loggedOut, userID)
	return nil
}

func (m *fakeSessionManager) CurrentUser(_ context.Context, userID string) (models.Profile, error) {
	return m.profile, nil
}

func testPair() models.TokenPair {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return models.TokenPair{
		AccessToken:      "access-token",
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshToken:     "refresh-token",
		RefreshExpiresAt: now.Add(240 * time.Hour),
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var resp envelope
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestAuthHandlerRegisterJSON(t *testing.T) {
	store := &fakeCredentialStore{}
	handler := AuthHandler{Credentials: store}

	body, err := json.Marshal(registerRequest{
		FullName: "Ada Lovelace",
		Username: "ada",
		Email:    "ada@example.com",
		Password: "correct-horse",
		Avatar:   "https://cdn.example.com/a.png",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d", http.StatusCreated, rec.Code)
	}
	if store.lastRegister.Username != "ada" || store.lastRegister.AvatarURL != "https://cdn.example.com/a.png" {
		t.Fatalf("unexpected register input %+v", store.lastRegister)
	}
}

func TestAuthHandlerRegisterMultipart(t *testing.T) {
	store := &fakeCredentialStore{}
	media := &fakeBlobStorage{}
	handler := AuthHandler{Credentials: store, Media: media}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for field, value := range map[string]string{
		"fullName": "Ada Lovelace",
		"username": "ada",
		"email":    "ada@example.com",
		"password": "correct-horse",
	} {
		if err := writer.WriteField(field, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	part, err := writer.CreateFormFile("avatar", "avatar.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("fake image bytes")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if len(media.saved) != 1 || !strings.HasPrefix(media.saved[0], "media/avatar/") {
		t.Fatalf("expected avatar upload, saved %v", media.saved)
	}
	if !strings.HasPrefix(store.lastRegister.AvatarURL, "https://cdn.example.com/media/avatar/") {
		t.Fatalf("expected stored avatar URL, got %q", store.lastRegister.AvatarURL)
	}
	if store.lastRegister.CoverURL != "" {
		t.Fatalf("expected no cover upload, got %q", store.lastRegister.CoverURL)
	}
}

func TestAuthHandlerRegisterValidationError(t *testing.T) {
	store := &fakeCredentialStore{registerErr: apperror.Validation("avatar image is required")}
	handler := AuthHandler{Credentials: store}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Message != "avatar image is required" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestAuthHandlerLoginSetsCookies(t *testing.T) {
	sessions := &fakeSessionManager{pair: testPair(), profile: models.Profile{ID: "user-1", Username: "ada"}}
	handler := AuthHandler{Sessions: sessions}

	body, _ := json.Marshal(loginRequest{Email: "ada@example.com", Password: "correct-horse"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if sessions.lastIdentifier != "ada@example.com" {
		t.Fatalf("expected email identifier got %q", sessions.lastIdentifier)
	}

	cookies := rec.Result().Cookies()
	byName := make(map[string]*http.Cookie, len(cookies))
	for _, c := range cookies {
		byName[c.Name] = c
	}
	access, ok := byName[accessCookieName]
	if !ok || access.Value != "access-token" {
		t.Fatalf("expected access cookie, got %v", cookies)
	}
	if !access.HttpOnly || !access.Secure {
		t.Fatal("expected httpOnly secure cookies")
	}
	if refresh, ok := byName[refreshCookieName]; !ok || refresh.Value != "refresh-token" {
		t.Fatalf("expected refresh cookie, got %v", cookies)
	}

	var resp struct {
		Data loginResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Tokens.AccessToken != "access-token" || resp.Data.User.Username != "ada" {
		t.Fatalf("unexpected body %+v", resp.Data)
	}
}

func TestAuthHandlerLoginRateLimited(t *testing.T) {
	sessions := &fakeSessionManager{pair: testPair()}
	handler := AuthHandler{Sessions: sessions, LoginLimiter: denyAll{}}

	body, _ := json.Marshal(loginRequest{Username: "ada", Password: "correct-horse"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d got %d", http.StatusTooManyRequests, rec.Code)
	}
	if sessions.lastIdentifier != "" {
		t.Fatal("expected login to be short-circuited")
	}
}

func TestAuthHandlerLoginBadCredentials(t *testing.T) {
	sessions := &fakeSessionManager{loginErr: apperror.Auth("bad credentials")}
	handler := AuthHandler{Sessions: sessions}

	body, _ := json.Marshal(loginRequest{Username: "ada", Password: "nope"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthHandlerLogout(t *testing.T) {
	sessions := &fakeSessionManager{}
	handler := AuthHandler{Sessions: sessions, Tokens: verifierFor("user-1")}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req.Header.Set("Authorization", authorize("user-1"))
	rec := httptest.NewRecorder()

	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if len(sessions.loggedOut) != 1 || sessions.loggedOut[0] != "user-1" {
		t.Fatalf("expected logout for user-1, got %v", sessions.loggedOut)
	}

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge != -1 {
			t.Fatalf("expected cookie %s to be expired", c.Name)
		}
	}
}

func TestAuthHandlerLogoutRequiresAuth(t *testing.T) {
	handler := AuthHandler{Sessions: &fakeSessionManager{}, Tokens: verifierFor("user-1")}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	rec := httptest.NewRecorder()

	handler.Logout(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthHandlerRefreshFromCookie(t *testing.T) {
	sessions := &fakeSessionManager{pair: testPair()}
	handler := AuthHandler{Sessions: sessions}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "cookie-refresh"})
	rec := httptest.NewRecorder()

	handler.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if sessions.lastRefresh != "cookie-refresh" {
		t.Fatalf("expected cookie token to be presented, got %q", sessions.lastRefresh)
	}
}

func TestAuthHandlerRefreshFromBody(t *testing.T) {
	sessions := &fakeSessionManager{pair: testPair()}
	handler := AuthHandler{Sessions: sessions}

	body, _ := json.Marshal(refreshRequest{RefreshToken: "body-refresh"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if sessions.lastRefresh != "body-refresh" {
		t.Fatalf("expected body token to be presented, got %q", sessions.lastRefresh)
	}
}

func TestAuthHandlerRefreshRejected(t *testing.T) {
	sessions := &fakeSessionManager{refreshErr: apperror.Auth("refresh token reused or expired")}
	handler := AuthHandler{Sessions: sessions}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "stale"})
	rec := httptest.NewRecorder()

	handler.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }
