package models

import "time"

// User represents an account within the Clipstream platform.
//
// PasswordHash and RefreshToken never leave the persistence and auth layers;
// handlers work with the Profile projection instead.
type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	AvatarURL    string
	CoverURL     string
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the whitelisted public view of a user.
type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatar"`
	CoverURL  string `json:"coverImage,omitempty"`
}

// PublicProfile strips a user down to the fields safe to embed in feeds.
func (u User) PublicProfile() Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
	}
}

// AccountProfile adds the contact fields shown to the account owner and on
// channel pages.
func (u User) AccountProfile() Profile {
	p := u.PublicProfile()
	p.Email = u.Email
	p.CoverURL = u.CoverURL
	return p
}

// Video is read-only to this service; ownership never changes after upload.
type Video struct {
	ID           string
	OwnerID      string
	Title        string
	ThumbnailURL string
	CreatedAt    time.Time
}

// Comment is an authored remark on a video.
type Comment struct {
	ID        string
	VideoID   string
	OwnerID   string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subscription is the edge from a subscriber to a channel (both users).
type Subscription struct {
	ID           string
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

// Like is the edge from a user to a comment.
type Like struct {
	ID        string
	CommentID string
	UserID    string
	CreatedAt time.Time
}

// WatchEntry records that a user viewed a video at a point in time.
type WatchEntry struct {
	UserID    string
	VideoID   string
	WatchedAt time.Time
}

// TokenPair groups the bearer credentials issued to authenticated users.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
