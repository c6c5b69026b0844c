package models

import (
	"strings"
	"time"
)

// SessionTokens groups the bearer credentials issued to an authenticated user.
type SessionTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Empty reports whether no credential is held.
func (t SessionTokens) Empty() bool {
	return strings.TrimSpace(t.AccessToken) == "" && strings.TrimSpace(t.RefreshToken) == ""
}

// Complete reports whether both halves of the pair are present.
func (t SessionTokens) Complete() bool {
	return strings.TrimSpace(t.AccessToken) != "" && strings.TrimSpace(t.RefreshToken) != ""
}

// VideoRecord mirrors a video as served by the VideoTube API.
type VideoRecord struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	VideoFile   string    `json:"videoFile"`
	Username    string    `json:"username"`
	CreatedAt   time.Time `json:"createdAt"`
	Duration    string    `json:"duration,omitempty"`
	Views       int64     `json:"views,omitempty"`
	Likes       int64     `json:"likes,omitempty"`
	IsPublished bool      `json:"isPublished,omitempty"`
}

// Key returns the server-assigned identifier.
func (v VideoRecord) Key() string { return v.ID }

// User represents an account as listed on the dashboard.
type User struct {
	ID         string    `json:"_id"`
	FullName   string    `json:"fullname"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Avatar     string    `json:"avatar,omitempty"`
	CoverImage string    `json:"coverImage,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Key returns the server-assigned identifier.
func (u User) Key() string { return u.ID }

// Comment is a viewer remark attached to a video.
type Comment struct {
	ID        string    `json:"_id"`
	VideoID   string    `json:"videoId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Likes     int64     `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Key returns the server-assigned identifier.
func (c Comment) Key() string { return c.ID }

// PendingUpload carries the inputs of a single upload submission.
type PendingUpload struct {
	Title       string
	Description string
	Video       *Blob
	Thumbnail   *Blob
}

// VideoEdit carries a partial update. Thumbnail is only sent when set.
type VideoEdit struct {
	Title       string
	Description string
	Thumbnail   *Blob
}

// Registration carries the sign-up form.
type Registration struct {
	FullName        string
	Username        string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
	Avatar          *Blob
	Cover           *Blob
}

// UserUpdate carries the editable profile fields of the dashboard modal.
type UserUpdate struct {
	FullName string `json:"fullname"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}
