// Package validate holds the local field rules checked before any request is sent.
package validate

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vidtube/client/internal/apperrors"
	"github.com/vidtube/client/internal/models"
)

// Size limits for selected files.
const (
	MaxVideoBytes     = 100 * 1024 * 1024
	MaxThumbnailBytes = 5 * 1024 * 1024
	MaxAvatarBytes    = 5 * 1024 * 1024
	MaxCoverBytes     = 10 * 1024 * 1024

	MaxCommentRunes = 500
)

var (
	fullNameRx = regexp.MustCompile(`^[A-Za-z ]+$`)
	usernameRx = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	phoneRx    = regexp.MustCompile(`^[0-9]{10}$`)
)

// VideoTypes lists accepted video MIME types. The short names are what
// browsers report for the original form; the rest are their registered forms.
var VideoTypes = []string{
	"video/mp4", "video/avi", "video/mov", "video/wmv",
	"video/quicktime", "video/x-msvideo", "video/vnd.avi", "video/x-ms-wmv",
}

// ThumbnailTypes lists accepted thumbnail MIME types.
var ThumbnailTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif"}

type fields map[string]string

func (f fields) add(name, msg string) {
	if _, exists := f[name]; !exists {
		f[name] = msg
	}
}

func (f fields) err(op string) error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.Validation(op, f)
}

// Login checks the sign-in form.
func Login(username, password string) error {
	f := fields{}
	if strings.TrimSpace(username) == "" {
		f.add("username", "Username is required")
	}
	if password == "" {
		f.add("password", "Password is required")
	}
	return f.err("login")
}

// Registration checks the sign-up form, including the selected images.
func Registration(r models.Registration) error {
	f := fields{}

	name := strings.TrimSpace(r.FullName)
	switch {
	case name == "":
		f.add("fullname", "Full name is required")
	case !fullNameRx.MatchString(name):
		f.add("fullname", "Full name can only contain letters and spaces")
	}

	username := strings.TrimSpace(r.Username)
	switch {
	case username == "":
		f.add("username", "Username is required")
	case utf8.RuneCountInString(username) < 3 || utf8.RuneCountInString(username) > 20:
		f.add("username", "Username must be 3-20 characters")
	case !usernameRx.MatchString(username):
		f.add("username", "Username can only contain letters, numbers and underscores")
	}

	checkEmail(f, r.Email)

	phone := strings.TrimSpace(r.Phone)
	switch {
	case phone == "":
		f.add("phone", "Phone number is required")
	case !phoneRx.MatchString(phone):
		f.add("phone", "Phone must be 10 digits")
	}

	switch {
	case r.Password == "":
		f.add("password", "Password is required")
	case utf8.RuneCountInString(r.Password) < 6:
		f.add("password", "Password must be at least 6 chars")
	}

	switch {
	case r.ConfirmPassword == "":
		f.add("confirmPassword", "Please confirm your password")
	case r.ConfirmPassword != r.Password:
		f.add("confirmPassword", "Passwords must match")
	}

	if r.Avatar == nil {
		f.add("avatar", "Profile picture is required")
	} else {
		checkImage(f, "avatar", r.Avatar, MaxAvatarBytes, "Profile picture must be less than 5MB")
	}
	if r.Cover != nil {
		checkImage(f, "coverImage", r.Cover, MaxCoverBytes, "Cover image must be less than 10MB")
	}

	return f.err("register")
}

// Upload checks a new video submission.
func Upload(u models.PendingUpload) error {
	f := fields{}
	checkText(f, "title", u.Title, 5, 100, "Title is required",
		"Title must be at least 5 characters", "Title must not exceed 100 characters")
	checkText(f, "description", u.Description, 10, 1000, "Description is required",
		"Description must be at least 10 characters", "Description must not exceed 1000 characters")

	switch {
	case u.Video == nil:
		f.add("videoFile", "Video file is required")
	case u.Video.Size > MaxVideoBytes:
		f.add("videoFile", "Video file must be less than 100MB")
	case !oneOf(u.Video.ContentType, VideoTypes):
		f.add("videoFile", "Only video files are allowed")
	}

	if u.Thumbnail == nil {
		f.add("thumbnail", "Thumbnail is required")
	} else {
		checkThumbnail(f, u.Thumbnail)
	}

	return f.err("upload")
}

// Edit checks a partial video update.
func Edit(e models.VideoEdit) error {
	f := fields{}
	checkText(f, "title", e.Title, 3, 100, "Title is required",
		"Title must be at least 3 characters", "Title must be less than 100 characters")
	checkText(f, "description", e.Description, 10, 1000, "Description is required",
		"Description must be at least 10 characters", "Description must be less than 1000 characters")
	if e.Thumbnail != nil {
		checkThumbnail(f, e.Thumbnail)
	}
	return f.err("edit")
}

// UserUpdate checks the dashboard edit modal.
func UserUpdate(u models.UserUpdate) error {
	f := fields{}
	if strings.TrimSpace(u.FullName) == "" {
		f.add("fullname", "Full Name is required")
	}
	if strings.TrimSpace(u.Username) == "" {
		f.add("username", "Username is required")
	}
	checkEmail(f, u.Email)
	if strings.TrimSpace(u.Phone) == "" {
		f.add("phone", "Phone is required")
	}
	return f.err("updateUser")
}

// Comment checks a new comment body.
func Comment(content string) error {
	f := fields{}
	switch trimmed := strings.TrimSpace(content); {
	case trimmed == "":
		f.add("content", "Comment cannot be empty")
	case utf8.RuneCountInString(trimmed) > MaxCommentRunes:
		f.add("content", "Comment must not exceed 500 characters")
	}
	return f.err("comment")
}

func checkText(f fields, name, value string, min, max int, required, tooShort, tooLong string) {
	value = strings.TrimSpace(value)
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0:
		f.add(name, required)
	case n < min:
		f.add(name, tooShort)
	case n > max:
		f.add(name, tooLong)
	}
}

func checkEmail(f fields, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		f.add("email", "Email is required")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		f.add("email", "Invalid email")
	}
}

func checkThumbnail(f fields, b *models.Blob) {
	switch {
	case b.Size > MaxThumbnailBytes:
		f.add("thumbnail", "Thumbnail must be less than 5MB")
	case !oneOf(b.ContentType, ThumbnailTypes):
		f.add("thumbnail", "Only image files are allowed")
	}
}

func checkImage(f fields, name string, b *models.Blob, max int64, tooLarge string) {
	switch {
	case b.Size > max:
		f.add(name, tooLarge)
	case !strings.HasPrefix(mediaType(b.ContentType), "image/"):
		f.add(name, "Only image files are allowed")
	}
}

func oneOf(contentType string, allowed []string) bool {
	ct := mediaType(contentType)
	for _, a := range allowed {
		if strings.EqualFold(ct, a) {
			return true
		}
	}
	return false
}

// mediaType strips parameters such as "; codecs=avc1".
func mediaType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
