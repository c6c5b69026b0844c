package mockapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/client/internal/logging"
	"github.com/vidtube/client/internal/models"
)

const maxFormMemory = 32 << 20

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authData struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *models.User `json:"user,omitempty"`
}

// SeedUser registers an account directly, bypassing HTTP. Tests use it to
// set up fixtures.
func (s *Server) SeedUser(user models.User, password string) (models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findByUsernameLocked(user.Username) != nil {
		return models.User{}, errors.New("username already taken")
	}
	s.accounts[user.ID] = &account{user: user, password: hashed}
	s.accountOrder = append(s.accountOrder, user.ID)
	return user, nil
}

// IssueTokens signs in an existing account without a login round trip.
func (s *Server) IssueTokens(userID string) (models.SessionTokens, error) {
	return s.sessions.Issue(userID)
}

func (s *Server) findByUsernameLocked(username string) *account {
	for _, id := range s.accountOrder {
		acct := s.accounts[id]
		if !acct.deleted && strings.EqualFold(acct.user.Username, username) {
			return acct
		}
	}
	return nil
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		logger.Warn("invalid register payload", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Registration must be sent as multipart form data", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	user := models.User{
		FullName: strings.TrimSpace(r.FormValue("fullname")),
		Username: strings.TrimSpace(r.FormValue("username")),
		Email:    strings.TrimSpace(strings.ToLower(r.FormValue("email"))),
		Phone:    strings.TrimSpace(r.FormValue("phone")),
	}
	password := r.FormValue("password")

	fields := map[string]string{}
	if user.FullName == "" {
		fields["fullname"] = "Full name is required"
	}
	if user.Username == "" {
		fields["username"] = "Username is required"
	}
	if _, err := mail.ParseAddress(user.Email); err != nil {
		fields["email"] = "Email is invalid"
	}
	if !phonePattern.MatchString(user.Phone) {
		fields["phone"] = "Phone must be 10 digits"
	}
	if len(password) < 6 {
		fields["password"] = "Password must be at least 6 characters"
	}

	avatar, avatarHeader, err := r.FormFile("avatar")
	if err != nil {
		fields["avatar"] = "Avatar file is required"
	} else {
		avatar.Close()
		user.Avatar = mediaURL("avatars", avatarHeader.Filename)
	}
	if cover, coverHeader, err := r.FormFile("coverImage"); err == nil {
		cover.Close()
		user.CoverImage = mediaURL("covers", coverHeader.Filename)
	}

	if len(fields) > 0 {
		writeError(ctx, w, http.StatusBadRequest, "Validation failed", fields)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		logger.Error("register failed to hash password", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to secure password", nil)
		return
	}

	s.mu.Lock()
	if s.findByUsernameLocked(user.Username) != nil {
		s.mu.Unlock()
		writeError(ctx, w, http.StatusConflict, "User with username already exists",
			map[string]string{"username": "Username is already taken"})
		return
	}
	for _, id := range s.accountOrder {
		if acct := s.accounts[id]; !acct.deleted && acct.user.Email == user.Email {
			s.mu.Unlock()
			writeError(ctx, w, http.StatusConflict, "User with email already exists",
				map[string]string{"email": "Email is already registered"})
			return
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = s.now()
	s.accounts[user.ID] = &account{user: user, password: hashed}
	s.accountOrder = append(s.accountOrder, user.ID)
	issue := s.issueOnRegister
	s.mu.Unlock()

	if !issue {
		writeData(ctx, w, http.StatusCreated, map[string]any{"user": user}, "User registered successfully")
		return
	}

	tokens, err := s.sessions.Issue(user.ID)
	if err != nil {
		logger.Error("register failed to issue session", "error", err, "userId", user.ID)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to create session", nil)
		return
	}
	writeData(ctx, w, http.StatusCreated, authData{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken, User: &user},
		"User registered successfully")
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(s.limiter, r, "login") {
		writeError(ctx, w, http.StatusTooManyRequests, "Too many login attempts, try again later", nil)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(ctx, w, http.StatusBadRequest, "Username and password are required", nil)
		return
	}

	s.mu.Lock()
	acct := s.findByUsernameLocked(req.Username)
	var (
		user   models.User
		hashed []byte
	)
	if acct != nil {
		user, hashed = acct.user, acct.password
	}
	s.mu.Unlock()

	if acct == nil {
		logger.Warn("login unknown user", "username", req.Username)
		writeError(ctx, w, http.StatusUnauthorized, "User does not exist", nil)
		return
	}
	if err := bcrypt.CompareHashAndPassword(hashed, []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		writeError(ctx, w, http.StatusUnauthorized, "Invalid user credentials", nil)
		return
	}

	tokens, err := s.sessions.Issue(user.ID)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", user.ID)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to create session", nil)
		return
	}

	writeData(ctx, w, http.StatusOK, authData{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken, User: &user},
		"User logged in successfully")
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	acct, token := s.currentAccount(w, r)
	if acct == nil {
		return
	}
	s.sessions.Revoke(token)
	writeData(r.Context(), w, http.StatusOK, map[string]any{}, "User logged out")
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		writeError(ctx, w, http.StatusUnauthorized, "Refresh token is required", nil)
		return
	}

	tokens, err := s.sessions.Refresh(req.RefreshToken)
	if err != nil {
		logging.FromContext(ctx).Warn("refresh failed", "error", err)
		writeError(ctx, w, http.StatusUnauthorized, "Refresh token is expired or used", nil)
		return
	}
	writeData(ctx, w, http.StatusOK, authData{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken},
		"Access token refreshed")
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	acct, _ := s.currentAccount(w, r)
	if acct == nil {
		return
	}
	s.mu.Lock()
	user := acct.user
	s.mu.Unlock()
	writeData(r.Context(), w, http.StatusOK, map[string]any{"user": user}, "")
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if acct, _ := s.currentAccount(w, r); acct == nil {
		return
	}

	s.mu.Lock()
	users := make([]models.User, 0, len(s.accountOrder))
	for _, id := range s.accountOrder {
		if acct := s.accounts[id]; !acct.deleted {
			users = append(users, acct.user)
		}
	}
	s.mu.Unlock()

	writeData(r.Context(), w, http.StatusOK, users, "")
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if acct, _ := s.currentAccount(w, r); acct == nil {
		return
	}

	var req models.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	id := r.PathValue("id")
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.accounts[id]
	if !ok || target.deleted {
		writeError(ctx, w, http.StatusNotFound, "User not found", nil)
		return
	}
	if req.Username != "" {
		if other := s.findByUsernameLocked(req.Username); other != nil && other.user.ID != id {
			writeError(ctx, w, http.StatusConflict, "Username already taken",
				map[string]string{"username": "Username is already taken"})
			return
		}
		target.user.Username = strings.TrimSpace(req.Username)
	}
	if req.FullName != "" {
		target.user.FullName = strings.TrimSpace(req.FullName)
	}
	if req.Email != "" {
		target.user.Email = strings.TrimSpace(strings.ToLower(req.Email))
	}
	if req.Phone != "" {
		target.user.Phone = strings.TrimSpace(req.Phone)
	}

	writeData(ctx, w, http.StatusOK, target.user, "User updated successfully")
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if acct, _ := s.currentAccount(w, r); acct == nil {
		return
	}

	id := r.PathValue("id")
	s.mu.Lock()
	target, ok := s.accounts[id]
	if ok && !target.deleted {
		target.deleted = true
	}
	s.mu.Unlock()

	if !ok {
		writeError(ctx, w, http.StatusNotFound, "User not found", nil)
		return
	}
	s.sessions.RevokeUser(id)
	writeData(ctx, w, http.StatusOK, map[string]any{}, "User deleted successfully")
}

func mediaURL(kind, filename string) string {
	return "/media/" + kind + "/" + uuid.NewString() + "-" + strings.ReplaceAll(filename, " ", "_")
}
