// Package mockapi is an in-memory stand-in for the VideoTube REST API. It
// backs the test-suite and the mock-server command.
package mockapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/client/internal/logging"
	"github.com/vidtube/client/internal/middleware"
	"github.com/vidtube/client/internal/models"
)

// Options configures a Server.
type Options struct {
	Logger     *slog.Logger
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost; tests use bcrypt.MinCost.
	BcryptCost int
	// IssueTokensOnRegister makes registration sign the new user in.
	IssueTokensOnRegister bool
	// LoginLimiter throttles login attempts per client address.
	LoginLimiter middleware.RateLimiter
	NowFunc      func() time.Time
}

type account struct {
	user     models.User
	password []byte
	deleted  bool
}

type failure struct {
	pattern string
	status  int
	message string
	fields  map[string]string
}

// Server holds the fake API state. All methods are safe for concurrent use.
type Server struct {
	logger   *slog.Logger
	sessions *sessionIssuer
	limiter  middleware.RateLimiter
	cost     int
	now      func() time.Time

	mu              sync.Mutex
	accounts        map[string]*account
	accountOrder    []string
	videos          []models.VideoRecord
	owners          map[string]string
	comments        map[string][]models.Comment
	failures        []failure
	requests        map[string]int
	issueOnRegister bool
}

// New constructs an empty Server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.NowFunc == nil {
		opts.NowFunc = func() time.Time { return time.Now().UTC() }
	}
	return &Server{
		logger:          opts.Logger,
		sessions:        newSessionIssuer(opts.AccessTTL, opts.RefreshTTL, opts.NowFunc),
		limiter:         opts.LoginLimiter,
		cost:            opts.BcryptCost,
		now:             opts.NowFunc,
		accounts:        make(map[string]*account),
		owners:          make(map[string]string),
		comments:        make(map[string][]models.Comment),
		requests:        make(map[string]int),
		issueOnRegister: opts.IssueTokensOnRegister,
	}
}

// Handler returns the routed API wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.health)

	mux.HandleFunc("POST /api/users/register", s.register)
	mux.HandleFunc("POST /api/users/login", s.login)
	mux.HandleFunc("POST /api/users/logout", s.logout)
	mux.HandleFunc("POST /api/users/refresh-token", s.refreshToken)
	mux.HandleFunc("GET /api/users/profile", s.profile)
	mux.HandleFunc("GET /api/users/all", s.listUsers)
	mux.HandleFunc("PATCH /api/users/update/{id}", s.updateUser)
	mux.HandleFunc("PATCH /api/users/delete/{id}", s.deleteUser)

	mux.HandleFunc("GET /api/videos", s.listVideos)
	mux.HandleFunc("GET /api/videos/my-uploads", s.myUploads)
	mux.HandleFunc("GET /api/videos/{id}", s.getVideo)
	mux.HandleFunc("POST /api/videos/upload", s.uploadVideo)
	mux.HandleFunc("PATCH /api/videos/{id}", s.editVideo)
	mux.HandleFunc("DELETE /api/videos/{id}", s.deleteVideo)
	mux.HandleFunc("PATCH /api/videos/publish/{id}", s.togglePublish)
	mux.HandleFunc("POST /api/videos/like/{id}", s.likeVideo)

	mux.HandleFunc("GET /api/comment/{videoId}", s.listComments)
	mux.HandleFunc("POST /api/comment/{videoId}", s.addComment)
	mux.HandleFunc("POST /api/comment/like/{id}", s.likeComment)

	return middleware.RequestLogger(s.logger)(s.intercept(mux))
}

// FailNext makes the next API request answer status with message, whatever its route.
func (s *Server) FailNext(status int, message string) {
	s.FailNextWithFields(status, message, nil)
}

// FailNextWithFields is FailNext with a field error map in the body.
func (s *Server) FailNextWithFields(status int, message string, fields map[string]string) {
	s.mu.Lock()
	s.failures = append(s.failures, failure{status: status, message: message, fields: fields})
	s.mu.Unlock()
}

// FailRoute makes the next request matching pattern, e.g.
// "GET /api/videos/my-uploads", answer status with message.
func (s *Server) FailRoute(pattern string, status int, message string) {
	s.mu.Lock()
	s.failures = append(s.failures, failure{pattern: pattern, status: status, message: message})
	s.mu.Unlock()
}

// SetIssueTokensOnRegister toggles whether registration signs the user in.
func (s *Server) SetIssueTokensOnRegister(enabled bool) {
	s.mu.Lock()
	s.issueOnRegister = enabled
	s.mu.Unlock()
}

// Requests returns how many requests reached the route pattern, e.g.
// "POST /api/users/login". An empty pattern returns the total.
func (s *Server) Requests(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pattern == "" {
		total := 0
		for _, n := range s.requests {
			total += n
		}
		return total
	}
	return s.requests[pattern]
}

func (s *Server) intercept(next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pattern := next.Handler(r)

		s.mu.Lock()
		s.requests[pattern]++
		var injected *failure
		if strings.HasPrefix(r.URL.Path, "/api/") {
			injected = s.takeFailureLocked(pattern)
		}
		s.mu.Unlock()

		if injected != nil {
			writeError(r.Context(), w, injected.status, injected.message, injected.fields)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// takeFailureLocked pops the first queued failure that applies to pattern.
func (s *Server) takeFailureLocked(pattern string) *failure {
	for i, f := range s.failures {
		if f.pattern == "" || f.pattern == pattern {
			s.failures = append(s.failures[:i:i], s.failures[i+1:]...)
			return &f
		}
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeData(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"}, "")
}

// currentAccount resolves the bearer token. It writes the 401 itself and
// returns nil when the caller is not signed in.
func (s *Server) currentAccount(w http.ResponseWriter, r *http.Request) (*account, string) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		writeError(r.Context(), w, http.StatusUnauthorized, "Unauthorized request", nil)
		return nil, ""
	}

	userID, err := s.sessions.Authenticate(token)
	if err != nil {
		logging.FromContext(r.Context()).Warn("bearer rejected", "error", err)
		writeError(r.Context(), w, http.StatusUnauthorized, "Invalid access token", nil)
		return nil, ""
	}

	s.mu.Lock()
	acct, found := s.accounts[userID]
	s.mu.Unlock()
	if !found || acct.deleted {
		writeError(r.Context(), w, http.StatusUnauthorized, "Invalid access token", nil)
		return nil, ""
	}
	return acct, token
}

type envelope struct {
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

type errorEnvelope struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeData(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	respondJSON(ctx, w, status, envelope{Data: data, Message: message})
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, message string, fields map[string]string) {
	respondJSON(ctx, w, status, errorEnvelope{Message: message, Errors: fields})
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}
