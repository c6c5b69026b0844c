package mockapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/client/internal/api"
	"github.com/vidtube/client/internal/logging"
	"github.com/vidtube/client/internal/middleware"
	"github.com/vidtube/client/internal/models"
)

type tokenHolder struct{ tokens models.SessionTokens }

func (h *tokenHolder) Get(context.Context) (models.SessionTokens, error) { return h.tokens, nil }

func newTestAPI(t *testing.T, opts Options) (*Server, *api.Client, *tokenHolder) {
	t.Helper()
	opts.Logger = logging.Discard()
	opts.BcryptCost = bcrypt.MinCost
	srv := New(opts)
	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(httpSrv.Close)

	holder := &tokenHolder{}
	client := api.New(api.Options{BaseURL: httpSrv.URL, Tokens: holder, Logger: logging.Discard()})
	return srv, client, holder
}

func seedUser(t *testing.T, srv *Server, username string) models.User {
	t.Helper()
	user, err := srv.SeedUser(models.User{
		FullName: "Test User",
		Username: username,
		Email:    username + "@example.com",
		Phone:    "9876543210",
	}, "secret1")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestLoginIssuesTokensAndLogoutRevokes(t *testing.T) {
	srv, client, holder := newTestAPI(t, Options{})
	seedUser(t, srv, "john123")
	ctx := context.Background()

	var tokens models.SessionTokens
	_, err := client.Do(ctx, api.Request{
		Method:   http.MethodPost,
		Endpoint: api.EndpointLogin,
		JSON:     map[string]string{"username": "john123", "password": "secret1"},
	}, &tokens)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !tokens.Complete() {
		t.Fatalf("expected token pair, got %+v", tokens)
	}
	holder.tokens = tokens

	var profile struct {
		User models.User `json:"user"`
	}
	if _, err := client.Do(ctx, api.Request{Method: http.MethodGet, Endpoint: api.EndpointGetProfile, Auth: true}, &profile); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.User.Username != "john123" {
		t.Fatalf("unexpected profile %+v", profile.User)
	}

	if _, err := client.Do(ctx, api.Request{Method: http.MethodPost, Endpoint: api.EndpointLogout, Auth: true}, nil); err != nil {
		t.Fatalf("logout: %v", err)
	}
	_, err = client.Do(ctx, api.Request{Method: http.MethodGet, Endpoint: api.EndpointGetProfile, Auth: true}, nil)
	if apiErr, ok := api.AsError(err); !ok || !apiErr.Unauthorized() {
		t.Fatalf("expected revoked token to be rejected, got %v", err)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv, client, _ := newTestAPI(t, Options{})
	seedUser(t, srv, "john123")

	_, err := client.Do(context.Background(), api.Request{
		Method:   http.MethodPost,
		Endpoint: api.EndpointLogin,
		JSON:     map[string]string{"username": "john123", "password": "nope"},
	}, nil)
	apiErr, ok := api.AsError(err)
	if !ok || apiErr.Status != http.StatusUnauthorized || apiErr.Message != "Invalid user credentials" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	srv, client, _ := newTestAPI(t, Options{})
	user := seedUser(t, srv, "john123")
	original, err := srv.IssueTokens(user.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var rotated models.SessionTokens
	_, err = client.Do(context.Background(), api.Request{
		Method:   http.MethodPost,
		Endpoint: api.EndpointRefreshToken,
		JSON:     map[string]string{"refreshToken": original.RefreshToken},
	}, &rotated)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.AccessToken == original.AccessToken || rotated.RefreshToken == original.RefreshToken {
		t.Fatal("expected a new pair")
	}

	_, err = client.Do(context.Background(), api.Request{
		Method:   http.MethodPost,
		Endpoint: api.EndpointRefreshToken,
		JSON:     map[string]string{"refreshToken": original.RefreshToken},
	}, nil)
	if !api.IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected reused refresh token to fail with 401, got %v", err)
	}
}

func TestFailNextAppliesOnce(t *testing.T) {
	srv, client, _ := newTestAPI(t, Options{})
	srv.FailNextWithFields(http.StatusBadRequest, "Validation failed", map[string]string{"title": "Title is taken"})

	_, err := client.Do(context.Background(), api.Request{Method: http.MethodGet, Endpoint: api.EndpointGetAllVideos}, nil)
	apiErr, ok := api.AsError(err)
	if !ok || apiErr.Status != http.StatusBadRequest || apiErr.Fields["title"] != "Title is taken" {
		t.Fatalf("expected injected failure, got %v", err)
	}

	if _, err := client.Do(context.Background(), api.Request{Method: http.MethodGet, Endpoint: api.EndpointGetAllVideos}, nil); err != nil {
		t.Fatalf("expected second call to succeed: %v", err)
	}
	if srv.Requests("GET /api/videos") != 2 {
		t.Fatalf("expected two counted requests, got %d", srv.Requests("GET /api/videos"))
	}
}

func TestUploadListAndOwnership(t *testing.T) {
	srv, client, holder := newTestAPI(t, Options{})
	ctx := context.Background()
	owner := seedUser(t, srv, "owner")
	other := seedUser(t, srv, "other")

	ownerTokens, _ := srv.IssueTokens(owner.ID)
	otherTokens, _ := srv.IssueTokens(other.ID)
	holder.tokens = ownerTokens

	form := api.NewForm().
		Add("title", "Sunrise timelapse").
		Add("description", "Ten minutes of sunrise in ten seconds").
		AddFile("videoFile", models.NewBlob("sunrise.mp4", "video/mp4", []byte("video"))).
		AddFile("thumbnail", models.NewBlob("sunrise.jpg", "image/jpeg", []byte("jpg")))

	var created struct {
		Video models.VideoRecord `json:"video"`
	}
	if _, err := client.Do(ctx, api.Request{Method: http.MethodPost, Endpoint: api.EndpointUploadVideo, Form: form, Auth: true}, &created); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if created.Video.ID == "" || created.Video.Username != "owner" {
		t.Fatalf("unexpected video %+v", created.Video)
	}

	holder.tokens = otherTokens
	var mine struct {
		Videos []models.VideoRecord `json:"videos"`
	}
	if _, err := client.Do(ctx, api.Request{Method: http.MethodGet, Endpoint: api.EndpointGetMyUploads, Auth: true}, &mine); err != nil {
		t.Fatalf("my uploads: %v", err)
	}
	if len(mine.Videos) != 0 {
		t.Fatalf("other user must not see owner's uploads, got %d", len(mine.Videos))
	}

	_, err := client.Do(ctx, api.Request{Method: http.MethodDelete, Endpoint: api.EndpointDeleteVideo, Path: []string{created.Video.ID}, Auth: true}, nil)
	if !api.IsStatus(err, http.StatusForbidden) {
		t.Fatalf("expected 403 deleting someone else's video, got %v", err)
	}

	holder.tokens = ownerTokens
	if _, err := client.Do(ctx, api.Request{Method: http.MethodDelete, Endpoint: api.EndpointDeleteVideo, Path: []string{created.Video.ID}, Auth: true}, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = client.Do(ctx, api.Request{Method: http.MethodDelete, Endpoint: api.EndpointDeleteVideo, Path: []string{created.Video.ID}, Auth: true}, nil)
	if !api.IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404 on second delete, got %v", err)
	}
}

func TestRegisterRespectsTokenIssuing(t *testing.T) {
	srv, client, _ := newTestAPI(t, Options{})

	register := func(username string) map[string]any {
		form := api.NewForm().
			Add("fullname", "Jane Doe").
			Add("username", username).
			Add("email", username+"@example.com").
			Add("phone", "9876543210").
			Add("password", "secret1").
			AddFile("avatar", models.NewBlob("me.png", "image/png", []byte("png")))
		var data map[string]any
		if _, err := client.Do(context.Background(), api.Request{Method: http.MethodPost, Endpoint: api.EndpointRegister, Form: form}, &data); err != nil {
			t.Fatalf("register %s: %v", username, err)
		}
		return data
	}

	if data := register("jane"); data["accessToken"] != nil {
		t.Fatalf("expected no tokens by default, got %v", data)
	}

	srv.SetIssueTokensOnRegister(true)
	if data := register("jane2"); data["accessToken"] == nil || data["refreshToken"] == nil {
		t.Fatalf("expected tokens, got %v", data)
	}

	form := api.NewForm().Add("username", "jane").Add("password", "secret1")
	_, err := client.Do(context.Background(), api.Request{Method: http.MethodPost, Endpoint: api.EndpointRegister, Form: form}, nil)
	apiErr, ok := api.AsError(err)
	if !ok || apiErr.Fields["avatar"] == "" || apiErr.Fields["email"] == "" {
		t.Fatalf("expected field errors, got %v", err)
	}
}

func TestLoginRateLimited(t *testing.T) {
	limiter := middleware.NewKeyedLimiter(1, time.Hour, 1, time.Hour)
	srv, client, _ := newTestAPI(t, Options{LoginLimiter: limiter})
	seedUser(t, srv, "john123")

	login := func() error {
		_, err := client.Do(context.Background(), api.Request{
			Method:   http.MethodPost,
			Endpoint: api.EndpointLogin,
			JSON:     map[string]string{"username": "john123", "password": "secret1"},
		}, nil)
		return err
	}

	if err := login(); err != nil {
		t.Fatalf("first login: %v", err)
	}
	if err := login(); !api.IsStatus(err, http.StatusTooManyRequests) {
		t.Fatalf("expected 429, got %v", err)
	}
}

func TestFailRouteWaitsForMatchingRequest(t *testing.T) {
	srv, client, _ := newTestAPI(t, Options{})
	srv.FailRoute("GET /api/videos/my-uploads", http.StatusInternalServerError, "boom")
	ctx := context.Background()

	if _, err := client.Do(ctx, api.Request{Method: http.MethodGet, Endpoint: api.EndpointGetAllVideos}, nil); err != nil {
		t.Fatalf("unrelated route must not fail: %v", err)
	}
	_, err := client.Do(ctx, api.Request{Method: http.MethodGet, Endpoint: api.EndpointGetMyUploads, Auth: true}, nil)
	if !api.IsStatus(err, http.StatusInternalServerError) {
		t.Fatalf("expected injected 500, got %v", err)
	}
}
