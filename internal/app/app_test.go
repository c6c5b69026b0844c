package app

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/client/internal/apperrors"
	"github.com/vidtube/client/internal/catalog"
	"github.com/vidtube/client/internal/config"
	"github.com/vidtube/client/internal/logging"
	"github.com/vidtube/client/internal/mockapi"
	"github.com/vidtube/client/internal/models"
)

type harness struct {
	srv   *mockapi.Server
	cfg   config.Config
	owner models.User
	other models.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := mockapi.New(mockapi.Options{Logger: logging.Discard(), BcryptCost: bcrypt.MinCost})
	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(httpSrv.Close)

	h := &harness{srv: srv, cfg: testConfig(t, httpSrv.URL)}
	h.owner = h.seedUser(t, "owner")
	h.other = h.seedUser(t, "other")
	return h
}

func testConfig(t *testing.T, baseURL string) config.Config {
	return config.Config{
		APIBaseURL:  baseURL,
		HTTPTimeout: 5 * time.Second,
		LogLevel:    "error",
		LogFormat:   "text",
		Session: config.SessionConfig{
			Backend: config.BackendFile,
			Path:    filepath.Join(t.TempDir(), "session.json"),
			Profile: "default",
		},
		YTDLPPath:    "yt-dlp",
		YTDLPTimeout: time.Second,
		Uploads:      config.UploadConfig{Workers: 2, QueueSize: 4, JobTimeout: time.Minute},
		Mock:         config.MockConfig{Host: "127.0.0.1"},
	}
}

func (h *harness) seedUser(t *testing.T, username string) models.User {
	t.Helper()
	user, err := h.srv.SeedUser(models.User{
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

func (h *harness) seedVideo(t *testing.T, title string) models.VideoRecord {
	t.Helper()
	video, err := h.srv.SeedVideo(h.owner.ID, models.VideoRecord{
		Title:       title,
		Description: "Description of " + title,
		VideoFile:   "/media/videos/" + strings.ReplaceAll(title, " ", "_") + ".mp4",
	})
	if err != nil {
		t.Fatalf("seed video: %v", err)
	}
	return video
}

func (h *harness) run(args ...string) (string, error) {
	var out bytes.Buffer
	err := run(context.Background(), h.cfg, args, &out, io.Discard)
	return out.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(args...)
	if err != nil {
		t.Fatalf("%s: %v (output %q)", strings.Join(args, " "), err, out)
	}
	return out
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.mustRun(t, "login", "-username", "owner", "-password", "secret1")
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestSessionCommands(t *testing.T) {
	h := newHarness(t)

	if out := h.mustRun(t, "status"); !strings.Contains(out, "signed out") {
		t.Fatalf("expected signed out status, got %q", out)
	}
	if out := h.mustRun(t, "login", "-username", "owner", "-password", "secret1"); out != "Signed in as owner.\n" {
		t.Fatalf("unexpected login output %q", out)
	}
	if out := h.mustRun(t, "status"); !strings.Contains(out, "signed in (file backend, profile default)") {
		t.Fatalf("expected signed in status, got %q", out)
	}
	if out := h.mustRun(t, "profile"); !strings.Contains(out, "owner@example.com") {
		t.Fatalf("unexpected profile output %q", out)
	}
	if out := h.mustRun(t, "refresh"); out != "Session refreshed.\n" {
		t.Fatalf("unexpected refresh output %q", out)
	}
	if out := h.mustRun(t, "logout"); out != "Signed out.\n" {
		t.Fatalf("unexpected logout output %q", out)
	}
	if out := h.mustRun(t, "status"); !strings.Contains(out, "signed out") {
		t.Fatalf("expected signed out after logout, got %q", out)
	}
}

func TestLoginFailureMessage(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("login", "-username", "owner", "-password", "wrong-password")
	if err == nil {
		t.Fatal("expected login failure")
	}
	if got := apperrors.Message(err); got != "Invalid user credentials" {
		t.Fatalf("unexpected message %q", got)
	}

	_, err = h.run("login", "-username", "owner")
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if h.srv.Requests("POST /api/users/login") != 1 {
		t.Fatalf("validation failure must not reach the server")
	}
}

func TestVideoCommands(t *testing.T) {
	h := newHarness(t)
	first := h.seedVideo(t, "First video")
	h.seedVideo(t, "Second video")
	h.login(t)

	out := h.mustRun(t, "videos")
	if !strings.Contains(out, "First video") || !strings.Contains(out, "Second video") {
		t.Fatalf("unexpected list %q", out)
	}
	if out := h.mustRun(t, "my-videos"); !strings.Contains(out, first.ID) {
		t.Fatalf("expected own uploads to list %s, got %q", first.ID, out)
	}
	if out := h.mustRun(t, "show", first.ID); !strings.Contains(out, "Description of First video") {
		t.Fatalf("unexpected detail %q", out)
	}
	if out := h.mustRun(t, "like", first.ID); !strings.Contains(out, "(1 likes)") {
		t.Fatalf("unexpected like output %q", out)
	}
	if out := h.mustRun(t, "publish", first.ID); !strings.Contains(out, "is now published") {
		t.Fatalf("unexpected publish output %q", out)
	}
	if out := h.mustRun(t, "delete", first.ID); out != fmt.Sprintf("Deleted video %s.\n", first.ID) {
		t.Fatalf("unexpected delete output %q", out)
	}
	if got := len(h.srv.Videos()); got != 1 {
		t.Fatalf("expected 1 video left, got %d", got)
	}

	_, err := h.run("delete", first.ID)
	if got := apperrors.Message(err); got != "Video not found" {
		t.Fatalf("expected server not-found message, got %q", got)
	}
}

func TestEmptyCatalog(t *testing.T) {
	h := newHarness(t)
	if out := h.mustRun(t, "videos"); out != "No videos yet.\n" {
		t.Fatalf("unexpected output %q", out)
	}
	if out := h.mustRun(t, "play"); out != "No videos to play.\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestMyVideosRequiresSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("my-videos")
	if !errors.Is(err, apperrors.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestPlayPicksDeepLinkOrFirst(t *testing.T) {
	h := newHarness(t)
	h.seedVideo(t, "Opening act")
	second := h.seedVideo(t, "Main feature")

	out := h.mustRun(t, "play")
	if !strings.HasPrefix(out, "Now playing: Opening act\n") || !strings.Contains(out, "Main feature") {
		t.Fatalf("unexpected default pick %q", out)
	}

	out = h.mustRun(t, "play", second.ID)
	if !strings.HasPrefix(out, "Now playing: Main feature\n") {
		t.Fatalf("expected deep link to win, got %q", out)
	}

	out = h.mustRun(t, "play", "missing")
	if !strings.Contains(out, "Video missing is not listed") || !strings.Contains(out, "Now playing: Opening act") {
		t.Fatalf("expected fallback to first video, got %q", out)
	}
}

func TestUploadCommand(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	dir := t.TempDir()
	video := writeFile(t, dir, "clip.mp4", strings.Repeat("v", 4096))
	thumb := writeFile(t, dir, "thumb.png", "png")

	out := h.mustRun(t, "upload",
		"-title", "Holiday clip",
		"-description", "Ten seconds of beach.",
		"-video", video,
		"-thumbnail", thumb,
	)
	if !strings.Contains(out, "Uploading 100%") || !strings.Contains(out, `Uploaded "Holiday clip" as `) {
		t.Fatalf("unexpected upload output %q", out)
	}
	if got := len(h.srv.Videos()); got != 1 {
		t.Fatalf("expected 1 stored video, got %d", got)
	}

	_, err := h.run("upload", "-title", "Holiday clip", "-description", "Ten seconds of beach.", "-video", video)
	if got := apperrors.Message(err); got != "Thumbnail is required" {
		t.Fatalf("unexpected validation message %q", got)
	}
	if h.srv.Requests("POST /api/videos/upload") != 1 {
		t.Fatal("invalid upload must not reach the server")
	}
}

func TestUploadBatch(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.mp4", "aaaa")
	writeFile(t, dir, "b.mp4", "bbbb")
	writeFile(t, dir, "thumb.jpg", "jpg")
	manifest := writeFile(t, dir, "batch.yaml", `uploads:
  - title: First batch video
    description: The first of the batch.
    video: a.mp4
    thumbnail: thumb.jpg
  - title: Second batch video
    description: The second of the batch.
    video: b.mp4
    thumbnail: thumb.jpg
  - title: Bad
    description: Title is too short for the form.
    video: a.mp4
    thumbnail: thumb.jpg
`)

	out, err := h.run("upload-batch", manifest)
	if err == nil || err.Error() != "1 of 3 uploads failed" {
		t.Fatalf("expected one failure, got %v", err)
	}
	if !strings.Contains(out, "Uploaded 2 of 3 videos.") {
		t.Fatalf("unexpected summary %q", out)
	}
	if !strings.Contains(out, `[3] "Bad" failed: Title must be at least 5 characters`) {
		t.Fatalf("expected the failure to be reported, got %q", out)
	}
	if got := len(h.srv.Videos()); got != 2 {
		t.Fatalf("expected 2 stored videos, got %d", got)
	}
}

func TestUploadBatchManifestErrors(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()

	empty := writeFile(t, dir, "empty.yaml", "uploads: []\n")
	if _, err := h.run("upload-batch", empty); err == nil || !strings.Contains(err.Error(), "lists no uploads") {
		t.Fatalf("expected empty manifest error, got %v", err)
	}

	unknown := writeFile(t, dir, "unknown.yaml", "videos:\n  - title: x\n")
	if _, err := h.run("upload-batch", unknown); err == nil || !strings.Contains(err.Error(), "parse manifest") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestEditPrefillsCurrentValues(t *testing.T) {
	h := newHarness(t)
	video := h.seedVideo(t, "Original title")
	h.login(t)

	if out := h.mustRun(t, "edit", "-title", "Better title", video.ID); out != "Updated \"Better title\".\n" {
		t.Fatalf("unexpected edit output %q", out)
	}

	stored := h.srv.Videos()[0]
	if stored.Title != "Better title" || stored.Description != "Description of Original title" {
		t.Fatalf("unexpected stored video %+v", stored)
	}
}

func TestCommentCommands(t *testing.T) {
	h := newHarness(t)
	video := h.seedVideo(t, "Talked about")
	h.login(t)

	if out := h.mustRun(t, "comments", video.ID); out != "No comments yet.\n" {
		t.Fatalf("unexpected empty comments %q", out)
	}

	out := h.mustRun(t, "comment", video.ID, "Great", "video")
	if !strings.HasPrefix(out, "Comment ") {
		t.Fatalf("unexpected comment output %q", out)
	}
	commentID := strings.Fields(out)[1]

	if out := h.mustRun(t, "comments", video.ID); !strings.Contains(out, "Great video") {
		t.Fatalf("expected comment listed, got %q", out)
	}
	if out := h.mustRun(t, "comment-like", commentID); !strings.Contains(out, "(1 likes)") {
		t.Fatalf("unexpected like output %q", out)
	}
}

func TestUserCommands(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	out := h.mustRun(t, "users")
	if !strings.Contains(out, "owner@example.com") || !strings.Contains(out, "other@example.com") {
		t.Fatalf("unexpected users %q", out)
	}

	if out := h.mustRun(t, "user-update", "-fullname", "Renamed Other", h.other.ID); out != "Updated other.\n" {
		t.Fatalf("unexpected update output %q", out)
	}
	if out := h.mustRun(t, "users"); !strings.Contains(out, "Renamed Other") {
		t.Fatalf("expected renamed user, got %q", out)
	}

	if _, err := h.run("user-update", "missing-id"); !errors.Is(err, apperrors.ErrNotFoundLocal) {
		t.Fatalf("expected not-found error, got %v", err)
	}

	if out := h.mustRun(t, "user-delete", h.other.ID); out != fmt.Sprintf("Deleted user %s.\n", h.other.ID) {
		t.Fatalf("unexpected delete output %q", out)
	}
	if out := h.mustRun(t, "users"); strings.Contains(out, "other@example.com") {
		t.Fatalf("deleted user still listed: %q", out)
	}
}

type memorySink struct {
	mu   sync.Mutex
	docs map[string]string
}

func (s *memorySink) Save(_ context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[name] = string(data)
	return "mem://" + name, nil
}

func TestExportCommand(t *testing.T) {
	h := newHarness(t)
	h.seedVideo(t, "Exported video")
	h.login(t)

	if _, err := h.run("export"); !errors.Is(err, errExportBucket) {
		t.Fatalf("expected missing bucket error, got %v", err)
	}

	sink := &memorySink{docs: map[string]string{}}
	original := openExportSink
	openExportSink = func(context.Context, config.ObjectStoreConfig) (catalog.Sink, error) { return sink, nil }
	t.Cleanup(func() { openExportSink = original })
	h.cfg.Export.Bucket = "exports"

	if out := h.mustRun(t, "export", "-name", "videos.json"); out != "Exported to mem://videos.json.\n" {
		t.Fatalf("unexpected export output %q", out)
	}
	if doc := sink.docs["videos.json"]; !strings.Contains(doc, "Exported video") || !strings.Contains(doc, `"count": 1`) {
		t.Fatalf("unexpected export document %s", doc)
	}

	out := h.mustRun(t, "export", "-slot", "users")
	if !strings.HasPrefix(out, "Exported to mem://exports/users-") {
		t.Fatalf("unexpected users export output %q", out)
	}

	if _, err := h.run("export", "-slot", "favourites"); !errors.Is(err, catalog.ErrUnknownSlot) {
		t.Fatalf("expected unknown slot error, got %v", err)
	}
}

func TestImportCommand(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	var out bytes.Buffer
	logger := logging.Discard()
	deps, cleanup, err := buildDependencies(context.Background(), h.cfg, logger)
	if err != nil {
		t.Fatalf("build dependencies: %v", err)
	}
	defer cleanup()

	deps.Importer.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		if !strings.Contains(strings.Join(args, " "), "--no-simulate") {
			return []byte(`{"title":"Remote clip","description":"Looked up without downloading.","duration":42}`), nil
		}
		dir := ""
		for i, arg := range args {
			if arg == "-o" && i+1 < len(args) {
				dir = filepath.Dir(args[i+1])
			}
		}
		video := filepath.Join(dir, "abc.mp4")
		thumb := filepath.Join(dir, "abc.jpg")
		if err := os.WriteFile(video, []byte("remote-video"), 0o600); err != nil {
			return nil, err
		}
		if err := os.WriteFile(thumb, []byte("jpg"), 0o600); err != nil {
			return nil, err
		}
		return []byte(fmt.Sprintf(`{"title":"Remote clip","description":"","requested_downloads":[{"filepath":%q}]}`, video)), nil
	}

	e := &env{cfg: h.cfg, deps: deps, out: &out, logger: logger}
	cmd, _ := lookup("import")

	if err := dispatch(context.Background(), e, cmd, []string{"-dry-run", "https://example.com/v/abc"}); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !strings.Contains(out.String(), "Remote clip") || !strings.Contains(out.String(), "42s") {
		t.Fatalf("unexpected dry run output %q", out.String())
	}
	if len(h.srv.Videos()) != 0 {
		t.Fatal("dry run must not upload")
	}

	out.Reset()
	if err := dispatch(context.Background(), e, cmd, []string{"https://example.com/v/abc"}); err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out.String(), `Uploaded "Remote clip"`) {
		t.Fatalf("unexpected import output %q", out.String())
	}
	videos := h.srv.Videos()
	if len(videos) != 1 || videos[0].Description != "Imported from https://example.com/v/abc" {
		t.Fatalf("unexpected stored videos %+v", videos)
	}
}

func TestUsageAndUnknownCommands(t *testing.T) {
	h := newHarness(t)

	out, err := h.run()
	if !errors.Is(err, errNoCommand) || !strings.Contains(out, "usage: vidtube") {
		t.Fatalf("expected usage with errNoCommand, got %v %q", err, out)
	}
	if out := h.mustRun(t, "help"); !strings.Contains(out, "mock-server") {
		t.Fatalf("expected command list, got %q", out)
	}
	if _, err := h.run("bogus"); err == nil || !strings.Contains(err.Error(), `unknown command "bogus"`) {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if _, err := h.run("show"); err == nil || !strings.Contains(err.Error(), "usage: vidtube show ID") {
		t.Fatalf("expected usage error, got %v", err)
	}
	if out := h.mustRun(t, "login", "-h"); !strings.Contains(out, "-username") {
		t.Fatalf("expected flag help, got %q", out)
	}
}

// syncBuffer lets the test read output while the server goroutine writes it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestMockServerCommand(t *testing.T) {
	cfg := testConfig(t, "http://unused")
	cfg.Mock.LoginLimit = 10
	cfg.Mock.LoginWindow = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, cfg, []string{"mock-server", "-port", "0", "-seed"}, out, io.Discard)
	}()

	baseURL := ""
	deadline := time.Now().Add(5 * time.Second)
	for baseURL == "" && time.Now().Before(deadline) {
		scanner := bufio.NewScanner(strings.NewReader(out.String()))
		for scanner.Scan() {
			if addr, ok := strings.CutPrefix(scanner.Text(), "Mock API listening on "); ok {
				baseURL = addr
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	if baseURL == "" {
		t.Fatalf("server did not report its address: %q", out.String())
	}

	resp, err := http.Get(baseURL + "/healthz")
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected health status %d", resp.StatusCode)
	}

	client := &harness{cfg: testConfig(t, baseURL)}
	client.mustRun(t, "login", "-username", demoUsername, "-password", demoPassword)
	if videos := client.mustRun(t, "videos"); !strings.Contains(videos, "Mountain timelapse") {
		t.Fatalf("expected seeded videos, got %q", videos)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("mock-server returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("mock-server did not shut down")
	}
}
