package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vidtube/client/internal/models"
)

// CommandRunner executes external commands and returns stdout bytes.
type CommandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// YTDLP fetches metadata and media using the yt-dlp CLI tool.
type YTDLP struct {
	Binary  string
	Args    []string
	Run     CommandRunner
	Timeout time.Duration
}

var baseArgs = []string{"--dump-single-json", "--no-warnings", "--no-playlist"}

// NewYTDLP constructs a Provider that shells out to yt-dlp.
func NewYTDLP(binary string, timeout time.Duration) *YTDLP {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YTDLP{
		Binary:  binary,
		Args:    append(append([]string{}, baseArgs...), "--skip-download"),
		Run:     defaultCommandRunner,
		Timeout: timeout,
	}
}

type ytdlpPayload struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Thumbnail   string  `json:"thumbnail"`
	Duration    float64 `json:"duration"`

	RequestedDownloads []struct {
		Filepath string `json:"filepath"`
	} `json:"requested_downloads"`
	Thumbnails []struct {
		Filepath string `json:"filepath"`
	} `json:"thumbnails"`
}

func (p ytdlpPayload) metadata() Metadata {
	return Metadata{
		Title:       p.Title,
		Description: p.Description,
		Thumbnail:   p.Thumbnail,
		Duration:    p.Duration,
	}
}

// Lookup executes yt-dlp for the provided URL and parses the JSON response.
func (p *YTDLP) Lookup(ctx context.Context, url string) (Metadata, error) {
	if p == nil {
		return Metadata{}, ErrProviderUnavailable
	}

	payload, err := p.exec(ctx, p.Timeout, append(append([]string{}, p.Args...), url))
	if err != nil {
		return Metadata{}, err
	}
	if payload.Title == "" && payload.Description == "" && payload.Thumbnail == "" {
		return Metadata{}, errors.New("yt-dlp returned empty metadata")
	}
	return payload.metadata(), nil
}

// Imported is a downloaded video ready to be uploaded. Close releases the
// open files; the downloaded files stay in the target directory.
type Imported struct {
	Metadata Metadata
	Upload   models.PendingUpload
	closers  []io.Closer
}

// Close closes the video and thumbnail files.
func (i *Imported) Close() error {
	var errs []error
	for _, c := range i.closers {
		errs = append(errs, c.Close())
	}
	i.closers = nil
	return errors.Join(errs...)
}

// Download fetches url as mp4 plus a jpg thumbnail into dir and returns an
// upload prefilled from the site's metadata.
func (p *YTDLP) Download(ctx context.Context, url, dir string) (*Imported, error) {
	if p == nil {
		return nil, ErrProviderUnavailable
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	args := append([]string{}, baseArgs...)
	args = append(args,
		"--no-simulate",
		"-f", "mp4/best",
		"--write-thumbnail",
		"--convert-thumbnails", "jpg",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
		url,
	)

	payload, err := p.exec(ctx, maxDuration(10*p.Timeout, 10*time.Minute), args)
	if err != nil {
		return nil, err
	}

	if len(payload.RequestedDownloads) == 0 || payload.RequestedDownloads[0].Filepath == "" {
		return nil, errors.New("yt-dlp did not produce a video file")
	}
	videoPath := payload.RequestedDownloads[0].Filepath

	thumbPath := ""
	for _, thumb := range payload.Thumbnails {
		if thumb.Filepath != "" {
			thumbPath = thumb.Filepath
		}
	}
	if thumbPath == "" {
		candidate := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".jpg"
		if _, err := os.Stat(candidate); err == nil {
			thumbPath = candidate
		}
	}

	imported := &Imported{Metadata: payload.metadata()}
	video, closer, err := models.OpenFileBlob(videoPath)
	if err != nil {
		return nil, err
	}
	imported.closers = append(imported.closers, closer)
	imported.Upload.Video = video

	if thumbPath != "" {
		thumb, closer, err := models.OpenFileBlob(thumbPath)
		if err != nil {
			imported.Close()
			return nil, err
		}
		imported.closers = append(imported.closers, closer)
		imported.Upload.Thumbnail = thumb
	}

	imported.Upload.Title = clip(strings.TrimSpace(payload.Title), 100)
	imported.Upload.Description = clip(strings.TrimSpace(payload.Description), 1000)
	if utf8.RuneCountInString(imported.Upload.Description) < 10 {
		imported.Upload.Description = clip("Imported from "+url, 1000)
	}
	return imported, nil
}

func (p *YTDLP) exec(ctx context.Context, timeout time.Duration, args []string) (ytdlpPayload, error) {
	run := p.Run
	if run == nil {
		run = defaultCommandRunner
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := run(execCtx, p.Binary, args...)
	if err != nil {
		return ytdlpPayload{}, fmt.Errorf("yt-dlp fetch: %w", err)
	}

	var payload ytdlpPayload
	if err := json.Unmarshal(out, &payload); err != nil {
		return ytdlpPayload{}, fmt.Errorf("parse yt-dlp response: %w", err)
	}
	return payload, nil
}

func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func maxDuration(a, b time.Duration) time.Duration {
	if a >= b {
		return a
	}
	return b
}

func defaultCommandRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	return cmd.Output()
}
