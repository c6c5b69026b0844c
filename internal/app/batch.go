package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/vidtube/client/internal/apperrors"
	"github.com/vidtube/client/internal/models"
	"github.com/vidtube/client/internal/uploads"
)

// manifest lists the videos of an upload-batch run. File paths are relative
// to the manifest's directory.
type manifest struct {
	Uploads []manifestEntry `yaml:"uploads"`
}

type manifestEntry struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Video       string `yaml:"video"`
	Thumbnail   string `yaml:"thumbnail"`
}

func loadManifest(path string) (manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Uploads) == 0 {
		return manifest{}, fmt.Errorf("manifest %s lists no uploads", path)
	}

	base := filepath.Dir(path)
	for i := range m.Uploads {
		m.Uploads[i].Video = resolvePath(base, m.Uploads[i].Video)
		m.Uploads[i].Thumbnail = resolvePath(base, m.Uploads[i].Thumbnail)
	}
	return m, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// batchReporter prints one line per finished job.
type batchReporter struct {
	mu        sync.Mutex
	out       io.Writer
	succeeded int
	failed    int
}

func (r *batchReporter) Progress(uploads.Job, int) {}

func (r *batchReporter) Succeeded(job uploads.Job, rec models.VideoRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.succeeded++
	fmt.Fprintf(r.out, "[%s] uploaded %q as %s\n", job.ID, rec.Title, rec.ID)
}

func (r *batchReporter) Failed(job uploads.Job, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed++
	fmt.Fprintf(r.out, "[%s] %q failed: %s\n", job.ID, job.Upload.Title, apperrors.Message(err))
}

func (r *batchReporter) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.succeeded, r.failed
}

func runUploadBatch(ctx context.Context, e *env, args []string) error {
	rest, err := parseArgs(newFlags("upload-batch", e), args, 1, 1)
	if err != nil {
		return err
	}
	m, err := loadManifest(rest[0])
	if err != nil {
		return err
	}

	reporter := &batchReporter{out: e.out}
	queue := uploads.NewQueue(e.deps.Videos, reporter, uploads.Config{
		QueueSize:  e.cfg.Uploads.QueueSize,
		Workers:    e.cfg.Uploads.Workers,
		JobTimeout: e.cfg.Uploads.JobTimeout,
	}, e.logger)

	for i, entry := range m.Uploads {
		job, err := openJob(strconv.Itoa(i+1), entry, e)
		if err != nil {
			reporter.Failed(uploads.Job{ID: strconv.Itoa(i + 1), Upload: models.PendingUpload{Title: entry.Title}}, err)
			continue
		}
		if err := queue.Enqueue(ctx, job); err != nil {
			job.Release()
			reporter.Failed(job, err)
			break
		}
	}

	if err := queue.Shutdown(ctx); err != nil {
		return fmt.Errorf("wait for uploads: %w", err)
	}

	succeeded, failed := reporter.counts()
	fmt.Fprintf(e.out, "Uploaded %d of %d videos.\n", succeeded, len(m.Uploads))
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(m.Uploads))
	}
	return nil
}

func openJob(id string, entry manifestEntry, e *env) (uploads.Job, error) {
	video, videoCloser, err := openBlob(entry.Video)
	if err != nil {
		return uploads.Job{}, err
	}
	thumb, thumbCloser, err := openBlob(entry.Thumbnail)
	if err != nil {
		closeAll(e.logger, videoCloser)
		return uploads.Job{}, err
	}
	return uploads.Job{
		ID: id,
		Upload: models.PendingUpload{
			Title:       entry.Title,
			Description: entry.Description,
			Video:       video,
			Thumbnail:   thumb,
		},
		Release: func() { closeAll(e.logger, videoCloser, thumbCloser) },
	}, nil
}

func runImport(ctx context.Context, e *env, args []string) error {
	fs := newFlags("import", e)
	dryRun := fs.Bool("dry-run", false, "only print the metadata yt-dlp reports")
	dir := fs.String("dir", "", "keep downloads in this directory instead of a temporary one")
	title := fs.String("title", "", "override the imported title")
	description := fs.String("description", "", "override the imported description")
	thumbPath := fs.String("thumbnail", "", "thumbnail to use when the site offers none")
	rest, err := parseArgs(fs, args, 1, 1)
	if err != nil {
		return err
	}
	url := rest[0]

	if *dryRun {
		meta, err := e.deps.Metadata.Lookup(ctx, url)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "Title:       %s\nDuration:    %.0fs\nThumbnail:   %s\nDescription: %s\n",
			meta.Title, meta.Duration, meta.Thumbnail, meta.Description)
		return nil
	}

	target := *dir
	if target == "" {
		tmp, err := os.MkdirTemp("", "vidtube-import-*")
		if err != nil {
			return fmt.Errorf("create download dir: %w", err)
		}
		defer os.RemoveAll(tmp)
		target = tmp
	}

	fmt.Fprintf(e.out, "Downloading %s...\n", url)
	imported, err := e.deps.Importer.Download(ctx, url, target)
	if err != nil {
		return err
	}
	defer func() {
		if err := imported.Close(); err != nil {
			e.logger.Warn("close imported files", "error", err)
		}
	}()

	up := imported.Upload
	if *title != "" {
		up.Title = *title
	}
	if *description != "" {
		up.Description = *description
	}
	if *thumbPath != "" {
		thumb, closer, err := openBlob(*thumbPath)
		if err != nil {
			return err
		}
		defer closeAll(e.logger, closer)
		up.Thumbnail = thumb
	}

	return upload(ctx, e, up)
}
