package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/vidtube/client/internal/api"
	"github.com/vidtube/client/internal/apperrors"
	"github.com/vidtube/client/internal/logging"
	"github.com/vidtube/client/internal/models"
	"github.com/vidtube/client/internal/validate"
)

// Comments holds the thread of the video currently being watched. Switching
// videos discards the previous thread and any load still in flight for it.
type Comments struct {
	client *api.Client
	store  *Store[models.Comment]
	logger *slog.Logger

	mu      sync.Mutex
	videoID string
}

// NewComments wires the comment thread.
func NewComments(client *api.Client, logger *slog.Logger) *Comments {
	if logger == nil {
		logger = slog.Default()
	}
	return &Comments{client: client, store: NewStore[models.Comment](logger), logger: logger}
}

// Store exposes the thread list.
func (c *Comments) Store() *Store[models.Comment] { return c.store }

// VideoID returns the video whose thread is held.
func (c *Comments) VideoID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.videoID
}

func (c *Comments) focus(videoID string) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.videoID != videoID {
		c.store.Reset(SlotAll)
		c.videoID = videoID
	}
	return c.store.Begin(SlotAll)
}

// List fetches the comments of videoID.
func (c *Comments) List(ctx context.Context, videoID string) ([]models.Comment, error) {
	ctx, span := logging.StartSpan(withLogger(ctx, c.logger), "catalog.comments.list")
	defer span.End()

	ticket := c.focus(videoID)

	var payload struct {
		Comments []models.Comment `json:"comments"`
	}
	if _, err := c.client.Do(ctx, api.Request{Method: http.MethodGet, Endpoint: api.EndpointGetComments, Path: []string{videoID}}, &payload); err != nil {
		appErr := apperrors.FromAPI("list comments", err)
		span.Fail(appErr)
		c.store.Fail(ticket, appErr)
		return nil, appErr
	}

	if !c.store.Commit(ticket, payload.Comments) {
		return payload.Comments, nil
	}
	return c.store.Snapshot(SlotAll), nil
}

// Add posts a comment on videoID.
func (c *Comments) Add(ctx context.Context, videoID, content string) (models.Comment, error) {
	if err := validate.Comment(content); err != nil {
		return models.Comment{}, err
	}

	ctx, span := logging.StartSpan(withLogger(ctx, c.logger), "catalog.comments.add")
	defer span.End()

	var payload struct {
		Comment models.Comment `json:"comment"`
	}
	_, err := c.client.Do(ctx, api.Request{
		Method:   http.MethodPost,
		Endpoint: api.EndpointAddComment,
		Path:     []string{videoID},
		JSON:     map[string]string{"content": strings.TrimSpace(content)},
		Auth:     true,
	}, &payload)
	if err != nil {
		appErr := apperrors.FromAPI("comment", err)
		span.Fail(appErr)
		return models.Comment{}, appErr
	}

	if c.VideoID() == videoID && c.store.Loaded(SlotAll) {
		c.store.ApplyCreate(payload.Comment)
	}
	return payload.Comment, nil
}

// Like adds a like to a comment.
func (c *Comments) Like(ctx context.Context, commentID string) (models.Comment, error) {
	ctx, span := logging.StartSpan(withLogger(ctx, c.logger), "catalog.comments.like")
	defer span.End()

	var payload struct {
		Comment models.Comment `json:"comment"`
	}
	if _, err := c.client.Do(ctx, api.Request{Method: http.MethodPost, Endpoint: api.EndpointLikeComment, Path: []string{commentID}, Auth: true}, &payload); err != nil {
		appErr := apperrors.FromAPI("like comment", err)
		span.Fail(appErr)
		return models.Comment{}, appErr
	}

	if _, held := c.store.Find(commentID); held {
		_ = c.store.ApplyUpdate(payload.Comment)
	}
	return payload.Comment, nil
}
