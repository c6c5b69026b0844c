package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vidtube/client/internal/api"
	"github.com/vidtube/client/internal/apperrors"
	"github.com/vidtube/client/internal/logging"
	"github.com/vidtube/client/internal/models"
	"github.com/vidtube/client/internal/ttlcache"
	"github.com/vidtube/client/internal/validate"
)

// Videos is the video catalog. Mutations are server-confirmed: nothing is
// applied locally before the server has answered.
type Videos struct {
	client *api.Client
	store  *Store[models.VideoRecord]
	cache  *ttlcache.Cache[models.VideoRecord]
	logger *slog.Logger
}

// NewVideos wires a video catalog. cacheTTL bounds how long Get reuses a
// fetched record; zero disables the cache.
func NewVideos(client *api.Client, cacheTTL time.Duration, logger *slog.Logger) *Videos {
	if logger == nil {
		logger = slog.Default()
	}
	return &Videos{
		client: client,
		store:  NewStore[models.VideoRecord](logger),
		cache:  ttlcache.New[models.VideoRecord](cacheTTL),
		logger: logger,
	}
}

// Store exposes the underlying lists.
func (v *Videos) Store() *Store[models.VideoRecord] { return v.store }

type videoList struct {
	Videos []models.VideoRecord `json:"videos"`
}

type videoItem struct {
	Video models.VideoRecord `json:"video"`
}

// LoadAll fetches every video and overwrites SlotAll.
func (v *Videos) LoadAll(ctx context.Context) ([]models.VideoRecord, error) {
	return v.load(ctx, SlotAll, api.EndpointGetAllVideos, false)
}

// LoadMine fetches the signed-in user's uploads and overwrites SlotMine.
func (v *Videos) LoadMine(ctx context.Context) ([]models.VideoRecord, error) {
	return v.load(ctx, SlotMine, api.EndpointGetMyUploads, true)
}

func (v *Videos) load(ctx context.Context, slot Slot, endpoint string, auth bool) ([]models.VideoRecord, error) {
	ctx, span := logging.StartSpan(v.withLogger(ctx), "catalog.videos.load_"+slot.String())
	defer span.End()

	ticket := v.store.Begin(slot)

	var payload videoList
	if _, err := v.client.Do(ctx, api.Request{Method: http.MethodGet, Endpoint: endpoint, Auth: auth}, &payload); err != nil {
		appErr := apperrors.FromAPI("load "+slot.String()+" videos", err)
		span.Fail(appErr)
		v.store.Fail(ticket, appErr)
		return nil, appErr
	}

	if !v.store.Commit(ticket, payload.Videos) {
		logging.FromContext(ctx).Debug("newer load superseded this one", "slot", slot.String())
	}
	return v.store.Snapshot(slot), nil
}

// Get returns one video, from the cache when fresh.
func (v *Videos) Get(ctx context.Context, id string) (models.VideoRecord, error) {
	if rec, ok := v.cache.Get(id); ok {
		return rec, nil
	}

	ctx, span := logging.StartSpan(v.withLogger(ctx), "catalog.videos.get")
	defer span.End()

	var payload videoItem
	if _, err := v.client.Do(ctx, api.Request{Method: http.MethodGet, Endpoint: api.EndpointGetVideoByID, Path: []string{id}}, &payload); err != nil {
		appErr := apperrors.FromAPI("get video", err)
		span.Fail(appErr)
		return models.VideoRecord{}, appErr
	}

	v.cache.Put(id, payload.Video)
	return payload.Video, nil
}

// Upload validates and submits u. progress, when set, receives the share of
// file bytes sent. On success the owned list (and the full list, if loaded)
// is refetched; if that fails the returned record is applied locally.
func (v *Videos) Upload(ctx context.Context, u models.PendingUpload, progress func(int)) (models.VideoRecord, error) {
	if err := validate.Upload(u); err != nil {
		return models.VideoRecord{}, err
	}

	ctx, span := logging.StartSpan(v.withLogger(ctx), "catalog.videos.upload")
	defer span.End()

	form := api.NewForm().
		Add("title", strings.TrimSpace(u.Title)).
		Add("description", strings.TrimSpace(u.Description)).
		AddFile("videoFile", u.Video).
		AddFile("thumbnail", u.Thumbnail)

	var payload videoItem
	_, err := v.client.Do(ctx, api.Request{
		Method:   http.MethodPost,
		Endpoint: api.EndpointUploadVideo,
		Form:     form,
		Auth:     true,
		Progress: progress,
	}, &payload)
	if err != nil {
		appErr := apperrors.FromAPI("upload", err)
		span.Fail(appErr)
		return models.VideoRecord{}, appErr
	}

	created := payload.Video
	logger := logging.FromContext(ctx)
	logger.Info("video uploaded", "id", created.ID)

	refreshed := true
	if _, err := v.LoadMine(ctx); err != nil {
		logger.Warn("refresh own uploads after upload", "error", err)
		refreshed = false
	}
	if v.store.Loaded(SlotAll) {
		if _, err := v.LoadAll(ctx); err != nil {
			logger.Warn("refresh all videos after upload", "error", err)
			refreshed = false
		}
	}
	if !refreshed && created.ID != "" {
		v.store.ApplyCreate(created)
	}
	return created, nil
}

// Edit sends a partial update and replaces the local record with the
// server's answer.
func (v *Videos) Edit(ctx context.Context, id string, edit models.VideoEdit) (models.VideoRecord, error) {
	if err := validate.Edit(edit); err != nil {
		return models.VideoRecord{}, err
	}

	ctx, span := logging.StartSpan(v.withLogger(ctx), "catalog.videos.edit")
	defer span.End()

	form := api.NewForm().
		Add("title", strings.TrimSpace(edit.Title)).
		Add("description", strings.TrimSpace(edit.Description)).
		AddFile("thumbnail", edit.Thumbnail)

	var payload videoItem
	_, err := v.client.Do(ctx, api.Request{
		Method:   http.MethodPatch,
		Endpoint: api.EndpointEditVideo,
		Path:     []string{id},
		Form:     form,
		Auth:     true,
	}, &payload)
	if err != nil {
		appErr := apperrors.FromAPI("edit", err)
		span.Fail(appErr)
		return models.VideoRecord{}, appErr
	}

	v.applyServerRecord(ctx, id, payload.Video)
	return payload.Video, nil
}

// Delete removes a video on the server and then locally. A 404 for a
// record still held locally is treated as an earlier delete that won the
// race, so the local removal still happens and no error is returned.
func (v *Videos) Delete(ctx context.Context, id string) error {
	ctx, span := logging.StartSpan(v.withLogger(ctx), "catalog.videos.delete")
	defer span.End()

	_, err := v.client.Do(ctx, api.Request{
		Method:   http.MethodDelete,
		Endpoint: api.EndpointDeleteVideo,
		Path:     []string{id},
		Auth:     true,
	}, nil)
	if err != nil {
		if api.IsStatus(err, http.StatusNotFound) {
			v.cache.Forget(id)
			if v.store.ApplyDelete(id) {
				logging.FromContext(ctx).Info("video already gone on server", "id", id)
				return nil
			}
		}
		appErr := apperrors.FromAPI("delete", err)
		span.Fail(appErr)
		return appErr
	}

	v.cache.Forget(id)
	v.store.ApplyDelete(id)
	return nil
}

// Like adds a like and returns the updated record.
func (v *Videos) Like(ctx context.Context, id string) (models.VideoRecord, error) {
	return v.mutate(ctx, "like", http.MethodPost, api.EndpointLikeVideo, id)
}

// TogglePublish flips the published flag and returns the updated record.
func (v *Videos) TogglePublish(ctx context.Context, id string) (models.VideoRecord, error) {
	return v.mutate(ctx, "publish", http.MethodPatch, api.EndpointPublishVideo, id)
}

func (v *Videos) mutate(ctx context.Context, op, method, endpoint, id string) (models.VideoRecord, error) {
	ctx, span := logging.StartSpan(v.withLogger(ctx), "catalog.videos."+op)
	defer span.End()

	var payload videoItem
	if _, err := v.client.Do(ctx, api.Request{Method: method, Endpoint: endpoint, Path: []string{id}, Auth: true}, &payload); err != nil {
		appErr := apperrors.FromAPI(op, err)
		span.Fail(appErr)
		return models.VideoRecord{}, appErr
	}

	v.applyServerRecord(ctx, id, payload.Video)
	return payload.Video, nil
}

// applyServerRecord replaces the local copy of id. A record missing from
// the lists is logged and otherwise ignored.
func (v *Videos) applyServerRecord(ctx context.Context, id string, rec models.VideoRecord) {
	v.cache.Forget(id)
	if rec.ID == "" {
		return
	}
	if err := v.store.ApplyUpdate(rec); err != nil && !errors.Is(err, apperrors.ErrNotFoundLocal) {
		logging.FromContext(ctx).Warn("apply server record", "id", id, "error", err)
	}
}

func (v *Videos) withLogger(ctx context.Context) context.Context {
	return withLogger(ctx, v.logger)
}

func withLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logging.FromContext(ctx) == slog.Default() {
		return logging.WithLogger(ctx, logger)
	}
	return ctx
}
