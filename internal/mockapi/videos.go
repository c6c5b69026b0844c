package mockapi

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/client/internal/logging"
	"github.com/vidtube/client/internal/models"
)

const maxUploadBytes = 110 << 20

var errVideoNotFound = errors.New("video not found")

// SeedVideo stores a video owned by ownerID directly, bypassing HTTP.
func (s *Server) SeedVideo(ownerID string, video models.VideoRecord) (models.VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.accounts[ownerID]
	if !ok {
		return models.VideoRecord{}, errors.New("owner not found")
	}
	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	if video.CreatedAt.IsZero() {
		video.CreatedAt = s.now()
	}
	video.Username = owner.user.Username
	s.videos = append(s.videos, video)
	s.owners[video.ID] = ownerID
	return video, nil
}

// Videos returns a copy of the stored videos in creation order.
func (s *Server) Videos() []models.VideoRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.VideoRecord(nil), s.videos...)
}

func (s *Server) indexLocked(id string) int {
	for i, v := range s.videos {
		if v.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) listVideos(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	videos := append([]models.VideoRecord{}, s.videos...)
	s.mu.Unlock()
	writeData(r.Context(), w, http.StatusOK, map[string]any{"videos": videos}, "")
}

func (s *Server) myUploads(w http.ResponseWriter, r *http.Request) {
	acct, _ := s.currentAccount(w, r)
	if acct == nil {
		return
	}

	s.mu.Lock()
	videos := []models.VideoRecord{}
	for _, v := range s.videos {
		if s.owners[v.ID] == acct.user.ID {
			videos = append(videos, v)
		}
	}
	s.mu.Unlock()

	writeData(r.Context(), w, http.StatusOK, map[string]any{"videos": videos}, "")
}

func (s *Server) getVideo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	idx := s.indexLocked(id)
	var video models.VideoRecord
	if idx >= 0 {
		s.videos[idx].Views++
		video = s.videos[idx]
	}
	s.mu.Unlock()

	if idx < 0 {
		writeError(r.Context(), w, http.StatusNotFound, "Video not found", nil)
		return
	}
	writeData(r.Context(), w, http.StatusOK, map[string]any{"video": video}, "")
}

func (s *Server) uploadVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	acct, _ := s.currentAccount(w, r)
	if acct == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		logging.FromContext(ctx).Warn("invalid upload payload", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Upload must be multipart form data within size limits", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	video := models.VideoRecord{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}

	fields := map[string]string{}
	if video.Title == "" {
		fields["title"] = "Title is required"
	}
	if video.Description == "" {
		fields["description"] = "Description is required"
	}
	if name, ok := formFileName(r, "videoFile"); ok {
		video.VideoFile = mediaURL("videos", name)
	} else {
		fields["videoFile"] = "Video file is required"
	}
	if name, ok := formFileName(r, "thumbnail"); ok {
		video.Thumbnail = mediaURL("thumbnails", name)
	} else {
		fields["thumbnail"] = "Thumbnail is required"
	}
	if len(fields) > 0 {
		writeError(ctx, w, http.StatusBadRequest, "Validation failed", fields)
		return
	}

	s.mu.Lock()
	video.ID = uuid.NewString()
	video.CreatedAt = s.now()
	video.Username = acct.user.Username
	video.IsPublished = true
	s.videos = append(s.videos, video)
	s.owners[video.ID] = acct.user.ID
	s.mu.Unlock()

	writeData(ctx, w, http.StatusCreated, map[string]any{"video": video}, "Video uploaded successfully")
}

func (s *Server) editVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	acct, _ := s.currentAccount(w, r)
	if acct == nil {
		return
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "Edit must be multipart form data", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	thumbnail, hasThumbnail := formFileName(r, "thumbnail")

	video, status, err := s.mutateOwned(acct, r.PathValue("id"), func(v *models.VideoRecord) {
		if title := strings.TrimSpace(r.FormValue("title")); title != "" {
			v.Title = title
		}
		if description := strings.TrimSpace(r.FormValue("description")); description != "" {
			v.Description = description
		}
		if hasThumbnail {
			v.Thumbnail = mediaURL("thumbnails", thumbnail)
		}
	})
	if err != nil {
		writeError(ctx, w, status, err.Error(), nil)
		return
	}
	writeData(ctx, w, http.StatusOK, map[string]any{"video": video}, "Video updated successfully")
}

func (s *Server) togglePublish(w http.ResponseWriter, r *http.Request) {
	acct, _ := s.currentAccount(w, r)
	if acct == nil {
		return
	}
	video, status, err := s.mutateOwned(acct, r.PathValue("id"), func(v *models.VideoRecord) {
		v.IsPublished = !v.IsPublished
	})
	if err != nil {
		writeError(r.Context(), w, status, err.Error(), nil)
		return
	}
	writeData(r.Context(), w, http.StatusOK, map[string]any{"video": video}, "Publish status toggled")
}

func (s *Server) deleteVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	acct, _ := s.currentAccount(w, r)
	if acct == nil {
		return
	}

	id := r.PathValue("id")
	s.mu.Lock()
	idx := s.indexLocked(id)
	switch {
	case idx < 0:
		s.mu.Unlock()
		writeError(ctx, w, http.StatusNotFound, "Video not found", nil)
		return
	case s.owners[id] != acct.user.ID:
		s.mu.Unlock()
		writeError(ctx, w, http.StatusForbidden, "You can only delete your own videos", nil)
		return
	}
	s.videos = append(s.videos[:idx], s.videos[idx+1:]...)
	delete(s.owners, id)
	delete(s.comments, id)
	s.mu.Unlock()

	writeData(ctx, w, http.StatusOK, map[string]any{}, "Video deleted successfully")
}

func (s *Server) likeVideo(w http.ResponseWriter, r *http.Request) {
	if acct, _ := s.currentAccount(w, r); acct == nil {
		return
	}

	id := r.PathValue("id")
	s.mu.Lock()
	idx := s.indexLocked(id)
	var video models.VideoRecord
	if idx >= 0 {
		s.videos[idx].Likes++
		video = s.videos[idx]
	}
	s.mu.Unlock()

	if idx < 0 {
		writeError(r.Context(), w, http.StatusNotFound, "Video not found", nil)
		return
	}
	writeData(r.Context(), w, http.StatusOK, map[string]any{"video": video}, "Video liked")
}

// mutateOwned applies fn to the caller's own video and returns the result.
func (s *Server) mutateOwned(acct *account, id string, fn func(*models.VideoRecord)) (models.VideoRecord, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return models.VideoRecord{}, http.StatusNotFound, errVideoNotFound
	}
	if s.owners[id] != acct.user.ID {
		return models.VideoRecord{}, http.StatusForbidden, errors.New("you can only change your own videos")
	}
	fn(&s.videos[idx])
	return s.videos[idx], http.StatusOK, nil
}

func formFileName(r *http.Request, field string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return "", false
	}
	return fileName(headers[0]), true
}

func fileName(h *multipart.FileHeader) string {
	if h.Filename == "" {
		return "upload"
	}
	return h.Filename
}
