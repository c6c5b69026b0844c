package mockapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/client/internal/models"
)

type commentRequest struct {
	Content string `json:"content"`
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("videoId")

	s.mu.Lock()
	exists := s.indexLocked(videoID) >= 0
	comments := append([]models.Comment{}, s.comments[videoID]...)
	s.mu.Unlock()

	if !exists {
		writeError(r.Context(), w, http.StatusNotFound, "Video not found", nil)
		return
	}
	writeData(r.Context(), w, http.StatusOK, map[string]any{"comments": comments}, "")
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	acct, _ := s.currentAccount(w, r)
	if acct == nil {
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(ctx, w, http.StatusBadRequest, "Comment content is required",
			map[string]string{"content": "Comment cannot be empty"})
		return
	}

	videoID := r.PathValue("videoId")
	s.mu.Lock()
	if s.indexLocked(videoID) < 0 {
		s.mu.Unlock()
		writeError(ctx, w, http.StatusNotFound, "Video not found", nil)
		return
	}
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		Username:  acct.user.Username,
		Content:   content,
		CreatedAt: s.now(),
	}
	s.comments[videoID] = append(s.comments[videoID], comment)
	s.mu.Unlock()

	writeData(ctx, w, http.StatusCreated, map[string]any{"comment": comment}, "Comment added")
}

func (s *Server) likeComment(w http.ResponseWriter, r *http.Request) {
	if acct, _ := s.currentAccount(w, r); acct == nil {
		return
	}

	id := r.PathValue("id")
	s.mu.Lock()
	var (
		liked models.Comment
		found bool
	)
	for videoID, list := range s.comments {
		for i := range list {
			if list[i].ID == id {
				list[i].Likes++
				liked = list[i]
				found = true
				s.comments[videoID] = list
				break
			}
		}
		if found {
			break
		}
	}
	s.mu.Unlock()

	if !found {
		writeError(r.Context(), w, http.StatusNotFound, "Comment not found", nil)
		return
	}
	writeData(r.Context(), w, http.StatusOK, map[string]any{"comment": liked}, "Comment liked")
}
