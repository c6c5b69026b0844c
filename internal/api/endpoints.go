package api

import (
	"fmt"
	"net/url"
	"strings"
)

// Logical endpoint names understood by the client.
const (
	EndpointRegister     = "REGISTER"
	EndpointLogin        = "LOGIN"
	EndpointLogout       = "LOGOUT"
	EndpointRefreshToken = "REFRESH_TOKEN"
	EndpointGetProfile   = "GET_PROFILE"
	EndpointGetAllUsers  = "GET_ALL_USERS"
	EndpointUpdateUser   = "UPDATE_USER"
	EndpointDeleteUser   = "DELETE_USER"
	EndpointGetAllVideos = "GET_ALL_VIDEOS"
	EndpointGetVideoByID = "GET_VIDEO_BY_ID"
	EndpointUploadVideo  = "UPLOAD_VIDEO"
	EndpointGetMyUploads = "GET_MY_UPLOADS"
	EndpointDeleteVideo  = "DELETE_VIDEO"
	EndpointEditVideo    = "EDIT_VIDEO"
	EndpointPublishVideo = "PUBLISH_VIDEO"
	EndpointLikeVideo    = "LIKE_VIDEO"
	EndpointGetComments  = "GET_COMMENTS"
	EndpointAddComment   = "ADD_COMMENT"
	EndpointLikeComment  = "LIKE_COMMENT"
)

// DefaultBaseURL is used when no deployment override is configured.
const DefaultBaseURL = "http://localhost:8000"

// Endpoints maps logical endpoint names to paths relative to the base URL.
type Endpoints map[string]string

// DefaultEndpoints returns the path table of the VideoTube API.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		EndpointRegister:     "/api/users/register",
		EndpointLogin:        "/api/users/login",
		EndpointLogout:       "/api/users/logout",
		EndpointRefreshToken: "/api/users/refresh-token",
		EndpointGetProfile:   "/api/users/profile",
		EndpointGetAllUsers:  "/api/users/all",
		EndpointUpdateUser:   "/api/users/update",
		EndpointDeleteUser:   "/api/users/delete",
		EndpointGetAllVideos: "/api/videos",
		EndpointGetVideoByID: "/api/videos",
		EndpointUploadVideo:  "/api/videos/upload",
		EndpointGetMyUploads: "/api/videos/my-uploads",
		EndpointDeleteVideo:  "/api/videos",
		EndpointEditVideo:    "/api/videos",
		EndpointPublishVideo: "/api/videos/publish",
		EndpointLikeVideo:    "/api/videos/like",
		EndpointGetComments:  "/api/comment",
		EndpointAddComment:   "/api/comment",
		EndpointLikeComment:  "/api/comment/like",
	}
}

// Merge returns a copy of e with overrides applied. Keys are case-insensitive.
func (e Endpoints) Merge(overrides map[string]string) Endpoints {
	out := make(Endpoints, len(e)+len(overrides))
	for k, v := range e {
		out[k] = v
	}
	for k, v := range overrides {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out
}

// Resolve builds the absolute URL for key, appending escaped path segments.
func (e Endpoints) Resolve(baseURL, key string, segments ...string) (string, error) {
	p, ok := e[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEndpoint, key)
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	if !strings.HasPrefix(p, "/") {
		b.WriteByte('/')
	}
	b.WriteString(strings.TrimRight(p, "/"))
	for _, s := range segments {
		if s == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String(), nil
}
