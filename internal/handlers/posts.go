package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/bayni/apiserver/internal/services"
	"github.com/bayni/apiserver/internal/store"
	"github.com/bayni/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	maxUploadBytes     = 64 << 20
	maxMultipartMemory = 8 << 20
	formFieldMedia     = "media"
	formFieldTitle     = "title"
	formFieldDesc      = "description"
	formFieldMediaURL  = "mediaUrl"
	formFieldMediaType = "mediaType"
)

// PostHandler provides HTTP handlers for the content feed.
type PostHandler struct {
	feedService *services.FeedService
}

func NewPostHandler(feedService *services.FeedService) *PostHandler {
	return &PostHandler{feedService: feedService}
}

// PostRouter registers feed routes. All of them require authentication.
func PostRouter(r chi.Router, feedService *services.FeedService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewPostHandler(feedService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListPosts)
	r.Post("/", handler.CreatePost)
	r.Route("/{postID}", func(r chi.Router) {
		r.Delete("/", handler.DeletePost)
		r.Post("/like", handler.ToggleLike)
	})
}

// ListPosts returns the feed, most recent first, with isLiked set for the caller.
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	posts, err := h.feedService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "list posts")
		return
	}
	writeJSON(w, http.StatusOK, PostListResponse{Items: toPostResponses(posts)})
}

// CreatePost accepts either a JSON body or a multipart form with an
// optional "media" file.
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var (
		input  services.PostInput
		upload *services.MediaUpload
	)
	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form")
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		input = services.PostInput{
			Title:       r.FormValue(formFieldTitle),
			Description: r.FormValue(formFieldDesc),
			MediaURL:    r.FormValue(formFieldMediaURL),
			MediaType:   types.MediaType(r.FormValue(formFieldMediaType)),
		}

		file, header, err := r.FormFile(formFieldMedia)
		switch {
		case err == nil:
			defer file.Close()
			upload = &services.MediaUpload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Body:        file,
			}
		case !errors.Is(err, http.ErrMissingFile):
			writeError(w, http.StatusBadRequest, "invalid media file")
			return
		}
	} else if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	post, err := h.feedService.Publish(r.Context(), userID, input, upload)
	if err != nil {
		writeServiceError(w, err, "create post")
		return
	}
	writeJSON(w, http.StatusCreated, toPostResponse(post))
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.feedService.Remove(r.Context(), chi.URLParam(r, "postID"), userID); err != nil {
		writeServiceError(w, err, "delete post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	post, err := h.feedService.ToggleLike(r.Context(), chi.URLParam(r, "postID"), userID)
	if err != nil {
		writeServiceError(w, err, "toggle like")
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(post))
}

// ServeMedia streams an uploaded post attachment. The object key is the
// wildcard part of the path.
func (h *PostHandler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	obj, err := h.feedService.OpenMedia(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "media not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load media")
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(key))
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, obj.Body)
}

// PostResponse is a post as returned to clients. Who liked a post is not
// exposed, only whether the caller did.
type PostResponse struct {
	types.Post
	LikedBy []string `json:"likedBy,omitempty"`
}

// PostListResponse wraps the feed.
type PostListResponse struct {
	Items []PostResponse `json:"items"`
}

func toPostResponse(post types.Post) PostResponse {
	return PostResponse{Post: post}
}

func toPostResponses(posts []types.Post) []PostResponse {
	items := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		items = append(items, toPostResponse(p))
	}
	return items
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

// MediaRouter registers the public media route.
func MediaRouter(r chi.Router, feedService *services.FeedService) {
	handler := NewPostHandler(feedService)
	r.Get("/*", handler.ServeMedia)
}
