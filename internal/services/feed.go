package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/bayni/apiserver/internal/mq"
	"github.com/bayni/apiserver/internal/storage"
	"github.com/bayni/apiserver/internal/store"
	"github.com/bayni/apiserver/types"
)

// FeedRepository defines persistence operations for posts.
type FeedRepository interface {
	Append(ctx context.Context, post types.Post) (types.Post, error)
	ListFor(ctx context.Context, viewerID string) ([]types.Post, error)
	Get(ctx context.Context, id string) (types.Post, error)
	ToggleLike(ctx context.Context, postID, viewerID string) (types.Post, error)
	Remove(ctx context.Context, id string) (types.Post, error)
}

// UserLookup resolves users by ID.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (types.User, error)
}

// MediaStore keeps post attachments.
type MediaStore interface {
	PutMedia(ctx context.Context, doctorID, filename string, r io.Reader, size int64, contentType string) (string, string, error)
	Open(ctx context.Context, key string) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

// PostInput is the text part of a new post. MediaURL and MediaType describe
// media hosted elsewhere and are ignored when a file is uploaded.
type PostInput struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=5000"`
	MediaURL    string          `json:"mediaUrl" validate:"omitempty,url"`
	MediaType   types.MediaType `json:"mediaType" validate:"omitempty,oneof=image video"`
}

// MediaUpload is a file attached to a new post.
type MediaUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// FeedService encapsulates post use-cases.
type FeedService struct {
	feed   FeedRepository
	users  UserLookup
	media  MediaStore
	events EventPublisher
	logger *slog.Logger
}

// NewFeedService constructs a FeedService. media and events may be nil.
func NewFeedService(feed FeedRepository, users UserLookup, media MediaStore, events EventPublisher, logger *slog.Logger) *FeedService {
	return &FeedService{
		feed:   feed,
		users:  users,
		media:  media,
		events: events,
		logger: loggerOrDefault(logger),
	}
}

// Publish adds a post authored by doctorID to the front of the feed. The
// author's name, specialty and avatar are copied into the post.
func (s *FeedService) Publish(ctx context.Context, doctorID string, in PostInput, upload *MediaUpload) (types.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(in); err != nil {
		return types.Post{}, err
	}

	doctor, err := s.users.GetByID(ctx, doctorID)
	if err != nil {
		return types.Post{}, err
	}
	if !doctor.IsDoctor() {
		return types.Post{}, forbidden("only doctors can publish posts")
	}

	post := types.Post{
		DoctorID:        doctor.ID,
		DoctorName:      doctor.Username,
		DoctorSpecialty: doctor.Field,
		DoctorAvatar:    doctor.Avatar,
		Title:           in.Title,
		Description:     strings.TrimSpace(in.Description),
		MediaURL:        in.MediaURL,
		MediaType:       in.MediaType,
	}
	if post.MediaURL != "" && post.MediaType == "" {
		post.MediaType = types.MediaTypeImage
	}

	var mediaKey string
	if upload != nil {
		if s.media == nil {
			return types.Post{}, fmt.Errorf("%w: media uploads are disabled", store.ErrInvalidInput)
		}
		mediaType, ok := MediaTypeFor(upload.ContentType)
		if !ok {
			return types.Post{}, fmt.Errorf("%w: unsupported media type %q", store.ErrInvalidInput, upload.ContentType)
		}
		key, url, err := s.media.PutMedia(ctx, doctor.ID, upload.Filename, upload.Body, upload.Size, upload.ContentType)
		if err != nil {
			return types.Post{}, fmt.Errorf("upload media: %w", err)
		}
		mediaKey = key
		post.MediaURL = url
		post.MediaType = mediaType
	}

	post, err = s.feed.Append(ctx, post)
	if err != nil {
		if mediaKey != "" {
			s.deleteMedia(ctx, mediaKey)
		}
		return types.Post{}, err
	}

	publishEvent(ctx, s.logger, s.events, mq.ChannelPostCreated, mq.PostCreated{
		PostID:     post.ID,
		DoctorID:   post.DoctorID,
		DoctorName: post.DoctorName,
		Title:      post.Title,
		CreatedAt:  post.CreatedAt,
	})
	return post, nil
}

// List returns the feed, most recent first, as seen by viewerID.
func (s *FeedService) List(ctx context.Context, viewerID string) ([]types.Post, error) {
	return s.feed.ListFor(ctx, viewerID)
}

// ToggleLike likes or unlikes a post for viewerID.
func (s *FeedService) ToggleLike(ctx context.Context, postID, viewerID string) (types.Post, error) {
	return s.feed.ToggleLike(ctx, postID, viewerID)
}

// Remove deletes a post. Only its author may remove it. Uploaded media is
// deleted with it.
func (s *FeedService) Remove(ctx context.Context, postID, doctorID string) error {
	post, err := s.feed.Get(ctx, postID)
	if err != nil {
		return err
	}
	if post.DoctorID != doctorID {
		return forbidden("only the author can remove a post")
	}
	if _, err := s.feed.Remove(ctx, postID); err != nil {
		return err
	}
	if s.media != nil {
		if key, ok := s.media.KeyFromURL(post.MediaURL); ok {
			s.deleteMedia(ctx, key)
		}
	}
	return nil
}

// OpenMedia returns an uploaded media object. The caller closes its Body.
func (s *FeedService) OpenMedia(ctx context.Context, key string) (*storage.Object, error) {
	if s.media == nil || key == "" || strings.Contains(key, "..") {
		return nil, store.ErrNotFound
	}
	obj, err := s.media.Open(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, store.ErrNotFound
	}
	return obj, err
}

func (s *FeedService) deleteMedia(ctx context.Context, key string) {
	if err := s.media.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete media", "key", key, "error", err)
	}
}

// MediaTypeFor maps an upload's content type to the post media type.
func MediaTypeFor(contentType string) (types.MediaType, bool) {
	mediaType, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(contentType)), ";")
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return types.MediaTypeImage, true
	case strings.HasPrefix(mediaType, "video/"):
		return types.MediaTypeVideo, true
	default:
		return "", false
	}
}
