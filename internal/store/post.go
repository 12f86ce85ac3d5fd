package store

import (
	"context"
	"slices"
	"time"

	"github.com/bayni/apiserver/internal/ids"
	"github.com/bayni/apiserver/internal/kv"
	"github.com/bayni/apiserver/types"
)

// ContentFeed handles persistence for the post feed, most recent first.
type ContentFeed struct {
	posts *collection[types.Post]
}

func NewContentFeed(store kv.Store) *ContentFeed {
	return &ContentFeed{posts: newCollection[types.Post](store, keyPosts)}
}

// Append puts a post at the front of the feed, assigning ID and CreatedAt
// when they are unset.
func (f *ContentFeed) Append(ctx context.Context, post types.Post) (types.Post, error) {
	now := time.Now().UTC()
	if post.ID == "" {
		post.ID = ids.NewFromTime(now)
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.IsLiked = false
	if n := uint(len(post.LikedBy)); post.Likes < n {
		post.Likes = n
	}

	err := f.posts.update(ctx, func(posts []types.Post) ([]types.Post, error) {
		if indexPost(posts, post.ID) >= 0 {
			return nil, ErrAlreadyExists
		}
		return slices.Insert(posts, 0, post), nil
	})
	if err != nil {
		return types.Post{}, err
	}
	return post, nil
}

// List returns the whole feed, most recent first.
func (f *ContentFeed) List(ctx context.Context) ([]types.Post, error) {
	return f.ListFor(ctx, "")
}

// ListFor returns the whole feed with IsLiked set from viewerID's point of view.
func (f *ContentFeed) ListFor(ctx context.Context, viewerID string) ([]types.Post, error) {
	posts, err := f.posts.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].IsLiked = posts[i].LikedByViewer(viewerID)
	}
	return posts, nil
}

func (f *ContentFeed) Get(ctx context.Context, id string) (types.Post, error) {
	posts, err := f.posts.load(ctx)
	if err != nil {
		return types.Post{}, err
	}
	i := indexPost(posts, id)
	if i < 0 {
		return types.Post{}, ErrNotFound
	}
	posts[i].IsLiked = false
	return posts[i], nil
}

// ToggleLike likes the post for viewerID, or unlikes it if the viewer had
// already liked it. The returned post has IsLiked set for viewerID.
func (f *ContentFeed) ToggleLike(ctx context.Context, postID, viewerID string) (types.Post, error) {
	if viewerID == "" {
		return types.Post{}, invalidInput("viewer is required")
	}

	var toggled types.Post
	err := f.posts.update(ctx, func(posts []types.Post) ([]types.Post, error) {
		i := indexPost(posts, postID)
		if i < 0 {
			return nil, ErrNotFound
		}
		p := &posts[i]
		if j := slices.Index(p.LikedBy, viewerID); j >= 0 {
			p.LikedBy = slices.Delete(p.LikedBy, j, j+1)
			if p.Likes > 0 {
				p.Likes--
			}
		} else {
			p.LikedBy = append(p.LikedBy, viewerID)
			p.Likes++
		}
		p.IsLiked = false
		toggled = *p
		toggled.LikedBy = slices.Clone(p.LikedBy)
		return posts, nil
	})
	if err != nil {
		return types.Post{}, err
	}
	toggled.IsLiked = toggled.LikedByViewer(viewerID)
	return toggled, nil
}

// Remove deletes a post and returns it.
func (f *ContentFeed) Remove(ctx context.Context, id string) (types.Post, error) {
	var removed types.Post
	err := f.posts.update(ctx, func(posts []types.Post) ([]types.Post, error) {
		i := indexPost(posts, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		removed = posts[i]
		return slices.Delete(posts, i, i+1), nil
	})
	if err != nil {
		return types.Post{}, err
	}
	return removed, nil
}

func indexPost(posts []types.Post, id string) int {
	return slices.IndexFunc(posts, func(p types.Post) bool { return p.ID == id })
}
