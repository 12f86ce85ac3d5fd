package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/bayni/apiserver/internal/kv"
	"github.com/bayni/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedAppendIsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	feed := NewContentFeed(kv.NewMemoryStore())

	p1, err := feed.Append(ctx, types.Post{DoctorName: "Dr. A", Title: "P1", MediaType: types.MediaTypeImage})
	require.NoError(t, err)
	p2, err := feed.Append(ctx, types.Post{DoctorName: "Dr. A", Title: "P2", MediaType: types.MediaTypeVideo})
	require.NoError(t, err)

	assert.NotEmpty(t, p1.ID)
	assert.NotEqual(t, p1.ID, p2.ID)
	assert.False(t, p1.CreatedAt.IsZero())

	posts, err := feed.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, p2.ID, posts[0].ID)
	assert.Equal(t, p1.ID, posts[1].ID)
}

func TestFeedAppendKeepsGivenID(t *testing.T) {
	ctx := context.Background()
	feed := NewContentFeed(kv.NewMemoryStore())

	post, err := feed.Append(ctx, types.Post{ID: "fixed", Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", post.ID)

	_, err = feed.Append(ctx, types.Post{ID: "fixed", Title: "again"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestToggleLikeTwiceRestoresPost(t *testing.T) {
	ctx := context.Background()
	feed := NewContentFeed(kv.NewMemoryStore())

	p1, err := feed.Append(ctx, types.Post{Title: "P1", Likes: 10})
	require.NoError(t, err)
	assert.False(t, p1.IsLiked)

	liked, err := feed.ToggleLike(ctx, p1.ID, "viewer-1")
	require.NoError(t, err)
	assert.Equal(t, uint(11), liked.Likes)
	assert.True(t, liked.IsLiked)

	unliked, err := feed.ToggleLike(ctx, p1.ID, "viewer-1")
	require.NoError(t, err)
	assert.Equal(t, uint(10), unliked.Likes)
	assert.False(t, unliked.IsLiked)
}

func TestLikesArePerViewer(t *testing.T) {
	ctx := context.Background()
	feed := NewContentFeed(kv.NewMemoryStore())

	post, err := feed.Append(ctx, types.Post{Title: "P1"})
	require.NoError(t, err)

	_, err = feed.ToggleLike(ctx, post.ID, "alice")
	require.NoError(t, err)
	forBob, err := feed.ToggleLike(ctx, post.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, uint(2), forBob.Likes)
	assert.True(t, forBob.IsLiked)

	aliceView, err := feed.ListFor(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, aliceView[0].IsLiked)

	carolView, err := feed.ListFor(ctx, "carol")
	require.NoError(t, err)
	assert.False(t, carolView[0].IsLiked)
	assert.Equal(t, uint(2), carolView[0].Likes)

	anonymous, err := feed.List(ctx)
	require.NoError(t, err)
	assert.False(t, anonymous[0].IsLiked)
}

func TestToggleLikeErrors(t *testing.T) {
	ctx := context.Background()
	feed := NewContentFeed(kv.NewMemoryStore())

	_, err := feed.ToggleLike(ctx, "missing", "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	post, err := feed.Append(ctx, types.Post{Title: "P1"})
	require.NoError(t, err)
	_, err = feed.ToggleLike(ctx, post.ID, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFeedRemove(t *testing.T) {
	ctx := context.Background()
	feed := NewContentFeed(kv.NewMemoryStore())

	post, err := feed.Append(ctx, types.Post{Title: "P1"})
	require.NoError(t, err)

	removed, err := feed.Remove(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, removed.ID)

	_, err = feed.Get(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = feed.Remove(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	ctx := context.Background()
	feed := NewContentFeed(kv.NewMemoryStore())

	const writers = 50
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := feed.Append(ctx, types.Post{Title: fmt.Sprintf("post-%d", i)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	posts, err := feed.List(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, writers)

	seen := make(map[string]bool)
	for _, p := range posts {
		seen[p.Title] = true
	}
	assert.Len(t, seen, writers)
}

func TestConcurrentLikesLoseNothing(t *testing.T) {
	ctx := context.Background()
	feed := NewContentFeed(kv.NewMemoryStore())

	post, err := feed.Append(ctx, types.Post{Title: "popular"})
	require.NoError(t, err)

	const viewers = 30
	var wg sync.WaitGroup
	for i := range viewers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = feed.ToggleLike(ctx, post.ID, fmt.Sprintf("viewer-%d", i))
		}()
	}
	wg.Wait()

	got, err := feed.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(viewers), got.Likes)
	assert.Len(t, got.LikedBy, viewers)
}

func TestUpdateHonoursCancelledContext(t *testing.T) {
	feed := NewContentFeed(kv.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := feed.Append(ctx, types.Post{Title: "late"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFeedPropagatesStorageErrors(t *testing.T) {
	feed := NewContentFeed(brokenStore{})

	_, err := feed.Append(context.Background(), types.Post{Title: "P1"})
	assert.ErrorIs(t, err, errBackendDown)

	var storageErr *StorageError
	assert.ErrorAs(t, err, &storageErr)
}
