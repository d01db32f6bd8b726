package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stn/internal/models"
)

func TestKeyPrefix(t *testing.T) {
	assert.True(t, NoteKey("a").HasPrefix(Key{"notes"}))
	assert.True(t, ArchivedKey.HasPrefix(Key{"notes", "archived"}))
	assert.False(t, TagsKey.HasPrefix(Key{"notes"}))
	assert.False(t, Key{"notes"}.HasPrefix(NoteKey("a")))
	assert.True(t, MeKey.HasPrefix(nil))

	done := models.StatusDone
	assert.NotEqual(t, NotesKey(models.NoteFilters{}), NotesKey(models.NoteFilters{Status: &done}))
}

func TestGetCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	c := New(nil)
	calls := 0
	fetch := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	v, err := Get(ctx, c, TagsKey, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, _ = Get(ctx, c, TagsKey, fetch)
	assert.Equal(t, 1, v)
	assert.False(t, c.Stale(TagsKey))

	c.Invalidate("tags")
	assert.True(t, c.Stale(TagsKey))
	peek, ok := Peek[int](c, TagsKey)
	assert.True(t, ok)
	assert.Equal(t, 1, peek)

	v, _ = Get(ctx, c, TagsKey, fetch)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)
}

func TestFailedRefetchKeepsLastValue(t *testing.T) {
	ctx := context.Background()
	c := New(nil)
	c.Set(NoteKey("a"), "cached")
	c.Invalidate("notes")

	_, err := Get(ctx, c, NoteKey("a"), func(context.Context) (string, error) {
		return "", errors.New("offline")
	})
	require.Error(t, err)

	v, ok := Peek[string](c, NoteKey("a"))
	assert.True(t, ok)
	assert.Equal(t, "cached", v)
	assert.True(t, c.Stale(NoteKey("a")))
}

func TestConcurrentReadsShareOneFetch(t *testing.T) {
	ctx := context.Background()
	c := New(nil)
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "notes", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Get(ctx, c, ArchivedKey, fetch)
		}(i)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "notes", r)
	}
}

func TestInvalidateDuringFetchLeavesEntryStale(t *testing.T) {
	ctx := context.Background()
	c := New(nil)
	v, err := Get(ctx, c, NoteKey("a"), func(context.Context) (string, error) {
		c.Invalidate("notes")
		return "old", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "old", v)
	assert.True(t, c.Stale(NoteKey("a")))
}

func TestClearDuringFetchDropsResult(t *testing.T) {
	ctx := context.Background()
	c := New(nil)
	_, err := Get(ctx, c, MeKey, func(context.Context) (string, error) {
		c.Clear()
		return "someone", nil
	})
	require.NoError(t, err)
	_, ok := Peek[string](c, MeKey)
	assert.False(t, ok)
}

func TestRemoveAndClear(t *testing.T) {
	c := New(nil)
	c.Set(NoteKey("a"), 1)
	c.Set(NoteKey("b"), 2)
	c.Set(TagsKey, 3)

	c.Remove(NoteKey("a")...)
	assert.Len(t, c.Keys(), 2)

	c.Clear()
	assert.Empty(t, c.Keys())
}

func TestTypeMismatch(t *testing.T) {
	c := New(nil)
	c.Set(TagsKey, "not tags")
	_, err := Get(context.Background(), c, TagsKey, func(context.Context) ([]models.Tag, error) {
		return nil, nil
	})
	assert.Error(t, err)
}
