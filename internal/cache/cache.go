// Package cache keeps server data keyed by query, collapses concurrent
// reads of the same key and refetches after invalidation.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tgienger/stn/internal/logging"
	"github.com/tgienger/stn/internal/models"
)

// Key is an ordered query key such as ["notes", id]
type Key []string

func (k Key) String() string {
	return strings.Join(k, "/")
}

func (k Key) id() string {
	return strings.Join(k, "\x1f")
}

// HasPrefix reports whether k starts with prefix
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, p := range prefix {
		if k[i] != p {
			return false
		}
	}
	return true
}

// Well known keys
var (
	ArchivedKey = Key{"notes", "archived"}
	TagsKey     = Key{"tags"}
	MeKey       = Key{"auth", "me"}
)

// NotesKey is the key of a filtered note list
func NotesKey(f models.NoteFilters) Key {
	return Key{"notes", "list?" + f.Key()}
}

// NoteKey is the key of a single note
func NoteKey(id string) Key {
	return Key{"notes", id}
}

type entry struct {
	key       Key
	value     any
	stale     bool
	epoch     uint64
	fetchedAt time.Time
}

// Cache is safe for concurrent use
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	inflight map[string]Key
	epochs   map[string]uint64
	gen      uint64 // bumped by Clear
	group    singleflight.Group
	logger   *zap.Logger
}

// New returns an empty cache
func New(logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		entries:  make(map[string]*entry),
		inflight: make(map[string]Key),
		epochs:   make(map[string]uint64),
		logger:   logger,
	}
}

// Get returns the fresh value under key or fetches it. Concurrent calls
// for the same key share one fetch. A failed fetch leaves the previous
// value readable through Peek.
func Get[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	id := key.id()
	c.mu.Lock()
	if e, ok := c.entries[id]; ok && !e.stale {
		c.mu.Unlock()
		v, ok := e.value.(T)
		if !ok {
			var zero T
			return zero, fmt.Errorf("cache: %s holds %T", key, e.value)
		}
		return v, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(id, func() (any, error) {
		c.mu.Lock()
		c.inflight[id] = key
		epoch, gen := c.epochs[id], c.gen
		c.mu.Unlock()

		v, err := fetch(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.inflight, id)
		if err != nil {
			c.logger.Debug("cache fetch failed", zap.String(logging.FieldKey, key.String()), zap.Error(err))
			return v, err
		}
		if gen != c.gen {
			return v, nil
		}
		c.entries[id] = &entry{
			key:       key,
			value:     v,
			stale:     c.epochs[id] != epoch, // invalidated while fetching
			epoch:     c.epochs[id],
			fetchedAt: time.Now(),
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: %s holds %T", key, v)
	}
	return out, nil
}

// Peek returns the last value under key, fresh or stale
func Peek[T any](c *Cache, key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.id()]
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := e.value.(T)
	return v, ok
}

// Set stores a fresh value, e.g. the user returned by login
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := key.id()
	c.epochs[id]++
	c.entries[id] = &entry{key: key, value: value, epoch: c.epochs[id], fetchedAt: time.Now()}
}

// Invalidate marks every key starting with prefix stale, including reads
// that are still in flight
func (c *Cache) Invalidate(prefix ...string) {
	p := Key(prefix)
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, e := range c.entries {
		if e.key.HasPrefix(p) {
			e.stale = true
			c.epochs[id]++
			n++
		}
	}
	for id, k := range c.inflight {
		if _, ok := c.entries[id]; !ok && k.HasPrefix(p) {
			c.epochs[id]++
			n++
		}
	}
	c.logger.Debug("cache invalidate", zap.String(logging.FieldKey, p.String()), zap.Int("count", n))
}

// Stale reports whether key is missing or invalidated
func (c *Cache) Stale(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.id()]
	return !ok || e.stale
}

// Remove drops every key starting with prefix
func (c *Cache) Remove(prefix ...string) {
	p := Key(prefix)
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.entries {
		if e.key.HasPrefix(p) {
			delete(c.entries, id)
			c.epochs[id]++
		}
	}
}

// Clear drops everything, used on logout
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.entries {
		c.epochs[id]++
	}
	c.gen++
	c.entries = make(map[string]*entry)
}

// Keys returns the stored keys
func (c *Cache) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Key, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.key)
	}
	return out
}
