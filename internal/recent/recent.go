// Package recent keeps the list of recently viewed shows: most recent first,
// one entry per show id, at most MaxEntries long, persisted as a single JSON
// blob in a storage.Store.
//
// Storage failures never reach the caller. Reads degrade to an empty list and
// failed writes are dropped, both with a warning in the log.
package recent

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tvscout/internal/models"
	"tvscout/internal/storage"
	"tvscout/internal/validate"
)

const (
	StorageKey = "tvshows_recently_visited"
	MaxEntries = 20
)

type Cache struct {
	store     storage.Store
	feed      storage.Feed
	validator *validate.Validator
	logger    *logrus.Logger
	now       func() time.Time
	origin    string

	// mu serializes read-modify-write cycles of this Cache.
	mu sync.Mutex

	obsMu     sync.Mutex
	nextObs   int
	observers map[int]func()
}

type Option func(*Cache)

// WithFeed announces writes on feed and lets Watch pick up writes made by
// other contexts.
func WithFeed(feed storage.Feed) Option {
	return func(c *Cache) { c.feed = feed }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

func New(store storage.Store, opts ...Option) *Cache {
	c := &Cache{
		store:     store,
		now:       time.Now,
		origin:    uuid.NewString(),
		observers: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.SetOutput(io.Discard)
	}
	c.validator = validate.New(c.logger)
	return c
}

// Origin identifies this Cache on the change feed.
func (c *Cache) Origin() string {
	return c.origin
}

// List returns every entry, most recently visited first.
func (c *Cache) List(ctx context.Context) []models.RecentlyVisited {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// Record moves show to the front of the list with a fresh timestamp, trims
// the list to MaxEntries and persists it. The embedded bundle is not stored.
func (c *Cache) Record(ctx context.Context, show models.Show) []models.RecentlyVisited {
	c.mu.Lock()
	current := c.load(ctx)
	updated := make([]models.RecentlyVisited, 0, len(current)+1)
	updated = append(updated, models.RecentlyVisited{
		Show:      show.WithoutEmbedded(),
		VisitedAt: models.FormatVisitedAt(c.now()),
	})
	for _, entry := range current {
		if entry.Show.ID != show.ID {
			updated = append(updated, entry)
		}
	}
	if len(updated) > MaxEntries {
		updated = updated[:MaxEntries]
	}
	saved := c.save(ctx, updated)
	c.mu.Unlock()

	if saved {
		c.publish(ctx)
	}
	return updated
}

// Remove drops the entry for showID. Unknown ids leave the store untouched.
func (c *Cache) Remove(ctx context.Context, showID int64) []models.RecentlyVisited {
	c.mu.Lock()
	current := c.load(ctx)
	filtered := make([]models.RecentlyVisited, 0, len(current))
	for _, entry := range current {
		if entry.Show.ID != showID {
			filtered = append(filtered, entry)
		}
	}
	if len(filtered) == len(current) {
		c.mu.Unlock()
		return current
	}
	saved := c.save(ctx, filtered)
	c.mu.Unlock()

	if saved {
		c.publish(ctx)
	}
	return filtered
}

func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	err := c.store.Remove(ctx, StorageKey)
	c.mu.Unlock()

	if err != nil {
		c.logger.WithError(err).Warn("Error clearing recently visited shows")
		return
	}
	c.publish(ctx)
}

// Subscribe registers fn to run whenever another context changes the list.
// Changes made through this Cache do not trigger fn.
func (c *Cache) Subscribe(fn func()) (unsubscribe func()) {
	c.obsMu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.obsMu.Unlock()

	return func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}
}

// Watch listens on the change feed until stop is called or ctx is done.
// Without a feed it does nothing.
func (c *Cache) Watch(ctx context.Context) (stop func(), err error) {
	if c.feed == nil {
		return func() {}, nil
	}
	return c.feed.Subscribe(ctx, func(change storage.Change) {
		if change.Key != StorageKey || change.Origin == c.origin {
			return
		}
		c.logger.WithField("origin", change.Origin).Debug("Recently visited shows changed elsewhere")
		c.notify()
	})
}

func (c *Cache) notify() {
	c.obsMu.Lock()
	fns := make([]func(), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.obsMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// load reads, validates, sorts and de-duplicates the stored list.
func (c *Cache) load(ctx context.Context) []models.RecentlyVisited {
	raw, found, err := c.store.Get(ctx, StorageKey)
	if err != nil {
		c.logger.WithError(err).Warn("Error reading recently visited shows")
		return []models.RecentlyVisited{}
	}
	if !found || raw == "" {
		return []models.RecentlyVisited{}
	}

	entries, err := c.validator.RecentEntries([]byte(raw))
	if err != nil {
		c.logger.WithError(err).Warn("Discarding unreadable recently visited shows")
		return []models.RecentlyVisited{}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].VisitedTime().After(entries[j].VisitedTime())
	})

	seen := make(map[int64]struct{}, len(entries))
	out := entries[:0]
	for _, entry := range entries {
		if _, dup := seen[entry.Show.ID]; dup {
			continue
		}
		seen[entry.Show.ID] = struct{}{}
		out = append(out, entry)
	}
	return out
}

// save persists entries and reports whether the write went through. Callers
// publish the change after releasing mu, so feed subscribers may call back
// into the Cache.
func (c *Cache) save(ctx context.Context, entries []models.RecentlyVisited) bool {
	blob, err := json.Marshal(entries)
	if err != nil {
		c.logger.WithError(err).Warn("Error encoding recently visited shows")
		return false
	}
	if err := c.store.Set(ctx, StorageKey, string(blob)); err != nil {
		c.logger.WithError(err).Warn("Error saving recently visited shows")
		return false
	}
	return true
}

func (c *Cache) publish(ctx context.Context) {
	if c.feed == nil {
		return
	}
	change := storage.Change{Key: StorageKey, Origin: c.origin}
	if err := c.feed.Publish(ctx, change); err != nil {
		c.logger.WithError(err).Debug("Failed to announce recently visited change")
	}
}
