package recent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tvscout/internal/models"
	"tvscout/internal/storage"
)

// fakeClock advances one second per call so every visit gets a distinct time.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func show(id int64) models.Show {
	return models.Show{ID: id, Name: fmt.Sprintf("Show %d", id), Genres: []string{}}
}

func ids(entries []models.RecentlyVisited) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Show.ID)
	}
	return out
}

// failingStore fails every operation.
type failingStore struct{}

var errUnavailable = errors.New("storage disabled")

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errUnavailable
}
func (failingStore) Set(context.Context, string, string) error { return errUnavailable }
func (failingStore) Remove(context.Context, string) error      { return errUnavailable }

func TestRecordRevisitMovesToFront(t *testing.T) {
	ctx := context.Background()
	c := New(storage.NewMemory(), WithClock(newFakeClock().Now))

	c.Record(ctx, show(1))
	c.Record(ctx, show(2))
	c.Record(ctx, show(1))

	assert.Equal(t, []int64{1, 2}, ids(c.List(ctx)))
}

func TestRecordCapsAtMaxEntries(t *testing.T) {
	ctx := context.Background()
	c := New(storage.NewMemory(), WithClock(newFakeClock().Now))

	for id := int64(1); id <= 25; id++ {
		c.Record(ctx, show(id))
	}

	list := c.List(ctx)
	require.Len(t, list, MaxEntries)

	want := make([]int64, 0, MaxEntries)
	for id := int64(25); id > 5; id-- {
		want = append(want, id)
	}
	assert.Equal(t, want, ids(list))
}

func TestRecordCapsWithSameTimestamps(t *testing.T) {
	ctx := context.Background()
	frozen := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(storage.NewMemory(), WithClock(func() time.Time { return frozen }))

	for id := int64(1); id <= 25; id++ {
		c.Record(ctx, show(id))
	}

	list := c.List(ctx)
	require.Len(t, list, MaxEntries)
	assert.Equal(t, int64(25), list[0].Show.ID)
	assert.Equal(t, int64(6), list[MaxEntries-1].Show.ID)
}

func TestRecordStripsEmbedded(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	c := New(store)

	s := show(7)
	s.Embedded = &models.Embedded{Seasons: []models.Season{{ID: 1, Number: 1}}}
	c.Record(ctx, s)

	raw, found, err := store.Get(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotContains(t, raw, "_embedded")
	assert.Nil(t, c.List(ctx)[0].Show.Embedded)
	assert.NotNil(t, s.Embedded, "caller's show is left alone")
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	c := New(storage.NewMemory(), WithClock(newFakeClock().Now))

	c.Record(ctx, show(1))
	c.Record(ctx, show(2))

	before := c.List(ctx)
	after := c.Remove(ctx, 99)
	assert.Equal(t, before, after)
	assert.Equal(t, before, c.List(ctx))

	c.Remove(ctx, 2)
	assert.Equal(t, []int64{1}, ids(c.List(ctx)))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	c := New(store)

	c.Record(ctx, show(1))
	c.Clear(ctx)

	assert.Empty(t, c.List(ctx))
	_, found, _ := store.Get(ctx, StorageKey)
	assert.False(t, found)
}

func TestListSurvivesReload(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	recordedAt := time.Date(2024, 5, 6, 7, 8, 9, 123_000_000, time.UTC)

	New(store, WithClock(func() time.Time { return recordedAt })).Record(ctx, show(42))

	reloaded := New(store).List(ctx)
	require.Len(t, reloaded, 1)
	assert.Equal(t, int64(42), reloaded[0].Show.ID)
	assert.Equal(t, "2024-05-06T07:08:09.123Z", reloaded[0].VisitedAt)
	assert.False(t, reloaded[0].VisitedTime().Before(recordedAt))
}

func TestListSurvivesSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/recent.db"

	store, err := storage.OpenSQLite(path)
	require.NoError(t, err)
	New(store).Record(ctx, show(3))
	require.NoError(t, store.Close())

	reopened, err := storage.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	assert.Equal(t, []int64{3}, ids(New(reopened).List(ctx)))
}

func TestListSortsByVisitedAtDescending(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, StorageKey, `[
		{"show": {"id": 1, "name": "old"}, "visitedAt": "2023-01-01T00:00:00.000Z"},
		{"show": {"id": 2, "name": "new"}, "visitedAt": "2024-01-01T00:00:00.000Z"},
		{"show": {"id": 3, "name": "mid"}, "visitedAt": "2023-06-01T00:00:00.000Z"},
		{"show": {"id": 2, "name": "stale duplicate"}, "visitedAt": "2022-01-01T00:00:00.000Z"}
	]`))

	list := New(store).List(ctx)
	assert.Equal(t, []int64{2, 3, 1}, ids(list))
	assert.Equal(t, "new", list[0].Show.Name)
}

func TestCorruptStoreReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, StorageKey, "{not json"))

	c := New(store, WithClock(newFakeClock().Now))
	assert.Empty(t, c.List(ctx))

	c.Record(ctx, show(1))
	assert.Equal(t, []int64{1}, ids(c.List(ctx)))
}

func TestCorruptEntriesAreDropped(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, StorageKey, `[
		{"show": {"id": 1, "name": "ok"}, "visitedAt": "2024-01-01T00:00:00.000Z"},
		{"show": {"name": "no id"}, "visitedAt": "2024-01-02T00:00:00.000Z"},
		"junk"
	]`))

	assert.Equal(t, []int64{1}, ids(New(store).List(ctx)))
}

func TestFailingStoreDegrades(t *testing.T) {
	ctx := context.Background()
	c := New(failingStore{})

	assert.NotPanics(t, func() {
		assert.Empty(t, c.List(ctx))
		c.Record(ctx, show(1))
		c.Remove(ctx, 1)
		c.Clear(ctx)
	})
	assert.Empty(t, c.List(ctx))
}

func TestSubscribeFiresForOtherContextsOnly(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	feed := storage.NewMemoryFeed()

	tabA := New(store, WithFeed(feed))
	tabB := New(store, WithFeed(feed))

	stopA, err := tabA.Watch(ctx)
	require.NoError(t, err)
	defer stopA()
	stopB, err := tabB.Watch(ctx)
	require.NoError(t, err)
	defer stopB()

	var firedA, firedB atomic.Int32
	unsubscribeA := tabA.Subscribe(func() { firedA.Add(1) })
	defer unsubscribeA()
	unsubscribeB := tabB.Subscribe(func() { firedB.Add(1) })

	tabA.Record(ctx, show(1))
	assert.Equal(t, int32(0), firedA.Load())
	assert.Equal(t, int32(1), firedB.Load())
	assert.Equal(t, []int64{1}, ids(tabB.List(ctx)))

	tabA.Remove(ctx, 404)
	assert.Equal(t, int32(1), firedB.Load(), "no-op remove does not announce")

	tabA.Clear(ctx)
	assert.Equal(t, int32(2), firedB.Load())

	require.NotEqual(t, tabA.Origin(), tabB.Origin())
	require.NoError(t, feed.Publish(ctx, storage.Change{Key: StorageKey, Origin: tabB.Origin()}))
	assert.Equal(t, int32(2), firedB.Load(), "own origin is ignored")
	require.NoError(t, feed.Publish(ctx, storage.Change{Key: StorageKey, Origin: tabA.Origin()}))
	assert.Equal(t, int32(3), firedB.Load())

	unsubscribeB()
	tabA.Record(ctx, show(2))
	assert.Equal(t, int32(3), firedB.Load())
}

func TestFeedSubscribersMayReadDuringWrites(t *testing.T) {
	ctx := context.Background()
	feed := storage.NewMemoryFeed()
	c := New(storage.NewMemory(), WithFeed(feed))

	var seen atomic.Int32
	unsubscribe, err := feed.Subscribe(ctx, func(storage.Change) {
		seen.Store(int32(len(c.List(ctx))))
	})
	require.NoError(t, err)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Record(ctx, show(1))
		c.Record(ctx, show(2))
		c.Remove(ctx, 1)
		c.Clear(ctx)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("write blocked while a subscriber read the cache")
	}
	assert.Equal(t, int32(0), seen.Load())
}

func TestWatchIgnoresOtherKeys(t *testing.T) {
	ctx := context.Background()
	feed := storage.NewMemoryFeed()
	c := New(storage.NewMemory(), WithFeed(feed))

	stop, err := c.Watch(ctx)
	require.NoError(t, err)
	defer stop()

	var fired atomic.Int32
	c.Subscribe(func() { fired.Add(1) })

	require.NoError(t, feed.Publish(ctx, storage.Change{Key: "something_else", Origin: "other"}))
	assert.Equal(t, int32(0), fired.Load())

	require.NoError(t, feed.Publish(ctx, storage.Change{Key: StorageKey, Origin: "other"}))
	assert.Equal(t, int32(1), fired.Load())
}

func TestWatchWithoutFeed(t *testing.T) {
	stop, err := New(storage.NewMemory()).Watch(context.Background())
	require.NoError(t, err)
	stop()
}

func TestPersistedFormat(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	New(store, WithClock(func() time.Time { return at })).Record(ctx, show(9))

	raw, _, err := store.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, `[{"show":{"id":9,"name":"Show 9","genres":[]}`), raw)
	assert.Contains(t, raw, `"visitedAt":"2024-01-02T02:04:05.000Z"`)
}
