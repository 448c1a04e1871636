package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tvscout/internal/validate"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(t *testing.T, handler http.HandlerFunc, cache ResponseCache) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := NewClientWithConfig(&ClientConfig{
		BaseURL:          srv.URL,
		Timeout:          5 * time.Second,
		RateLimit:        1000,
		RateBurst:        100,
		MaxRetries:       3,
		RetryDelay:       time.Millisecond,
		SearchStaleTime:  time.Minute,
		DetailsStaleTime: time.Minute,
		Logger:           quietLogger(),
		Cache:            cache,
	})
	return client, &calls
}

func TestSearchShowsDropsMalformedResults(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/shows", r.URL.Path)
		assert.Equal(t, "girls", r.URL.Query().Get("q"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, `[
			{"score": 0.9, "show": {"id": 139, "name": "Girls", "genres": ["Drama", "Romance"]}},
			{"score": 0.8, "show": {"id": null, "name": "Broken"}},
			{"score": 0.7, "show": {"id": 41734, "name": "Girls Incarcerated"}}
		]`)
	}, nil)

	results, err := client.SearchShows(context.Background(), "  girls ")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(139), results[0].Show.ID)
	assert.Equal(t, int64(41734), results[1].Show.ID)
}

func TestSearchShowsEmptyQuery(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	_, err := client.SearchShows(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Equal(t, int32(0), calls.Load())
}

func TestShowDetailsRequestsEmbeddedBundle(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shows/82", r.URL.Path)
		assert.ElementsMatch(t, []string{"seasons", "cast", "episodes", "images"}, r.URL.Query()["embed[]"])
		_, _ = io.WriteString(w, `{"id": 82, "name": "Game of Thrones", "genres": [],
			"_embedded": {"episodes": [{"id": 1, "name": "Pilot", "season": 1, "number": 1}, {"id": 2}]}}`)
	}, nil)

	show, err := client.ShowDetails(context.Background(), 82)
	require.NoError(t, err)
	assert.Equal(t, "Game of Thrones", show.Name)
	require.NotNil(t, show.Embedded)
	assert.Len(t, show.Embedded.Episodes, 1)
}

func TestShowDetailsNotFoundIsNotRetried(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}, nil)

	show, err := client.ShowDetails(context.Background(), 999999)
	assert.Nil(t, show)
	assert.ErrorIs(t, err, ErrShowNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestServerErrorsAreRetried(t *testing.T) {
	var attempts atomic.Int32
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `[{"id": 1, "number": 1}]`)
	}, nil)

	seasons, err := client.Seasons(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, seasons, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetriesGiveUp(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, nil)

	_, err := client.Cast(context.Background(), 5)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestValidationFailureIsNotCached(t *testing.T) {
	cache := NewMemoryResponseCache()
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"name": "missing id"}`)
	}, cache)

	_, err := client.ShowDetails(context.Background(), 7)
	assert.ErrorIs(t, err, validate.ErrInvalid)

	_, err = client.ShowDetails(context.Background(), 7)
	assert.ErrorIs(t, err, validate.ErrInvalid)
	assert.Equal(t, int32(2), calls.Load())
}

func TestResponsesAreCachedWithinStaleTime(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id": 10, "type": "poster", "resolutions": {}}]`)
	}, NewMemoryResponseCache())

	for i := 0; i < 3; i++ {
		images, err := client.Images(context.Background(), 1)
		require.NoError(t, err)
		assert.Len(t, images, 1)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestMemoryResponseCacheExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryResponseCache()
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	cache.Set(ctx, "k", []byte("v"), time.Minute)
	body, ok := cache.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", string(body))

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisResponseCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"score": 1, "show": {"id": 1, "name": "A"}}]`)
	}, NewRedisResponseCache(rdb, quietLogger()))

	_, err := client.SearchShows(context.Background(), "A")
	require.NoError(t, err)
	_, err = client.SearchShows(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	assert.True(t, mr.Exists(searchCachePrefix+"a"))
	ttl := mr.TTL(searchCachePrefix + "a")
	assert.Equal(t, time.Minute, ttl)
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(errors.New("connection reset")))
	assert.True(t, retryable(&StatusError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, retryable(&StatusError{StatusCode: http.StatusInternalServerError}))
	assert.False(t, retryable(&StatusError{StatusCode: http.StatusNotFound}))
	assert.False(t, retryable(context.Canceled))
	assert.False(t, retryable(errResponseTooLarge))
}
