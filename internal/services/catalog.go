package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"tvscout/internal/models"
	"tvscout/internal/validate"
)

const (
	tvmazeAPIURL       = "https://api.tvmaze.com"
	defaultTimeout     = 30 * time.Second
	defaultRateLimit   = 2 // requests per second; TVMaze allows 20 per 10s
	defaultRateBurst   = 5
	maxRetries         = 3
	retryDelay         = 2 * time.Second
	userAgent          = "tvscout/1.0"
	searchCachePrefix  = "tvmaze:search:"
	detailsCachePrefix = "tvmaze:details:"
	listCachePrefix    = "tvmaze:list:"
	searchStaleTime    = 5 * time.Minute
	detailsStaleTime   = 10 * time.Minute
	maxResponseSize    = 5 * 1024 * 1024
)

var (
	ErrEmptyQuery   = errors.New("search query cannot be empty")
	ErrShowNotFound = errors.New("show not found")

	errResponseTooLarge = errors.New("response too large")
	errRateLimitWait    = errors.New("rate limiter wait failed")
)

// StatusError is returned for any non-200 answer from the catalog.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status code %d for %s", e.StatusCode, e.URL)
}

type Client struct {
	baseURL          string
	httpClient       *http.Client
	logger           *logrus.Logger
	limiter          *rate.Limiter
	cache            ResponseCache
	validator        *validate.Validator
	maxRetries       int
	retryDelay       time.Duration
	userAgent        string
	searchStaleTime  time.Duration
	detailsStaleTime time.Duration
}

type ClientConfig struct {
	BaseURL          string
	Timeout          time.Duration
	RateLimit        float64
	RateBurst        int
	MaxRetries       int
	RetryDelay       time.Duration
	UserAgent        string
	SearchStaleTime  time.Duration
	DetailsStaleTime time.Duration
	Logger           *logrus.Logger
	Cache            ResponseCache
	HTTPClient       *http.Client
}

func NewClient() *Client {
	return NewClientWithConfig(&ClientConfig{
		BaseURL:          tvmazeAPIURL,
		Timeout:          defaultTimeout,
		RateLimit:        defaultRateLimit,
		RateBurst:        defaultRateBurst,
		MaxRetries:       maxRetries,
		RetryDelay:       retryDelay,
		UserAgent:        userAgent,
		SearchStaleTime:  searchStaleTime,
		DetailsStaleTime: detailsStaleTime,
		Logger:           logrus.New(),
	})
}

func NewClientWithConfig(config *ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.BaseURL == "" {
		config.BaseURL = tvmazeAPIURL
	}
	if config.UserAgent == "" {
		config.UserAgent = userAgent
	}
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	if config.RateLimit <= 0 {
		config.RateLimit = defaultRateLimit
	}
	if config.RateBurst <= 0 {
		config.RateBurst = defaultRateBurst
	}
	if config.Cache == nil {
		config.Cache = noCache{}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		}
	}

	return &Client{
		baseURL:          strings.TrimRight(config.BaseURL, "/"),
		httpClient:       httpClient,
		logger:           config.Logger,
		limiter:          rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		cache:            config.Cache,
		validator:        validate.New(config.Logger),
		maxRetries:       config.MaxRetries,
		retryDelay:       config.RetryDelay,
		userAgent:        config.UserAgent,
		searchStaleTime:  config.SearchStaleTime,
		detailsStaleTime: config.DetailsStaleTime,
	}
}

// SearchShows runs a free-text search. Malformed results are dropped.
func (c *Client) SearchShows(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	c.logger.WithField("query", query).Info("Searching shows...")

	params := url.Values{}
	params.Set("q", query)
	searchURL := fmt.Sprintf("%s/search/shows?%s", c.baseURL, params.Encode())

	return fetchValidated(ctx, c, searchCachePrefix+strings.ToLower(query), c.searchStaleTime, searchURL, c.validator.SearchResults)
}

// ShowDetails fetches a show with its seasons, cast, episodes and images
// embedded.
func (c *Client) ShowDetails(ctx context.Context, showID int64) (*models.Show, error) {
	if showID <= 0 {
		return nil, fmt.Errorf("%w: invalid id %d", ErrShowNotFound, showID)
	}

	c.logger.WithField("show_id", showID).Info("Fetching show details...")

	detailsURL := fmt.Sprintf("%s/shows/%d?embed[]=seasons&embed[]=cast&embed[]=episodes&embed[]=images", c.baseURL, showID)
	show, err := fetchValidated(ctx, c, detailsCachePrefix+strconv.FormatInt(showID, 10), c.detailsStaleTime, detailsURL, c.validator.Show)
	if err != nil {
		return nil, notFound(err, showID)
	}
	return show, nil
}

func (c *Client) Seasons(ctx context.Context, showID int64) ([]models.Season, error) {
	return fetchList(ctx, c, showID, "seasons", c.validator.Seasons)
}

func (c *Client) Episodes(ctx context.Context, showID int64) ([]models.Episode, error) {
	return fetchList(ctx, c, showID, "episodes", c.validator.Episodes)
}

func (c *Client) Cast(ctx context.Context, showID int64) ([]models.CastMember, error) {
	return fetchList(ctx, c, showID, "cast", c.validator.Cast)
}

func (c *Client) Images(ctx context.Context, showID int64) ([]models.ImageAsset, error) {
	return fetchList(ctx, c, showID, "images", c.validator.Images)
}

func fetchList[T any](ctx context.Context, c *Client, showID int64, resource string, parse func([]byte) ([]T, error)) ([]T, error) {
	if showID <= 0 {
		return nil, fmt.Errorf("%w: invalid id %d", ErrShowNotFound, showID)
	}

	c.logger.WithFields(logrus.Fields{
		"show_id":  showID,
		"resource": resource,
	}).Debug("Fetching show resource")

	listURL := fmt.Sprintf("%s/shows/%d/%s", c.baseURL, showID, resource)
	cacheKey := fmt.Sprintf("%s%d:%s", listCachePrefix, showID, resource)
	items, err := fetchValidated(ctx, c, cacheKey, c.detailsStaleTime, listURL, parse)
	if err != nil {
		return nil, notFound(err, showID)
	}
	return items, nil
}

// fetchValidated serves key from the response cache when it still validates,
// otherwise fetches rawURL. Only bodies that validate are cached.
func fetchValidated[T any](ctx context.Context, c *Client, key string, ttl time.Duration, rawURL string, parse func([]byte) (T, error)) (T, error) {
	var zero T

	if cached, ok := c.cache.Get(ctx, key); ok {
		value, err := parse(cached)
		if err == nil {
			c.logger.WithField("key", key).Debug("Retrieved response from cache")
			return value, nil
		}
		c.logger.WithError(err).Warn("Cached response no longer validates, refetching")
	}

	body, err := c.makeRequest(ctx, rawURL)
	if err != nil {
		return zero, err
	}

	value, err := parse(body)
	if err != nil {
		c.logger.WithError(err).WithField("url", rawURL).Error("Upstream data validation failed")
		return zero, fmt.Errorf("failed to validate response from %s: %w", rawURL, err)
	}

	if ttl > 0 {
		c.cache.Set(ctx, key, body, ttl)
	}
	return value, nil
}

func notFound(err error, showID int64) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %d", ErrShowNotFound, showID)
	}
	return err
}

func (c *Client) makeRequest(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte

	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("%w: %v", errRateLimitWait, err)
			}
			b, err := c.doRequest(ctx, rawURL)
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(c.retryDelay),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return time.Duration(n+1) * c.retryDelay
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.retryLogger(n, rawURL, err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", rawURL, err)
	}
	return body, nil
}

func (c *Client) doRequest(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	body, err := readRespBody(resp)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"url":           rawURL,
		"status":        resp.StatusCode,
		"response_size": len(body),
	}).Debug("API request successful")

	return body, nil
}

// retryable reports whether a failed request is worth another attempt:
// transport errors, 429 and 5xx.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, errRateLimitWait) || errors.Is(err, errResponseTooLarge) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return true
}

func (c *Client) retryLogger(attempt uint, url string, err error) {
	c.logger.WithFields(logrus.Fields{
		"attempt": attempt + 1,
		"url":     url,
		"error":   err.Error(),
	}).Warn("API request failed, retrying...")
}

func readRespBody(resp *http.Response) ([]byte, error) {
	// limit response size to prevent memory issue
	if resp.ContentLength > maxResponseSize {
		return nil, fmt.Errorf("%w: %d bytes", errResponseTooLarge, resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("%w: exceeded %d bytes", errResponseTooLarge, maxResponseSize)
	}
	return body, nil
}
