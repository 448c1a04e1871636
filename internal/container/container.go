package container

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"tvscout/internal/cache"
	"tvscout/internal/config"
	"tvscout/internal/database"
	"tvscout/internal/recent"
	"tvscout/internal/services"
	"tvscout/internal/storage"
)

type Container struct {
	Config  config.Config
	Logger  *logrus.Logger
	DB      *pgxpool.Pool
	Redis   *redis.Client
	NATS    *nats.Conn
	Store   storage.Store
	Feed    storage.Feed
	Catalog *services.Client
	Recent  *recent.Cache

	sqlite *storage.SQLiteStore
}

// Overrides replace connections New would otherwise open itself.
type Overrides struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
	NATS  *nats.Conn
}

func New(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*Container, error) {
	return NewWithOverrides(ctx, cfg, logger, Overrides{})
}

func NewWithOverrides(ctx context.Context, cfg config.Config, logger *logrus.Logger, o Overrides) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
		DB:     o.DB,
		Redis:  o.Redis,
		NATS:   o.NATS,
	}

	if err := c.initStore(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initFeed(ctx); err != nil {
		c.Close()
		return nil, err
	}

	var responseCache services.ResponseCache = services.NewMemoryResponseCache()
	if c.Redis != nil {
		responseCache = services.NewRedisResponseCache(c.Redis, logger)
	}

	c.Catalog = services.NewClientWithConfig(&services.ClientConfig{
		BaseURL:          cfg.CatalogURL,
		Timeout:          cfg.CatalogTimeout,
		RateLimit:        cfg.CatalogRateLimit,
		RateBurst:        cfg.CatalogRateBurst,
		MaxRetries:       cfg.CatalogMaxRetries,
		RetryDelay:       cfg.CatalogRetryDelay,
		SearchStaleTime:  cfg.SearchStaleTime,
		DetailsStaleTime: cfg.DetailsStaleTime,
		Logger:           logger,
		Cache:            responseCache,
	})

	opts := []recent.Option{recent.WithLogger(logger)}
	if c.Feed != nil {
		opts = append(opts, recent.WithFeed(c.Feed))
	}
	c.Recent = recent.New(c.Store, opts...)

	logger.WithFields(logrus.Fields{
		"storage": cfg.StorageBackend,
		"feed":    cfg.ChangeFeed,
	}).Debug("Container initialized")
	return c, nil
}

func (c *Container) initStore(ctx context.Context) error {
	switch c.Config.StorageBackend {
	case "", "sqlite":
		store, err := storage.OpenSQLite(c.Config.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to initialize sqlite store: %w", err)
		}
		c.sqlite = store
		c.Store = store
	case "memory":
		c.Store = storage.NewMemory()
	case "redis":
		client, err := c.redisClient(ctx)
		if err != nil {
			return err
		}
		c.Store = storage.NewRedisStore(client)
	case "postgres":
		pool, err := c.database(ctx)
		if err != nil {
			return err
		}
		store := storage.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		c.Store = store
	default:
		return fmt.Errorf("unknown storage backend %q", c.Config.StorageBackend)
	}
	return nil
}

func (c *Container) initFeed(ctx context.Context) error {
	switch c.Config.ChangeFeed {
	case "", "none":
	case "memory":
		c.Feed = storage.NewMemoryFeed()
	case "redis":
		client, err := c.redisClient(ctx)
		if err != nil {
			return err
		}
		c.Feed = storage.NewRedisFeed(client, "")
	case "postgres":
		pool, err := c.database(ctx)
		if err != nil {
			return err
		}
		c.Feed = storage.NewPostgresFeed(pool, "")
	case "nats":
		conn, err := c.natsConn()
		if err != nil {
			return err
		}
		c.Feed = storage.NewNATSFeed(conn, c.Config.NATSSubject)
	default:
		return fmt.Errorf("unknown change feed %q", c.Config.ChangeFeed)
	}
	return nil
}

func (c *Container) redisClient(ctx context.Context) (*redis.Client, error) {
	if c.Redis != nil {
		return c.Redis, nil
	}
	client, err := cache.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	c.Redis = client
	return client, nil
}

func (c *Container) database(ctx context.Context) (*pgxpool.Pool, error) {
	if c.DB != nil {
		return c.DB, nil
	}
	dsn, err := config.DatabaseDSN()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	pool, err := database.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	c.DB = pool
	return pool, nil
}

func (c *Container) natsConn() (*nats.Conn, error) {
	if c.NATS != nil {
		return c.NATS, nil
	}
	url := strings.TrimSpace(c.Config.NATSURL)
	conn, err := nats.Connect(url,
		nats.Name("tvscout"),
		nats.MaxReconnects(config.GetEnvInt("NATS_MAX_RECONNECTS", 5)),
		nats.ReconnectWait(config.GetEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second)),
		nats.RetryOnFailedConnect(false),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	c.NATS = conn
	return conn, nil
}

// Close releases every connection the container holds, overrides included.
func (c *Container) Close() {
	if c.NATS != nil {
		c.NATS.Close()
		c.Logger.Info("NATS connection closed")
	}
	if c.Redis != nil {
		c.Redis.Close()
		c.Logger.Info("Redis connection closed")
	}
	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("Database connection closed")
	}
	if c.sqlite != nil {
		if err := c.sqlite.Close(); err != nil {
			c.Logger.WithError(err).Warn("Failed to close sqlite store")
		}
	}
}
