// Package dep provides the shared-resource container for OpenVerse
// services: settings, the cache connection, the database handle and the
// API client.
//
// Scoping policy: every handle is a process-scoped singleton within its
// Container — the first call constructs and caches, later calls return
// the same instance. Request-scoped wiring is done by constructing a
// fresh Container; there is no implicit per-call scoping. The container
// owns its handles and tears them down in Close.
package dep

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/openverse/toolkit/pkg/config"
	"github.com/openverse/toolkit/pkg/request"

	// Database drivers registered for the two configurations the
	// Settings model accepts.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DependencyInitError reports a failed construction of a shared
// resource. The requesting path cannot proceed; a later call retries
// the construction.
type DependencyInitError struct {
	Resource string
	Err      error
}

func (e *DependencyInitError) Error() string {
	return fmt.Sprintf("dependency %s failed to initialise: %v", e.Resource, e.Err)
}

func (e *DependencyInitError) Unwrap() error {
	return e.Err
}

// Container caches lazily-constructed shared resources. It is safe for
// concurrent use; handles are read-only once built.
type Container struct {
	log *slog.Logger

	mu       sync.Mutex
	settings *config.Settings
	redis    *redis.Client
	db       *sql.DB
	client   *request.Client
}

// Option configures a Container.
type Option func(*Container)

// WithSettings seeds the container with already-loaded settings instead
// of loading them on first use.
func WithSettings(s *config.Settings) Option {
	return func(c *Container) { c.settings = s }
}

// WithLogger sets the logger handed to constructed resources.
func WithLogger(log *slog.Logger) Option {
	return func(c *Container) { c.log = log }
}

// New builds an empty container. Nothing is constructed until the
// corresponding provider is called.
func New(opts ...Option) *Container {
	c := &Container{log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Settings returns the shared settings, loading and validating them on
// first use.
func (c *Container) Settings() (*config.Settings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settingsLocked()
}

func (c *Container) settingsLocked() (*config.Settings, error) {
	if c.settings != nil {
		return c.settings, nil
	}
	s, err := config.Load()
	if err != nil {
		return nil, &DependencyInitError{Resource: "settings", Err: err}
	}
	c.settings = s
	return s, nil
}

// Redis returns the shared cache connection, constructing it from the
// settings' redis URL on first use and verifying it with a ping.
func (c *Container) Redis(ctx context.Context) (*redis.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.redis != nil {
		return c.redis, nil
	}
	s, err := c.settingsLocked()
	if err != nil {
		return nil, err
	}
	opts, err := redis.ParseURL(s.RedisURL())
	if err != nil {
		return nil, &DependencyInitError{Resource: "redis", Err: err}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, &DependencyInitError{Resource: "redis", Err: err}
	}
	c.log.Debug("redis connection initialised", slog.String("addr", opts.Addr))
	c.redis = client
	return client, nil
}

// DB returns the shared database handle for the configured driver,
// opening and pinging it on first use. The *sql.DB is a connection pool
// and is safe for concurrent use.
func (c *Container) DB(ctx context.Context) (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}
	s, err := c.settingsLocked()
	if err != nil {
		return nil, err
	}
	dsn, err := s.DatabaseURL()
	if err != nil {
		return nil, &DependencyInitError{Resource: "database", Err: err}
	}
	db, err := sql.Open(s.Database.Driver, dsn)
	if err != nil {
		return nil, &DependencyInitError{Resource: "database", Err: err}
	}
	db.SetMaxOpenConns(s.Database.PoolSize + s.Database.MaxOverflow)
	db.SetMaxIdleConns(s.Database.PoolSize)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &DependencyInitError{Resource: "database", Err: err}
	}
	c.log.Debug("database initialised", slog.String("driver", s.Database.Driver))
	c.db = db
	return db, nil
}

// Client returns the shared API client, constructing it on first use.
func (c *Container) Client(opts ...request.Option) (*request.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	s, err := c.settingsLocked()
	if err != nil {
		return nil, err
	}
	client, err := request.New(s, append([]request.Option{request.WithLogger(c.log)}, opts...)...)
	if err != nil {
		return nil, &DependencyInitError{Resource: "client", Err: err}
	}
	c.client = client
	return client, nil
}

// Reset discards every cached handle without closing it. Intended for
// tests that need fresh instances; production teardown goes through
// Close.
func (c *Container) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = nil
	c.redis = nil
	c.db = nil
	c.client = nil
}

// Close tears down the handles the container owns. It is safe to call
// on a container that never constructed anything.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		c.redis = nil
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		c.db = nil
	}
	c.client = nil
	return errors.Join(errs...)
}
