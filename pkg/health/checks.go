package health

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-redis/redis/v8"

	"github.com/openverse/toolkit/pkg/request"
)

// RedisCheck pings the cache connection.
type RedisCheck struct {
	Client *redis.Client
}

func (c *RedisCheck) Name() string { return "redis" }

func (c *RedisCheck) Check(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// DBCheck pings the database handle.
type DBCheck struct {
	DB *sql.DB
}

func (c *DBCheck) Name() string { return "database" }

func (c *DBCheck) Check(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// ServiceCheck calls a peer service's health route through the API
// client. An error envelope counts as a failed check.
type ServiceCheck struct {
	Client  *request.Client
	Service request.Service
	Route   request.Route
}

func (c *ServiceCheck) Name() string { return string(c.Service) }

func (c *ServiceCheck) Check(ctx context.Context) error {
	env, err := c.Client.Do(ctx, c.Service, c.Route, nil, nil)
	if err != nil {
		return err
	}
	if !env.IsOK() {
		return errors.New(env.Error)
	}
	return nil
}
