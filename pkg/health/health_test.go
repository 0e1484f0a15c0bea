package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openverse/toolkit/pkg/config"
	"github.com/openverse/toolkit/pkg/request"
)

type fakeCheck struct {
	name  string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (c *fakeCheck) Name() string { return c.name }

func (c *fakeCheck) Check(ctx context.Context) error {
	c.calls.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return c.err
}

func TestRegistryRun(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Add(&fakeCheck{name: "users"}))
	require.NoError(t, r.Add(&fakeCheck{name: "cache", err: errors.New("connection refused")}))

	results := r.Run(context.Background())
	require.Len(t, results, 2)

	assert.True(t, results["users"].Success)
	assert.Equal(t, "connected", results["users"].Message)
	assert.False(t, results["users"].LastCheck.IsZero())

	assert.False(t, results["cache"].Success)
	assert.Equal(t, "connection refused", results["cache"].Message)

	assert.False(t, Healthy(results))
	delete(results, "cache")
	assert.True(t, Healthy(results))
}

func TestRegistryRunsConcurrently(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, r.Add(&fakeCheck{name: name, delay: 100 * time.Millisecond}))
	}

	start := time.Now()
	results := r.Run(context.Background())
	elapsed := time.Since(start)

	require.Len(t, results, 4)
	assert.Less(t, elapsed, 350*time.Millisecond, "checks must not run sequentially")
	for _, s := range results {
		assert.GreaterOrEqual(t, s.ResponseTimeMS, 100.0)
	}
}

func TestRegistryDuplicateAdd(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Add(&fakeCheck{name: "users"}))
	assert.Error(t, r.Add(&fakeCheck{name: "users"}))
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Add(&fakeCheck{name: "users"}))
	require.NoError(t, r.Add(&fakeCheck{name: "cache"}))

	r.Remove("cache")
	r.Remove("unknown")
	assert.Equal(t, []string{"users"}, r.Names())
}

func TestRegistryHonoursCancellation(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Add(&fakeCheck{name: "slow", delay: 5 * time.Second}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	results := r.Run(ctx)
	require.Len(t, results, 1)
	assert.False(t, results["slow"].Success)
}

func TestHealthyOnEmptyResults(t *testing.T) {
	assert.True(t, Healthy(nil))
}

func TestStatusJSONShape(t *testing.T) {
	raw, err := json.Marshal(Status{Service: "users", Success: true, Message: "connected"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"service_name":"users"`)
	assert.Contains(t, string(raw), `"response_time_ms"`)
}

func serviceCheckFor(t *testing.T, handler http.HandlerFunc) *ServiceCheck {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	host, portStr, err := net.SplitHostPort(server.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client, err := request.New(&config.Settings{BaseURL: "http://" + host, PortUsers: port})
	require.NoError(t, err)

	return &ServiceCheck{Client: client, Service: request.Users, Route: request.UsersHealth}
}

func TestServiceCheck(t *testing.T) {
	t.Run("healthy peer", func(t *testing.T) {
		check := serviceCheckFor(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"status": "ok", "data": map[string]any{}})
		})
		assert.Equal(t, "USERS", check.Name())
		assert.NoError(t, check.Check(context.Background()))
	})

	t.Run("error envelope fails the check", func(t *testing.T) {
		check := serviceCheckFor(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{"status": "error", "error": "database down"})
		})
		err := check.Check(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database down")
	})
}
