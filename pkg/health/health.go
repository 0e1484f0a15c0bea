// Package health aggregates liveness checks over the resources a
// service depends on: peer services, the cache and the database. Checks
// run concurrently and each result records success, a message and the
// observed latency.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Check probes one dependency. Implementations must be safe for
// concurrent use and honour ctx cancellation.
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

// Status is the outcome of one check run.
type Status struct {
	Service        string    `json:"service_name"`
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	LastCheck      time.Time `json:"last_check"`
	ResponseTimeMS float64   `json:"response_time_ms"`
}

// Registry holds the registered checks for a process.
type Registry struct {
	log *slog.Logger

	mu     sync.Mutex
	checks map[string]Check
}

// NewRegistry builds an empty registry. A nil logger falls back to the
// process default.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{log: log, checks: make(map[string]Check)}
}

// Add registers a check. Registering a duplicate name is an error.
func (r *Registry) Add(c Check) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.checks[c.Name()]; exists {
		return fmt.Errorf("health: check %q already registered", c.Name())
	}
	r.checks[c.Name()] = c
	r.log.Debug("health check registered", slog.String("name", c.Name()))
	return nil
}

// Remove deregisters a check by name; removing an unknown name is a
// no-op.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.checks, name)
}

// Names returns the registered check names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.checks))
	for name := range r.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes every registered check concurrently and returns the
// results keyed by check name.
func (r *Registry) Run(ctx context.Context) map[string]Status {
	r.mu.Lock()
	checks := make([]Check, 0, len(r.checks))
	for _, c := range r.checks {
		checks = append(checks, c)
	}
	r.mu.Unlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]Status, len(checks))
	)
	for _, c := range checks {
		wg.Add(1)
		go func(c Check) {
			defer wg.Done()
			status := r.run(ctx, c)
			mu.Lock()
			results[c.Name()] = status
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return results
}

func (r *Registry) run(ctx context.Context, c Check) Status {
	start := time.Now()
	err := c.Check(ctx)
	elapsed := time.Since(start)

	status := Status{
		Service:        c.Name(),
		Success:        err == nil,
		Message:        "connected",
		LastCheck:      time.Now().UTC(),
		ResponseTimeMS: float64(elapsed) / float64(time.Millisecond),
	}
	if err != nil {
		status.Message = err.Error()
		r.log.Error("health check failed",
			slog.String("name", c.Name()),
			slog.String("error", err.Error()),
		)
	}
	return status
}

// Healthy reports whether every status in results succeeded.
func Healthy(results map[string]Status) bool {
	for _, s := range results {
		if !s.Success {
			return false
		}
	}
	return true
}
