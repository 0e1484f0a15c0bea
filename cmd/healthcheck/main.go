// healthcheck is a one-shot diagnostic for an OpenVerse deployment.
//
// STARTUP SEQUENCE:
//  1. Load and validate settings (.env / environment / --config YAML)
//  2. Initialise the process logger
//  3. Build the dependency container (cache, database, API client)
//  4. Run every health check concurrently
//  5. Print the results and exit non-zero if any check failed
//
// RUNNING:
//
//	go run ./cmd/healthcheck --config=config/local.yaml
//
// or with the environment variable:
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/healthcheck
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openverse/toolkit/pkg/config"
	"github.com/openverse/toolkit/pkg/dep"
	"github.com/openverse/toolkit/pkg/health"
	"github.com/openverse/toolkit/pkg/logger"
	"github.com/openverse/toolkit/pkg/request"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration YAML file")
	timeout := flag.Duration("timeout", 10*time.Second, "overall deadline for all checks")
	flag.Parse()

	var (
		settings *config.Settings
		err      error
	)
	if *configPath != "" {
		settings, err = config.LoadFile(*configPath)
	} else {
		settings, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load settings: %s\n", err)
		os.Exit(1)
	}

	log := logger.Init(settings.Env, nil)
	log.Info("starting healthcheck", slog.String("project", settings.ProjectName))
	for key, value := range settings.Redacted() {
		log.Debug("setting", slog.String("key", key), slog.String("value", value))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	container := dep.New(dep.WithSettings(settings), dep.WithLogger(log))
	defer func() {
		if err := container.Close(); err != nil {
			log.Error("teardown failed", slog.String("error", err.Error()))
		}
	}()

	registry := health.NewRegistry(log)
	register(ctx, log, container, registry)

	results := registry.Run(ctx)
	for _, name := range registry.Names() {
		status := results[name]
		state := "ok"
		if !status.Success {
			state = "failed"
		}
		fmt.Printf("%-16s %-8s %8.1fms  %s\n",
			status.Service, state, status.ResponseTimeMS, status.Message)
	}

	if !health.Healthy(results) {
		os.Exit(1)
	}
}

// register wires up one check per reachable dependency. A resource that
// fails to initialise is reported immediately rather than silently
// skipped.
func register(ctx context.Context, log *slog.Logger, container *dep.Container, registry *health.Registry) {
	if rdb, err := container.Redis(ctx); err != nil {
		log.Error("redis unavailable", slog.String("error", err.Error()))
	} else if err := registry.Add(&health.RedisCheck{Client: rdb}); err != nil {
		log.Error("register redis check", slog.String("error", err.Error()))
	}

	if db, err := container.DB(ctx); err != nil {
		log.Error("database unavailable", slog.String("error", err.Error()))
	} else if err := registry.Add(&health.DBCheck{DB: db}); err != nil {
		log.Error("register database check", slog.String("error", err.Error()))
	}

	client, err := container.Client()
	if err != nil {
		log.Error("client unavailable", slog.String("error", err.Error()))
		return
	}
	for _, check := range []*health.ServiceCheck{
		{Client: client, Service: request.Users, Route: request.UsersHealth},
		{Client: client, Service: request.Authentication, Route: request.AuthHealth},
	} {
		if err := registry.Add(check); err != nil {
			log.Error("register service check", slog.String("error", err.Error()))
		}
	}
}
