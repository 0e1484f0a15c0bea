// Package logger configures structured logging for OpenVerse services.
//
// Setup returns a fresh *slog.Logger for the given environment — tests
// use it to get isolated instances. Init additionally installs the
// logger as the process default exactly once; calling it again is a
// no-op that returns the already-installed logger, so no duplicate
// sinks can appear.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Environments understood by Setup. Anything else is treated as dev.
const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

var (
	initOnce      sync.Once
	processLogger *slog.Logger
)

// Setup builds a logger for the environment. Production logs JSON at
// INFO, staging JSON at DEBUG, development human-readable text at
// DEBUG. A nil writer defaults to stdout.
func Setup(env string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	switch env {
	case EnvProd:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	case EnvStaging:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
}

// Init configures the process-wide default logger once and returns it.
// Subsequent calls ignore their arguments and return the logger
// installed by the first call.
func Init(env string, w io.Writer) *slog.Logger {
	initOnce.Do(func() {
		processLogger = Setup(env, w)
		slog.SetDefault(processLogger)
	})
	return processLogger
}

// FileSink opens (creating directories as needed) an append-only log
// file, typically combined with stdout via io.MultiWriter. Rotation is
// left to the deployment.
func FileSink(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
