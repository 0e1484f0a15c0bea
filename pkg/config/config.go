// Package config loads and validates the shared OpenVerse service
// settings. Values come from the environment (optionally seeded from a
// .env file) or from a YAML file when a path is supplied, and are
// returned as an immutable *Settings shared by reference between every
// other package in the toolkit.
//
// Loading is all-or-nothing: either every required field validates or
// Load fails with a *ConfigurationError naming each offending field.
package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Drivers accepted by Database.Driver.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Service names recognised across the project. A service's own
// ProjectName selects which port applies to it.
const (
	ServiceUsers = "USERS"
	ServiceAuth  = "AUTHENTICATION"
)

var allowedDrivers = []string{DriverSQLite, DriverPostgres}

var allowedJWTAlgorithms = []string{"HS256", "HS384", "HS512"}

// Database holds relational storage settings. Driver selects between a
// file-backed SQLite database and a networked PostgreSQL one; the
// required fields differ per driver and are checked by Load.
type Database struct {
	Driver      string `yaml:"driver" env:"DATABASE_DRIVER" env-default:"sqlite3"`
	Host        string `yaml:"host" env:"DATABASE_HOST"`
	Port        int    `yaml:"port" env:"DATABASE_PORT"`
	User        string `yaml:"user" env:"DATABASE_USER"`
	Password    string `yaml:"password" env:"DATABASE_PASSWORD"`
	Name        string `yaml:"name" env:"DATABASE_NAME"`
	File        string `yaml:"file" env:"DATABASE_FILE_NAME"`
	PoolSize    int    `yaml:"pool_size" env:"DATABASE_POOL_SIZE" env-default:"5"`
	MaxOverflow int    `yaml:"max_overflow" env:"DATABASE_MAX_OVERFLOW" env-default:"10"`
}

// Redis holds cache connection settings.
type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST"`
	Port     int    `yaml:"port" env:"REDIS_PORT"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
}

// JWT holds token-signing settings shared by the auth package.
type JWT struct {
	Algorithm string `yaml:"algorithm" env:"JWT_ALGORITHM" env-default:"HS256"`
	SecretKey string `yaml:"secret_key" env:"JWT_SECRET_KEY"`
}

// Settings is the root configuration record. It is constructed once per
// process by Load and never mutated afterwards, so it is safe to share
// between goroutines without locking.
type Settings struct {
	// ProjectName identifies the service this process runs as, e.g.
	// "USERS". It must not appear in OtherServices.
	ProjectName string `yaml:"project_name" env:"PROJECT_NAME"`

	// Env controls log format and verbosity: "dev", "staging", "prod".
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	Debug bool `yaml:"debug" env:"DEBUG" env-default:"false"`

	// BaseURL is the scheme+host collaborating services share, e.g.
	// "http://svc.local". Per-service ports are appended by the client.
	BaseURL string `yaml:"base_url" env:"BASE_URL"`

	// OtherServices lists peer service names, comma separated in the
	// environment.
	OtherServices []string `yaml:"other_services" env:"OTHER_SERVICES"`

	PortUsers int `yaml:"port_users" env:"PORT_SERVICE_USERS"`
	PortAuth  int `yaml:"port_auth" env:"PORT_SERVICE_AUTH"`

	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"1h"`

	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	JWT      JWT      `yaml:"jwt"`
}

// ConfigurationError reports every missing or invalid settings field
// found during Load. It is startup-fatal: no Settings instance exists
// when it is returned.
type ConfigurationError struct {
	Fields []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Fields, "; ")
}

// Load reads settings from a .env file (when one is found in the
// working directory or any parent), then from the YAML file named by
// CONFIG_PATH when set, falling back to plain environment variables.
// It returns a fully validated *Settings or a *ConfigurationError.
func Load() (*Settings, error) {
	if path := findDotenv(); path != "" {
		// Existing environment variables win over .env entries.
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return LoadFile(path)
	}

	var s Settings
	if err := cleanenv.ReadEnv(&s); err != nil {
		return nil, fmt.Errorf("config: read environment: %w", err)
	}
	return finish(&s)
}

// LoadFile reads settings from the YAML file at path, with environment
// variables overriding file values field by field.
func LoadFile(path string) (*Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config: file does not exist: %s", path)
	}

	var s Settings
	if err := cleanenv.ReadConfig(path, &s); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return finish(&s)
}

// MustLoad is Load for program start-up: if it returns, the settings
// are valid; otherwise the process exits.
func MustLoad() *Settings {
	s, err := Load()
	if err != nil {
		log.Fatalf("cannot load settings: %s", err)
	}
	return s
}

func finish(s *Settings) (*Settings, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// validate collects every rule violation instead of stopping at the
// first, so operators can fix a broken deployment in one pass.
func (s *Settings) validate() error {
	var faults []string

	add := func(field, msg string) {
		faults = append(faults, field+": "+msg)
	}

	if s.ProjectName == "" {
		add("PROJECT_NAME", "is required")
	} else if slices.Contains(s.OtherServices, s.ProjectName) {
		add("PROJECT_NAME", fmt.Sprintf("%q must not be listed in OTHER_SERVICES", s.ProjectName))
	}

	if s.BaseURL == "" {
		add("BASE_URL", "is required")
	} else if _, err := url.Parse(normalizeBaseURL(s.BaseURL)); err != nil {
		add("BASE_URL", "is not a valid URL: "+err.Error())
	}

	if s.JWT.SecretKey == "" {
		add("JWT_SECRET_KEY", "is required")
	}
	if !slices.Contains(allowedJWTAlgorithms, s.JWT.Algorithm) {
		add("JWT_ALGORITHM", fmt.Sprintf("%q must be one of %s", s.JWT.Algorithm, strings.Join(allowedJWTAlgorithms, ", ")))
	}

	if s.Redis.Host == "" {
		add("REDIS_HOST", "is required")
	}
	if s.Redis.Port == 0 {
		add("REDIS_PORT", "is required")
	}

	switch s.Database.Driver {
	case DriverSQLite:
		if s.Database.File == "" {
			add("DATABASE_FILE_NAME", "is required for sqlite3")
		}
	case DriverPostgres:
		for field, value := range map[string]string{
			"DATABASE_HOST":     s.Database.Host,
			"DATABASE_USER":     s.Database.User,
			"DATABASE_PASSWORD": s.Database.Password,
			"DATABASE_NAME":     s.Database.Name,
		} {
			if value == "" {
				add(field, "is required for postgres")
			}
		}
		if s.Database.Port == 0 {
			add("DATABASE_PORT", "is required for postgres")
		}
	default:
		add("DATABASE_DRIVER", fmt.Sprintf("%q must be one of %s", s.Database.Driver, strings.Join(allowedDrivers, ", ")))
	}

	switch s.ProjectName {
	case ServiceUsers:
		if s.PortUsers == 0 {
			add("PORT_SERVICE_USERS", "is required for the USERS service")
		}
	case ServiceAuth:
		if s.PortAuth == 0 {
			add("PORT_SERVICE_AUTH", "is required for the AUTHENTICATION service")
		}
	default:
		if s.PortUsers == 0 && s.PortAuth == 0 {
			add("PORT_SERVICE_USERS", "or PORT_SERVICE_AUTH must be set")
		}
	}

	if len(faults) > 0 {
		slices.Sort(faults)
		return &ConfigurationError{Fields: faults}
	}
	return nil
}

// DatabaseURL returns the database/sql DSN for the configured driver.
func (s *Settings) DatabaseURL() (string, error) {
	switch s.Database.Driver {
	case DriverSQLite:
		return s.Database.File, nil
	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(s.Database.User, s.Database.Password),
			Host:   fmt.Sprintf("%s:%d", s.Database.Host, s.Database.Port),
			Path:   s.Database.Name,
		}
		return u.String(), nil
	}
	return "", fmt.Errorf("config: unsupported database driver %q", s.Database.Driver)
}

// RedisURL returns the cache connection string in the
// redis://[:password@]host:port/db form understood by go-redis.
func (s *Settings) RedisURL() string {
	auth := ""
	if s.Redis.Password != "" {
		auth = ":" + s.Redis.Password + "@"
	}
	return fmt.Sprintf("redis://%s%s:%d/%d", auth, s.Redis.Host, s.Redis.Port, s.Redis.DB)
}

// ServicePort returns the configured port for the named service.
func (s *Settings) ServicePort(service string) (int, error) {
	switch strings.ToUpper(service) {
	case ServiceUsers:
		if s.PortUsers != 0 {
			return s.PortUsers, nil
		}
	case ServiceAuth:
		if s.PortAuth != 0 {
			return s.PortAuth, nil
		}
	default:
		return 0, fmt.Errorf("config: unknown service %q", service)
	}
	return 0, fmt.Errorf("config: no port configured for service %q", service)
}

// Redacted returns the settings as a flat map with credentials removed,
// suitable for logging at start-up.
func (s *Settings) Redacted() map[string]string {
	return map[string]string{
		"PROJECT_NAME":    s.ProjectName,
		"ENV":             s.Env,
		"DEBUG":           fmt.Sprintf("%t", s.Debug),
		"BASE_URL":        s.BaseURL,
		"OTHER_SERVICES":  strings.Join(s.OtherServices, ","),
		"DATABASE_DRIVER": s.Database.Driver,
		"DATABASE_HOST":   s.Database.Host,
		"DATABASE_NAME":   s.Database.Name,
		"REDIS_HOST":      s.Redis.Host,
		"REDIS_PORT":      fmt.Sprintf("%d", s.Redis.Port),
		"JWT_ALGORITHM":   s.JWT.Algorithm,
		"SESSION_TTL":     s.SessionTTL.String(),
	}
}

func normalizeBaseURL(base string) string {
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return "http://" + base
	}
	return base
}

// NormalizedBaseURL returns BaseURL with an http scheme prepended when
// none was configured and any trailing slash removed.
func (s *Settings) NormalizedBaseURL() string {
	return strings.TrimRight(normalizeBaseURL(s.BaseURL), "/")
}

// findDotenv walks from the working directory towards the filesystem
// root looking for a .env file. A missing file is not an error.
func findDotenv() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".env")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
