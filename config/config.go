// Package config builds the immutable run configuration from the process
// environment.
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

// Defaults applied when a key is absent from the environment.
const (
	DefaultWebsiteURL    = "http://quotes.toscrape.com/"
	DefaultDBDriver      = "postgres"
	DefaultDBHost        = "localhost"
	DefaultDBPort        = 5432
	DefaultDBName        = "mydatabase"
	DefaultDBUser        = "myuser"
	DefaultDBPassword    = "mypassword"
	DefaultDBSSLMode     = "disable"
	DefaultProbeAttempts = 10
	DefaultProbeTimeout  = 5 * time.Second
	DefaultProbeDelay    = 5 * time.Second
	DefaultFetchTimeout  = 10 * time.Second
	DefaultLogLevel      = log.InfoLevel
)

// Configuration validation errors.
var (
	ErrInvalidWebsiteURL   = errors.New("WEBSITE_URL must be an absolute http(s) URL")
	ErrInvalidDBDriver     = errors.New("DB_DRIVER must be one of: postgres, sqlite")
	ErrInvalidPort         = errors.New("DB_PORT must be an integer between 1 and 65535")
	ErrInvalidAttempts     = errors.New("PROBE_ATTEMPTS must be an integer of at least 1")
	ErrInvalidProbeTimeout = errors.New("PROBE_TIMEOUT must be a positive duration")
	ErrInvalidProbeDelay   = errors.New("PROBE_DELAY must be a non-negative duration")
	ErrInvalidFetchTimeout = errors.New("FETCH_TIMEOUT must be a positive duration")
	ErrInvalidBool         = errors.New("BLOCK_PRIVATE_NETWORKS must be a boolean")
	ErrInvalidLogLevel     = errors.New("LOG_LEVEL must be one of: debug, info, warn, error")
)

// Config holds every setting of a run. It is built once at process entry and
// handed to the components that need it.
type Config struct {
	WebsiteURL string

	DB    DBConfig
	Probe ProbeConfig

	FetchTimeout         time.Duration
	BlockPrivateNetworks bool

	LogLevel log.Level
}

// DBConfig describes the destination database.
type DBConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// ProbeConfig is the readiness retry budget.
type ProbeConfig struct {
	Attempts int
	Timeout  time.Duration
	Delay    time.Duration
}

// Default returns the configuration used when the environment is empty.
func Default() Config {
	return Config{
		WebsiteURL: DefaultWebsiteURL,
		DB: DBConfig{
			Driver:   DefaultDBDriver,
			Host:     DefaultDBHost,
			Port:     DefaultDBPort,
			Name:     DefaultDBName,
			User:     DefaultDBUser,
			Password: DefaultDBPassword,
			SSLMode:  DefaultDBSSLMode,
		},
		Probe: ProbeConfig{
			Attempts: DefaultProbeAttempts,
			Timeout:  DefaultProbeTimeout,
			Delay:    DefaultProbeDelay,
		},
		FetchTimeout: DefaultFetchTimeout,
		LogLevel:     DefaultLogLevel,
	}
}

// LookupFunc retrieves the value of the environment variable named by key.
type LookupFunc func(key string) (string, bool)

// Load reads a .env file from the working directory when one exists and then
// builds the configuration from the process environment.
func Load() (*Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a configuration from lookup. All invalid values are
// reported together.
func FromEnv(lookup LookupFunc) (*Config, error) {
	var (
		cfg  = Default()
		errs *multierror.Error
	)

	env := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	if v, ok := env("WEBSITE_URL"); ok {
		cfg.WebsiteURL = v
	}
	if v, ok := env("DB_DRIVER"); ok {
		switch driver := strings.ToLower(v); driver {
		case "postgres", "sqlite":
			cfg.DB.Driver = driver
		default:
			errs = multierror.Append(errs, fmt.Errorf("%w: got %q", ErrInvalidDBDriver, v))
		}
	}
	if v, ok := env("DB_HOST"); ok {
		cfg.DB.Host = v
	}
	if v, ok := env("DB_NAME"); ok {
		cfg.DB.Name = v
	}
	if v, ok := env("DB_USER"); ok {
		cfg.DB.User = v
	}
	if v, ok := lookup("DB_PASSWORD"); ok && v != "" {
		cfg.DB.Password = v
	}
	if v, ok := env("DB_SSLMODE"); ok {
		cfg.DB.SSLMode = v
	}

	if v, ok := env("DB_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > math.MaxUint16 {
			errs = multierror.Append(errs, fmt.Errorf("%w: got %q", ErrInvalidPort, v))
		} else {
			cfg.DB.Port = port
		}
	}

	if v, ok := env("PROBE_ATTEMPTS"); ok {
		attempts, err := strconv.Atoi(v)
		if err != nil || attempts < 1 {
			errs = multierror.Append(errs, fmt.Errorf("%w: got %q", ErrInvalidAttempts, v))
		} else {
			cfg.Probe.Attempts = attempts
		}
	}

	errs = parseDuration(env, "PROBE_TIMEOUT", &cfg.Probe.Timeout, false, ErrInvalidProbeTimeout, errs)
	errs = parseDuration(env, "PROBE_DELAY", &cfg.Probe.Delay, true, ErrInvalidProbeDelay, errs)
	errs = parseDuration(env, "FETCH_TIMEOUT", &cfg.FetchTimeout, false, ErrInvalidFetchTimeout, errs)

	if v, ok := env("BLOCK_PRIVATE_NETWORKS"); ok {
		block, err := strconv.ParseBool(v)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%w: got %q", ErrInvalidBool, v))
		} else {
			cfg.BlockPrivateNetworks = block
		}
	}

	if v, ok := env("LOG_LEVEL"); ok {
		lvl, err := log.ParseLevel(strings.ToLower(v))
		if err != nil || lvl == log.FatalLevel {
			errs = multierror.Append(errs, fmt.Errorf("%w: got %q", ErrInvalidLogLevel, v))
		} else {
			cfg.LogLevel = lvl
		}
	}

	if u, err := url.Parse(cfg.WebsiteURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = multierror.Append(errs, fmt.Errorf("%w: got %q", ErrInvalidWebsiteURL, cfg.WebsiteURL))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func parseDuration(
	env func(string) (string, bool),
	key string,
	dst *time.Duration,
	allowZero bool,
	invalid error,
	errs *multierror.Error,
) *multierror.Error {
	v, ok := env(key)
	if !ok {
		return errs
	}

	d, err := time.ParseDuration(v)
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return multierror.Append(errs, fmt.Errorf("%w: got %q", invalid, v))
	}
	*dst = d
	return errs
}

// DSN renders the data source name understood by the configured driver: a
// lib/pq key/value connection string for postgres, the file path otherwise.
// connectTimeout is rounded up to whole seconds. The session time zone is
// pinned to UTC so column defaults agree with the UTC timestamps the loader
// writes.
func (c *DBConfig) DSN(connectTimeout time.Duration) string {
	if c.Driver != "postgres" {
		return c.Name
	}

	secs := int(math.Ceil(connectTimeout.Seconds()))
	if secs < 1 {
		secs = 1
	}

	params := []struct{ key, val string }{
		{"host", c.Host},
		{"port", strconv.Itoa(c.Port)},
		{"dbname", c.Name},
		{"user", c.User},
		{"password", c.Password},
		{"sslmode", c.SSLMode},
		{"connect_timeout", strconv.Itoa(secs)},
		{"timezone", "UTC"},
	}

	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.key+"="+quoteDSNValue(p.val))
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue quotes values that contain whitespace, quotes or backslashes
// following the libpq key/value rules.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
