package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	appLog "eventboard/internal/log"
	"eventboard/internal/status"
)

// Defaults applied by Normalize.
const (
	DefaultListen          = "127.0.0.1:8080"
	DefaultCatalogPath     = "/etc/eventboard/events.yaml"
	DefaultRefreshInterval = "@every 60s"
	DefaultFeedsRefresh    = "*/15 * * * *"
	DefaultCacheDir        = "/var/lib/eventboard/feed-cache"
)

// FeedConfig describes an ICS calendar whose events are merged into the
// catalog under a single category.
type FeedConfig struct {
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// Category is assigned to every event of the feed.
	Category string `yaml:"category" json:"category"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the board and API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration. Fields tagged with
// env can be overridden from the environment after the file is read.
type Config struct {
	// Listen is the HTTP listen address for the board and API.
	Listen string `yaml:"listen" json:"listen" env:"EVENTBOARD_LISTEN"`

	// Timezone is the IANA timezone catalog times are expressed in.
	// Empty means the host's local zone.
	Timezone string `yaml:"timezone" json:"timezone" env:"EVENTBOARD_TIMEZONE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level" env:"EVENTBOARD_LOG_LEVEL"`

	// CatalogPath points at the YAML file with categories and events.
	CatalogPath string `yaml:"catalog_path" json:"catalog_path" env:"EVENTBOARD_CATALOG"`

	// StrictCatalog makes a single invalid event fail the catalog load
	// instead of excluding it.
	StrictCatalog bool `yaml:"strict_catalog" json:"strict_catalog" env:"EVENTBOARD_STRICT_CATALOG"`

	// EventYear is combined with the year-less catalog dates.
	EventYear int `yaml:"event_year" json:"event_year" env:"EVENTBOARD_EVENT_YEAR"`

	// EventDuration is the assumed length of every event (e.g. "3h").
	EventDuration time.Duration `yaml:"event_duration" json:"event_duration" env:"EVENTBOARD_EVENT_DURATION"`

	// AllCategory is the sentinel category name meaning "no filter".
	AllCategory string `yaml:"all_category" json:"all_category"`

	// RefreshInterval is the cron spec for status re-evaluation.
	RefreshInterval string `yaml:"refresh_interval" json:"refresh_interval" env:"EVENTBOARD_REFRESH_INTERVAL"`

	// FeedsRefresh is the cron spec for re-fetching ICS feeds.
	FeedsRefresh string `yaml:"feeds_refresh" json:"feeds_refresh"`

	// CacheDir holds per-feed HTTP cache metadata and bodies.
	CacheDir string `yaml:"cache_dir" json:"cache_dir" env:"EVENTBOARD_CACHE_DIR"`

	// Feeds is the list of ICS sources merged into the catalog.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          DefaultListen,
		Timezone:        "",
		LogLevel:        "info",
		CatalogPath:     DefaultCatalogPath,
		EventYear:       status.DefaultYear,
		EventDuration:   status.DefaultDuration,
		AllCategory:     status.DefaultAllCategory,
		RefreshInterval: DefaultRefreshInterval,
		FeedsRefresh:    DefaultFeedsRefresh,
		CacheDir:        DefaultCacheDir,
		Feeds:           []FeedConfig{},
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CatalogPath == "" {
		c.CatalogPath = DefaultCatalogPath
	}
	if c.EventYear <= 0 {
		c.EventYear = status.DefaultYear
	}
	if c.EventDuration <= 0 {
		c.EventDuration = status.DefaultDuration
	}
	if c.AllCategory == "" {
		c.AllCategory = status.DefaultAllCategory
	}
	if c.RefreshInterval == "" {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.FeedsRefresh == "" {
		c.FeedsRefresh = DefaultFeedsRefresh
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	for i := range c.Feeds {
		if c.Feeds[i].ID == "" {
			c.Feeds[i].ID = c.Feeds[i].URL
		}
	}
}

// Location resolves Timezone, falling back to time.Local when it is empty
// or unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// Policy returns the status policy described by this configuration.
func (c *Config) Policy() status.Policy {
	return status.Policy{
		Year:     c.EventYear,
		Duration: c.EventDuration,
		Location: c.Location(),
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there with
//     0600 permissions and returned.
//   - Otherwise the YAML is decoded.
//   - EVENTBOARD_* environment variables override file values.
//   - Missing values are normalized to defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			// Even if save fails, return cfg with error so caller can decide.
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: environment overrides: %w", err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file in the same directory + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventboard-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
