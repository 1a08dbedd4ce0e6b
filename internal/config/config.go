package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"fastcal/internal/clock"
	"fastcal/internal/sched"
)

// DataConfig says where the schedule dataset comes from.
type DataConfig struct {
	// Path is a local JSON/JSONC file. Used when URL is empty.
	Path string `yaml:"path" json:"path"`
	// URL is fetched with HTTP caching; the last good body is kept in CacheDir.
	URL      string `yaml:"url,omitempty" json:"url,omitempty"`
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

// Labels are the display names of the two daily boundaries.
type Labels struct {
	Start  string `yaml:"start" json:"start"`
	End    string `yaml:"end" json:"end"`
	Period string `yaml:"period" json:"period"`
}

// PDFConfig controls the calendar PDF. URL links to an external PDF; Path
// is a locally captured file served at /download.pdf. Both empty hides the
// download link.
type PDFConfig struct {
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	URL  string `yaml:"url,omitempty" json:"url,omitempty"`
}

// PrefsConfig selects where remembered selections are stored.
//   - "memory": lost on restart
//   - "file":   YAML file at Path
//   - "redis":  hashes in Redis
type PrefsConfig struct {
	Backend       string `yaml:"backend" json:"backend"`
	Path          string `yaml:"path,omitempty" json:"path,omitempty"`
	RedisAddr     string `yaml:"redis_addr,omitempty" json:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty" json:"-"`
	RedisDB       int    `yaml:"redis_db,omitempty" json:"redis_db,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// UTCOffset is the single fixed offset all schedule times are in,
	// e.g. "+06:00". Host timezone and DST are never consulted.
	UTCOffset string `yaml:"utc_offset" json:"utc_offset"`

	// Collation is the BCP 47 language used to order region names.
	Collation string `yaml:"collation" json:"collation"`

	Data DataConfig `yaml:"data" json:"data"`

	// RefreshCron re-reads the dataset on this schedule ("" disables).
	RefreshCron string `yaml:"refresh" json:"refresh"`

	Labels Labels `yaml:"labels" json:"labels"`

	// YearLabel is shown in the page header; defaults to the dataset year.
	YearLabel string `yaml:"year_label,omitempty" json:"year_label,omitempty"`

	PDF   PDFConfig   `yaml:"pdf" json:"pdf"`
	Prefs PrefsConfig `yaml:"prefs" json:"prefs"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    "127.0.0.1:8080",
		UTCOffset: "+06:00",
		Collation: "en",
		Data: DataConfig{
			Path:     "./schedule.json",
			CacheDir: "./var/dataset-cache",
		},
		RefreshCron: "0 */30 * * * *",
		Labels: Labels{
			Start:  "Sehri",
			End:    "Iftar",
			Period: "Ramadan",
		},
		Prefs: PrefsConfig{
			Backend: "file",
			Path:    "./var/prefs.yaml",
		},
		LogLevel: "info",
	}
}

// Normalize fills in missing values so that partially-filled configs still
// behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.UTCOffset == "" {
		c.UTCOffset = def.UTCOffset
	}
	if c.Collation == "" {
		c.Collation = def.Collation
	}
	if c.Data.Path == "" && c.Data.URL == "" {
		c.Data.Path = def.Data.Path
	}
	if c.Data.CacheDir == "" {
		c.Data.CacheDir = def.Data.CacheDir
	}
	if c.Labels.Start == "" {
		c.Labels.Start = def.Labels.Start
	}
	if c.Labels.End == "" {
		c.Labels.End = def.Labels.End
	}
	if c.Labels.Period == "" {
		c.Labels.Period = def.Labels.Period
	}
	switch c.Prefs.Backend {
	case "memory", "file", "redis":
	default:
		c.Prefs.Backend = def.Prefs.Backend
	}
	if c.Prefs.Backend == "file" && c.Prefs.Path == "" {
		c.Prefs.Path = def.Prefs.Path
	}
	if c.Prefs.Backend == "redis" && c.Prefs.RedisAddr == "" {
		c.Prefs.RedisAddr = "127.0.0.1:6379"
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate checks values that Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	if _, err := clock.ParseOffset(c.UTCOffset); err != nil {
		errs = append(errs, err)
	}
	if _, err := language.Parse(c.Collation); err != nil {
		errs = append(errs, fmt.Errorf("collation %q: %w", c.Collation, err))
	}
	if c.RefreshCron != "" {
		if err := sched.Validate(c.RefreshCron); err != nil {
			errs = append(errs, fmt.Errorf("refresh %q: %w", c.RefreshCron, err))
		}
	}
	return errors.Join(errs...)
}

// Location returns the fixed zone of UTCOffset, or UTC if it is invalid.
func (c *Config) Location() *time.Location {
	loc, err := clock.ParseOffset(c.UTCOffset)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Language returns the collation language, or English if it is invalid.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.Collation)
	if err != nil {
		return language.English
	}
	return tag
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there with
//     0600 permissions and returned.
//   - Otherwise the YAML is decoded, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, ".fastcal-config-*.tmp")
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// WriteFileAtomic writes data to path via a temp file in the same
// directory, then renames it into place with 0600 permissions.
func WriteFileAtomic(path string, data []byte, pattern string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, pattern)
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
