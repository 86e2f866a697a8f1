package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultStaleMinutes    = 30
	defaultFetchConcurrent = 10
	defaultHTTPTimeoutSec  = 20
	defaultUserAgent       = "feedmd/0.1"

	appDirName        = "feedmd"
	configFileName    = "config.toml"
	configPathEnvName = "XDG_CONFIG_HOME"
)

type Config struct {
	DBPath           string
	StaleAfter       time.Duration
	FetchConcurrency int
	RetentionDays    int
	HTTPTimeout      time.Duration
	UserAgent        string
	// RewriteImages routes article image URLs through the mirror and proxy
	// rules before Markdown is stored.
	RewriteImages bool
}

func Default(home string) Config {
	return Config{
		DBPath:           filepath.Join(home, ".local", "share", appDirName, "feedmd.db"),
		StaleAfter:       defaultStaleMinutes * time.Minute,
		FetchConcurrency: defaultFetchConcurrent,
		HTTPTimeout:      defaultHTTPTimeoutSec * time.Second,
		UserAgent:        defaultUserAgent,
		RewriteImages:    true,
	}
}

// LoadConfig layers defaults, the optional config file and FEEDMD_*
// environment overrides, in that order.
func LoadConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	cfg := Default(home)

	path, ok, err := findConfigPath(home)
	if err != nil {
		return Config{}, err
	}
	if ok {
		fc, err := loadFileConfig(path)
		if err != nil {
			return Config{}, err
		}
		fc.apply(&cfg)
	}
	applyEnvOverrides(&cfg, os.LookupEnv)
	return cfg, nil
}

type fileConfig struct {
	DBPath             *string `toml:"db_path"`
	StaleMinutes       *int    `toml:"stale_minutes"`
	FetchConcurrency   *int    `toml:"fetch_concurrency"`
	RetentionDays      *int    `toml:"retention_days"`
	HTTPTimeoutSeconds *int    `toml:"http_timeout_seconds"`
	UserAgent          *string `toml:"user_agent"`
	RewriteImages      *bool   `toml:"rewrite_images"`
}

func findConfigPath(home string) (string, bool, error) {
	var candidates []string
	if xdg := strings.TrimSpace(os.Getenv(configPathEnvName)); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, appDirName, configFileName))
	}
	candidates = append(candidates, filepath.Join(home, ".config", appDirName, configFileName))

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			return "", false, fmt.Errorf("read config path %q: %w", candidate, err)
		case info.IsDir():
			return "", false, fmt.Errorf("config path %q is a directory; expected a file", candidate)
		}
		return candidate, true, nil
	}
	return "", false, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid config file %q: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		unknown := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			unknown = append(unknown, key.String())
		}
		sort.Strings(unknown)
		return fileConfig{}, fmt.Errorf("invalid config file %q: unknown key(s): %s", path, strings.Join(unknown, ", "))
	}
	if err := fc.validate(); err != nil {
		return fileConfig{}, fmt.Errorf("invalid config file %q: %w", path, err)
	}
	return fc, nil
}

func (fc fileConfig) validate() error {
	switch {
	case fc.DBPath != nil && strings.TrimSpace(*fc.DBPath) == "":
		return errors.New("db_path must be non-empty when provided")
	case fc.StaleMinutes != nil && *fc.StaleMinutes <= 0:
		return errors.New("stale_minutes must be > 0")
	case fc.FetchConcurrency != nil && *fc.FetchConcurrency < 1:
		return errors.New("fetch_concurrency must be >= 1")
	case fc.RetentionDays != nil && *fc.RetentionDays < 0:
		return errors.New("retention_days must be >= 0")
	case fc.HTTPTimeoutSeconds != nil && *fc.HTTPTimeoutSeconds <= 0:
		return errors.New("http_timeout_seconds must be > 0")
	case fc.UserAgent != nil && strings.TrimSpace(*fc.UserAgent) == "":
		return errors.New("user_agent must be non-empty when provided")
	}
	return nil
}

func (fc fileConfig) apply(cfg *Config) {
	if fc.DBPath != nil {
		cfg.DBPath = *fc.DBPath
	}
	if fc.StaleMinutes != nil {
		cfg.StaleAfter = time.Duration(*fc.StaleMinutes) * time.Minute
	}
	if fc.FetchConcurrency != nil {
		cfg.FetchConcurrency = *fc.FetchConcurrency
	}
	if fc.RetentionDays != nil {
		cfg.RetentionDays = *fc.RetentionDays
	}
	if fc.HTTPTimeoutSeconds != nil {
		cfg.HTTPTimeout = time.Duration(*fc.HTTPTimeoutSeconds) * time.Second
	}
	if fc.UserAgent != nil {
		cfg.UserAgent = *fc.UserAgent
	}
	if fc.RewriteImages != nil {
		cfg.RewriteImages = *fc.RewriteImages
	}
}

type envOverride struct {
	name  string
	apply func(cfg *Config, v string)
}

// Invalid values are ignored and leave the previous layer in place.
var envOverrides = []envOverride{
	{"FEEDMD_DB_PATH", func(cfg *Config, v string) {
		cfg.DBPath = v
	}},
	{"FEEDMD_STALE_MINUTES", func(cfg *Config, v string) {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return
		}
		cfg.StaleAfter = time.Duration(n) * time.Minute
	}},
	{"FEEDMD_FETCH_CONCURRENCY", func(cfg *Config, v string) {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return
		}
		cfg.FetchConcurrency = n
	}},
	{"FEEDMD_RETENTION_DAYS", func(cfg *Config, v string) {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return
		}
		cfg.RetentionDays = n
	}},
	{"FEEDMD_HTTP_TIMEOUT_SECONDS", func(cfg *Config, v string) {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return
		}
		cfg.HTTPTimeout = time.Duration(n) * time.Second
	}},
	{"FEEDMD_USER_AGENT", func(cfg *Config, v string) {
		cfg.UserAgent = v
	}},
	{"FEEDMD_REWRITE_IMAGES", func(cfg *Config, v string) {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return
		}
		cfg.RewriteImages = b
	}},
}

func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) {
	for _, o := range envOverrides {
		v, ok := lookup(o.name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		o.apply(cfg, strings.TrimSpace(v))
	}
}
