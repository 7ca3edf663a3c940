package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/woow-admin/woow/internal/wpajax"
)

// Config holds everything woow needs to reach one WordPress site.
type Config struct {
	SiteURL          string
	AjaxURL          string
	RestURL          string
	Nonce            string
	NonceField       string
	RequestTimeout   time.Duration
	MaxRetries       int
	RetryBaseDelay   time.Duration
	MaxVisibleToasts int
	ProbeInterval    time.Duration
	LogFile          string
	LogLevel         string

	// Path is the resolved config file location, even when it did not exist.
	Path string
}

const (
	defaultConfigPath     = "~/.config/woow/config.toml"
	defaultSiteURL        = "http://127.0.0.1"
	defaultNonceField     = "nonce"
	defaultRequestTimeout = 30 * time.Second
	defaultMaxRetries     = 3
	defaultRetryBaseDelay = time.Second
	defaultMaxVisible     = 5
	defaultProbeInterval  = 15 * time.Second
	defaultLogFile        = "~/.local/state/woow/woow.log"
	defaultLogLevel       = "info"

	ajaxPath = "/wp-admin/admin-ajax.php"
	restPath = "/wp-json/mas-v2/v1/"
)

// Token environment variables, checked after the config nonce in this order.
var tokenEnv = []string{"WOOW_NONCE", "MAS_V2_NONCE", "WP_NONCE"}

// Default returns a Config populated with defaults.
func Default() Config {
	cfg := Config{
		SiteURL:          defaultSiteURL,
		NonceField:       defaultNonceField,
		RequestTimeout:   defaultRequestTimeout,
		MaxRetries:       defaultMaxRetries,
		RetryBaseDelay:   defaultRetryBaseDelay,
		MaxVisibleToasts: defaultMaxVisible,
		ProbeInterval:    defaultProbeInterval,
		LogFile:          mustExpand(defaultLogFile),
		LogLevel:         defaultLogLevel,
	}
	cfg.deriveURLs()
	return cfg
}

// Load locates and parses the woow config, falling back to defaults when missing.
// A .env file beside the config is loaded into the process environment first;
// variables that are already set keep their values.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(resolved), ".env")); err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.Path = resolved

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyEnv()
			cfg.deriveURLs()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		SiteURL          string `toml:"site_url"`
		AjaxURL          string `toml:"ajax_url"`
		RestURL          string `toml:"rest_url"`
		Nonce            string `toml:"nonce"`
		NonceField       string `toml:"nonce_field"`
		RequestTimeout   string `toml:"request_timeout"`
		MaxRetries       int    `toml:"max_retries"`
		RetryBaseDelay   string `toml:"retry_base_delay"`
		MaxVisibleToasts int    `toml:"max_visible_toasts"`
		ProbeInterval    string `toml:"probe_interval"`
		LogFile          string `toml:"log_file"`
		LogLevel         string `toml:"log_level"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.SiteURL); v != "" {
		cfg.SiteURL = v
	}
	cfg.AjaxURL = strings.TrimSpace(raw.AjaxURL)
	cfg.RestURL = strings.TrimSpace(raw.RestURL)
	cfg.Nonce = strings.TrimSpace(raw.Nonce)
	if v := strings.TrimSpace(raw.NonceField); v != "" {
		cfg.NonceField = v
	}
	if raw.MaxRetries > 0 {
		cfg.MaxRetries = raw.MaxRetries
	}
	if raw.MaxVisibleToasts > 0 {
		cfg.MaxVisibleToasts = raw.MaxVisibleToasts
	}
	if cfg.RequestTimeout, err = parseDuration("request_timeout", raw.RequestTimeout, defaultRequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RetryBaseDelay, err = parseDuration("retry_base_delay", raw.RetryBaseDelay, defaultRetryBaseDelay); err != nil {
		return Config{}, err
	}
	if cfg.ProbeInterval, err = parseDuration("probe_interval", raw.ProbeInterval, defaultProbeInterval); err != nil {
		return Config{}, err
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.ToLower(strings.TrimSpace(raw.LogLevel)); v != "" {
		cfg.LogLevel = v
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}

	cfg.applyEnv()
	cfg.deriveURLs()
	return cfg, nil
}

// Token returns a source that yields the config nonce or, failing that, the
// first non-empty token environment variable. The environment is read on each
// call so a refreshed nonce is picked up without a restart.
func (c Config) Token() wpajax.TokenSource {
	sources := []wpajax.TokenSource{wpajax.StaticToken(c.Nonce)}
	for _, name := range tokenEnv {
		sources = append(sources, func() string { return os.Getenv(name) })
	}
	return wpajax.FirstToken(sources...)
}

// SlogLevel maps LogLevel onto a slog level; unknown values yield Info.
func (c Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// applyEnv lets WOOW_* variables override URL settings.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("WOOW_SITE_URL")); v != "" {
		c.SiteURL = v
	}
	if v := strings.TrimSpace(os.Getenv("WOOW_AJAX_URL")); v != "" {
		c.AjaxURL = v
	}
	if v := strings.TrimSpace(os.Getenv("WOOW_REST_URL")); v != "" {
		c.RestURL = v
	}
}

// deriveURLs fills AjaxURL and RestURL from SiteURL when they are unset.
func (c *Config) deriveURLs() {
	site := strings.TrimRight(strings.TrimSpace(c.SiteURL), "/")
	if site == "" {
		site = defaultSiteURL
	}
	if !strings.Contains(site, "://") {
		site = "http://" + site
	}
	c.SiteURL = site
	if c.AjaxURL == "" {
		c.AjaxURL = joinURL(site, ajaxPath)
	}
	if c.RestURL == "" {
		c.RestURL = joinURL(site, restPath)
	}
}

func joinURL(base, path string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + path
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	// godotenv.Load never overwrites variables that are already set.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	if d <= 0 {
		return fallback, nil
	}
	return d, nil
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log_level: %w", err)
	}
	return level, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
