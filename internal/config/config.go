package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SettingsEnv names the settings file when no flag is given.
const SettingsEnv = "INDUCTION_SETTINGS"

type Config struct {
	HTTPAddr  string `yaml:"http_addr"`
	PublicURL string `yaml:"public_url"`

	Forum   ForumConfig   `yaml:"forum"`
	SSO     SSOConfig     `yaml:"sso"`
	Session SessionConfig `yaml:"session"`

	DefinitionsDir     string `yaml:"definitions_dir"` // empty: bundled definitions
	CacheDefinitions   bool   `yaml:"cache_definitions"`
	PrecheckMembership bool   `yaml:"precheck_membership"`

	CORSOrigins []string `yaml:"cors_origins"`
	LogLevel    string   `yaml:"log_level"` // debug|info|warn|error
}

type ForumConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	APIUsername string        `yaml:"api_username"`
	Timeout     time.Duration `yaml:"timeout"`
}

type SSOConfig struct {
	Secret string `yaml:"secret"`
}

type SessionConfig struct {
	Secret string        `yaml:"secret"` // empty: derived from the SSO secret
	TTL    time.Duration `yaml:"ttl"`
}

func defaults() Config {
	return Config{
		HTTPAddr: ":8080",
		Forum:    ForumConfig{Timeout: 10 * time.Second},
		Session:  SessionConfig{TTL: 8 * time.Hour},
		LogLevel: "info",
	}
}

// Load reads the settings file at path, applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, fmt.Errorf("no settings file: pass -settings or set %s", SettingsEnv)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read settings: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parse(data []byte) (Config, error) {
	cfg := defaults()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse settings: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = envOr("INDUCTION_HTTP_ADDR", cfg.HTTPAddr)
	cfg.PublicURL = envOr("INDUCTION_PUBLIC_URL", cfg.PublicURL)
	cfg.Forum.BaseURL = envOr("INDUCTION_FORUM_URL", cfg.Forum.BaseURL)
	cfg.Forum.APIKey = envOr("INDUCTION_FORUM_API_KEY", cfg.Forum.APIKey)
	cfg.Forum.APIUsername = envOr("INDUCTION_FORUM_API_USERNAME", cfg.Forum.APIUsername)
	cfg.SSO.Secret = envOr("INDUCTION_SSO_SECRET", cfg.SSO.Secret)
	cfg.Session.Secret = envOr("INDUCTION_SESSION_SECRET", cfg.Session.Secret)
	cfg.DefinitionsDir = envOr("INDUCTION_DEFINITIONS_DIR", cfg.DefinitionsDir)
	cfg.CacheDefinitions = envBool("INDUCTION_CACHE_DEFINITIONS", cfg.CacheDefinitions)
	cfg.PrecheckMembership = envBool("INDUCTION_PRECHECK_MEMBERSHIP", cfg.PrecheckMembership)
	cfg.CORSOrigins = csvOr("INDUCTION_CORS_ORIGINS", cfg.CORSOrigins)
	cfg.LogLevel = envOr("INDUCTION_LOG_LEVEL", cfg.LogLevel)
}

// SecureCookies is true when the portal is served over https.
func (c Config) SecureCookies() bool {
	return strings.HasPrefix(strings.ToLower(c.PublicURL), "https://")
}

// CallbackURL is where the forum sends the SSO reply.
func (c Config) CallbackURL() string {
	return strings.TrimRight(c.PublicURL, "/") + "/sso/callback"
}

// SlogLevel maps LogLevel onto slog; unknown values fall back to info.
func (c Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func csvOr(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func absoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
