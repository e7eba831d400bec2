package config

import (
	"fmt"
	"strings"
)

// Issue is one problem found in the settings.
type Issue struct {
	Field   string
	Message string
}

// ValidationError reports every problem found, not just the first.
type ValidationError struct {
	Issues []Issue
}

func (err *ValidationError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return ""
	}
	parts := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return fmt.Sprintf("invalid settings: %s", strings.Join(parts, "; "))
}

type issueCollector struct {
	issues []Issue
}

func (c *issueCollector) add(field, message string) {
	c.issues = append(c.issues, Issue{Field: field, Message: message})
}

func (c *issueCollector) result() error {
	if len(c.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: c.issues}
}

func Validate(cfg Config) error {
	c := &issueCollector{}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		c.add("http_addr", "is required")
	}
	if !absoluteHTTP(cfg.PublicURL) {
		c.add("public_url", "must be an absolute http(s) URL")
	}
	if !absoluteHTTP(cfg.Forum.BaseURL) {
		c.add("forum.base_url", "must be an absolute http(s) URL")
	}
	if cfg.Forum.APIKey == "" {
		c.add("forum.api_key", "is required")
	}
	if cfg.Forum.APIUsername == "" {
		c.add("forum.api_username", "is required")
	}
	if cfg.Forum.Timeout <= 0 {
		c.add("forum.timeout", "must be positive")
	}
	if cfg.SSO.Secret == "" {
		c.add("sso.secret", "is required")
	}
	if cfg.Session.TTL <= 0 {
		c.add("session.ttl", "must be positive")
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		c.add("log_level", fmt.Sprintf("unknown level %q", cfg.LogLevel))
	}
	return c.result()
}
