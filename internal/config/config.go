// Package config reads the server settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// DataBackend is "sqlite" or "memory".
	DataBackend  string
	SQLiteDBPath string

	// An empty AMQPURL keeps change notifications inside this process.
	AMQPURL      string
	AMQPExchange string

	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool

	GoogleOAuthClientID     string
	GoogleOAuthClientSecret string
	GoogleOAuthRedirectURL  string

	// Timezone names the zone "today" and the calendar are computed in.
	Timezone    string
	ViewIdleTTL time.Duration
	MaxViews    int

	// SignInRateLimit is attempts per minute per client IP.
	SignInRateLimit int

	LogLevel  string
	LogFormat string
}

// Load reads every setting, falling back to the default when a variable is
// unset or does not parse.
func Load() *Config {
	return &Config{
		Port: env("PORT", "8081", str),

		DataBackend:  env("DATA_BACKEND", "sqlite", str),
		SQLiteDBPath: env("SQLITE_DB_PATH", "./data/skillchisel.db", str),

		AMQPURL:      env("AMQP_URL", "", str),
		AMQPExchange: env("AMQP_EXCHANGE", "skillchisel.changes", str),

		SessionSecret: env("SESSION_SECRET", "", str),
		SessionTTL:    env("SESSION_TTL", 7*24*time.Hour, time.ParseDuration),
		SecureCookies: env("SECURE_COOKIES", false, strconv.ParseBool),

		GoogleOAuthClientID:     env("GOOGLE_OAUTH_CLIENT_ID", "", str),
		GoogleOAuthClientSecret: env("GOOGLE_OAUTH_CLIENT_SECRET", "", str),
		GoogleOAuthRedirectURL:  env("GOOGLE_OAUTH_REDIRECT_URL", "", str),

		Timezone:    env("TIMEZONE", "Local", str),
		ViewIdleTTL: env("VIEW_IDLE_TTL", 30*time.Minute, time.ParseDuration),
		MaxViews:    env("MAX_VIEWS", 1000, strconv.Atoi),

		SignInRateLimit: env("SIGNIN_RATE_LIMIT", 60, strconv.Atoi),

		LogLevel:  env("LOG_LEVEL", "info", str),
		LogFormat: env("LOG_FORMAT", "text", str),
	}
}

func str(s string) (string, error) { return s, nil }

func env[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

// GoogleEnabled reports whether federated Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleOAuthClientID != "" && c.GoogleOAuthClientSecret != "" && c.GoogleOAuthRedirectURL != ""
}

// Location resolves Timezone; "Local" and empty mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var p problems
	c.validateServer(&p)
	c.validateStorage(&p)
	c.validateSessions(&p)
	c.validateGoogle(&p)
	c.validateViews(&p)

	if len(p) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(p, "\n- "))
	}
	return nil
}

func (c *Config) validateServer(p *problems) {
	port, err := strconv.Atoi(c.Port)
	switch {
	case err != nil:
		p.addf("invalid port '%s': must be a number", c.Port)
	case port < 1 || port > 65535:
		p.addf("invalid port %d: must be between 1 and 65535", port)
	}
	if c.SignInRateLimit < 1 {
		p.addf("invalid sign-in rate limit %d: must be at least 1", c.SignInRateLimit)
	}
}

func (c *Config) validateStorage(p *problems) {
	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			p.addf("SQLite database path cannot be empty when using sqlite backend")
		}
	default:
		p.addf("invalid data backend '%s': must be one of [memory sqlite]", c.DataBackend)
	}

	if c.AMQPURL == "" {
		return
	}
	if u, err := url.Parse(c.AMQPURL); err != nil {
		p.addf("invalid AMQP URL '%s': %v", c.AMQPURL, err)
	} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
		p.addf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme)
	}
	if c.AMQPExchange == "" {
		p.addf("AMQP exchange name cannot be empty when AMQP URL is provided")
	}
}

func (c *Config) validateSessions(p *problems) {
	if len(c.SessionSecret) < 32 {
		p.addf("SESSION_SECRET must be at least 32 characters")
	}
	if c.SessionTTL < time.Minute {
		p.addf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL)
	}
}

// validateGoogle requires the three Google settings together.
func (c *Config) validateGoogle(p *problems) {
	set := 0
	for _, v := range []string{c.GoogleOAuthClientID, c.GoogleOAuthClientSecret, c.GoogleOAuthRedirectURL} {
		if v != "" {
			set++
		}
	}
	if set > 0 && set < 3 {
		p.addf("GOOGLE_OAUTH_CLIENT_ID, GOOGLE_OAUTH_CLIENT_SECRET and GOOGLE_OAUTH_REDIRECT_URL must be set together")
	}
	if c.GoogleOAuthRedirectURL != "" {
		if u, err := url.Parse(c.GoogleOAuthRedirectURL); err != nil || u.Scheme == "" || u.Host == "" {
			p.addf("invalid Google OAuth redirect URL '%s'", c.GoogleOAuthRedirectURL)
		}
	}
}

func (c *Config) validateViews(p *problems) {
	if _, err := c.Location(); err != nil {
		p.addf("invalid timezone '%s': %v", c.Timezone, err)
	}
	if c.ViewIdleTTL < time.Minute {
		p.addf("invalid view idle TTL %v: must be at least 1 minute", c.ViewIdleTTL)
	}
	if c.MaxViews < 1 {
		p.addf("invalid max views %d: must be at least 1", c.MaxViews)
	}
}
