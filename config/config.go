package config

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	// Messenger configuration
	PageAccessToken string        `env:"PAGE_ACCESS_TOKEN,required"`
	GraphAPIURL     string        `env:"GRAPH_API_URL,default=https://graph.facebook.com"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT,default=10s"`

	// Webhook configuration
	VerifyToken string `env:"WEBHOOK_VERIFY_TOKEN,default=webhook_verify_token"`
	EchoReplies bool   `env:"ECHO_REPLIES,default=false"`

	// Server configuration
	Port string `env:"PORT,default=8080"`

	// Event archive (disabled when MongoURI is empty)
	MongoURI     string `env:"MONGO_URI"`
	DatabaseName string `env:"MONGO_DB_NAME,default=messenger_bot"`

	// Admin routes (disabled when AdminPasswordHash is empty)
	AdminUser         string `env:"ADMIN_USER,default=admin"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
	CORSOrigins       string `env:"CORS_ORIGINS,default=http://localhost:5173"`

	// Logging
	LogFormat string `env:"LOG_FORMAT,default=json"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
}

// LoadConfig reads the configuration from the process environment.
func LoadConfig(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, cfg, lookuper); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	if err := validateOrigins(cfg.CORSOrigins); err != nil {
		return nil, fmt.Errorf("CORS_ORIGINS: %w", err)
	}
	return cfg, nil
}

// validateOrigins accepts "*" on its own or a comma separated list of
// scheme://host[:port] origins, the forms fiber's CORS middleware accepts.
func validateOrigins(origins string) error {
	if strings.TrimSpace(origins) == "*" {
		return nil
	}
	for _, origin := range strings.Split(origins, ",") {
		origin = strings.TrimSpace(origin)
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" ||
			(u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
			return fmt.Errorf("invalid origin %q", origin)
		}
	}
	return nil
}

// ArchiveEnabled reports whether inbound events should be written to MongoDB.
func (c *Config) ArchiveEnabled() bool {
	return c.MongoURI != ""
}

// CORSAllowCredentials reports whether browsers may send credentials to the
// admin routes. Credentials are never allowed together with a wildcard origin.
func (c *Config) CORSAllowCredentials() bool {
	return strings.TrimSpace(c.CORSOrigins) != "*"
}

// AdminEnabled reports whether the admin routes should be mounted.
func (c *Config) AdminEnabled() bool {
	return c.AdminPasswordHash != ""
}
