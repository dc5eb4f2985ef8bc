package internal

import (
	"fmt"
	"log/slog"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Site   SiteConfig        `yaml:"site"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Site.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SiteConfig describes where the portfolio site's data lives.
//
// BaseURL is the feed base directory (the socials page directory on the
// site); IndexURL and StoriesURL point at the feed and stories indexes and
// default to data.json / stories.json under the base. When Path is set, the
// site is read from that local directory instead of over HTTP, served
// statically under /site, and watched for changes.
type SiteConfig struct {
	BaseURL    string `yaml:"base_url"`
	IndexURL   string `yaml:"index_url"`
	StoriesURL string `yaml:"stories_url"`
	Path       string `yaml:"path"`

	Categories  []string `yaml:"categories"`
	PerCategory int      `yaml:"per_category"`
}

// Validate validates the site configuration and fills derived defaults.
func (c *SiteConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
	); err != nil {
		return err
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("site: invalid base_url: %w", err)
	}
	if c.IndexURL == "" {
		u, err := base.Parse("data.json")
		if err != nil {
			return fmt.Errorf("site: derive index_url: %w", err)
		}
		c.IndexURL = u.String()
	}
	if c.StoriesURL == "" {
		u, err := base.Parse("stories.json")
		if err != nil {
			return fmt.Errorf("site: derive stories_url: %w", err)
		}
		c.StoriesURL = u.String()
	}
	if len(c.Categories) == 0 {
		c.Categories = []string{"thought", "bookmark", "update"}
	}
	if c.PerCategory < 1 {
		c.PerCategory = 3
	}
	return nil
}

// SQLiteConfig holds the state database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Site: SiteConfig{
			BaseURL: "http://localhost:8080/site/pages/socials/",
		},
		SQLite: SQLiteConfig{
			Path: "./blades.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
