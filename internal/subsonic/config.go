package subsonic

import (
	"fmt"
	"strings"

	"github.com/desertthunder/sonicsync/internal/shared"
)

const (
	DefaultClientName = "sonicsync"
	DefaultVersion    = "1.16.1"
)

// Config identifies a Subsonic server and the credentials used against it.
//
// Either Password or APIKey must be set. APIKey takes precedence when both are present.
type Config struct {
	URL        string
	Username   string
	Password   string
	APIKey     string
	ClientName string // sent as c, defaults to [DefaultClientName]
	Version    string // sent as v, defaults to [DefaultVersion]
}

// NewConfig builds a Config from the application's [shared.SubsonicConfig].
func NewConfig(sc shared.SubsonicConfig) Config {
	return Config{
		URL:        sc.URL,
		Username:   sc.Username,
		Password:   sc.Password,
		APIKey:     sc.APIKey,
		ClientName: sc.ClientName,
		Version:    sc.Version,
	}
}

// Validate reports whether the configuration can be used to build a [Client].
//
// Missing credentials are reported as [shared.ErrMissingCredentials], everything else as [shared.ErrInvalidConfig].
func (c Config) Validate() error {
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("%w: url must start with http:// or https://, got %q", shared.ErrInvalidConfig, c.URL)
	}
	if strings.TrimSpace(c.Username) == "" {
		return fmt.Errorf("%w: username is required", shared.ErrInvalidConfig)
	}
	if c.Password == "" && c.APIKey == "" {
		return fmt.Errorf("%w: password or api key is required", shared.ErrMissingCredentials)
	}
	return nil
}

// UsesAPIKey reports whether requests authenticate with u and k instead of a salted token.
func (c Config) UsesAPIKey() bool {
	return c.APIKey != ""
}

// Warnings returns non-fatal problems with the configuration.
func (c Config) Warnings() []string {
	var warnings []string
	if strings.HasPrefix(c.URL, "http://") {
		warnings = append(warnings, "server url is not https, credentials are sent in cleartext")
	}
	return warnings
}

func (c Config) withDefaults() Config {
	c.URL = strings.TrimRight(c.URL, "/")
	if c.ClientName == "" {
		c.ClientName = DefaultClientName
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	return c
}
