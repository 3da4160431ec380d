package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Subsonic  SubsonicConfig  `toml:"subsonic"`
	AzuraCast AzuraCastConfig `toml:"azuracast"`
	LastFM    LastFMConfig    `toml:"lastfm"`
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Sync      SyncConfig      `toml:"sync"`
}

// LogConfig controls the default log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// SubsonicConfig contains the library server address, credentials and transport settings.
type SubsonicConfig struct {
	URL            string   `toml:"url"`
	Username       string   `toml:"username"`
	Password       string   `toml:"password"`
	APIKey         string   `toml:"api_key"`
	ClientName     string   `toml:"client_name"`
	Version        string   `toml:"version"`
	RateLimit      int      `toml:"rate_limit"`
	HTTP2          bool     `toml:"http2"`
	ConnectTimeout Duration `toml:"connect_timeout"`
	ReadTimeout    Duration `toml:"read_timeout"`
	WriteTimeout   Duration `toml:"write_timeout"`
	PoolTimeout    Duration `toml:"pool_timeout"`
}

// AzuraCastConfig contains AzuraCast station credentials.
type AzuraCastConfig struct {
	URL       string `toml:"url"`
	APIKey    string `toml:"api_key"`
	StationID string `toml:"station_id"`
}

// LastFMConfig contains Last.fm API credentials used by the metadata enhancer.
type LastFMConfig struct {
	APIKey string `toml:"api_key"`
	Secret string `toml:"secret"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
//
// Feeds embed Subsonic credentials in their stream URLs, so a non-empty Token is required from clients
// as ?token= or a bearer header.
type ServerConfig struct {
	Host  string `toml:"host"`
	Port  int    `toml:"port"`
	Token string `toml:"token"`
}

// SyncConfig contains settings for playlist sync jobs.
type SyncConfig struct {
	Workers     int     `toml:"workers"`
	RateLimit   float64 `toml:"rate_limit"`
	PlaylistDir string  `toml:"playlist_dir"`
	DownloadDir string  `toml:"download_dir"`
}

// Duration is a [time.Duration] that decodes from TOML strings such as "5s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: bad duration %q", ErrInvalidConfig, text)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
// An existing file is replaced only when overwrite is set.
func CreateConfigFile(path string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidArgument, path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides credentials from the environment, so secrets can stay out of config.toml.
//
// Recognized variables: SUBSONIC_URL, SUBSONIC_USERNAME, SUBSONIC_PASSWORD, SUBSONIC_API_KEY,
// AZURACAST_URL, AZURACAST_API_KEY, LASTFM_API_KEY, SONICSYNC_SERVER_TOKEN.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}

	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Subsonic.URL, "SUBSONIC_URL")
	set(&c.Subsonic.Username, "SUBSONIC_USERNAME")
	set(&c.Subsonic.Password, "SUBSONIC_PASSWORD")
	set(&c.Subsonic.APIKey, "SUBSONIC_API_KEY")
	set(&c.AzuraCast.URL, "AZURACAST_URL")
	set(&c.AzuraCast.APIKey, "AZURACAST_API_KEY")
	set(&c.LastFM.APIKey, "LASTFM_API_KEY")
	set(&c.Server.Token, "SONICSYNC_SERVER_TOKEN")
}
