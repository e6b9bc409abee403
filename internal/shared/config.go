package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	HTTP       HTTPConfig       `toml:"http"`
	Deezer     DeezerConfig     `toml:"deezer"`
	Spotify    SpotifyConfig    `toml:"spotify"`
	Filter     FilterConfig     `toml:"filter"`
	Collection CollectionConfig `toml:"collection"`
	Output     OutputConfig     `toml:"output"`
	Log        LogConfig        `toml:"log"`
}

// HTTPConfig controls the shared transport used by every catalog client.
type HTTPConfig struct {
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	MaxRetries        int     `toml:"max_retries"`
	BackoffSeconds    float64 `toml:"backoff_seconds"`
	RetryStatuses     []int   `toml:"retry_statuses"`
	UserAgent         string  `toml:"user_agent"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c HTTPConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffSeconds * float64(time.Second))
}

// DeezerConfig contains Deezer API settings. Deezer needs no credentials.
type DeezerConfig struct {
	APIURL             string `toml:"api_url"`
	SearchLimit        int    `toml:"search_limit"`
	PageSize           int    `toml:"page_size"`
	DiscographyDelayMS int    `toml:"discography_delay_ms"`
	PlaylistDelayMS    int    `toml:"playlist_delay_ms"`
}

// SpotifyConfig contains Spotify API credentials and settings.
type SpotifyConfig struct {
	APIURL             string `toml:"api_url"`
	TokenURL           string `toml:"token_url"`
	ClientID           string `toml:"client_id"`
	ClientSecret       string `toml:"client_secret"`
	CredentialsPath    string `toml:"credentials_path"`
	SearchLimit        int    `toml:"search_limit"`
	PageSize           int    `toml:"page_size"`
	DiscographyDelayMS int    `toml:"discography_delay_ms"`
	PlaylistDelayMS    int    `toml:"playlist_delay_ms"`
}

// FilterConfig selects which record types survive filtering.
type FilterConfig struct {
	AllowedTypes  []string `toml:"allowed_types"`
	IncludeAll    bool     `toml:"include_all"`
	PlaylistTypes []string `toml:"playlist_types"`
}

// CollectionConfig locates and tunes the owned-collection index.
type CollectionConfig struct {
	DatabasePath           string  `toml:"database_path"`
	LibraryPath            string  `toml:"library_path"`
	FuzzyThreshold         float64 `toml:"fuzzy_threshold"`
	BloomFalsePositiveRate float64 `toml:"bloom_false_positive_rate"`
	CacheSize              int     `toml:"cache_size"`
}

// OutputConfig selects the output sink and rendering.
type OutputConfig struct {
	Mode   string `toml:"mode"`
	Format string `toml:"format"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

const (
	OutputStdout    = "stdout"
	OutputClipboard = "clipboard"

	FormatURLs = "urls"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var recordTypeNames = []string{"album", "ep", "single", "compilation", "unknown"}

// Delay converts a millisecond setting to a [time.Duration].
func Delay(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values absent from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
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

// DefaultConfigPath returns the per-user config location, e.g. ~/.config/deemixkit/config.toml.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "deemixkit", "config.toml")
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	path = ExpandPath(path)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.HTTP.TimeoutSeconds <= 0:
		return fmt.Errorf("%w: http.timeout_seconds must be positive", ErrInvalidConfig)
	case c.HTTP.MaxRetries < 0:
		return fmt.Errorf("%w: http.max_retries must not be negative", ErrInvalidConfig)
	case c.HTTP.BackoffSeconds < 0:
		return fmt.Errorf("%w: http.backoff_seconds must not be negative", ErrInvalidConfig)
	case c.HTTP.RequestsPerSecond < 0:
		return fmt.Errorf("%w: http.requests_per_second must not be negative", ErrInvalidConfig)
	case c.Collection.FuzzyThreshold <= 0 || c.Collection.FuzzyThreshold > 1:
		return fmt.Errorf("%w: collection.fuzzy_threshold must be in (0, 1]", ErrInvalidConfig)
	case c.Collection.BloomFalsePositiveRate <= 0 || c.Collection.BloomFalsePositiveRate >= 1:
		return fmt.Errorf("%w: collection.bloom_false_positive_rate must be in (0, 1)", ErrInvalidConfig)
	}

	for _, status := range c.HTTP.RetryStatuses {
		if status < 100 || status > 599 {
			return fmt.Errorf("%w: http.retry_statuses contains %d", ErrInvalidConfig, status)
		}
	}

	for _, t := range append(slices.Clone(c.Filter.AllowedTypes), c.Filter.PlaylistTypes...) {
		if !slices.Contains(recordTypeNames, t) {
			return fmt.Errorf("%w: unknown record type %q", ErrInvalidConfig, t)
		}
	}

	if c.Output.Mode != OutputStdout && c.Output.Mode != OutputClipboard {
		return fmt.Errorf("%w: output.mode must be %q or %q", ErrInvalidConfig, OutputStdout, OutputClipboard)
	}

	switch c.Output.Format {
	case FormatURLs, FormatJSON, FormatCSV:
	default:
		return fmt.Errorf("%w: output.format %q", ErrInvalidConfig, c.Output.Format)
	}

	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}
