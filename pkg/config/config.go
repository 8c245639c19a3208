package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Harvest modes
const (
	ModeSchedule = "schedule"
	ModeRecent   = "recent"
	ModeFormat   = "format"
)

// Config holds all configuration options for the replay harvester
type Config struct {
	// Remote endpoints
	Showdown ShowdownConfig `yaml:"showdown" json:"showdown"`

	// Per-job intervals
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`

	// What to harvest
	Harvest HarvestConfig `yaml:"harvest" json:"harvest"`

	// Log body fetching
	Resolver ResolverConfig `yaml:"resolver" json:"resolver"`

	// Room membership discovery
	Presence PresenceConfig `yaml:"presence" json:"presence"`

	// Database and budget
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ShowdownConfig holds the server endpoints and HTTP settings
type ShowdownConfig struct {
	ReplayURL      string        `yaml:"replay_url" json:"replay_url"`
	LadderURL      string        `yaml:"ladder_url" json:"ladder_url"`
	WebsocketURL   string        `yaml:"websocket_url" json:"websocket_url"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// ScheduleConfig holds the interval of every periodic job. A zero interval
// disables the job.
type ScheduleConfig struct {
	Recent   time.Duration `yaml:"recent" json:"recent"`
	Formats  time.Duration `yaml:"formats" json:"formats"`
	Ladders  time.Duration `yaml:"ladders" json:"ladders"`
	Rooms    time.Duration `yaml:"rooms" json:"rooms"`
	Members  time.Duration `yaml:"members" json:"members"`
	Resolver time.Duration `yaml:"resolver" json:"resolver"`
	Tick     time.Duration `yaml:"tick" json:"tick"`
}

// HarvestConfig holds the tracked formats and rooms
type HarvestConfig struct {
	Mode      string        `yaml:"mode" json:"mode"`
	Formats   []string      `yaml:"formats" json:"formats"`
	Rooms     []string      `yaml:"rooms" json:"rooms"`
	MaxPages  int           `yaml:"max_pages" json:"max_pages"`
	LadderTop int           `yaml:"ladder_top" json:"ladder_top"`
	Wait      time.Duration `yaml:"wait" json:"wait"`
}

// ResolverConfig holds log fetching settings
type ResolverConfig struct {
	MinDelay time.Duration `yaml:"min_delay" json:"min_delay"`
}

// PresenceConfig holds username discovery settings
type PresenceConfig struct {
	Retries    int           `yaml:"retries" json:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
	Wait       time.Duration `yaml:"wait" json:"wait"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	Path         string `yaml:"path" json:"path"`
	MaxSize      int64  `yaml:"max_size" json:"max_size"`
	SnapshotPath string `yaml:"snapshot_path" json:"snapshot_path"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultFormats are the formats tracked when none are configured
var DefaultFormats = []string{
	"[Gen 8] Random Battle",
	"[Gen 9] OU",
	"[Gen 9] Random Battle",
	"[Gen 9] VGC 2025 Reg G",
	"[Gen 9] National Dex",
}

// DefaultRooms are the chat rooms sampled for usernames
var DefaultRooms = []string{
	"lobby",
	"tournaments",
	"overused",
	"randombattles",
	"help",
	"vgc",
	"nationaldexou",
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Showdown: ShowdownConfig{
			ReplayURL:      "https://replay.pokemonshowdown.com",
			LadderURL:      "https://pokemonshowdown.com/ladder",
			WebsocketURL:   "wss://sim3.psim.us/showdown/websocket",
			UserAgent:      "replayscraper/1.0 (+https://github.com/replayscraper)",
			RequestTimeout: 30 * time.Second,
		},
		Schedule: ScheduleConfig{
			Recent:   15 * time.Minute,
			Formats:  6 * time.Hour,
			Ladders:  3 * time.Hour,
			Rooms:    time.Hour,
			Members:  2 * time.Hour,
			Resolver: 5 * time.Second,
			Tick:     time.Second,
		},
		Harvest: HarvestConfig{
			Mode:      ModeSchedule,
			Formats:   append([]string(nil), DefaultFormats...),
			Rooms:     append([]string(nil), DefaultRooms...),
			MaxPages:  100,
			LadderTop: 100,
			Wait:      1000 * time.Second,
		},
		Resolver: ResolverConfig{
			MinDelay: 50 * time.Millisecond,
		},
		Presence: PresenceConfig{
			Retries:    7,
			RetryDelay: time.Second,
			Wait:       15 * time.Second,
		},
		Storage: StorageConfig{
			Path:         "logs.db",
			MaxSize:      10_000_000_000,
			SnapshotPath: "pending.json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9108",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("REPLAYSCRAPER_REPLAY_URL"); v != "" {
		c.Showdown.ReplayURL = v
	}
	if v := os.Getenv("REPLAYSCRAPER_LADDER_URL"); v != "" {
		c.Showdown.LadderURL = v
	}
	if v := os.Getenv("REPLAYSCRAPER_WEBSOCKET_URL"); v != "" {
		c.Showdown.WebsocketURL = v
	}
	if v := os.Getenv("REPLAYSCRAPER_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("REPLAYSCRAPER_MAX_SIZE"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("REPLAYSCRAPER_MAX_SIZE: %w", err))
		} else {
			c.Storage.MaxSize = size
		}
	}
	if v := os.Getenv("REPLAYSCRAPER_MODE"); v != "" {
		c.Harvest.Mode = v
	}
	if v := os.Getenv("REPLAYSCRAPER_FORMATS"); v != "" {
		c.Harvest.Formats = splitList(v)
	}
	if v := os.Getenv("REPLAYSCRAPER_ROOMS"); v != "" {
		c.Harvest.Rooms = splitList(v)
	}
	if v := os.Getenv("REPLAYSCRAPER_MIN_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("REPLAYSCRAPER_MIN_DELAY: %w", err))
		} else {
			c.Resolver.MinDelay = d
		}
	}
	if v := os.Getenv("REPLAYSCRAPER_METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("REPLAYSCRAPER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("REPLAYSCRAPER_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

// splitList splits a ';'-separated list. Commas cannot be used since format
// names may contain them.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		"replayscraper.yaml",
		".replayscraper.yaml",
		".replayscraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "replayscraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".replayscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Showdown.ReplayURL == "" {
		errs = append(errs, errors.New("replay URL is required"))
	}
	if c.Showdown.LadderURL == "" {
		errs = append(errs, errors.New("ladder URL is required"))
	}
	if c.Showdown.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	intervals := map[string]time.Duration{
		"recent":   c.Schedule.Recent,
		"formats":  c.Schedule.Formats,
		"ladders":  c.Schedule.Ladders,
		"rooms":    c.Schedule.Rooms,
		"members":  c.Schedule.Members,
		"resolver": c.Schedule.Resolver,
	}
	for name, d := range intervals {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s interval cannot be negative", name))
		}
	}
	if c.Schedule.Tick <= 0 {
		errs = append(errs, errors.New("scheduler tick must be positive"))
	}

	switch c.Harvest.Mode {
	case ModeSchedule:
		if c.Schedule.Resolver <= 0 {
			errs = append(errs, errors.New("resolver interval must be positive in schedule mode"))
		}
	case ModeRecent, ModeFormat:
	default:
		errs = append(errs, fmt.Errorf("invalid harvest mode %q", c.Harvest.Mode))
	}
	if c.Harvest.MaxPages <= 0 {
		errs = append(errs, errors.New("max pages must be positive"))
	}
	if c.Harvest.LadderTop < 0 {
		errs = append(errs, errors.New("ladder top cannot be negative"))
	}

	if c.Resolver.MinDelay <= 0 {
		errs = append(errs, errors.New("resolver min delay must be positive"))
	}
	if c.Presence.Retries < 1 {
		errs = append(errs, errors.New("presence retries must be at least 1"))
	}

	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage path is required"))
	}
	if c.Storage.MaxSize <= 0 {
		errs = append(errs, errors.New("storage max size must be positive"))
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, errors.New("metrics listen address is required when metrics are enabled"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if path, ok := flags["db"].(string); ok && path != "" {
		c.Storage.Path = path
	}
	if size, ok := flags["max-size"].(int64); ok && size > 0 {
		c.Storage.MaxSize = size
	}
	if mode, ok := flags["mode"].(string); ok && mode != "" {
		c.Harvest.Mode = mode
	}
	if wait, ok := flags["wait"].(time.Duration); ok && wait > 0 {
		c.Harvest.Wait = wait
	}
	if delay, ok := flags["min-delay"].(time.Duration); ok && delay > 0 {
		c.Resolver.MinDelay = delay
	}
	if enabled, ok := flags["metrics"].(bool); ok {
		c.Metrics.Enabled = enabled
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".replayscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
