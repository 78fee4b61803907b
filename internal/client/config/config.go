package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config holds runtime settings for the mediadrop client.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration

	TransferTimeout time.Duration
	FallbackTimeout time.Duration

	ThumbnailWait   time.Duration
	CompressTimeout time.Duration
	Compress        bool
	Quality         float64
	VideoCodec      string
	Container       string
	KeepAudio       bool

	HistoryDB string
	LogLevel  string
	LogFile   string
}

var ErrInvalidQuality = errors.New("quality must be in (0, 1]")

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 30 * time.Second
	c.TransferTimeout = 5 * time.Minute
	c.FallbackTimeout = 5 * time.Minute
	c.ThumbnailWait = 30 * time.Second
	c.CompressTimeout = 30 * time.Minute
	c.Compress = false
	c.Quality = 0.8
	c.VideoCodec = "libx264"
	c.Container = "mp4"
	c.KeepAudio = true
	c.HistoryDB = "mediadrop.db"
	c.LogLevel = "info"
	c.LogFile = "mediadrop.log"
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid server url %q", c.ServerURL)
	}
	if c.Quality <= 0 || c.Quality > 1 {
		return ErrInvalidQuality
	}
	if c.HistoryDB == "" {
		return errors.New("history db path is empty")
	}
	return nil
}

// Load builds a Config from defaults, then the JSON file named by -c/-config
// (if any), then command-line flags. args excludes the program name.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
