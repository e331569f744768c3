package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Group    GroupConfig    `yaml:"group"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
	Backup   BackupConfig   `yaml:"backup"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Address       string   `yaml:"address"`
	Port          int      `yaml:"port"`
	AssetsDir     string   `yaml:"assets_dir"`
	ShutdownGrace Duration `yaml:"shutdown_grace"`
}

// StorageConfig selects the store backend and its location.
type StorageConfig struct {
	Backend string `yaml:"backend"` // file | pebble
	Path    string `yaml:"path"`
}

// GroupConfig provides the group record defaults used on first boot, before
// any update has been persisted.
type GroupConfig struct {
	Name  string `yaml:"name"`
	Image string `yaml:"image"`
}

// SecurityConfig holds the optional CORS allow-list and rate limit. Both are
// disabled unless configured.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// BackupConfig controls the scheduled document snapshots.
type BackupConfig struct {
	Enabled       bool      `yaml:"enabled"`
	Cron          string    `yaml:"cron"`
	Dir           string    `yaml:"dir"`
	MaxTotalBytes SizeBytes `yaml:"max_total_bytes"`
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 3000
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// SizeBytes is a byte count, unmarshaled from human-friendly strings like
// "64MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration wraps time.Duration, parsed from strings like "5s" or plain
// numbers interpreted as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
