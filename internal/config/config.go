// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"firestige.xyz/linkprobe/internal/core"
)

// EnvPrefix prefixes environment overrides, e.g. LINKPROBE_ARP_TIMEOUT=2s.
const EnvPrefix = "LINKPROBE"

// Transport backends.
const (
	BackendAFPacket = "afpacket"
	BackendPacket   = "packet"
)

// Next-hop policies.
const (
	NextHopRouter = "router"
	NextHopAuto   = "auto"
)

// Config is the complete runtime configuration of one run.
type Config struct {
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`
	ARP       ARPConfig       `mapstructure:"arp" yaml:"arp"`
	IPv4      IPv4Config      `mapstructure:"ipv4" yaml:"ipv4"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level      string        `mapstructure:"level" yaml:"level"`
	Pattern    string        `mapstructure:"pattern" yaml:"pattern"`
	TimeFormat string        `mapstructure:"time_format" yaml:"time_format"`
	Caller     bool          `mapstructure:"caller" yaml:"caller"`
	File       LogFileConfig `mapstructure:"file" yaml:"file"`

	// Output replaces stderr; tests only.
	Output io.Writer `mapstructure:"-" yaml:"-"`
}

// LogFileConfig configures the rotated file output.
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// ─── Transport ───

// TransportConfig selects and tunes the raw link-layer socket.
type TransportConfig struct {
	Backend     string        `mapstructure:"backend" yaml:"backend"`
	PollTimeout time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`
	MaxFrame    int           `mapstructure:"max_frame" yaml:"max_frame"` // bytes incl. Ethernet header
	ARPFilter   bool          `mapstructure:"arp_filter" yaml:"arp_filter"`
}

// ─── ARP ───

// ARPConfig bounds and tightens the request/reply exchange.
type ARPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`             // 0 = wait forever
	WatchTimeout time.Duration `mapstructure:"watch_timeout" yaml:"watch_timeout"` // 0 = wait forever
	StrictMatch  bool          `mapstructure:"strict_match" yaml:"strict_match"`
}

// ─── IPv4 ───

// IPv4Config holds the fixed fields of the emitted datagram.
type IPv4Config struct {
	TTL            int `mapstructure:"ttl" yaml:"ttl"`
	Protocol       int `mapstructure:"protocol" yaml:"protocol"`
	Identification int `mapstructure:"identification" yaml:"identification"`
	TOS            int `mapstructure:"tos" yaml:"tos"`
}

// ─── Session ───

// SessionConfig controls initiator orchestration.
type SessionConfig struct {
	NextHop string `mapstructure:"next_hop" yaml:"next_hop"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen   string `mapstructure:"listen" yaml:"listen"`
	Path     string `mapstructure:"path" yaml:"path"`
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level":        "log.level",
	"backend":          "transport.backend",
	"arp-filter":       "transport.arp_filter",
	"timeout":          "arp.timeout",
	"watch-timeout":    "arp.watch_timeout",
	"strict":           "arp.strict_match",
	"next-hop":         "session.next_hop",
	"ttl":              "ipv4.ttl",
	"metrics":          "metrics.enabled",
	"metrics-listen":   "metrics.listen",
	"metrics-textfile": "metrics.textfile",
}

// Load builds the configuration from defaults, an optional YAML file,
// LINKPROBE_* environment variables and explicitly set flags, in increasing
// order of precedence. path may be empty and flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := Load("", nil)
	if err != nil {
		panic(err) // defaults must validate
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pattern", "%time [%level] %field %msg\n")
	v.SetDefault("log.time_format", "2006-01-02 15:04:05.000")
	v.SetDefault("log.caller", false)
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "/var/log/linkprobe/linkprobe.log")
	v.SetDefault("log.file.max_size_mb", 10)
	v.SetDefault("log.file.max_backups", 3)
	v.SetDefault("log.file.max_age_days", 7)
	v.SetDefault("log.file.compress", true)

	// Transport defaults
	v.SetDefault("transport.backend", BackendAFPacket)
	v.SetDefault("transport.poll_timeout", "100ms")
	v.SetDefault("transport.max_frame", 1514)
	v.SetDefault("transport.arp_filter", false)

	// ARP defaults
	v.SetDefault("arp.timeout", "5s")
	v.SetDefault("arp.watch_timeout", "0s")
	v.SetDefault("arp.strict_match", true)

	// IPv4 defaults
	v.SetDefault("ipv4.ttl", 64)
	v.SetDefault("ipv4.protocol", int(core.ProtocolTCP))
	v.SetDefault("ipv4.identification", 4)
	v.SetDefault("ipv4.tos", 0)

	// Session defaults
	v.SetDefault("session.next_hop", NextHopRouter)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "127.0.0.1:9464")
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.textfile", "")
}

// Validate checks value ranges and enumerations.
func (cfg *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true,
	}
	if !validLevels[strings.ToLower(cfg.Log.Level)] {
		return invalid("log.level %q (must be trace/debug/info/warn/error)", cfg.Log.Level)
	}

	switch cfg.Transport.Backend {
	case BackendAFPacket, BackendPacket:
	default:
		return invalid("transport.backend %q (must be %s or %s)", cfg.Transport.Backend, BackendAFPacket, BackendPacket)
	}
	if cfg.Transport.PollTimeout <= 0 {
		return invalid("transport.poll_timeout must be positive, got %s", cfg.Transport.PollTimeout)
	}
	minFrame := core.EthernetHeaderLen + core.IPv4HeaderLen
	if cfg.Transport.MaxFrame < minFrame || cfg.Transport.MaxFrame > 65535 {
		return invalid("transport.max_frame %d out of range [%d, 65535]", cfg.Transport.MaxFrame, minFrame)
	}

	if cfg.ARP.Timeout < 0 || cfg.ARP.WatchTimeout < 0 {
		return invalid("arp timeouts must not be negative")
	}

	if cfg.IPv4.TTL < 1 || cfg.IPv4.TTL > 255 {
		return invalid("ipv4.ttl %d out of range [1, 255]", cfg.IPv4.TTL)
	}
	if cfg.IPv4.Protocol < 0 || cfg.IPv4.Protocol > 255 {
		return invalid("ipv4.protocol %d out of range [0, 255]", cfg.IPv4.Protocol)
	}
	if cfg.IPv4.Identification < 0 || cfg.IPv4.Identification > 0xffff {
		return invalid("ipv4.identification %d out of range [0, 65535]", cfg.IPv4.Identification)
	}
	if cfg.IPv4.TOS < 0 || cfg.IPv4.TOS > 255 {
		return invalid("ipv4.tos %d out of range [0, 255]", cfg.IPv4.TOS)
	}

	switch cfg.Session.NextHop {
	case NextHopRouter, NextHopAuto:
	default:
		return invalid("session.next_hop %q (must be %s or %s)", cfg.Session.NextHop, NextHopRouter, NextHopAuto)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return invalid("metrics.listen is required when metrics.enabled=true")
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", core.ErrConfigInvalid, fmt.Sprintf(format, args...))
}
