package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"firestige.xyz/linkprobe/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "linkprobe.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, BackendAFPacket, cfg.Transport.Backend)
	assert.Equal(t, 100*time.Millisecond, cfg.Transport.PollTimeout)
	assert.Equal(t, 1514, cfg.Transport.MaxFrame)
	assert.Equal(t, 5*time.Second, cfg.ARP.Timeout)
	assert.Equal(t, time.Duration(0), cfg.ARP.WatchTimeout)
	assert.True(t, cfg.ARP.StrictMatch)
	assert.Equal(t, 64, cfg.IPv4.TTL)
	assert.Equal(t, int(core.ProtocolTCP), cfg.IPv4.Protocol)
	assert.Equal(t, 4, cfg.IPv4.Identification)
	assert.Equal(t, NextHopRouter, cfg.Session.NextHop)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
transport:
  backend: packet
  arp_filter: true
arp:
  timeout: 250ms
  strict_match: false
ipv4:
  ttl: 8
  protocol: 17
session:
  next_hop: auto
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, BackendPacket, cfg.Transport.Backend)
	assert.True(t, cfg.Transport.ARPFilter)
	assert.Equal(t, 250*time.Millisecond, cfg.ARP.Timeout)
	assert.False(t, cfg.ARP.StrictMatch)
	assert.Equal(t, 8, cfg.IPv4.TTL)
	assert.Equal(t, 17, cfg.IPv4.Protocol)
	assert.Equal(t, NextHopAuto, cfg.Session.NextHop)
	// untouched keys keep defaults
	assert.Equal(t, 1514, cfg.Transport.MaxFrame)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"), nil)
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("LINKPROBE_ARP_TIMEOUT", "2s")
	t.Setenv("LINKPROBE_LOG_LEVEL", "warn")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.ARP.Timeout)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestFlagsOverrideFileAndEnv(t *testing.T) {
	path := writeConfig(t, "arp:\n  timeout: 1s\n")
	t.Setenv("LINKPROBE_ARP_TIMEOUT", "2s")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Duration("timeout", 0, "")
	fs.Bool("strict", true, "")
	fs.String("backend", BackendAFPacket, "")
	require.NoError(t, fs.Parse([]string{"--timeout=3s", "--strict=false"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.ARP.Timeout)
	assert.False(t, cfg.ARP.StrictMatch)
	assert.Equal(t, BackendAFPacket, cfg.Transport.Backend, "unset flag keeps the default")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"backend", func(c *Config) { c.Transport.Backend = "pcap" }},
		{"poll timeout", func(c *Config) { c.Transport.PollTimeout = 0 }},
		{"max frame too small", func(c *Config) { c.Transport.MaxFrame = 20 }},
		{"negative timeout", func(c *Config) { c.ARP.Timeout = -time.Second }},
		{"ttl zero", func(c *Config) { c.IPv4.TTL = 0 }},
		{"protocol", func(c *Config) { c.IPv4.Protocol = 256 }},
		{"identification", func(c *Config) { c.IPv4.Identification = 70000 }},
		{"tos", func(c *Config) { c.IPv4.TOS = -1 }},
		{"next hop", func(c *Config) { c.Session.NextHop = "gateway" }},
		{"metrics listen", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Listen = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, core.ErrConfigInvalid)
		})
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := writeConfig(t, "ipv4:\n  ttl: 300\n")
	_, err := Load(path, nil)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestRenderRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.ARP.Timeout = 1500 * time.Millisecond

	data, err := cfg.Render()
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: 1.5s")

	var raw map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Contains(t, raw, "transport")

	loaded, err := Load(writeConfig(t, string(data)), nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.ARP, loaded.ARP)
	assert.Equal(t, cfg.IPv4, loaded.IPv4)
}
