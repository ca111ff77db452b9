// ===== internal/config/config.go =====
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"dhcpwatch/internal/dhcp"
	"dhcpwatch/internal/log"
	"dhcpwatch/internal/logs"
	"dhcpwatch/pkg/models"
)

// Config holds all application configuration
type Config struct {
	// File paths
	File      string
	PcapFile  string
	MACDBFile string

	// Capture settings
	Interface   string
	SnapLen     int
	Promiscuous bool
	BufferLimit int
	RawEncoding string

	// Decoder settings
	OptionsOffset int
	RequireCookie bool

	// Log view settings
	RefreshInterval time.Duration
	AutoRefresh     bool
	MaxLogs         int
	ShowRawData     bool

	// Network settings
	HTTPListen string

	// Update check
	UpdateRepo string
	UpdateURL  string

	LogLevel string
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		SnapLen:         1600,
		Promiscuous:     true,
		BufferLimit:     1000,
		RawEncoding:     "decimal",
		OptionsOffset:   dhcp.DefaultOptionsOffset,
		RequireCookie:   false,
		RefreshInterval: logs.DefaultRefreshInterval,
		AutoRefresh:     true,
		MaxLogs:         1000,
		ShowRawData:     false,
		HTTPListen:      "127.0.0.1:8067",
		UpdateURL:       "https://api.github.com",
		LogLevel:        "info",
	}
}

// LoadFromFile loads configuration from INI file
func (c *Config) LoadFromFile(filename string) error {
	cfg, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, filename)
	if err != nil {
		log.Logger.Infof("Skipping config file %s: %s", filename, err)
		return err
	}
	c.File = filename

	section := cfg.Section("")
	c.Interface = section.Key("interface").MustString(c.Interface)
	c.PcapFile = section.Key("pcapfile").MustString(c.PcapFile)
	c.MACDBFile = section.Key("macdbfile").MustString(c.MACDBFile)
	c.SnapLen = section.Key("snaplen").MustInt(c.SnapLen)
	c.Promiscuous = section.Key("promiscuous").MustBool(c.Promiscuous)
	c.BufferLimit = section.Key("bufferlimit").MustInt(c.BufferLimit)
	c.RawEncoding = section.Key("rawencoding").MustString(c.RawEncoding)
	c.OptionsOffset = section.Key("optionsoffset").MustInt(c.OptionsOffset)
	c.RequireCookie = section.Key("requirecookie").MustBool(c.RequireCookie)
	c.RefreshInterval = section.Key("refreshinterval").MustDuration(c.RefreshInterval)
	c.AutoRefresh = section.Key("autorefresh").MustBool(c.AutoRefresh)
	c.MaxLogs = section.Key("maxlogs").MustInt(c.MaxLogs)
	c.ShowRawData = section.Key("showrawdata").MustBool(c.ShowRawData)
	c.HTTPListen = section.Key("httplisten").MustString(c.HTTPListen)
	c.UpdateRepo = section.Key("updaterepo").MustString(c.UpdateRepo)
	c.UpdateURL = section.Key("updateurl").MustString(c.UpdateURL)
	c.LogLevel = section.Key("loglevel").MustString(c.LogLevel)

	return nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("INTERFACE"); v != "" {
		c.Interface = v
	}
	if v := os.Getenv("PCAPFILE"); v != "" {
		c.PcapFile = v
	}
	if v := os.Getenv("MACDBFILE"); v != "" {
		c.MACDBFile = v
	}
	if v := os.Getenv("SNAPLEN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SnapLen = n
		}
	}
	if v := os.Getenv("PROMISCUOUS"); v != "" {
		c.Promiscuous, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("BUFFERLIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BufferLimit = n
		}
	}
	if v := os.Getenv("RAWENCODING"); v != "" {
		c.RawEncoding = v
	}
	if v := os.Getenv("OPTIONSOFFSET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.OptionsOffset = n
		}
	}
	if v := os.Getenv("REQUIRECOOKIE"); v != "" {
		c.RequireCookie, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("REFRESHINTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RefreshInterval = d
		}
	}
	if v := os.Getenv("AUTOREFRESH"); v != "" {
		c.AutoRefresh, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("MAXLOGS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxLogs = n
		}
	}
	if v := os.Getenv("SHOWRAWDATA"); v != "" {
		c.ShowRawData, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("HTTPLISTEN"); v != "" {
		c.HTTPListen = v
	}
	if v := os.Getenv("UPDATEREPO"); v != "" {
		c.UpdateRepo = v
	}
	if v := os.Getenv("UPDATEURL"); v != "" {
		c.UpdateURL = v
	}
	if v := os.Getenv("LOGLEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refreshinterval must be positive, got %s", c.RefreshInterval)
	}
	if c.OptionsOffset < 0 {
		return fmt.Errorf("optionsoffset must not be negative, got %d", c.OptionsOffset)
	}
	if c.RequireCookie && c.OptionsOffset < len(dhcp.MagicCookie) {
		return fmt.Errorf("optionsoffset %d leaves no room for the magic cookie", c.OptionsOffset)
	}
	if c.MaxLogs < 0 {
		return fmt.Errorf("maxlogs must not be negative, got %d", c.MaxLogs)
	}
	if _, err := c.Encoding(); err != nil {
		return err
	}
	return nil
}

// Encoding returns the raw data encoding records are stored with
func (c *Config) Encoding() (models.Encoding, error) {
	switch strings.ToLower(c.RawEncoding) {
	case "", "decimal":
		return models.DecimalList, nil
	case "hex":
		return models.HexEncoded, nil
	default:
		return models.DecimalList, fmt.Errorf("unknown rawencoding %q, want decimal or hex", c.RawEncoding)
	}
}

// Scanner returns the option scanner settings
func (c *Config) Scanner() dhcp.Scanner {
	return dhcp.Scanner{Offset: c.OptionsOffset, RequireCookie: c.RequireCookie}
}

// Refresh returns the log refresh settings
func (c *Config) Refresh() logs.RefreshConfig {
	return logs.RefreshConfig{Interval: c.RefreshInterval, AutoRefresh: c.AutoRefresh}
}

// New creates a new configuration instance
func New(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	// Load from file first
	if configFile != "" {
		cfg.LoadFromFile(configFile)
	}

	// Override with environment variables
	cfg.LoadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
