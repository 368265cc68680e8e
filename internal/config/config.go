package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "SITEWATCH_CONFIG"
	smtpHostEnv   = "SMTP_HOST"
	smtpPortEnv   = "SMTP_PORT"
	smtpUserEnv   = "SMTP_USER"
	smtpPassEnv   = "SMTP_PASS"
	recipientEnv  = "SITEWATCH_RECIPIENT"
)

// Notification modes supported by the run.
const (
	ModeBroadcast   = "broadcast"
	ModeSubscribers = "subscribers"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Sources       SourcesConfig      `yaml:"sources"`
	State         StateConfig        `yaml:"state"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Mail          MailConfig         `yaml:"mail"`
	Subscriptions SubscriptionConfig `yaml:"subscriptions"`
}

// LoggingConfig controls console log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SourcesConfig points at the monitored source list.
type SourcesConfig struct {
	Path string `yaml:"path"`
}

// StateConfig selects the fingerprint store backend.
type StateConfig struct {
	Backend string `yaml:"backend"` // "json" or "sqlite"
	Path    string `yaml:"path"`
}

// FetchConfig bounds the HTTP side of a run.
type FetchConfig struct {
	Concurrency    int `yaml:"concurrency"`
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

// Timeout resolves the per-fetch timeout as a duration.
func (f FetchConfig) Timeout() time.Duration {
	if f.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// MailConfig wires the SMTP transport and the notification policy.
type MailConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	From       string `yaml:"from"`
	Recipient  string `yaml:"recipient"`
	Mode       string `yaml:"mode"`
	AlwaysSend bool   `yaml:"alwaysSend"`
}

// SubscriptionConfig points at the subscription workbook (subscribers mode).
type SubscriptionConfig struct {
	Path string `yaml:"path"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(smtpHostEnv); v != "" {
		c.Mail.Host = v
	}
	if v := os.Getenv(smtpPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Mail.Port = port
		} else {
			log.Printf("config: invalid %s=%q, keeping %d", smtpPortEnv, v, c.Mail.Port)
		}
	}
	if v := os.Getenv(smtpUserEnv); v != "" {
		c.Mail.Username = v
	}
	if v := os.Getenv(smtpPassEnv); v != "" {
		c.Mail.Password = v
	}
	if v := os.Getenv(recipientEnv); v != "" {
		c.Mail.Recipient = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Sources.Path != "" {
		base.Sources = override.Sources
	}

	if override.State.Backend != "" {
		base.State.Backend = override.State.Backend
	}
	if override.State.Path != "" {
		base.State.Path = override.State.Path
	}

	if override.Fetch.Concurrency > 0 {
		base.Fetch.Concurrency = override.Fetch.Concurrency
	}
	if override.Fetch.TimeoutSeconds > 0 {
		base.Fetch.TimeoutSeconds = override.Fetch.TimeoutSeconds
	}

	if override.Mail.Host != "" {
		base.Mail.Host = override.Mail.Host
	}
	if override.Mail.Port != 0 {
		base.Mail.Port = override.Mail.Port
	}
	if override.Mail.Username != "" {
		base.Mail.Username = override.Mail.Username
	}
	if override.Mail.Password != "" {
		base.Mail.Password = override.Mail.Password
	}
	if override.Mail.From != "" {
		base.Mail.From = override.Mail.From
	}
	if override.Mail.Recipient != "" {
		base.Mail.Recipient = override.Mail.Recipient
	}
	if override.Mail.Mode != "" {
		base.Mail.Mode = override.Mail.Mode
	}
	if override.Mail.AlwaysSend {
		base.Mail.AlwaysSend = true
	}

	if override.Subscriptions.Path != "" {
		base.Subscriptions = override.Subscriptions
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Sources: SourcesConfig{Path: "sources.txt"},
		State:   StateConfig{Backend: "json", Path: "state.json"},
		Fetch:   FetchConfig{Concurrency: 6, TimeoutSeconds: 20},
		Mail: MailConfig{
			Port: 465,
			Mode: ModeBroadcast,
		},
		Subscriptions: SubscriptionConfig{Path: "subscriptions.xlsx"},
	}
}
