package config

import (
	"time"

	"github.com/mattjoyce/hookrelay/internal/connection"
)

// Config represents the complete hookrelay configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	API      APIConfig      `yaml:"api"`
	Webhooks WebhooksConfig `yaml:"webhooks"`
	Hookdeck HookdeckConfig `yaml:"hookdeck"`
	Events   EventsConfig   `yaml:"events"`

	// SourcePath is the absolute path the config was loaded from.
	SourcePath string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// APIConfig defines the local HTTP server settings.
type APIConfig struct {
	Listen string        `yaml:"listen"`
	Auth   APIAuthConfig `yaml:"auth"`
}

// APIAuthConfig defines API authentication settings. An empty APIKey leaves
// the operational endpoints open.
type APIAuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// WebhooksConfig defines inbound webhook verification settings.
type WebhooksConfig struct {
	Secret        string `yaml:"secret"`
	MissingSecret string `yaml:"missing_secret"` // reject (default) or allow
	MaxBodySize   string `yaml:"max_body_size"`
}

// HookdeckConfig defines upstream gateway settings.
type HookdeckConfig struct {
	APIKey      string           `yaml:"api_key"`
	APIBase     string           `yaml:"api_base"`
	APIVersion  string           `yaml:"api_version"`
	PublishBase string           `yaml:"publish_base"`
	Timeout     time.Duration    `yaml:"timeout"`
	Connection  ConnectionConfig `yaml:"connection"`
}

// ConnectionConfig describes the connection upserted at startup.
type ConnectionConfig struct {
	Name        string            `yaml:"name"`
	Source      SourceConfig      `yaml:"source"`
	Destination DestinationConfig `yaml:"destination"`
}

// SourceConfig describes the connection source.
type SourceConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// DestinationConfig describes the connection destination.
type DestinationConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	URL     string `yaml:"url"`
	CLIPath string `yaml:"cli_path"`
}

// EventsConfig tunes event listing.
type EventsConfig struct {
	Concurrency int  `yaml:"concurrency"`
	AllPages    bool `yaml:"all_pages"`
}

// ChecksumManifest is the on-disk .checksums format written by `config lock`.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// ProvisioningEnabled reports whether an upstream API key is configured.
func (c *Config) ProvisioningEnabled() bool {
	return c.Hookdeck.APIKey != ""
}

// ConnectionSpec builds the connection upserted at startup.
func (c *Config) ConnectionSpec() connection.Spec {
	conn := c.Hookdeck.Connection
	return connection.Spec{
		Name: conn.Name,
		Source: connection.SourceSpec{
			Name: conn.Source.Name,
			Type: conn.Source.Type,
		},
		Destination: connection.DestinationSpec{
			Name:    conn.Destination.Name,
			Type:    conn.Destination.Type,
			URL:     conn.Destination.URL,
			CLIPath: conn.Destination.CLIPath,
		},
	}
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "hookrelay",
			LogLevel:  "info",
			LogFormat: "json",
		},
		API: APIConfig{
			Listen: "127.0.0.1:3030",
		},
		Webhooks: WebhooksConfig{
			Secret:        "${HOOKDECK_WEBHOOK_SECRET}",
			MissingSecret: "reject",
			MaxBodySize:   "1MB",
		},
		Hookdeck: HookdeckConfig{
			APIKey:      "${HOOKDECK_API_KEY}",
			APIBase:     "https://api.hookdeck.com",
			APIVersion:  "2025-01-01",
			PublishBase: "https://hkdk.events",
			Connection: ConnectionConfig{
				Name: "hookrelay-connection",
				Source: SourceConfig{
					Name: "hookrelay-source",
					Type: "WEBHOOK",
				},
				Destination: DestinationConfig{
					Name:    "hookrelay-cli",
					Type:    "CLI",
					CLIPath: "/webhooks",
				},
			},
		},
		Events: EventsConfig{
			Concurrency: 1,
		},
	}
}
