package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const redacted = "[redacted]"

// Redacted returns a copy of the config with credentials masked, suitable
// for printing.
func (c *Config) Redacted() *Config {
	out := *c
	for _, s := range []*string{&out.API.Auth.APIKey, &out.Webhooks.Secret, &out.Hookdeck.APIKey} {
		if *s != "" {
			*s = redacted
		}
	}
	return &out
}

// GetPath retrieves a value from the redacted configuration using a
// dot-notation path such as "hookdeck.connection.name".
func (c *Config) GetPath(path string) (any, error) {
	data, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return getValue(m, path)
}

func getValue(m map[string]any, path string) (any, error) {
	parts := strings.Split(path, ".")
	var current any = m

	for _, part := range parts {
		if part == "" {
			continue
		}

		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path %q breaks at %q (not a map)", path, part)
		}

		val, exists := m[part]
		if !exists {
			return nil, fmt.Errorf("path %q: key %q not found", path, part)
		}
		current = val
	}

	return current, nil
}
