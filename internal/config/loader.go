package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable consulted when no --config
// flag is given.
const EnvConfigPath = "HOOKRELAY_CONFIG"

// DefaultConfigFile is the config looked up in the working directory.
const DefaultConfigFile = "hookrelay.yaml"

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Discover resolves the config path to load.
// Priority order: explicit flag, $HOOKRELAY_CONFIG, ./hookrelay.yaml.
// An empty result means no file was found and defaults plus environment apply.
func Discover(flagPath string) (string, error) {
	if flagPath != "" {
		if _, err := os.Stat(flagPath); err != nil {
			return "", fmt.Errorf("config file not found: %s\n"+
				"Hint: Check the path or run with --config flag", flagPath)
		}
		return flagPath, nil
	}

	if p := os.Getenv(EnvConfigPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("$%s points to missing file: %s", EnvConfigPath, p)
		}
		return p, nil
	}

	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile, nil
	}

	return "", nil
}

// Load reads and parses configuration from a file. An empty path yields the
// defaults with environment interpolation applied. When a .checksums manifest
// sits next to the file, the file must match it.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if configPath != "" {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
		}

		info, err := os.Stat(absPath)
		if err != nil {
			return nil, fmt.Errorf("config file not found: %s\n"+
				"Hint: Check the path or run with --config flag", absPath)
		}
		if info.IsDir() {
			absPath = filepath.Join(absPath, DefaultConfigFile)
			if _, err := os.Stat(absPath); err != nil {
				return nil, fmt.Errorf("directory provided but %s not found: %s", DefaultConfigFile, absPath)
			}
		}

		if err := verifyConfigHash(absPath); err != nil {
			return nil, err
		}

		if err := loadConfigFile(absPath, cfg); err != nil {
			return nil, err
		}
		cfg.SourcePath = absPath
	}

	applyConfigDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadConfigFile decodes the interpolated file over cfg so that keys the file
// omits keep their default values.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	interpolated := interpolateEnv(string(data))

	if err := yaml.Unmarshal([]byte(interpolated), cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// verifyConfigHash checks path against the .checksums manifest in its
// directory. A missing manifest skips verification.
func verifyConfigHash(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(filepath.Join(dir, checksumFile)); os.IsNotExist(err) {
		return nil
	}

	manifest, err := LoadChecksums(dir)
	if err != nil {
		return err
	}

	basename := filepath.Base(path)
	expectedHash, ok := manifest.Hashes[basename]
	if !ok {
		return fmt.Errorf("config file %s has no hash in checksums at %s\n"+
			"Run: hookrelay config lock --config %s", basename, dir, path)
	}

	if err := VerifyFileHash(path, expectedHash); err != nil {
		return fmt.Errorf("config verification failed for %s: %w\n"+
			"This indicates tampering or unauthorized modification.\n"+
			"If you edited this file intentionally, run: hookrelay config lock --config %s", path, err, path)
	}
	return nil
}

func applyConfigDefaults(cfg *Config) {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}
	if cfg.Webhooks.MissingSecret == "" {
		cfg.Webhooks.MissingSecret = defaults.Webhooks.MissingSecret
	}
	if cfg.Webhooks.MaxBodySize == "" {
		cfg.Webhooks.MaxBodySize = defaults.Webhooks.MaxBodySize
	}
	if cfg.Hookdeck.APIBase == "" {
		cfg.Hookdeck.APIBase = defaults.Hookdeck.APIBase
	}
	if cfg.Hookdeck.APIVersion == "" {
		cfg.Hookdeck.APIVersion = defaults.Hookdeck.APIVersion
	}
	if cfg.Hookdeck.PublishBase == "" {
		cfg.Hookdeck.PublishBase = defaults.Hookdeck.PublishBase
	}
	if cfg.Events.Concurrency == 0 {
		cfg.Events.Concurrency = defaults.Events.Concurrency
	}

	// Credentials are optional: an unset variable means "not configured".
	cfg.Webhooks.Secret = resolveOptional(cfg.Webhooks.Secret)
	cfg.Hookdeck.APIKey = resolveOptional(cfg.Hookdeck.APIKey)
}

// interpolateEnv replaces ${VAR} with the environment value, leaving unknown
// variables in place.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// resolveOptional interpolates s and returns "" when any placeholder remains
// unresolved.
func resolveOptional(s string) string {
	s = interpolateEnv(s)
	if envVarPattern.MatchString(s) {
		return ""
	}
	return s
}

func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}

	if err := unresolved("api.auth.api_key", cfg.API.Auth.APIKey); err != nil {
		return err
	}

	switch cfg.Webhooks.MissingSecret {
	case "reject", "allow":
	default:
		return fmt.Errorf("webhooks.missing_secret must be reject or allow (got %q)", cfg.Webhooks.MissingSecret)
	}

	if cfg.Hookdeck.Timeout < 0 {
		return fmt.Errorf("hookdeck.timeout must not be negative")
	}

	if cfg.ProvisioningEnabled() {
		if cfg.Hookdeck.Connection.Name == "" {
			return fmt.Errorf("hookdeck.connection.name is required when hookdeck.api_key is set")
		}
		for field, value := range map[string]string{
			"hookdeck.api_base":                    cfg.Hookdeck.APIBase,
			"hookdeck.publish_base":                cfg.Hookdeck.PublishBase,
			"hookdeck.connection.name":             cfg.Hookdeck.Connection.Name,
			"hookdeck.connection.destination.url":  cfg.Hookdeck.Connection.Destination.URL,
			"hookdeck.connection.destination.name": cfg.Hookdeck.Connection.Destination.Name,
		} {
			if err := unresolved(field, value); err != nil {
				return err
			}
		}
	}

	if cfg.Events.Concurrency < 1 {
		return fmt.Errorf("events.concurrency must be at least 1 (got %d)", cfg.Events.Concurrency)
	}

	return nil
}

func unresolved(field, value string) error {
	matches := envVarPattern.FindStringSubmatch(value)
	if len(matches) > 1 {
		return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
	}
	return nil
}
