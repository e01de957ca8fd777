package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPath(t *testing.T) {
	cfg := Defaults()
	cfg.Hookdeck.APIKey = "hk_secret"
	cfg.Hookdeck.Connection.Name = "orders"

	val, err := cfg.GetPath("hookdeck.connection.name")
	require.NoError(t, err)
	assert.Equal(t, "orders", val)

	val, err = cfg.GetPath("hookdeck.api_key")
	require.NoError(t, err)
	assert.Equal(t, "[redacted]", val)

	val, err = cfg.GetPath("events.concurrency")
	require.NoError(t, err)
	assert.Equal(t, 1, val)

	_, err = cfg.GetPath("hookdeck.nope")
	assert.Error(t, err)

	_, err = cfg.GetPath("service.name.deeper")
	assert.Error(t, err)
}

func TestRedactedLeavesOriginalIntact(t *testing.T) {
	cfg := Defaults()
	cfg.Webhooks.Secret = "sekrit"
	cfg.API.Auth.APIKey = ""

	r := cfg.Redacted()
	assert.Equal(t, "[redacted]", r.Webhooks.Secret)
	assert.Equal(t, "", r.API.Auth.APIKey)
	assert.Equal(t, "sekrit", cfg.Webhooks.Secret)
}

func TestConnectionSpec(t *testing.T) {
	cfg := Defaults()
	cfg.Hookdeck.Connection.Destination.Type = "HTTP"
	cfg.Hookdeck.Connection.Destination.URL = "https://example.com/in"

	spec := cfg.ConnectionSpec()
	assert.Equal(t, "hookrelay-connection", spec.Name)
	assert.Equal(t, "WEBHOOK", spec.Source.Type)
	assert.Equal(t, "https://example.com/in", spec.Destination.URL)
	require.NoError(t, spec.Validate())
}
