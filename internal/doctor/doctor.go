// Package doctor validates a loaded hookrelay configuration beyond what the
// loader enforces and reports problems as errors or warnings.
package doctor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattjoyce/hookrelay/internal/config"
	"github.com/mattjoyce/hookrelay/internal/webhook"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration.
type Doctor struct {
	cfg *config.Config
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateWebhooks(r)
	d.validateConnection(r)
	d.validateAPIConfig(r)
	d.warnIntegrity(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateWebhooks checks the intake verification settings.
func (d *Doctor) validateWebhooks(r *Result) {
	wh := d.cfg.Webhooks

	if _, err := webhook.ParseMaxBodySize(wh.MaxBodySize); err != nil {
		d.addError(r, "webhooks", "webhooks.max_body_size", err.Error())
	}

	if wh.Secret != "" {
		return
	}
	switch wh.MissingSecret {
	case "allow":
		d.addWarning(r, "webhooks", "webhooks.secret",
			"no secret configured and missing_secret is allow: every inbound webhook will be accepted unverified")
	default:
		d.addWarning(r, "webhooks", "webhooks.secret",
			"no secret configured: every inbound webhook will be rejected (set HOOKDECK_WEBHOOK_SECRET)")
	}
}

// validateConnection checks the connection that system start will upsert.
func (d *Doctor) validateConnection(r *Result) {
	if !d.cfg.ProvisioningEnabled() {
		d.addWarning(r, "hookdeck", "hookdeck.api_key",
			"no API key configured: connection provisioning, publish and event listing are disabled")
		return
	}

	if err := d.cfg.ConnectionSpec().Validate(); err != nil {
		d.addError(r, "hookdeck", "hookdeck.connection", err.Error())
	}
}

// validateAPIConfig checks local server settings.
func (d *Doctor) validateAPIConfig(r *Result) {
	if d.cfg.API.Auth.APIKey != "" {
		return
	}
	host := d.cfg.API.Listen
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	switch host {
	case "127.0.0.1", "localhost", "[::1]":
		return
	}
	d.addWarning(r, "api", "api.auth.api_key",
		fmt.Sprintf("listening on %s without authentication: /publish and /events are open", d.cfg.API.Listen))
}

// warnIntegrity reports whether the config file is pinned by a checksum.
func (d *Doctor) warnIntegrity(r *Result) {
	if d.cfg.SourcePath == "" {
		return
	}
	checksums := filepath.Join(filepath.Dir(d.cfg.SourcePath), ".checksums")
	if _, err := os.Stat(checksums); os.IsNotExist(err) {
		d.addWarning(r, "integrity", "",
			fmt.Sprintf("no .checksums manifest next to %s; run 'hookrelay config lock' to enable integrity verification", d.cfg.SourcePath))
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
