package doctor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattjoyce/hookrelay/internal/config"
)

func validConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Webhooks.Secret = "sekrit"
	cfg.Hookdeck.APIKey = "hk_123"
	return cfg
}

func hasIssue(issues []Issue, field string) bool {
	for _, i := range issues {
		if i.Field == field {
			return true
		}
	}
	return false
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()
	r := New(validConfig()).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
	if len(r.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", r.Warnings)
	}
}

func TestValidate_BadMaxBodySize(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Webhooks.MaxBodySize = "huge"

	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	if !hasIssue(r.Errors, "webhooks.max_body_size") {
		t.Fatalf("expected max_body_size error, got %v", r.Errors)
	}
}

func TestValidate_MissingSecretWarns(t *testing.T) {
	t.Parallel()
	for _, policy := range []string{"reject", "allow"} {
		cfg := validConfig()
		cfg.Webhooks.Secret = ""
		cfg.Webhooks.MissingSecret = policy

		r := New(cfg).Validate()
		if !r.Valid {
			t.Fatalf("%s: missing secret should not be an error: %v", policy, r.Errors)
		}
		if !hasIssue(r.Warnings, "webhooks.secret") {
			t.Fatalf("%s: expected secret warning, got %v", policy, r.Warnings)
		}
	}
}

func TestValidate_ConnectionSpec(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Hookdeck.Connection.Destination.Type = "HTTP"
	cfg.Hookdeck.Connection.Destination.URL = ""

	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid connection spec")
	}
	if !hasIssue(r.Errors, "hookdeck.connection") {
		t.Fatalf("expected connection error, got %v", r.Errors)
	}
}

func TestValidate_ProvisioningDisabledWarns(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Hookdeck.APIKey = ""
	cfg.Hookdeck.Connection.Name = ""

	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("expected valid, got %v", r.Errors)
	}
	if !hasIssue(r.Warnings, "hookdeck.api_key") {
		t.Fatalf("expected api_key warning, got %v", r.Warnings)
	}
}

func TestValidate_OpenAPIOnPublicInterface(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.API.Listen = "0.0.0.0:3030"

	r := New(cfg).Validate()
	if !hasIssue(r.Warnings, "api.auth.api_key") {
		t.Fatalf("expected auth warning, got %v", r.Warnings)
	}

	cfg.API.Auth.APIKey = "local"
	r = New(cfg).Validate()
	if hasIssue(r.Warnings, "api.auth.api_key") {
		t.Fatalf("unexpected auth warning with key set: %v", r.Warnings)
	}
}

func TestValidate_IntegrityWarning(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := validConfig()
	cfg.SourcePath = filepath.Join(dir, "hookrelay.yaml")

	r := New(cfg).Validate()
	if len(r.Warnings) != 1 || r.Warnings[0].Category != "integrity" {
		t.Fatalf("expected integrity warning, got %v", r.Warnings)
	}

	if err := os.WriteFile(filepath.Join(dir, ".checksums"), []byte("version: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	r = New(cfg).Validate()
	if len(r.Warnings) != 0 {
		t.Fatalf("expected no warnings once locked, got %v", r.Warnings)
	}
}

func TestFormatHuman(t *testing.T) {
	t.Parallel()

	if got := FormatHuman(&Result{Valid: true}); got != "Configuration valid.\n" {
		t.Fatalf("FormatHuman(valid) = %q", got)
	}

	out := FormatHuman(&Result{
		Valid:    false,
		Errors:   []Issue{{Category: "webhooks", Field: "webhooks.max_body_size", Message: "bad"}},
		Warnings: []Issue{{Category: "integrity", Message: "unlocked"}},
	})
	if !strings.Contains(out, "Configuration invalid (1 error(s), 1 warning(s))") {
		t.Fatalf("missing summary line: %s", out)
	}
	if !strings.Contains(out, "ERROR [webhooks] webhooks.max_body_size: bad") {
		t.Fatalf("missing error line: %s", out)
	}
	if !strings.Contains(out, "WARN  [integrity] unlocked") {
		t.Fatalf("missing warning line: %s", out)
	}
}

func TestFormatJSON(t *testing.T) {
	t.Parallel()
	out, err := FormatJSON(&Result{Valid: true})
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["valid"] != true {
		t.Fatalf("valid = %v", decoded["valid"])
	}
}
