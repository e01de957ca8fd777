package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Header names used by Hookdeck.
const (
	HeaderPrimary   = "X-Hookdeck-Signature"
	HeaderSecondary = "X-Hookdeck-Signature-2"
)

var (
	// ErrVerificationFailed is returned when no presented signature matches.
	ErrVerificationFailed = errors.New("webhook verification failed")

	// ErrSecretMissing is returned when no secret is configured and the
	// policy rejects unverifiable requests.
	ErrSecretMissing = errors.New("webhook secret not configured")
)

// Policy decides what happens when no secret is configured.
type Policy string

const (
	// PolicyReject refuses every request when the secret is absent.
	PolicyReject Policy = "reject"
	// PolicyAllow accepts unverifiable requests and logs a warning for each.
	PolicyAllow Policy = "allow"
)

// ParsePolicy converts a config string to a Policy. Empty means PolicyReject.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyAllow:
		return PolicyAllow, nil
	default:
		return "", fmt.Errorf("unknown missing-secret policy %q (want %q or %q)", s, PolicyReject, PolicyAllow)
	}
}

// Signatures holds the signatures presented with one request.
// Secondary is empty unless the sender is mid-rotation.
type Signatures struct {
	Primary   string
	Secondary string
}

// FromHeaders extracts both Hookdeck signature headers.
func FromHeaders(h http.Header) Signatures {
	return Signatures{
		Primary:   h.Get(HeaderPrimary),
		Secondary: h.Get(HeaderSecondary),
	}
}

// Sign returns base64(HMAC-SHA256(secret, body)).
func Sign(body, secret []byte) string {
	return base64.StdEncoding.EncodeToString(digest(body, secret))
}

// Verify reports whether body was signed with secret by either presented
// signature. An empty secret always yields false.
func Verify(body []byte, sigs Signatures, secret []byte) bool {
	if len(secret) == 0 {
		return false
	}
	expected := []byte(Sign(body, secret))

	primary := hmac.Equal(expected, []byte(sigs.Primary))
	secondary := sigs.Secondary != "" && hmac.Equal(expected, []byte(sigs.Secondary))
	return primary || secondary
}

func digest(body, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// Verifier binds a secret and a missing-secret policy.
// It is safe for concurrent use; none of its fields change after New.
type Verifier struct {
	secret []byte
	policy Policy
	logger *slog.Logger
}

// New creates a Verifier. An empty secret is a valid, degraded configuration.
func New(secret string, policy Policy, logger *slog.Logger) *Verifier {
	if policy == "" {
		policy = PolicyReject
	}
	if logger == nil {
		logger = slog.Default()
	}
	v := &Verifier{policy: policy, logger: logger}
	if secret != "" {
		v.secret = []byte(secret)
	}
	return v
}

// HasSecret reports whether a secret is configured.
func (v *Verifier) HasSecret() bool {
	return len(v.secret) > 0
}

// Policy returns the missing-secret policy in effect.
func (v *Verifier) Policy() Policy {
	return v.policy
}

// Check verifies body against sigs. It returns nil when the request is
// authentic (or unverifiable and PolicyAllow is set).
func (v *Verifier) Check(body []byte, sigs Signatures) error {
	if !v.HasSecret() {
		if v.policy == PolicyAllow {
			v.logger.Warn("webhook secret not configured; accepting unverified request")
			return nil
		}
		return ErrSecretMissing
	}
	if !Verify(body, sigs, v.secret) {
		return ErrVerificationFailed
	}
	return nil
}
