package webhook

import (
	"time"

	"github.com/mattjoyce/hookrelay/internal/signature"
)

// Verifier checks a raw body against the presented signatures.
type Verifier interface {
	Check(body []byte, sigs signature.Signatures) error
}

// Config holds intake settings.
type Config struct {
	// MaxBodySize is the maximum allowed request body size in bytes (default: 1MB)
	MaxBodySize int64

	// Now is the clock used for receipt timestamps. Defaults to time.Now.
	Now func() time.Time
}

// StatusResponse is the JSON body of every intake response.
type StatusResponse struct {
	Status string `json:"status"`
}

// Response statuses.
const (
	StatusAccepted     = "ACCEPTED"
	StatusUnauthorized = "UNAUTHORIZED"
	StatusTooLarge     = "PAYLOAD_TOO_LARGE"
	StatusError        = "ERROR"
)

// Default values
const (
	DefaultMaxBodySize = 1048576 // 1 MB
)
