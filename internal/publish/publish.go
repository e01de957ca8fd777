package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/hookrelay/internal/connection"
)

// ErrSourceNotProvisioned is returned when no connection context is available.
var ErrSourceNotProvisioned = errors.New("source not provisioned")

// Client is the upstream publish call.
type Client interface {
	Publish(ctx context.Context, sourceID string, payload json.RawMessage) error
}

// Publisher emits events into the provisioned source. It does not retry.
type Publisher struct {
	client Client
	conn   *connection.Context
	logger *slog.Logger
}

// New creates a Publisher. conn may be nil, in which case every Publish call
// returns ErrSourceNotProvisioned.
func New(client Client, conn *connection.Context, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{client: client, conn: conn, logger: logger}
}

// Publish sends payload tagged with the source identifier.
func (p *Publisher) Publish(ctx context.Context, payload json.RawMessage) error {
	if p.conn == nil || p.conn.SourceID() == "" {
		return ErrSourceNotProvisioned
	}
	if !json.Valid(payload) {
		return errors.New("payload is not valid JSON")
	}

	if err := p.client.Publish(ctx, p.conn.SourceID(), payload); err != nil {
		p.logger.Error("publish failed", "source_id", p.conn.SourceID(), "error", err)
		return fmt.Errorf("publish to source %s: %w", p.conn.SourceID(), err)
	}

	p.logger.Info("event published", "source_id", p.conn.SourceID(), "bytes", len(payload))
	return nil
}

// SamplePayload builds the synthetic event used by the publish trigger.
func SamplePayload(now time.Time) json.RawMessage {
	b, _ := json.Marshal(map[string]string{
		"id":      uuid.NewString(),
		"message": "Hello, World!",
		"sent_at": now.UTC().Format(time.RFC3339),
	})
	return b
}
