package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mattjoyce/hookrelay/internal/hookdeck"
)

//go:generate mockgen -destination=mocks/mock_upserter.go -package=mocks github.com/mattjoyce/hookrelay/internal/connection Upserter

// Upserter is the upstream call the provisioner depends on.
type Upserter interface {
	UpsertConnection(ctx context.Context, req hookdeck.UpsertConnectionRequest) (*hookdeck.Connection, error)
}

// Spec describes the connection to ensure. Name is the upsert key.
type Spec struct {
	Name        string
	Source      SourceSpec
	Destination DestinationSpec
}

// SourceSpec describes the inbound endpoint.
type SourceSpec struct {
	Name string
	Type string // WEBHOOK (default) or PUBLISH_API
}

// DestinationSpec describes the outbound target. HTTP destinations need URL,
// CLI destinations need CLIPath.
type DestinationSpec struct {
	Name    string
	Type    string // HTTP (default) or CLI
	URL     string
	CLIPath string
}

// Validate checks that the spec can be sent upstream.
func (s Spec) Validate() error {
	if s.Name == "" {
		return errors.New("connection name is required")
	}
	if s.Source.Name == "" {
		return errors.New("source name is required")
	}
	if s.Destination.Name == "" {
		return errors.New("destination name is required")
	}
	switch s.Source.Type {
	case "", hookdeck.SourceTypeWebhook, hookdeck.SourceTypePublishAPI:
	default:
		return fmt.Errorf("unsupported source type %q", s.Source.Type)
	}
	switch s.destinationType() {
	case hookdeck.DestinationTypeHTTP:
		if s.Destination.URL == "" {
			return errors.New("HTTP destination requires a url")
		}
	case hookdeck.DestinationTypeCLI:
		if s.Destination.CLIPath == "" {
			return errors.New("CLI destination requires a cli path")
		}
	default:
		return fmt.Errorf("unsupported destination type %q", s.Destination.Type)
	}
	return nil
}

func (s Spec) destinationType() string {
	if s.Destination.Type == "" {
		return hookdeck.DestinationTypeHTTP
	}
	return s.Destination.Type
}

func (s Spec) request() hookdeck.UpsertConnectionRequest {
	sourceType := s.Source.Type
	if sourceType == "" {
		sourceType = hookdeck.SourceTypeWebhook
	}

	dest := hookdeck.DestinationInput{
		Name: s.Destination.Name,
		Type: s.destinationType(),
	}
	if dest.Type == hookdeck.DestinationTypeCLI {
		dest.Config = map[string]any{"path": s.Destination.CLIPath}
	} else {
		dest.Config = map[string]any{"url": s.Destination.URL}
	}

	return hookdeck.UpsertConnectionRequest{
		Name:        s.Name,
		Source:      hookdeck.SourceInput{Name: s.Source.Name, Type: sourceType},
		Destination: dest,
	}
}

// Context holds the identifiers assigned by Hookdeck to a provisioned
// connection. It is produced once by the Provisioner and is read-only.
// A nil *Context means the connection was never provisioned.
type Context struct {
	connectionID    string
	connectionName  string
	sourceID        string
	sourceName      string
	sourceURL       string
	destinationID   string
	destinationName string
}

// NewContext builds a Context from known identifiers.
func NewContext(connectionID, sourceID string) *Context {
	return &Context{connectionID: connectionID, sourceID: sourceID}
}

func contextFrom(conn *hookdeck.Connection) *Context {
	return &Context{
		connectionID:    conn.ID,
		connectionName:  conn.Name,
		sourceID:        conn.Source.ID,
		sourceName:      conn.Source.Name,
		sourceURL:       conn.Source.URL,
		destinationID:   conn.Destination.ID,
		destinationName: conn.Destination.Name,
	}
}

func (c *Context) ConnectionID() string    { return c.connectionID }
func (c *Context) ConnectionName() string  { return c.connectionName }
func (c *Context) SourceID() string        { return c.sourceID }
func (c *Context) SourceName() string      { return c.sourceName }
func (c *Context) SourceURL() string       { return c.sourceURL }
func (c *Context) DestinationID() string   { return c.destinationID }
func (c *Context) DestinationName() string { return c.destinationName }

// LogValue implements slog.LogValuer.
func (c *Context) LogValue() slog.Value {
	if c == nil {
		return slog.StringValue("unprovisioned")
	}
	return slog.GroupValue(
		slog.String("connection_id", c.connectionID),
		slog.String("source_id", c.sourceID),
		slog.String("destination_id", c.destinationID),
	)
}

// ProvisioningError wraps any failure to ensure a connection.
type ProvisioningError struct {
	Name string
	Err  error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provision connection %q: %v", e.Name, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// Provisioner idempotently creates or updates a connection.
type Provisioner struct {
	client Upserter
	logger *slog.Logger
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(client Upserter, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{client: client, logger: logger}
}

// Ensure upserts the connection described by spec and returns its identifiers.
// Calling it again with the same name updates the connection in place.
func (p *Provisioner) Ensure(ctx context.Context, spec Spec) (*Context, error) {
	if err := spec.Validate(); err != nil {
		return nil, &ProvisioningError{Name: spec.Name, Err: err}
	}

	p.logger.Info("upserting connection",
		"name", spec.Name,
		"source", spec.Source.Name,
		"destination", spec.Destination.Name,
	)

	conn, err := p.client.UpsertConnection(ctx, spec.request())
	if err != nil {
		var apiErr *hookdeck.APIError
		if errors.As(err, &apiErr) {
			p.logger.Error("connection upsert rejected",
				"name", spec.Name,
				"status", apiErr.StatusCode,
				"body", apiErr.Body,
			)
		} else {
			p.logger.Error("connection upsert failed", "name", spec.Name, "error", err)
		}
		return nil, &ProvisioningError{Name: spec.Name, Err: err}
	}

	if conn.ID == "" || conn.Source.ID == "" {
		return nil, &ProvisioningError{
			Name: spec.Name,
			Err:  errors.New("upstream response is missing connection or source id"),
		}
	}

	cc := contextFrom(conn)
	p.logger.Info("connection ready",
		"name", spec.Name,
		"connection_id", cc.ConnectionID(),
		"source_id", cc.SourceID(),
		"source_url", cc.SourceURL(),
	)
	return cc, nil
}
