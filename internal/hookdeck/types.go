package hookdeck

import (
	"encoding/json"
	"time"
)

// Defaults for the Hookdeck endpoints.
const (
	DefaultAPIBase     = "https://api.hookdeck.com"
	DefaultAPIVersion  = "2025-01-01"
	DefaultPublishBase = "https://hkdk.events"

	// HeaderSourceID tags a published event with its source.
	HeaderSourceID = "X-Hookdeck-Source-Id"
)

// Source types accepted by PUT /connections.
const (
	SourceTypeWebhook    = "WEBHOOK"
	SourceTypePublishAPI = "PUBLISH_API"
)

// Destination types accepted by PUT /connections.
const (
	DestinationTypeHTTP = "HTTP"
	DestinationTypeCLI  = "CLI"
)

// Config holds client settings.
type Config struct {
	APIKey      string
	APIBase     string
	APIVersion  string
	PublishBase string

	// Timeout is applied to the underlying http.Client. Zero leaves the
	// client default (no timeout).
	Timeout time.Duration

	UserAgent string
}

// UpsertConnectionRequest is the body of PUT /connections.
// The connection name is the upsert key.
type UpsertConnectionRequest struct {
	Name        string           `json:"name"`
	Source      SourceInput      `json:"source"`
	Destination DestinationInput `json:"destination"`
}

// SourceInput defines an inline source.
type SourceInput struct {
	Name   string         `json:"name"`
	Type   string         `json:"type,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// DestinationInput defines an inline destination.
type DestinationInput struct {
	Name   string         `json:"name"`
	Type   string         `json:"type,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// Connection is the upstream representation returned by PUT /connections.
type Connection struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Source      Source      `json:"source"`
	Destination Destination `json:"destination"`
}

// Source is a named inbound endpoint.
type Source struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Destination is a named outbound target.
type Destination struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// EventList is the body of GET /events. Models are kept raw; each one is a
// summary whose "id" refers to GET /events/{id}.
type EventList struct {
	Models     []json.RawMessage `json:"models"`
	Pagination Pagination        `json:"pagination"`
	Count      int               `json:"count"`
}

// Pagination carries the cursors of a list response.
type Pagination struct {
	OrderBy string `json:"order_by,omitempty"`
	Dir     string `json:"dir,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Next    string `json:"next,omitempty"`
	Prev    string `json:"prev,omitempty"`
}
