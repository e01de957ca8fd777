package api

import "encoding/json"

// ErrorResponse is returned on errors. UpstreamStatus is set when the
// failure came from the Hookdeck API.
type ErrorResponse struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string          `json:"status"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Provisioned   bool            `json:"provisioned"`
	Connection    *ConnectionInfo `json:"connection,omitempty"`
}

// ConnectionInfo summarizes the provisioned connection.
type ConnectionInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SourceID    string `json:"source_id"`
	SourceURL   string `json:"source_url,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// PublishResponse is returned by GET /publish.
type PublishResponse struct {
	Status  string          `json:"status"`
	Payload json.RawMessage `json:"payload"`
}
