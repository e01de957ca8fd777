package hookdeck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mattjoyce/hookrelay/internal/metrics"
)

const defaultUserAgent = "hookrelay"

// Client talks to the Hookdeck control-plane and publish APIs.
// It never retries; every failure is returned to the caller.
type Client struct {
	apiKey      string
	apiBase     string
	publishBase string
	userAgent   string
	http        *http.Client
}

// New creates a client. Empty fields fall back to the public Hookdeck endpoints.
func New(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.PublishBase == "" {
		cfg.PublishBase = DefaultPublishBase
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Client{
		apiKey:      cfg.APIKey,
		apiBase:     strings.TrimRight(cfg.APIBase, "/") + "/" + strings.Trim(cfg.APIVersion, "/"),
		publishBase: strings.TrimRight(cfg.PublishBase, "/"),
		userAgent:   cfg.UserAgent,
		http:        &http.Client{Timeout: cfg.Timeout},
	}
}

// UpsertConnection creates or updates the connection named in req.
func (c *Client) UpsertConnection(ctx context.Context, req UpsertConnectionRequest) (*Connection, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal connection request: %w", err)
	}

	respBody, err := c.do(ctx, "upsert_connection", http.MethodPut, c.apiBase+"/connections", body, nil)
	if err != nil {
		return nil, err
	}

	var conn Connection
	if err := json.Unmarshal(respBody, &conn); err != nil {
		return nil, fmt.Errorf("decode connection response: %w (body: %s)", err, respBody)
	}
	return &conn, nil
}

// ListEvents fetches one page of event summaries.
func (c *Client) ListEvents(ctx context.Context, params url.Values) (*EventList, error) {
	u := c.apiBase + "/events"
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	respBody, err := c.do(ctx, "list_events", http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}

	var list EventList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, fmt.Errorf("decode event list: %w", err)
	}
	return &list, nil
}

// GetEvent fetches the full record of one event.
func (c *Client) GetEvent(ctx context.Context, id string) (json.RawMessage, error) {
	respBody, err := c.do(ctx, "get_event", http.MethodGet, c.apiBase+"/events/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(respBody) {
		return nil, fmt.Errorf("decode event %s: invalid JSON", id)
	}
	return json.RawMessage(respBody), nil
}

// Publish sends payload into the source identified by sourceID.
// A 2xx response, with or without a body, is success.
func (c *Client) Publish(ctx context.Context, sourceID string, payload json.RawMessage) error {
	headers := map[string]string{HeaderSourceID: sourceID}
	_, err := c.do(ctx, "publish", http.MethodPost, c.publishBase+"/v1/publish", payload, headers)
	return err
}

// do executes one request and returns the response body for 2xx statuses.
func (c *Client) do(ctx context.Context, op, method, u string, body []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", op, err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("hookdeck %s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("hookdeck %s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.UpstreamRequests.WithLabelValues(op, "status_"+fmt.Sprint(resp.StatusCode)).Inc()
		return nil, &APIError{
			Op:         op,
			Method:     method,
			URL:        u,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	metrics.UpstreamRequests.WithLabelValues(op, "ok").Inc()
	return respBody, nil
}
