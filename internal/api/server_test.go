package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/hookrelay/internal/connection"
	"github.com/mattjoyce/hookrelay/internal/events"
	"github.com/mattjoyce/hookrelay/internal/hookdeck"
	"github.com/mattjoyce/hookrelay/internal/publish"
	"github.com/mattjoyce/hookrelay/internal/signature"
	"github.com/mattjoyce/hookrelay/internal/webhook"
)

type fakePublisher struct {
	mu       sync.Mutex
	payloads []json.RawMessage
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, payload json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return f.err
}

type fakeLister struct {
	page    *events.Page
	err     error
	queries []events.Query
}

func (f *fakeLister) List(ctx context.Context, q events.Query) (*events.Page, error) {
	f.queries = append(f.queries, q)
	return f.page, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestServer(cfg Config, pub Publisher, lister Lister, conn *connection.Context) http.Handler {
	verifier := signature.New("sekrit", signature.PolicyReject, discardLogger())
	wh := webhook.New(webhook.Config{}, verifier, discardLogger())
	return New(cfg, wh, pub, lister, conn, discardLogger()).Handler()
}

func TestRoot(t *testing.T) {
	h := newTestServer(Config{}, &fakePublisher{}, &fakeLister{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello, World!", rec.Body.String())
}

func TestHealthz(t *testing.T) {
	t.Run("not provisioned", func(t *testing.T) {
		h := newTestServer(Config{APIKey: "k"}, &fakePublisher{}, &fakeLister{}, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp HealthzResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "ok", resp.Status)
		assert.False(t, resp.Provisioned)
		assert.Nil(t, resp.Connection)
	})

	t.Run("provisioned", func(t *testing.T) {
		conn := connection.NewContext("c1", "s1")
		h := newTestServer(Config{}, &fakePublisher{}, &fakeLister{}, conn)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		var resp HealthzResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Provisioned)
		require.NotNil(t, resp.Connection)
		assert.Equal(t, "c1", resp.Connection.ID)
		assert.Equal(t, "s1", resp.Connection.SourceID)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(Config{}, &fakePublisher{}, &fakeLister{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPublishEndpoint(t *testing.T) {
	pub := &fakePublisher{}
	h := newTestServer(Config{}, pub, &fakeLister{}, connection.NewContext("c1", "s1"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/publish", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp PublishResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "PUBLISHED", resp.Status)

	require.Len(t, pub.payloads, 1)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(pub.payloads[0], &payload))
	assert.Equal(t, "Hello, World!", payload["message"])
	assert.NotEmpty(t, payload["id"])
}

func TestUpstreamErrorMapping(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantStatus     int
		wantUpstream   int
		wantErrContain string
	}{
		{
			name:           "source not provisioned",
			err:            publish.ErrSourceNotProvisioned,
			wantStatus:     http.StatusServiceUnavailable,
			wantErrContain: "not provisioned",
		},
		{
			name:         "upstream api error",
			err:          &hookdeck.APIError{Op: "publish", Method: "POST", URL: "u", StatusCode: 422, Body: `{"message":"bad"}`},
			wantStatus:   http.StatusBadGateway,
			wantUpstream: 422,
		},
		{
			name:           "transport error",
			err:            errors.New("dial tcp: connection refused"),
			wantStatus:     http.StatusBadGateway,
			wantErrContain: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(Config{}, &fakePublisher{err: tt.err}, &fakeLister{}, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/publish", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantUpstream, resp.UpstreamStatus)
			if tt.wantErrContain != "" {
				assert.Contains(t, resp.Error, tt.wantErrContain)
			}
		})
	}
}

func TestEventsEndpoint(t *testing.T) {
	lister := &fakeLister{page: &events.Page{
		Models: []json.RawMessage{json.RawMessage(`{"id":"e1","data":{"body":{"a":1}}}`)},
		Count:  1,
	}}
	h := newTestServer(Config{AllPages: true}, &fakePublisher{}, lister, connection.NewContext("c1", "s1"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events?status=SUCCESSFUL&limit=50&created_at[gte]=2026-01-01T00:00:00Z", nil)
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"models":[{"id":"e1","data":{"body":{"a":1}}}],"pagination":{},"count":1}`, rec.Body.String())

	require.Len(t, lister.queries, 1)
	q := lister.queries[0]
	assert.Equal(t, "SUCCESSFUL", q.Status)
	assert.Equal(t, 50, q.Limit)
	assert.True(t, q.AllPages)
	assert.Equal(t, "2026-01-01T00:00:00Z", q.CreatedAt["gte"])
}

func TestEventsEndpoint_QueryValidation(t *testing.T) {
	for _, query := range []string{"all_pages=maybe", "limit=0", "limit=x", "created_at[lt]=yesterday"} {
		lister := &fakeLister{page: &events.Page{}}
		h := newTestServer(Config{}, &fakePublisher{}, lister, nil)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?"+query, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		assert.Empty(t, lister.queries, query)
	}
}

func TestEventsEndpoint_NotProvisioned(t *testing.T) {
	h := newTestServer(Config{}, &fakePublisher{}, &fakeLister{err: events.ErrConnectionNotProvisioned}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProtectedRoutesRequireKey(t *testing.T) {
	h := newTestServer(Config{APIKey: "local-key"}, &fakePublisher{}, &fakeLister{page: &events.Page{}}, nil)

	for _, path := range []string{"/publish", "/events"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)

		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer local-key")
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestWebhookIntakeMounted(t *testing.T) {
	h := newTestServer(Config{APIKey: "local-key"}, &fakePublisher{}, &fakeLister{}, nil)
	body := []byte(`{"order":42}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shop/orders", strings.NewReader(string(body)))
	req.Header.Set("x-hookdeck-signature", signature.Sign(body, []byte("sekrit")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status":"ACCEPTED"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/webhooks/shop/orders", strings.NewReader(string(body)))
	req.Header.Set("x-hookdeck-signature", "bogus")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"status":"UNAUTHORIZED"}`, rec.Body.String())
}

// Provision against a fake upstream, then publish through the local API and
// check the source identifier reaches the publish endpoint.
func TestProvisionThenPublish(t *testing.T) {
	var (
		mu          sync.Mutex
		gotSourceID string
		gotAuth     string
	)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/2025-01-01/connections":
			_, _ = io.Copy(io.Discard, r.Body)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"c1","name":"query-example","source":{"id":"s1","name":"query-source"},"destination":{"id":"d1","name":"query-destination"}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/publish":
			mu.Lock()
			gotSourceID = r.Header.Get("X-Hookdeck-Source-Id")
			gotAuth = r.Header.Get("Authorization")
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	client := hookdeck.New(hookdeck.Config{
		APIKey:      "hk_test",
		APIBase:     upstream.URL,
		APIVersion:  "2025-01-01",
		PublishBase: upstream.URL,
		Timeout:     5 * time.Second,
	})

	conn, err := connection.NewProvisioner(client, discardLogger()).Ensure(context.Background(), connection.Spec{
		Name:        "query-example",
		Source:      connection.SourceSpec{Name: "query-source", Type: hookdeck.SourceTypePublishAPI},
		Destination: connection.DestinationSpec{Name: "query-destination", URL: "https://mock.hookdeck.com"},
	})
	require.NoError(t, err)

	h := newTestServer(Config{}, publish.New(client, conn, discardLogger()), &fakeLister{}, conn)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/publish", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "s1", gotSourceID)
	assert.Equal(t, "Bearer hk_test", gotAuth)
}
