package webhook

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/hookrelay/internal/metrics"
	"github.com/mattjoyce/hookrelay/internal/signature"
)

// Handler is the webhook intake endpoint. It holds no mutable state and can
// serve any number of requests in parallel.
type Handler struct {
	config   Config
	verifier Verifier
	logger   *slog.Logger
}

// New creates a new intake handler.
func New(config Config, verifier Verifier, logger *slog.Logger) *Handler {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		config:   config,
		verifier: verifier,
		logger:   logger,
	}
}

// Mount registers the catch-all POST route on r.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/*", h.handleWebhook)
}

// ServeHTTP lets the handler be used without a router.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	h.handleWebhook(w, r)
}

// handleWebhook handles incoming webhook POST requests.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	receivedAt := h.config.Now().UTC()

	// Enforce body size limit
	body, err := io.ReadAll(io.LimitReader(r.Body, h.config.MaxBodySize+1))
	if err != nil {
		h.logger.Error("failed to read webhook body", "path", r.URL.Path, "error", err)
		h.respond(w, http.StatusInternalServerError, StatusError)
		return
	}
	if int64(len(body)) > h.config.MaxBodySize {
		metrics.WebhooksReceived.WithLabelValues(metrics.ResultTooLarge).Inc()
		h.respond(w, http.StatusRequestEntityTooLarge, StatusTooLarge)
		return
	}

	// Logged before verification so rejected requests are visible too.
	h.logger.Info("webhook_received",
		"received_at", receivedAt.Format(time.RFC3339Nano),
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"body", prettyBody(body),
	)

	if err := h.verifier.Check(body, signature.FromHeaders(r.Header)); err != nil {
		metrics.WebhooksReceived.WithLabelValues(metrics.ResultRejected).Inc()
		h.logger.Warn("webhook signature verification failed",
			"path", r.URL.Path,
			"error", err,
		)
		h.respond(w, http.StatusForbidden, StatusUnauthorized)
		return
	}

	metrics.WebhooksReceived.WithLabelValues(metrics.ResultAccepted).Inc()
	h.respond(w, http.StatusAccepted, StatusAccepted)
}

// prettyBody indents JSON bodies; anything else is returned as-is.
func prettyBody(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}

func (h *Handler) respond(w http.ResponseWriter, status int, result string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(StatusResponse{Status: result})
}
