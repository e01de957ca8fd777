package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mattjoyce/hookrelay/internal/events"
	"github.com/mattjoyce/hookrelay/internal/hookdeck"
	"github.com/mattjoyce/hookrelay/internal/publish"
)

var createdAtOps = []string{"gte", "gt", "lte", "lt"}

// handleRoot handles GET / (liveness).
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Hello, World!"))
}

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Provisioned:   s.conn != nil,
	}
	if s.conn != nil {
		resp.Connection = &ConnectionInfo{
			ID:          s.conn.ConnectionID(),
			Name:        s.conn.ConnectionName(),
			SourceID:    s.conn.SourceID(),
			SourceURL:   s.conn.SourceURL(),
			Destination: s.conn.DestinationName(),
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// handlePublish handles GET /publish: publishes a synthetic event into the
// provisioned source.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	payload := publish.SamplePayload(s.now())

	if err := s.publisher.Publish(r.Context(), payload); err != nil {
		s.writeUpstreamError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PublishResponse{Status: "PUBLISHED", Payload: payload})
}

// handleEvents handles GET /events: lists the connection's events with full
// detail.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseEventsQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.lister.List(r.Context(), q)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (s *Server) parseEventsQuery(r *http.Request) (events.Query, error) {
	values := r.URL.Query()
	q := events.Query{
		Status:   values.Get("status"),
		AllPages: s.config.AllPages,
	}

	if v := values.Get("all_pages"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, errors.New("all_pages must be a boolean")
		}
		q.AllPages = b
	}

	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, errors.New("limit must be a positive integer")
		}
		q.Limit = n
	}

	for _, op := range createdAtOps {
		v := values.Get("created_at[" + op + "]")
		if v == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339, v); err != nil {
			return q, errors.New("created_at[" + op + "] must be an RFC 3339 timestamp")
		}
		if q.CreatedAt == nil {
			q.CreatedAt = make(map[string]string)
		}
		q.CreatedAt[op] = v
	}

	return q, nil
}

// writeUpstreamError maps publisher and lister failures onto HTTP statuses.
func (s *Server) writeUpstreamError(w http.ResponseWriter, err error) {
	var apiErr *hookdeck.APIError
	switch {
	case errors.Is(err, publish.ErrSourceNotProvisioned), errors.Is(err, events.ErrConnectionNotProvisioned):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &apiErr):
		s.logger.Error("upstream request failed", "op", apiErr.Op, "status", apiErr.StatusCode, "body", apiErr.Body)
		respondJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:          err.Error(),
			UpstreamStatus: apiErr.StatusCode,
		})
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusBadGateway, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
