package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/mattjoyce/hookrelay/internal/connection"
	"github.com/mattjoyce/hookrelay/internal/hookdeck"
	"github.com/mattjoyce/hookrelay/internal/metrics"
)

// ErrConnectionNotProvisioned is returned when no connection context is available.
var ErrConnectionNotProvisioned = errors.New("connection not provisioned")

// maxPages bounds pagination when AllPages is set.
const maxPages = 1000

// Client is the upstream surface the lister needs.
type Client interface {
	ListEvents(ctx context.Context, params url.Values) (*hookdeck.EventList, error)
	GetEvent(ctx context.Context, id string) (json.RawMessage, error)
}

// Query narrows the summary listing.
type Query struct {
	Status string
	// CreatedAt maps an operator (gte, gt, lte, lt) to an RFC 3339 timestamp.
	CreatedAt map[string]string
	Limit     int
	// AllPages follows pagination.next until the listing is exhausted.
	AllPages bool
}

func (q Query) params(connectionID string) url.Values {
	v := url.Values{}
	v.Set("connection_id", connectionID)
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	for op, ts := range q.CreatedAt {
		v.Set("created_at["+op+"]", ts)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// Page is a listing whose models have been replaced by full event records.
type Page struct {
	Models     []json.RawMessage   `json:"models"`
	Pagination hookdeck.Pagination `json:"pagination"`
	Count      int                 `json:"count"`
}

// Lister lists the events of the provisioned connection and materializes
// each summary into its full record.
type Lister struct {
	client      Client
	conn        *connection.Context
	concurrency int
	logger      *slog.Logger
}

// New creates a Lister. conn may be nil, in which case List returns
// ErrConnectionNotProvisioned. concurrency <= 1 fetches details sequentially.
func New(client Client, conn *connection.Context, concurrency int, logger *slog.Logger) *Lister {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Lister{client: client, conn: conn, concurrency: concurrency, logger: logger}
}

// List fetches the summary listing, then replaces every summary that has an
// id with its full record. Ordering and length are preserved. Any detail
// failure fails the whole call and no page is returned.
func (l *Lister) List(ctx context.Context, q Query) (*Page, error) {
	if l.conn == nil || l.conn.ConnectionID() == "" {
		return nil, ErrConnectionNotProvisioned
	}

	page, err := l.summaries(ctx, q)
	if err != nil {
		return nil, err
	}

	if err := l.augment(ctx, page.Models); err != nil {
		return nil, err
	}

	l.logger.Debug("events listed",
		"connection_id", l.conn.ConnectionID(),
		"models", len(page.Models),
		"concurrency", l.concurrency,
	)
	return page, nil
}

func (l *Lister) summaries(ctx context.Context, q Query) (*Page, error) {
	params := q.params(l.conn.ConnectionID())

	list, err := l.client.ListEvents(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	page := &Page{
		Models:     list.Models,
		Pagination: list.Pagination,
		Count:      list.Count,
	}

	for pages := 1; q.AllPages && list.Pagination.Next != ""; pages++ {
		if pages >= maxPages {
			return nil, fmt.Errorf("list events: more than %d pages", maxPages)
		}
		params.Set("next", list.Pagination.Next)
		list, err = l.client.ListEvents(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("list events page %d: %w", pages+1, err)
		}
		page.Models = append(page.Models, list.Models...)
		page.Pagination = list.Pagination
	}

	if page.Models == nil {
		page.Models = []json.RawMessage{}
	}
	return page, nil
}

// augment replaces models[i] with the full record of its id, in place.
func (l *Lister) augment(ctx context.Context, models []json.RawMessage) error {
	if l.concurrency == 1 {
		for i, summary := range models {
			full, err := l.detail(ctx, summary)
			if err != nil {
				return err
			}
			if full != nil {
				models[i] = full
			}
		}
		return nil
	}

	// Each goroutine writes only its own slot; nothing is copied back into
	// models unless every fetch succeeded.
	results := make([]json.RawMessage, len(models))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, summary := range models {
		g.Go(func() error {
			full, err := l.detail(gCtx, summary)
			if err != nil {
				return err
			}
			results[i] = full
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, full := range results {
		if full != nil {
			models[i] = full
		}
	}
	return nil
}

// detail returns the full record for a summary, or nil when it has no id.
func (l *Lister) detail(ctx context.Context, summary json.RawMessage) (json.RawMessage, error) {
	id, err := summaryID(summary)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}

	full, err := l.client.GetEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	metrics.EventsAugmented.Inc()
	return full, nil
}

func summaryID(summary json.RawMessage) (string, error) {
	var s struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(summary, &s); err != nil {
		return "", fmt.Errorf("decode event summary: %w", err)
	}
	return s.ID, nil
}
