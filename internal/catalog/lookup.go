package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"moviefilter-bot/internal/metrics"
)

const (
	DefaultLimit = 10
	// MaxLimit matches the number of results Telegram accepts in one inline answer.
	MaxLimit = 50

	defaultStoreTimeout = 5 * time.Second
)

// Store is the document store holding catalog entries. Implementations return
// ErrNotFound from FindByExactKey for a missing key and order FindBySubstring
// results by normalized title, then external id.
type Store interface {
	FindByExactKey(ctx context.Context, key string) (*Entry, error)
	FindBySubstring(ctx context.Context, text string, limit int) ([]Entry, error)
	UpsertByKey(ctx context.Context, key string, d Draft, now time.Time) (*Entry, error)
}

type Service struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
}

func NewService(store Store, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &Service{store: store, timeout: timeout, now: time.Now}
}

// FindOne returns the first entry whose title contains query, ignoring case.
func (s *Service) FindOne(ctx context.Context, query string) (*Entry, error) {
	entries, err := s.search(ctx, query, 1)
	if err != nil {
		metrics.Lookups.WithLabelValues("one", metrics.ResultError).Inc()
		return nil, unavailable("find one", err)
	}
	if len(entries) == 0 {
		metrics.Lookups.WithLabelValues("one", metrics.ResultMiss).Inc()
		return nil, ErrNotFound
	}
	metrics.Lookups.WithLabelValues("one", metrics.ResultHit).Inc()
	return &entries[0], nil
}

// FindMany returns up to limit entries whose title contains query. A non-positive
// limit yields an empty result without a store round trip.
func (s *Service) FindMany(ctx context.Context, query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	entries, err := s.search(ctx, query, limit)
	if err != nil {
		metrics.Lookups.WithLabelValues("many", metrics.ResultError).Inc()
		return nil, unavailable("find many", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	result := metrics.ResultHit
	if len(entries) == 0 {
		result = metrics.ResultMiss
	}
	metrics.Lookups.WithLabelValues("many", result).Inc()
	return entries, nil
}

// FindByKey looks an entry up by its external id.
func (s *Service) FindByKey(ctx context.Context, externalID string) (*Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	e, err := s.store.FindByExactKey(ctx, strings.TrimSpace(externalID))
	switch {
	case errors.Is(err, ErrNotFound):
		metrics.Lookups.WithLabelValues("key", metrics.ResultMiss).Inc()
		return nil, ErrNotFound
	case err != nil:
		metrics.Lookups.WithLabelValues("key", metrics.ResultError).Inc()
		return nil, unavailable("find by key", err)
	case e == nil:
		metrics.Lookups.WithLabelValues("key", metrics.ResultMiss).Inc()
		return nil, ErrNotFound
	}
	metrics.Lookups.WithLabelValues("key", metrics.ResultHit).Inc()
	return e, nil
}

func (s *Service) search(ctx context.Context, query string, limit int) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	// A blank query is the empty substring, which every title contains.
	if strings.TrimSpace(query) == "" {
		query = ""
	}
	return s.store.FindBySubstring(ctx, Normalize(query), limit)
}
