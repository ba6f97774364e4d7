package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"
)

// memStore is an in-process Store with the ordering contract of the Mongo store.
type memStore struct {
	entries map[string]Entry
	err     error
	calls   int
}

func newMemStore() *memStore {
	return &memStore{entries: map[string]Entry{}}
}

func (m *memStore) FindByExactKey(_ context.Context, key string) (*Entry, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	e, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *memStore) FindBySubstring(_ context.Context, text string, limit int) ([]Entry, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Entry, 0)
	for _, e := range m.entries {
		if strings.Contains(e.NormalizedTitle, text) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NormalizedTitle != out[j].NormalizedTitle {
			return out[i].NormalizedTitle < out[j].NormalizedTitle
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) UpsertByKey(_ context.Context, key string, d Draft, now time.Time) (*Entry, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	e := d.Entry(now)
	if prev, ok := m.entries[key]; ok {
		e.CreatedAt = prev.CreatedAt
	}
	m.entries[key] = e
	return &e, nil
}

func seed(t *testing.T, svc *Service, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if _, err := svc.Ingest(context.Background(), l); err != nil {
			t.Fatalf("Ingest(%q) error: %v", l, err)
		}
	}
}

func TestFindOneMatchesAnyCaseSubstring(t *testing.T) {
	svc := NewService(newMemStore(), time.Second)
	seed(t, svc,
		"Interstellar | 2014 | tt0816692",
		"The Matrix | 1999 | tt0133093",
		"Inception | 2010 | tt1375666",
	)

	tests := []struct {
		query  string
		wantID string
	}{
		{"Interstellar", "tt0816692"},
		{"interSTELLAR", "tt0816692"},
		{"stell", "tt0816692"},
		{"MATRIX", "tt0133093"},
		{"e ma", "tt0133093"},
		{"ception", "tt1375666"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			e, err := svc.FindOne(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("FindOne(%q) error: %v", tt.query, err)
			}
			if e.ExternalID != tt.wantID {
				t.Errorf("FindOne(%q) = %s, want %s", tt.query, e.ExternalID, tt.wantID)
			}
		})
	}
}

func TestFindOneTieBreakIsTitleOrder(t *testing.T) {
	svc := NewService(newMemStore(), time.Second)
	seed(t, svc,
		"The Matrix Reloaded | 2003 | tt0234215",
		"The Matrix | 1999 | tt0133093",
		"The Matrix Revolutions | 2003 | tt0242653",
	)

	for i := 0; i < 3; i++ {
		e, err := svc.FindOne(context.Background(), "matrix")
		if err != nil {
			t.Fatalf("FindOne error: %v", err)
		}
		if e.ExternalID != "tt0133093" {
			t.Fatalf("FindOne = %s, want tt0133093", e.ExternalID)
		}
	}
}

func TestFindOneEmptyQueryMatchesEverything(t *testing.T) {
	svc := NewService(newMemStore(), time.Second)
	seed(t, svc, "Zodiac | 2007 | tt0443706", "Alien | 1979 | tt0078748")

	e, err := svc.FindOne(context.Background(), "")
	if err != nil {
		t.Fatalf("FindOne error: %v", err)
	}
	if e.ExternalID != "tt0078748" {
		t.Errorf("FindOne(\"\") = %s, want first in title order", e.ExternalID)
	}
}

func TestBlankQueryMatchesEverything(t *testing.T) {
	svc := NewService(newMemStore(), time.Second)
	seed(t, svc, "Zodiac | 2007 | tt0443706", "Alien | 1979 | tt0078748")

	for _, q := range []string{" ", "   ", "\t", " \n "} {
		e, err := svc.FindOne(context.Background(), q)
		if err != nil {
			t.Fatalf("FindOne(%q) error: %v", q, err)
		}
		if e.ExternalID != "tt0078748" {
			t.Errorf("FindOne(%q) = %s, want tt0078748", q, e.ExternalID)
		}

		many, err := svc.FindMany(context.Background(), q, 10)
		if err != nil {
			t.Fatalf("FindMany(%q) error: %v", q, err)
		}
		if len(many) != 2 {
			t.Errorf("FindMany(%q) len = %d, want 2", q, len(many))
		}
	}
}

func TestFindOneNotFound(t *testing.T) {
	svc := NewService(newMemStore(), time.Second)
	seed(t, svc, "Interstellar | 2014 | tt0816692")

	_, err := svc.FindOne(context.Background(), "godfather")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindOne error = %v, want ErrNotFound", err)
	}
	if errors.Is(err, ErrStoreUnavailable) {
		t.Error("not found must not be reported as store unavailable")
	}
}

func TestStoreFailureIsUnavailable(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	svc := NewService(store, time.Second)

	_, err := svc.FindOne(context.Background(), "x")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("FindOne error = %v, want ErrStoreUnavailable", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("FindOne store failure reported as not found")
	}

	if _, err := svc.FindMany(context.Background(), "x", 5); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("FindMany error = %v, want ErrStoreUnavailable", err)
	}
	if _, err := svc.FindByKey(context.Background(), "tt1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("FindByKey error = %v, want ErrStoreUnavailable", err)
	}
	if _, err := svc.Ingest(context.Background(), "A | 2000 | tt1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Ingest error = %v, want ErrStoreUnavailable", err)
	}
}

func TestFindMany(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, time.Second)
	seed(t, svc,
		"Star Wars | 1977 | tt0076759",
		"Star Trek | 2009 | tt0796366",
		"A Star Is Born | 2018 | tt1517451",
		"Lone Star | 1996 | tt0116905",
		"Heat | 1995 | tt0113277",
	)

	tests := []struct {
		name  string
		query string
		limit int
		want  int
	}{
		{"under limit", "star", 10, 4},
		{"capped by limit", "star", 2, 2},
		{"no match", "godfather", 10, 0},
		{"zero limit", "star", 0, 0},
		{"negative limit", "star", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.FindMany(context.Background(), tt.query, tt.limit)
			if err != nil {
				t.Fatalf("FindMany error: %v", err)
			}
			if got == nil {
				t.Fatal("FindMany returned nil, want empty slice")
			}
			if len(got) != tt.want {
				t.Errorf("FindMany(%q, %d) len = %d, want %d", tt.query, tt.limit, len(got), tt.want)
			}
			for _, e := range got {
				if !strings.Contains(e.NormalizedTitle, Normalize(tt.query)) {
					t.Errorf("FindMany returned non-matching entry %q", e.Title)
				}
			}
		})
	}
}

func TestFindManyZeroLimitSkipsStore(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("must not be called")
	svc := NewService(store, time.Second)

	got, err := svc.FindMany(context.Background(), "x", 0)
	if err != nil {
		t.Fatalf("FindMany error: %v", err)
	}
	if len(got) != 0 || store.calls != 0 {
		t.Errorf("FindMany(0) = %d entries, %d store calls", len(got), store.calls)
	}
}

func TestFindByKey(t *testing.T) {
	svc := NewService(newMemStore(), time.Second)
	seed(t, svc, "Heat | 1995 | tt0113277")

	e, err := svc.FindByKey(context.Background(), "tt0113277")
	if err != nil {
		t.Fatalf("FindByKey error: %v", err)
	}
	if e.Title != "Heat" {
		t.Errorf("FindByKey title = %q", e.Title)
	}
	if _, err := svc.FindByKey(context.Background(), "tt0000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByKey missing error = %v, want ErrNotFound", err)
	}
}
