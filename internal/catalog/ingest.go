package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"moviefilter-bot/internal/metrics"
)

const (
	IngestDelimiter = " | "
	// absentToken marks an optional field as not provided.
	absentToken = "None"
)

// ParseIngest reads "Title | Year | ExternalId | FileRef | ThumbRef | Link".
// The last three fields are optional.
func ParseIngest(raw string) (Draft, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Draft{}, &ValidationError{Reason: ReasonMissingField}
	}
	parts := strings.Split(raw, IngestDelimiter)
	if len(parts) < 3 {
		return Draft{}, &ValidationError{Reason: ReasonMissingField}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return Draft{}, &ValidationError{Reason: ReasonYearNumeric}
	}

	d := Draft{
		Title:        parts[0],
		Year:         year,
		ExternalID:   parts[2],
		MediaRef:     optionalField(parts, 3),
		ThumbnailRef: optionalField(parts, 4),
		ExternalLink: optionalField(parts, 5),
	}
	if err := d.Validate(); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func optionalField(parts []string, i int) *string {
	if i >= len(parts) {
		return nil
	}
	v := parts[i]
	if v == "" || v == absentToken {
		return nil
	}
	return &v
}

// Ingest parses an admin command line and upserts the resulting entry.
func (s *Service) Ingest(ctx context.Context, raw string) (*Entry, error) {
	d, err := ParseIngest(raw)
	if err != nil {
		metrics.Ingestions.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, err
	}
	return s.Upsert(ctx, d)
}

// Upsert stores d under its external id, replacing the fields of any prior entry.
func (s *Service) Upsert(ctx context.Context, d Draft) (*Entry, error) {
	if err := d.Validate(); err != nil {
		metrics.Ingestions.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	e, err := s.store.UpsertByKey(ctx, d.ExternalID, d, s.now().UTC())
	if err != nil {
		metrics.Ingestions.WithLabelValues(metrics.ResultError).Inc()
		return nil, unavailable("upsert", err)
	}
	if e == nil {
		metrics.Ingestions.WithLabelValues(metrics.ResultError).Inc()
		return nil, unavailable("upsert", errors.New("store returned no document"))
	}
	metrics.Ingestions.WithLabelValues(metrics.ResultOK).Inc()
	return e, nil
}
