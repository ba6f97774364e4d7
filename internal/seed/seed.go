// Package seed bulk loads catalog entries from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"moviefilter-bot/internal/catalog"
	"moviefilter-bot/internal/logger"
)

// File is the on-disk layout:
//
//	movies:
//	  - title: Heat
//	    year: 1995
//	    external_id: tt0113277
//	    media_ref: BQACAgIAAxk
//	    external_link: https://example.com/heat
type File struct {
	Movies []Movie `yaml:"movies"`
}

type Movie struct {
	Title        string `yaml:"title"`
	Year         int    `yaml:"year"`
	ExternalID   string `yaml:"external_id"`
	MediaRef     string `yaml:"media_ref"`
	ThumbnailRef string `yaml:"thumbnail_ref"`
	ExternalLink string `yaml:"external_link"`
}

func (m Movie) draft() catalog.Draft {
	return catalog.Draft{
		Title:        strings.TrimSpace(m.Title),
		Year:         m.Year,
		ExternalID:   strings.TrimSpace(m.ExternalID),
		MediaRef:     optional(m.MediaRef),
		ThumbnailRef: optional(m.ThumbnailRef),
		ExternalLink: optional(m.ExternalLink),
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" || v == "None" {
		return nil
	}
	return &v
}

func Load(path string) ([]catalog.Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates every movie. The first invalid movie fails the
// whole file so a partial import never happens by accident.
func Parse(data []byte) ([]catalog.Draft, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed yaml: %w", err)
	}
	drafts := make([]catalog.Draft, 0, len(f.Movies))
	for i, m := range f.Movies {
		d := m.draft()
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("movie #%d (%q): %w", i+1, m.Title, err)
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

type Upserter interface {
	Upsert(ctx context.Context, d catalog.Draft) (*catalog.Entry, error)
}

// Import upserts drafts in order and stops at the first store failure.
func Import(ctx context.Context, u Upserter, drafts []catalog.Draft, log logger.Logger) (int, error) {
	imported := 0
	for _, d := range drafts {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		e, err := u.Upsert(ctx, d)
		if err != nil {
			var verr *catalog.ValidationError
			if errors.As(err, &verr) {
				log.Warn("skipping invalid movie", logger.String("external_id", d.ExternalID), logger.Error(err))
				continue
			}
			return imported, fmt.Errorf("import %s: %w", d.ExternalID, err)
		}
		log.Debug("movie imported", logger.String("external_id", e.ExternalID), logger.String("title", e.Title))
		imported++
	}
	return imported, nil
}
