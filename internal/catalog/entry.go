package catalog

import (
	"strings"
	"time"
	"unicode"
)

// MaxExternalIDLen keeps "get_file_<id>" inside Telegram's 64 byte callback limit.
const MaxExternalIDLen = 64 - len(callbackPrefix)

type Entry struct {
	Title           string
	NormalizedTitle string
	Year            int
	ExternalID      string
	MediaRef        *string
	ThumbnailRef    *string
	ExternalLink    *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Draft is the validated input of an upsert.
type Draft struct {
	Title        string
	Year         int
	ExternalID   string
	MediaRef     *string
	ThumbnailRef *string
	ExternalLink *string
}

func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.ExternalID) == "" {
		return &ValidationError{Reason: ReasonMissingField}
	}
	if len(d.ExternalID) > MaxExternalIDLen {
		return &ValidationError{Reason: ReasonIDTooLong}
	}
	// The id travels in callback data and inside a Markdown link.
	if strings.IndexFunc(d.ExternalID, unicode.IsSpace) >= 0 || strings.Contains(d.ExternalID, "|") {
		return &ValidationError{Reason: ReasonIDInvalid}
	}
	return nil
}

// Entry builds the stored form of the draft stamped at now.
func (d Draft) Entry(now time.Time) Entry {
	return Entry{
		Title:           d.Title,
		NormalizedTitle: Normalize(d.Title),
		Year:            d.Year,
		ExternalID:      d.ExternalID,
		MediaRef:        d.MediaRef,
		ThumbnailRef:    d.ThumbnailRef,
		ExternalLink:    d.ExternalLink,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func Normalize(s string) string {
	return strings.ToLower(s)
}

type User struct {
	ID         int64
	Name       string
	LastActive time.Time
}

func StrPtr(s string) *string { return &s }
