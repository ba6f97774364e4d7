package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is an empty lookup result, not a failure.
	ErrNotFound = errors.New("catalog: entry not found")
	// ErrStoreUnavailable wraps every collaborator failure of the catalog store.
	ErrStoreUnavailable = errors.New("catalog: store unavailable")
)

const (
	ReasonMissingField = "missing required field"
	ReasonYearNumeric  = "year not numeric"
	ReasonIDTooLong    = "external id too long"
	ReasonIDInvalid    = "external id contains spaces or |"
)

// ValidationError is a user-correctable ingestion error; Reason is shown verbatim.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// DeliveryError reports that the transport failed to send the media of an entry.
type DeliveryError struct {
	ExternalID string
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s: %v", e.ExternalID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func unavailable(op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}
