package checklist

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTruck      = errors.New("unknown truck")
	ErrNoTruckSelected   = errors.New("please select a truck first")
	ErrInspectorRequired = errors.New("inspector name is required")
	ErrSaveFailed        = errors.New("failed to save inspection")
	ErrSessionNotFound   = errors.New("session not found")
)

// Form field identifiers reported with validation failures so the client can
// focus the offending input.
const (
	FieldTruck     = "truck-number-input"
	FieldInspector = "inspector-name"
)

// ValidationError is returned by Submit when the form is incomplete.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// ItemError reports a section/item pair that is not part of the current checklist.
type ItemError struct {
	Section string
	Item    string
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("no item %q in section %q", e.Item, e.Section)
}
