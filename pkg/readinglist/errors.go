package readinglist

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveTab is returned when there is no page to save.
	ErrNoActiveTab = errors.New("no active tab found")
	// ErrUnsupportedURL is returned for pages that are not http or https.
	ErrUnsupportedURL = errors.New("can only add web pages (http/https)")
	// ErrPartialUpdate marks a status change that removed the entry but
	// could neither re-add it with the new status nor restore it.
	ErrPartialUpdate = errors.New("status update partially failed")
)

// PartialUpdateError reports a status change that left the entry missing
// from the store.
type PartialUpdateError struct {
	URL         string
	AddErr      error
	RollbackErr error
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("update %s: entry removed but not re-added (%v); restore failed: %v", e.URL, e.AddErr, e.RollbackErr)
}

func (e *PartialUpdateError) Is(target error) bool { return target == ErrPartialUpdate }

func (e *PartialUpdateError) Unwrap() []error { return []error{e.AddErr, e.RollbackErr} }
