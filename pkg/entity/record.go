package entity

import (
	"errors"
	"fmt"
)

// ErrEnrichment marks a record whose per-entity enrichment failed. The
// record still carries its identifier and display name so it shows up in
// every downstream stage and report.
var ErrEnrichment = errors.New("entity enrichment failed")

// Record is one subject of analysis: a directory user, a collaboration
// site, or a storage drive.
type Record interface {
	RecordID() string
	Name() string
	// Active reports whether the subject is enabled (user account) or
	// live (site/drive not archived).
	Active() bool
	// FetchFailed reports whether enrichment for this record failed.
	FetchFailed() bool
	// FetchError returns the enrichment failure, nil when none.
	FetchError() error
}

// WrapEnrichment attaches the enrichment sentinel to a per-entity failure.
func WrapEnrichment(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrEnrichment, err)
}
