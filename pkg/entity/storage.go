package entity

import (
	"fmt"
	"time"
)

// StorageKind distinguishes the collaboration surfaces we audit.
type StorageKind string

const (
	KindSite  StorageKind = "site"
	KindDrive StorageKind = "drive"
	KindTeam  StorageKind = "team"
)

// SharingLink is one sharing grant on a site or drive.
type SharingLink struct {
	// Scope is the audience of the link: "anyone" (anonymous link),
	// "organization", or "users" (direct grants).
	Scope string `json:"scope"`
	// ExternalRecipients lists recipients outside the tenant domain.
	ExternalRecipients []string `json:"externalRecipients,omitempty"`
}

// StorageRecord is a collaboration site, drive, or team storage under
// analysis.
type StorageRecord struct {
	ID          string
	DisplayName string
	WebURL      string
	Kind        StorageKind
	// Live is false for archived or deleted-pending sites.
	Live      bool
	CreatedAt time.Time

	UsedBytes  int64
	QuotaBytes int64

	SharingLinks []SharingLink

	FetchErr error
}

// NewStorageRecord creates a storage record with identity fields set.
func NewStorageRecord(id, displayName string, kind StorageKind) (*StorageRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("storage record: empty id")
	}
	return &StorageRecord{
		ID:          id,
		DisplayName: displayName,
		Kind:        kind,
		Live:        true,
	}, nil
}

func (s *StorageRecord) RecordID() string { return s.ID }
func (s *StorageRecord) Name() string     { return s.DisplayName }
func (s *StorageRecord) Active() bool     { return s.Live }

func (s *StorageRecord) FetchFailed() bool { return s.FetchErr != nil }
func (s *StorageRecord) FetchError() error { return s.FetchErr }

// UsagePercent is used/quota as a percentage. Zero quota yields 0, not a
// division error.
func (s *StorageRecord) UsagePercent() float64 {
	if s.QuotaBytes <= 0 {
		return 0
	}
	return float64(s.UsedBytes) / float64(s.QuotaBytes) * 100
}

// HasExternalSharing reports whether any link reaches outside the tenant.
func (s *StorageRecord) HasExternalSharing() bool {
	for _, l := range s.SharingLinks {
		if l.Scope == "anyone" || len(l.ExternalRecipients) > 0 {
			return true
		}
	}
	return false
}

// HasAnonymousLink reports whether an "anyone" link exists.
func (s *StorageRecord) HasAnonymousLink() bool {
	for _, l := range s.SharingLinks {
		if l.Scope == "anyone" {
			return true
		}
	}
	return false
}
