package entity

import (
	"fmt"
	"time"
)

// License is one assigned subscription SKU.
type License struct {
	SKUID   string `json:"skuId"`
	SKUName string `json:"skuName"`
}

// UserRecord is a directory user under analysis.
type UserRecord struct {
	ID                string
	DisplayName       string
	UserPrincipalName string
	Enabled           bool
	CreatedAt         time.Time

	Licenses      []License
	AuthMethods   []string
	MFARegistered bool

	PasswordNeverExpires bool
	// PasswordExpiresInDays is filled by the fetcher from the tenant
	// password policy. Meaningless when PasswordNeverExpires is set.
	PasswordExpiresInDays int
	LastPasswordChange    time.Time

	LastSignIn time.Time
	// SignInSupported is false when the tenant's subscription tier does
	// not expose sign-in activity. Not a fetch failure.
	SignInSupported bool

	FetchErr error
}

// NewUserRecord creates a user record with the identity fields every
// downstream stage relies on.
func NewUserRecord(id, displayName string) (*UserRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("user record: empty id")
	}
	return &UserRecord{
		ID:              id,
		DisplayName:     displayName,
		SignInSupported: true,
	}, nil
}

func (u *UserRecord) RecordID() string { return u.ID }
func (u *UserRecord) Name() string     { return u.DisplayName }
func (u *UserRecord) Active() bool     { return u.Enabled }

func (u *UserRecord) FetchFailed() bool { return u.FetchErr != nil }
func (u *UserRecord) FetchError() error { return u.FetchErr }

// Licensed reports whether the user has at least one assigned license.
func (u *UserRecord) Licensed() bool { return len(u.Licenses) > 0 }

// InactiveSince reports whether the last sign-in is older than the given
// number of days. Always false when the sign-in signal is unsupported.
func (u *UserRecord) InactiveSince(days int, now time.Time) bool {
	if !u.SignInSupported || u.LastSignIn.IsZero() {
		return false
	}
	return now.Sub(u.LastSignIn) > time.Duration(days)*24*time.Hour
}
