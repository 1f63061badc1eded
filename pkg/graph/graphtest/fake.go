// Package graphtest provides an in-memory directory service client for
// tests.
package graphtest

import (
	"context"
	"sync"
	"time"

	"tspm/pkg/entity"
	"tspm/pkg/graph"
)

// FakeClient serves canned users and storage records and lets tests
// inject listing and per-entity enrichment failures.
type FakeClient struct {
	Users   []*entity.UserRecord
	Storage []*entity.StorageRecord

	// ListUsersErr / ListStorageErr fail the primary listing call.
	ListUsersErr   error
	ListStorageErr error

	// EnrichErr fails every enrichment sub-fetch for the given record id.
	EnrichErr map[string]error

	// SignInUnsupported makes sign-in activity a tier-unsupported signal.
	SignInUnsupported bool

	mu    sync.Mutex
	calls map[string]int
}

// Calls reports how many times the named method ran.
func (f *FakeClient) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *FakeClient) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[method]++
}

func (f *FakeClient) user(id string) *entity.UserRecord {
	for _, u := range f.Users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (f *FakeClient) storage(id string) *entity.StorageRecord {
	for _, s := range f.Storage {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (f *FakeClient) enrichErr(id string) error {
	if f.EnrichErr == nil {
		return nil
	}
	return f.EnrichErr[id]
}

func (f *FakeClient) ListUsers(_ context.Context, _ graph.UserCriteria) ([]*entity.UserRecord, error) {
	f.record("ListUsers")
	if f.ListUsersErr != nil {
		return nil, f.ListUsersErr
	}
	// Hand out copies with base fields only; enrichment fills the rest.
	out := make([]*entity.UserRecord, 0, len(f.Users))
	for _, u := range f.Users {
		base := &entity.UserRecord{
			ID:                u.ID,
			DisplayName:       u.DisplayName,
			UserPrincipalName: u.UserPrincipalName,
			Enabled:           u.Enabled,
			CreatedAt:         u.CreatedAt,
			SignInSupported:   true,
		}
		out = append(out, base)
	}
	return out, nil
}

func (f *FakeClient) UserAuthMethods(_ context.Context, id string) ([]string, bool, error) {
	f.record("UserAuthMethods")
	if err := f.enrichErr(id); err != nil {
		return nil, false, err
	}
	u := f.user(id)
	if u == nil {
		return nil, false, &graph.APIError{Kind: graph.KindNotFound, Message: id}
	}
	return u.AuthMethods, u.MFARegistered, nil
}

func (f *FakeClient) UserLicenses(_ context.Context, id string) ([]entity.License, error) {
	f.record("UserLicenses")
	if err := f.enrichErr(id); err != nil {
		return nil, err
	}
	u := f.user(id)
	if u == nil {
		return nil, &graph.APIError{Kind: graph.KindNotFound, Message: id}
	}
	return u.Licenses, nil
}

func (f *FakeClient) UserPasswordProfile(_ context.Context, id string) (bool, int, time.Time, error) {
	f.record("UserPasswordProfile")
	if err := f.enrichErr(id); err != nil {
		return false, 0, time.Time{}, err
	}
	u := f.user(id)
	if u == nil {
		return false, 0, time.Time{}, &graph.APIError{Kind: graph.KindNotFound, Message: id}
	}
	return u.PasswordNeverExpires, u.PasswordExpiresInDays, u.LastPasswordChange, nil
}

func (f *FakeClient) UserSignInActivity(_ context.Context, id string) (time.Time, error) {
	f.record("UserSignInActivity")
	if f.SignInUnsupported {
		return time.Time{}, &graph.APIError{Kind: graph.KindTierUnsupported, Message: "signInActivity requires a premium tier"}
	}
	if err := f.enrichErr(id); err != nil {
		return time.Time{}, err
	}
	u := f.user(id)
	if u == nil {
		return time.Time{}, &graph.APIError{Kind: graph.KindNotFound, Message: id}
	}
	return u.LastSignIn, nil
}

func (f *FakeClient) ListStorage(_ context.Context, _ graph.StorageCriteria) ([]*entity.StorageRecord, error) {
	f.record("ListStorage")
	if f.ListStorageErr != nil {
		return nil, f.ListStorageErr
	}
	out := make([]*entity.StorageRecord, 0, len(f.Storage))
	for _, s := range f.Storage {
		out = append(out, &entity.StorageRecord{
			ID:          s.ID,
			DisplayName: s.DisplayName,
			WebURL:      s.WebURL,
			Kind:        s.Kind,
			Live:        s.Live,
			CreatedAt:   s.CreatedAt,
		})
	}
	return out, nil
}

func (f *FakeClient) StorageQuota(_ context.Context, id string) (int64, int64, error) {
	f.record("StorageQuota")
	if err := f.enrichErr(id); err != nil {
		return 0, 0, err
	}
	s := f.storage(id)
	if s == nil {
		return 0, 0, &graph.APIError{Kind: graph.KindNotFound, Message: id}
	}
	return s.UsedBytes, s.QuotaBytes, nil
}

func (f *FakeClient) StorageSharing(_ context.Context, id string) ([]entity.SharingLink, error) {
	f.record("StorageSharing")
	if err := f.enrichErr(id); err != nil {
		return nil, err
	}
	s := f.storage(id)
	if s == nil {
		return nil, &graph.APIError{Kind: graph.KindNotFound, Message: id}
	}
	return s.SharingLinks, nil
}

var _ graph.Client = (*FakeClient)(nil)
