package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"tspm/pkg/entity"
	"tspm/pkg/graph"
	"tspm/pkg/riskposture"
)

// Fetcher retrieves all entities for one domain, enrichment included.
// The bool result reports whether the sign-in activity signal is
// available at the tenant's subscription tier.
type Fetcher interface {
	Domain() riskposture.Domain
	FetchAll(ctx context.Context) ([]entity.Record, bool, error)
}

// UserFetcher lists directory users and enriches each with auth methods,
// license details, password profile and sign-in activity. A failed
// enrichment marks that one record; only the primary listing call is
// fatal.
type UserFetcher struct {
	Client   graph.Client
	For      riskposture.Domain
	Criteria graph.UserCriteria
	// Concurrency bounds the enrichment worker pool. 0 or 1 means
	// sequential.
	Concurrency int
	// ProgressEvery emits a progress tick every N enriched records.
	ProgressEvery int
	Progress      ProgressHandler
}

func (f *UserFetcher) Domain() riskposture.Domain { return f.For }

func (f *UserFetcher) FetchAll(ctx context.Context) ([]entity.Record, bool, error) {
	users, err := f.Client.ListUsers(ctx, f.Criteria)
	if err != nil {
		return nil, true, fmt.Errorf("primary user listing: %w", err)
	}

	var supported atomic.Bool
	supported.Store(true)
	var processed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(poolSize(f.Concurrency))
	for _, u := range users {
		u := u
		g.Go(func() error {
			f.enrich(ctx, u, &supported)
			tick(f.Progress, f.ProgressEvery, int(processed.Add(1)), len(users))
			return nil
		})
	}
	// Workers never return errors; failures stay on their own record.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, supported.Load(), fmt.Errorf("user enrichment: %w", err)
	}

	// Original listing order is kept: workers write only their own slot.
	out := make([]entity.Record, 0, len(users))
	for _, u := range users {
		if !supported.Load() {
			u.SignInSupported = false
		}
		out = append(out, u)
	}
	return out, supported.Load(), nil
}

func (f *UserFetcher) enrich(ctx context.Context, u *entity.UserRecord, supported *atomic.Bool) {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	methods, mfa, err := f.Client.UserAuthMethods(ctx, u.ID)
	if err == nil {
		u.AuthMethods = methods
		u.MFARegistered = mfa
	}
	keep(err)

	lics, err := f.Client.UserLicenses(ctx, u.ID)
	if err == nil {
		u.Licenses = lics
	}
	keep(err)

	never, days, changed, err := f.Client.UserPasswordProfile(ctx, u.ID)
	if err == nil {
		u.PasswordNeverExpires = never
		u.LastPasswordChange = changed
		if !never {
			u.PasswordExpiresInDays = days
		}
	}
	keep(err)

	last, err := f.Client.UserSignInActivity(ctx, u.ID)
	switch {
	case graph.IsTierUnsupported(err):
		// Capability gap for the whole tenant, not a record failure.
		supported.Store(false)
	case err == nil:
		u.LastSignIn = last
	default:
		keep(err)
	}

	if firstErr != nil {
		u.FetchErr = entity.WrapEnrichment(firstErr)
	}
}

// StorageFetcher lists sites/drives and enriches each with quota usage
// and sharing grants.
type StorageFetcher struct {
	Client        graph.Client
	For           riskposture.Domain
	Criteria      graph.StorageCriteria
	Concurrency   int
	ProgressEvery int
	Progress      ProgressHandler
}

func (f *StorageFetcher) Domain() riskposture.Domain { return f.For }

func (f *StorageFetcher) FetchAll(ctx context.Context) ([]entity.Record, bool, error) {
	sites, err := f.Client.ListStorage(ctx, f.Criteria)
	if err != nil {
		return nil, true, fmt.Errorf("primary storage listing: %w", err)
	}

	var processed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(poolSize(f.Concurrency))
	for _, s := range sites {
		s := s
		g.Go(func() error {
			f.enrich(ctx, s)
			tick(f.Progress, f.ProgressEvery, int(processed.Add(1)), len(sites))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, true, fmt.Errorf("storage enrichment: %w", err)
	}

	out := make([]entity.Record, 0, len(sites))
	for _, s := range sites {
		out = append(out, s)
	}
	return out, true, nil
}

func (f *StorageFetcher) enrich(ctx context.Context, s *entity.StorageRecord) {
	var firstErr error

	used, total, err := f.Client.StorageQuota(ctx, s.ID)
	if err == nil {
		s.UsedBytes = used
		s.QuotaBytes = total
	} else {
		firstErr = err
	}

	links, err := f.Client.StorageSharing(ctx, s.ID)
	if err == nil {
		s.SharingLinks = links
	} else if firstErr == nil {
		firstErr = err
	}

	if firstErr != nil {
		s.FetchErr = entity.WrapEnrichment(firstErr)
	}
}

func poolSize(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func tick(h ProgressHandler, every, processed, total int) {
	if h == nil || every <= 0 {
		return
	}
	if processed%every == 0 || processed == total {
		h.HandleProgress(ProgressEvent{
			Stage:     StateFetching,
			Processed: processed,
			Total:     total,
			Message:   tickMessage(processed, total),
		})
	}
}
