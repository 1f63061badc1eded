// Package graph is the client for the tenant directory/collaboration
// service: paginated entity listings plus per-entity enrichment
// sub-resources.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"tspm/pkg/entity"
)

// UserCriteria narrows a user listing.
type UserCriteria struct {
	// EnabledOnly drops disabled accounts at the service side.
	EnabledOnly bool
	// Domain filters users by UPN suffix, empty for all.
	Domain string
}

// StorageCriteria narrows a storage listing.
type StorageCriteria struct {
	// Kind filters by surface kind, empty for all.
	Kind entity.StorageKind
}

// Client is the read surface of the directory service the pipeline needs.
type Client interface {
	// ListUsers is the primary user listing; failure aborts the run.
	ListUsers(ctx context.Context, c UserCriteria) ([]*entity.UserRecord, error)
	// Per-user enrichment sub-fetches. Failures are per-entity.
	UserAuthMethods(ctx context.Context, id string) (methods []string, mfaRegistered bool, err error)
	UserLicenses(ctx context.Context, id string) ([]entity.License, error)
	UserPasswordProfile(ctx context.Context, id string) (neverExpires bool, expiresInDays int, lastChanged time.Time, err error)
	// UserSignInActivity returns a tier-unsupported APIError on tenants
	// whose subscription does not expose sign-in history.
	UserSignInActivity(ctx context.Context, id string) (time.Time, error)

	// ListStorage is the primary site/drive listing.
	ListStorage(ctx context.Context, c StorageCriteria) ([]*entity.StorageRecord, error)
	StorageQuota(ctx context.Context, id string) (used, total int64, err error)
	StorageSharing(ctx context.Context, id string) ([]entity.SharingLink, error)
}

// Options configure the HTTP client.
type Options struct {
	// BaseURL of the service, e.g. https://directory.example.com/v1.
	BaseURL string
	// TenantID scopes every request path.
	TenantID string
	// TokenSource supplies bearer tokens. Authentication itself is the
	// caller's concern; see ClientCredentials for the common case.
	TokenSource oauth2.TokenSource
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
	// RequestsPerSecond throttles outgoing calls. 0 means 10.
	RequestsPerSecond float64
	// MaxRetries bounds transient/rate-limit retries per call. 0 means 3.
	MaxRetries int
}

// ClientCredentials builds a token source from an OAuth2 client
// credentials grant.
func ClientCredentials(tokenURL, clientID, clientSecret string, scopes []string) oauth2.TokenSource {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	return cfg.TokenSource(context.Background())
}

// HTTPClient talks to the directory service over REST with cursor
// pagination, bearer auth, client-side throttling and bounded retries.
type HTTPClient struct {
	base       *url.URL
	tenant     string
	hc         *http.Client
	tokens     oauth2.TokenSource
	limiter    *rate.Limiter
	maxRetries int
}

// NewHTTPClient validates options and builds the client.
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("graph: base URL is required")
	}
	if opts.TenantID == "" {
		return nil, fmt.Errorf("graph: tenant id is required")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("graph: parse base URL: %w", err)
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{
		base:       base,
		tenant:     opts.TenantID,
		hc:         hc,
		tokens:     opts.TokenSource,
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)),
		maxRetries: retries,
	}, nil
}

// envelope is the service's standard list/page wrapper.
type envelope struct {
	Value    json.RawMessage `json:"value"`
	NextLink string          `json:"nextLink"`
	Error    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, out any) (string, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + c.tenant + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		next, err := c.doOnce(ctx, u.String(), out)
		if err == nil {
			return next, nil
		}
		lastErr = err

		var delay time.Duration
		switch {
		case IsRateLimited(err):
			delay = time.Second
			var ae *APIError
			if errors.As(err, &ae) && ae.RetryAfter > 0 {
				delay = ae.RetryAfter
			}
		case IsKind(err, KindTransient):
			delay = time.Duration(attempt+1) * 500 * time.Millisecond
		default:
			return "", err
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", fmt.Errorf("graph: retries exhausted: %w", lastErr)
}

func (c *HTTPClient) doOnce(ctx context.Context, rawURL string, out any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return "", &APIError{Kind: KindUnauthorized, Message: fmt.Sprintf("token source: %v", err)}
		}
		tok.SetAuthHeader(req)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", &APIError{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &APIError{Kind: KindTransient, StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp, body)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("graph: decode response: %w", err)
	}
	payload := env.Value
	if payload == nil {
		// Singular resources are returned bare, not wrapped.
		payload = body
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return "", fmt.Errorf("graph: decode payload: %w", err)
		}
	}
	return env.NextLink, nil
}

func statusError(resp *http.Response, body []byte) *APIError {
	var env envelope
	_ = json.Unmarshal(body, &env)
	msg := ""
	code := ""
	if env.Error != nil {
		msg = env.Error.Message
		code = env.Error.Code
	}

	ae := &APIError{StatusCode: resp.StatusCode, Message: msg}
	switch {
	case code == "tierUnsupported" || resp.StatusCode == http.StatusPaymentRequired:
		ae.Kind = KindTierUnsupported
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		ae.Kind = KindUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		ae.Kind = KindRateLimited
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				ae.RetryAfter = time.Duration(secs) * time.Second
			}
		}
	case resp.StatusCode == http.StatusNotFound:
		ae.Kind = KindNotFound
	default:
		ae.Kind = KindTransient
	}
	return ae
}

type userDTO struct {
	ID                string    `json:"id"`
	DisplayName       string    `json:"displayName"`
	UserPrincipalName string    `json:"userPrincipalName"`
	AccountEnabled    bool      `json:"accountEnabled"`
	CreatedAt         time.Time `json:"createdDateTime"`
}

// ListUsers pages through the user collection and returns base records.
func (c *HTTPClient) ListUsers(ctx context.Context, crit UserCriteria) ([]*entity.UserRecord, error) {
	query := url.Values{}
	if crit.EnabledOnly {
		query.Set("enabledOnly", "true")
	}
	if crit.Domain != "" {
		query.Set("domain", crit.Domain)
	}

	var out []*entity.UserRecord
	cursor := ""
	for {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var page []userDTO
		next, err := c.get(ctx, "/users", q, &page)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		for _, dto := range page {
			rec, err := entity.NewUserRecord(dto.ID, dto.DisplayName)
			if err != nil {
				return nil, fmt.Errorf("list users: %w", err)
			}
			rec.UserPrincipalName = dto.UserPrincipalName
			rec.Enabled = dto.AccountEnabled
			rec.CreatedAt = dto.CreatedAt
			out = append(out, rec)
		}
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

func (c *HTTPClient) UserAuthMethods(ctx context.Context, id string) ([]string, bool, error) {
	var dto struct {
		Methods       []string `json:"methods"`
		MFARegistered bool     `json:"mfaRegistered"`
	}
	if _, err := c.get(ctx, "/users/"+url.PathEscape(id)+"/authMethods", nil, &dto); err != nil {
		return nil, false, err
	}
	return dto.Methods, dto.MFARegistered, nil
}

func (c *HTTPClient) UserLicenses(ctx context.Context, id string) ([]entity.License, error) {
	var dto []entity.License
	if _, err := c.get(ctx, "/users/"+url.PathEscape(id)+"/licenseDetails", nil, &dto); err != nil {
		return nil, err
	}
	return dto, nil
}

func (c *HTTPClient) UserPasswordProfile(ctx context.Context, id string) (bool, int, time.Time, error) {
	var dto struct {
		NeverExpires  bool      `json:"neverExpires"`
		ExpiresInDays int       `json:"expiresInDays"`
		LastChanged   time.Time `json:"lastChanged"`
	}
	if _, err := c.get(ctx, "/users/"+url.PathEscape(id)+"/passwordProfile", nil, &dto); err != nil {
		return false, 0, time.Time{}, err
	}
	return dto.NeverExpires, dto.ExpiresInDays, dto.LastChanged, nil
}

func (c *HTTPClient) UserSignInActivity(ctx context.Context, id string) (time.Time, error) {
	var dto struct {
		LastSignIn time.Time `json:"lastSignIn"`
	}
	if _, err := c.get(ctx, "/users/"+url.PathEscape(id)+"/signInActivity", nil, &dto); err != nil {
		return time.Time{}, err
	}
	return dto.LastSignIn, nil
}

type storageDTO struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	WebURL      string    `json:"webUrl"`
	Kind        string    `json:"kind"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"createdDateTime"`
}

// ListStorage pages through the site/drive collection.
func (c *HTTPClient) ListStorage(ctx context.Context, crit StorageCriteria) ([]*entity.StorageRecord, error) {
	var out []*entity.StorageRecord
	cursor := ""
	for {
		q := url.Values{}
		if crit.Kind != "" {
			q.Set("kind", string(crit.Kind))
		}
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var page []storageDTO
		next, err := c.get(ctx, "/storage", q, &page)
		if err != nil {
			return nil, fmt.Errorf("list storage: %w", err)
		}
		for _, dto := range page {
			rec, err := entity.NewStorageRecord(dto.ID, dto.DisplayName, entity.StorageKind(dto.Kind))
			if err != nil {
				return nil, fmt.Errorf("list storage: %w", err)
			}
			rec.WebURL = dto.WebURL
			rec.Live = !dto.Archived
			rec.CreatedAt = dto.CreatedAt
			out = append(out, rec)
		}
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

func (c *HTTPClient) StorageQuota(ctx context.Context, id string) (int64, int64, error) {
	var dto struct {
		Used  int64 `json:"used"`
		Total int64 `json:"total"`
	}
	if _, err := c.get(ctx, "/storage/"+url.PathEscape(id)+"/quota", nil, &dto); err != nil {
		return 0, 0, err
	}
	return dto.Used, dto.Total, nil
}

func (c *HTTPClient) StorageSharing(ctx context.Context, id string) ([]entity.SharingLink, error) {
	var dto []entity.SharingLink
	if _, err := c.get(ctx, "/storage/"+url.PathEscape(id)+"/sharing", nil, &dto); err != nil {
		return nil, err
	}
	return dto, nil
}
