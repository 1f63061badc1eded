package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, handler http.Handler) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(Options{
		BaseURL:           srv.URL,
		TenantID:          "contoso",
		TokenSource:       oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}),
		RequestsPerSecond: 1000,
		MaxRetries:        2,
	})
	require.NoError(t, err)
	return c, srv
}

func TestNewHTTPClientValidation(t *testing.T) {
	_, err := NewHTTPClient(Options{TenantID: "contoso"})
	assert.Error(t, err)

	_, err = NewHTTPClient(Options{BaseURL: "http://directory.example"})
	assert.Error(t, err)
}

func TestListUsersPagination(t *testing.T) {
	var cursors []string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/contoso/users", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.URL.Query().Get("enabledOnly"))

		cursor := r.URL.Query().Get("cursor")
		cursors = append(cursors, cursor)
		w.Header().Set("Content-Type", "application/json")
		if cursor == "" {
			fmt.Fprint(w, `{"value":[{"id":"u1","displayName":"Alice","accountEnabled":true},{"id":"u2","displayName":"Bob"}],"nextLink":"page2"}`)
			return
		}
		fmt.Fprint(w, `{"value":[{"id":"u3","displayName":"Carol"}]}`)
	}))

	users, err := c.ListUsers(context.Background(), UserCriteria{EnabledOnly: true})
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, []string{"", "page2"}, cursors)
	assert.Equal(t, "u1", users[0].ID)
	assert.True(t, users[0].Enabled)
	assert.Equal(t, "Carol", users[2].DisplayName)
}

func TestRateLimitedRetriesAfterHeader(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"code":"tooManyRequests","message":"slow down"}}`)
			return
		}
		fmt.Fprint(w, `{"value":[{"id":"u1","displayName":"Alice"}]}`)
	}))

	users, err := c.ListUsers(context.Background(), UserCriteria{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTransientRetriesExhaust(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.ListUsers(context.Background(), UserCriteria{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
	// Initial attempt plus MaxRetries.
	assert.Equal(t, int32(3), calls.Load())
}

func TestUnauthorizedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":"invalidToken","message":"expired"}}`)
	}))

	_, err := c.ListUsers(context.Background(), UserCriteria{})
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestSignInActivityTierUnsupported(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":"tierUnsupported","message":"signInActivity requires premium"}}`)
	}))

	_, err := c.UserSignInActivity(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, IsTierUnsupported(err))
	// The code takes precedence over the generic 403 mapping.
	assert.False(t, IsUnauthorized(err))
}

func TestSingularResourceBareBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/contoso/users/u1/passwordProfile", r.URL.Path)
		fmt.Fprint(w, `{"neverExpires":true,"expiresInDays":-40}`)
	}))

	never, days, _, err := c.UserPasswordProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, never)
	assert.Equal(t, -40, days)
}

func TestStorageQuotaAndSharing(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/contoso/storage/s1/quota":
			fmt.Fprint(w, `{"used":850,"total":1000}`)
		case "/contoso/storage/s1/sharing":
			fmt.Fprint(w, `{"value":[{"scope":"anyone"},{"scope":"users","externalRecipients":["out@example.org"]}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	used, total, err := c.StorageQuota(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(850), used)
	assert.Equal(t, int64(1000), total)

	links, err := c.StorageSharing(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "anyone", links[0].Scope)
	assert.Equal(t, []string{"out@example.org"}, links[1].ExternalRecipients)
}

func TestListStorageFiltersAndArchivedFlag(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "site", r.URL.Query().Get("kind"))
		fmt.Fprint(w, `{"value":[{"id":"s1","displayName":"Finance","kind":"site","archived":true}]}`)
	}))

	sites, err := c.ListStorage(context.Background(), StorageCriteria{Kind: "site"})
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.False(t, sites[0].Live)
}

func TestNotFoundMapping(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, _, err := c.UserAuthMethods(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}
