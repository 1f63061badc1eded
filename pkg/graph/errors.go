package graph

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the service error taxonomy the pipeline reacts to.
type ErrorKind int

const (
	// KindTransient covers 5xx and network-level failures; retried a
	// bounded number of times, fatal once exhausted.
	KindTransient ErrorKind = iota
	// KindUnauthorized is fatal for the whole run.
	KindUnauthorized
	// KindRateLimited carries the suggested retry delay.
	KindRateLimited
	// KindTierUnsupported means the tenant's subscription tier does not
	// expose the requested signal. A capability flag, not a failure.
	KindTierUnsupported
	// KindNotFound is a per-entity miss.
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate limited"
	case KindTierUnsupported:
		return "tier unsupported"
	case KindNotFound:
		return "not found"
	default:
		return "transient"
	}
}

// APIError is a typed failure from the directory service.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	// RetryAfter is the service-suggested delay for rate-limited calls.
	RetryAfter time.Duration
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("service error (%s, status %d)", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("service error (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, k ErrorKind) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Kind == k
}

func IsUnauthorized(err error) bool    { return IsKind(err, KindUnauthorized) }
func IsRateLimited(err error) bool     { return IsKind(err, KindRateLimited) }
func IsTierUnsupported(err error) bool { return IsKind(err, KindTierUnsupported) }
