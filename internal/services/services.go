package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/shared"
)

// Provider searches an external catalog for tracks.
type Provider interface {
	// Search returns tracks matching req.Query. Failures are reported as
	// [*ProviderError] so callers can tell quota faults from transient ones.
	Search(ctx context.Context, req SearchRequest) ([]models.Track, error)

	// Name returns the provider's short name (e.g., "youtube", "spotify")
	Name() string
}

// SearchRequest is a single outbound search.
type SearchRequest struct {
	Query      string
	APIKey     string // Credential chosen by the quota tracker; unused by keyless providers
	MaxResults int
	Referer    string // Sent for API keys restricted to a domain
}

// ErrorKind classifies provider failures.
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindQuota
	KindDomainQuota
)

func (k ErrorKind) String() string {
	switch k {
	case KindQuota:
		return "quota"
	case KindDomainQuota:
		return "domain-quota"
	default:
		return "transient"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindQuota:
		return shared.ErrQuotaExceeded
	case KindDomainQuota:
		return shared.ErrDomainQuotaExceeded
	default:
		return shared.ErrAPIRequest
	}
}

// ProviderError is returned by every [Provider] on failure.
//
// It matches the shared sentinel for its kind with [errors.Is], so
// errors.Is(err, shared.ErrQuotaExceeded) holds for a per-key quota fault.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Status   int    // HTTP status, 0 when the request never completed
	Reason   string // Provider-specific reason code, if any
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s error", e.Provider, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// FallbackError reports a primary provider failure that a fallback provider
// answered. It is returned alongside the fallback's tracks.
type FallbackError struct {
	Provider string // Provider that served the results
	Err      error  // Primary failure
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("served by %s after: %v", e.Provider, e.Err)
}

func (e *FallbackError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a provider failure. Errors that are not
// [*ProviderError] are treated as transient.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransient
}

// UserMessage returns the text shown to a user for a failed search.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, shared.ErrEmptyQuery):
		return "Type something to search for."
	case errors.Is(err, shared.ErrThrottled):
		return "Searching too quickly. Wait a moment and try again."
	case errors.Is(err, shared.ErrNoKeysAvailable):
		return "No API keys are available right now. Try again later."
	case errors.Is(err, shared.ErrQuotaExceeded):
		return "The search quota for this API key has been used up. Try again tomorrow."
	case errors.Is(err, shared.ErrDomainQuotaExceeded):
		return "The daily search limit for this site has been reached. Try again tomorrow."
	case errors.Is(err, shared.ErrSuperseded):
		return "A newer search replaced this one."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Search was cancelled."
	case errors.Is(err, shared.ErrAPIRequest):
		return "Failed to search. Please try again later."
	default:
		return "Something went wrong while searching."
	}
}
