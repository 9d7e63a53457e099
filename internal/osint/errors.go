package osint

import (
	"errors"
	"fmt"
	"time"
)

const (
	ProviderLeak        = "leak"
	ProviderCertificate = "certificate"
	ProviderPolicy      = "dmarc"
)

var (
	// ErrRateLimited is returned when the shared leak-list source cannot be
	// queried right now. It is retryable.
	ErrRateLimited = errors.New("osint: rate limited, try again later")

	// ErrEvidenceUnavailable marks a single provider failure. It never aborts a
	// scan; the signal is reported as unknown with a warning.
	ErrEvidenceUnavailable = errors.New("osint: evidence unavailable")
)

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%v (retry after %s)", ErrRateLimited, e.RetryAfter.Round(time.Millisecond))
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

type ProviderError struct {
	Provider string
	Target   string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Target, e.Err)
}

func (e *ProviderError) Unwrap() []error { return []error{ErrEvidenceUnavailable, e.Err} }
