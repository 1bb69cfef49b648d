package adapter

import (
	"fmt"
	"time"

	"github.com/adspilot/core/pkg/domain"
)

// ErrorKind is the closed error taxonomy of spec §7, re-exported from
// pkg/domain so callers can write adapter.ErrAuthExpired etc. without
// importing pkg/domain directly.
type ErrorKind = domain.AdapterErrorKind

const (
	ErrAuthExpired ErrorKind = domain.ErrAuthExpired
	ErrRateLimited ErrorKind = domain.ErrRateLimited
	ErrTransient   ErrorKind = domain.ErrTransient
	ErrValidation  ErrorKind = domain.ErrValidation
	ErrNotFound    ErrorKind = domain.ErrNotFound
	ErrUnavailable ErrorKind = domain.ErrUnavailable
)

// Error is the typed result every adapter operation fails with. Callers
// classify on Kind via errors.As, never by matching Err's message text —
// mirrors pkg/mcp/recovery.go's ClassifyError discipline of typed checks
// over string sniffing.
type Error struct {
	Kind       ErrorKind
	Platform   domain.PlatformId
	RetryAfter time.Duration // meaningful only when Kind == ErrRateLimited
	Err        error
}

func (e *Error) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("adapter[%s]: %s (retry after %s): %v", e.Platform, e.Kind, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("adapter[%s]: %s: %v", e.Platform, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError constructs an *Error with the given kind.
func NewError(platform domain.PlatformId, kind ErrorKind, err error) *Error {
	return &Error{Platform: platform, Kind: kind, Err: err}
}

// NewRateLimited constructs a RATE_LIMITED error carrying retry_after, the
// signal the Decision Engine uses to defer that platform for the tick
// (spec §4.1, §7) without tight-looping.
func NewRateLimited(platform domain.PlatformId, retryAfter time.Duration, err error) *Error {
	return &Error{Platform: platform, Kind: ErrRateLimited, RetryAfter: retryAfter, Err: err}
}
