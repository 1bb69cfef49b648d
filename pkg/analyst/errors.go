package analyst

import "errors"

// ErrMalformedResponse means the analyst returned a response that doesn't
// satisfy the structured contract — a missing required field, an
// unparsable proposal kind, a health value outside the closed set. The
// ANALYZING tick state fails cleanly rather than guessing at intent.
var ErrMalformedResponse = errors.New("analyst: malformed response")

// ErrTimeout means the analyst did not respond within the client's
// enforced deadline.
var ErrTimeout = errors.New("analyst: response timeout")
