// Package apierr provides shared error sentinels and retry infrastructure
// for HTTP-based API clients. Provider-specific errors are classified into
// these sentinels at the client boundary with fmt.Errorf("%s: %w", msg, sentinel);
// callers check with errors.Is.
package apierr

import "errors"

// Sentinel errors for API interaction failures.
var (
	// ErrTransport indicates a network failure or a server-side (5xx) response.
	// Transient by nature, retried until the retry budget is exhausted.
	ErrTransport = errors.New("transport failure")

	// ErrRateLimit indicates the API rate limit was exceeded (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the API quota was exceeded (billing issue, not retryable).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates API authentication failed (invalid key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")
)

// IsRetryable reports whether an error is transient and worth retrying.
// Rate limits, timeouts, and transport failures retry; everything else,
// including auth failures and malformed input, fails immediately so
// programming errors are not masked as transient.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrTransport)
}
