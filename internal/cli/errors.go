package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrAPIKeyMissing indicates OPENAI_API_KEY environment variable is not set.
	ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

	// ErrFileNotFound indicates the specified input file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidSegment indicates a segment length under the 10-second minimum.
	ErrInvalidSegment = errors.New("segment must be at least 10 seconds")

	// ErrInvalidOverlap indicates an overlap outside [0, segment).
	ErrInvalidOverlap = errors.New("overlap must be at least 0 and less than segment")

	// ErrInvalidThreshold indicates a delete-duplicates value other than 0 or >= 2.
	ErrInvalidThreshold = errors.New("delete-duplicates must be at least 2 or zero")

	// ErrInvalidTimeout indicates a non-positive request timeout.
	ErrInvalidTimeout = errors.New("timeout must be positive")
)
