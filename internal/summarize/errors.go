package summarize

import "errors"

// Sentinel errors for summarization failures.
var (
	// ErrEmptyTrack indicates the caption track has no entries to summarize.
	ErrEmptyTrack = errors.New("caption track is empty")

	// ErrEmptyResponse indicates the chat API returned no choices.
	ErrEmptyResponse = errors.New("empty chat response")
)
