package subtitle

import "errors"

// ErrMalformed indicates a caption track could not be parsed.
// Malformed input is never retried: the same bytes would fail again.
var ErrMalformed = errors.New("malformed caption track")
