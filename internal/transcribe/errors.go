package transcribe

import "errors"

// ErrInvalidMode indicates a mode string other than "translations" or
// "transcriptions". A data error: never retried.
var ErrInvalidMode = errors.New("invalid mode")
