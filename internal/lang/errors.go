package lang

import "errors"

// ErrInvalid indicates a language code is not a recognized ISO 639-1 code.
var ErrInvalid = errors.New("invalid language code")
