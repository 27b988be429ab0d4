package codec

import "github.com/pkg/errors"

// ErrTruncated is returned by Reader when the underlying buffer runs out
// before a field can be fully decoded.
var ErrTruncated = errors.New("codec: truncated input")
