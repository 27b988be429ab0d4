package types

import "github.com/pkg/errors"

// ErrInvalidHexLength is returned when a hex-encoded Address/Hash does not
// decode to exactly the expected number of bytes (spec.md §6).
var ErrInvalidHexLength = errors.New("types: hex value must decode to exactly 32 bytes")
