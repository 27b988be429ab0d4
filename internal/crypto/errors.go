package crypto

import "github.com/pkg/errors"

// ErrInvalidSeedLength is returned when a key file does not carry exactly
// ed25519.SeedSize bytes (spec.md §6, validator/wallet key file format).
var ErrInvalidSeedLength = errors.New("crypto: seed must be exactly 32 bytes")
