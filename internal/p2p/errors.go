package p2p

import "fmt"

// TransportError wraps a low-level dial/read/write failure against a
// specific remote address.
type TransportError struct {
	Addr string
	Op   string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("p2p: %s %s: %s", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PeerUnreachableError is returned when SendDirect targets a peer that is
// not currently connected and cannot be dialed.
type PeerUnreachableError struct {
	ID string
}

func (e *PeerUnreachableError) Error() string {
	return fmt.Sprintf("p2p: peer %s is unreachable", e.ID)
}

// EncodingError wraps a frame payload that failed to decode into its
// declared message type.
type EncodingError struct {
	Type string
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("p2p: failed to decode %s payload: %s", e.Type, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }
