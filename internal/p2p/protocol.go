package p2p

import (
	"errors"
	"sync"

	libp2ppeer "github.com/libp2p/go-libp2p-peer"
)

// ErrDupHandler is returned by AddProtocol when the same handler is
// registered twice for a message type, grounded on tinychain's
// p2p/protocol.go.
var ErrDupHandler = errors.New("p2p: handler already registered for this type")

// Protocol is a callback handler for one wire message type, matching the
// shape of tinychain's Protocol interface but operating on our own
// Frame/payload pair rather than a protobuf pb.Message.
type Protocol interface {
	// Type returns the message type this handler wants to receive.
	Type() string

	// Run handles a message received from pid's stream.
	Run(pid libp2ppeer.ID, payload []byte) error

	// Error handles a transport-level error associated with this
	// handler's messages.
	Error(error)
}

// protocolRegistry dispatches inbound frames to registered handlers by
// message type, matching tinychain's Peer.protocols sync.Map.
type protocolRegistry struct {
	mu    sync.RWMutex
	byTyp map[string][]Protocol
}

func newProtocolRegistry() *protocolRegistry {
	return &protocolRegistry{byTyp: make(map[string][]Protocol)}
}

func (r *protocolRegistry) add(p Protocol) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byTyp[p.Type()] {
		if existing == p {
			return ErrDupHandler
		}
	}
	r.byTyp[p.Type()] = append(r.byTyp[p.Type()], p)
	return nil
}

func (r *protocolRegistry) remove(p Protocol) {
	r.mu.Lock()
	defer r.mu.Unlock()
	handlers := r.byTyp[p.Type()]
	for i, existing := range handlers {
		if existing == p {
			r.byTyp[p.Type()] = append(handlers[:i], handlers[i+1:]...)
			return
		}
	}
}

func (r *protocolRegistry) dispatch(pid libp2ppeer.ID, typ string, payload []byte) {
	r.mu.RLock()
	handlers := append([]Protocol(nil), r.byTyp[typ]...)
	r.mu.RUnlock()
	for _, h := range handlers {
		if err := h.Run(pid, payload); err != nil {
			h.Error(err)
		}
	}
}
