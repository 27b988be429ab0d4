package p2p

import (
	"github.com/tinynode/tinynode/internal/crypto"
)

// Gossip broadcasts payload under typ to every known peer, unless an
// identical payload has already been gossiped or received recently
// (spec.md §4.7's flood-gossip dedup requirement). Callers that receive
// a message off the wire and want to re-gossip it should call
// MarkSeen first so it isn't immediately re-broadcast back to its
// sender's neighbors in a loop.
func (p *Peer) Gossip(typ string, payload []byte) {
	key := gossipKey(typ, payload)
	if _, ok := p.seen.Get(key); ok {
		return
	}
	p.seen.Add(key, struct{}{})
	p.Broadcast(typ, payload)
}

// MarkSeen records payload as already-seen without broadcasting it,
// used when a message arrives off the wire so a subsequent Gossip call
// for the same content is a no-op.
func (p *Peer) MarkSeen(typ string, payload []byte) bool {
	key := gossipKey(typ, payload)
	if _, ok := p.seen.Get(key); ok {
		return true
	}
	p.seen.Add(key, struct{}{})
	return false
}

func gossipKey(typ string, payload []byte) [crypto.HashSize]byte {
	return crypto.Hash(append([]byte(typ+":"), payload...))
}
