package p2p

import (
	"sync"
	"time"

	libp2ppeer "github.com/libp2p/go-libp2p-peer"
)

// routeEntry records the last known address and liveness of a peer.
type routeEntry struct {
	addr     string
	lastSeen time.Time
}

// routeTable is a trimmed-down stand-in for tinychain's RouteTable: we
// don't need Kademlia-style nearest-peer lookups for a flat gossip
// network, just the address book Connect/Broadcast need to reach known
// peers (spec.md §4.7).
type routeTable struct {
	mu      sync.RWMutex
	entries map[libp2ppeer.ID]*routeEntry
}

func newRouteTable() *routeTable {
	return &routeTable{entries: make(map[libp2ppeer.ID]*routeEntry)}
}

func (t *routeTable) touch(pid libp2ppeer.ID, addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[pid]
	if !ok {
		e = &routeEntry{}
		t.entries[pid] = e
	}
	if addr != "" {
		e.addr = addr
	}
	e.lastSeen = time.Now()
}

func (t *routeTable) addr(pid libp2ppeer.ID) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[pid]
	if !ok || e.addr == "" {
		return "", false
	}
	return e.addr, true
}

func (t *routeTable) peers() []libp2ppeer.ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]libp2ppeer.ID, 0, len(t.entries))
	for pid := range t.entries {
		out = append(out, pid)
	}
	return out
}

func (t *routeTable) remove(pid libp2ppeer.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, pid)
}
