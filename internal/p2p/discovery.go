package p2p

import (
	"fmt"
	"net"
	"strings"
	"time"

	libp2ppeer "github.com/libp2p/go-libp2p-peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/pkg/errors"
)

// BootstrapAddr resolves a bootstrap peer entry, given either as a plain
// "host:port" TCP address or as a libp2p multiaddr
// ("/ip4/1.2.3.4/tcp/30333"), into the "host:port" form Peer.Connect
// dials. Multiaddr support lets operators reuse the same bootstrap list
// format tinychain's config expects even though our transport skips the
// libp2p swarm (spec.md §4.7).
func BootstrapAddr(entry string) (string, error) {
	addr, err := ma.NewMultiaddr(entry)
	if err != nil {
		// Not a multiaddr; assume it's already "host:port".
		return entry, nil
	}
	host, err := addr.ValueForProtocol(ma.P_IP4)
	if err != nil {
		host, err = addr.ValueForProtocol(ma.P_IP6)
		if err != nil {
			return "", fmt.Errorf("p2p: multiaddr %q has no ip4/ip6 component: %w", entry, err)
		}
	}
	port, err := addr.ValueForProtocol(ma.P_TCP)
	if err != nil {
		return "", fmt.Errorf("p2p: multiaddr %q has no tcp component: %w", entry, err)
	}
	return fmt.Sprintf("%s:%s", host, port), nil
}

// ResolveBootstrapList applies BootstrapAddr to every entry, skipping
// (and logging) any that fail to resolve rather than aborting startup
// over one bad peer entry.
func ResolveBootstrapList(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		addr, err := BootstrapAddr(entry)
		if err != nil {
			log.Errorf("skipping bootstrap entry %q: %s", entry, err)
			continue
		}
		out = append(out, addr)
	}
	return out
}

// localDiscoveryGroup is the multicast group tinynode peers announce
// themselves on for local-network discovery (spec.md §4.7's Peer
// Discovery line), on top of the bootstrap list resolved above.
const localDiscoveryGroup = "239.42.42.42:30313"

const (
	discoveryAnnounceInterval = 5 * time.Second
	discoveryMaxPacket        = 256
)

// LocalDiscovery announces this peer's listen port over UDP multicast
// and dials any peer it hears announcing itself. None of the example
// repos this module is grounded on import an mDNS/zeroconf library for
// this kind of discovery (DESIGN.md records the search), so unlike the
// rest of this package it is hand-rolled directly over
// net.ListenMulticastUDP rather than adapted from a third-party
// dependency.
type LocalDiscovery struct {
	peer     *Peer
	group    *net.UDPAddr
	conn     *net.UDPConn
	selfPort string

	quitCh chan struct{}
}

// newLocalDiscovery joins the local discovery multicast group.
// listenPort is this node's own TCP listen port, advertised to peers
// that hear the announcement so they can dial back.
func newLocalDiscovery(peer *Peer, listenPort string) (*LocalDiscovery, error) {
	group, err := net.ResolveUDPAddr("udp4", localDiscoveryGroup)
	if err != nil {
		return nil, errors.Wrap(err, "p2p: resolve discovery multicast group")
	}
	conn, err := net.ListenMulticastUDP("udp4", nil, group)
	if err != nil {
		return nil, errors.Wrap(err, "p2p: join discovery multicast group")
	}
	conn.SetReadBuffer(discoveryMaxPacket)
	return &LocalDiscovery{
		peer:     peer,
		group:    group,
		conn:     conn,
		selfPort: listenPort,
		quitCh:   make(chan struct{}),
	}, nil
}

// Start launches the announce and listen loops.
func (d *LocalDiscovery) Start() {
	go d.announceLoop()
	go d.listenLoop()
}

// Stop closes the multicast socket, unblocking both loops.
func (d *LocalDiscovery) Stop() {
	close(d.quitCh)
	d.conn.Close()
}

func (d *LocalDiscovery) announceLoop() {
	ticker := time.NewTicker(discoveryAnnounceInterval)
	defer ticker.Stop()
	d.announce()
	for {
		select {
		case <-ticker.C:
			d.announce()
		case <-d.quitCh:
			return
		}
	}
}

func (d *LocalDiscovery) announce() {
	payload := []byte(d.peer.ID().Pretty() + "|" + d.selfPort)
	if _, err := d.conn.WriteToUDP(payload, d.group); err != nil {
		log.Debugf("discovery: announce failed: %s", err)
	}
}

func (d *LocalDiscovery) listenLoop() {
	buf := make([]byte, discoveryMaxPacket)
	for {
		n, src, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-d.quitCh:
				return
			default:
				log.Debugf("discovery: read failed: %s", err)
				continue
			}
		}
		d.handleAnnounce(buf[:n], src)
	}
}

func (d *LocalDiscovery) handleAnnounce(payload []byte, src *net.UDPAddr) {
	idStr, port, ok := parseAnnounce(payload)
	if !ok {
		return
	}
	remoteID, err := libp2ppeer.IDB58Decode(idStr)
	if err != nil || remoteID == d.peer.ID() {
		return
	}
	if _, known := d.peer.routeTable.addr(remoteID); known {
		return
	}
	addr := net.JoinHostPort(src.IP.String(), port)
	if _, err := d.peer.Connect(addr); err != nil {
		log.Debugf("discovery: failed to connect discovered peer %s at %s: %s", remoteID.Pretty(), addr, err)
	}
}

func parseAnnounce(payload []byte) (id string, port string, ok bool) {
	parts := strings.SplitN(string(payload), "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
