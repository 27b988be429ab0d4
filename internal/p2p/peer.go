package p2p

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru"
	libp2pcrypto "github.com/libp2p/go-libp2p-crypto"
	libp2ppeer "github.com/libp2p/go-libp2p-peer"
	"github.com/pkg/errors"
)

const (
	// MaxStreamNum bounds the live-stream LRU pool, grounded on
	// tinychain's p2p/peer.go MaxStreamNum.
	MaxStreamNum = 1000

	// TypeHandshake is the first frame exchanged on every new
	// connection, carrying the sender's marshaled public key so the
	// remote side can derive its PeerID without a libp2p secure
	// channel.
	TypeHandshake = "handshake"

	dialTimeout = 10 * time.Second
)

// ErrSendToSelf is returned by Send when pid is the local peer's own ID,
// grounded on tinychain's p2p/peer.go ErrSendToSelf.
var ErrSendToSelf = errors.New("p2p: cannot send message to self")

// Peer is the local node's network endpoint: an always-listening TCP
// socket, a pool of live streams to remote peers, and the protocol
// handler registry messages are dispatched to (spec.md §4.7).
type Peer struct {
	identity   *Identity
	listenAddr string

	listener   net.Listener
	streamPool *lru.Cache // libp2ppeer.ID -> *Stream
	routeTable *routeTable
	protocols  *protocolRegistry
	seen       *lru.Cache // dedup cache for gossiped payload hashes

	bootstrap        []string
	maxPeers         int
	discoveryEnabled bool
	discovery        *LocalDiscovery

	quitCh chan struct{}
}

// New constructs a Peer bound to identity, listening on listenAddr
// ("host:port"), with bootstrap the set of peer addresses to dial on
// Start. When localDiscovery is set, Start also joins the local-network
// multicast discovery group (spec.md §4.7) alongside dialing bootstrap.
func New(identity *Identity, listenAddr string, bootstrap []string, maxPeers int, localDiscovery bool) (*Peer, error) {
	streamPool, err := lru.NewWithEvict(MaxStreamNum, func(key, value interface{}) {
		value.(*Stream).close(nil)
	})
	if err != nil {
		return nil, errors.Wrap(err, "p2p: failed to init stream pool")
	}
	seen, err := lru.New(4096)
	if err != nil {
		return nil, errors.Wrap(err, "p2p: failed to init seen cache")
	}
	return &Peer{
		identity:         identity,
		listenAddr:       listenAddr,
		streamPool:       streamPool,
		routeTable:       newRouteTable(),
		protocols:        newProtocolRegistry(),
		seen:             seen,
		bootstrap:        bootstrap,
		maxPeers:         maxPeers,
		discoveryEnabled: localDiscovery,
		quitCh:           make(chan struct{}),
	}, nil
}

// ID returns the local peer's ID.
func (p *Peer) ID() libp2ppeer.ID { return p.identity.ID }

// KnownPeers returns the IDs of every peer currently in the route
// table (connected now, or reachable via a remembered address).
func (p *Peer) KnownPeers() []libp2ppeer.ID { return p.routeTable.peers() }

// AddProtocol registers a message handler.
func (p *Peer) AddProtocol(proto Protocol) error { return p.protocols.add(proto) }

// DelProtocol unregisters a message handler.
func (p *Peer) DelProtocol(proto Protocol) { p.protocols.remove(proto) }

// Start opens the listening socket and dials every bootstrap address,
// grounded on tinychain's Peer.Start.
func (p *Peer) Start() error {
	ln, err := net.Listen("tcp", p.listenAddr)
	if err != nil {
		return &TransportError{Addr: p.listenAddr, Op: "listen", Err: err}
	}
	p.listener = ln
	log.Infof("peer %s listening on %s", p.identity.ID.Pretty(), p.listenAddr)

	go p.acceptLoop()

	for _, addr := range p.bootstrap {
		addr := addr
		go func() {
			if _, err := p.Connect(addr); err != nil {
				log.Errorf("failed to connect bootstrap peer %s: %s", addr, err)
			}
		}()
	}

	if p.discoveryEnabled {
		tcpAddr, ok := ln.Addr().(*net.TCPAddr)
		if !ok {
			return &TransportError{Addr: p.listenAddr, Op: "discovery", Err: errors.New("listener address is not TCP")}
		}
		discovery, err := newLocalDiscovery(p, strconv.Itoa(tcpAddr.Port))
		if err != nil {
			return err
		}
		p.discovery = discovery
		discovery.Start()
	}
	return nil
}

// Stop closes the listener, the discovery socket (if joined), and every
// live stream.
func (p *Peer) Stop() {
	close(p.quitCh)
	if p.listener != nil {
		p.listener.Close()
	}
	if p.discovery != nil {
		p.discovery.Stop()
	}
	for _, key := range p.streamPool.Keys() {
		p.streamPool.Remove(key)
	}
	log.Info("peer stopped")
}

func (p *Peer) acceptLoop() {
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			select {
			case <-p.quitCh:
				return
			default:
				log.Errorf("accept error: %s", err)
				return
			}
		}
		if p.streamPool.Len() >= p.maxPeers {
			conn.Close()
			continue
		}
		go p.handleInbound(conn)
	}
}

func (p *Peer) handleInbound(conn net.Conn) {
	reader := bufio.NewReader(conn)
	remoteID, err := readHandshake(reader)
	if err != nil {
		log.Errorf("handshake with %s failed: %s", conn.RemoteAddr(), err)
		conn.Close()
		return
	}
	if err := writeHandshake(conn, p.identity); err != nil {
		log.Errorf("handshake reply to %s failed: %s", conn.RemoteAddr(), err)
		conn.Close()
		return
	}

	stream := newStream(conn, reader, remoteID, p)
	p.streamPool.Add(remoteID, stream)
	p.routeTable.touch(remoteID, conn.RemoteAddr().String())
	log.Infof("accepted connection from peer %s", remoteID.Pretty())
	go stream.readLoop()
}

// Connect dials addr, performs the handshake, and registers the
// resulting stream, returning the remote peer's ID.
func (p *Peer) Connect(addr string) (libp2ppeer.ID, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return "", &TransportError{Addr: addr, Op: "dial", Err: err}
	}
	if err := writeHandshake(conn, p.identity); err != nil {
		conn.Close()
		return "", err
	}
	reader := bufio.NewReader(conn)
	remoteID, err := readHandshake(reader)
	if err != nil {
		conn.Close()
		return "", err
	}

	stream := newStream(conn, reader, remoteID, p)
	p.streamPool.Add(remoteID, stream)
	p.routeTable.touch(remoteID, addr)
	log.Infof("connected to peer %s at %s", remoteID.Pretty(), addr)
	go stream.readLoop()
	return remoteID, nil
}

// Send delivers one message to pid, dialing it first via its last known
// route-table address if no live stream exists.
func (p *Peer) Send(pid libp2ppeer.ID, typ string, payload []byte) error {
	if pid == p.identity.ID {
		return ErrSendToSelf
	}
	stream, err := p.streamFor(pid)
	if err != nil {
		return err
	}
	if err := stream.send(typ, payload); err != nil {
		p.streamPool.Remove(pid)
		return err
	}
	p.routeTable.touch(pid, "")
	return nil
}

// SendDirect is an alias for Send kept for readability at call sites
// that gossip vs. directly respond to a single peer.
func (p *Peer) SendDirect(pid libp2ppeer.ID, typ string, payload []byte) error {
	return p.Send(pid, typ, payload)
}

func (p *Peer) streamFor(pid libp2ppeer.ID) (*Stream, error) {
	if v, ok := p.streamPool.Get(pid); ok {
		return v.(*Stream), nil
	}
	addr, ok := p.routeTable.addr(pid)
	if !ok {
		return nil, &PeerUnreachableError{ID: pid.Pretty()}
	}
	if _, err := p.Connect(addr); err != nil {
		return nil, err
	}
	v, ok := p.streamPool.Get(pid)
	if !ok {
		return nil, &PeerUnreachableError{ID: pid.Pretty()}
	}
	return v.(*Stream), nil
}

// Broadcast sends a message to every currently known peer, grounded on
// tinychain's Peer.Broadcast.
func (p *Peer) Broadcast(typ string, payload []byte) {
	for _, pid := range p.routeTable.peers() {
		pid := pid
		go func() {
			if err := p.Send(pid, typ, payload); err != nil {
				log.Errorf("failed to broadcast %s to %s: %s", typ, pid.Pretty(), err)
			}
		}()
	}
}

func (p *Peer) onStreamClosed(s *Stream) {
	p.streamPool.Remove(s.remoteID)
	p.routeTable.remove(s.remoteID)
}

// writeHandshake sends this node's marshaled public key as the first
// frame on a fresh connection.
func writeHandshake(w io.Writer, identity *Identity) error {
	pubBytes, err := libp2pcrypto.MarshalPublicKey(identity.Pub)
	if err != nil {
		return errors.Wrap(err, "p2p: failed to marshal handshake public key")
	}
	frame := &Frame{Type: TypeHandshake, Payload: pubBytes}
	_, err = w.Write(frame.Encode())
	return err
}

// readHandshake reads the peer's first frame and derives its PeerID from
// the advertised public key.
func readHandshake(r *bufio.Reader) (libp2ppeer.ID, error) {
	var lenBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	size := binary.LittleEndian.Uint32(lenBuf[:])
	if size > maxFrameSize {
		return "", errors.New("p2p: handshake frame exceeds maximum size")
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return "", err
	}
	frame, err := DecodeFrameBody(body)
	if err != nil {
		return "", err
	}
	if frame.Type != TypeHandshake {
		return "", errors.Errorf("p2p: expected handshake frame, got %q", frame.Type)
	}
	pub, err := libp2pcrypto.UnmarshalPublicKey(frame.Payload)
	if err != nil {
		return "", errors.Wrap(err, "p2p: failed to unmarshal handshake public key")
	}
	return libp2ppeer.IDFromPublicKey(pub)
}
