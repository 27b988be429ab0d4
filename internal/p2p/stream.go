package p2p

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	libp2ppeer "github.com/libp2p/go-libp2p-peer"
)

// normalTimeout bounds a single frame read/write, grounded on tinychain's
// p2p/stream.go normalTimeout/routeSyncTimeout constants.
var normalTimeout = 30 * time.Second

// Stream is one TCP connection to a remote peer, framed with Frame's
// 4-byte length prefix. It replaces tinychain's libp2p-swarm-backed
// Stream (spec.md §4.7; see package doc in identity.go for why).
type Stream struct {
	remoteID   libp2ppeer.ID
	remoteAddr string
	conn       net.Conn
	reader     *bufio.Reader

	peer *Peer

	writeMu sync.Mutex
	closed  bool
	closeMu sync.Mutex
}

// newStream wraps an already-handshaken conn. reader must be the same
// bufio.Reader used to read the handshake frame, so any bytes it
// buffered past the handshake aren't lost.
func newStream(conn net.Conn, reader *bufio.Reader, remoteID libp2ppeer.ID, peer *Peer) *Stream {
	return &Stream{
		remoteID:   remoteID,
		remoteAddr: conn.RemoteAddr().String(),
		conn:       conn,
		reader:     reader,
		peer:       peer,
	}
}

func (s *Stream) String() string {
	return fmt.Sprintf("stream to %s (%s)", s.remoteID.Pretty(), s.remoteAddr)
}

// send writes one frame to the stream.
func (s *Stream) send(typ string, payload []byte) error {
	frame := &Frame{Type: typ, Payload: payload}
	encoded := frame.Encode()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(normalTimeout))
	n, err := s.conn.Write(encoded)
	if err != nil {
		return &TransportError{Addr: s.remoteAddr, Op: "write", Err: err}
	}
	if n != len(encoded) {
		return &TransportError{Addr: s.remoteAddr, Op: "write", Err: io.ErrShortWrite}
	}
	return nil
}

func (s *Stream) close(reason error) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.conn.Close()
	if reason != nil {
		log.Debugf("closing stream to %s: %s", s.remoteID.Pretty(), reason)
	}
}

// readLoop reads frames until the connection closes or a frame fails to
// parse, dispatching each to the peer's protocol registry, grounded on
// tinychain's Stream.readLoop/handleMsg.
func (s *Stream) readLoop() {
	defer s.peer.onStreamClosed(s)

	for {
		var lenBuf [LengthPrefixSize]byte
		if _, err := io.ReadFull(s.reader, lenBuf[:]); err != nil {
			s.close(err)
			return
		}
		size := binary.LittleEndian.Uint32(lenBuf[:])
		if size > maxFrameSize {
			s.close(fmt.Errorf("p2p: frame of %d bytes exceeds maximum", size))
			return
		}
		body := make([]byte, size)
		if _, err := io.ReadFull(s.reader, body); err != nil {
			s.close(err)
			return
		}

		frame, err := DecodeFrameBody(body)
		if err != nil {
			log.Errorf("failed to decode frame from %s: %s", s.remoteAddr, err)
			s.close(err)
			return
		}
		s.peer.routeTable.touch(s.remoteID, s.remoteAddr)
		s.peer.protocols.dispatch(s.remoteID, frame.Type, frame.Payload)
	}
}

// maxFrameSize bounds a single inbound frame, guarding against a
// malicious or corrupt length prefix forcing an unbounded allocation.
const maxFrameSize = 32 * 1024 * 1024
