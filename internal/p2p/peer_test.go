package p2p

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	libp2ppeer "github.com/libp2p/go-libp2p-peer"
)

type recordingProtocol struct {
	typ string
	mu  sync.Mutex
	got [][]byte
	ch  chan struct{}
}

func newRecordingProtocol(typ string) *recordingProtocol {
	return &recordingProtocol{typ: typ, ch: make(chan struct{}, 8)}
}

func (p *recordingProtocol) Type() string { return p.typ }

func (p *recordingProtocol) Run(pid libp2ppeer.ID, payload []byte) error {
	p.mu.Lock()
	p.got = append(p.got, payload)
	p.mu.Unlock()
	p.ch <- struct{}{}
	return nil
}

func (p *recordingProtocol) Error(error) {}

func mustIdentity(t *testing.T) *Identity {
	id, err := NewIdentity()
	require.NoError(t, err)
	return id
}

func TestPeerConnectAndSendDirect(t *testing.T) {
	idA := mustIdentity(t)
	idB := mustIdentity(t)

	peerA, err := New(idA, "127.0.0.1:0", nil, 8, false)
	require.NoError(t, err)
	peerB, err := New(idB, "127.0.0.1:0", nil, 8, false)
	require.NoError(t, err)

	proto := newRecordingProtocol("test_msg")
	require.NoError(t, peerB.AddProtocol(proto))

	require.NoError(t, peerA.Start())
	defer peerA.Stop()
	require.NoError(t, peerB.Start())
	defer peerB.Stop()

	remoteID, err := peerA.Connect(peerB.listener.Addr().String())
	require.NoError(t, err)
	require.Equal(t, peerB.ID(), remoteID)

	require.NoError(t, peerA.Send(remoteID, "test_msg", []byte("hello")))

	select {
	case <-proto.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message delivery")
	}

	proto.mu.Lock()
	defer proto.mu.Unlock()
	require.Len(t, proto.got, 1)
	require.Equal(t, []byte("hello"), proto.got[0])
}

func TestPeerSendToSelfFails(t *testing.T) {
	id := mustIdentity(t)
	peer, err := New(id, "127.0.0.1:0", nil, 8, false)
	require.NoError(t, err)
	require.ErrorIs(t, peer.Send(peer.ID(), "x", nil), ErrSendToSelf)
}
