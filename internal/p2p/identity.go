// Package p2p implements C7: peer identity, gossip of transactions and
// blocks, and request/response chain synchronization (spec.md §4.7).
//
// Peer identity and addressing are grounded on the same libraries
// tinychain's p2p/peer.go uses — go-libp2p-crypto for the Ed25519
// identity keypair, go-libp2p-peer for the derived PeerID, and
// go-multiaddr for bootstrap addresses — but the stream
// transport itself is a plain length-prefixed TCP framing (stdlib
// net) rather than a full libp2p swarm/host stack. DESIGN.md records
// why: a single always-listening TCP socket is all this spec's
// gossip/sync protocol needs, and the swarm/NAT/relay machinery the
// teacher pulls in for it is out of proportion to that.
package p2p

import (
	"crypto/rand"

	libp2pcrypto "github.com/libp2p/go-libp2p-crypto"
	libp2ppeer "github.com/libp2p/go-libp2p-peer"

	"github.com/tinynode/tinynode/internal/logging"
)

var log = logging.GetLogger("p2p")

// Identity is the peer's long-lived keypair and derived ID, distinct from
// the validator signing key (spec.md §4.7).
type Identity struct {
	Priv libp2pcrypto.PrivKey
	Pub  libp2pcrypto.PubKey
	ID   libp2ppeer.ID
}

// NewIdentity generates a fresh Ed25519 peer identity.
func NewIdentity() (*Identity, error) {
	priv, pub, err := libp2pcrypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, err
	}
	id, err := libp2ppeer.IDFromPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return &Identity{Priv: priv, Pub: pub, ID: id}, nil
}

// IdentityFromPrivKeyBytes decodes a marshaled libp2p private key, used to
// load a persisted peer identity across restarts.
func IdentityFromPrivKeyBytes(b []byte) (*Identity, error) {
	priv, err := libp2pcrypto.UnmarshalPrivateKey(b)
	if err != nil {
		return nil, err
	}
	pub := priv.GetPublic()
	id, err := libp2ppeer.IDFromPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return &Identity{Priv: priv, Pub: pub, ID: id}, nil
}

// Bytes marshals the identity's private key for persistence.
func (id *Identity) Bytes() ([]byte, error) {
	return libp2pcrypto.MarshalPrivateKey(id.Priv)
}
