package node

import (
	libp2ppeer "github.com/libp2p/go-libp2p-peer"

	"github.com/tinynode/tinynode/internal/p2p"
)

// registerProtocols wires every wire message type to the orchestrator's
// inbound channels, the Go-channel analogue of tinychain's
// Peer.AddProtocol registrations in tiny.Tiny.Start.
func (n *Node) registerProtocols() error {
	handlers := []p2p.Protocol{
		&txProtocol{n: n},
		&blockProtocol{n: n},
		&syncRequestProtocol{n: n},
		&syncResponseBlocksProtocol{n: n},
		&syncResponseNoneProtocol{n: n},
	}
	for _, h := range handlers {
		if err := n.peer.AddProtocol(h); err != nil {
			return err
		}
	}
	return nil
}

type txProtocol struct{ n *Node }

func (*txProtocol) Type() string { return p2p.TypeTx }

func (p *txProtocol) Run(pid libp2ppeer.ID, payload []byte) error {
	msg, err := p2p.DecodeTxMessage(payload)
	if err != nil {
		return &p2p.EncodingError{Type: p2p.TypeTx, Err: err}
	}
	if p.n.peer.MarkSeen(p2p.TypeTx, payload) {
		return nil
	}
	select {
	case p.n.txInCh <- inboundTx{from: pid, tx: msg.Tx}:
	default:
		log.Debugf("dropping tx %s: ingress queue full", msg.Tx.ID())
	}
	return nil
}

func (*txProtocol) Error(err error) { log.Errorf("tx protocol error: %s", err) }

type blockProtocol struct{ n *Node }

func (*blockProtocol) Type() string { return p2p.TypeBlock }

func (p *blockProtocol) Run(pid libp2ppeer.ID, payload []byte) error {
	msg, err := p2p.DecodeBlockMessage(payload)
	if err != nil {
		return &p2p.EncodingError{Type: p2p.TypeBlock, Err: err}
	}
	if p.n.peer.MarkSeen(p2p.TypeBlock, payload) {
		return nil
	}
	select {
	case p.n.blockInCh <- inboundBlock{from: pid, block: msg.Block}:
	default:
		log.Debugf("dropping block %s: ingress queue full", msg.Block.Hash())
	}
	return nil
}

func (*blockProtocol) Error(err error) { log.Errorf("block protocol error: %s", err) }

type syncRequestProtocol struct{ n *Node }

func (*syncRequestProtocol) Type() string { return p2p.TypeSyncRequest }

func (p *syncRequestProtocol) Run(pid libp2ppeer.ID, payload []byte) error {
	req, err := p2p.DecodeSyncRequest(payload)
	if err != nil {
		return &p2p.EncodingError{Type: p2p.TypeSyncRequest, Err: err}
	}
	// Sync responses must not be dropped under back-pressure (spec.md
	// §5), so this send is blocking rather than select/default.
	p.n.syncReqInCh <- inboundSyncReq{from: pid, req: req}
	return nil
}

func (*syncRequestProtocol) Error(err error) { log.Errorf("sync request protocol error: %s", err) }

type syncResponseBlocksProtocol struct{ n *Node }

func (*syncResponseBlocksProtocol) Type() string { return p2p.TypeSyncResponseBlocks }

func (p *syncResponseBlocksProtocol) Run(pid libp2ppeer.ID, payload []byte) error {
	resp, err := p2p.DecodeSyncResponseBlocks(payload)
	if err != nil {
		return &p2p.EncodingError{Type: p2p.TypeSyncResponseBlocks, Err: err}
	}
	p.n.syncRespCh <- inboundSyncResp{from: pid, blocks: resp.Blocks}
	return nil
}

func (*syncResponseBlocksProtocol) Error(err error) { log.Errorf("sync response protocol error: %s", err) }

type syncResponseNoneProtocol struct{ n *Node }

func (*syncResponseNoneProtocol) Type() string { return p2p.TypeSyncResponseNone }

func (p *syncResponseNoneProtocol) Run(pid libp2ppeer.ID, _ []byte) error {
	p.n.syncRespCh <- inboundSyncResp{from: pid, none: true}
	return nil
}

func (*syncResponseNoneProtocol) Error(err error) { log.Errorf("sync response-none protocol error: %s", err) }
