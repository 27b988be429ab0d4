package node

import (
	"time"

	"github.com/tinynode/tinynode/internal/config"
	"github.com/tinynode/tinynode/internal/p2p"
	"github.com/tinynode/tinynode/internal/types"
)

// productionLoop is the block-production cadence ticker of spec.md
// §4.8 step 4: on each tick, check whether self is the expected
// proposer for the next height and enough time has elapsed, and if so
// build, sign, apply and commit a block from the current mempool.
func (n *Node) productionLoop() {
	defer n.wg.Done()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n.tryPropose()
		case <-n.quitCh:
			return
		}
	}
}

func (n *Node) tryPropose() {
	n.mu.Lock()
	defer n.mu.Unlock()

	tip, err := n.currentTip()
	if err != nil {
		log.Errorf("node: cannot read tip for production: %s", err)
		return
	}
	tipBlock, err := n.store.GetBlock(tip.Hash)
	if err != nil {
		log.Errorf("node: tip block %s missing from storage: %s", tip.Hash, err)
		return
	}

	now := time.Now()
	info, ok := n.engine.ShouldPropose(n.selfAddr, tipBlock.Header, now)
	if !ok {
		return
	}

	maxTxs := n.cfg.GetInt(config.KeyConsensusMaxTxsPerBlock)
	if maxTxs <= 0 {
		maxTxs = 500
	}
	txs := n.pool.DrainForBlock(maxTxs, 0, n.admissionView)

	header := &types.Header{
		ParentHash:  info.ParentHash,
		BlockNumber: info.Height,
		Timestamp:   info.Timestamp,
	}
	block := types.NewBlock(header, txs)
	block.Header.Sign(n.selfPriv, n.selfPub)

	if err := n.commitOnTip(block); err != nil {
		log.Errorf("failed to commit self-produced block %s: %s", block.Hash(), err)
		return
	}
	n.peer.Gossip(p2p.TypeBlock, block.Encode())
	log.Infof("produced block %s at height %d with %d txs", block.Hash(), block.Height(), len(txs))
}
