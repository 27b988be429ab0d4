package node

import (
	"time"

	"github.com/tinynode/tinynode/internal/consensus"
	"github.com/tinynode/tinynode/internal/p2p"
	"github.com/tinynode/tinynode/internal/state"
	"github.com/tinynode/tinynode/internal/storage"
	"github.com/tinynode/tinynode/internal/types"
)

// handleInboundTx implements the Mempool leg of ingress multiplexing
// (spec.md §4.8 step 3): dedup via the peer layer's seen cache has
// already happened by the time a message reaches this channel, so only
// mempool-contains + stateful admission remain.
func (n *Node) handleInboundTx(in inboundTx) {
	id := in.tx.ID()
	if n.pool.Contains(id) {
		return
	}
	if err := n.pool.Add(in.tx, n.admissionView); err != nil {
		log.Debugf("rejected tx %s from %s: %s", id, in.from.Pretty(), err)
		return
	}
	// The receiving protocol handler already deduped this payload via
	// MarkSeen, so forward it on without Gossip's own (now redundant)
	// seen check.
	n.peer.Broadcast(p2p.TypeTx, in.tx.Encode())
}

// handleInboundBlock is the entry point of the block-received state
// machine (spec.md §4.8's Unknown -> Queued -> Validating -> Applied ->
// Committed / Orphan / Rejected states).
func (n *Node) handleInboundBlock(in inboundBlock) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ingestBlock(in.block, true)
}

// ingestBlock validates and, if acceptable, commits block (or files it
// as an orphan / triggers a reorg). gossip controls whether an
// accepted block is re-broadcast (disabled while replaying sync
// batches, which already flowed through the full pipeline at the
// sender).
func (n *Node) ingestBlock(block *types.Block, gossip bool) {
	hash := block.Hash()
	if _, err := n.store.GetBlock(hash); err == nil {
		return // already known; Committed or a stored fork block
	}

	parent, err := n.store.GetBlock(block.Header.ParentHash)
	if err != nil {
		n.queueOrphan(block)
		return
	}

	if err := n.engine.ValidateBlock(block, parent.Header, time.Now()); err != nil {
		log.Errorf("rejected block %s: %s", hash, err)
		return
	}

	tip, err := n.currentTip()
	if err != nil {
		log.Errorf("node: cannot read current tip: %s", err)
		return
	}

	switch {
	case block.Header.ParentHash == tip.Hash:
		if err := n.commitOnTip(block); err != nil {
			log.Errorf("failed to commit block %s: %s", hash, err)
			return
		}
	default:
		// Extends a non-canonical branch: stash it and let fork choice
		// over the updated branch-head set decide whether to reorg.
		if err := n.store.PutBlock(block); err != nil {
			log.Errorf("failed to store fork block %s: %s", hash, err)
			return
		}
		n.branches.Observe(consensus.ChainHead{Hash: hash, Height: block.Height(), ParentHash: block.Header.ParentHash})
		if err := n.maybeReorg(tip); err != nil {
			log.Errorf("reorg to block %s rejected: %s", hash, err)
			return
		}
	}

	if gossip {
		// Already deduped by the receiving protocol handler's MarkSeen
		// (or, for a self-produced block, never seen before at all —
		// production.go uses Gossip directly for that case).
		n.peer.Broadcast(p2p.TypeBlock, block.Encode())
	}
	n.promoteOrphans(hash)
}

// commitOnTip applies block on top of the current canonical tip and
// commits it through the single-writer path (spec.md §4.4 property 4:
// a rejected block never mutates committed state, since View.ApplyBlock
// rolls itself back on error and nothing is written to storage until
// after it succeeds).
func (n *Node) commitOnTip(block *types.Block) error {
	view := state.NewView(n.store)
	if err := view.ApplyBlock(block); err != nil {
		return err
	}
	changes := view.Changes()
	prior := priorValues(n.store, changes)

	newTip := &types.ChainTip{Hash: block.Hash(), Height: block.Height()}
	priorTip, err := n.currentTip()
	if err != nil {
		return err
	}
	if err := n.store.CommitBlock(block, changes, newTip); err != nil {
		return err
	}

	n.pool.Remove(block.Transactions.IDs())
	n.recordCommittedTx(block)
	n.branches.Observe(consensus.ChainHead{Hash: newTip.Hash, Height: newTip.Height, ParentHash: block.Header.ParentHash})
	n.branches.Prune(newTip.Hash, pruneFloor(newTip.Height, n.reorgDepth))
	n.recordHistory(&historyEntry{
		Hash:       newTip.Hash,
		Height:     newTip.Height,
		ParentHash: block.Header.ParentHash,
		Prior:      prior,
		PriorTip:   priorTip,
	})
	n.pruneOrphans(newTip.Height)
	log.Infof("committed block %s at height %d", newTip.Hash, newTip.Height)
	return nil
}

// pruneFloor returns the height below which an abandoned branch head is
// dropped from n.branches: anything shallower than the reorg window has
// no chance of ever becoming preferred again (spec.md §9, bounding
// branch-head memory from forks that lost fork choice).
func pruneFloor(tipHeight, reorgDepth uint64) uint64 {
	if tipHeight <= reorgDepth {
		return 0
	}
	return tipHeight - reorgDepth
}

// pruneOrphans drops any buffered orphan whose height has fallen more
// than maxOrphanAge behind the new tip: its parent is never coming
// (spec.md §4.8: "orphans older than a bound are dropped").
func (n *Node) pruneOrphans(tipHeight uint64) {
	for parentHash, children := range n.orphans {
		kept := children[:0:0]
		for _, child := range children {
			if tipHeight > child.Height()+maxOrphanAge {
				log.Debugf("dropping stale orphan %s awaiting parent %s", child.Hash(), parentHash)
				continue
			}
			kept = append(kept, child)
		}
		if len(kept) == 0 {
			delete(n.orphans, parentHash)
		} else {
			n.orphans[parentHash] = kept
		}
	}
}

// priorValues reads, for every touched address, its value as currently
// committed in store (i.e. before block's changes are written), giving
// the reverse delta recordHistory needs to later unwind this commit.
func priorValues(store *storage.Store, changes []storage.AccountChange) []storage.AccountChange {
	prior := make([]storage.AccountChange, len(changes))
	for i, c := range changes {
		acc, err := store.GetAccount(c.Address)
		if err != nil || acc == nil {
			acc = &types.Account{}
		}
		prior[i] = storage.AccountChange{Address: c.Address, Account: acc}
	}
	return prior
}

func (n *Node) recordHistory(e *historyEntry) {
	n.history[e.Hash] = e
	n.historyOrder = append(n.historyOrder, e.Hash)
	for uint64(len(n.historyOrder)) > n.reorgDepth*2 {
		oldest := n.historyOrder[0]
		n.historyOrder = n.historyOrder[1:]
		delete(n.history, oldest)
	}
}

// maybeReorg re-evaluates fork choice over all known branch heads and,
// if a branch other than the current tip is now preferred, unwinds the
// canonical chain back to the common ancestor and replays the new
// branch (spec.md §4.6 fork choice, §9 reverse-delta log option).
func (n *Node) maybeReorg(tip *types.ChainTip) error {
	preferred, ok := n.branches.Preferred()
	if !ok || preferred.Hash == tip.Hash {
		return nil
	}

	ancestor, chain, err := n.findCommonAncestor(preferred.Hash, tip.Hash)
	if err != nil {
		return err
	}
	unwindDepth := tip.Height - ancestor.Height
	if unwindDepth > n.reorgDepth {
		return consensusErrReorgTooDeep(unwindDepth, n.reorgDepth)
	}

	if err := n.unwindTo(ancestor); err != nil {
		return err
	}
	for _, block := range chain {
		if err := n.commitOnTip(block); err != nil {
			return err
		}
	}
	log.Infof("reorged from %s (height %d) to %s (height %d)", tip.Hash, tip.Height, preferred.Hash, preferred.Height)
	return nil
}

// findCommonAncestor walks back from newHead, by parent_hash, until it
// reaches a block that is part of the currently canonical chain (i.e.
// its height->hash index entry matches), returning that ancestor and
// the new branch's blocks in forward (ancestor-exclusive) order.
func (n *Node) findCommonAncestor(newHead, oldTip types.Hash) (types.ChainTip, types.Blocks, error) {
	var chain types.Blocks
	cursor := newHead
	for {
		block, err := n.store.GetBlock(cursor)
		if err != nil {
			return types.ChainTip{}, nil, err
		}
		canonicalHash, err := n.store.GetHeaderHashByHeight(block.Height())
		if err == nil && canonicalHash == cursor {
			// cursor is on the current canonical chain: common ancestor.
			for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
				chain[i], chain[j] = chain[j], chain[i]
			}
			return types.ChainTip{Hash: cursor, Height: block.Height()}, chain, nil
		}
		chain = append(chain, block)
		cursor = block.Header.ParentHash
	}
}

// unwindTo reverts committed state back to ancestor using the recorded
// reverse-delta history, failing if any required entry has aged out.
func (n *Node) unwindTo(ancestor types.ChainTip) error {
	tip, err := n.currentTip()
	if err != nil {
		return err
	}
	for tip.Hash != ancestor.Hash {
		entry, ok := n.history[tip.Hash]
		if !ok {
			return consensusErrReorgTooDeep(tip.Height-ancestor.Height, n.reorgDepth)
		}
		if block, err := n.store.GetBlock(tip.Hash); err == nil {
			n.forgetCommittedTx(block)
		}
		if err := n.store.Revert(entry.Prior, entry.PriorTip); err != nil {
			return err
		}
		delete(n.history, tip.Hash)
		tip = entry.PriorTip
	}
	return nil
}

// queueOrphan files block under its missing parent's hash until that
// parent is committed (spec.md §4.8: "Orphan transitions to Queued
// when parent is committed").
func (n *Node) queueOrphan(block *types.Block) {
	parentHash := block.Header.ParentHash
	for _, existing := range n.orphans[parentHash] {
		if existing.Hash() == block.Hash() {
			return
		}
	}
	n.orphans[parentHash] = append(n.orphans[parentHash], block)
	log.Debugf("orphaned block %s awaiting parent %s", block.Hash(), parentHash)
}

// promoteOrphans re-ingests any blocks that were waiting on parentHash.
func (n *Node) promoteOrphans(parentHash types.Hash) {
	children, ok := n.orphans[parentHash]
	if !ok {
		return
	}
	delete(n.orphans, parentHash)
	for _, child := range children {
		n.ingestBlock(child, true)
	}
}
