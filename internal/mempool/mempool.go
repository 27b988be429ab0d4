// Package mempool implements C5: a bounded pool of admitted, unconfirmed
// transactions (spec.md §4.5). It tolerates concurrent Add from network
// ingress alongside DrainForBlock/Remove from the block producer, guarded
// by a single mutex that is dropped around the CPU-bound stateful check
// (spec.md §5's mempool concurrency discipline).
package mempool

import (
	"sort"
	"sync"

	"github.com/tinynode/tinynode/internal/logging"
	"github.com/tinynode/tinynode/internal/state"
	"github.com/tinynode/tinynode/internal/types"
)

var log = logging.GetLogger("mempool")

// StateReader is the read view the mempool uses for best-effort stateful
// admission checks (spec.md §9 Open Question 2).
type StateReader interface {
	GetAccount(addr types.Address) *types.Account
}

// Config bounds the mempool (spec.md §4.5).
type Config struct {
	MaxTransactions int
}

// Pool is C5's mempool: a map from transaction identifier to transaction,
// plus an insertion-ordered FIFO index.
type Pool struct {
	mu sync.Mutex

	cfg   Config
	byID  map[types.Hash]*types.Transaction
	order []types.Hash // FIFO arrival order
}

// New creates an empty mempool bounded by cfg.MaxTransactions.
func New(cfg Config) *Pool {
	if cfg.MaxTransactions <= 0 {
		cfg.MaxTransactions = 1000
	}
	return &Pool{
		cfg:  cfg,
		byID: make(map[types.Hash]*types.Transaction),
	}
}

// Add admits tx into the pool after a signature check and a best-effort
// stateful check against reader (spec.md §4.5, §9 Open Question 2: mempool
// admission is both syntactic+signature and best-effort stateful, since
// state advances asynchronously with respect to gossip).
//
// Admission only requires tx.Nonce to be reachable from the sender's
// current on-state nonce, not equal to it: a sender may have more than one
// pending transaction at once, queued ahead of its turn, as long as later
// ones aren't already stale. DrainForBlock is what enforces the stronger
// rule that only a contiguous run starting at the current nonce actually
// lands in a block (spec.md §4.5, property 5) — admission and inclusion are
// deliberately different gates, the same split tinychain's txpool draws
// between Add and Pending.
func (p *Pool) Add(tx *types.Transaction, reader *state.View) error {
	id := tx.ID()

	p.mu.Lock()
	if _, exists := p.byID[id]; exists {
		p.mu.Unlock()
		return ErrAlreadyPresent
	}
	if len(p.order) >= p.cfg.MaxTransactions {
		p.mu.Unlock()
		return ErrPoolFull
	}
	p.mu.Unlock()

	// CPU-bound validation runs with the lock dropped (spec.md §5).
	if !tx.VerifySignature() {
		return &InvalidTransactionError{Reason: state.ErrInvalidSignature}
	}
	sender := reader.GetAccount(tx.Sender)
	if tx.Nonce < sender.Nonce {
		return &InvalidTransactionError{Reason: &state.NonceMismatchError{Expected: sender.Nonce, Actual: tx.Nonce}}
	}
	if sender.Balance < tx.Amount {
		return &InvalidTransactionError{Reason: &state.InsufficientBalanceError{Required: tx.Amount, Available: sender.Balance}}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byID[id]; exists {
		return ErrAlreadyPresent
	}
	if len(p.order) >= p.cfg.MaxTransactions {
		return ErrPoolFull
	}
	for _, existingID := range p.order {
		if existing := p.byID[existingID]; existing.Sender == tx.Sender && existing.Nonce == tx.Nonce {
			return ErrAlreadyPresent
		}
	}
	p.byID[id] = tx
	p.order = append(p.order, id)
	log.Debugf("admitted tx %s, pending=%d", id, len(p.order))
	return nil
}

// Contains reports whether id is currently pending.
func (p *Pool) Contains(id types.Hash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.byID[id]
	return ok
}

// Remove drops the given transaction identifiers from the pool. Missing
// ids are not an error (spec.md §4.5). Called by the orchestrator inside
// the same critical section as the commit/tip update, so a transaction can
// never be drained again after it is committed (spec.md §5).
func (p *Pool) Remove(ids []types.Hash) {
	if len(ids) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	remove := make(map[types.Hash]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := p.byID[id]; ok {
			delete(p.byID, id)
			remove[id] = struct{}{}
		}
	}
	if len(remove) == 0 {
		return
	}
	kept := p.order[:0:0]
	for _, id := range p.order {
		if _, gone := remove[id]; !gone {
			kept = append(kept, id)
		}
	}
	p.order = kept
}

// Len returns the number of pending transactions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// DrainForBlock selects up to maxCount transactions (capped additionally by
// maxBytes of encoded size) suitable for inclusion in the next block.
//
// For each sender with multiple pending transactions, they are emitted in
// ascending nonce order, and only the prefix that is contiguous starting
// at the sender's current on-state nonce (per reader) is eligible — a gap
// anywhere in a sender's nonce sequence stops that sender's contribution
// at the gap (spec.md §4.5, property 5).
func (p *Pool) DrainForBlock(maxCount, maxBytes int, reader *state.View) types.Transactions {
	p.mu.Lock()
	bySender := make(map[types.Address][]*types.Transaction)
	for _, id := range p.order {
		tx := p.byID[id]
		bySender[tx.Sender] = append(bySender[tx.Sender], tx)
	}
	p.mu.Unlock()

	for sender, txs := range bySender {
		sort.Slice(txs, func(i, j int) bool { return txs[i].Nonce < txs[j].Nonce })
		bySender[sender] = txs
	}

	eligible := make([]*types.Transaction, 0, maxCount)
	for sender, txs := range bySender {
		expected := reader.GetNonce(sender)
		for _, tx := range txs {
			if tx.Nonce != expected {
				break
			}
			eligible = append(eligible, tx)
			expected++
		}
	}

	// Restore FIFO arrival order among the eligible set so block building
	// stays deterministic across equivalent pools.
	pos := make(map[types.Hash]int, len(p.order))
	p.mu.Lock()
	for i, id := range p.order {
		pos[id] = i
	}
	p.mu.Unlock()
	sort.Slice(eligible, func(i, j int) bool { return pos[eligible[i].ID()] < pos[eligible[j].ID()] })

	// Within the FIFO slots each sender occupies, emit that sender's
	// transactions in ascending nonce order.
	used := make(map[types.Address]int, len(bySender))
	for i, tx := range eligible {
		eligible[i] = bySender[tx.Sender][used[tx.Sender]]
		used[tx.Sender]++
	}

	out := make(types.Transactions, 0, maxCount)
	size := 0
	for _, tx := range eligible {
		if len(out) >= maxCount {
			break
		}
		encoded := tx.Encode()
		if maxBytes > 0 && size+len(encoded) > maxBytes {
			continue
		}
		out = append(out, tx)
		size += len(encoded)
	}
	return out
}
