// Package node implements C8: the orchestrator that wires storage,
// state, mempool, consensus and network together, owns the single
// commit path, and drives block production and synchronization
// (spec.md §4.8).
//
// Grounded on tinychain's tiny.Tiny wiring order (db -> state -> chain
// -> network -> engine) and tiny.Network's event-channel pump, but
// rebuilt on plain goroutines and channels instead of porting
// tinychain's event.TypeMux pub-sub verbatim — see DESIGN.md.
package node

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	libp2ppeer "github.com/libp2p/go-libp2p-peer"
	"github.com/pkg/errors"

	"github.com/tinynode/tinynode/internal/config"
	"github.com/tinynode/tinynode/internal/consensus"
	"github.com/tinynode/tinynode/internal/crypto"
	"github.com/tinynode/tinynode/internal/logging"
	"github.com/tinynode/tinynode/internal/mempool"
	"github.com/tinynode/tinynode/internal/p2p"
	"github.com/tinynode/tinynode/internal/state"
	"github.com/tinynode/tinynode/internal/storage"
	"github.com/tinynode/tinynode/internal/types"
)

var log = logging.GetLogger("node")

const (
	inboundQueueSize = 1024
	maxOrphanAge     = 64 // blocks of tip advance before an orphan is dropped
)

// historyEntry is one canonical commit's reverse delta: the pre-block
// account values and tip, kept so a reorg up to reorgDepth blocks deep
// can unwind the canonical chain (spec.md §9's reverse-delta log
// option).
type historyEntry struct {
	Hash       types.Hash
	Height     uint64
	ParentHash types.Hash
	Prior      []storage.AccountChange
	PriorTip   *types.ChainTip
}

type inboundBlock struct {
	from  libp2ppeer.ID
	block *types.Block
}

type inboundTx struct {
	from libp2ppeer.ID
	tx   *types.Transaction
}

type inboundSyncReq struct {
	from libp2ppeer.ID
	req  *p2p.SyncRequest
}

type inboundSyncResp struct {
	from   libp2ppeer.ID
	blocks types.Blocks
	none   bool
}

// Node is C8's single-writer orchestrator.
type Node struct {
	cfg    *config.Config
	store  *storage.Store
	pool   *mempool.Pool
	engine *consensus.Engine
	peer   *p2p.Peer

	branches      *consensus.BranchHeads
	admissionView *state.View

	selfAddr    types.Address
	selfPriv    crypto.PrivateKey
	selfPub     crypto.PublicKey
	isValidator bool

	reorgDepth   uint64
	history      map[types.Hash]*historyEntry
	historyOrder []types.Hash

	orphans map[types.Hash][]*types.Block

	committedTx *lru.Cache // types.Hash (tx id) -> types.Hash (block hash), best-effort index for TransactionStatus

	sync *syncState

	blockInCh   chan inboundBlock
	txInCh      chan inboundTx
	syncReqInCh chan inboundSyncReq
	syncRespCh  chan inboundSyncResp

	quitCh chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex // single-writer lock over Storage/State/tip
}

// Options bundles the validator identity a node may run with.
type Options struct {
	IsValidator bool
	PrivateKey  crypto.PrivateKey
	PublicKey   crypto.PublicKey
	ReorgDepth  uint64
}

// New wires a Node over its already-open dependencies. Bootstrap must be
// called once before Start if store.IsEmpty().
func New(cfg *config.Config, store *storage.Store, pool *mempool.Pool, engine *consensus.Engine, peer *p2p.Peer, opts Options) *Node {
	if opts.ReorgDepth == 0 {
		opts.ReorgDepth = 64
	}
	var selfAddr types.Address
	if opts.IsValidator {
		selfAddr = types.BytesToAddress(opts.PublicKey)
	}
	return &Node{
		cfg:           cfg,
		store:         store,
		pool:          pool,
		engine:        engine,
		peer:          peer,
		admissionView: state.NewView(store),
		selfAddr:      selfAddr,
		selfPriv:      opts.PrivateKey,
		selfPub:       opts.PublicKey,
		isValidator:   opts.IsValidator,
		reorgDepth:    opts.ReorgDepth,
		history:       make(map[types.Hash]*historyEntry),
		orphans:       make(map[types.Hash][]*types.Block),
		committedTx:   newCommittedTxCache(),
		sync:          newSyncState(),
		blockInCh:     make(chan inboundBlock, inboundQueueSize),
		txInCh:        make(chan inboundTx, inboundQueueSize),
		syncReqInCh:   make(chan inboundSyncReq, inboundQueueSize),
		syncRespCh:    make(chan inboundSyncResp, inboundQueueSize),
		quitCh:        make(chan struct{}),
	}
}

// Bootstrap initializes an empty store with the genesis block and its
// initial account balances (spec.md §4.8 step 1).
func (n *Node) Bootstrap(genesisBlock *types.Block, initialAccounts map[types.Address]*types.Account) error {
	if err := n.engine.ValidateGenesis(genesisBlock); err != nil {
		return errors.Wrap(err, "node: invalid genesis block")
	}
	if err := n.store.CommitGenesis(genesisBlock, initialAccounts); err != nil {
		return errors.Wrap(err, "node: failed to commit genesis")
	}
	log.Infof("bootstrapped chain at genesis %s", genesisBlock.Hash())
	return nil
}

// Start registers the network protocol handlers, starts listening, and
// launches the orchestrator's background tasks (spec.md §4.8's
// "independent tasks communicating via bounded channels" design note).
func (n *Node) Start() error {
	tip, err := n.store.GetTip()
	if err != nil {
		return errors.Wrap(err, "node: store is not bootstrapped")
	}
	tipBlock, err := n.store.GetBlock(tip.Hash)
	if err != nil {
		return errors.Wrap(err, "node: canonical tip block missing from storage")
	}
	n.branches = consensus.NewBranchHeads(consensus.ChainHead{
		Hash:       tip.Hash,
		Height:     tip.Height,
		ParentHash: tipBlock.Header.ParentHash,
	})

	if err := n.registerProtocols(); err != nil {
		return err
	}
	if err := n.peer.Start(); err != nil {
		return err
	}

	n.wg.Add(1)
	go n.mainLoop()

	n.wg.Add(1)
	go n.syncDriver()

	if n.isValidator {
		n.wg.Add(1)
		go n.productionLoop()
	}

	log.Infof("node started at tip height %d (%s)", tip.Height, tip.Hash)
	return nil
}

// Stop signals every background task to exit and waits for them to
// finish, then closes the network and storage layers.
func (n *Node) Stop() {
	close(n.quitCh)
	n.wg.Wait()
	n.peer.Stop()
	if err := n.store.Close(); err != nil {
		log.Errorf("error closing storage: %s", err)
	}
	log.Info("node stopped")
}

func (n *Node) currentTip() (*types.ChainTip, error) {
	return n.store.GetTip()
}

func (n *Node) mainLoop() {
	defer n.wg.Done()
	for {
		select {
		case in := <-n.txInCh:
			n.handleInboundTx(in)
		case in := <-n.blockInCh:
			n.handleInboundBlock(in)
		case in := <-n.syncReqInCh:
			n.handleSyncRequest(in)
		case in := <-n.syncRespCh:
			n.handleSyncResponse(in)
		case <-n.quitCh:
			return
		}
	}
}
