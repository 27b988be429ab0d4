// Package storage implements C3: durable, atomic persistence of blocks,
// headers, accounts and the chain tip over LevelDB (spec.md §4.3).
//
// Keyspace layout, adapted from tinychain's db.TinyDB key-prefix scheme:
//
//	"b" + hash                 -> encoded Block
//	"h" + big-endian(height)   -> Hash               (header_by_height index)
//	"a" + address              -> encoded Account
//	"meta/tip"                 -> encoded ChainTip
//	"meta/genesis_hash"        -> Hash
package storage

import (
	"encoding/binary"

	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/tinynode/tinynode/internal/logging"
	"github.com/tinynode/tinynode/internal/types"
)

var log = logging.GetLogger("storage")

const (
	prefixBlock        = "b"
	prefixHeaderHeight = "h"
	prefixAccount      = "a"
	keyTip             = "meta/tip"
	keyGenesisHash     = "meta/genesis_hash"

	blockCacheSize = 1024
)

// Store is the durable KV store backing C3. A single process is expected to
// hold the write lock on the underlying LevelDB directory (spec.md §5's
// single-writer discipline).
type Store struct {
	db *leveldb.DB

	blockCache *lru.Cache // Hash -> *types.Block
}

// Open opens (and, if createIfMissing, creates) the LevelDB database at
// path.
func Open(path string, createIfMissing bool) (*Store, error) {
	opts := &opt.Options{
		ErrorIfMissing: !createIfMissing,
	}
	db, err := leveldb.OpenFile(path, opts)
	if err != nil {
		if errors.IsCorrupted(err) {
			log.Errorf("storage corruption detected at %q: %s", path, err)
			return nil, ErrCorruption
		}
		return nil, WrapIOError(err)
	}
	cache, _ := lru.New(blockCacheSize)
	return &Store{db: db, blockCache: cache}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func blockKey(hash types.Hash) []byte {
	return append([]byte(prefixBlock), hash[:]...)
}

func headerHeightKey(height uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], height)
	return append([]byte(prefixHeaderHeight), b[:]...)
}

func accountKey(addr types.Address) []byte {
	return append([]byte(prefixAccount), addr[:]...)
}

// GetBlock returns the block stored under hash, or ErrNotFound.
func (s *Store) GetBlock(hash types.Hash) (*types.Block, error) {
	if cached, ok := s.blockCache.Get(hash); ok {
		return cached.(*types.Block), nil
	}
	data, err := s.db.Get(blockKey(hash), nil)
	if err != nil {
		return nil, translateGetErr(err)
	}
	block, err := types.DecodeBlock(data)
	if err != nil {
		return nil, errors2CodecErr(err)
	}
	s.blockCache.Add(hash, block)
	return block, nil
}

// GetHeaderHashByHeight returns the canonical block hash at height, via the
// height->hash index (spec.md §4.3).
func (s *Store) GetHeaderHashByHeight(height uint64) (types.Hash, error) {
	data, err := s.db.Get(headerHeightKey(height), nil)
	if err != nil {
		return types.Hash{}, translateGetErr(err)
	}
	return types.BytesToHash(data), nil
}

// GetBlockByHeight performs the two-step height->hash->block lookup
// (spec.md §4.3).
func (s *Store) GetBlockByHeight(height uint64) (*types.Block, error) {
	hash, err := s.GetHeaderHashByHeight(height)
	if err != nil {
		return nil, err
	}
	return s.GetBlock(hash)
}

// GetAccount returns the account stored under addr, or ErrNotFound.
func (s *Store) GetAccount(addr types.Address) (*types.Account, error) {
	data, err := s.db.Get(accountKey(addr), nil)
	if err != nil {
		return nil, translateGetErr(err)
	}
	acc, err := types.DecodeAccount(data)
	if err != nil {
		return nil, errors2CodecErr(err)
	}
	return acc, nil
}

// GetTip returns the current chain tip, or ErrNotFound if the chain has
// never been initialized.
func (s *Store) GetTip() (*types.ChainTip, error) {
	data, err := s.db.Get([]byte(keyTip), nil)
	if err != nil {
		return nil, translateGetErr(err)
	}
	tip, err := types.DecodeChainTip(data)
	if err != nil {
		return nil, errors2CodecErr(err)
	}
	return tip, nil
}

// GetGenesisHash returns the hash of the genesis block recorded at startup.
func (s *Store) GetGenesisHash() (types.Hash, error) {
	data, err := s.db.Get([]byte(keyGenesisHash), nil)
	if err != nil {
		return types.Hash{}, translateGetErr(err)
	}
	return types.BytesToHash(data), nil
}

// AccountChange is a single address's post-block account value, to be
// persisted atomically alongside the block and tip (spec.md §4.3).
type AccountChange struct {
	Address types.Address
	Account *types.Account
}

// CommitBlock atomically writes block, its height->hash index entry, the
// given account changes, and the new chain tip. Either all writes persist
// or none do (spec.md §4.3, property 8: idempotent w.r.t. final state).
func (s *Store) CommitBlock(block *types.Block, changes []AccountChange, newTip *types.ChainTip) error {
	hash := block.Hash()

	if existing, err := s.GetBlock(hash); err == nil && existing != nil {
		// Same block already committed: commit_block is idempotent.
		if tip, terr := s.GetTip(); terr == nil && tip.Hash == newTip.Hash && tip.Height == newTip.Height {
			return nil
		}
	}

	batch := new(leveldb.Batch)
	batch.Put(blockKey(hash), block.Encode())
	batch.Put(headerHeightKey(block.Height()), hash[:])
	for _, c := range changes {
		batch.Put(accountKey(c.Address), c.Account.Encode())
	}
	batch.Put([]byte(keyTip), newTip.Encode())

	if err := s.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return WrapIOError(err)
	}

	s.blockCache.Add(hash, block)
	return nil
}

// PutBlock stores block under its hash without touching the height
// index, account state, or chain tip. Used to hold a block that extends
// a non-canonical branch until (if ever) that branch becomes canonical
// (spec.md §9's "keep a flat store of all known blocks").
func (s *Store) PutBlock(block *types.Block) error {
	hash := block.Hash()
	if err := s.db.Put(blockKey(hash), block.Encode(), &opt.WriteOptions{Sync: true}); err != nil {
		return WrapIOError(err)
	}
	s.blockCache.Add(hash, block)
	return nil
}

// Revert rewrites the given accounts to their pre-block values and moves
// the chain tip back to newTip, without touching any block or
// height-index entry. Used by the orchestrator to unwind committed
// blocks during a reorg (spec.md §9's reverse-delta log option).
func (s *Store) Revert(changes []AccountChange, newTip *types.ChainTip) error {
	batch := new(leveldb.Batch)
	for _, c := range changes {
		batch.Put(accountKey(c.Address), c.Account.Encode())
	}
	batch.Put([]byte(keyTip), newTip.Encode())
	if err := s.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return WrapIOError(err)
	}
	return nil
}

// CommitGenesis persists the genesis block, its initial accounts, and
// records it as both the genesis anchor and the initial chain tip.
func (s *Store) CommitGenesis(block *types.Block, initialAccounts map[types.Address]*types.Account) error {
	hash := block.Hash()
	batch := new(leveldb.Batch)
	batch.Put(blockKey(hash), block.Encode())
	batch.Put(headerHeightKey(0), hash[:])
	for addr, acc := range initialAccounts {
		batch.Put(accountKey(addr), acc.Encode())
	}
	batch.Put([]byte(keyGenesisHash), hash[:])
	tip := &types.ChainTip{Hash: hash, Height: 0}
	batch.Put([]byte(keyTip), tip.Encode())

	if err := s.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return WrapIOError(err)
	}
	s.blockCache.Add(hash, block)
	return nil
}

// IsEmpty reports whether the store has never been initialized with a
// genesis block, used by the orchestrator's bootstrap step (spec.md §4.8).
func (s *Store) IsEmpty() bool {
	_, err := s.GetTip()
	return IsNotFound(err)
}

func translateGetErr(err error) error {
	if err == leveldb.ErrNotFound {
		return ErrNotFound
	}
	if errors.IsCorrupted(err) {
		return ErrCorruption
	}
	return WrapIOError(err)
}

func errors2CodecErr(err error) error {
	return WrapCodecError(err)
}
