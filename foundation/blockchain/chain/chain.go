// Package chain maintains the in-memory chain of accepted blocks plus the
// lookup indexes needed to answer "give me this block/tx" without a linear
// scan: by hash, by height, and by the hash of a transaction it contains.
package chain

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rdchain/node/foundation/blockchain/chainerrs"
	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/signature"
	"github.com/rdchain/node/foundation/blockchain/storage"
)

// Chain is an in-memory deque of blocks plus lookup indexes modelled on
// ChainHead in the original system: blockByHash, hashByHeight,
// blockHashByTx (the block holding a transaction) and txIndexInBlock (the
// transaction's position in that block). It loads from storage on construction and every push/pop
// writes straight through, so there is no separate "dump to storage" step.
type Chain struct {
	mu sync.RWMutex

	store  *storage.Store
	blocks []database.Block

	blockByHash    map[signature.Hash]int
	hashByHeight   map[uint64]signature.Hash
	blockHashByTx  map[signature.Hash]signature.Hash
	txIndexInBlock map[signature.Hash]int
}

// New constructs a Chain backed by store, loading any blocks store already
// holds in height order.
func New(store *storage.Store) (*Chain, error) {
	c := &Chain{
		store:          store,
		blockByHash:    make(map[signature.Hash]int),
		hashByHeight:   make(map[uint64]signature.Hash),
		blockHashByTx:  make(map[signature.Hash]signature.Hash),
		txIndexInBlock: make(map[signature.Hash]int),
	}

	if err := c.loadFromStorage(); err != nil {
		return nil, err
	}

	return c, nil
}

func heightKey(height uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], height)
	return b[:]
}

func (c *Chain) loadFromStorage() error {
	keys := c.store.GetKeys(storage.PrefixBlocks, nil, nil)
	sort.Slice(keys, func(i, j int) bool {
		return binary.BigEndian.Uint64(keys[i]) < binary.BigEndian.Uint64(keys[j])
	})

	for _, key := range keys {
		raw := c.store.Get(storage.PrefixBlocks, key)
		var block database.Block
		if err := rlp.DecodeBytes(raw, &block); err != nil {
			return chainerrs.NewStorageError(chainerrs.CorruptRecord, "decoding a block loaded from storage", err)
		}
		c.index(block)
	}

	return nil
}

// index appends block to the in-memory deque and updates every lookup map.
// Callers must hold c.mu.
func (c *Chain) index(block database.Block) {
	idx := len(c.blocks)
	c.blocks = append(c.blocks, block)

	hash := block.Hash()
	c.blockByHash[hash] = idx
	c.hashByHeight[block.Header.Height] = hash

	for i, tx := range block.Txs {
		txHash, err := tx.TxHash()
		if err != nil {
			continue
		}
		c.blockHashByTx[txHash] = hash
		c.txIndexInBlock[txHash] = i
	}
}

// PushBack appends block to the chain and persists it.
func (c *Chain) PushBack(block database.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := rlp.EncodeToBytes(block)
	if err != nil {
		return err
	}

	c.store.Put(storage.PrefixBlocks, heightKey(block.Header.Height), raw)
	c.index(block)

	return nil
}

// PopBack removes the most recently pushed block. It exists for reorg
// support; rdPoS's linear producer schedule never calls it in normal
// operation.
func (c *Chain) PopBack() (database.Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) == 0 {
		return database.Block{}, false
	}

	last := c.blocks[len(c.blocks)-1]
	c.blocks = c.blocks[:len(c.blocks)-1]

	hash := last.Hash()
	delete(c.blockByHash, hash)
	delete(c.hashByHeight, last.Header.Height)
	for _, tx := range last.Txs {
		if txHash, err := tx.TxHash(); err == nil {
			delete(c.blockHashByTx, txHash)
			delete(c.txIndexInBlock, txHash)
		}
	}

	c.store.Del(storage.PrefixBlocks, heightKey(last.Header.Height))

	return last, true
}

// Latest returns the most recently pushed block.
func (c *Chain) Latest() (database.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.blocks) == 0 {
		return database.Block{}, false
	}
	return c.blocks[len(c.blocks)-1], true
}

// GetBlockByHash returns the block with the given hash.
func (c *Chain) GetBlockByHash(hash signature.Hash) (database.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.blockByHash[hash]
	if !ok {
		return database.Block{}, false
	}
	return c.blocks[idx], true
}

// GetBlockByHeight returns the block at the given height.
func (c *Chain) GetBlockByHeight(height uint64) (database.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hash, ok := c.hashByHeight[height]
	if !ok {
		return database.Block{}, false
	}
	idx, ok := c.blockByHash[hash]
	if !ok {
		return database.Block{}, false
	}
	return c.blocks[idx], true
}

// GetTransaction returns the transaction identified by txHash along with
// the block it was included in.
func (c *Chain) GetTransaction(txHash signature.Hash) (database.SignedTx, database.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	blockHash, ok := c.blockHashByTx[txHash]
	if !ok {
		return database.SignedTx{}, database.Block{}, false
	}

	idx, ok := c.blockByHash[blockHash]
	if !ok {
		return database.SignedTx{}, database.Block{}, false
	}
	block := c.blocks[idx]

	txIdx, ok := c.txIndexInBlock[txHash]
	if !ok || txIdx >= len(block.Txs) {
		return database.SignedTx{}, database.Block{}, false
	}

	return block.Txs[txIdx], block, true
}

// Height returns the height of the latest block, or 0 with ok=false if the
// chain is empty.
func (c *Chain) Height() (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.blocks) == 0 {
		return 0, false
	}
	return c.blocks[len(c.blocks)-1].Header.Height, true
}

// Len returns the number of blocks currently held.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.blocks)
}
