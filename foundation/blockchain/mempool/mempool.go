// Package mempool maintains the node's two transaction pools: user
// transactions awaiting inclusion in a block, and validator transactions
// (the commit/reveal randomness beacon and validator-set changes) awaiting
// inclusion by the rdPoS consensus loop.
package mempool

import (
	"sync"

	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/mempool/selector"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

type userEntry struct {
	tx  database.SignedTx
	seq uint64
}

// Mempool is the user transaction pool. Entries are keyed by transaction
// hash so a resubmission of the same signed transaction is recognized as a
// duplicate (spec.md §4.H admission rule 2) rather than silently replacing
// whatever is already pooled.
type Mempool struct {
	mu       sync.RWMutex
	pool     map[signature.Hash]userEntry
	nextSeq  uint64
	selectFn selector.Func
}

// New constructs a new mempool using the default insertion-order strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyInsertion)
}

// NewWithStrategy constructs a new mempool with the specified selection
// strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[signature.Hash]userEntry),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Has reports whether a transaction with this hash is already pooled.
func (mp *Mempool) Has(txHash signature.Hash) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, ok := mp.pool[txHash]
	return ok
}

// Upsert adds tx to the pool. If a transaction with the same hash is
// already pooled, this is a no-op: the caller should treat it as the
// "duplicate" admission outcome, not an error.
func (mp *Mempool) Upsert(tx database.SignedTx) (int, error) {
	txHash, err := tx.TxHash()
	if err != nil {
		return 0, err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[txHash]; !exists {
		mp.pool[txHash] = userEntry{tx: tx, seq: mp.nextSeq}
		mp.nextSeq++
	}

	return len(mp.pool), nil
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(tx database.SignedTx) error {
	txHash, err := tx.TxHash()
	if err != nil {
		return err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, txHash)
	return nil
}

// Truncate clears every transaction from the pool. Block application
// clears the entire user mempool after applying a block (spec.md §4.H).
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[signature.Hash]userEntry)
}

// PickBest uses the configured selection strategy to return the next set
// of transactions for the next block. howMany of -1 returns every pooled
// transaction.
func (mp *Mempool) PickBest(howMany int) []database.SignedTx {
	ordered := mp.ordered()
	return mp.selectFn(ordered, howMany)
}

// ordered returns every pooled transaction sorted by insertion sequence.
func (mp *Mempool) ordered() []database.SignedTx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	entries := make([]userEntry, 0, len(mp.pool))
	for _, e := range mp.pool {
		entries = append(entries, e)
	}

	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].seq < entries[j-1].seq; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}

	out := make([]database.SignedTx, len(entries))
	for i, e := range entries {
		out[i] = e.tx
	}
	return out
}
