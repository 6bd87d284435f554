package mempool

import (
	"sync"

	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

type validatorEntry struct {
	tx  database.SignedValidatorTx
	seq uint64
}

// ValidatorPool holds pending validator transactions: randomHash
// commitments, randomSeed reveals, and validator-set change requests. The
// rdPoS consensus loop assembles these into a block in the schedule-driven
// order spec.md §4.D requires (every commitment before any reveal), not
// insertion order, so unlike Mempool there is no selector here — rdpos
// queries this pool directly by sender and kind.
type ValidatorPool struct {
	mu      sync.RWMutex
	pool    map[signature.Hash]validatorEntry
	nextSeq uint64
}

// NewValidatorPool constructs an empty validator transaction pool.
func NewValidatorPool() *ValidatorPool {
	return &ValidatorPool{pool: make(map[signature.Hash]validatorEntry)}
}

// Count returns the current number of pooled validator transactions.
func (vp *ValidatorPool) Count() int {
	vp.mu.RLock()
	defer vp.mu.RUnlock()

	return len(vp.pool)
}

// Has reports whether a validator transaction with this hash is pooled.
func (vp *ValidatorPool) Has(txHash signature.Hash) bool {
	vp.mu.RLock()
	defer vp.mu.RUnlock()

	_, ok := vp.pool[txHash]
	return ok
}

// Upsert adds tx to the pool. A resubmission of the same hash is a no-op.
func (vp *ValidatorPool) Upsert(tx database.SignedValidatorTx) (int, error) {
	txHash, err := tx.TxHash()
	if err != nil {
		return 0, err
	}

	vp.mu.Lock()
	defer vp.mu.Unlock()

	if _, exists := vp.pool[txHash]; !exists {
		vp.pool[txHash] = validatorEntry{tx: tx, seq: vp.nextSeq}
		vp.nextSeq++
	}

	return len(vp.pool), nil
}

// Delete removes a validator transaction from the pool.
func (vp *ValidatorPool) Delete(tx database.SignedValidatorTx) error {
	txHash, err := tx.TxHash()
	if err != nil {
		return err
	}

	vp.mu.Lock()
	defer vp.mu.Unlock()

	delete(vp.pool, txHash)
	return nil
}

// Truncate clears every pooled validator transaction.
func (vp *ValidatorPool) Truncate() {
	vp.mu.Lock()
	defer vp.mu.Unlock()

	vp.pool = make(map[signature.Hash]validatorEntry)
}

// All returns every pooled validator transaction, in insertion order.
func (vp *ValidatorPool) All() []database.SignedValidatorTx {
	vp.mu.RLock()
	defer vp.mu.RUnlock()

	entries := make([]validatorEntry, 0, len(vp.pool))
	for _, e := range vp.pool {
		entries = append(entries, e)
	}

	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].seq < entries[j-1].seq; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}

	out := make([]database.SignedValidatorTx, len(entries))
	for i, e := range entries {
		out[i] = e.tx
	}
	return out
}

// FindByKindAndSender returns the pooled transaction of the given kind
// submitted by sender, if any. rdPoS uses this to pull "the randomHash
// schedule[i] committed" and "the randomSeed schedule[i] revealed" when
// assembling a block in schedule order.
func (vp *ValidatorPool) FindByKindAndSender(kind database.ValidatorTxKind, sender signature.Address) (database.SignedValidatorTx, bool) {
	vp.mu.RLock()
	defer vp.mu.RUnlock()

	for _, e := range vp.pool {
		if e.tx.Kind != kind {
			continue
		}
		from, err := e.tx.FromAddress()
		if err != nil || from != sender {
			continue
		}
		return e.tx, true
	}

	return database.SignedValidatorTx{}, false
}
