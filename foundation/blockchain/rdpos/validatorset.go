// Package rdpos implements the node's consensus engine: electing a block
// producer and a quorum of co-signers per height from the validator set,
// driving the commit/reveal randomness beacon that makes the schedule
// unpredictable more than one block ahead, and validating that a proposed
// block honors all of it. It satisfies state.ConsensusEngine so the state
// package never imports it directly.
package rdpos

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/rdchain/node/foundation/blockchain/signature"
	"github.com/rdchain/node/foundation/blockchain/storage"
)

// ValidatorSet is the current set of addresses eligible to be scheduled as
// producer or co-signer, persisted under storage.PrefixValidators as
// (index: u64 big-endian) → (address: 20 bytes), the wire shape spec.md
// §4.I names. Membership order matters only insofar as it must be stable
// between runs; schedule order is derived fresh from the seed every
// height, not from this slice's order.
type ValidatorSet struct {
	mu      sync.RWMutex
	store   *storage.Store
	addrs   []signature.Address
	indexOf map[signature.Address]int
}

func indexKey(i uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], i)
	return b[:]
}

// NewValidatorSet constructs a ValidatorSet backed by store, loading any
// addresses already persisted there. If the store holds none (a fresh
// chain), seed populates it with the genesis validator set.
func NewValidatorSet(store *storage.Store, seed []signature.Address) (*ValidatorSet, error) {
	vs := &ValidatorSet{
		store:   store,
		indexOf: make(map[signature.Address]int),
	}

	if err := vs.loadFromStorage(); err != nil {
		return nil, err
	}

	if len(vs.addrs) == 0 {
		for _, addr := range seed {
			if err := vs.add(addr); err != nil {
				return nil, err
			}
		}
	}

	return vs, nil
}

func (vs *ValidatorSet) loadFromStorage() error {
	keys := vs.store.GetKeys(storage.PrefixValidators, nil, nil)
	sort.Slice(keys, func(i, j int) bool {
		return binary.BigEndian.Uint64(keys[i]) < binary.BigEndian.Uint64(keys[j])
	})

	for _, key := range keys {
		raw := vs.store.Get(storage.PrefixValidators, key)
		if len(raw) != signature.AddressLength {
			continue
		}
		addr := signature.AddressFromBytes(raw)
		vs.indexOf[addr] = len(vs.addrs)
		vs.addrs = append(vs.addrs, addr)
	}

	return nil
}

// add appends addr to the set and persists it. Callers must hold vs.mu or
// call this only before the set is shared (construction time).
func (vs *ValidatorSet) add(addr signature.Address) error {
	if _, exists := vs.indexOf[addr]; exists {
		return nil
	}

	i := uint64(len(vs.addrs))
	vs.store.Put(storage.PrefixValidators, indexKey(i), addr.Bytes())
	vs.indexOf[addr] = len(vs.addrs)
	vs.addrs = append(vs.addrs, addr)
	return nil
}

// Add inserts a new validator, persisting the updated set. A duplicate
// add is a no-op.
func (vs *ValidatorSet) Add(addr signature.Address) error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	return vs.add(addr)
}

// Remove drops addr from the set, re-persisting every remaining entry
// under its new, compacted index.
func (vs *ValidatorSet) Remove(addr signature.Address) error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	i, exists := vs.indexOf[addr]
	if !exists {
		return nil
	}

	vs.addrs = append(vs.addrs[:i], vs.addrs[i+1:]...)
	delete(vs.indexOf, addr)

	for j := i; j < len(vs.addrs); j++ {
		vs.indexOf[vs.addrs[j]] = j
	}

	for j := 0; j <= len(vs.addrs); j++ {
		vs.store.Del(storage.PrefixValidators, indexKey(uint64(j)))
	}
	for j, a := range vs.addrs {
		vs.store.Put(storage.PrefixValidators, indexKey(uint64(j)), a.Bytes())
	}

	return nil
}

// Contains reports whether addr is a member of the current validator set.
func (vs *ValidatorSet) Contains(addr signature.Address) bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	_, exists := vs.indexOf[addr]
	return exists
}

// Len returns the current validator set size.
func (vs *ValidatorSet) Len() int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	return len(vs.addrs)
}

// List returns a snapshot of every validator address, in set order.
func (vs *ValidatorSet) List() []signature.Address {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	out := make([]signature.Address, len(vs.addrs))
	copy(out, vs.addrs)
	return out
}
