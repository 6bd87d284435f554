package state

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

// QueryAccount returns the account for address, or a zero-balance account
// with exists=false if the table has never seen it. The lookup goes
// through the state trie rather than the accounts map directly, so an
// external query follows the same key-indexed path StateRoot commits to.
func (s *State) QueryAccount(address signature.Address) (database.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	leaf := s.trie.GetLeaf(accountKey(address))
	if leaf == nil {
		return database.NewAccount(address), false
	}

	var decoded accountLeaf
	if err := rlp.DecodeBytes(leaf, &decoded); err != nil {
		return database.NewAccount(address), false
	}

	return database.Account{Address: address, Balance: decoded.Balance, Nonce: decoded.Nonce}, true
}

// StateRoot returns the current Merkle-Patricia commitment over every
// account in the table, keyed by keccak256(address) — the key-indexed
// trie structure spec.md §3 and §4.E call for, recomputed incrementally
// as putAccount writes rather than rebuilt on demand.
func (s *State) StateRoot() signature.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.trie.RootHash()
}

// QueryLatestBlock returns the most recently applied block.
func (s *State) QueryLatestBlock() (database.Block, bool) {
	return s.chain.Latest()
}

// QueryBlockByHeight returns the block at the given height.
func (s *State) QueryBlockByHeight(height uint64) (database.Block, bool) {
	return s.chain.GetBlockByHeight(height)
}

// QueryBlockByHash returns the block with the given hash.
func (s *State) QueryBlockByHash(hash signature.Hash) (database.Block, bool) {
	return s.chain.GetBlockByHash(hash)
}

// QueryTransaction returns the transaction identified by hash along with
// the block that contains it.
func (s *State) QueryTransaction(hash signature.Hash) (database.SignedTx, database.Block, bool) {
	return s.chain.GetTransaction(hash)
}

// QueryMempoolLength returns how many user transactions are pooled.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryValidatorMempoolLength returns how many validator transactions are
// pooled.
func (s *State) QueryValidatorMempoolLength() int {
	return s.validatorPool.Count()
}
