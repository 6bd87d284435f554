package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

// accountLeaf is the RLP shape an account commits to in the state trie:
// balance and nonce, the two fields a transaction's admission checks
// actually depend on. The address itself is never part of the leaf — it
// is already folded into the trie key.
type accountLeaf struct {
	Balance *big.Int
	Nonce   uint64
}

// accountKey is the trie key an address indexes under: keccak256 of the
// address bytes, so lookups spread evenly across the trie's 16-wide
// fanout regardless of how addresses themselves were assigned.
func accountKey(address signature.Address) signature.Hash {
	return signature.Keccak256(address.Bytes())
}

// putAccount writes account into both the account table and the state
// trie under the same key, so every mutation the rest of this package
// makes to accounts keeps StateRoot's commitment in sync with it. Callers
// hold s.mu already; putAccount takes no lock of its own.
func (s *State) putAccount(account database.Account) {
	s.accounts[account.Address] = account

	leaf, err := rlp.EncodeToBytes(accountLeaf{Balance: account.Balance, Nonce: account.Nonce})
	if err != nil {
		return
	}
	s.trie.AddLeaf(accountKey(account.Address), leaf)
}
