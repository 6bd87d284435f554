// Package database defines the wire-level and in-memory shape of the values
// that make up chain state: accounts, transactions, validator transactions,
// and blocks. It does not hold any mutable table of its own — that is the
// state package's job — it only knows how to construct, sign, hash, and
// (de)serialize these values.
package database

import (
	"math/big"

	"github.com/rdchain/node/foundation/blockchain/signature"
)

// Account represents the balance and nonce tracked for a single address.
// Accounts are created lazily on first credit and are never deleted.
type Account struct {
	Address signature.Address
	Balance *big.Int
	Nonce   uint64
}

// NewAccount constructs a zero-value account for address, useful the first
// time a credit or debit touches an address the table has not seen before.
func NewAccount(address signature.Address) Account {
	return Account{
		Address: address,
		Balance: big.NewInt(0),
	}
}

// byAccount provides sorting support by address so accounts can be
// serialized in a deterministic order.
type byAccount []Account

func (ba byAccount) Len() int      { return len(ba) }
func (ba byAccount) Swap(i, j int) { ba[i], ba[j] = ba[j], ba[i] }
func (ba byAccount) Less(i, j int) bool {
	return ba[i].Address.Hex() < ba[j].Address.Hex()
}
