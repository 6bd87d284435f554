// Package evm names the contract a future EVM-compatible execution
// environment must satisfy. No implementation lives here yet — every
// transaction today is a plain value transfer applied directly by
// state.State — but state.ProcessBlock's per-tx loop is written so an
// Engine can be dropped in without another seam change.
package evm

import (
	"math/big"

	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

// Log is a single event a contract emitted during execution, the same
// shape Ethereum's LOG0-LOG4 opcodes produce.
type Log struct {
	Address signature.Address
	Topics  []signature.Hash
	Data    []byte
}

// Delta is the set of account-level side effects executing a transaction
// produced, beyond the plain value transfer state.State already applies:
// new or updated contract code, storage writes, and any contract accounts
// created along the way.
type Delta struct {
	Code    map[signature.Address][]byte
	Storage map[signature.Address]map[signature.Hash]signature.Hash
	Created []signature.Address
}

// Engine executes one transaction against a snapshot of account state and
// reports what changed. Implementations own their own gas metering; the
// gas used they return (the *big.Int result) must never exceed the
// transaction's declared gas limit.
type Engine interface {
	Execute(tx database.SignedTx, accounts map[signature.Address]database.Account) (Delta, []Log, *big.Int, error)
}
