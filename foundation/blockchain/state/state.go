// Package state owns the single source of truth for account balances and
// nonces and orchestrates the three operations everything else in the node
// depends on: admitting a transaction to the mempool, validating a
// candidate block, and applying a block once it is final. It knows nothing
// about how a block gets produced or who signed it — that is the
// ConsensusEngine's job, injected at construction so this package never
// imports the rdpos package directly.
package state

import (
	"sync"

	"github.com/rdchain/node/foundation/blockchain/chain"
	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/genesis"
	"github.com/rdchain/node/foundation/blockchain/mempool"
	"github.com/rdchain/node/foundation/blockchain/patricia"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

// EventHandler is a logging callback every long-running collaborator
// (rdpos.Loop, worker.Worker) accepts so progress can be surfaced without
// this package or its callers depending on a concrete logger.
type EventHandler func(format string, v ...any)

// Config bundles the collaborators State is built from.
type Config struct {
	Genesis       genesis.Genesis
	Chain         *chain.Chain
	Mempool       *mempool.Mempool
	ValidatorPool *mempool.ValidatorPool
	Consensus     ConsensusEngine
}

// State is the node's account table plus the collaborators needed to
// validate and apply blocks against it. The canonical lock order, per the
// concurrency model, is chain → accounts → mempool → validatorSet; State
// never itself locks the validator set, which belongs to the consensus
// engine.
type State struct {
	mu       sync.RWMutex
	accounts map[signature.Address]database.Account

	// trie is the key-indexed Merkle-Patricia commitment over accounts,
	// kept in lockstep with accounts by putAccount: every account write
	// goes through both. Guarded by mu, same as accounts.
	trie *patricia.Trie

	genesis       genesis.Genesis
	chain         *chain.Chain
	mempool       *mempool.Mempool
	validatorPool *mempool.ValidatorPool
	consensus     ConsensusEngine
}

// New constructs a State whose account table is seeded from cfg.Genesis.
func New(cfg Config) *State {
	s := State{
		accounts:      make(map[signature.Address]database.Account),
		trie:          patricia.New(),
		genesis:       cfg.Genesis,
		chain:         cfg.Chain,
		mempool:       cfg.Mempool,
		validatorPool: cfg.ValidatorPool,
		consensus:     cfg.Consensus,
	}

	for address := range cfg.Genesis.Balances {
		s.putAccount(database.Account{
			Address: address,
			Balance: cfg.Genesis.Balance(address),
		})
	}

	for _, validator := range cfg.Genesis.Validators {
		if _, exists := s.accounts[validator]; !exists {
			s.putAccount(database.NewAccount(validator))
		}
	}

	return &s
}

// Mempool exposes the user transaction pool so the RPC and P2P layers can
// query its size without reaching into State's internals.
func (s *State) Mempool() *mempool.Mempool {
	return s.mempool
}

// ValidatorPool exposes the validator transaction pool for the same reason.
func (s *State) ValidatorPool() *mempool.ValidatorPool {
	return s.validatorPool
}

// Chain exposes the underlying chain for read-only queries elsewhere.
func (s *State) Chain() *chain.Chain {
	return s.chain
}

// Genesis returns the genesis configuration this State was built from.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}
