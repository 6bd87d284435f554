package state

import (
	"time"

	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

// ConsensusEngine is the seam between State and rdPoS, the same role the
// original node's Worker interface plays between state and its POW miner:
// State drives the when (new block needed, block received, block applied)
// and rdPoS owns the how (who gets to propose, who must co-sign, how the
// randomness beacon advances).
type ConsensusEngine interface {
	// BuildBlock assembles validatorTxs from the validator mempool in
	// schedule order, computes roots, and signs the header as producer.
	// The returned block carries no co-signatures; the consensus loop
	// collects those before the block is broadcast. txs
	// is the already-selected, already-ordered user transaction list;
	// BuildBlock does not reorder or filter it.
	BuildBlock(height uint64, prevHash signature.Hash, timestamp time.Time, txs []database.SignedTx) (database.Block, error)

	// ValidateBlock checks everything about block that only rdPoS can
	// judge: producer/co-signer signatures recover to schedule[h],
	// commit/reveal consistency, and validator-set membership of every
	// validator tx signer. Structural checks (prevHash, height, merkle
	// roots) and user-tx admission are State's responsibility and are
	// already done by the time this is called.
	ValidateBlock(block database.Block) error

	// ApplyValidatorTxs applies validator-set changes and accepts the
	// revealed randomness seed from an already-applied block's
	// validatorTxs. height is the block's own height, so the engine knows
	// which schedule these commits/reveals belong to without having to
	// infer it. Called after State has applied the block's user txs.
	ApplyValidatorTxs(height uint64, txs []database.SignedValidatorTx) error
}
