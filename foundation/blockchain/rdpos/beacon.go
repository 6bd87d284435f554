package rdpos

import (
	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

// extractCommitsAndReveals partitions validatorTxs into the commit
// (randomHash) and reveal (randomSeed) sets for one height, keyed by
// signer address, per spec.md §4.I's block-validation clause. A tx whose
// signer can't be recovered is skipped — ValidateBlock has already run
// SignedValidatorTx.FromAddress successfully on everything reaching here
// via processBlock, but BuildBlock may call this against a mempool
// snapshot that hasn't been checked yet.
func extractCommitsAndReveals(validatorTxs []database.SignedValidatorTx) (commits map[signature.Address]signature.Hash, reveals map[signature.Address]signature.Hash) {
	commits = make(map[signature.Address]signature.Hash)
	reveals = make(map[signature.Address]signature.Hash)

	for _, vtx := range validatorTxs {
		from, err := vtx.FromAddress()
		if err != nil {
			continue
		}

		switch vtx.Kind {
		case database.KindRandomHash:
			commits[from] = vtx.Commitment
		case database.KindRandomSeed:
			reveals[from] = vtx.Reveal
		}
	}

	return commits, reveals
}

// deriveNextSeed computes seed[h+1] = keccak(s_0 ‖ s_1 ‖ … ‖ s_{k-1}),
// ordered by schedule[h][:k] (the elected committee — producer plus
// co-signers — not the whole validator set), per spec.md §4.I step 3. A
// validator whose reveal is missing, or whose reveal doesn't match its
// own earlier commitment, contributes the all-zero hash instead of being
// dropped from the concatenation — disqualifying the reveal without
// shrinking k or shifting every later validator's position in the
// concatenation. This is the explicit "missing reveal counts as 0" choice
// spec.md §4.I calls out.
func deriveNextSeed(committee []signature.Address, commits, reveals map[signature.Address]signature.Hash) signature.Hash {
	parts := make([][]byte, len(committee))

	for i, validator := range committee {
		reveal, revealed := reveals[validator]
		committed, committedOK := commits[validator]

		valid := revealed && committedOK && signature.Keccak256(reveal.Bytes()) == committed
		if valid {
			parts[i] = reveal.Bytes()
		} else {
			parts[i] = signature.ZeroHash.Bytes()
		}
	}

	return signature.Keccak256(parts...)
}
