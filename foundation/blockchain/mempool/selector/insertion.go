package selector

import "github.com/rdchain/node/foundation/blockchain/database"

// insertionSelect is the default strategy: txs arrives already in mempool
// insertion order, so selecting the next block's transactions is just
// taking the first howMany, untouched. spec.md §4.D is explicit that this
// design does not reorder by fee.
var insertionSelect = func(txs []database.SignedTx, howMany int) []database.SignedTx {
	if howMany == -1 || howMany > len(txs) {
		howMany = len(txs)
	}

	out := make([]database.SignedTx, howMany)
	copy(out, txs[:howMany])
	return out
}
