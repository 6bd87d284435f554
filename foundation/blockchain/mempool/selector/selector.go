// Package selector provides different transaction selecting algorithms for
// assembling the next block's transaction list out of the mempool.
package selector

import (
	"fmt"

	"github.com/rdchain/node/foundation/blockchain/database"
)

// List of different select strategies.
const (
	// StrategyInsertion picks transactions in the order they were admitted
	// to the mempool, with no reordering by fee. This is the default:
	// spec.md §4.D requires the producer to assemble txs "in insertion
	// order (no reordering by fee in this design)".
	StrategyInsertion = "insertion"

	// StrategyTip is kept from the teacher as a second, non-default
	// strategy: it groups by sender, respects nonce order within a
	// sender, and rewards the highest gas price first.
	StrategyTip = "tip"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyInsertion: insertionSelect,
	StrategyTip:       tipSelect,
}

// Func defines a function that takes transactions in mempool insertion
// order and selects howMany of them for inclusion in the next block. Every
// selector MUST preserve nonce ordering within a sender. Receiving -1 for
// howMany must return every transaction in the strategy's ordering.
type Func func(txs []database.SignedTx, howMany int) []database.SignedTx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// byNonce sorts a sender's transactions by nonce, ascending.
type byNonce []database.SignedTx

func (bn byNonce) Len() int      { return len(bn) }
func (bn byNonce) Swap(i, j int) { bn[i], bn[j] = bn[j], bn[i] }
func (bn byNonce) Less(i, j int) bool {
	return bn[i].Nonce < bn[j].Nonce
}

// byGasPrice sorts transactions by gas price, descending, to reward the
// best-paying transaction in a row first.
type byGasPrice []database.SignedTx

func (bg byGasPrice) Len() int      { return len(bg) }
func (bg byGasPrice) Swap(i, j int) { bg[i], bg[j] = bg[j], bg[i] }
func (bg byGasPrice) Less(i, j int) bool {
	return bg[i].GasPrice.Cmp(bg[j].GasPrice) > 0
}
