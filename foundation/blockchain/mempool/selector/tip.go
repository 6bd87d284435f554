package selector

import (
	"sort"

	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

// tipSelect groups transactions by sender, sorts each sender's by nonce,
// then takes a round-robin "row" across senders (one tx per sender per
// row) so no single sender can monopolize a block, sorting only the final
// row that doesn't fully fit by gas price to reward the best payer among
// the transactions that have to be cut.
var tipSelect = func(txs []database.SignedTx, howMany int) []database.SignedTx {
	if howMany == -1 {
		howMany = len(txs)
	}

	m := make(map[signature.Address][]database.SignedTx)
	for _, tx := range txs {
		from, err := tx.FromAddress()
		if err != nil {
			continue
		}
		m[from] = append(m[from], tx)
	}

	for key := range m {
		if len(m[key]) > 1 {
			sort.Sort(byNonce(m[key]))
		}
	}

	var rows [][]database.SignedTx
	for {
		var row []database.SignedTx
		for key := range m {
			if len(m[key]) > 0 {
				row = append(row, m[key][0])
				m[key] = m[key][1:]
			}
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}

	final := []database.SignedTx{}
done:
	for _, row := range rows {
		need := howMany - len(final)
		if len(row) > need {
			sort.Sort(byGasPrice(row))
			final = append(final, row[:need]...)
			break done
		}
		final = append(final, row...)
	}

	return final
}
