// Package genesis maintains access to the genesis file: the starting
// account balances, initial validator set, and initial randomness seed a
// fresh chain boots from.
package genesis

import (
	"encoding/json"
	"math/big"
	"os"
	"time"

	"github.com/rdchain/node/foundation/blockchain/signature"
)

// MinValidators is the minimum size the validator set must never drop
// below (spec.md §3's ValidatorSet invariant, |ValidatorSet| ≥ 4).
const MinValidators = 4

// Genesis represents the genesis file: starting balances, the seed
// validator set, and seed[0] for the rdPoS randomness beacon.
type Genesis struct {
	Date       time.Time                    `json:"date"`
	ChainID    uint64                       `json:"chain_id"`
	GasPrice   uint64                       `json:"gas_price"`
	Balances   map[signature.Address]string `json:"balances"`
	Validators []signature.Address          `json:"validators"`
	Seed       signature.Hash               `json:"seed"`
}

// Load opens and consumes the genesis file at path.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var g Genesis
	if err := json.Unmarshal(content, &g); err != nil {
		return Genesis{}, err
	}

	if len(g.Validators) < MinValidators {
		return Genesis{}, &InvalidValidatorSetError{Count: len(g.Validators)}
	}

	return g, nil
}

// InvalidValidatorSetError reports a genesis file whose validator set is
// smaller than MinValidators.
type InvalidValidatorSetError struct {
	Count int
}

func (e *InvalidValidatorSetError) Error() string {
	return "genesis validator set has fewer than the minimum required validators"
}

// Balance returns the starting balance for address, or zero if the
// genesis file doesn't mention it.
func (g Genesis) Balance(address signature.Address) *big.Int {
	raw, ok := g.Balances[address]
	if !ok {
		return big.NewInt(0)
	}

	balance, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return big.NewInt(0)
	}
	return balance
}
