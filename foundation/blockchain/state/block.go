package state

import (
	"math/big"
	"time"

	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

func subBig(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) }
func addBig(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) }

// parentLinkage returns the hash and height a new or candidate block must
// chain off of: the zero hash and height 0 for an empty chain, otherwise
// the current head.
func (s *State) parentLinkage() (signature.Hash, uint64) {
	latest, ok := s.chain.Latest()
	if !ok {
		return signature.ZeroHash, 0
	}
	return latest.Hash(), latest.Header.Height
}

// ValidateBlock runs every check spec'd for validateBlock: structural
// linkage to the parent, every user tx re-checked against a snapshot of
// the pre-block account table (so one tx's effect inside the block can't
// mask another's admission failure), then whatever rdPoS-level checks the
// consensus engine requires (schedule, signatures, commit/reveal).
func (s *State) ValidateBlock(block database.Block) error {
	prevHash, prevHeight := s.parentLinkage()

	if err := block.ValidateStructure(prevHash, prevHeight); err != nil {
		return err
	}

	snapshot := s.accountSnapshot()
	for _, tx := range block.Txs {
		if err := validateAgainstSnapshot(tx, s.genesis.ChainID, snapshot); err != nil {
			return err
		}

		from, _ := tx.FromAddress()
		applyDebit(snapshot, from, tx)
	}

	if s.consensus != nil {
		if err := s.consensus.ValidateBlock(block); err != nil {
			return err
		}
	}

	return nil
}

// accountSnapshot copies the account table under a read lock so block
// validation can simulate sequential application without holding the
// lock for the whole scan.
func (s *State) accountSnapshot() map[signature.Address]database.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[signature.Address]database.Account, len(s.accounts))
	for address, account := range s.accounts {
		snapshot[address] = account
	}
	return snapshot
}

// applyDebit mutates the sender's entry in accounts to reflect tx's effect
// (balance debited by value+gas*gasPrice, nonce incremented), the same
// mutation ProcessBlock performs for real. It does not credit the
// receiver because the receiver's balance is never a reason a later tx in
// the same block would fail admission — only the sender's balance/nonce
// gate that.
func applyDebit(accounts map[signature.Address]database.Account, from signature.Address, tx database.SignedTx) {
	account := accounts[from]
	account.Balance = subBig(account.Balance, txCost(tx))
	account.Nonce++
	accounts[from] = account
}

// ProcessBlock applies block's user transactions to the account table,
// then delegates validator-tx side effects to the consensus engine, then
// appends block to the chain and clears both mempools. All of this
// happens under State's single writer lock for the account mutation; the
// chain append and mempool truncation happen after the lock is released,
// matching the spec's "a single-writer lock guards the account table"
// wording rather than a single lock spanning every collaborator.
func (s *State) ProcessBlock(block database.Block) error {
	s.mu.Lock()
	for _, tx := range block.Txs {
		from, err := tx.FromAddress()
		if err != nil {
			s.mu.Unlock()
			return err
		}

		sender := s.accounts[from]
		sender.Balance = subBig(sender.Balance, txCost(tx))
		sender.Nonce++
		s.putAccount(sender)

		receiver, exists := s.accounts[tx.To]
		if !exists {
			receiver = database.NewAccount(tx.To)
		}
		receiver.Balance = addBig(receiver.Balance, tx.Value)
		s.putAccount(receiver)
	}
	s.mu.Unlock()

	if s.consensus != nil {
		if err := s.consensus.ApplyValidatorTxs(block.Header.Height, block.ValidatorTxs); err != nil {
			return err
		}
	}

	if err := s.chain.PushBack(block); err != nil {
		return err
	}

	s.mempool.Truncate()
	s.validatorPool.Truncate()

	return nil
}

// CreateNewBlock snapshots the user mempool using its configured selection
// strategy, then delegates validator-tx assembly and producer/co-signer
// signing to the consensus engine. With no consensus engine configured
// (e.g. a read-only query node) it returns an unsigned block with no
// validator transactions, useful for tests that only exercise State.
func (s *State) CreateNewBlock(howMany int, timestamp time.Time) (database.Block, error) {
	prevHash, prevHeight := s.parentLinkage()
	height := prevHeight + 1

	txs := s.mempool.PickBest(howMany)

	if s.consensus == nil {
		return database.NewBlock(prevHash, height, timestamp, txs, nil)
	}

	return s.consensus.BuildBlock(height, prevHash, timestamp, txs)
}
