package state_test

import (
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rdchain/node/foundation/blockchain/chain"
	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/genesis"
	"github.com/rdchain/node/foundation/blockchain/mempool"
	"github.com/rdchain/node/foundation/blockchain/signature"
	"github.com/rdchain/node/foundation/blockchain/state"
	"github.com/rdchain/node/foundation/blockchain/storage"
)

const chainID = 1

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()

	pk, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}
	return pk
}

func mustSign(t *testing.T, pk *ecdsa.PrivateKey, to signature.Address, nonce uint64, value int64) database.SignedTx {
	t.Helper()

	tx := database.NewTx(nonce, to, big.NewInt(value), big.NewInt(1), 21000, nil, chainID)
	signed, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("signing: %s", err)
	}
	return signed
}

// newTestState builds a State with four funded, validator-eligible
// accounts and no consensus engine, suitable for exercising admission and
// block application in isolation from rdPoS.
func newTestState(t *testing.T) (*state.State, []*ecdsa.PrivateKey) {
	t.Helper()

	keys := make([]*ecdsa.PrivateKey, 4)
	balances := make(map[signature.Address]string, 4)
	validators := make([]signature.Address, 4)

	for i := range keys {
		pk := mustKey(t)
		keys[i] = pk
		addr := signature.PublicKeyToAddress(pk.PublicKey)
		balances[addr] = "1000000000000000000000"
		validators[i] = addr
	}

	g := genesis.Genesis{
		ChainID:    chainID,
		GasPrice:   1,
		Balances:   balances,
		Validators: validators,
		Seed:       signature.ZeroHash,
	}

	store := storage.New()
	ch, err := chain.New(store)
	if err != nil {
		t.Fatalf("constructing chain: %s", err)
	}

	mp, err := mempool.New()
	if err != nil {
		t.Fatalf("constructing mempool: %s", err)
	}

	s := state.New(state.Config{
		Genesis:       g,
		Chain:         ch,
		Mempool:       mp,
		ValidatorPool: mempool.NewValidatorPool(),
	})

	return s, keys
}

func Test_ValidateForRPCAcceptsAndDeduplicates(t *testing.T) {
	s, keys := newTestState(t)

	to := signature.PublicKeyToAddress(keys[1].PublicKey)
	tx := mustSign(t, keys[0], to, 0, 10)

	result, err := s.ValidateForRPC(tx)
	if err != nil {
		t.Fatalf("expected admission, got %s", err)
	}
	if result.Message != "accepted" {
		t.Fatalf("got message %q, exp accepted", result.Message)
	}

	if s.QueryMempoolLength() != 1 {
		t.Fatalf("expected one pooled transaction")
	}

	result, err = s.ValidateForRPC(tx)
	if err != nil {
		t.Fatalf("resubmission should not error: %s", err)
	}
	if result.Message != "duplicate" {
		t.Fatalf("got message %q, exp duplicate", result.Message)
	}
	if s.QueryMempoolLength() != 1 {
		t.Fatalf("duplicate resubmission must not grow the pool")
	}
}

func Test_ValidateForRPCRejectsUnknownSender(t *testing.T) {
	s, _ := newTestState(t)

	stranger := mustKey(t)
	to, _ := signature.AddressFromHex("0x0000000000000000000000000000000000000099")
	tx := mustSign(t, stranger, to, 0, 10)

	if _, err := s.ValidateForRPC(tx); err == nil {
		t.Fatalf("expected an unknown-sender rejection")
	}
}

func Test_ValidateForRPCRejectsBadNonce(t *testing.T) {
	s, keys := newTestState(t)

	to := signature.PublicKeyToAddress(keys[1].PublicKey)
	tx := mustSign(t, keys[0], to, 5, 10)

	if _, err := s.ValidateForRPC(tx); err == nil {
		t.Fatalf("expected a nonce-mismatch rejection")
	}
}

func Test_ValidateForRPCRejectsInsufficientBalance(t *testing.T) {
	s, keys := newTestState(t)

	to := signature.PublicKeyToAddress(keys[1].PublicKey)
	huge, _ := new(big.Int).SetString("999999999999999999999999999999", 10)
	tx := database.NewTx(0, to, huge, big.NewInt(1), 21000, nil, chainID)
	signed, err := tx.Sign(keys[0])
	if err != nil {
		t.Fatalf("signing: %s", err)
	}

	if _, err := s.ValidateForRPC(signed); err == nil {
		t.Fatalf("expected an insufficient-balance rejection")
	}
}

func Test_CreateProcessAndQueryBlockRoundTrip(t *testing.T) {
	s, keys := newTestState(t)

	from := signature.PublicKeyToAddress(keys[0].PublicKey)
	to := signature.PublicKeyToAddress(keys[1].PublicKey)
	tx := mustSign(t, keys[0], to, 0, 500)

	if _, err := s.ValidateForRPC(tx); err != nil {
		t.Fatalf("admitting tx: %s", err)
	}

	block, err := s.CreateNewBlock(-1, time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("creating block: %s", err)
	}
	if len(block.Txs) != 1 {
		t.Fatalf("got %d txs in the new block, exp 1", len(block.Txs))
	}

	if err := s.ValidateBlock(block); err != nil {
		t.Fatalf("validating own candidate block: %s", err)
	}

	if err := s.ProcessBlock(block); err != nil {
		t.Fatalf("processing block: %s", err)
	}

	if s.QueryMempoolLength() != 0 {
		t.Fatalf("expected the mempool to be cleared after processing")
	}

	senderAccount, _ := s.QueryAccount(from)
	if senderAccount.Nonce != 1 {
		t.Fatalf("got nonce %d, exp 1", senderAccount.Nonce)
	}

	receiverAccount, _ := s.QueryAccount(to)
	wantReceiver, _ := new(big.Int).SetString("1000000000000000000500", 10)
	if receiverAccount.Balance.Cmp(wantReceiver) != 0 {
		t.Fatalf("got receiver balance %s, exp %s", receiverAccount.Balance, wantReceiver)
	}

	latest, ok := s.QueryLatestBlock()
	if !ok {
		t.Fatalf("expected a latest block after processing")
	}
	if latest.Hash() != block.Hash() {
		t.Fatalf("queried latest block does not match the processed block")
	}

	txHash, err := tx.TxHash()
	if err != nil {
		t.Fatalf("hashing tx: %s", err)
	}
	gotTx, gotBlock, found := s.QueryTransaction(txHash)
	if !found {
		t.Fatalf("expected to find the processed transaction")
	}
	if gotBlock.Hash() != block.Hash() {
		t.Fatalf("transaction's containing block does not match")
	}
	if gotTx.Nonce != tx.Nonce {
		t.Fatalf("queried transaction nonce mismatch")
	}
}

func Test_StateRootChangesOnlyWhenAccountsChange(t *testing.T) {
	s, keys := newTestState(t)

	before := s.StateRoot()
	if before == signature.ZeroHash {
		t.Fatalf("expected a funded genesis table to commit to a non-zero root")
	}

	to := signature.PublicKeyToAddress(keys[1].PublicKey)
	tx := mustSign(t, keys[0], to, 0, 500)

	if _, err := s.ValidateForRPC(tx); err != nil {
		t.Fatalf("admitting tx: %s", err)
	}
	if s.StateRoot() != before {
		t.Fatalf("pooling a tx should not change the committed state root")
	}

	block, err := s.CreateNewBlock(-1, time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("creating block: %s", err)
	}
	if err := s.ProcessBlock(block); err != nil {
		t.Fatalf("processing block: %s", err)
	}

	after := s.StateRoot()
	if after == before {
		t.Fatalf("expected the state root to change once the block's balance changes applied")
	}
}

func Test_ValidateBlockRejectsWrongPrevHash(t *testing.T) {
	s, _ := newTestState(t)

	bogus, err := database.NewBlock(signature.Keccak256([]byte("not the real prev hash")), 1, time.Unix(1, 0), nil, nil)
	if err != nil {
		t.Fatalf("building block: %s", err)
	}

	if err := s.ValidateBlock(bogus); err == nil {
		t.Fatalf("expected a bad-prevHash rejection")
	}
}

func Test_ValidateBlockCatchesSecondTxSpendingAlreadyCommittedBalance(t *testing.T) {
	s, keys := newTestState(t)

	to := signature.PublicKeyToAddress(keys[1].PublicKey)
	huge, _ := new(big.Int).SetString("900000000000000000000", 10)

	// Two transactions from the same sender, same nonce, each individually
	// affordable but not both: this must be caught during block
	// validation even though neither would be rejected by admission alone
	// if checked against the live (not per-tx-updated) account table.
	tx1 := database.NewTx(0, to, huge, big.NewInt(1), 21000, nil, chainID)
	signed1, err := tx1.Sign(keys[0])
	if err != nil {
		t.Fatalf("signing: %s", err)
	}

	tx2 := database.NewTx(0, to, huge, big.NewInt(1), 21000, nil, chainID)
	signed2, err := tx2.Sign(keys[0])
	if err != nil {
		t.Fatalf("signing: %s", err)
	}

	block, err := database.NewBlock(signature.ZeroHash, 1, time.Unix(1, 0), []database.SignedTx{signed1, signed2}, nil)
	if err != nil {
		t.Fatalf("building block: %s", err)
	}

	if err := s.ValidateBlock(block); err == nil {
		t.Fatalf("expected the second transaction to fail nonce/balance re-validation")
	}
}
