package selector_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/mempool/selector"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

func sign(t *testing.T, hexKey string, nonce uint64, gasPrice int64) database.SignedTx {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("loading key: %s", err)
	}

	to, _ := signature.AddressFromHex("0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76")
	tx := database.NewTx(nonce, to, big.NewInt(1), big.NewInt(gasPrice), 21000, nil, 1)

	signed, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("signing: %s", err)
	}
	return signed
}

type txKey struct {
	from  signature.Address
	nonce uint64
}

func keyOf(t *testing.T, tx database.SignedTx) txKey {
	t.Helper()

	from, err := tx.FromAddress()
	if err != nil {
		t.Fatalf("from address: %s", err)
	}
	return txKey{from: from, nonce: tx.Nonce}
}

func keySet(t *testing.T, txs []database.SignedTx) map[txKey]bool {
	t.Helper()

	out := make(map[txKey]bool, len(txs))
	for _, tx := range txs {
		out[keyOf(t, tx)] = true
	}
	return out
}

// The round-robin row algorithm builds each row by ranging over a map of
// senders, so the order WITHIN a fully-included row is not deterministic —
// only which (sender, nonce) pairs end up selected, and the order of the
// one row that gets cut short by howMany (sorted by gas price there).
// These tests check membership/nonce-ordering invariants rather than an
// exact position-by-position sequence.

func Test_TipSelectTakesEveryTransactionWhenUnbounded(t *testing.T) {
	signPavel := "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	signBill := "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"

	txs := []database.SignedTx{
		sign(t, signPavel, 0, 25), sign(t, signPavel, 1, 75),
		sign(t, signBill, 0, 10), sign(t, signBill, 1, 5),
	}

	selectFn, err := selector.Retrieve(selector.StrategyTip)
	if err != nil {
		t.Fatalf("retrieving strategy: %s", err)
	}

	got := selectFn(txs, -1)
	if len(got) != len(txs) {
		t.Fatalf("got %d transactions, exp %d", len(got), len(txs))
	}

	want := keySet(t, txs)
	have := keySet(t, got)
	for k := range want {
		if !have[k] {
			t.Fatalf("missing %+v from the unbounded selection", k)
		}
	}
}

func Test_TipSelectRespectsNonceOrderWithinSender(t *testing.T) {
	signPavel := "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

	// Submitted out of nonce order on purpose.
	txs := []database.SignedTx{
		sign(t, signPavel, 2, 50),
		sign(t, signPavel, 0, 25),
		sign(t, signPavel, 1, 75),
	}

	selectFn, err := selector.Retrieve(selector.StrategyTip)
	if err != nil {
		t.Fatalf("retrieving strategy: %s", err)
	}

	got := selectFn(txs, -1)
	if len(got) != 3 {
		t.Fatalf("got %d transactions, exp 3", len(got))
	}
	for i, tx := range got {
		if tx.Nonce != uint64(i) {
			t.Fatalf("position %d: got nonce %d, exp %d", i, tx.Nonce, i)
		}
	}
}

func Test_TipSelectCutoffRowSortsByGasPriceDescending(t *testing.T) {
	signPavel := "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	signBill := "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
	signEd := "aed31b6b5a341af8f27e66fb0b7633cf20fc27049e3eb7f6f623a4655b719ebb"

	// One transaction per sender: a single row, so howMany < 3 forces the
	// cutoff-sort path and the result order is fully deterministic.
	pavel := sign(t, signPavel, 0, 25)
	bill := sign(t, signBill, 0, 100)
	ed := sign(t, signEd, 0, 5)

	selectFn, err := selector.Retrieve(selector.StrategyTip)
	if err != nil {
		t.Fatalf("retrieving strategy: %s", err)
	}

	got := selectFn([]database.SignedTx{pavel, bill, ed}, 2)
	if len(got) != 2 {
		t.Fatalf("got %d transactions, exp 2", len(got))
	}

	billKey, pavelKey := keyOf(t, bill), keyOf(t, pavel)
	if keyOf(t, got[0]) != billKey || keyOf(t, got[1]) != pavelKey {
		t.Fatalf("expected the two highest gas prices (bill, then pavel) in that order")
	}
}

func Test_TipSelectAcrossTwoFullCyclesPlusPartialThird(t *testing.T) {
	signPavel := "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	signBill := "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
	signEd := "aed31b6b5a341af8f27e66fb0b7633cf20fc27049e3eb7f6f623a4655b719ebb"

	txs := []database.SignedTx{
		sign(t, signPavel, 0, 25), sign(t, signPavel, 1, 75), sign(t, signPavel, 2, 50),
		sign(t, signBill, 0, 10), sign(t, signBill, 1, 5), sign(t, signBill, 2, 75),
		sign(t, signEd, 0, 5), sign(t, signEd, 1, 50), sign(t, signEd, 2, 25),
	}

	selectFn, err := selector.Retrieve(selector.StrategyTip)
	if err != nil {
		t.Fatalf("retrieving strategy: %s", err)
	}

	got := selectFn(txs, 6)
	if len(got) != 6 {
		t.Fatalf("got %d transactions, exp 6", len(got))
	}

	// The first two rows (nonce 0 and nonce 1 for every sender) are fully
	// included, so every sender must have exactly its nonce-0 and nonce-1
	// transactions present, and none of its nonce-2 ones.
	have := keySet(t, got)
	for _, key := range []string{signPavel, signBill, signEd} {
		pk, _ := crypto.HexToECDSA(key)
		addr := signature.PublicKeyToAddress(pk.PublicKey)

		if !have[txKey{addr, 0}] || !have[txKey{addr, 1}] {
			t.Fatalf("expected sender %s to have both nonce 0 and nonce 1 selected", addr.Hex())
		}
		if have[txKey{addr, 2}] {
			t.Fatalf("did not expect sender %s's nonce 2 transaction to be selected yet", addr.Hex())
		}
	}
}
