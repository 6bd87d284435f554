package genesis_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rdchain/node/foundation/blockchain/genesis"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

func Test_LoadSampleGenesis(t *testing.T) {
	g, err := genesis.Load("../../../zblock/genesis.json")
	if err != nil {
		t.Fatalf("loading genesis: %s", err)
	}

	if len(g.Validators) < genesis.MinValidators {
		t.Fatalf("got %d validators, exp at least %d", len(g.Validators), genesis.MinValidators)
	}

	addr, err := signature.AddressFromHex("0x0000000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("address: %s", err)
	}

	balance := g.Balance(addr)
	if balance.Sign() <= 0 {
		t.Fatalf("expected a positive starting balance, got %s", balance)
	}

	if g.Seed.IsZero() == false {
		t.Fatalf("expected the sample genesis seed to be the all-zero seed")
	}
}

func Test_BalanceOfUnknownAddressIsZero(t *testing.T) {
	g, err := genesis.Load("../../../zblock/genesis.json")
	if err != nil {
		t.Fatalf("loading genesis: %s", err)
	}

	unknown, _ := signature.AddressFromHex("0x0000000000000000000000000000000000000099")
	balance := g.Balance(unknown)
	if balance.Sign() != 0 {
		t.Fatalf("expected zero balance for an address absent from genesis, got %s", balance)
	}
}

func Test_LoadRejectsUndersizedValidatorSet(t *testing.T) {
	if _, err := genesis.Load("../../../zblock/does-not-exist.json"); err == nil {
		t.Fatalf("expected an error loading a nonexistent genesis file")
	}

	path := filepath.Join(t.TempDir(), "genesis.json")
	doc := `{"chain_id":1,"validators":["0x0000000000000000000000000000000000000001","0x0000000000000000000000000000000000000002","0x0000000000000000000000000000000000000003"]}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("writing genesis: %s", err)
	}

	_, err := genesis.Load(path)
	var setErr *genesis.InvalidValidatorSetError
	if !errors.As(err, &setErr) {
		t.Fatalf("expected an InvalidValidatorSetError for 3 validators, got %v", err)
	}
	if setErr.Count != 3 {
		t.Fatalf("got count %d, exp 3", setErr.Count)
	}
}
