package database_test

import (
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rdchain/node/foundation/blockchain/database"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	pk, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}
	return pk
}

func Test_TxSignAndRecover(t *testing.T) {
	pk := mustKey(t)
	from := signature.PublicKeyToAddress(pk.PublicKey)

	to, _ := signature.AddressFromHex("0x0000000000000000000000000000000000000099")
	tx := database.NewTx(1, to, big.NewInt(500), big.NewInt(1), 21000, nil, 7)

	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("signing: %s", err)
	}

	got, err := signedTx.FromAddress()
	if err != nil {
		t.Fatalf("recovering: %s", err)
	}

	if got != from {
		t.Fatalf("got signer %s, exp %s", got.Hex(), from.Hex())
	}

	if err := signedTx.Validate(7); err != nil {
		t.Fatalf("validate: %s", err)
	}

	if err := signedTx.Validate(8); err == nil {
		t.Fatalf("expected a chain id mismatch error")
	}
}

func Test_TxRLPRoundTrip(t *testing.T) {
	pk := mustKey(t)
	to, _ := signature.AddressFromHex("0x0000000000000000000000000000000000000099")
	tx := database.NewTx(3, to, big.NewInt(1000), big.NewInt(2), 50000, []byte("hello"), 7)

	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("signing: %s", err)
	}

	data, err := rlp.EncodeToBytes(signedTx)
	if err != nil {
		t.Fatalf("encoding: %s", err)
	}

	var out database.SignedTx
	if err := rlp.DecodeBytes(data, &out); err != nil {
		t.Fatalf("decoding: %s", err)
	}
	out.ChainID = 7

	if out.Nonce != signedTx.Nonce || out.To != signedTx.To || out.Value.Cmp(signedTx.Value) != 0 {
		t.Fatalf("round trip mismatch: got %+v, exp %+v", out.Tx, signedTx.Tx)
	}

	from, err := out.FromAddress()
	if err != nil {
		t.Fatalf("recovering after round trip: %s", err)
	}
	want, _ := signedTx.FromAddress()
	if from != want {
		t.Fatalf("got signer %s, exp %s after round trip", from.Hex(), want.Hex())
	}
}

func Test_ValidatorTxCommitReveal(t *testing.T) {
	pk := mustKey(t)
	from := signature.PublicKeyToAddress(pk.PublicKey)

	seed, err := signature.RandomHash()
	if err != nil {
		t.Fatalf("random seed: %s", err)
	}
	commitment := signature.Keccak256(seed.Bytes())

	hashTx := database.NewRandomHashTx(1, 7, commitment)
	signedHashTx, err := hashTx.Sign(pk)
	if err != nil {
		t.Fatalf("signing hash tx: %s", err)
	}

	seedTx := database.NewRandomSeedTx(2, 7, seed)
	signedSeedTx, err := seedTx.Sign(pk)
	if err != nil {
		t.Fatalf("signing seed tx: %s", err)
	}

	hashSigner, err := signedHashTx.FromAddress()
	if err != nil {
		t.Fatalf("recovering hash tx signer: %s", err)
	}
	seedSigner, err := signedSeedTx.FromAddress()
	if err != nil {
		t.Fatalf("recovering seed tx signer: %s", err)
	}

	if hashSigner != from || seedSigner != from {
		t.Fatalf("expected both commit and reveal to recover to %s, got %s and %s", from.Hex(), hashSigner.Hex(), seedSigner.Hex())
	}

	if signature.Keccak256(signedSeedTx.Reveal.Bytes()) != signedHashTx.Commitment {
		t.Fatalf("revealed seed does not hash to the committed value")
	}
}

func Test_BlockHashExcludesSignatures(t *testing.T) {
	pk := mustKey(t)
	to, _ := signature.AddressFromHex("0x0000000000000000000000000000000000000099")
	tx, _ := database.NewTx(1, to, big.NewInt(1), big.NewInt(1), 21000, nil, 7).Sign(pk)

	blk, err := database.NewBlock(signature.ZeroHash, 1, time.Unix(0, 0), []database.SignedTx{tx}, nil)
	if err != nil {
		t.Fatalf("building block: %s", err)
	}

	before := blk.Hash()

	sig, err := blk.SignHeader(pk)
	if err != nil {
		t.Fatalf("signing header: %s", err)
	}
	blk.ProducerSig = sig

	if blk.Hash() != before {
		t.Fatalf("attaching a signature changed the block hash")
	}

	signer, err := blk.RecoverHeaderSigner(sig)
	if err != nil {
		t.Fatalf("recovering header signer: %s", err)
	}
	want := signature.PublicKeyToAddress(pk.PublicKey)
	if signer != want {
		t.Fatalf("got signer %s, exp %s", signer.Hex(), want.Hex())
	}
}

func Test_BlockValidateStructure(t *testing.T) {
	blk, err := database.NewBlock(signature.ZeroHash, 1, time.Unix(0, 0), nil, nil)
	if err != nil {
		t.Fatalf("building block: %s", err)
	}

	if err := blk.ValidateStructure(signature.ZeroHash, 0); err != nil {
		t.Fatalf("expected a valid structure: %s", err)
	}

	if err := blk.ValidateStructure(signature.ZeroHash, 5); err == nil {
		t.Fatalf("expected a height mismatch error")
	}

	bad, _ := signature.RandomHash()
	if err := blk.ValidateStructure(bad, 0); err == nil {
		t.Fatalf("expected a prevHash mismatch error")
	}
}

func Test_BlockRLPRoundTrip(t *testing.T) {
	pk := mustKey(t)
	to, _ := signature.AddressFromHex("0x0000000000000000000000000000000000000099")
	tx, _ := database.NewTx(1, to, big.NewInt(1), big.NewInt(1), 21000, nil, 7).Sign(pk)

	blk, err := database.NewBlock(signature.ZeroHash, 1, time.Unix(0, 0), []database.SignedTx{tx}, nil)
	if err != nil {
		t.Fatalf("building block: %s", err)
	}
	sig, _ := blk.SignHeader(pk)
	blk.ProducerSig = sig

	data, err := rlp.EncodeToBytes(blk)
	if err != nil {
		t.Fatalf("encoding: %s", err)
	}

	var out database.Block
	if err := rlp.DecodeBytes(data, &out); err != nil {
		t.Fatalf("decoding: %s", err)
	}

	if out.Header.Height != blk.Header.Height || out.Hash() != blk.Hash() {
		t.Fatalf("round trip changed the block hash: got %s, exp %s", out.Hash(), blk.Hash())
	}
	if len(out.Txs) != 1 {
		t.Fatalf("got %d txs after round trip, exp 1", len(out.Txs))
	}
}
