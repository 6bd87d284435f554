package database

import (
	"crypto/ecdsa"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rdchain/node/foundation/blockchain/chainerrs"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

// vBase is the constant term of the chain-id-folding formula this node uses
// for the legacy V byte: v = 27 + recid + 2*chainId + 8.
const vBase = 27 + 8

// Tx is the unsigned transactional information between two parties.
type Tx struct {
	To       signature.Address
	Value    *big.Int
	Data     []byte
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	ChainID  uint64
}

// NewTx constructs an unsigned transaction.
func NewTx(nonce uint64, to signature.Address, value *big.Int, gasPrice *big.Int, gas uint64, data []byte, chainID uint64) Tx {
	return Tx{
		To:       to,
		Value:    value,
		Data:     data,
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		ChainID:  chainID,
	}
}

// rlpUnsigned returns the RLP list Sign hashes and signer recovery verifies
// against: the canonical field order with chainId appended, no signature.
func (tx Tx) rlpUnsigned() ([]byte, error) {
	return rlp.EncodeToBytes([]any{
		tx.Nonce,
		tx.GasPrice,
		tx.Gas,
		tx.To,
		tx.Value,
		tx.Data,
		tx.ChainID,
	})
}

func (tx Tx) sigHash() (signature.Hash, error) {
	b, err := tx.rlpUnsigned()
	if err != nil {
		return signature.Hash{}, err
	}
	return signature.Keccak256(b), nil
}

// Sign produces a SignedTx, folding the recovery id and chain id into the
// legacy V byte as v = 27 + recid + 2*chainId + 8.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	digest, err := tx.sigHash()
	if err != nil {
		return SignedTx{}, err
	}

	sig, err := signature.Sign(digest, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	recid, r, s := sig.VRS()

	return SignedTx{
		Tx: tx,
		V:  new(big.Int).Add(big.NewInt(vBase), new(big.Int).Add(recid, new(big.Int).SetUint64(2*tx.ChainID))),
		R:  r,
		S:  s,
	}, nil
}

// =============================================================================

// SignedTx is a signed version of Tx, the form clients submit for inclusion
// into the mempool and, eventually, a block.
type SignedTx struct {
	Tx
	V *big.Int
	R *big.Int
	S *big.Int
}

// recoveryID reverses Sign's chain-id folding, returning the raw 0/1
// recovery id or an error if V doesn't decode against this tx's chain id.
func (tx SignedTx) recoveryID() (uint64, error) {
	base := uint64(vBase) + 2*tx.ChainID
	v := tx.V.Uint64()
	if v < base {
		return 0, chainerrs.NewValidationError(chainerrs.BadSignature, -32003, "signature V below the chain-id-folded base")
	}
	recid := v - base
	if recid != 0 && recid != 1 {
		return 0, chainerrs.NewValidationError(chainerrs.BadSignature, -32003, "signature V does not decode to a canonical recovery id")
	}
	return recid, nil
}

// Validate performs the component-local checks spec'd for a transaction:
// signer recovery succeeds, chainId matches expectedChainID, r/s lie within
// curve order, and v is canonical under this tx's own chain id.
func (tx SignedTx) Validate(expectedChainID uint64) error {
	if tx.ChainID != expectedChainID {
		return chainerrs.NewValidationError(chainerrs.BadSignature, -32003, fmt.Sprintf("wrong chain id, got %d, exp %d", tx.ChainID, expectedChainID))
	}

	if _, err := tx.FromAddress(); err != nil {
		return err
	}

	return nil
}

// FromAddress recovers the address that signed this transaction.
func (tx SignedTx) FromAddress() (signature.Address, error) {
	recid, err := tx.recoveryID()
	if err != nil {
		return signature.Address{}, err
	}

	digest, err := tx.Tx.sigHash()
	if err != nil {
		return signature.Address{}, err
	}

	sig := signature.SignatureFromVRS(new(big.Int).SetUint64(recid), tx.R, tx.S)
	if err := signature.Verify(sig); err != nil {
		return signature.Address{}, chainerrs.NewValidationError(chainerrs.BadSignature, -32003, err.Error())
	}

	addr, err := signature.Recover(digest, sig)
	if err != nil {
		return signature.Address{}, chainerrs.NewValidationError(chainerrs.BadSignature, -32003, err.Error())
	}

	return addr, nil
}

// TxHash returns the tx hash: keccak-256 of the signed RLP encoding.
func (tx SignedTx) TxHash() (signature.Hash, error) {
	b, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return signature.Hash{}, err
	}
	return signature.Keccak256(b), nil
}

// String implements fmt.Stringer for logging.
func (tx SignedTx) String() string {
	from, err := tx.FromAddress()
	if err != nil {
		return fmt.Sprintf("unknown:%d", tx.Nonce)
	}
	return fmt.Sprintf("%s:%d", from.Hex(), tx.Nonce)
}

// =============================================================================
// merkle.Hashable[SignedTx]

// Hash implements the merkle.Hashable contract for computing a block's
// transaction root.
func (tx SignedTx) Hash() ([]byte, error) {
	h, err := tx.TxHash()
	if err != nil {
		return nil, err
	}
	return h.Bytes(), nil
}

// Equals implements the merkle.Hashable contract. Two signed transactions
// are the same leaf if their nonce and signature agree.
func (tx SignedTx) Equals(other SignedTx) bool {
	return tx.Nonce == other.Nonce &&
		tx.V.Cmp(other.V) == 0 &&
		tx.R.Cmp(other.R) == 0 &&
		tx.S.Cmp(other.S) == 0
}

// =============================================================================
// RLP wire format: [nonce, gasPrice, gas, to, value, data, v, r, s]. ChainID
// is not carried as a field of its own, matching the legacy layout; it is
// folded into V, and DecodeRLP leaves ChainID zero for the caller to set.

type rlpSignedTx struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       signature.Address
	Value    *big.Int
	Data     []byte
	V        *big.Int
	R        *big.Int
	S        *big.Int
}

// EncodeRLP implements rlp.Encoder.
func (tx SignedTx) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, rlpSignedTx{
		Nonce:    tx.Nonce,
		GasPrice: tx.GasPrice,
		Gas:      tx.Gas,
		To:       tx.To,
		Value:    tx.Value,
		Data:     tx.Data,
		V:        tx.V,
		R:        tx.R,
		S:        tx.S,
	})
}

// DecodeRLP implements rlp.Decoder. The resulting SignedTx carries a zero
// ChainID; callers that need it (anything calling FromAddress/Validate)
// must set tx.ChainID to the chain this wire blob was received on before
// using it, since the wire format folds chain id into V only.
func (tx *SignedTx) DecodeRLP(s *rlp.Stream) error {
	var raw rlpSignedTx
	if err := s.Decode(&raw); err != nil {
		return err
	}

	tx.Tx = Tx{
		To:       raw.To,
		Value:    raw.Value,
		Data:     raw.Data,
		Nonce:    raw.Nonce,
		GasPrice: raw.GasPrice,
		Gas:      raw.Gas,
	}
	tx.V = raw.V
	tx.R = raw.R
	tx.S = raw.S

	return nil
}
