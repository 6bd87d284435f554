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

// ValidatorTxKind tags which of the four validator payloads a ValidatorTx
// carries.
type ValidatorTxKind byte

// The fixed set of validator transaction kinds.
const (
	KindAddValidator    ValidatorTxKind = 0x01
	KindRemoveValidator ValidatorTxKind = 0x02
	KindRandomHash      ValidatorTxKind = 0x03
	KindRandomSeed      ValidatorTxKind = 0x04
)

func (k ValidatorTxKind) String() string {
	switch k {
	case KindAddValidator:
		return "addValidator"
	case KindRemoveValidator:
		return "removeValidator"
	case KindRandomHash:
		return "randomHash"
	case KindRandomSeed:
		return "randomSeed"
	default:
		return "unknown"
	}
}

// ValidatorTx is an unsigned transaction from a validator address carrying
// one of the four tagged payloads that drive validator-set changes and the
// commit/reveal randomness beacon. Target holds the address being added or
// removed for the membership kinds; Commitment holds keccak(seed) for
// randomHash; Reveal holds the revealed seed for randomSeed. Unused fields
// for a given kind are left zero.
type ValidatorTx struct {
	Kind       ValidatorTxKind
	Nonce      uint64
	ChainID    uint64
	Target     signature.Address
	Commitment signature.Hash
	Reveal     signature.Hash
}

// NewAddValidatorTx constructs an unsigned addValidator payload.
func NewAddValidatorTx(nonce, chainID uint64, target signature.Address) ValidatorTx {
	return ValidatorTx{Kind: KindAddValidator, Nonce: nonce, ChainID: chainID, Target: target}
}

// NewRemoveValidatorTx constructs an unsigned removeValidator payload.
func NewRemoveValidatorTx(nonce, chainID uint64, target signature.Address) ValidatorTx {
	return ValidatorTx{Kind: KindRemoveValidator, Nonce: nonce, ChainID: chainID, Target: target}
}

// NewRandomHashTx constructs an unsigned randomHash commitment payload.
func NewRandomHashTx(nonce, chainID uint64, commitment signature.Hash) ValidatorTx {
	return ValidatorTx{Kind: KindRandomHash, Nonce: nonce, ChainID: chainID, Commitment: commitment}
}

// NewRandomSeedTx constructs an unsigned randomSeed reveal payload.
func NewRandomSeedTx(nonce, chainID uint64, seed signature.Hash) ValidatorTx {
	return ValidatorTx{Kind: KindRandomSeed, Nonce: nonce, ChainID: chainID, Reveal: seed}
}

func (vtx ValidatorTx) rlpUnsigned() ([]byte, error) {
	return rlp.EncodeToBytes([]any{
		byte(vtx.Kind),
		vtx.Nonce,
		vtx.ChainID,
		vtx.Target,
		vtx.Commitment,
		vtx.Reveal,
	})
}

func (vtx ValidatorTx) sigHash() (signature.Hash, error) {
	b, err := vtx.rlpUnsigned()
	if err != nil {
		return signature.Hash{}, err
	}
	return signature.Keccak256(b), nil
}

// Sign produces a SignedValidatorTx, folding recovery id and chain id into V
// the same way Tx.Sign does.
func (vtx ValidatorTx) Sign(privateKey *ecdsa.PrivateKey) (SignedValidatorTx, error) {
	digest, err := vtx.sigHash()
	if err != nil {
		return SignedValidatorTx{}, err
	}

	sig, err := signature.Sign(digest, privateKey)
	if err != nil {
		return SignedValidatorTx{}, err
	}

	recid, r, s := sig.VRS()

	return SignedValidatorTx{
		ValidatorTx: vtx,
		V:           new(big.Int).Add(big.NewInt(vBase), new(big.Int).Add(recid, new(big.Int).SetUint64(2*vtx.ChainID))),
		R:           r,
		S:           s,
	}, nil
}

// =============================================================================

// SignedValidatorTx is the signed form of ValidatorTx submitted to the
// validator mempool.
type SignedValidatorTx struct {
	ValidatorTx
	V *big.Int
	R *big.Int
	S *big.Int
}

func (vtx SignedValidatorTx) recoveryID() (uint64, error) {
	base := uint64(vBase) + 2*vtx.ChainID
	v := vtx.V.Uint64()
	if v < base {
		return 0, chainerrs.NewValidationError(chainerrs.BadSignature, -32003, "signature V below the chain-id-folded base")
	}
	recid := v - base
	if recid != 0 && recid != 1 {
		return 0, chainerrs.NewValidationError(chainerrs.BadSignature, -32003, "signature V does not decode to a canonical recovery id")
	}
	return recid, nil
}

// FromAddress recovers the validator address that signed this transaction.
func (vtx SignedValidatorTx) FromAddress() (signature.Address, error) {
	recid, err := vtx.recoveryID()
	if err != nil {
		return signature.Address{}, err
	}

	digest, err := vtx.ValidatorTx.sigHash()
	if err != nil {
		return signature.Address{}, err
	}

	sig := signature.SignatureFromVRS(new(big.Int).SetUint64(recid), vtx.R, vtx.S)
	if err := signature.Verify(sig); err != nil {
		return signature.Address{}, chainerrs.NewValidationError(chainerrs.BadSignature, -32003, err.Error())
	}

	addr, err := signature.Recover(digest, sig)
	if err != nil {
		return signature.Address{}, chainerrs.NewValidationError(chainerrs.BadSignature, -32003, err.Error())
	}

	return addr, nil
}

// TxHash returns the validator tx hash: keccak-256 of the signed RLP
// encoding.
func (vtx SignedValidatorTx) TxHash() (signature.Hash, error) {
	b, err := rlp.EncodeToBytes(vtx)
	if err != nil {
		return signature.Hash{}, err
	}
	return signature.Keccak256(b), nil
}

// String implements fmt.Stringer for logging.
func (vtx SignedValidatorTx) String() string {
	from, err := vtx.FromAddress()
	if err != nil {
		return fmt.Sprintf("unknown:%s:%d", vtx.Kind, vtx.Nonce)
	}
	return fmt.Sprintf("%s:%s:%d", from.Hex(), vtx.Kind, vtx.Nonce)
}

// =============================================================================
// merkle.Hashable[SignedValidatorTx]

// Hash implements the merkle.Hashable contract for computing a block's
// validator transaction root.
func (vtx SignedValidatorTx) Hash() ([]byte, error) {
	h, err := vtx.TxHash()
	if err != nil {
		return nil, err
	}
	return h.Bytes(), nil
}

// Equals implements the merkle.Hashable contract.
func (vtx SignedValidatorTx) Equals(other SignedValidatorTx) bool {
	return vtx.Kind == other.Kind &&
		vtx.Nonce == other.Nonce &&
		vtx.V.Cmp(other.V) == 0 &&
		vtx.R.Cmp(other.R) == 0 &&
		vtx.S.Cmp(other.S) == 0
}

// =============================================================================
// RLP wire format: [kind, nonce, chainId, target, commitment, reveal, v, r, s].

type rlpSignedValidatorTx struct {
	Kind       byte
	Nonce      uint64
	ChainID    uint64
	Target     signature.Address
	Commitment signature.Hash
	Reveal     signature.Hash
	V          *big.Int
	R          *big.Int
	S          *big.Int
}

// EncodeRLP implements rlp.Encoder.
func (vtx SignedValidatorTx) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, rlpSignedValidatorTx{
		Kind:       byte(vtx.Kind),
		Nonce:      vtx.Nonce,
		ChainID:    vtx.ChainID,
		Target:     vtx.Target,
		Commitment: vtx.Commitment,
		Reveal:     vtx.Reveal,
		V:          vtx.V,
		R:          vtx.R,
		S:          vtx.S,
	})
}

// DecodeRLP implements rlp.Decoder.
func (vtx *SignedValidatorTx) DecodeRLP(s *rlp.Stream) error {
	var raw rlpSignedValidatorTx
	if err := s.Decode(&raw); err != nil {
		return err
	}

	vtx.ValidatorTx = ValidatorTx{
		Kind:       ValidatorTxKind(raw.Kind),
		Nonce:      raw.Nonce,
		ChainID:    raw.ChainID,
		Target:     raw.Target,
		Commitment: raw.Commitment,
		Reveal:     raw.Reveal,
	}
	vtx.V = raw.V
	vtx.R = raw.R
	vtx.S = raw.S

	return nil
}
