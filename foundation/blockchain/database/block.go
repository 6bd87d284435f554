package database

import (
	"crypto/ecdsa"
	"encoding/binary"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rdchain/node/foundation/blockchain/chainerrs"
	"github.com/rdchain/node/foundation/blockchain/merkle"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

// BlockHeader is the canonical, signed-over part of a block. The signature
// set is deliberately not part of it: Hash is computed over these five
// fields only.
type BlockHeader struct {
	PrevBlockHash   signature.Hash
	Timestamp       uint64
	Height          uint64
	TxRoot          signature.Hash
	ValidatorTxRoot signature.Hash
}

// Hash is the block hash: keccak-256 over prevHash || timestamp || height ||
// txRoot || validatorTxRoot, each field big-endian where applicable.
func (h BlockHeader) Hash() signature.Hash {
	var ts, height [8]byte
	binary.BigEndian.PutUint64(ts[:], h.Timestamp)
	binary.BigEndian.PutUint64(height[:], h.Height)

	return signature.Keccak256(
		h.PrevBlockHash.Bytes(),
		ts[:],
		height[:],
		h.TxRoot.Bytes(),
		h.ValidatorTxRoot.Bytes(),
	)
}

// =============================================================================

// Block is a header plus the producer signature, the co-signatures
// collected from the rest of the elected schedule, and the two tx lists
// whose merkle roots the header commits to.
type Block struct {
	Header        BlockHeader
	ProducerSig   signature.Signature
	ValidatorSigs []signature.Signature
	Txs           []SignedTx
	ValidatorTxs  []SignedValidatorTx
}

// NewBlock assembles an unsigned block: it computes the tx and validator-tx
// merkle roots from the given (already ordered) lists and stamps the
// header, leaving producer/validator signatures for the caller (rdpos) to
// attach once the co-signing round completes.
func NewBlock(prevHash signature.Hash, height uint64, timestamp time.Time, txs []SignedTx, validatorTxs []SignedValidatorTx) (Block, error) {
	txTree, err := merkle.NewTree(txs)
	if err != nil {
		return Block{}, err
	}

	vtxTree, err := merkle.NewTree(validatorTxs)
	if err != nil {
		return Block{}, err
	}

	header := BlockHeader{
		PrevBlockHash:   prevHash,
		Timestamp:       uint64(timestamp.UnixMilli()),
		Height:          height,
		TxRoot:          signature.HashFromBytes(txTree.MerkleRoot),
		ValidatorTxRoot: signature.HashFromBytes(vtxTree.MerkleRoot),
	}

	return Block{
		Header:       header,
		Txs:          txs,
		ValidatorTxs: validatorTxs,
	}, nil
}

// Hash returns the block's header hash.
func (b Block) Hash() signature.Hash {
	return b.Header.Hash()
}

// SignHeader signs the block's header hash. Used by both the elected
// producer and each co-signer; which role a signature plays is determined
// by the schedule, not by anything encoded in the signature itself.
func (b Block) SignHeader(privateKey *ecdsa.PrivateKey) (signature.Signature, error) {
	return signature.Sign(b.Header.Hash(), privateKey)
}

// RecoverHeaderSigner recovers the address that produced sig over this
// block's header hash.
func (b Block) RecoverHeaderSigner(sig signature.Signature) (signature.Address, error) {
	return signature.Recover(b.Header.Hash(), sig)
}

// ValidateStructure checks the parts of a block that don't require
// consensus context: linkage to the parent, height monotonicity, and that
// the committed roots actually match the included transaction lists.
// Validator-set/schedule/quorum checks belong to the rdpos package.
func (b Block) ValidateStructure(prevHash signature.Hash, prevHeight uint64) error {
	if b.Header.PrevBlockHash != prevHash {
		return chainerrs.NewStructuralError(chainerrs.BadPrevHash, "block's prevHash does not match the parent block's hash")
	}

	if b.Header.Height != prevHeight+1 {
		return chainerrs.NewStructuralError(chainerrs.BadHeight, "block height is not exactly one more than its parent's")
	}

	txTree, err := merkle.NewTree(b.Txs)
	if err != nil {
		return err
	}
	if signature.HashFromBytes(txTree.MerkleRoot) != b.Header.TxRoot {
		return chainerrs.NewStructuralError(chainerrs.BadMerkleRoot, "txRoot does not match the block's transactions")
	}

	vtxTree, err := merkle.NewTree(b.ValidatorTxs)
	if err != nil {
		return err
	}
	if signature.HashFromBytes(vtxTree.MerkleRoot) != b.Header.ValidatorTxRoot {
		return chainerrs.NewStructuralError(chainerrs.BadMerkleRoot, "validatorTxRoot does not match the block's validator transactions")
	}

	return nil
}

// =============================================================================
// RLP wire format

// rlpBlock mirrors the flat wire list: [prevHash, timestamp, height, txRoot,
// validatorTxRoot, producerSig, [validatorSigs...], [txs...], [validatorTxs...]].
type rlpBlock struct {
	PrevBlockHash   signature.Hash
	Timestamp       uint64
	Height          uint64
	TxRoot          signature.Hash
	ValidatorTxRoot signature.Hash
	ProducerSig     signature.Signature
	ValidatorSigs   []signature.Signature
	Txs             []SignedTx
	ValidatorTxs    []SignedValidatorTx
}

// EncodeRLP implements rlp.Encoder, flattening the header fields into the
// same list as the signatures and tx bodies rather than nesting BlockHeader
// as its own sublist.
func (b Block) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, rlpBlock{
		PrevBlockHash:   b.Header.PrevBlockHash,
		Timestamp:       b.Header.Timestamp,
		Height:          b.Header.Height,
		TxRoot:          b.Header.TxRoot,
		ValidatorTxRoot: b.Header.ValidatorTxRoot,
		ProducerSig:     b.ProducerSig,
		ValidatorSigs:   b.ValidatorSigs,
		Txs:             b.Txs,
		ValidatorTxs:    b.ValidatorTxs,
	})
}

// DecodeRLP implements rlp.Decoder.
func (b *Block) DecodeRLP(s *rlp.Stream) error {
	var raw rlpBlock
	if err := s.Decode(&raw); err != nil {
		return err
	}

	b.Header = BlockHeader{
		PrevBlockHash:   raw.PrevBlockHash,
		Timestamp:       raw.Timestamp,
		Height:          raw.Height,
		TxRoot:          raw.TxRoot,
		ValidatorTxRoot: raw.ValidatorTxRoot,
	}
	b.ProducerSig = raw.ProducerSig
	b.ValidatorSigs = raw.ValidatorSigs
	b.Txs = raw.Txs
	b.ValidatorTxs = raw.ValidatorTxs

	return nil
}
