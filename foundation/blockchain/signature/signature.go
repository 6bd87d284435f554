// Package signature provides the fixed-width byte types (Address, Hash,
// Signature) and the keccak/ECDSA primitives the rest of the node builds on.
package signature

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressLength is the fixed width, in bytes, of an Address.
const AddressLength = 20

// HashLength is the fixed width, in bytes, of a Hash.
const HashLength = 32

// SignatureLength is the fixed width, in bytes, of a Signature: r(32) || s(32) || v(1).
const SignatureLength = 65

// ZeroHash is the Hash whose bytes are all zero.
var ZeroHash Hash

// ZeroAddress is the Address whose bytes are all zero.
var ZeroAddress Address

// recoveryIDOffset is the index of the recovery byte in a 65-byte signature.
const recoveryIDOffset = 64

// =============================================================================

// Address is a fixed 20-byte account identifier, stored internally in raw
// byte form.
type Address [AddressLength]byte

// AddressFromBytes constructs an Address from a byte slice. Slices shorter
// than AddressLength are left-padded with zero; longer slices are truncated
// from the left, matching how a big-endian public-key hash is trimmed.
func AddressFromBytes(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// AddressFromHex parses a hex string (with or without "0x" prefix) into an
// Address. Checksum casing, if present, is not validated against EIP-55 on
// the way in — ToChecksumHex is what produces checksum casing on the way out.
func AddressFromHex(s string) (Address, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s) != AddressLength*2 {
		return Address{}, fmt.Errorf("signature: address %q must be %d hex characters", s, AddressLength*2)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("signature: address %q is not valid hex: %w", s, err)
	}
	return AddressFromBytes(b), nil
}

// PublicKeyToAddress derives the Address belonging to the given public key:
// the rightmost 20 bytes of keccak-256 of the uncompressed public key, minus
// the leading 0x04 prefix byte.
func PublicKeyToAddress(pub ecdsa.PublicKey) Address {
	return AddressFromBytes(crypto.PubkeyToAddress(pub).Bytes())
}

// Bytes returns a copy of the address's raw bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressLength)
	copy(b, a[:])
	return b
}

// IsZero reports whether the address is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Hex returns the lowercase 0x-prefixed hex encoding.
func (a Address) Hex() string {
	return hexutil.Encode(a[:])
}

// String satisfies fmt.Stringer with the EIP-55 checksummed form.
func (a Address) String() string {
	return a.ToChecksumHex()
}

// ToChecksumHex renders the address as lowercase hex with EIP-55 mixed-case
// checksumming: a nibble of the keccak-256 hash of the lowercase hex digits
// decides whether the corresponding letter is upper- or lower-cased.
func (a Address) ToChecksumHex() string {
	lower := hex.EncodeToString(a[:])
	hashed := crypto.Keccak256([]byte(lower))

	out := make([]byte, len(lower)+2)
	out[0], out[1] = '0', 'x'
	for i, c := range lower {
		if c >= 'a' && c <= 'f' {
			var nibble byte
			if i%2 == 0 {
				nibble = hashed[i/2] >> 4
			} else {
				nibble = hashed[i/2] & 0x0f
			}
			if nibble >= 8 {
				out[i+2] = byte(c) - 'a' + 'A'
				continue
			}
		}
		out[i+2] = byte(c)
	}
	return string(out)
}

// MarshalText implements encoding.TextMarshaler using the checksummed form.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.ToChecksumHex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	addr, err := AddressFromHex(string(text))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// =============================================================================

// Hash is a fixed 32-byte value.
type Hash [HashLength]byte

// HashFromBytes constructs a Hash from a byte slice; the slice must be
// exactly HashLength bytes.
func HashFromBytes(b []byte) Hash {
	var h Hash
	copy(h[:], b)
	return h
}

// HashFromBig constructs a Hash from the big-endian bytes of a big.Int.
func HashFromBig(v *big.Int) Hash {
	var h Hash
	v.FillBytes(h[:])
	return h
}

// RandomHash draws HashLength bytes from a CSPRNG.
func RandomHash() (Hash, error) {
	var h Hash
	if _, err := rand.Read(h[:]); err != nil {
		return Hash{}, fmt.Errorf("signature: reading random bytes: %w", err)
	}
	return h, nil
}

// Keccak256 hashes the concatenation of data into a Hash.
func Keccak256(data ...[]byte) Hash {
	return HashFromBytes(crypto.Keccak256(data...))
}

// Big returns the hash interpreted as a big-endian unsigned integer.
func (h Hash) Big() *big.Int {
	return new(big.Int).SetBytes(h[:])
}

// Bytes returns a copy of the hash's raw bytes.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashLength)
	copy(b, h[:])
	return b
}

// IsZero reports whether the hash is the zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Hex returns the lowercase 0x-prefixed hex encoding.
func (h Hash) Hex() string {
	return hexutil.Encode(h[:])
}

// String satisfies fmt.Stringer.
func (h Hash) String() string {
	return h.Hex()
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(string(text), "0x")
	if len(s) != HashLength*2 {
		return fmt.Errorf("signature: hash %q must be %d hex characters", s, HashLength*2)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("signature: hash %q is not valid hex: %w", s, err)
	}
	*h = HashFromBytes(b)
	return nil
}

// =============================================================================

// Signature is the fixed 65-byte r || s || v encoding of an ECDSA signature.
type Signature [SignatureLength]byte

// SignatureFromVRS packs the R, S, V big.Int triple produced by Sign into the
// fixed-width wire form.
func SignatureFromVRS(v, r, s *big.Int) Signature {
	var sig Signature
	r.FillBytes(sig[0:32])
	s.FillBytes(sig[32:64])
	sig[64] = byte(v.Uint64())
	return sig
}

// VRS unpacks the fixed-width signature back into the R, S, V big.Int triple.
func (sig Signature) VRS() (v, r, s *big.Int) {
	r = new(big.Int).SetBytes(sig[0:32])
	s = new(big.Int).SetBytes(sig[32:64])
	v = new(big.Int).SetBytes(sig[64:65])
	return v, r, s
}

// Hex returns the lowercase 0x-prefixed hex encoding.
func (sig Signature) Hex() string {
	return hexutil.Encode(sig[:])
}

// String satisfies fmt.Stringer.
func (sig Signature) String() string {
	return sig.Hex()
}

// recoverableBytes returns the signature in the [R|S|V] 65-byte form that
// crypto.SigToPub/crypto.Ecrecover expect, with V normalized to 0/1.
func (sig Signature) recoverableBytes() []byte {
	out := make([]byte, SignatureLength)
	copy(out, sig[:])
	if out[recoveryIDOffset] >= 27 {
		out[recoveryIDOffset] -= 27
	}
	return out
}

// =============================================================================

// Sign produces a Signature over digest (expected to already be a 32-byte
// hash) using privateKey, cross-checking the recovered public key against the
// signing key before returning so a signature that wouldn't verify is never
// handed back.
func Sign(digest Hash, privateKey *ecdsa.PrivateKey) (Signature, error) {
	sig, err := crypto.Sign(digest[:], privateKey)
	if err != nil {
		return Signature{}, fmt.Errorf("signature: signing digest: %w", err)
	}

	publicKey, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return Signature{}, fmt.Errorf("signature: recovering public key: %w", err)
	}

	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), digest[:], rs) {
		return Signature{}, errors.New("signature: signature does not verify against its own public key")
	}

	var out Signature
	copy(out[:], sig)
	return out, nil
}

// Recover extracts the Address that produced sig over digest.
func Recover(digest Hash, sig Signature) (Address, error) {
	publicKey, err := crypto.SigToPub(digest[:], sig.recoverableBytes())
	if err != nil {
		return Address{}, fmt.Errorf("signature: recovering public key: %w", err)
	}
	return PublicKeyToAddress(*publicKey), nil
}

// Verify reports whether sig is a well-formed secp256k1 signature (r, s in
// range, recovery id canonical) without performing recovery.
func Verify(sig Signature) error {
	v := sig[recoveryIDOffset]
	if v >= 27 {
		v -= 27
	}
	if v != 0 && v != 1 {
		return errors.New("signature: invalid recovery id")
	}

	_, r, s := sig.VRS()
	if !crypto.ValidateSignatureValues(v, r, s, false) {
		return errors.New("signature: invalid signature values")
	}
	return nil
}
