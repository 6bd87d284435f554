package abi

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/rdchain/node/foundation/blockchain/chainerrs"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

const wordSize = 32

// Encode packs values against types following Solidity ABI v2 head/tail
// layout: static types occupy the head inline, dynamic types occupy a
// 32-byte offset in the head and their payload in the tail, offsets counted
// in bytes from the start of the argument region (byte 0 of the returned
// slice, i.e. right after any selector prefix the caller may prepend).
func Encode(types []Type, values []any) ([]byte, error) {
	if len(types) != len(values) {
		return nil, chainerrs.NewCodecError(chainerrs.TypeArityMismatch, fmt.Sprintf("expected %d values, got %d", len(types), len(values)))
	}

	heads := make([][]byte, len(types))
	tails := make([][]byte, len(types))

	tailOffset := len(types) * wordSize
	for i, t := range types {
		packed, err := encodeValue(t, values[i])
		if err != nil {
			return nil, err
		}
		if t.IsDynamic() {
			heads[i] = padLeftUint(uint64(tailOffset))
			tails[i] = packed
			tailOffset += len(packed)
		} else {
			heads[i] = packed
		}
	}

	out := make([]byte, 0, tailOffset)
	for _, h := range heads {
		out = append(out, h...)
	}
	for _, t := range tails {
		out = append(out, t...)
	}
	return out, nil
}

// EncodeCall encodes a full call: the 4-byte selector for sig, followed by
// the ABI-encoded arguments.
func EncodeCall(sig string, values ...any) ([]byte, error) {
	m, err := ParseSignature(sig)
	if err != nil {
		return nil, err
	}
	body, err := Encode(m.Types, values)
	if err != nil {
		return nil, err
	}
	sel := m.Selector()
	out := make([]byte, 0, 4+len(body))
	out = append(out, sel[:]...)
	return append(out, body...), nil
}

// encodeValue packs a single value of the given type as either a static
// 32-byte word or a self-contained dynamic payload (length-prefixed where
// applicable), without regard to where the caller places it.
func encodeValue(t Type, v any) ([]byte, error) {
	if t.IsArray {
		return encodeArray(t, v)
	}

	switch t.Kind {
	case Uint256Kind:
		n, ok := v.(*big.Int)
		if !ok {
			return nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "uint256 value must be *big.Int")
		}
		return padLeftBig(n), nil

	case AddressKind:
		a, ok := v.(signature.Address)
		if !ok {
			return nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "address value must be signature.Address")
		}
		return padLeftBytes(a.Bytes(), wordSize), nil

	case BoolKind:
		b, ok := v.(bool)
		if !ok {
			return nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "bool value must be bool")
		}
		word := make([]byte, wordSize)
		if b {
			word[wordSize-1] = 1
		}
		return word, nil

	case BytesKind:
		b, ok := v.([]byte)
		if !ok {
			return nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "bytes value must be []byte")
		}
		return packDynamicBytes(b), nil

	case StringKind:
		s, ok := v.(string)
		if !ok {
			return nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "string value must be string")
		}
		return packDynamicBytes([]byte(s)), nil

	default:
		return nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "unsupported type: "+t.String())
	}
}

// packDynamicBytes packs a raw byte payload as [length(32)] [data right-
// padded to a 32-byte boundary], the shared tail shape for bytes and string.
func packDynamicBytes(b []byte) []byte {
	out := padLeftUint(uint64(len(b)))
	padded := (len(b) + wordSize - 1) / wordSize * wordSize
	data := make([]byte, padded)
	copy(data, b)
	return append(out, data...)
}

// encodeArray packs a one-dimensional array. Elements of a static element
// type are concatenated directly after the length word; elements of a
// dynamic element type (bytes/string — nested arrays are not supported by
// this codec) get their own offset table, each offset counted from the
// start of the array's own payload (right after the length word), per
// spec.md's "offsets (from the start of the array payload)" rule.
func encodeArray(t Type, v any) ([]byte, error) {
	elemType := Type{Kind: t.Kind, IsArray: false}

	n, elemAt, err := arrayAccessor(t.Kind, v)
	if err != nil {
		return nil, err
	}

	lengthWord := padLeftUint(uint64(n))

	if !elemType.IsDynamic() {
		out := lengthWord
		for i := 0; i < n; i++ {
			packed, err := encodeValue(elemType, elemAt(i))
			if err != nil {
				return nil, err
			}
			out = append(out, packed...)
		}
		return out, nil
	}

	return encodeDynamicElementArray(n, elemAt)
}

// encodeDynamicElementArray packs the bytes[]/string[] shape: this is the
// one spot the original implementation's encodeBytesArr mis-accounted the
// running tail offset (see SPEC_FULL.md Supplemented Features); this
// implementation tracks the offset as an accumulator advanced strictly
// after each element is packed, which is correct regardless of any
// element's padded length, including a zero-length element.
func encodeDynamicElementArray(n int, elemAt func(int) any) ([]byte, error) {
	offsets := make([][]byte, n)
	payloads := make([][]byte, n)

	offsetTableLen := n * wordSize
	running := offsetTableLen
	for i := 0; i < n; i++ {
		b, ok := elemAt(i).([]byte)
		if !ok {
			s, ok := elemAt(i).(string)
			if !ok {
				return nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "dynamic array element must be []byte or string")
			}
			b = []byte(s)
		}
		packed := packDynamicBytes(b)
		offsets[i] = padLeftUint(uint64(running))
		payloads[i] = packed
		running += len(packed)
	}

	out := padLeftUint(uint64(n))
	for _, o := range offsets {
		out = append(out, o...)
	}
	for _, p := range payloads {
		out = append(out, p...)
	}
	return out, nil
}

// arrayAccessor returns the element count and an index accessor for the
// concrete slice type matching kind.
func arrayAccessor(kind Kind, v any) (int, func(int) any, error) {
	switch kind {
	case Uint256Kind:
		s, ok := v.([]*big.Int)
		if !ok {
			return 0, nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "uint256[] value must be []*big.Int")
		}
		return len(s), func(i int) any { return s[i] }, nil

	case AddressKind:
		s, ok := v.([]signature.Address)
		if !ok {
			return 0, nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "address[] value must be []signature.Address")
		}
		return len(s), func(i int) any { return s[i] }, nil

	case BoolKind:
		s, ok := v.([]bool)
		if !ok {
			return 0, nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "bool[] value must be []bool")
		}
		return len(s), func(i int) any { return s[i] }, nil

	case BytesKind:
		s, ok := v.([][]byte)
		if !ok {
			return 0, nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "bytes[] value must be [][]byte")
		}
		return len(s), func(i int) any { return s[i] }, nil

	case StringKind:
		s, ok := v.([]string)
		if !ok {
			return 0, nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "string[] value must be []string")
		}
		return len(s), func(i int) any { return s[i] }, nil

	default:
		return 0, nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "unsupported array element type")
	}
}

func padLeftBig(n *big.Int) []byte {
	return math.U256Bytes(new(big.Int).Set(n))
}

func padLeftUint(n uint64) []byte {
	return padLeftBig(new(big.Int).SetUint64(n))
}

func padLeftBytes(b []byte, size int) []byte {
	if len(b) >= size {
		return b[len(b)-size:]
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
