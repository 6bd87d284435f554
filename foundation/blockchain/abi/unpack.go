package abi

import (
	"math/big"

	"github.com/rdchain/node/foundation/blockchain/chainerrs"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

// Decode unpacks data against types, returning one value per type in the
// concrete Go representation Encode expects back (see arrayAccessor /
// encodeValue for the type<->Go mapping). Every offset dereference is
// bounds-checked against len(data) before the read, per spec.md §4.A's
// "enforces offset + 32 + length <= input.size()" decoding rule.
func Decode(types []Type, data []byte) ([]any, error) {
	headLen := len(types) * wordSize
	if len(data) < headLen {
		return nil, chainerrs.NewCodecError(chainerrs.TruncatedData, "input shorter than the fixed head region")
	}

	out := make([]any, len(types))
	for i, t := range types {
		word, err := readWord(data, i*wordSize)
		if err != nil {
			return nil, err
		}

		if !t.IsDynamic() {
			v, err := decodeStaticWord(t, word)
			if err != nil {
				return nil, err
			}
			out[i] = v
			continue
		}

		offset := new(big.Int).SetBytes(word).Uint64()
		v, err := decodeDynamic(t, data, int(offset))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// DecodeCall splits off the 4-byte selector and decodes the remaining
// payload against sig's argument types, verifying the selector matches.
func DecodeCall(sig string, data []byte) ([]any, error) {
	if len(data) < 4 {
		return nil, chainerrs.NewCodecError(chainerrs.TruncatedData, "input shorter than a selector")
	}
	m, err := ParseSignature(sig)
	if err != nil {
		return nil, err
	}
	want := m.Selector()
	if [4]byte(data[:4]) != want {
		return nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "selector does not match signature")
	}
	return Decode(m.Types, data[4:])
}

func readWord(data []byte, start int) ([]byte, error) {
	if start < 0 || start+wordSize > len(data) {
		return nil, chainerrs.NewCodecError(chainerrs.TruncatedData, "data too short reading a 32-byte word")
	}
	return data[start : start+wordSize], nil
}

func decodeStaticWord(t Type, word []byte) (any, error) {
	switch t.Kind {
	case Uint256Kind:
		return new(big.Int).SetBytes(word), nil
	case AddressKind:
		return signature.AddressFromBytes(word[wordSize-signature.AddressLength:]), nil
	case BoolKind:
		return word[wordSize-1] == 1, nil
	default:
		return nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "type is not static: "+t.String())
	}
}

// decodeDynamic dereferences an offset into data and reads the payload for
// t: bytes/string read a length-prefixed blob; arrays read a length-
// prefixed sequence of elements (inline for static elements, offset-
// indirected for dynamic elements).
func decodeDynamic(t Type, data []byte, offset int) (any, error) {
	if t.IsArray {
		return decodeArray(t, data, offset)
	}

	lengthWord, err := readWord(data, offset)
	if err != nil {
		return nil, err
	}
	length := int(new(big.Int).SetBytes(lengthWord).Uint64())

	payloadStart := offset + wordSize
	if payloadStart+length > len(data) || payloadStart+length < 0 {
		return nil, chainerrs.NewCodecError(chainerrs.TruncatedData, "bytes/string payload runs past end of data")
	}
	payload := data[payloadStart : payloadStart+length]

	switch t.Kind {
	case BytesKind:
		out := make([]byte, length)
		copy(out, payload)
		return out, nil
	case StringKind:
		return string(payload), nil
	default:
		return nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "type is not bytes/string: "+t.String())
	}
}

func decodeArray(t Type, data []byte, offset int) (any, error) {
	lengthWord, err := readWord(data, offset)
	if err != nil {
		return nil, err
	}
	n := int(new(big.Int).SetBytes(lengthWord).Uint64())

	elemType := Type{Kind: t.Kind, IsArray: false}
	payloadStart := offset + wordSize

	if !elemType.IsDynamic() {
		return decodeStaticArray(t.Kind, data, payloadStart, n)
	}
	return decodeDynamicArray(t.Kind, data, payloadStart, n)
}

func decodeStaticArray(kind Kind, data []byte, start, n int) (any, error) {
	switch kind {
	case Uint256Kind:
		out := make([]*big.Int, n)
		for i := 0; i < n; i++ {
			w, err := readWord(data, start+i*wordSize)
			if err != nil {
				return nil, err
			}
			out[i] = new(big.Int).SetBytes(w)
		}
		return out, nil

	case AddressKind:
		out := make([]signature.Address, n)
		for i := 0; i < n; i++ {
			w, err := readWord(data, start+i*wordSize)
			if err != nil {
				return nil, err
			}
			out[i] = signature.AddressFromBytes(w[wordSize-signature.AddressLength:])
		}
		return out, nil

	case BoolKind:
		out := make([]bool, n)
		for i := 0; i < n; i++ {
			w, err := readWord(data, start+i*wordSize)
			if err != nil {
				return nil, err
			}
			out[i] = w[wordSize-1] == 1
		}
		return out, nil

	default:
		return nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "unsupported static array element type")
	}
}

// decodeDynamicArray reads the bytes[]/string[] shape: a per-element offset
// table (offsets counted from start, the beginning of the array's own
// payload region), then each element's own length-prefixed blob.
func decodeDynamicArray(kind Kind, data []byte, start, n int) (any, error) {
	elemStarts := make([]int, n)
	for i := 0; i < n; i++ {
		w, err := readWord(data, start+i*wordSize)
		if err != nil {
			return nil, err
		}
		elemStarts[i] = start + int(new(big.Int).SetBytes(w).Uint64())
	}

	switch kind {
	case BytesKind:
		out := make([][]byte, n)
		for i, es := range elemStarts {
			v, err := decodeDynamic(Type{Kind: BytesKind}, data, es)
			if err != nil {
				return nil, err
			}
			out[i] = v.([]byte)
		}
		return out, nil

	case StringKind:
		out := make([]string, n)
		for i, es := range elemStarts {
			v, err := decodeDynamic(Type{Kind: StringKind}, data, es)
			if err != nil {
				return nil, err
			}
			out[i] = v.(string)
		}
		return out, nil

	default:
		return nil, chainerrs.NewCodecError(chainerrs.TypeValueMismatch, "unsupported dynamic array element type")
	}
}
