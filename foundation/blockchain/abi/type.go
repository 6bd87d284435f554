// Package abi implements the subset of the Solidity ABI v2 encoding that
// contracts in this system actually use: uint256, address, bool, bytes,
// string, and one-dimensional arrays of each.
package abi

import (
	"strings"

	"github.com/rdchain/node/foundation/blockchain/chainerrs"
)

// Kind enumerates the base Solidity types this codec understands.
type Kind int

// The supported base kinds.
const (
	Uint256Kind Kind = iota
	AddressKind
	BoolKind
	BytesKind
	StringKind
)

func (k Kind) String() string {
	switch k {
	case Uint256Kind:
		return "uint256"
	case AddressKind:
		return "address"
	case BoolKind:
		return "bool"
	case BytesKind:
		return "bytes"
	case StringKind:
		return "string"
	default:
		return "unknown"
	}
}

// Type describes one argument's shape: a base Kind, optionally wrapped in a
// single level of array-ness (this codec does not support nested arrays,
// matching the one-dimensional restriction spec.md names).
type Type struct {
	Kind    Kind
	IsArray bool
}

// IsDynamic reports whether the type is encoded as an offset into the tail
// region rather than inline in the head. Every array is dynamic (even an
// array of a static element, because its length is unknown at encode time
// from the type alone); bytes and string are always dynamic.
func (t Type) IsDynamic() bool {
	if t.IsArray {
		return true
	}
	switch t.Kind {
	case BytesKind, StringKind:
		return true
	default:
		return false
	}
}

// String renders the type the way it appears in a Solidity function
// signature, e.g. "uint256", "address[]".
func (t Type) String() string {
	s := t.Kind.String()
	if t.IsArray {
		s += "[]"
	}
	return s
}

// parseType parses a single type fragment as it appears between the parens
// of a signature, e.g. "uint256" or "bytes[]".
func parseType(frag string) (Type, error) {
	frag = strings.TrimSpace(frag)
	isArray := strings.HasSuffix(frag, "[]")
	if isArray {
		frag = strings.TrimSuffix(frag, "[]")
	}

	var kind Kind
	switch frag {
	case "uint256", "uint":
		kind = Uint256Kind
	case "address":
		kind = AddressKind
	case "bool":
		kind = BoolKind
	case "bytes":
		kind = BytesKind
	case "string":
		kind = StringKind
	default:
		return Type{}, chainerrs.NewCodecError(chainerrs.InvalidSelectorSyntax, "unknown type: "+frag)
	}

	return Type{Kind: kind, IsArray: isArray}, nil
}
