package abi

import (
	"strings"

	"github.com/rdchain/node/foundation/blockchain/chainerrs"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

// Method is a parsed function signature: its name and its ordered argument
// types, as they would appear in "name(type1,type2,...)".
type Method struct {
	Name  string
	Types []Type
}

// ParseSignature parses a Solidity-style function signature such as
// "transfer(address,uint256)" into its name and argument types.
func ParseSignature(sig string) (Method, error) {
	open := strings.IndexByte(sig, '(')
	if open < 0 || !strings.HasSuffix(sig, ")") {
		return Method{}, chainerrs.NewCodecError(chainerrs.InvalidSelectorSyntax, "missing parens in signature: "+sig)
	}

	name := sig[:open]
	if name == "" {
		return Method{}, chainerrs.NewCodecError(chainerrs.InvalidSelectorSyntax, "empty function name in signature: "+sig)
	}

	body := sig[open+1 : len(sig)-1]
	if body == "" {
		return Method{Name: name}, nil
	}

	frags := strings.Split(body, ",")
	types := make([]Type, len(frags))
	for i, frag := range frags {
		if strings.TrimSpace(frag) == "" {
			return Method{}, chainerrs.NewCodecError(chainerrs.InvalidSelectorSyntax, "empty type in signature: "+sig)
		}
		t, err := parseType(frag)
		if err != nil {
			return Method{}, err
		}
		types[i] = t
	}

	return Method{Name: name, Types: types}, nil
}

// Signature re-renders the method as the canonical "name(t1,t2,...)" string
// used to compute the selector.
func (m Method) Signature() string {
	parts := make([]string, len(m.Types))
	for i, t := range m.Types {
		parts[i] = t.String()
	}
	return m.Name + "(" + strings.Join(parts, ",") + ")"
}

// Selector returns the 4-byte function selector: the first 4 bytes of the
// keccak-256 hash of the method's canonical signature.
func (m Method) Selector() [4]byte {
	h := signature.Keccak256([]byte(m.Signature()))
	var sel [4]byte
	copy(sel[:], h[:4])
	return sel
}

// Selector computes the 4-byte function selector directly from a signature
// string, without needing to round-trip through Encode/Decode.
func Selector(sig string) ([4]byte, error) {
	m, err := ParseSignature(sig)
	if err != nil {
		return [4]byte{}, err
	}
	return m.Selector(), nil
}
