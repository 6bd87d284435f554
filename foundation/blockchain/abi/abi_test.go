package abi_test

import (
	"math/big"
	"reflect"
	"testing"

	"github.com/rdchain/node/foundation/blockchain/abi"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

func Test_TransferSelector(t *testing.T) {
	sel, err := abi.Selector("transfer(address,uint256)")
	if err != nil {
		t.Fatalf("should compute a selector: %s", err)
	}

	want := [4]byte{0xa9, 0x05, 0x9c, 0xbb}
	if sel != want {
		t.Fatalf("got %x, exp %x", sel, want)
	}
}

func Test_TransferEncode(t *testing.T) {
	to, err := signature.AddressFromHex("0x0000000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("address: %s", err)
	}

	data, err := abi.EncodeCall("transfer(address,uint256)", to, big.NewInt(1000))
	if err != nil {
		t.Fatalf("encode call: %s", err)
	}

	if len(data) != 4+32+32 {
		t.Fatalf("got %d bytes, exp %d", len(data), 4+32+32)
	}

	wantSel := []byte{0xa9, 0x05, 0x9c, 0xbb}
	if string(data[:4]) != string(wantSel) {
		t.Fatalf("selector mismatch: got %x", data[:4])
	}

	if data[4+31] != 0x01 {
		t.Fatalf("address word not right-aligned: %x", data[4:36])
	}

	amount := new(big.Int).SetBytes(data[36:68])
	if amount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("got amount %s, exp 1000", amount)
	}
}

func Test_RoundTripEveryType(t *testing.T) {
	addr, err := signature.AddressFromHex("0x0000000000000000000000000000000000000042")
	if err != nil {
		t.Fatalf("address: %s", err)
	}

	cases := []struct {
		name  string
		types []abi.Type
		vals  []any
	}{
		{"uint256", []abi.Type{{Kind: abi.Uint256Kind}}, []any{big.NewInt(424242)}},
		{"address", []abi.Type{{Kind: abi.AddressKind}}, []any{addr}},
		{"bool", []abi.Type{{Kind: abi.BoolKind}}, []any{true}},
		{"bytes", []abi.Type{{Kind: abi.BytesKind}}, []any{[]byte("hello world, this is longer than one word")}},
		{"string", []abi.Type{{Kind: abi.StringKind}}, []any{"hi"}},
		{"uint256[]", []abi.Type{{Kind: abi.Uint256Kind, IsArray: true}}, []any{[]*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}}},
		{"address[]", []abi.Type{{Kind: abi.AddressKind, IsArray: true}}, []any{[]signature.Address{addr, addr}}},
		{"bool[]", []abi.Type{{Kind: abi.BoolKind, IsArray: true}}, []any{[]bool{true, false, true}}},
		{"string[]", []abi.Type{{Kind: abi.StringKind, IsArray: true}}, []any{[]string{"a", "bb", "ccc"}}},
		{"bytes[]", []abi.Type{{Kind: abi.BytesKind, IsArray: true}}, []any{[][]byte{{}, {1, 2, 3}, make([]byte, 40)}}},
		{"mixed tuple", []abi.Type{{Kind: abi.Uint256Kind}, {Kind: abi.StringKind}, {Kind: abi.BoolKind}}, []any{big.NewInt(7), "seven", false}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			data, err := abi.Encode(c.types, c.vals)
			if err != nil {
				t.Fatalf("encode: %s", err)
			}

			got, err := abi.Decode(c.types, data)
			if err != nil {
				t.Fatalf("decode: %s", err)
			}

			if len(got) != len(c.vals) {
				t.Fatalf("got %d values, exp %d", len(got), len(c.vals))
			}
			for i := range c.vals {
				if !reflect.DeepEqual(got[i], c.vals[i]) {
					t.Fatalf("value %d: got %v, exp %v", i, got[i], c.vals[i])
				}
			}
		})
	}
}

func Test_TruncatedDataRejected(t *testing.T) {
	types := []abi.Type{{Kind: abi.Uint256Kind}}
	_, err := abi.Decode(types, make([]byte, 10))
	if err == nil {
		t.Fatalf("expected an error decoding a truncated head")
	}
}

func Test_InvalidSelectorSyntax(t *testing.T) {
	if _, err := abi.ParseSignature("transfer(address,uint256"); err == nil {
		t.Fatalf("expected an error for a signature missing its closing paren")
	}
	if _, err := abi.ParseSignature("(address)"); err == nil {
		t.Fatalf("expected an error for a signature with an empty name")
	}
	if _, err := abi.ParseSignature("transfer(nonsense)"); err == nil {
		t.Fatalf("expected an error for an unknown type")
	}
}
