// Package patricia provides a 16-wide radix trie over the nibbles of a key
// hash, used by the state package for key-indexed account/contract storage
// lookups.
package patricia

import "github.com/rdchain/node/foundation/blockchain/signature"

// node is one level of the trie: up to 16 children, one per nibble value,
// plus an optional terminal value.
type node struct {
	children [16]*node
	value    []byte
	hasValue bool
}

// Trie is a 16-wide radix tree keyed by the nibbles of a 32-byte hash.
type Trie struct {
	root *node
}

// New constructs an empty trie.
func New() *Trie {
	return &Trie{root: &node{}}
}

// nibbles splits a hash into its 64 4-bit nibbles, most significant first.
func nibbles(keyHash signature.Hash) []byte {
	b := keyHash.Bytes()
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[2*i] = c >> 4
		out[2*i+1] = c & 0x0f
	}
	return out
}

// AddLeaf inserts value along the nibble path of keyHash, creating
// intermediate nodes as needed.
func (t *Trie) AddLeaf(keyHash signature.Hash, value []byte) {
	n := t.root
	for _, nb := range nibbles(keyHash) {
		if n.children[nb] == nil {
			n.children[nb] = &node{}
		}
		n = n.children[nb]
	}
	n.value = value
	n.hasValue = true
}

// GetLeaf returns the terminal value for keyHash, or nil if no value was
// ever set along that path.
func (t *Trie) GetLeaf(keyHash signature.Hash) []byte {
	n := t.root
	for _, nb := range nibbles(keyHash) {
		if n.children[nb] == nil {
			return nil
		}
		n = n.children[nb]
	}
	if !n.hasValue {
		return nil
	}
	return n.value
}

// DelLeaf clears the terminal value at keyHash's path. Intermediate nodes
// are left in place; this trie never prunes.
func (t *Trie) DelLeaf(keyHash signature.Hash) {
	n := t.root
	for _, nb := range nibbles(keyHash) {
		if n.children[nb] == nil {
			return
		}
		n = n.children[nb]
	}
	n.value = nil
	n.hasValue = false
}

// HasLeaf reports whether a value is currently set at keyHash's path.
func (t *Trie) HasLeaf(keyHash signature.Hash) bool {
	n := t.root
	for _, nb := range nibbles(keyHash) {
		if n.children[nb] == nil {
			return false
		}
		n = n.children[nb]
	}
	return n.hasValue
}

// RootHash returns a keccak256 commitment over every leaf currently set
// in the trie, independent of insertion order: the Merkle-Patricia
// commitment over key-indexed state. A trie with no leaves at all
// commits to the all-zero hash, matching the empty-Merkle-root
// convention the tx/validatorTx trees use.
func (t *Trie) RootHash() signature.Hash {
	return t.root.hash()
}

// hash computes n's commitment bottom-up: a leaf's own value folded in
// with every child's hash, nil children standing in as the zero hash. A
// node with no value and no non-zero child commits to the zero hash too,
// so pruned-looking subtrees and genuinely absent ones are
// indistinguishable by hash, same as an absent leaf.
func (n *node) hash() signature.Hash {
	if n == nil {
		return signature.ZeroHash
	}

	parts := make([][]byte, 0, len(n.children)+1)
	nonEmpty := n.hasValue

	if n.hasValue {
		parts = append(parts, n.value)
	}
	for _, child := range n.children {
		h := child.hash()
		if h != signature.ZeroHash {
			nonEmpty = true
		}
		parts = append(parts, h.Bytes())
	}

	if !nonEmpty {
		return signature.ZeroHash
	}
	return signature.Keccak256(parts...)
}
