// Package nameservice reads a folder of ECDSA key files and builds a name
// lookup for the addresses they correspond to, so logs and the web API can
// show a human name instead of a raw address.
package nameservice

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rdchain/node/foundation/blockchain/signature"
)

// NameService maintains a map of addresses for name lookup.
type NameService struct {
	accounts map[signature.Address]string
}

// New constructs a NameService from every *.ecdsa key file under root,
// named after the file's base name.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[signature.Address]string),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return err
		}

		addr := signature.PublicKeyToAddress(privateKey.PublicKey)
		ns.accounts[addr] = strings.TrimSuffix(path.Base(fileName), ".ecdsa")

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for addr, or its hex form if no name is known.
func (ns *NameService) Lookup(addr signature.Address) string {
	name, exists := ns.accounts[addr]
	if !exists {
		return addr.Hex()
	}
	return name
}

// Copy returns a copy of the map of names and addresses.
func (ns *NameService) Copy() map[signature.Address]string {
	cpy := make(map[signature.Address]string, len(ns.accounts))
	for addr, name := range ns.accounts {
		cpy[addr] = name
	}
	return cpy
}
