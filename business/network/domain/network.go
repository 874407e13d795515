// Package domain contains the network metadata types.
package domain

import (
	"errors"
	"math/big"

	"github.com/fd1az/promptchain/internal/asset"
)

var (
	ErrMissingName     = errors.New("network: missing chain name")
	ErrMissingExplorer = errors.New("network: at least one explorer url is required")
	ErrMissingCurrency = errors.New("network: missing native currency")
)

// Network is the display metadata of a chain.
type Network struct {
	ChainID      uint64
	Name         string
	ExplorerURLs []string
	RPCURLs      []string
	Currency     *asset.Asset
	// Sapphire chains need confidentiality-wrapped transactions.
	Sapphire bool
}

// Validate checks the fields the connection state relies on.
func (n *Network) Validate() error {
	switch {
	case n.Name == "":
		return ErrMissingName
	case len(n.ExplorerURLs) == 0 || n.ExplorerURLs[0] == "":
		return ErrMissingExplorer
	case n.Currency == nil:
		return ErrMissingCurrency
	}
	return nil
}

// ExplorerBaseURL is the first explorer url.
func (n *Network) ExplorerBaseURL() string {
	if len(n.ExplorerURLs) == 0 {
		return ""
	}
	return n.ExplorerURLs[0]
}

// NativeCurrency returns the native coin symbol.
func (n *Network) NativeCurrency() string {
	if n.Currency == nil {
		return ""
	}
	return n.Currency.Symbol()
}

// ChainIDBig returns the chain id as *big.Int.
func (n *Network) ChainIDBig() *big.Int {
	return new(big.Int).SetUint64(n.ChainID)
}

// Clone returns a deep copy; the currency asset is immutable and shared.
func (n *Network) Clone() *Network {
	if n == nil {
		return nil
	}
	c := *n
	c.ExplorerURLs = append([]string(nil), n.ExplorerURLs...)
	c.RPCURLs = append([]string(nil), n.RPCURLs...)
	return &c
}

// IsSapphire reports whether chainID is one of the Sapphire paratimes.
func IsSapphire(chainID uint64) bool {
	switch chainID {
	case asset.ChainIDSapphire, asset.ChainIDSapphireTestnet, asset.ChainIDSapphireLocalnet:
		return true
	}
	return false
}
