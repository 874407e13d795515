package domain

import (
	"errors"
	"testing"

	"github.com/fd1az/promptchain/internal/asset"
)

func TestNetwork_Validate(t *testing.T) {
	valid := func() *Network {
		return &Network{
			ChainID:      asset.ChainIDSapphire,
			Name:         "Oasis Sapphire",
			ExplorerURLs: []string{"https://explorer.oasis.io/mainnet/sapphire"},
			Currency:     asset.ROSE,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Network)
		wantErr error
	}{
		{"valid", func(*Network) {}, nil},
		{"missing_name", func(n *Network) { n.Name = "" }, ErrMissingName},
		{"no_explorers", func(n *Network) { n.ExplorerURLs = nil }, ErrMissingExplorer},
		{"empty_explorer", func(n *Network) { n.ExplorerURLs = []string{""} }, ErrMissingExplorer},
		{"missing_currency", func(n *Network) { n.Currency = nil }, ErrMissingCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := valid()
			tt.mutate(n)
			if err := n.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBuiltin_AllValid(t *testing.T) {
	seen := make(map[uint64]bool)
	for _, n := range Builtin() {
		if err := n.Validate(); err != nil {
			t.Errorf("builtin %d invalid: %v", n.ChainID, err)
		}
		if seen[n.ChainID] {
			t.Errorf("duplicate builtin chain %d", n.ChainID)
		}
		seen[n.ChainID] = true
		if n.Sapphire != IsSapphire(n.ChainID) {
			t.Errorf("sapphire flag mismatch for %d", n.ChainID)
		}
	}
}

func TestNetwork_CloneIsIndependent(t *testing.T) {
	n := Builtin()[0]
	c := n.Clone()
	c.ExplorerURLs[0] = "changed"

	if n.ExplorerBaseURL() == "changed" {
		t.Error("expected clone not to share explorer slice")
	}
	if c.NativeCurrency() != "ROSE" {
		t.Errorf("expected ROSE, got %q", c.NativeCurrency())
	}
	if c.ChainIDBig().Uint64() != asset.ChainIDSapphire {
		t.Errorf("unexpected chain id %s", c.ChainIDBig())
	}
}
