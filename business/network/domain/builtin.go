package domain

import "github.com/fd1az/promptchain/internal/asset"

// Builtin returns the networks known without a chainlist.
func Builtin() []*Network {
	return []*Network{
		{
			ChainID:      asset.ChainIDSapphire,
			Name:         "Oasis Sapphire",
			ExplorerURLs: []string{"https://explorer.oasis.io/mainnet/sapphire"},
			RPCURLs:      []string{"https://sapphire.oasis.io"},
			Currency:     asset.ROSE,
			Sapphire:     true,
		},
		{
			ChainID:      asset.ChainIDSapphireTestnet,
			Name:         "Oasis Sapphire Testnet",
			ExplorerURLs: []string{"https://explorer.oasis.io/testnet/sapphire"},
			RPCURLs:      []string{"https://testnet.sapphire.oasis.io"},
			Currency:     asset.TestROSE,
			Sapphire:     true,
		},
		{
			ChainID:      asset.ChainIDSapphireLocalnet,
			Name:         "Oasis Sapphire Localnet",
			ExplorerURLs: []string{"http://localhost:8548"},
			RPCURLs:      []string{"http://localhost:8545"},
			Currency:     asset.LocalROSE,
			Sapphire:     true,
		},
		{
			ChainID:      asset.ChainIDEthereum,
			Name:         "Ethereum",
			ExplorerURLs: []string{"https://etherscan.io"},
			Currency:     asset.ETH,
		},
		{
			ChainID:      asset.ChainIDSepolia,
			Name:         "Sepolia",
			ExplorerURLs: []string{"https://sepolia.etherscan.io"},
			Currency:     asset.SepoliaETH,
		},
	}
}
