package asset

// Chain IDs
const (
	ChainIDEthereum         = 1
	ChainIDSepolia          = 11155111
	ChainIDSapphire         = 0x5afe
	ChainIDSapphireTestnet  = 0x5aff
	ChainIDSapphireLocalnet = 0x5afd
)

// Native coins of the built-in networks.
var (
	ETH        = NewNative(ChainIDEthereum, "ETH", "Ether", 18)
	SepoliaETH = NewNative(ChainIDSepolia, "ETH", "Sepolia Ether", 18)
	ROSE       = NewNative(ChainIDSapphire, "ROSE", "Rose", 18)
	TestROSE   = NewNative(ChainIDSapphireTestnet, "TEST", "Test Rose", 18)
	LocalROSE  = NewNative(ChainIDSapphireLocalnet, "TEST", "Local Rose", 18)
)

// DefaultRegistry returns a registry holding the built-in native coins.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{ETH, SepoliaETH, ROSE, TestROSE, LocalROSE} {
		r.Register(a)
	}
	return r
}
