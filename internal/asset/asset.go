package asset

// Asset is the metadata of a currency. Identity is the AssetID, never the
// symbol.
type Asset struct {
	id       AssetID
	symbol   string
	name     string
	decimals uint8
}

// NewAsset creates an Asset. It panics on an empty symbol or more than 30
// decimals.
func NewAsset(id AssetID, symbol, name string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}
	return &Asset{id: id, symbol: symbol, name: name, decimals: decimals}
}

// NewNative creates the native coin of chainID.
func NewNative(chainID uint64, symbol, name string, decimals uint8) *Asset {
	return NewAsset(NewNativeAssetID(chainID), symbol, name, decimals)
}

func (a *Asset) ID() AssetID {
	return a.id
}

func (a *Asset) Symbol() string {
	return a.symbol
}

// Name falls back to the symbol when unset.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

func (a *Asset) Decimals() uint8 {
	return a.decimals
}

func (a *Asset) ChainID() uint64 {
	return a.id.ChainID()
}

func (a *Asset) IsNative() bool {
	return a.id.IsNative()
}

func (a *Asset) String() string {
	return a.symbol
}

// Equals compares by id.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id.Equals(other.id)
}
