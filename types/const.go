package types

import "math/big"

const (
	BundleID = "1"

	// LP token decimals used for pair total supply.
	PairDecimals uint8 = 18

	DefaultTokenDecimals uint8 = 18

	UnknownTokenString = "unknown"
)

// InitialLiquidityLock is the LP amount the pair burns to the zero address on
// its first mint.
var InitialLiquidityLock = big.NewInt(1000)
