package chain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// All on-chain amounts use USDC-style 6 decimal base units. Conversion
// happens only at this boundary; the rest of the app works in human units.
const BaseUnitDecimals = 6

// ToBaseUnits converts a human amount to integer base units, truncating
// toward zero below the base-unit resolution.
func ToBaseUnits(amount float64) *big.Int {
	if amount <= 0 {
		return big.NewInt(0)
	}
	return decimal.NewFromFloat(amount).Shift(BaseUnitDecimals).Floor().BigInt()
}

// FromBaseUnits converts integer base units back to a human amount.
func FromBaseUnits(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := decimal.NewFromBigInt(v, -BaseUnitDecimals).Float64()
	return f
}
