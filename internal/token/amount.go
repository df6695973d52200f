package token

import "math/big"

// NormalizeAmount converts a raw token amount into its decimal-scaled
// value, amount / 10^decimals. big.Rat keeps full precision for 256-bit
// amounts and high decimal counts.
func NormalizeAmount(raw *big.Int, decimals uint8) *big.Rat {
	if raw == nil {
		return new(big.Rat)
	}
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).SetFrac(new(big.Int).Set(raw), denom)
}

// FormatAmount renders the scaled amount as a decimal string with exactly
// `decimals` fractional digits.
func FormatAmount(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	if decimals == 0 {
		return raw.String()
	}
	return NormalizeAmount(raw, decimals).FloatString(int(decimals))
}
