package polyfit

// Pow returns base**exp by repeated squaring. Unlike math.Pow it multiplies
// exactly, so integer powers of integer-valued inputs stay exact while they
// fit in a float64 mantissa.
func Pow(base float64, exp int) float64 {
	if exp < 0 {
		return 1 / Pow(base, -exp)
	}
	result := 1.0
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}
