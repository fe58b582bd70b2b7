package compound

import "math"

// R is the gas constant in kJ/(mol·K). All energies in this package are
// kJ/mol.
const R = 8.31e-3

// DebyeHuckel returns the extended Debye-Hückel correction term (kJ/mol)
// for the given ionic strength (M) and temperature (K), with the
// temperature-dependent alpha coefficient of Alberty's convention.
func DebyeHuckel(ionicStrength, temperature float64) float64 {
	if ionicStrength <= 0 {
		return 0
	}
	t := temperature
	alpha := 9.20483e-3*t - 1.284668e-5*t*t + 4.95199e-8*t*t*t
	sqrtI := math.Sqrt(ionicStrength)
	return alpha * sqrtI / (1 + 1.6*sqrtI)
}

// logSumExp computes log(sum(exp(x))) with the maximum factored out, so
// species energies spanning many multiples of RT neither overflow nor
// vanish.
func logSumExp(xs []float64) float64 {
	max := math.Inf(-1)
	for _, x := range xs {
		if x > max {
			max = x
		}
	}
	if math.IsInf(max, -1) {
		return max
	}
	var sum float64
	for _, x := range xs {
		sum += math.Exp(x - max)
	}
	return max + math.Log(sum)
}
