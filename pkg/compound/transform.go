package compound

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrNoNeutralSpecies is returned by TransformNeutral for ladders whose
// charge progression never crosses zero.
var ErrNoNeutralSpecies = errors.New("no microspecies with zero charge")

// Transform returns the Gibbs energy difference (kJ/mol) between the
// microspecies dominant at pH 7 and the transformed formation energy at the
// given pH, ionic strength (M) and temperature (K).
func (c *Compound) Transform(pH, ionicStrength, temperature float64) float64 {
	return c.transform(pH, ionicStrength, temperature) + c.baseOffset(c.MajorMS, temperature)
}

// TransformNeutral is Transform referenced to the microspecies with net
// charge zero instead of the pH-7 dominant one.
func (c *Compound) TransformNeutral(pH, ionicStrength, temperature float64) (float64, error) {
	idx := slices.Index(c.Zs, 0)
	if idx < 0 {
		return 0, fmt.Errorf("compound %s: %w", c.ID, ErrNoNeutralSpecies)
	}
	return c.transform(pH, ionicStrength, temperature) + c.baseOffset(idx, temperature), nil
}

// baseOffset is the energy difference between the least-protonated species
// and species k, accumulated over the first k dissociation constants.
func (c *Compound) baseOffset(k int, temperature float64) float64 {
	var sum float64
	for _, pka := range c.PKas[:k] {
		sum += pka
	}
	return sum * R * temperature * math.Ln10
}

// transform reduces the per-microspecies energies into a single ensemble
// energy, referenced to the species with the fewest hydrogens. The
// dilute-solution equilibrium sum is evaluated in log space (log-sum-exp)
// so ladders spanning the whole pKa range stay finite.
func (c *Compound) transform(pH, ionicStrength, temperature float64) float64 {
	if c.InChI == nil {
		return 0
	}

	rt := R * temperature
	n := len(c.PKas) + 1

	// Cumulative energy of species i relative to species 0.
	energies := make([]float64, n)
	var cum float64
	for i := 1; i < n; i++ {
		cum += c.PKas[i-1]
		energies[i] = -cum * rt * math.Ln10
	}

	dh := DebyeHuckel(ionicStrength, temperature)

	// dG0' = dG0 + nH*(RT ln10 pH + DH) - z^2 * DH, scaled by -RT for the
	// log-partition sum.
	scaled := make([]float64, n)
	for i := 0; i < n; i++ {
		prime := energies[i] +
			float64(c.NHs[i])*(rt*math.Ln10*pH+dh) -
			float64(c.Zs[i]*c.Zs[i])*dh
		scaled[i] = prime / -rt
	}

	return -rt * logSumExp(scaled)
}
