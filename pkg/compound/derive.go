package compound

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/eqcalc/thermox/pkg/chem"
)

// Exclusions is the set of identities whose ionization is suppressed by
// convention even though a structure exists: the proton itself (its ladder
// would double-count the pH term of the Legendre transform) and elemental
// forms with no dissociable protons.
type Exclusions map[string]bool

// DefaultExclusions covers the KEGG proton and elemental sulfur.
func DefaultExclusions() Exclusions {
	return Exclusions{
		"C00080": true, // H+
		"C00087": true, // S, elemental sulfur
	}
}

// Derive builds a Compound for the given identity. A nil structure or an
// excluded identity yields the degenerate single-species model; otherwise
// the microspecies ladder is enumerated via the prediction toolchain.
func Derive(ctx context.Context, logger *zap.Logger, tools chem.Tools, database, id string, inchi *string, excluded Exclusions) (*Compound, error) {
	if inchi == nil || excluded[id] {
		return Degenerate(database, id, inchi), nil
	}
	pKas, majorMS, nHs, zs, err := deriveLadder(ctx, logger, tools, *inchi)
	if err != nil {
		return nil, fmt.Errorf("derive %s: %w", id, err)
	}
	return New(database, id, inchi, pKas, majorMS, nHs, zs)
}

// deriveLadder enumerates the protonation microspecies of a structure.
//
// Prediction failure is recovered, not propagated: the compound is assumed
// not to dissociate in the physiological range and the input structure
// stands in for the major microspecies. Both the predicted (SMILES) and the
// fallback path feed the extractor an InChI, so the downstream charge and
// hydrogen extraction is identical in either case.
func deriveLadder(ctx context.Context, logger *zap.Logger, tools chem.Tools, inchi string) (pKas []float64, majorMS int, nHs, zs []int, err error) {
	majorInChI := inchi

	raw, majorSMILES, predErr := tools.Predictor.DissociationConstants(ctx, inchi)
	if predErr != nil {
		var pe *chem.PredictionError
		if !errors.As(predErr, &pe) {
			// Transport/timeout failures are not a property of the
			// structure; let the caller retry instead of caching a
			// degenerate ladder.
			return nil, 0, nil, nil, predErr
		}
		logger.Warn("pka prediction failed, assuming no dissociation",
			zap.String("inchi", inchi), zap.Error(predErr))
	} else {
		for _, pka := range raw {
			if pka > MinPH && pka < MaxPH {
				pKas = append(pKas, pka)
			}
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(pKas)))

		converted, convErr := tools.Converter.Convert(ctx, majorSMILES, chem.FormatSMILES, chem.FormatInChI)
		if convErr != nil {
			logger.Warn("major microspecies conversion failed, using input structure",
				zap.String("smiles", majorSMILES), zap.Error(convErr))
		} else {
			majorInChI = converted
		}
	}

	bag, majorCharge, exErr := tools.Extractor.FormulaAndCharge(ctx, majorInChI)
	if exErr != nil {
		return nil, 0, nil, nil, exErr
	}
	majorH := bag["H"]

	for _, pka := range pKas {
		if pka > 7 {
			majorMS++
		}
	}

	n := len(pKas) + 1
	nHs = make([]int, n)
	zs = make([]int, n)
	for i := 0; i < n; i++ {
		nHs[i] = (i - majorMS) + majorH
		zs[i] = (i - majorMS) + majorCharge
	}
	return pKas, majorMS, nHs, zs, nil
}

// AtomBagWithElectrons returns the element counts of the compound's
// structure plus a synthetic electron count under the pseudo-element "e-":
// the proton total of all atoms minus the net charge. It returns nil (no
// error) when the compound has no explicit structure, so callers can tell
// "unknown composition" from "no atoms".
func (c *Compound) AtomBagWithElectrons(ctx context.Context, extractor chem.Extractor) (map[string]int, error) {
	if c.InChI == nil {
		return nil, nil
	}
	bag, charge, err := extractor.FormulaAndCharge(ctx, *c.InChI)
	if err != nil {
		return nil, fmt.Errorf("atom bag for %s: %w", c.ID, err)
	}
	protons := 0
	for elem, count := range bag {
		protons += count * chem.AtomicNumber(elem)
	}
	bag["e-"] = protons - charge
	return bag, nil
}
