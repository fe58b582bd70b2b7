// Package chem wraps the external chemistry toolchain: structure notation
// conversion (Open Babel) and microspecies prediction (ChemAxon cxcalc).
// The core packages depend only on the interfaces defined here.
package chem

import (
	"context"
	"errors"
	"fmt"
)

// Format identifies a structure notation understood by the converter.
type Format string

const (
	FormatMol    Format = "mol"
	FormatInChI  Format = "inchi"
	FormatSMILES Format = "smi"
)

// ErrNoStructure is returned when a conversion produces no usable output,
// e.g. for an empty molfile record with no explicit structure.
var ErrNoStructure = errors.New("chem: no structure produced")

// PredictionError reports that the prediction tool could not process a
// structure. Ladder derivation recovers from it by assuming no dissociation,
// so it must stay distinguishable from transport or timeout failures.
type PredictionError struct {
	Structure string
	Err       error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("pka prediction failed for %q: %v", e.Structure, e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// Converter translates a structure between notations. An empty or
// unconvertible input yields ErrNoStructure.
type Converter interface {
	Convert(ctx context.Context, input string, from, to Format) (string, error)
}

// Predictor enumerates dissociation constants for a structure.
type Predictor interface {
	// DissociationConstants returns the raw candidate pKas of the structure
	// together with the SMILES of the major microspecies at pH 7. The pKas
	// are unfiltered and unsorted; callers apply their own range policy.
	DissociationConstants(ctx context.Context, inchi string) ([]float64, string, error)
}

// Extractor reports the elemental composition and net formal charge of a
// structure.
type Extractor interface {
	FormulaAndCharge(ctx context.Context, inchi string) (map[string]int, int, error)
}

// Tools bundles the collaborators needed to derive a microspecies ladder.
type Tools struct {
	Converter Converter
	Predictor Predictor
	Extractor Extractor
}
