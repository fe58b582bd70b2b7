// Package compound models an ionizable metabolite as a ladder of
// protonation microspecies and computes its transformed Gibbs formation
// energy at a given pH, ionic strength and temperature.
package compound

import (
	"fmt"
	"strings"
)

// Physiologically relevant pKa window. Predicted constants outside the open
// interval are treated as prediction noise and discarded.
const (
	MinPH = 0.0
	MaxPH = 14.0
)

// Compound is an immutable value object: an identity plus its enumerated
// microspecies ladder. Species are ordered from most protonated at index 0
// to least protonated at the last index; each dissociation step removes one
// proton and one unit of charge.
type Compound struct {
	// Database is the source namespace of the identity, e.g. "KEGG".
	Database string `json:"database"`
	// ID is the database-local identity, e.g. "C00031".
	ID string `json:"id"`
	// InChI is the canonical structure notation. Nil means no explicit
	// structure is known and forces the degenerate single-species model.
	InChI *string `json:"inchi"`
	// PKas holds the dissociation constants within (MinPH, MaxPH), sorted
	// descending. PKas[i] is the constant between species i and i+1.
	PKas []float64 `json:"pKas"`
	// MajorMS is the ladder index of the microspecies dominant at pH 7.
	MajorMS int `json:"majorMS"`
	// NHs and Zs hold per-species hydrogen counts and net charges,
	// index-aligned, each stepping by one between consecutive species.
	NHs []int `json:"nHs"`
	Zs  []int `json:"zs"`
}

// New builds a Compound and checks the ladder invariants.
func New(database, id string, inchi *string, pKas []float64, majorMS int, nHs, zs []int) (*Compound, error) {
	c := &Compound{
		Database: database,
		ID:       id,
		InChI:    inchi,
		PKas:     pKas,
		MajorMS:  majorMS,
		NHs:      nHs,
		Zs:       zs,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Degenerate returns the single-microspecies model used for identities with
// no explicit structure and for conventionally non-ionizing species.
func Degenerate(database, id string, inchi *string) *Compound {
	return &Compound{
		Database: database,
		ID:       id,
		InChI:    inchi,
		MajorMS:  0,
		NHs:      []int{0},
		Zs:       []int{0},
	}
}

// Validate checks the ladder invariants. A persisted record failing them is
// corrupt and must be dropped and re-derived, never trusted.
func (c *Compound) Validate() error {
	n := len(c.PKas) + 1
	if len(c.NHs) != n || len(c.Zs) != n {
		return fmt.Errorf("compound %s: ladder length mismatch: %d pKas, %d nHs, %d zs",
			c.ID, len(c.PKas), len(c.NHs), len(c.Zs))
	}
	if c.MajorMS < 0 || c.MajorMS > len(c.PKas) {
		return fmt.Errorf("compound %s: major microspecies index %d out of range [0,%d]",
			c.ID, c.MajorMS, len(c.PKas))
	}
	major := 0
	for i, pka := range c.PKas {
		if pka <= MinPH || pka >= MaxPH {
			return fmt.Errorf("compound %s: pKa %.3f outside (%g, %g)", c.ID, pka, MinPH, MaxPH)
		}
		if i > 0 && pka > c.PKas[i-1] {
			return fmt.Errorf("compound %s: pKas not sorted descending", c.ID)
		}
		if pka > 7 {
			major++
		}
	}
	if len(c.PKas) > 0 && major != c.MajorMS {
		return fmt.Errorf("compound %s: major microspecies index %d does not match %d pKas above 7",
			c.ID, c.MajorMS, major)
	}
	if len(c.PKas) == 0 && c.MajorMS != 0 {
		return fmt.Errorf("compound %s: major microspecies index %d with no pKas", c.ID, c.MajorMS)
	}
	for i := 1; i < n; i++ {
		if c.NHs[i] != c.NHs[i-1]+1 {
			return fmt.Errorf("compound %s: hydrogen counts are not a step-1 progression", c.ID)
		}
		if c.Zs[i] != c.Zs[i-1]+1 {
			return fmt.Errorf("compound %s: charges are not a step-1 progression", c.ID)
		}
	}
	return nil
}

func (c *Compound) String() string {
	inchi := "<none>"
	if c.InChI != nil {
		inchi = *c.InChI
	}
	pkas := make([]string, len(c.PKas))
	for i, p := range c.PKas {
		pkas[i] = fmt.Sprintf("%.2f", p)
	}
	return fmt.Sprintf("%s\nInChI: %s\npKas: %s\nmajor MS: nH = %d, charge = %d",
		c.ID, inchi, strings.Join(pkas, ", "), c.NHs[c.MajorMS], c.Zs[c.MajorMS])
}
