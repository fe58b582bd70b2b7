package cache

import (
	"context"
	"math"
	"sort"
)

// EMatrix derives the elemental matrix for the given identities: one row
// per compound, one column per element symbol plus the "e-" pseudo-element,
// columns sorted for a deterministic order. Hydrogen is dropped from the
// column set; balancing electrons makes a separate hydrogen balance
// redundant. A compound with no determinable composition yields a full row
// of NaN, keeping "unknown" distinguishable from zero counts.
func (c *Cache) EMatrix(ctx context.Context, ids []string) ([]string, [][]float64, error) {
	bags := make([]map[string]int, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		comp, err := c.Get(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		bag, err := comp.AtomBagWithElectrons(ctx, c.tools.Extractor)
		if err != nil {
			return nil, nil, err
		}
		for elem := range bag {
			seen[elem] = true
		}
		bags = append(bags, bag)
	}

	delete(seen, "H")
	elements := make([]string, 0, len(seen))
	for elem := range seen {
		elements = append(elements, elem)
	}
	sort.Strings(elements)

	matrix := make([][]float64, len(bags))
	for i, bag := range bags {
		row := make([]float64, len(elements))
		if bag == nil {
			for j := range row {
				row[j] = math.NaN()
			}
		} else {
			for j, elem := range elements {
				row[j] = float64(bag[elem])
			}
		}
		matrix[i] = row
	}
	return elements, matrix, nil
}
