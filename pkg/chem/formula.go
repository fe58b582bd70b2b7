package chem

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// A dot-separated formula part may carry a leading multiplier: "2H2O".
	partPattern = regexp.MustCompile(`^(\d+)?(\w+)`)
	atomPattern = regexp.MustCompile(`([A-Z][a-z]*)([0-9]*)`)
)

// ParseFormula expands a molecular formula into per-element atom counts.
// Dot-separated components ("C6H5O7.3Na") are summed, honoring leading
// multipliers on each component.
func ParseFormula(formula string) map[string]int {
	bag := map[string]int{}
	for _, part := range strings.Split(formula, ".") {
		m := partPattern.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		times := 1
		if m[1] != "" {
			times, _ = strconv.Atoi(m[1])
		}
		for _, am := range atomPattern.FindAllStringSubmatch(m[2], -1) {
			count := 1
			if am[2] != "" {
				count, _ = strconv.Atoi(am[2])
			}
			bag[am[1]] += count * times
		}
	}
	return bag
}
