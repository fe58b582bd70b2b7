package chem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFormula(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		want    map[string]int
	}{
		{
			name:    "glucose",
			formula: "C6H12O6",
			want:    map[string]int{"C": 6, "H": 12, "O": 6},
		},
		{
			name:    "implicit single atoms",
			formula: "CHNO",
			want:    map[string]int{"C": 1, "H": 1, "N": 1, "O": 1},
		},
		{
			name:    "two letter symbols",
			formula: "MgCl2",
			want:    map[string]int{"Mg": 1, "Cl": 2},
		},
		{
			name:    "dot separated salt",
			formula: "C6H5O7.3Na",
			want:    map[string]int{"C": 6, "H": 5, "O": 7, "Na": 3},
		},
		{
			name:    "leading multiplier",
			formula: "2H2O.Mg",
			want:    map[string]int{"H": 4, "O": 2, "Mg": 1},
		},
		{
			name:    "empty",
			formula: "",
			want:    map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFormula(tt.formula))
		})
	}
}

func TestAtomicNumber(t *testing.T) {
	assert.Equal(t, 1, AtomicNumber("H"))
	assert.Equal(t, 6, AtomicNumber("C"))
	assert.Equal(t, 26, AtomicNumber("Fe"))
	assert.Equal(t, 0, AtomicNumber("Xx"))
}

func TestSplitTable(t *testing.T) {
	header, row, err := splitTable("id\tFormula\tFormal charge\n1\tC6H12O6\t0\n")
	assert.NoError(t, err)
	assert.Equal(t, []string{"id", "Formula", "Formal charge"}, header)
	assert.Equal(t, []string{"1", "C6H12O6", "0"}, row)

	_, _, err = splitTable("header only\n")
	assert.Error(t, err)
}
