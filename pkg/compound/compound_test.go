package compound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestValidate(t *testing.T) {
	valid := Compound{
		Database: "KEGG",
		ID:       "C00001",
		InChI:    strptr("InChI=1S/test"),
		PKas:     []float64{9.5, 4.2},
		MajorMS:  1,
		NHs:      []int{1, 2, 3},
		Zs:       []int{-2, -1, 0},
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Compound)
	}{
		{"length mismatch", func(c *Compound) { c.NHs = []int{1, 2} }},
		{"major index out of range", func(c *Compound) { c.MajorMS = 3 }},
		{"pKa out of range", func(c *Compound) { c.PKas = []float64{14.2, 4.2} }},
		{"pKas not descending", func(c *Compound) { c.PKas = []float64{4.2, 9.5} }},
		{"major index vs pKas above 7", func(c *Compound) { c.MajorMS = 2 }},
		{"hydrogens not step one", func(c *Compound) { c.NHs = []int{1, 3, 4} }},
		{"charges not step one", func(c *Compound) { c.Zs = []int{-2, -1, 1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateDegenerate(t *testing.T) {
	c := Degenerate("KEGG", "C00080", strptr("InChI=1S/p+1"))
	require.NoError(t, c.Validate())
	assert.Empty(t, c.PKas)
	assert.Equal(t, []int{0}, c.NHs)
	assert.Equal(t, []int{0}, c.Zs)

	noStructure := Degenerate("KEGG", "C99999", nil)
	require.NoError(t, noStructure.Validate())
	assert.Nil(t, noStructure.InChI)
}

func TestNewRejectsInvalidLadder(t *testing.T) {
	_, err := New("KEGG", "C00001", strptr("InChI=1S/test"),
		[]float64{9.5}, 1, []int{0}, []int{0})
	assert.Error(t, err)
}

func TestStringIncludesMajorMicrospecies(t *testing.T) {
	c := Compound{
		Database: "KEGG",
		ID:       "C00031",
		InChI:    strptr("InChI=1S/C6H12O6"),
		PKas:     []float64{11.3},
		MajorMS:  1,
		NHs:      []int{11, 12},
		Zs:       []int{-1, 0},
	}
	s := c.String()
	assert.Contains(t, s, "C00031")
	assert.Contains(t, s, "11.30")
	assert.Contains(t, s, "nH = 12")
}
