package chem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// CxCalc wraps the ChemAxon cxcalc binary for pKa prediction, major
// microspecies detection and formula/charge extraction.
type CxCalc struct {
	// Bin is the cxcalc executable; defaults to "cxcalc" on PATH.
	Bin    string
	Logger *zap.Logger

	// Acidic and Basic bound the number of dissociation sites requested
	// from the predictor.
	Acidic int
	Basic  int
}

// NewCxCalc returns a predictor/extractor backed by the cxcalc binary.
func NewCxCalc(logger *zap.Logger, bin string) *CxCalc {
	if bin == "" {
		bin = "cxcalc"
	}
	return &CxCalc{Bin: bin, Logger: logger, Acidic: 20, Basic: 20}
}

// DissociationConstants predicts the raw pKa list of the structure and the
// SMILES of its major microspecies at pH 7.
func (c *CxCalc) DissociationConstants(ctx context.Context, inchi string) ([]float64, string, error) {
	out, err := c.run(ctx, inchi,
		"pka", "-a", strconv.Itoa(c.Acidic), "-b", strconv.Itoa(c.Basic),
		"majorms", "-M", "true", "--pH", "7.0")
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", &PredictionError{Structure: inchi, Err: err}
	}

	header, row, err := splitTable(out)
	if err != nil {
		return nil, "", &PredictionError{Structure: inchi, Err: err}
	}

	var pkas []float64
	var majorMS string
	for i, name := range header {
		if i >= len(row) {
			break
		}
		val := strings.TrimSpace(row[i])
		switch {
		case strings.HasPrefix(name, "apKa") || strings.HasPrefix(name, "bpKa"):
			if val == "" {
				continue
			}
			// cxcalc emits decimal commas under some locales.
			f, perr := strconv.ParseFloat(strings.Replace(val, ",", ".", 1), 64)
			if perr != nil {
				continue
			}
			pkas = append(pkas, f)
		case strings.Contains(strings.ToLower(name), "major"):
			majorMS = val
		}
	}

	if majorMS == "" {
		return nil, "", &PredictionError{Structure: inchi, Err: errors.New("no major microspecies in output")}
	}
	return pkas, majorMS, nil
}

// FormulaAndCharge extracts the elemental composition and net formal charge
// of the structure.
func (c *CxCalc) FormulaAndCharge(ctx context.Context, inchi string) (map[string]int, int, error) {
	out, err := c.run(ctx, inchi, "formula", "formalcharge")
	if err != nil {
		return nil, 0, fmt.Errorf("formula extraction for %q: %w", inchi, err)
	}

	header, row, err := splitTable(out)
	if err != nil {
		return nil, 0, fmt.Errorf("formula extraction for %q: %w", inchi, err)
	}

	var formula string
	charge := 0
	for i, name := range header {
		if i >= len(row) {
			break
		}
		val := strings.TrimSpace(row[i])
		switch strings.ToLower(name) {
		case "formula":
			formula = val
		case "formal charge", "formalcharge":
			if val != "" {
				charge, err = strconv.Atoi(val)
				if err != nil {
					return nil, 0, fmt.Errorf("formula extraction for %q: bad charge %q", inchi, val)
				}
			}
		}
	}
	if formula == "" {
		return nil, 0, fmt.Errorf("formula extraction for %q: no formula in output", inchi)
	}
	return ParseFormula(formula), charge, nil
}

func (c *CxCalc) run(ctx context.Context, molstring string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.Bin, args...)
	cmd.Stdin = strings.NewReader(molstring)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("cxcalc %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	if c.Logger != nil {
		c.Logger.Debug("cxcalc run", zap.String("calc", args[0]), zap.Int("output_bytes", stdout.Len()))
	}
	return stdout.String(), nil
}

// splitTable splits cxcalc's tab-separated output into its header and first
// data row. Every cxcalc invocation here feeds a single molecule, so a
// single row is expected.
func splitTable(out string) (header, row []string, err error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return nil, nil, errors.New("truncated cxcalc output")
	}
	return strings.Split(lines[0], "\t"), strings.Split(lines[1], "\t"), nil
}
