package chem

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Babel converts between structure notations by invoking the obabel binary.
type Babel struct {
	// Bin is the obabel executable; defaults to "obabel" on PATH.
	Bin    string
	Logger *zap.Logger
}

// NewBabel returns a converter backed by the obabel binary.
func NewBabel(logger *zap.Logger, bin string) *Babel {
	if bin == "" {
		bin = "obabel"
	}
	return &Babel{Bin: bin, Logger: logger}
}

// Convert runs obabel on stdin/stdout. InChI output uses fixed-H layers
// and drops isotope information so that round-tripped notations compare
// equal, matching the options used when the cache was first populated.
func (b *Babel) Convert(ctx context.Context, input string, from, to Format) (string, error) {
	args := []string{"-i" + string(from), "-o" + string(to), "---errorlevel", "0"}
	if to == FormatInChI {
		args = append(args, "-xFT", "-xX", "noiso", "-xw")
	}

	cmd := exec.CommandContext(ctx, b.Bin, args...)
	cmd.Stdin = strings.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("obabel %s->%s: %w: %s", from, to, err, strings.TrimSpace(stderr.String()))
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", ErrNoStructure
	}
	// obabel emits one record per line; a single input yields a single line.
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		out = strings.TrimSpace(out[:i])
	}
	// SMILES output carries a trailing title column.
	if f := strings.Fields(out); len(f) > 0 {
		out = f[0]
	}
	if out == "" {
		return "", ErrNoStructure
	}
	return out, nil
}
