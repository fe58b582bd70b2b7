package cache

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/eqcalc/thermox/pkg/kegg"
)

// reconcileAdditions applies the human-curated corrections list: for every
// (id, inchi) record whose identity is missing from the cache or cached
// with a different structure, the ladder is re-derived from the supplied
// structure and the entry overwritten. Runs once at construction, before
// any lookup.
func (c *Cache) reconcileAdditions(ctx context.Context) error {
	f, err := os.Open(c.opts.AdditionsPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Info("No additions list present", zap.String("path", c.opts.AdditionsPath))
			return nil
		}
		return fmt.Errorf("open additions %s: %w", c.opts.AdditionsPath, err)
	}
	defer f.Close()

	rows, err := readAdditions(c.opts.AdditionsPath, f)
	if err != nil {
		return err
	}

	for _, row := range rows {
		cur, ok := c.compounds.Load(row.id)
		if ok && cur.InChI != nil && *cur.InChI == row.inchi {
			continue
		}
		c.logger.Info("Deriving microspecies for additions entry", zap.String("id", row.id))
		inchi := row.inchi
		comp, derr := c.derive(ctx, row.id, &inchi, true)
		if derr != nil {
			return fmt.Errorf("additions entry %s: %w", row.id, derr)
		}
		c.compounds.Store(row.id, comp)
		c.markDirty()
	}
	return nil
}

type additionsRow struct {
	id    string
	inchi string
}

// readAdditions parses the corrections TSV. Expected columns: name, cid,
// inchi; cid is the bare numeric KEGG id. path is only used for error
// reporting.
func readAdditions(path string, src io.Reader) ([]additionsRow, error) {
	r := csv.NewReader(src)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse additions %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cidCol, inchiCol := -1, -1
	for i, col := range records[0] {
		switch col {
		case "cid":
			cidCol = i
		case "inchi":
			inchiCol = i
		}
	}
	if cidCol < 0 || inchiCol < 0 {
		return nil, fmt.Errorf("parse additions %s: missing cid/inchi columns", path)
	}

	var rows []additionsRow
	for _, rec := range records[1:] {
		if cidCol >= len(rec) || inchiCol >= len(rec) {
			continue
		}
		cid, err := strconv.Atoi(rec[cidCol])
		if err != nil {
			return nil, fmt.Errorf("parse additions %s: bad cid %q", path, rec[cidCol])
		}
		rows = append(rows, additionsRow{id: kegg.CompoundID(cid), inchi: rec[inchiCol]})
	}
	return rows, nil
}
