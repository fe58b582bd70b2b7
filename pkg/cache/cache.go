// Package cache maintains the persistent, identity-keyed store of Compound
// objects. A compound's microspecies ladder is derived at most once per
// identity; later lookups are pure reads, in this process and across runs
// via the persisted JSON state.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/eqcalc/thermox/pkg/chem"
	"github.com/eqcalc/thermox/pkg/compound"
)

// Resolver maps a compound identity to its structure notation. A nil result
// with a nil error means the compound legitimately has no structure.
type Resolver interface {
	Resolve(ctx context.Context, id string) (*string, error)
}

// Options configures a Cache.
type Options struct {
	// CachePath is the backing JSON file.
	CachePath string
	// AdditionsPath points at the manual corrections TSV; empty disables
	// reconciliation.
	AdditionsPath string
	// Database is the namespace recorded on derived compounds.
	Database string
	// Exclusions suppresses ladder derivation for conventional identities.
	Exclusions compound.Exclusions
	// ExternalTimeout bounds each resolver/predictor invocation.
	ExternalTimeout time.Duration
	// WarmParallelism bounds concurrent derivations in Warm.
	WarmParallelism int
}

func (o *Options) applyDefaults() {
	if o.Database == "" {
		o.Database = "KEGG"
	}
	if o.Exclusions == nil {
		o.Exclusions = compound.DefaultExclusions()
	}
	if o.ExternalTimeout <= 0 {
		o.ExternalTimeout = 2 * time.Minute
	}
	if o.WarmParallelism <= 0 {
		o.WarmParallelism = 4
	}
}

// Cache is the process-wide compound store. Construct it once at startup
// and pass it by reference; it has no ambient singleton.
type Cache struct {
	logger   *zap.Logger
	resolver Resolver
	tools    chem.Tools
	opts     Options

	compounds *xsync.Map[string, *compound.Compound]
	flight    singleflight.Group

	// mu guards dirty and serializes persistence against mutation.
	mu    sync.Mutex
	dirty bool
}

// New loads the persisted state, applies the additions list and persists
// any resulting changes, so corrections always win over stale entries
// before the first lookup.
func New(ctx context.Context, logger *zap.Logger, resolver Resolver, tools chem.Tools, opts Options) (*Cache, error) {
	opts.applyDefaults()
	c := &Cache{
		logger:    logger,
		resolver:  resolver,
		tools:     tools,
		opts:      opts,
		compounds: xsync.NewMap[string, *compound.Compound](),
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	if opts.AdditionsPath != "" {
		if err := c.reconcileAdditions(ctx); err != nil {
			return nil, err
		}
	}
	if err := c.Persist(); err != nil {
		return nil, err
	}
	return c, nil
}

// load reads the backing file. Records failing the ladder invariants are
// corrupt: they are dropped (and the cache marked dirty so the file gets
// repaired), to be re-derived on next lookup.
func (c *Cache) load() error {
	data, err := os.ReadFile(c.opts.CachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache %s: %w", c.opts.CachePath, err)
	}

	var records []*compound.Compound
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parse cache %s: %w", c.opts.CachePath, err)
	}

	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			c.logger.Warn("Dropping corrupt cache record", zap.String("id", rec.ID), zap.Error(err))
			c.markDirty()
			continue
		}
		c.compounds.Store(rec.ID, rec)
	}
	c.logger.Info("Compound cache loaded",
		zap.String("path", c.opts.CachePath),
		zap.Int("compounds", c.compounds.Size()))
	return nil
}

// Get returns the compound for the identity, deriving and caching it on
// first sight. Concurrent calls for the same unresolved identity share a
// single derivation; a failed derivation caches nothing.
func (c *Cache) Get(ctx context.Context, id string) (*compound.Compound, error) {
	if comp, ok := c.compounds.Load(id); ok {
		return comp, nil
	}

	v, err, _ := c.flight.Do(id, func() (any, error) {
		// A concurrent flight may have stored it between our Load and Do.
		if comp, ok := c.compounds.Load(id); ok {
			return comp, nil
		}
		c.logger.Info("Resolving structure and deriving microspecies", zap.String("id", id))
		comp, derr := c.derive(ctx, id, nil, false)
		if derr != nil {
			return nil, derr
		}
		c.compounds.Store(id, comp)
		c.markDirty()
		return comp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*compound.Compound), nil
}

// derive runs the expensive external path under the configured timeout.
// The result is shared by every singleflight waiter, so the derivation is
// detached from the triggering caller's cancellation: one disconnecting
// requester must not fail the flight for the others. When haveInChI is
// true the resolver is skipped and inchi is used as supplied
// (reconciliation path); inchi may still be nil for identities with no
// structure.
func (c *Cache) derive(ctx context.Context, id string, inchi *string, haveInChI bool) (*compound.Compound, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.ExternalTimeout)
	defer cancel()

	if !haveInChI {
		resolved, err := c.resolver.Resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		inchi = resolved
	}
	return compound.Derive(ctx, c.logger, c.tools, c.opts.Database, id, inchi, c.opts.Exclusions)
}

// Persist writes all cached compounds, sorted by id, to the backing file.
// It is a no-op when nothing changed, so callers may invoke it freely after
// a batch of lookups. The write is atomic (temp file + rename).
func (c *Cache) Persist() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	// Serialize copies: cached compounds are shared read-only references
	// and concurrent readers may be encoding them right now. The copies
	// keep the persisted form diffable with explicit empty lists, stable
	// two-space indentation and deterministic field order.
	records := make([]compound.Compound, 0, c.compounds.Size())
	c.compounds.Range(func(_ string, comp *compound.Compound) bool {
		rec := *comp
		if rec.PKas == nil {
			rec.PKas = []float64{}
		}
		records = append(records, rec)
		return true
	})
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(c.opts.CachePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.opts.CachePath), ".compounds-*.json")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	tmpName := tmp.Name()
	_, werr := tmp.Write(data)
	if serr := tmp.Sync(); werr == nil {
		werr = serr
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write cache: %w", werr)
	}
	if err := os.Rename(tmpName, c.opts.CachePath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace cache: %w", err)
	}

	c.logger.Info("Compound cache persisted",
		zap.String("path", c.opts.CachePath),
		zap.Int("compounds", len(records)))
	c.dirty = false
	return nil
}

// Dirty reports whether the cache holds unpersisted changes.
func (c *Cache) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Size returns the number of cached compounds.
func (c *Cache) Size() int {
	return c.compounds.Size()
}

func (c *Cache) markDirty() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}
