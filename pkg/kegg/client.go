// Package kegg resolves compound identities to structure notations via the
// KEGG REST API.
package kegg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eqcalc/thermox/pkg/chem"
	"github.com/eqcalc/thermox/pkg/retry"
	"github.com/eqcalc/thermox/pkg/utils"
)

// DefaultEndpoint is the public KEGG REST mirror.
const DefaultEndpoint = "https://rest.kegg.jp"

// ResolutionError reports a failed structure lookup: transport errors,
// timeouts and server failures. A compound that legitimately has no
// structure is not an error.
type ResolutionError struct {
	ID  string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve structure for %s: %v", e.ID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// CompoundID formats a numeric KEGG compound id as its zero-padded string
// form, e.g. 31 -> "C00031".
func CompoundID(cid int) string {
	return fmt.Sprintf("C%05d", cid)
}

// Client fetches molfiles from KEGG with a token-bucket rate limit,
// multi-endpoint failover and exponential-backoff retries, and converts
// them to InChI.
type Client struct {
	endpoints []string
	client    *http.Client
	logger    *zap.Logger
	conv      chem.Converter
	retryCfg  retry.Config

	// token-bucket
	tokens      int64
	maxTokens   int64
	refillEvery time.Duration
	lastRefill  atomic.Value // time.Time
}

// Opts is the set of options for a new Client.
type Opts struct {
	Endpoints  []string
	Timeout    time.Duration
	RPS        int
	Burst      int
	Retry      *retry.Config
	HTTPClient *http.Client
}

// New creates a resolver client around the given converter.
func New(logger *zap.Logger, conv chem.Converter, o Opts) *Client {
	if len(o.Endpoints) == 0 {
		o.Endpoints = []string{DefaultEndpoint}
	}
	if o.RPS <= 0 {
		o.RPS = 3
	}
	if o.Burst <= 0 {
		o.Burst = 3
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	retryCfg := retry.DefaultConfig()
	if o.Retry != nil {
		retryCfg = *o.Retry
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	} else if client.Timeout == 0 {
		client.Timeout = o.Timeout
	}

	c := &Client{
		endpoints:   utils.Dedup(o.Endpoints),
		client:      client,
		logger:      logger,
		conv:        conv,
		retryCfg:    retryCfg,
		maxTokens:   int64(o.Burst),
		refillEvery: time.Second / time.Duration(o.RPS),
	}
	c.tokens = c.maxTokens
	c.lastRefill.Store(time.Now())
	return c
}

// Resolve fetches the molfile for the identity and converts it to InChI.
// It returns (nil, nil) when KEGG has no structure for the compound or the
// molfile holds no convertible structure; that absence is a property of the
// compound, not a failure.
func (c *Client) Resolve(ctx context.Context, id string) (*string, error) {
	mol, found, err := c.MolFor(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	inchi, err := c.conv.Convert(ctx, mol, chem.FormatMol, chem.FormatInChI)
	if err != nil {
		if errors.Is(err, chem.ErrNoStructure) {
			c.logger.Info("molfile holds no convertible structure", zap.String("id", id))
			return nil, nil
		}
		return nil, &ResolutionError{ID: id, Err: err}
	}
	return &inchi, nil
}

// MolFor fetches the raw molfile for the identity. found is false when the
// compound exists without a structure entry (KEGG answers 404).
func (c *Client) MolFor(ctx context.Context, id string) (mol string, found bool, err error) {
	path := "/get/cpd:" + id + "/mol"
	err = retry.WithBackoff(ctx, c.retryCfg, c.logger, "kegg mol fetch", func() error {
		m, ok, ferr := c.fetchOnce(ctx, path)
		if ferr != nil {
			return ferr
		}
		mol, found = m, ok
		return nil
	})
	if err != nil {
		return "", false, &ResolutionError{ID: id, Err: err}
	}
	return mol, found, nil
}

// fetchOnce tries every endpoint once, in order.
func (c *Client) fetchOnce(ctx context.Context, path string) (string, bool, error) {
	var lastErr error
	for _, ep := range c.endpoints {
		if err := c.acquire(ctx); err != nil {
			return "", false, err
		}

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, ep+path, nil)
		if reqErr != nil {
			return "", false, reqErr
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusNotFound {
			_ = utils.DrainAndClose(resp.Body)
			return "", false, nil
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("http %d from %s", resp.StatusCode, ep)
			_ = utils.DrainAndClose(resp.Body)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		if cerr := resp.Body.Close(); readErr == nil {
			readErr = cerr
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}
		return string(body), true, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no endpoints configured")
	}
	return "", false, lastErr
}

// refill refills the token-bucket with new tokens if necessary.
func (c *Client) refill() {
	last := c.lastRefill.Load().(time.Time)
	now := time.Now()
	if now.Sub(last) >= c.refillEvery {
		if atomic.LoadInt64(&c.tokens) < c.maxTokens {
			atomic.AddInt64(&c.tokens, 1)
		}
		c.lastRefill.Store(now)
	}
}

// acquire takes a token from the bucket, blocking until one is available or
// the context is done.
func (c *Client) acquire(ctx context.Context) error {
	for {
		c.refill()
		if atomic.LoadInt64(&c.tokens) > 0 {
			atomic.AddInt64(&c.tokens, -1)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.refillEvery / 2):
		}
	}
}
