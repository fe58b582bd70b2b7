// ccache warms the compound cache for a list of KEGG compound ids given as
// arguments (either "C00031" or bare numeric form), prints the derived
// ladders, and persists the cache.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/eqcalc/thermox/app/query"
	"github.com/eqcalc/thermox/pkg/kegg"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ccache <compound id> [<compound id> ...]")
		os.Exit(2)
	}

	ids := make([]string, 0, len(os.Args)-1)
	for _, arg := range os.Args[1:] {
		if cid, err := strconv.Atoi(arg); err == nil {
			ids = append(ids, kegg.CompoundID(cid))
			continue
		}
		ids = append(ids, arg)
	}

	app := query.Initialize(ctx)

	app.Cache.Warm(ctx, ids)

	for _, id := range ids {
		comp, err := app.Cache.Get(ctx, id)
		if err != nil {
			app.Logger.Warn("Compound unavailable", zap.String("id", id), zap.Error(err))
			continue
		}
		fmt.Printf("%s\n\n", comp)
	}

	if err := app.Cache.Persist(); err != nil {
		app.Logger.Fatal("Unable to persist compound cache", zap.Error(err))
	}
}
