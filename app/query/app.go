package query

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/eqcalc/thermox/app/query/types"
	"github.com/eqcalc/thermox/pkg/cache"
	"github.com/eqcalc/thermox/pkg/chem"
	"github.com/eqcalc/thermox/pkg/kegg"
	"github.com/eqcalc/thermox/pkg/logging"
	"github.com/eqcalc/thermox/pkg/utils"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	babel := chem.NewBabel(logger, utils.Env("OBABEL_BIN", ""))
	cxcalc := chem.NewCxCalc(logger, utils.Env("CXCALC_BIN", ""))
	tools := chem.Tools{Converter: babel, Predictor: cxcalc, Extractor: cxcalc}

	resolver := kegg.New(logger, babel, kegg.Opts{
		Endpoints: strings.Split(utils.Env("KEGG_ENDPOINTS", kegg.DefaultEndpoint), ","),
		Timeout:   utils.EnvDuration("KEGG_TIMEOUT", 30*time.Second),
	})

	ccache, err := cache.New(ctx, logger, resolver, tools, cache.Options{
		CachePath:       utils.Env("CACHE_PATH", "cache/compounds.json"),
		AdditionsPath:   utils.Env("ADDITIONS_PATH", "data/kegg_additions.tsv"),
		ExternalTimeout: utils.EnvDuration("EXTERNAL_TIMEOUT", 2*time.Minute),
		WarmParallelism: utils.EnvInt("WARM_PARALLELISM", 4),
	})
	if err != nil {
		logger.Fatal("Unable to initialize compound cache", zap.Error(err))
	}

	app := &types.App{
		Cache:  ccache,
		Logger: logger,
	}

	if err := setupScheduler(app); err != nil {
		logger.Fatal("Unable to schedule cache persistence", zap.Error(err))
	}

	return app
}

// setupScheduler flushes dirty cache state on a fixed schedule so a crash
// loses at most one interval of derivations.
func setupScheduler(app *types.App) error {
	app.Cron = cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	_, err := app.Cron.AddFunc(utils.Env("PERSIST_SCHEDULE", "@every 5m"), func() {
		if err := app.Cache.Persist(); err != nil {
			app.Logger.Error("Scheduled cache persist failed", zap.Error(err))
		}
	})
	return err
}
