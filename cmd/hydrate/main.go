package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/ammar0144/hydra4go/config"
	"github.com/ammar0144/hydra4go/pkg/db"
	"github.com/ammar0144/hydra4go/pkg/domain"
	"github.com/ammar0144/hydra4go/pkg/hydrate"
	"github.com/ammar0144/hydra4go/pkg/redis"
	"github.com/ammar0144/hydra4go/pkg/repository"
)

type options struct {
	entity    string
	id        int64
	relations []string
	language  string
	channel   int64
	currency  string
	zone      int64
	prices    bool
	migrate   bool
	metrics   bool
}

func main() {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	config.RegisterFlags(fs)
	opts := parseFlags(fs)

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Printf("failed to load config file: %v\n", err)
		os.Exit(2)
	}

	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, log, cfg, opts); err != nil {
		log.Error("hydrate failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func parseFlags(fs *pflag.FlagSet) options {
	var o options
	fs.StringVarP(&o.entity, "entity", "e", "", "entity type, e.g. Product")
	fs.Int64Var(&o.id, "id", 0, "primary key of the root entity")
	fs.StringSliceVarP(&o.relations, "relations", "r", nil, "relation paths to hydrate, e.g. variants.options")
	fs.StringVarP(&o.language, "lang", "l", "", "request language code")
	fs.Int64Var(&o.channel, "channel", 0, "channel id for variant prices")
	fs.StringVar(&o.currency, "currency", "", "currency code for variant prices")
	fs.Int64Var(&o.zone, "zone", 0, "tax zone id; 0 skips priceWithTax")
	fs.BoolVar(&o.prices, "prices", false, "apply product variant prices")
	fs.BoolVar(&o.migrate, "migrate", false, "create or update tables before loading")
	fs.BoolVar(&o.metrics, "metrics", false, "log collected metrics on exit")
	_ = fs.Parse(os.Args[1:])
	return o
}

func (o options) validate() error {
	var errs []error
	if o.entity == "" {
		errs = append(errs, errors.New("--entity flag: required"))
	}
	if o.id == 0 {
		errs = append(errs, errors.New("--id flag: required"))
	}
	return errors.Join(errs...)
}

func (o options) requestContext(cfg config.Config) hydrate.RequestContext {
	rc := hydrate.RequestContext{
		LanguageCode:        o.language,
		DefaultLanguageCode: cfg.DefaultLanguage,
		CurrencyCode:        o.currency,
	}
	if o.channel != 0 {
		rc.ChannelID = o.channel
	}
	if o.zone != 0 {
		rc.TaxZoneID = o.zone
	}
	return rc
}

func run(ctx context.Context, log *slog.Logger, cfg config.Config, opts options) error {
	const op = "main.run"
	log = log.With("op", op)

	if err := opts.validate(); err != nil {
		return err
	}

	dbManager, err := db.NewManager(&cfg.DB, log)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer dbManager.Close()

	if opts.migrate {
		models := domain.Models()
		args := make([]interface{}, len(models))
		for i, m := range models {
			args[i] = m
		}
		if err := dbManager.Migrate(ctx, args...); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		log.Info("tables migrated", "count", len(args))
	}

	registry, err := domain.NewRegistry()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	promRegistry := prometheus.NewRegistry()
	metrics, err := hydrate.NewMetrics(promRegistry)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	gormLoader := repository.NewGormLoader(dbManager, registry)
	var loader hydrate.Loader = gormLoader
	if cfg.Redis.Enabled {
		redisManager, err := redis.NewManager(&cfg.Redis)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		defer redisManager.Close()

		if err := redisManager.Ping(ctx); redis.IsConnectionFailed(err) {
			log.Warn("redis unavailable, loads will bypass the cache", "err", err)
		} else if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := promRegistry.Register(redisManager.Collector()); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		cached := repository.NewCachedLoader(loader, redisManager, registry,
			repository.WithNamespace(gormLoader.Database()),
			repository.WithCacheLogger(log),
		)
		if opts.migrate {
			for _, et := range registry.Types() {
				if err := cached.InvalidateType(ctx, et.Name); err != nil {
					log.Warn("stale cache entries may remain", "entity", et.Name, "err", err)
				}
			}
		}
		loader = cached
	}

	taxRates, err := repository.NewTaxRateStore(dbManager, cfg.TaxCache.Size, cfg.TaxCache.TTL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hydrator, err := hydrate.New(registry, loader,
		hydrate.WithConfig(cfg.Hydrate()),
		hydrate.WithLogger(log),
		hydrate.WithTaxRateResolver(taxRates),
		hydrate.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ctx = hydrate.WithRequestContext(ctx, opts.requestContext(cfg))

	root, err := loader.LoadWithRelations(ctx, opts.entity, opts.id, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = hydrator.Hydrate(ctx, root, hydrate.Request{
		Relations:                 opts.relations,
		ApplyProductVariantPrices: opts.prices,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if opts.metrics {
		logMetrics(log, promRegistry)
	}
	return nil
}

func logMetrics(log *slog.Logger, g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		log.Warn("gather metrics", "err", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			attrs := []any{"name", mf.GetName()}
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				attrs = append(attrs, "value", m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				attrs = append(attrs, "value", m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				attrs = append(attrs, "count", m.GetHistogram().GetSampleCount(), "sum", m.GetHistogram().GetSampleSum())
			}
			log.Info("metric", attrs...)
		}
	}
}
