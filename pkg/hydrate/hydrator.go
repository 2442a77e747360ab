// Package hydrate completes partially loaded entity graphs on demand.
//
// A Hydrator takes an entity and a list of dotted relation paths, works out
// which of them are missing, fetches exactly those through a Loader in one
// call, and merges the result into the caller's instances. Translatable
// fields are flattened for the request language and, when asked to, product
// variant prices are recomputed for the request's channel and tax zone.
//
// The caller's graph is only mutated after the fetch succeeded, so a failed
// fetch leaves the entity as it was. Prices are applied last and all at once:
// when the context is cancelled while tax rates are resolved, the fetched
// relations and translations are already merged but no price has changed.
package hydrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ammar0144/hydra4go/pkg/relpath"
	"github.com/ammar0144/hydra4go/pkg/schema"
)

// Loader fetches an entity with the given relation paths populated.
// Implementations must mark each populated relation as loaded (see
// schema.Registry.MarkLoaded) and return an error wrapping ErrNotFound when
// the entity does not exist.
type Loader interface {
	LoadWithRelations(ctx context.Context, entityType string, id interface{}, relations []string) (schema.Entity, error)
}

// TaxRateResolver returns the tax rate as a fraction (0.2 for 20%) for a
// zone and tax category, or an error wrapping ErrTaxRateNotFound
type TaxRateResolver interface {
	TaxRate(ctx context.Context, zoneID, taxCategoryID interface{}) (decimal.Decimal, error)
}

// Priceable entities carry prices that depend on the request's channel and tax zone
type Priceable interface {
	schema.Entity
	PriceTaxCategory() interface{}
	PriceFor(channelID interface{}, currencyCode string) (int64, string)
	SetPrices(price int64, currencyCode string, priceWithTax *int64)
	PricingRelations() []string
}

// PriceDependent roots need variant prices applied whenever one of the
// returned paths is hydrated, even if the request did not ask for it
type PriceDependent interface {
	PriceDependentRelations() []string
}

var (
	priceableType = reflect.TypeOf((*Priceable)(nil)).Elem()
)

// Request describes one hydration
type Request struct {
	// Relations are dot-separated relation paths, e.g. "lines.productVariant"
	Relations []string

	// ApplyProductVariantPrices recomputes prices of every Priceable along the paths
	ApplyProductVariantPrices bool
}

// Config holds the hydrator settings
type Config struct {
	// DefaultLanguageCode is used when neither the request nor the channel names a language
	DefaultLanguageCode string `json:"default_language" yaml:"default_language" mapstructure:"default_language"`

	// Concurrency bounds HydrateMany; zero or less means unbounded
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// DefaultConfig returns default hydrator settings
func DefaultConfig() Config {
	return Config{
		DefaultLanguageCode: "en",
		Concurrency:         8,
	}
}

// Hydrator runs the hydration pipeline. Safe for concurrent use on distinct roots.
type Hydrator struct {
	registry *schema.Registry
	loader   Loader
	taxRates TaxRateResolver
	config   Config
	logger   *slog.Logger
	metrics  *Metrics
}

// Option configures a Hydrator
type Option func(*Hydrator)

// WithConfig sets the hydrator settings
func WithConfig(cfg Config) Option {
	return func(h *Hydrator) { h.config = cfg }
}

// WithLogger sets the logger; defaults to slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hydrator) { h.logger = logger }
}

// WithTaxRateResolver enables priceWithTax computation
func WithTaxRateResolver(r TaxRateResolver) Option {
	return func(h *Hydrator) { h.taxRates = r }
}

// WithMetrics records hydrations on m
func WithMetrics(m *Metrics) Option {
	return func(h *Hydrator) { h.metrics = m }
}

// New creates a Hydrator over the given schema registry and loader
func New(registry *schema.Registry, loader Loader, opts ...Option) (*Hydrator, error) {
	if registry == nil {
		return nil, errors.New("hydrate: registry is required")
	}
	if loader == nil {
		return nil, errors.New("hydrate: loader is required")
	}

	h := &Hydrator{
		registry: registry,
		loader:   loader,
		config:   DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h, nil
}

// Registry returns the schema registry the hydrator resolves entities with
func (h *Hydrator) Registry() *schema.Registry {
	return h.registry
}

// Hydrate completes entity in place so that every relation named in req is populated.
// An error from pricing leaves the merged relations in place and every price untouched.
func (h *Hydrator) Hydrate(ctx context.Context, entity schema.Entity, req Request) (err error) {
	const op = "Hydrator.Hydrate"

	et, err := h.registry.TypeOf(entity)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if reflect.ValueOf(entity).IsNil() {
		return fmt.Errorf("%s: %w: nil %s", op, schema.ErrInvalidModel, et.Name)
	}
	if len(req.Relations) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { h.metrics.observe(et.Name, start, err) }()

	log := h.logger.With("op", op, "entity", et.Name, "id", entity.GetPrimaryKeyValue())

	tree, err := relpath.Parse(req.Relations)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := et.Validate(tree); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	applyPrices := req.ApplyProductVariantPrices || priceDependent(entity, tree)
	expandImplicit(et, tree, applyPrices)
	if err := et.Validate(tree); err != nil {
		return fmt.Errorf("%s: implicit relations: %w", op, err)
	}

	root := reflect.ValueOf(entity)
	p := inspect(et, root, tree)
	h.metrics.skipped(et.Name, tree.Len()-p.tree.Len())

	if !p.empty() {
		log.DebugContext(ctx, "fetching missing relations", "paths", p.tree.Leaves())

		fresh, err := h.fetch(ctx, et, entity, p)
		if err != nil {
			if IsNotFound(err) {
				log.InfoContext(ctx, "root entity vanished before hydration")
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		merge(et, root, reflect.ValueOf(fresh), p)
	}

	h.translate(ctx, entity, tree)

	if applyPrices {
		if err := h.applyPrices(ctx, entity, tree, log); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// HydrateMany hydrates independent roots in parallel, bounded by Config.Concurrency.
// The roots must not share entity instances.
func (h *Hydrator) HydrateMany(ctx context.Context, entities []schema.Entity, req Request) error {
	g, gctx := errgroup.WithContext(ctx)
	if h.config.Concurrency > 0 {
		g.SetLimit(h.config.Concurrency)
	}
	for _, e := range entities {
		e := e
		g.Go(func() error {
			return h.Hydrate(gctx, e, req)
		})
	}
	return g.Wait()
}

// priceDependent reports whether root declares price-dependent paths and tree reaches one
func priceDependent(root schema.Entity, tree *relpath.Node) bool {
	pd, ok := root.(PriceDependent)
	if !ok {
		return false
	}
	for _, path := range pd.PriceDependentRelations() {
		segments, err := relpath.Split(path)
		if err != nil {
			continue
		}
		node := tree
		for _, s := range segments {
			node = node.Child(s)
		}
		if node != nil {
			return true
		}
	}
	return false
}

// expandImplicit adds the translations of translatable types and, when
// prices are applied, the pricing relations of Priceable types
func expandImplicit(et *schema.EntityType, node *relpath.Node, prices bool) {
	for _, c := range node.Children() {
		if rel, ok := et.Relation(c.Name); ok {
			expandImplicit(rel.Target, c, prices)
		}
	}

	if tr := et.TranslationsRelation(); tr != nil {
		node.Insert(tr.Name)
	}
	if prices && et.Implements(priceableType) {
		for _, path := range et.New().(Priceable).PricingRelations() {
			if segments, err := relpath.Split(path); err == nil {
				node.Insert(segments...)
			}
		}
	}
}
