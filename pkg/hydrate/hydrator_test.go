package hydrate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ammar0144/hydra4go/pkg/domain"
	"github.com/ammar0144/hydra4go/pkg/hydrate"
	"github.com/ammar0144/hydra4go/pkg/schema"
)

func ids[T schema.Entity](entities []T) []int64 {
	out := make([]int64, len(entities))
	for i, e := range entities {
		out[i] = e.GetPrimaryKeyValue().(int64)
	}
	return out
}

func TestNew(t *testing.T) {
	reg, err := domain.NewRegistry()
	require.NoError(t, err)

	_, err = hydrate.New(nil, &mockLoader{})
	assert.Error(t, err)
	_, err = hydrate.New(reg, nil)
	assert.Error(t, err)

	h, err := hydrate.New(reg, &mockLoader{}, hydrate.WithLogger(nil))
	require.NoError(t, err)
	assert.Same(t, reg, h.Registry())
}

func TestHydrateFetchesOnlyMissing(t *testing.T) {
	e := newEnv(t)
	p := e.load(t, "Product", 1).(*domain.Product)

	require.NoError(t, e.hydrator.Hydrate(context.Background(), p, hydrate.Request{Relations: []string{"variants"}}))

	calls := e.loader.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Product", calls[0].EntityType)
	assert.ElementsMatch(t, []string{"variants.translations", "translations"}, calls[0].Relations)

	require.Len(t, p.Variants, 2)
	assert.Equal(t, "Laptop", p.Name)
	assert.Len(t, p.Translations, 2, "translations stay available after flattening")
	assert.Equal(t, "Laptop 13", p.Variants[0].Name)
	assert.Equal(t, "Laptop 15 DE", p.Variants[1].Name, "first available translation")
	assert.Nil(t, p.FeaturedAsset)
}

func TestHydrateIdempotent(t *testing.T) {
	e := newEnv(t)
	p := e.load(t, "Product", 1).(*domain.Product)
	req := hydrate.Request{Relations: []string{"variants.options", "featuredAsset"}}
	ctx := context.Background()

	require.NoError(t, e.hydrator.Hydrate(ctx, p, req))
	variants := append([]*domain.ProductVariant(nil), p.Variants...)
	options := len(p.Variants[0].Options)

	require.NoError(t, e.hydrator.Hydrate(ctx, p, req))
	assert.Len(t, e.loader.Calls(), 1, "second call must not fetch")
	require.Len(t, p.Variants, len(variants))
	for i := range variants {
		assert.Same(t, variants[i], p.Variants[i])
	}
	assert.Len(t, p.Variants[0].Options, options)
}

func TestHydrateMonotonic(t *testing.T) {
	e := newEnv(t)
	p := e.load(t, "Product", 1).(*domain.Product)
	ctx := context.Background()

	require.NoError(t, e.hydrator.Hydrate(ctx, p, hydrate.Request{Relations: []string{"variants"}}))
	require.NoError(t, e.hydrator.Hydrate(ctx, p, hydrate.Request{Relations: []string{"featuredAsset"}}))
	assert.Len(t, p.Variants, 2)
	require.NotNil(t, p.FeaturedAsset)

	require.NoError(t, e.hydrator.Hydrate(ctx, p, hydrate.Request{Relations: []string{"variants", "featuredAsset"}}))
	assert.Len(t, e.loader.Calls(), 2)
}

func TestHydrateOverlappingPaths(t *testing.T) {
	e := newEnv(t)
	p := e.load(t, "Product", 1).(*domain.Product)

	req := hydrate.Request{Relations: []string{"variants", "variants.options", "variants"}}
	require.NoError(t, e.hydrator.Hydrate(context.Background(), p, req))

	calls := e.loader.Calls()
	require.Len(t, calls, 1)
	assert.ElementsMatch(t, []string{
		"variants.options.translations",
		"variants.translations",
		"translations",
	}, calls[0].Relations)
	assert.Len(t, p.Variants[0].Options, 2)
}

func TestHydratePreservesLoadedData(t *testing.T) {
	e := newEnv(t)
	p := e.load(t, "Product", 1, "translations", "variants.translations").(*domain.Product)
	v := p.Variants[0]
	v.SKU = "local"

	require.NoError(t, e.hydrator.Hydrate(context.Background(), p, hydrate.Request{Relations: []string{"variants.options"}}))

	calls := e.loader.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"variants.options.translations"}, calls[0].Relations)

	assert.Same(t, v, p.Variants[0])
	assert.Equal(t, "local", p.Variants[0].SKU)
	require.Len(t, p.Variants[0].Options, 2)
	assert.Equal(t, "13 inch", p.Variants[0].Options[0].Name)
	assert.True(t, p.Variants[0].RelationLoaded("options"))
}

func TestCollectionMergeByIdentity(t *testing.T) {
	reg, err := domain.NewRegistry()
	require.NoError(t, err)

	variant := func(id int64) *domain.ProductVariant {
		v := &domain.ProductVariant{Base: domain.Base{ID: id}}
		v.MarkRelationLoaded("translations")
		return v
	}
	v1, v2, v3 := variant(1), variant(2), variant(3)
	target := &domain.Product{Base: domain.Base{ID: 1}, Variants: []*domain.ProductVariant{v1, v2, v3}}
	target.MarkRelationLoaded("translations")

	fresh := &domain.Product{
		Base: domain.Base{ID: 1},
		Variants: []*domain.ProductVariant{
			{Base: domain.Base{ID: 2}, Options: []*domain.ProductOption{option(41, "S")}},
			{Base: domain.Base{ID: 3}, Options: []*domain.ProductOption{option(42, "M")}},
			{Base: domain.Base{ID: 4}, Options: []*domain.ProductOption{option(43, "L")}},
		},
	}

	loader := &mockLoader{}
	loader.On("LoadWithRelations", mock.Anything, "Product", int64(1), []string{"variants.options.translations"}).
		Return(fresh, nil).Once()

	h, err := hydrate.New(reg, loader)
	require.NoError(t, err)
	require.NoError(t, h.Hydrate(context.Background(), target, hydrate.Request{Relations: []string{"variants.options"}}))
	loader.AssertExpectations(t)

	assert.Equal(t, []int64{1, 2, 3, 4}, ids(target.Variants))
	assert.Same(t, v2, target.Variants[1])
	assert.Same(t, v3, target.Variants[2])
	require.Len(t, v2.Options, 1)
	assert.Equal(t, "S", v2.Options[0].Name)
	assert.True(t, v2.RelationLoaded("options"))
	assert.Nil(t, v1.Options, "entries only in the original are preserved as they were")
}

func TestRefetchedCollectionTakesFreshOrder(t *testing.T) {
	e := newEnv(t)
	p := e.load(t, "Product", 1, "translations", "variants.translations").(*domain.Product)

	// variant 21 already has one option; variant 22 has none loaded
	local := option(42, "local 8GB")
	p.Variants[0].Options = []*domain.ProductOption{local}

	require.NoError(t, e.hydrator.Hydrate(context.Background(), p, hydrate.Request{Relations: []string{"variants.options"}}))
	require.Len(t, e.loader.Calls(), 1)

	assert.Equal(t, []int64{41, 42}, ids(p.Variants[0].Options))
	assert.Same(t, local, p.Variants[0].Options[1])
	assert.Equal(t, "local 8GB", local.Name)
	assert.Equal(t, []int64{43}, ids(p.Variants[1].Options))
}

func TestEmptyCollections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	req := hydrate.Request{Relations: []string{"optionGroups"}}

	t.Run("GenuinelyEmpty", func(t *testing.T) {
		e.loader.ResetCalls()
		p := e.load(t, "Product", 1, "translations", "optionGroups").(*domain.Product)

		require.NoError(t, e.hydrator.Hydrate(ctx, p, req))
		assert.Empty(t, e.loader.Calls())
		assert.NotNil(t, p.OptionGroups)
		assert.Empty(t, p.OptionGroups)
	})

	t.Run("UnmarkedEmptyIsVerified", func(t *testing.T) {
		p := e.load(t, "Product", 1, "translations").(*domain.Product)
		p.OptionGroups = []*domain.ProductOptionGroup{}

		require.NoError(t, e.hydrator.Hydrate(ctx, p, req))
		assert.Len(t, e.loader.Calls(), 1)
		assert.NotNil(t, p.OptionGroups)
		assert.Empty(t, p.OptionGroups)
		assert.True(t, p.RelationLoaded("optionGroups"))

		require.NoError(t, e.hydrator.Hydrate(ctx, p, req))
		assert.Len(t, e.loader.Calls(), 1, "no refetch loop on empty relations")
	})

	t.Run("NeverNilAfterMerge", func(t *testing.T) {
		p := e.load(t, "Product", 1).(*domain.Product)
		require.NoError(t, e.hydrator.Hydrate(ctx, p, hydrate.Request{Relations: []string{"channels", "variants.stockLevels"}}))
		assert.NotNil(t, p.Channels)
		assert.NotNil(t, p.Variants[0].StockLevels)
	})
}

func TestNestedPresenceRequiresEveryMember(t *testing.T) {
	e := newEnv(t)
	o := e.load(t, "Order", 100,
		"lines.productVariant.translations",
		"lines.productVariant.productVariantPrices",
		"lines.productVariant.taxCategory",
	).(*domain.Order)

	kept := o.Lines[0].ProductVariant
	o.Lines[1].ProductVariant = nil
	o.Lines[1].ResetLoaded()

	require.NoError(t, e.hydrator.Hydrate(context.Background(), o, hydrate.Request{Relations: []string{"lines.productVariant"}}))
	require.Len(t, e.loader.Calls(), 1)

	for _, line := range o.Lines {
		require.NotNil(t, line.ProductVariant, "line %d", line.ID)
	}
	assert.Same(t, kept, o.Lines[0].ProductVariant)
	assert.Equal(t, int64(22), o.Lines[1].ProductVariant.ID)
}

func TestTranslationLanguage(t *testing.T) {
	tests := []struct {
		name        string
		rc          *hydrate.RequestContext
		config      *hydrate.Config
		wantProduct string
		wantVariant []string
	}{
		{
			name:        "Default",
			wantProduct: "Laptop",
			wantVariant: []string{"Laptop 13", "Laptop 15 DE"},
		},
		{
			name:        "Requested",
			rc:          &hydrate.RequestContext{LanguageCode: "de"},
			wantProduct: "Laptop DE",
			wantVariant: []string{"Laptop 13", "Laptop 15 DE"},
		},
		{
			name:        "ChannelDefault",
			rc:          &hydrate.RequestContext{LanguageCode: "fr", DefaultLanguageCode: "de"},
			wantProduct: "Laptop DE",
			wantVariant: []string{"Laptop 13", "Laptop 15 DE"},
		},
		{
			name:        "ConfiguredDefault",
			config:      &hydrate.Config{DefaultLanguageCode: "de"},
			wantProduct: "Laptop DE",
			wantVariant: []string{"Laptop 13", "Laptop 15 DE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []hydrate.Option
			if tt.config != nil {
				opts = append(opts, hydrate.WithConfig(*tt.config))
			}
			e := newEnv(t, opts...)
			ctx := context.Background()
			if tt.rc != nil {
				ctx = hydrate.WithRequestContext(ctx, *tt.rc)
			}

			p := e.load(t, "Product", 1).(*domain.Product)
			require.NoError(t, e.hydrator.Hydrate(ctx, p, hydrate.Request{Relations: []string{"variants.options", "facetValues"}}))

			assert.Equal(t, tt.wantProduct, p.Name)
			for i, want := range tt.wantVariant {
				assert.Equal(t, want, p.Variants[i].Name)
			}
			assert.Equal(t, "13 inch", p.Variants[0].Options[0].Name, "nested depth")
			assert.Equal(t, "Computers", p.FacetValues[1].Name)
		})
	}
}

func TestOrderPricesApplied(t *testing.T) {
	tax := newTaxTable()
	e := newEnv(t, hydrate.WithTaxRateResolver(tax))
	o := e.load(t, "Order", 100).(*domain.Order)

	ctx := hydrate.WithRequestContext(context.Background(), hydrate.RequestContext{
		ChannelID:    int64(1),
		CurrencyCode: "EUR",
		TaxZoneID:    int64(7),
	})
	require.NoError(t, e.hydrator.Hydrate(ctx, o, hydrate.Request{Relations: []string{"lines.productVariant"}}))

	calls := e.loader.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Relations, "lines.productVariant.productVariantPrices")
	assert.Contains(t, calls[0].Relations, "lines.productVariant.taxCategory")

	v21 := o.Lines[0].ProductVariant
	assert.Equal(t, int64(1000), v21.Price)
	assert.Equal(t, "EUR", v21.CurrencyCode)
	require.NotNil(t, v21.PriceWithTax)
	assert.Equal(t, int64(1200), *v21.PriceWithTax)

	v22 := o.Lines[1].ProductVariant
	assert.Equal(t, int64(500), v22.Price)
	assert.Nil(t, v22.PriceWithTax, "no rate for the category")

	require.NotNil(t, o.Lines[2].ProductVariant.PriceWithTax)
	assert.Equal(t, int64(1200), *o.Lines[2].ProductVariant.PriceWithTax)
	assert.Equal(t, 2, tax.calls, "rates are looked up once per zone and category")
}

func TestProductVariantPrices(t *testing.T) {
	ctx := hydrate.WithRequestContext(context.Background(), hydrate.RequestContext{
		ChannelID:    int64(1),
		CurrencyCode: "USD",
		TaxZoneID:    int64(7),
	})

	t.Run("NotRequested", func(t *testing.T) {
		e := newEnv(t, hydrate.WithTaxRateResolver(newTaxTable()))
		p := e.load(t, "Product", 1).(*domain.Product)
		require.NoError(t, e.hydrator.Hydrate(ctx, p, hydrate.Request{Relations: []string{"variants"}}))
		assert.Equal(t, int64(999), p.Variants[0].Price)
		assert.Nil(t, p.Variants[0].PriceWithTax)
	})

	t.Run("Requested", func(t *testing.T) {
		e := newEnv(t, hydrate.WithTaxRateResolver(newTaxTable()))
		p := e.load(t, "Product", 1).(*domain.Product)
		req := hydrate.Request{Relations: []string{"variants"}, ApplyProductVariantPrices: true}
		require.NoError(t, e.hydrator.Hydrate(ctx, p, req))

		assert.Equal(t, int64(1100), p.Variants[0].Price)
		assert.Equal(t, "USD", p.Variants[0].CurrencyCode)
		require.NotNil(t, p.Variants[0].PriceWithTax)
		assert.Equal(t, int64(1320), *p.Variants[0].PriceWithTax)

		// no USD price for variant 22: list price in the requested currency
		assert.Equal(t, int64(999), p.Variants[1].Price)
		assert.Equal(t, "USD", p.Variants[1].CurrencyCode)
	})

	t.Run("NoTaxZone", func(t *testing.T) {
		tax := newTaxTable()
		e := newEnv(t, hydrate.WithTaxRateResolver(tax))
		p := e.load(t, "Product", 1).(*domain.Product)
		noZone := hydrate.WithRequestContext(context.Background(), hydrate.RequestContext{ChannelID: int64(1), CurrencyCode: "EUR"})
		req := hydrate.Request{Relations: []string{"variants"}, ApplyProductVariantPrices: true}
		require.NoError(t, e.hydrator.Hydrate(noZone, p, req))

		assert.Equal(t, int64(1000), p.Variants[0].Price)
		assert.Nil(t, p.Variants[0].PriceWithTax)
		assert.Zero(t, tax.calls)
	})

	t.Run("ResolverFailureIsSoft", func(t *testing.T) {
		tax := newTaxTable()
		tax.err = errors.New("rates service unavailable")
		e := newEnv(t, hydrate.WithTaxRateResolver(tax))
		p := e.load(t, "Product", 1).(*domain.Product)
		req := hydrate.Request{Relations: []string{"variants"}, ApplyProductVariantPrices: true}
		require.NoError(t, e.hydrator.Hydrate(ctx, p, req))
		assert.Nil(t, p.Variants[0].PriceWithTax)
	})
}

type taxFunc func(ctx context.Context, zoneID, taxCategoryID interface{}) (decimal.Decimal, error)

func (f taxFunc) TaxRate(ctx context.Context, zoneID, taxCategoryID interface{}) (decimal.Decimal, error) {
	return f(ctx, zoneID, taxCategoryID)
}

func TestPriceCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(hydrate.WithRequestContext(context.Background(), hydrate.RequestContext{
		ChannelID:    int64(1),
		CurrencyCode: "EUR",
		TaxZoneID:    int64(7),
	}))
	defer cancel()

	// the first category resolves, the second lookup is cancelled
	calls := 0
	resolver := taxFunc(func(ctx context.Context, _, _ interface{}) (decimal.Decimal, error) {
		calls++
		if calls == 1 {
			return decimal.RequireFromString("0.2"), nil
		}
		cancel()
		return decimal.Zero, ctx.Err()
	})
	e := newEnv(t, hydrate.WithTaxRateResolver(resolver))
	p := e.load(t, "Product", 1).(*domain.Product)

	err := e.hydrator.Hydrate(ctx, p, hydrate.Request{Relations: []string{"variants"}, ApplyProductVariantPrices: true})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)

	require.Len(t, p.Variants, 2, "fetched relations stay merged")
	assert.Equal(t, "Laptop 13", p.Variants[0].Name)
	for _, v := range p.Variants {
		assert.Equal(t, int64(999), v.Price, v.ID)
		assert.Empty(t, v.CurrencyCode, v.ID)
		assert.Nil(t, v.PriceWithTax, v.ID)
	}
}

func TestRepricingFollowsRequestContext(t *testing.T) {
	e := newEnv(t, hydrate.WithTaxRateResolver(newTaxTable()))
	p := e.load(t, "Product", 1).(*domain.Product)
	req := hydrate.Request{Relations: []string{"variants"}, ApplyProductVariantPrices: true}

	price := func(rc hydrate.RequestContext) *domain.ProductVariant {
		t.Helper()
		require.NoError(t, e.hydrator.Hydrate(hydrate.WithRequestContext(context.Background(), rc), p, req))
		return p.Variants[0]
	}

	v := price(hydrate.RequestContext{ChannelID: int64(1), CurrencyCode: "EUR", TaxZoneID: int64(7)})
	assert.Equal(t, int64(1000), v.Price)
	require.NotNil(t, v.PriceWithTax)
	assert.Equal(t, int64(1200), *v.PriceWithTax)

	v = price(hydrate.RequestContext{ChannelID: int64(2), CurrencyCode: "GBP"})
	assert.Equal(t, int64(999), v.Price, "list price, not the previous channel price")
	assert.Equal(t, "GBP", v.CurrencyCode)
	assert.Nil(t, v.PriceWithTax, "no tax zone")

	v = price(hydrate.RequestContext{ChannelID: int64(1), CurrencyCode: "USD", TaxZoneID: int64(7)})
	assert.Equal(t, int64(1100), v.Price)
	assert.Equal(t, "USD", v.CurrencyCode)
	require.NotNil(t, v.PriceWithTax)
	assert.Equal(t, int64(1320), *v.PriceWithTax)

	fresh := e.load(t, "Product", 1).(*domain.Product)
	rc := hydrate.WithRequestContext(context.Background(), hydrate.RequestContext{ChannelID: int64(2), CurrencyCode: "GBP"})
	require.NoError(t, e.hydrator.Hydrate(rc, fresh, req))
	require.NoError(t, e.hydrator.Hydrate(rc, p, req))
	assert.Equal(t, fresh.Variants[0].Price, p.Variants[0].Price)
	assert.Equal(t, fresh.Variants[0].CurrencyCode, p.Variants[0].CurrencyCode)
}

type widget struct {
	schema.Loaded
	domain.Base
}

func (widget) TableName() string { return "widgets" }

func TestConfigErrorsFailBeforeFetch(t *testing.T) {
	tests := []struct {
		name      string
		relations []string
		wantErr   error
	}{
		{"UnknownRelation", []string{"variants.nope"}, hydrate.ErrInvalidRelation},
		{"UnknownRoot", []string{"lines"}, hydrate.ErrInvalidRelation},
		{"EmptySegment", []string{"variants..options"}, hydrate.ErrInvalidPath},
		{"BlankPath", []string{"variants", ""}, hydrate.ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			p := e.load(t, "Product", 1).(*domain.Product)

			err := e.hydrator.Hydrate(context.Background(), p, hydrate.Request{Relations: tt.relations})
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, hydrate.IsConfigError(err))
			assert.Empty(t, e.loader.Calls())
			assert.Nil(t, p.Variants)
		})
	}

	t.Run("RelationErrorDetails", func(t *testing.T) {
		e := newEnv(t)
		p := e.load(t, "Product", 1).(*domain.Product)
		err := e.hydrator.Hydrate(context.Background(), p, hydrate.Request{Relations: []string{"variants.nope"}})

		var relErr *hydrate.InvalidRelationError
		require.ErrorAs(t, err, &relErr)
		assert.Equal(t, "ProductVariant", relErr.EntityType)
		assert.Equal(t, "nope", relErr.Segment)
		assert.Equal(t, "variants.nope", relErr.Path)
	})

	t.Run("UnregisteredEntity", func(t *testing.T) {
		e := newEnv(t)
		err := e.hydrator.Hydrate(context.Background(), &widget{Base: domain.Base{ID: 1}}, hydrate.Request{Relations: []string{"x"}})
		assert.ErrorIs(t, err, hydrate.ErrUnregisteredEntity)
	})
}

func TestFailedFetchLeavesEntityUntouched(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		e := newEnv(t)
		p := &domain.Product{Base: domain.Base{ID: 999}, Enabled: true}

		err := e.hydrator.Hydrate(context.Background(), p, hydrate.Request{Relations: []string{"variants"}})
		assert.True(t, hydrate.IsNotFound(err))
		assert.Nil(t, p.Variants)
		assert.False(t, p.RelationLoaded("variants"))
		assert.Empty(t, p.Name)
	})

	t.Run("LoaderError", func(t *testing.T) {
		reg, err := domain.NewRegistry()
		require.NoError(t, err)
		loader := &mockLoader{}
		loader.On("LoadWithRelations", mock.Anything, "Product", int64(1), mock.Anything).
			Return(nil, errors.New("connection reset"))
		h, err := hydrate.New(reg, loader)
		require.NoError(t, err)

		p := &domain.Product{Base: domain.Base{ID: 1}}
		err = h.Hydrate(context.Background(), p, hydrate.Request{Relations: []string{"variants"}})
		assert.ErrorContains(t, err, "connection reset")
		assert.Nil(t, p.Variants)
		assert.Nil(t, p.Translations)
	})
}

func TestRootMismatch(t *testing.T) {
	tests := []struct {
		name    string
		fresh   schema.Entity
		wantErr error
	}{
		{"OtherKey", &domain.Product{Base: domain.Base{ID: 2}}, hydrate.ErrRootMismatch},
		{"OtherType", &domain.Order{Base: domain.Base{ID: 1}}, hydrate.ErrRootMismatch},
		{"Nil", (*domain.Product)(nil), hydrate.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := domain.NewRegistry()
			require.NoError(t, err)
			loader := &mockLoader{}
			loader.On("LoadWithRelations", mock.Anything, "Product", int64(1), mock.Anything).Return(tt.fresh, nil)
			h, err := hydrate.New(reg, loader)
			require.NoError(t, err)

			p := &domain.Product{Base: domain.Base{ID: 1}}
			err = h.Hydrate(context.Background(), p, hydrate.Request{Relations: []string{"variants"}})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, p.Variants)
		})
	}
}

func TestHydrateEdgeCases(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	t.Run("EmptyRequestIsNoop", func(t *testing.T) {
		p := e.load(t, "Product", 1).(*domain.Product)
		require.NoError(t, e.hydrator.Hydrate(ctx, p, hydrate.Request{}))
		assert.Empty(t, e.loader.Calls())
		assert.Empty(t, p.Name)
	})

	t.Run("NoPrimaryKey", func(t *testing.T) {
		err := e.hydrator.Hydrate(ctx, &domain.Product{}, hydrate.Request{Relations: []string{"variants"}})
		assert.ErrorIs(t, err, hydrate.ErrNoPrimaryKey)
		assert.Empty(t, e.loader.Calls())
	})

	t.Run("NilEntity", func(t *testing.T) {
		var p *domain.Product
		err := e.hydrator.Hydrate(ctx, p, hydrate.Request{Relations: []string{"variants"}})
		assert.ErrorIs(t, err, schema.ErrInvalidModel)
	})

	t.Run("CyclicGraph", func(t *testing.T) {
		reg, err := domain.NewRegistry()
		require.NoError(t, err)

		fresh := &domain.Product{Base: domain.Base{ID: 1}}
		fresh.Variants = []*domain.ProductVariant{{Base: domain.Base{ID: 21}, Product: fresh}}
		loader := &mockLoader{}
		loader.On("LoadWithRelations", mock.Anything, "Product", int64(1), mock.Anything).Return(fresh, nil).Once()
		h, err := hydrate.New(reg, loader)
		require.NoError(t, err)

		p := &domain.Product{Base: domain.Base{ID: 1}}
		require.NoError(t, h.Hydrate(ctx, p, hydrate.Request{Relations: []string{"variants.product.variants"}}))
		require.Len(t, p.Variants, 1)
		assert.Equal(t, int64(1), p.Variants[0].Product.ID)
	})
}

func TestEndToEndProduct(t *testing.T) {
	e := newEnv(t)
	p := e.load(t, "Product", 1).(*domain.Product)

	req := hydrate.Request{Relations: []string{"featuredAsset", "assets.asset", "variants.options", "facetValues"}}
	require.NoError(t, e.hydrator.Hydrate(context.Background(), p, req))

	assert.Len(t, e.loader.Calls(), 1)
	require.NotNil(t, p.FeaturedAsset)
	assert.Equal(t, "laptop.jpg", p.FeaturedAsset.Name)
	require.Len(t, p.Assets, 1)
	require.NotNil(t, p.Assets[0].Asset)
	require.Len(t, p.Variants, 2)
	assert.Len(t, p.Variants[0].Options, 2)
	assert.Len(t, p.FacetValues, 2)
	assert.Equal(t, "Electronics", p.FacetValues[0].Name)
}

func TestHydrateMany(t *testing.T) {
	cfg := hydrate.DefaultConfig()
	cfg.Concurrency = 1
	e := newEnv(t, hydrate.WithConfig(cfg))
	ctx := context.Background()
	req := hydrate.Request{Relations: []string{"variants"}}

	p1 := e.load(t, "Product", 1).(*domain.Product)
	p2 := e.load(t, "Product", 2).(*domain.Product)
	require.NoError(t, e.hydrator.HydrateMany(ctx, []schema.Entity{p1, p2}, req))
	assert.Len(t, p1.Variants, 2)
	assert.Equal(t, []int64{23}, ids(p2.Variants))
	assert.Equal(t, "Mouse", p2.Name)
	assert.Len(t, e.loader.Calls(), 2)

	missing := &domain.Product{Base: domain.Base{ID: 999}}
	err := e.hydrator.HydrateMany(ctx, []schema.Entity{e.load(t, "Product", 1), missing}, req)
	assert.True(t, hydrate.IsNotFound(err))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := hydrate.NewMetrics(reg)
	require.NoError(t, err)

	e := newEnv(t, hydrate.WithMetrics(m))
	ctx := context.Background()
	p := e.load(t, "Product", 1).(*domain.Product)
	req := hydrate.Request{Relations: []string{"variants"}}

	require.NoError(t, e.hydrator.Hydrate(ctx, p, req))
	require.NoError(t, e.hydrator.Hydrate(ctx, p, req))
	_ = e.hydrator.Hydrate(ctx, p, hydrate.Request{Relations: []string{"nope"}})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HydrateTotal.WithLabelValues("Product", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HydrateTotal.WithLabelValues("Product", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("Product")))
	// variants, variants.translations and translations were all present on the second call
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RelationsSkipped.WithLabelValues("Product")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HydrateDuration))

	_, err = hydrate.NewMetrics(reg)
	assert.Error(t, err, "collectors are already registered")

	unregistered, err := hydrate.NewMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, unregistered.FetchTotal)
}

func TestPriceWithTax(t *testing.T) {
	tests := []struct {
		price int64
		rate  string
		want  int64
	}{
		{1000, "0.2", 1200},
		{999, "0.195", 1194},
		{5, "0.1", 6},
		{15, "0.1", 17},
		{0, "0.2", 0},
		{1000, "0", 1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, hydrate.PriceWithTax(tt.price, decimal.RequireFromString(tt.rate)), "%d * (1 + %s)", tt.price, tt.rate)
	}
}
