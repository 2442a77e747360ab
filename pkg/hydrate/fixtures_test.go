package hydrate_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ammar0144/hydra4go/pkg/domain"
	"github.com/ammar0144/hydra4go/pkg/hydrate"
	"github.com/ammar0144/hydra4go/pkg/repository"
	"github.com/ammar0144/hydra4go/pkg/schema"
)

func ptr[T any](v T) *T { return &v }

func tr(id int64, lang string, base int64) domain.Translation {
	return domain.Translation{Base: domain.Base{ID: id}, LanguageCode: lang, BaseID: base}
}

func option(id int64, name string) *domain.ProductOption {
	return &domain.ProductOption{
		Base: domain.Base{ID: id},
		Code: name,
		Translations: []*domain.ProductOptionTranslation{
			{Translation: tr(id*10, "en", id), Name: name},
		},
	}
}

func variant(id int64, taxCategory int64, prices ...*domain.ProductVariantPrice) *domain.ProductVariant {
	return &domain.ProductVariant{
		Base:                 domain.Base{ID: id},
		ProductID:            1,
		SKU:                  fmt.Sprintf("SKU-%d", id),
		Price:                999,
		TaxCategoryID:        taxCategory,
		TaxCategory:          &domain.TaxCategory{Base: domain.Base{ID: taxCategory}, Name: "standard"},
		ProductVariantPrices: prices,
		StockLevels:          []*domain.StockLevel{},
	}
}

// fullProduct is product 1 with every relation used by the tests populated
func fullProduct() *domain.Product {
	v21 := variant(21, 3,
		&domain.ProductVariantPrice{Base: domain.Base{ID: 31}, VariantID: 21, ChannelID: 1, CurrencyCode: "EUR", Price: 1000},
		&domain.ProductVariantPrice{Base: domain.Base{ID: 32}, VariantID: 21, ChannelID: 1, CurrencyCode: "USD", Price: 1100},
	)
	v21.Translations = []*domain.ProductVariantTranslation{{Translation: tr(211, "en", 21), Name: "Laptop 13"}}
	v21.Options = []*domain.ProductOption{option(41, "13 inch"), option(42, "8GB")}

	v22 := variant(22, 4,
		&domain.ProductVariantPrice{Base: domain.Base{ID: 33}, VariantID: 22, ChannelID: 1, CurrencyCode: "EUR", Price: 500},
	)
	v22.Translations = []*domain.ProductVariantTranslation{{Translation: tr(221, "de", 22), Name: "Laptop 15 DE"}}
	v22.Options = []*domain.ProductOption{option(43, "15 inch")}

	return &domain.Product{
		Base:    domain.Base{ID: 1},
		Enabled: true,
		Translations: []*domain.ProductTranslation{
			{Translation: tr(11, "en", 1), Name: "Laptop", Slug: "laptop"},
			{Translation: tr(12, "de", 1), Name: "Laptop DE", Slug: "laptop-de"},
		},
		FeaturedAssetID: ptr(int64(5)),
		FeaturedAsset:   &domain.Asset{Base: domain.Base{ID: 5}, Name: "laptop.jpg"},
		Assets: []*domain.ProductAsset{
			{Base: domain.Base{ID: 51}, ProductID: 1, AssetID: 5, Asset: &domain.Asset{Base: domain.Base{ID: 5}, Name: "laptop.jpg"}},
		},
		Variants:     []*domain.ProductVariant{v21, v22},
		OptionGroups: []*domain.ProductOptionGroup{},
		FacetValues: []*domain.FacetValue{
			{Base: domain.Base{ID: 61}, Code: "electronics", Translations: []*domain.FacetValueTranslation{{Translation: tr(611, "en", 61), Name: "Electronics"}}},
			{Base: domain.Base{ID: 62}, Code: "computers", Translations: []*domain.FacetValueTranslation{{Translation: tr(621, "en", 62), Name: "Computers"}}},
		},
		Channels: []*domain.Channel{},
	}
}

func secondProduct() *domain.Product {
	v := variant(23, 3)
	v.ProductID = 2
	return &domain.Product{
		Base:         domain.Base{ID: 2},
		Translations: []*domain.ProductTranslation{{Translation: tr(13, "en", 2), Name: "Mouse"}},
		Variants:     []*domain.ProductVariant{v},
	}
}

func fullOrder() *domain.Order {
	p := fullProduct()
	line := func(id int64, v *domain.ProductVariant, qty int) *domain.OrderLine {
		return &domain.OrderLine{Base: domain.Base{ID: id}, OrderID: 100, ProductVariantID: v.ID, ProductVariant: v, Quantity: qty}
	}
	return &domain.Order{
		Base:         domain.Base{ID: 100},
		Code:         "ORD-100",
		State:        "AddingItems",
		Active:       true,
		CurrencyCode: "EUR",
		Customer:     &domain.Customer{Base: domain.Base{ID: 7}, FirstName: "Ada"},
		Lines: []*domain.OrderLine{
			line(201, p.Variants[0], 2),
			line(202, p.Variants[1], 1),
			line(203, p.Variants[0], 1),
		},
	}
}

// env is a hydrator over a memory loader seeded with the fixtures
type env struct {
	registry *schema.Registry
	loader   *repository.MemoryLoader
	hydrator *hydrate.Hydrator
}

func newEnv(t *testing.T, opts ...hydrate.Option) *env {
	t.Helper()
	reg, err := domain.NewRegistry()
	require.NoError(t, err)

	loader := repository.NewMemoryLoader(reg)
	require.NoError(t, loader.Put(fullProduct(), secondProduct(), fullOrder()))

	h, err := hydrate.New(reg, loader, opts...)
	require.NoError(t, err)
	return &env{registry: reg, loader: loader, hydrator: h}
}

// load fetches a root the way a caller would before hydrating it
func (e *env) load(t *testing.T, entityType string, id int64, relations ...string) schema.Entity {
	t.Helper()
	entity, err := e.loader.LoadWithRelations(context.Background(), entityType, id, relations)
	require.NoError(t, err)
	e.loader.ResetCalls()
	return entity
}

// mockLoader is a testify mock of hydrate.Loader
type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) LoadWithRelations(ctx context.Context, entityType string, id interface{}, relations []string) (schema.Entity, error) {
	args := m.Called(ctx, entityType, id, relations)
	e, _ := args.Get(0).(schema.Entity)
	return e, args.Error(1)
}

// taxTable resolves rates from a fixed map and counts lookups
type taxTable struct {
	mu    sync.Mutex
	rates map[[2]interface{}]decimal.Decimal
	err   error
	calls int
}

func newTaxTable() *taxTable {
	return &taxTable{rates: map[[2]interface{}]decimal.Decimal{
		{int64(7), int64(3)}: decimal.RequireFromString("0.2"),
	}}
}

func (t *taxTable) TaxRate(_ context.Context, zoneID, taxCategoryID interface{}) (decimal.Decimal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if t.err != nil {
		return decimal.Zero, t.err
	}
	zone, _ := schema.NormalizeKey(zoneID)
	category, _ := schema.NormalizeKey(taxCategoryID)
	rate, ok := t.rates[[2]interface{}{zone, category}]
	if !ok {
		return decimal.Zero, hydrate.ErrTaxRateNotFound
	}
	return rate, nil
}
