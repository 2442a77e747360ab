package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ammar0144/hydra4go/pkg/db"
	"github.com/ammar0144/hydra4go/pkg/hydrate"
	"github.com/ammar0144/hydra4go/pkg/schema"

	lru "github.com/hashicorp/golang-lru"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultTaxRateCacheSize = 1024
	defaultTaxRateCacheTTL  = 5 * time.Minute
)

// TaxRateStore resolves enabled tax rates from the tax_rates table.
// Lookups, including misses, are kept in a small LRU for a short TTL.
type TaxRateStore struct {
	db        *gorm.DB
	dbManager *db.Manager
	cache     *lru.Cache
	ttl       time.Duration
	now       func() time.Time
}

var _ hydrate.TaxRateResolver = (*TaxRateStore)(nil)

type taxRateKey struct {
	zone     interface{}
	category interface{}
}

type taxRateEntry struct {
	rate    decimal.Decimal
	found   bool
	expires time.Time
}

// NewTaxRateStore creates a store with an LRU of size entries; size <= 0 uses the default
func NewTaxRateStore(dbManager *db.Manager, size int, ttl time.Duration) (*TaxRateStore, error) {
	if size <= 0 {
		size = defaultTaxRateCacheSize
	}
	if ttl <= 0 {
		ttl = defaultTaxRateCacheTTL
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("tax rate cache: %w", err)
	}
	return &TaxRateStore{
		db:        dbManager.DB(),
		dbManager: dbManager,
		cache:     cache,
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

// TaxRate returns the rate for the zone and category as a fraction, 20.00 -> 0.2
func (s *TaxRateStore) TaxRate(ctx context.Context, zoneID, taxCategoryID interface{}) (decimal.Decimal, error) {
	zone, zoneOK := schema.NormalizeKey(zoneID)
	category, categoryOK := schema.NormalizeKey(taxCategoryID)
	if !zoneOK || !categoryOK {
		return decimal.Zero, fmt.Errorf("zone %v category %v: %w", zoneID, taxCategoryID, hydrate.ErrTaxRateNotFound)
	}

	key := taxRateKey{zone: zone, category: category}
	if v, ok := s.cache.Get(key); ok {
		entry := v.(taxRateEntry)
		if s.now().Before(entry.expires) {
			return entry.result(zone, category)
		}
		s.cache.Remove(key)
	}

	ctx, cancel := s.dbManager.WithQueryTimeout(ctx)
	defer cancel()

	query, args := taxRateQuery(zone, category).BuildSelect()
	var rows []struct {
		Value decimal.Decimal
	}
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return decimal.Zero, fmt.Errorf("database error: %w", err)
	}

	entry := taxRateEntry{expires: s.now().Add(s.ttl)}
	if len(rows) > 0 {
		entry.rate = rows[0].Value.Div(decimal.NewFromInt(100))
		entry.found = true
	}
	s.cache.Add(key, entry)
	return entry.result(zone, category)
}

// Purge drops every cached rate, e.g. after rates were edited
func (s *TaxRateStore) Purge() {
	s.cache.Purge()
}

func (e taxRateEntry) result(zone, category interface{}) (decimal.Decimal, error) {
	if !e.found {
		return decimal.Zero, fmt.Errorf("zone %v category %v: %w", zone, category, hydrate.ErrTaxRateNotFound)
	}
	return e.rate, nil
}

// taxRateQuery picks the newest enabled rate for the pair
func taxRateQuery(zone, category interface{}) *db.Builder {
	return db.NewBuilder("tax_rates").
		Select("value").
		Where("zone_id", db.Equal, zone).
		Where("category_id", db.Equal, category).
		Where("enabled", db.Equal, true).
		OrderBy("id", true).
		Limit(1)
}
