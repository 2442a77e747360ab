// Package hydra4go completes partially loaded e-commerce entity graphs on demand,
// fetching only the relations a caller asks for that are not already present.
package hydra4go

import (
	"github.com/ammar0144/hydra4go/pkg/db"
	"github.com/ammar0144/hydra4go/pkg/domain"
	"github.com/ammar0144/hydra4go/pkg/hydrate"
	"github.com/ammar0144/hydra4go/pkg/redis"
	"github.com/ammar0144/hydra4go/pkg/repository"
	"github.com/ammar0144/hydra4go/pkg/schema"
)

// Config represents database configuration
type Config = db.Config

// RedisConfig represents Redis configuration
type RedisConfig = redis.Config

// Entity interface that all hydratable entities must implement
type Entity = schema.Entity

// Request describes one hydration
type Request = hydrate.Request

// RequestContext carries the request language, channel, currency and tax zone
type RequestContext = hydrate.RequestContext

// Hydrator completes entity graphs in place
type Hydrator = hydrate.Hydrator

// Option configures a Hydrator
type Option = hydrate.Option

// Sentinel errors, see package hydrate
var (
	ErrNotFound           = hydrate.ErrNotFound
	ErrInvalidRelation    = hydrate.ErrInvalidRelation
	ErrUnregisteredEntity = hydrate.ErrUnregisteredEntity
	ErrInvalidPath        = hydrate.ErrInvalidPath
)

// WithRequestContext attaches rc to the context passed to Hydrate
var WithRequestContext = hydrate.WithRequestContext

// NewManager creates a new database manager
func NewManager(config *Config) (*db.Manager, error) {
	return db.NewManager(config, nil)
}

// NewRedisManager creates a new Redis manager
func NewRedisManager(config *RedisConfig) (*redis.Manager, error) {
	return redis.NewManager(config)
}

// NewHydrator creates a hydrator over the domain model backed by MySQL.
// If redisManager is nil, every fetch goes to the database.
// If redisManager is provided, fetched graphs are cached and invalidated by member.
// Tax rates are read from the same database.
func NewHydrator(dbManager *db.Manager, redisManager *redis.Manager, opts ...Option) (*Hydrator, error) {
	registry, err := domain.NewRegistry()
	if err != nil {
		return nil, err
	}

	gormLoader := repository.NewGormLoader(dbManager, registry)
	var loader hydrate.Loader = gormLoader
	if redisManager != nil {
		loader = repository.NewCachedLoader(gormLoader, redisManager, registry,
			repository.WithNamespace(gormLoader.Database()))
	}

	taxRates, err := repository.NewTaxRateStore(dbManager, 0, 0)
	if err != nil {
		return nil, err
	}

	opts = append([]Option{hydrate.WithTaxRateResolver(taxRates)}, opts...)
	return hydrate.New(registry, loader, opts...)
}
