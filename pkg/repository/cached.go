package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ammar0144/hydra4go/pkg/hydrate"
	"github.com/ammar0144/hydra4go/pkg/redis"
	"github.com/ammar0144/hydra4go/pkg/relpath"
	"github.com/ammar0144/hydra4go/pkg/schema"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

const cacheKeyHashLength = 12 // Balance between uniqueness and key length

// Cache is the subset of *redis.Manager used by CachedLoader
type Cache interface {
	Key(parts ...string) string
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithDependencies(ctx context.Context, key string, value []byte, dependencies map[string][]interface{}) error
	InvalidateEntityDependencies(ctx context.Context, entityType string, entityID interface{}) error
	InvalidatePattern(ctx context.Context, pattern string) error
}

var _ Cache = (*redis.Manager)(nil)

// CachedLoader serves loads from a cache and falls back to another loader.
// Stored graphs are registered under every entity they contain, so changing
// any member through Invalidate evicts each cached graph that includes it.
// Cache failures never fail a load.
type CachedLoader struct {
	next      hydrate.Loader
	cache     Cache
	registry  *schema.Registry
	namespace string
	log       *slog.Logger
}

var _ hydrate.Loader = (*CachedLoader)(nil)

// CachedLoaderOption configures a CachedLoader
type CachedLoaderOption func(*CachedLoader)

// WithNamespace isolates keys per database, e.g. GormLoader.Database()
func WithNamespace(ns string) CachedLoaderOption {
	return func(l *CachedLoader) { l.namespace = ns }
}

// WithCacheLogger sets the logger for best-effort cache failures
func WithCacheLogger(log *slog.Logger) CachedLoaderOption {
	return func(l *CachedLoader) { l.log = log }
}

// NewCachedLoader wraps next with cache
func NewCachedLoader(next hydrate.Loader, cache Cache, registry *schema.Registry, opts ...CachedLoaderOption) *CachedLoader {
	l := &CachedLoader{
		next:     next,
		cache:    cache,
		registry: registry,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadWithRelations returns the cached graph for (entityType, id, relations) or
// loads and stores it
func (l *CachedLoader) LoadWithRelations(ctx context.Context, entityType string, id interface{}, relations []string) (schema.Entity, error) {
	const op = "CachedLoader.LoadWithRelations"
	log := l.log.With(slog.String("op", op), slog.String("entity", entityType))

	et, err := l.registry.Lookup(entityType)
	if err != nil {
		return nil, err
	}
	tree, err := relpath.Parse(relations)
	if err != nil {
		return nil, err
	}

	key := l.cacheKey(et, id, tree)

	data, err := l.cache.Get(ctx, key)
	switch {
	case err == nil:
		entity := et.New()
		if err := msgpack.Unmarshal(data, entity); err == nil {
			if err := l.registry.MarkLoaded(entity, tree); err == nil {
				return entity, nil
			}
		} else {
			log.Warn("discarding undecodable cache entry", slog.String("key", key), slog.Any("error", err))
		}
	case redis.IsKeyNotFound(err), redis.IsCacheDisabled(err):
	default:
		// Unexpected cache error; continue to the loader (best-effort cache)
		log.Warn("cache get failed", slog.String("key", key), slog.Any("error", err))
	}

	entity, err := l.next.LoadWithRelations(ctx, entityType, id, relations)
	if err != nil {
		return nil, err
	}

	l.store(ctx, log, key, entity, tree)
	return entity, nil
}

// Invalidate evicts every cached graph that contains the given entity
func (l *CachedLoader) Invalidate(ctx context.Context, table string, id interface{}) error {
	if err := l.cache.InvalidateEntityDependencies(ctx, table, id); err != nil && !redis.IsCacheDisabled(err) {
		return fmt.Errorf("invalidate %s %v: %w", table, id, err)
	}
	return nil
}

// InvalidateType evicts every cached graph rooted at entityType, e.g. after a migration
func (l *CachedLoader) InvalidateType(ctx context.Context, entityType string) error {
	et, err := l.registry.Lookup(entityType)
	if err != nil {
		return err
	}
	parts := make([]string, 0, 4)
	if l.namespace != "" {
		parts = append(parts, l.namespace)
	}
	parts = append(parts, et.Name, "load", "*")
	if err := l.cache.InvalidatePattern(ctx, l.cache.Key(parts...)); err != nil && !redis.IsCacheDisabled(err) {
		return fmt.Errorf("invalidate %s: %w", et.Name, err)
	}
	return nil
}

func (l *CachedLoader) store(ctx context.Context, log *slog.Logger, key string, entity schema.Entity, tree *relpath.Node) {
	data, err := msgpack.Marshal(entity)
	if err != nil {
		log.Warn("cache encode failed", slog.Any("error", err))
		return
	}
	deps, err := l.registry.Dependencies(entity, tree)
	if err != nil {
		log.Warn("collecting cache dependencies failed", slog.Any("error", err))
		return
	}
	if err := l.cache.SetWithDependencies(ctx, key, data, deps); err != nil && !redis.IsCacheDisabled(err) {
		log.Warn("cache set failed", slog.String("key", key), slog.Any("error", err))
	}
}

// cacheKey is "<prefix>:<namespace>:<Type>:load:<id>:<hash of relation paths>"
func (l *CachedLoader) cacheKey(et *schema.EntityType, id interface{}, tree *relpath.Node) string {
	paths := tree.Leaves()
	sort.Strings(paths)
	hash := fmt.Sprintf("%016x", xxhash.Sum64String(strings.Join(paths, ",")))

	parts := make([]string, 0, 5)
	if l.namespace != "" {
		parts = append(parts, l.namespace)
	}
	parts = append(parts, et.Name, "load", fmt.Sprintf("%v", id), hash[:cacheKeyHashLength])
	return l.cache.Key(parts...)
}
