package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ammar0144/hydra4go/pkg/db"
	"github.com/ammar0144/hydra4go/pkg/hydrate"
	"github.com/ammar0144/hydra4go/pkg/relpath"
	"github.com/ammar0144/hydra4go/pkg/schema"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLoader loads one root entity and the requested relations with GORM preloads.
// Relation paths are translated to Go field paths, so "lines.productVariant"
// becomes Preload("Lines.ProductVariant").
type GormLoader struct {
	db        *gorm.DB
	dbManager *db.Manager
	registry  *schema.Registry
	dbName    string // Database name for cache key isolation
}

var _ hydrate.Loader = (*GormLoader)(nil)

// NewGormLoader creates a loader over the manager's connection
func NewGormLoader(dbManager *db.Manager, registry *schema.Registry) *GormLoader {
	return &GormLoader{
		db:        dbManager.DB(),
		dbManager: dbManager,
		registry:  registry,
		dbName:    extractDatabaseName(dbManager.DB()),
	}
}

// Database returns the name of the connected database
func (l *GormLoader) Database() string {
	return l.dbName
}

// LoadWithRelations fetches entityType by primary key with every path in relations preloaded.
// The returned graph has each requested relation marked loaded, including empty ones.
func (l *GormLoader) LoadWithRelations(ctx context.Context, entityType string, id interface{}, relations []string) (schema.Entity, error) {
	if id == nil {
		return nil, fmt.Errorf("id cannot be nil")
	}

	et, err := l.registry.Lookup(entityType)
	if err != nil {
		return nil, err
	}
	tree, err := relpath.Parse(relations)
	if err != nil {
		return nil, err
	}
	preloads, err := preloadPaths(et, tree)
	if err != nil {
		return nil, err
	}

	// Apply query timeout
	ctx, cancel := l.dbManager.WithQueryTimeout(ctx)
	defer cancel()

	query := l.db.WithContext(ctx)
	for _, p := range preloads {
		query = query.Preload(p)
	}

	entity := et.New()
	result := query.Where(clause.Eq{Column: clause.PrimaryColumn, Value: id}).Take(entity)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s %v: %w", et.Name, id, hydrate.ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", result.Error)
	}

	if err := l.registry.MarkLoaded(entity, tree); err != nil {
		return nil, err
	}
	return entity, nil
}

// preloadPaths returns the GORM field path of every leaf in tree, sorted so
// that runs are deterministic. GORM preloads intermediate associations itself.
func preloadPaths(et *schema.EntityType, tree *relpath.Node) ([]string, error) {
	leaves := tree.Leaves()
	out := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		field, err := et.FieldPath(leaf)
		if err != nil {
			return nil, err
		}
		out = append(out, field)
	}
	sort.Strings(out)
	return out, nil
}

// extractDatabaseName extracts the database name from GORM DB connection
// NOTE: This implementation is MySQL-specific and uses MySQL's SELECT DATABASE() function.
func extractDatabaseName(gormDB *gorm.DB) string {
	if gormDB == nil {
		return "unknown"
	}

	// Get the underlying SQL database
	sqlDB, err := gormDB.DB()
	if err != nil {
		return "unknown"
	}

	// Verify connection is alive before querying
	if err := sqlDB.Ping(); err != nil {
		return "unknown"
	}

	// Try to get database name from GORM's migrator first (preferred method)
	if dbName := gormDB.Migrator().CurrentDatabase(); dbName != "" {
		return dbName
	}

	// Fallback: Execute MySQL-specific query to get current database name
	var dbName string
	result := gormDB.Raw("SELECT DATABASE()").Scan(&dbName)
	if result.Error == nil && dbName != "" {
		return dbName
	}

	// Final fallback
	return "default_db"
}
