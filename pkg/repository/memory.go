package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/ammar0144/hydra4go/pkg/hydrate"
	"github.com/ammar0144/hydra4go/pkg/relpath"
	"github.com/ammar0144/hydra4go/pkg/schema"
)

// MemoryLoader serves loads from fully populated graphs held in memory.
// Each load returns a fresh copy carrying only the requested relations,
// which makes it a stand-in for a database in tests and fixtures.
type MemoryLoader struct {
	registry *schema.Registry

	mu     sync.RWMutex
	graphs map[string]map[interface{}]schema.Entity
	calls  []LoadCall
}

// LoadCall records one LoadWithRelations invocation
type LoadCall struct {
	EntityType string
	ID         interface{}
	Relations  []string
}

var _ hydrate.Loader = (*MemoryLoader)(nil)

// NewMemoryLoader creates an empty loader
func NewMemoryLoader(registry *schema.Registry) *MemoryLoader {
	return &MemoryLoader{
		registry: registry,
		graphs:   make(map[string]map[interface{}]schema.Entity),
	}
}

// Put stores complete graphs, replacing any previous graph with the same type and key
func (l *MemoryLoader) Put(entities ...schema.Entity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range entities {
		et, err := l.registry.TypeOf(e)
		if err != nil {
			return err
		}
		key, ok := schema.NormalizeKey(e.GetPrimaryKeyValue())
		if !ok {
			return fmt.Errorf("%w: %s", hydrate.ErrNoPrimaryKey, et.Name)
		}
		byKey := l.graphs[et.Name]
		if byKey == nil {
			byKey = make(map[interface{}]schema.Entity)
			l.graphs[et.Name] = byKey
		}
		byKey[key] = e
	}
	return nil
}

// Delete removes a stored graph
func (l *MemoryLoader) Delete(entityType string, id interface{}) {
	key, _ := schema.NormalizeKey(id)

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.graphs[entityType], key)
}

// LoadWithRelations projects the stored graph onto relations
func (l *MemoryLoader) LoadWithRelations(ctx context.Context, entityType string, id interface{}, relations []string) (schema.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.calls = append(l.calls, LoadCall{
		EntityType: entityType,
		ID:         id,
		Relations:  append([]string(nil), relations...),
	})
	l.mu.Unlock()

	if _, err := l.registry.Lookup(entityType); err != nil {
		return nil, err
	}
	tree, err := relpath.Parse(relations)
	if err != nil {
		return nil, err
	}

	key, _ := schema.NormalizeKey(id)
	l.mu.RLock()
	stored, ok := l.graphs[entityType][key]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s %v: %w", entityType, id, hydrate.ErrNotFound)
	}

	return l.registry.Project(stored, tree)
}

// Calls returns every load made so far
func (l *MemoryLoader) Calls() []LoadCall {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]LoadCall(nil), l.calls...)
}

// ResetCalls forgets recorded loads
func (l *MemoryLoader) ResetCalls() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}
