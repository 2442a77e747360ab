package schema

// Entity interface defines the minimal contract for hydratable entities
// GORM models implement this so loaders and caches can address them
type Entity interface {
	// TableName returns the database table name for this entity
	// This should match GORM's table naming convention
	TableName() string

	// GetPrimaryKeyValue returns the actual value of the primary key
	// Used for identity reconciliation, cache keys and dependency tracking
	GetPrimaryKeyValue() interface{}
}

// LoadTracker records which relations of an entity instance were populated
// by a load operation. An empty collection that was never marked loaded is
// treated as "not loaded" rather than "genuinely empty".
type LoadTracker interface {
	RelationLoaded(name string) bool
	MarkRelationLoaded(names ...string)
	ResetLoaded()
}

// Loaded is embedded in every registered entity to implement LoadTracker.
// It has no exported fields, so GORM, JSON and msgpack ignore it.
type Loaded struct {
	relations map[string]struct{}
}

// RelationLoaded reports whether the named relation was marked loaded
func (l *Loaded) RelationLoaded(name string) bool {
	if l == nil || l.relations == nil {
		return false
	}
	_, ok := l.relations[name]
	return ok
}

// MarkRelationLoaded marks the named relations as loaded
func (l *Loaded) MarkRelationLoaded(names ...string) {
	if l.relations == nil {
		l.relations = make(map[string]struct{}, len(names))
	}
	for _, n := range names {
		l.relations[n] = struct{}{}
	}
}

// ResetLoaded forgets every loaded mark
func (l *Loaded) ResetLoaded() {
	l.relations = nil
}

// LoadedRelations returns the marked relation names in no particular order
func (l *Loaded) LoadedRelations() []string {
	out := make([]string, 0, len(l.relations))
	for n := range l.relations {
		out = append(out, n)
	}
	return out
}
