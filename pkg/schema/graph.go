package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ammar0144/hydra4go/pkg/relpath"
)

// RelationError reports a path segment that is not a relation of the entity type at that depth
type RelationError struct {
	EntityType string
	Path       string
	Segment    string
}

func (e *RelationError) Error() string {
	return fmt.Sprintf("%s: %q is not a relation of %s (path %q)", ErrInvalidRelation, e.Segment, e.EntityType, e.Path)
}

// Unwrap lets errors.Is match ErrInvalidRelation
func (e *RelationError) Unwrap() error {
	return ErrInvalidRelation
}

// ============================================================================
// ENTITY TYPE METADATA
// ============================================================================

// Relation returns the named relation
func (et *EntityType) Relation(name string) (*Relation, bool) {
	rel, ok := et.relations[name]
	return rel, ok
}

// Relations returns relations in field declaration order
func (et *EntityType) Relations() []*Relation {
	return et.relationOrder
}

// GoType returns the struct type
func (et *EntityType) GoType() reflect.Type {
	return et.goType
}

// New allocates a zero entity of this type
func (et *EntityType) New() Entity {
	return reflect.New(et.goType).Interface().(Entity)
}

// Implements reports whether *T implements the interface type iface
func (et *EntityType) Implements(iface reflect.Type) bool {
	return reflect.PointerTo(et.goType).Implements(iface)
}

// Translatable reports whether the type flattens fields from a translations collection
func (et *EntityType) Translatable() bool {
	return len(et.translatable) > 0
}

// TranslationsRelation returns the translations collection of a translatable type
func (et *EntityType) TranslationsRelation() *Relation {
	if !et.Translatable() {
		return nil
	}
	return et.relations[translationsName]
}

// ResolvePath validates a dotted path against the type and returns the relations along it
func (et *EntityType) ResolvePath(path string) ([]*Relation, error) {
	segments, err := relpath.Split(path)
	if err != nil {
		return nil, err
	}

	rels := make([]*Relation, 0, len(segments))
	cur := et
	for _, s := range segments {
		rel, ok := cur.relations[s]
		if !ok {
			return nil, &RelationError{EntityType: cur.Name, Path: path, Segment: s}
		}
		rels = append(rels, rel)
		cur = rel.Target
	}
	return rels, nil
}

// FieldPath converts "lines.productVariant" to the Go field path "Lines.ProductVariant"
func (et *EntityType) FieldPath(path string) (string, error) {
	rels, err := et.ResolvePath(path)
	if err != nil {
		return "", err
	}
	fields := make([]string, len(rels))
	for i, rel := range rels {
		fields[i] = rel.Field
	}
	return strings.Join(fields, "."), nil
}

// Validate checks every node of tree against the type
func (et *EntityType) Validate(tree *relpath.Node) error {
	return et.validate(tree, nil)
}

func (et *EntityType) validate(node *relpath.Node, prefix []string) error {
	for _, c := range node.Children() {
		path := append(append([]string(nil), prefix...), c.Name)
		rel, ok := et.relations[c.Name]
		if !ok {
			return &RelationError{EntityType: et.Name, Path: relpath.Join(path...), Segment: c.Name}
		}
		if err := rel.Target.validate(c, path); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// RELATION VALUE ACCESS
// ============================================================================

// Value returns the relation field of parent (a pointer to the owning struct)
func (rel *Relation) Value(parent reflect.Value) reflect.Value {
	return parent.Elem().FieldByIndex(rel.index)
}

// Set assigns the relation field of parent
func (rel *Relation) Set(parent, v reflect.Value) {
	parent.Elem().FieldByIndex(rel.index).Set(v)
}

// Members returns the non-nil entities currently held by the relation
func (rel *Relation) Members(parent reflect.Value) []reflect.Value {
	v := rel.Value(parent)
	switch rel.Kind {
	case Single:
		if v.IsNil() {
			return nil
		}
		return []reflect.Value{v}
	default:
		out := make([]reflect.Value, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			if m := v.Index(i); !m.IsNil() {
				out = append(out, m)
			}
		}
		return out
	}
}

// MakeSlice returns an empty, non-nil slice for a collection relation
func (rel *Relation) MakeSlice(capacity int) reflect.Value {
	return reflect.MakeSlice(reflect.SliceOf(rel.targetType), 0, capacity)
}

// Tracker returns the LoadTracker of an entity pointer value
func Tracker(v reflect.Value) LoadTracker {
	return v.Interface().(LoadTracker)
}

// KeyOf returns the normalized primary key of v, or false when the key is unset
func KeyOf(v reflect.Value) (interface{}, bool) {
	return NormalizeKey(v.Interface().(Entity).GetPrimaryKeyValue())
}

// NormalizeKey folds integer kinds together so that 1, int32(1) and int64(1) match.
// Zero values are reported as unset.
func NormalizeKey(key interface{}) (interface{}, bool) {
	if key == nil {
		return nil, false
	}
	v := reflect.ValueOf(key)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if v.IsZero() {
		return nil, false
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if u <= 1<<63-1 {
			return int64(u), true
		}
		return u, true
	case reflect.String:
		return v.String(), true
	}
	if v.Type().Comparable() {
		return v.Interface(), true
	}
	return fmt.Sprintf("%v", v.Interface()), true
}

// ============================================================================
// TRANSLATIONS
// ============================================================================

// Translations returns the loaded translation records of entity
func (et *EntityType) Translations(entity reflect.Value) []reflect.Value {
	rel := et.TranslationsRelation()
	if rel == nil {
		return nil
	}
	return rel.Members(entity)
}

// TranslationLanguage returns the language code of a translation record
func (et *EntityType) TranslationLanguage(tr reflect.Value) string {
	return tr.Elem().FieldByIndex(et.langIndex).String()
}

// ApplyTranslation copies every translatable field from tr onto entity
func (et *EntityType) ApplyTranslation(entity, tr reflect.Value) {
	dst := entity.Elem()
	src := tr.Elem()
	for _, f := range et.translatable {
		dst.FieldByIndex(f.index).Set(src.FieldByIndex(f.sourceIndex))
	}
}

// ============================================================================
// GRAPH TRAVERSAL
// ============================================================================

type visitKey struct {
	ptr  uintptr
	node *relpath.Node
}

// Visitor is called once per entity instance reached by Walk
type Visitor func(et *EntityType, entity reflect.Value) error

// Walk visits root and every entity reachable along tree, each instance once.
// An instance reached through several tree nodes is visited once but traversed
// along every node.
func (r *Registry) Walk(root Entity, tree *relpath.Node, fn Visitor) error {
	et, err := r.TypeOf(root)
	if err != nil {
		return err
	}
	v := reflect.ValueOf(root)
	if v.IsNil() {
		return nil
	}
	w := &walker{
		traversed: make(map[visitKey]struct{}),
		visited:   make(map[uintptr]struct{}),
		fn:        fn,
	}
	return w.walk(et, v, tree)
}

type walker struct {
	traversed map[visitKey]struct{}
	visited   map[uintptr]struct{}
	fn        Visitor
}

func (w *walker) walk(et *EntityType, v reflect.Value, node *relpath.Node) error {
	key := visitKey{ptr: v.Pointer(), node: node}
	if _, done := w.traversed[key]; done {
		return nil
	}
	w.traversed[key] = struct{}{}

	if _, seen := w.visited[v.Pointer()]; !seen {
		w.visited[v.Pointer()] = struct{}{}
		if err := w.fn(et, v); err != nil {
			return err
		}
	}

	for _, c := range node.Children() {
		rel, ok := et.relations[c.Name]
		if !ok {
			continue
		}
		for _, m := range rel.Members(v) {
			if err := w.walk(rel.Target, m, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// MarkLoaded marks every relation named by tree as loaded on each entity that
// owns it. Loaders call this after populating a graph so that empty collections
// are known to be genuinely empty. A nil collection it marks becomes an empty slice,
// since decoders such as msgpack return nil for omitted or empty arrays.
func (r *Registry) MarkLoaded(root Entity, tree *relpath.Node) error {
	et, err := r.TypeOf(root)
	if err != nil {
		return err
	}
	if err := et.Validate(tree); err != nil {
		return err
	}
	v := reflect.ValueOf(root)
	if v.IsNil() {
		return nil
	}
	markLoaded(et, v, tree, make(map[visitKey]struct{}))
	return nil
}

func markLoaded(et *EntityType, v reflect.Value, node *relpath.Node, seen map[visitKey]struct{}) {
	key := visitKey{ptr: v.Pointer(), node: node}
	if _, done := seen[key]; done {
		return
	}
	seen[key] = struct{}{}

	tracker := Tracker(v)
	for _, c := range node.Children() {
		rel := et.relations[c.Name]
		tracker.MarkRelationLoaded(c.Name)
		if rel.Kind == Collection && rel.Value(v).IsNil() {
			rel.Set(v, rel.MakeSlice(0))
		}
		for _, m := range rel.Members(v) {
			markLoaded(rel.Target, m, c, seen)
		}
	}
}

// Project returns a copy of src carrying its scalar fields and only the
// relations named by tree, each marked loaded. Relations are deep-copied;
// the copy shares no entity instance with src.
func (r *Registry) Project(src Entity, tree *relpath.Node) (Entity, error) {
	et, err := r.TypeOf(src)
	if err != nil {
		return nil, err
	}
	if err := et.Validate(tree); err != nil {
		return nil, err
	}
	v := reflect.ValueOf(src)
	if v.IsNil() {
		return nil, fmt.Errorf("%w: nil %s", ErrInvalidModel, et.Name)
	}
	return project(et, v, tree).Interface().(Entity), nil
}

func project(et *EntityType, src reflect.Value, node *relpath.Node) reflect.Value {
	dst := reflect.New(et.goType)
	dst.Elem().Set(src.Elem())
	for _, rel := range et.relationOrder {
		f := dst.Elem().FieldByIndex(rel.index)
		f.Set(reflect.Zero(f.Type()))
	}
	tracker := Tracker(dst)
	tracker.ResetLoaded()

	for _, c := range node.Children() {
		rel := et.relations[c.Name]
		members := rel.Members(src)
		switch rel.Kind {
		case Single:
			if len(members) == 1 {
				rel.Set(dst, project(rel.Target, members[0], c))
			}
		case Collection:
			out := rel.MakeSlice(len(members))
			for _, m := range members {
				out = reflect.Append(out, project(rel.Target, m, c))
			}
			rel.Set(dst, out)
		}
		tracker.MarkRelationLoaded(c.Name)
	}
	return dst
}

// Dependencies maps table name to the primary keys of every entity in the graph.
// Used to register cache dependencies so that changing any member invalidates
// cached graphs containing it.
func (r *Registry) Dependencies(root Entity, tree *relpath.Node) (map[string][]interface{}, error) {
	deps := make(map[string][]interface{})
	err := r.Walk(root, tree, func(et *EntityType, v reflect.Value) error {
		if key, ok := KeyOf(v); ok {
			deps[et.Table] = append(deps[et.Table], key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deps, nil
}
