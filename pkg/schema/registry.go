// Package schema derives relation metadata for entity structs by reflection.
//
// Relations are discovered from field types: a *T field is a single relation
// and a []*T field is a collection relation, where *T is itself an Entity.
// Relation names come from the json tag (or the lower-camel field name) so
// that paths read like "lines.productVariant.stockLevels".
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
)

const (
	tagKey            = "hydrate"
	tagSkip           = "-"
	tagTranslatable   = "translatable"
	translationsName  = "translations"
	languageCodeField = "LanguageCode"
	defaultPrimaryKey = "id"
)

var (
	// ErrUnregisteredEntity is returned when a type or name is not known to the registry
	ErrUnregisteredEntity = errors.New("entity type not registered")

	// ErrInvalidRelation is returned when a path segment is not a relation of the type at that depth
	ErrInvalidRelation = errors.New("invalid relation")

	// ErrInvalidModel is returned when a model cannot be registered
	ErrInvalidModel = errors.New("invalid entity model")

	entityIface  = reflect.TypeOf((*Entity)(nil)).Elem()
	trackerIface = reflect.TypeOf((*LoadTracker)(nil)).Elem()
)

// RelationKind distinguishes single-valued from collection-valued relations
type RelationKind int

const (
	// Single relations hold one *T (nil when absent)
	Single RelationKind = iota
	// Collection relations hold []*T, unique by primary key
	Collection
)

// String returns the string representation of RelationKind
func (k RelationKind) String() string {
	switch k {
	case Single:
		return "single"
	case Collection:
		return "collection"
	default:
		return "unknown"
	}
}

// Relation describes one relation field of an entity type
type Relation struct {
	Name   string // path segment, e.g. "productVariant"
	Field  string // Go field name, e.g. "ProductVariant"
	Kind   RelationKind
	Target *EntityType

	index      []int
	targetType reflect.Type // pointer type *T
}

// TranslatableField is a field flattened from the selected translation
type TranslatableField struct {
	Field       string
	index       []int
	sourceIndex []int
}

// EntityType holds the reflected metadata of one registered entity
type EntityType struct {
	Name       string // Go struct name, also used as the loader's entity type
	Table      string
	PrimaryKey string

	goType        reflect.Type // struct type
	relations     map[string]*Relation
	relationOrder []*Relation
	translatable  []TranslatableField
	langIndex     []int
}

// Registry maps Go types and entity names to reflected metadata.
// Safe for concurrent use once populated.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*EntityType
	byName map[string]*EntityType
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*EntityType),
		byName: make(map[string]*EntityType),
	}
}

// MustRegistry builds a registry from models and panics on error
func MustRegistry(models ...Entity) *Registry {
	r := NewRegistry()
	if err := r.Register(models...); err != nil {
		panic(err)
	}
	return r
}

// Register reflects the given models (pointers to structs).
// Every relation target must be among the models or already registered.
func (r *Registry) Register(models ...Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := make([]*EntityType, 0, len(models))
	for _, m := range models {
		et, err := newEntityType(m)
		if err != nil {
			return err
		}
		if _, exists := r.byType[et.goType]; exists {
			continue
		}
		if other, exists := r.byName[et.Name]; exists {
			return fmt.Errorf("%w: duplicate entity name %q (%v and %v)", ErrInvalidModel, et.Name, other.goType, et.goType)
		}
		r.byType[et.goType] = et
		r.byName[et.Name] = et
		added = append(added, et)
	}

	// Resolve relation targets only after every model is known
	for _, et := range added {
		if err := r.resolve(et); err != nil {
			return err
		}
	}
	return nil
}

// Lookup finds an entity type by name
func (r *Registry) Lookup(name string) (*EntityType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	et, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnregisteredEntity, name)
	}
	return et, nil
}

// TypeOf returns metadata for the dynamic type of entity
func (r *Registry) TypeOf(entity Entity) (*EntityType, error) {
	if entity == nil {
		return nil, fmt.Errorf("%w: nil entity", ErrUnregisteredEntity)
	}
	t := reflect.TypeOf(entity)
	if t.Kind() != reflect.Ptr {
		return nil, fmt.Errorf("%w: %v is not a pointer", ErrInvalidModel, t)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	et, ok := r.byType[t.Elem()]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnregisteredEntity, t)
	}
	return et, nil
}

// Types returns every registered entity type
func (r *Registry) Types() []*EntityType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*EntityType, 0, len(r.byName))
	for _, et := range r.byName {
		out = append(out, et)
	}
	return out
}

func newEntityType(model Entity) (*EntityType, error) {
	t := reflect.TypeOf(model)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T must be a pointer to a struct", ErrInvalidModel, model)
	}
	if !t.Implements(trackerIface) {
		return nil, fmt.Errorf("%w: %v must embed schema.Loaded", ErrInvalidModel, t)
	}

	st := t.Elem()
	tableName := model.TableName()
	if tableName == "" {
		tableName = convertStructNameToTableName(st.Name())
	}

	return &EntityType{
		Name:       st.Name(),
		Table:      tableName,
		PrimaryKey: extractPrimaryKeyName(st),
		goType:     st,
		relations:  make(map[string]*Relation),
	}, nil
}

// resolve discovers relation and translatable fields. Caller holds the lock.
func (r *Registry) resolve(et *EntityType) error {
	for _, f := range reflect.VisibleFields(et.goType) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		tag := f.Tag.Get(tagKey)
		if tag == tagSkip {
			continue
		}

		kind, target, ok := relationShape(f.Type)
		if !ok {
			continue
		}
		targetET, known := r.byType[target.Elem()]
		if !known {
			return fmt.Errorf("%w: %s.%s references %v", ErrUnregisteredEntity, et.Name, f.Name, target)
		}

		rel := &Relation{
			Name:       relationName(f),
			Field:      f.Name,
			Kind:       kind,
			Target:     targetET,
			index:      f.Index,
			targetType: target,
		}
		if _, dup := et.relations[rel.Name]; dup {
			return fmt.Errorf("%w: %s has two relations named %q", ErrInvalidModel, et.Name, rel.Name)
		}
		et.relations[rel.Name] = rel
		et.relationOrder = append(et.relationOrder, rel)
	}

	return et.resolveTranslations()
}

func (et *EntityType) resolveTranslations() error {
	var fields []reflect.StructField
	for _, f := range reflect.VisibleFields(et.goType) {
		if f.IsExported() && !f.Anonymous && hasTagOption(f.Tag.Get(tagKey), tagTranslatable) {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return nil
	}

	tr, ok := et.relations[translationsName]
	if !ok || tr.Kind != Collection {
		return fmt.Errorf("%w: %s has translatable fields but no %q collection", ErrInvalidModel, et.Name, translationsName)
	}
	trType := tr.targetType.Elem()
	lang, ok := trType.FieldByName(languageCodeField)
	if !ok || lang.Type.Kind() != reflect.String {
		return fmt.Errorf("%w: %v needs a string %s field", ErrInvalidModel, trType, languageCodeField)
	}
	et.langIndex = lang.Index

	for _, f := range fields {
		src, ok := trType.FieldByName(f.Name)
		if !ok || src.Type != f.Type {
			return fmt.Errorf("%w: %v has no %s field of type %v", ErrInvalidModel, trType, f.Name, f.Type)
		}
		et.translatable = append(et.translatable, TranslatableField{
			Field:       f.Name,
			index:       f.Index,
			sourceIndex: src.Index,
		})
	}
	return nil
}

// relationShape classifies *T and []*T where *T is an Entity
func relationShape(t reflect.Type) (RelationKind, reflect.Type, bool) {
	switch t.Kind() {
	case reflect.Ptr:
		if t.Elem().Kind() == reflect.Struct && t.Implements(entityIface) {
			return Single, t, true
		}
	case reflect.Slice:
		elem := t.Elem()
		if elem.Kind() == reflect.Ptr && elem.Elem().Kind() == reflect.Struct && elem.Implements(entityIface) {
			return Collection, elem, true
		}
	}
	return 0, nil, false
}

func relationName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		name := strings.Split(tag, ",")[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return lowerCamel(f.Name)
}

func lowerCamel(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	// Lower a leading acronym as a whole: "SKUCodes" -> "skuCodes"
	i := 0
	for i < len(runes) && unicode.IsUpper(runes[i]) {
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(runes[i])
		i++
	}
	return string(runes)
}

func hasTagOption(tag, option string) bool {
	for _, part := range strings.Split(tag, ",") {
		if strings.TrimSpace(part) == option {
			return true
		}
	}
	return false
}

// extractPrimaryKeyName finds the field tagged as primary key or defaults to "id"
func extractPrimaryKeyName(entityType reflect.Type) string {
	fields := reflect.VisibleFields(entityType)

	for _, field := range fields {
		gormTag := field.Tag.Get("gorm")
		if strings.Contains(gormTag, "primaryKey") || strings.Contains(gormTag, "primary_key") {
			return strings.ToLower(field.Name)
		}
	}

	for _, field := range fields {
		fieldName := strings.ToLower(field.Name)
		if fieldName == "id" || fieldName == "uuid" {
			return fieldName
		}
	}

	return defaultPrimaryKey
}

// convertStructNameToTableName converts struct name to table name using GORM conventions
// Only used when an entity returns an empty TableName(); basic English pluralization.
func convertStructNameToTableName(structName string) string {
	var b strings.Builder
	for i, r := range structName {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	tableName := b.String()

	switch {
	case strings.HasSuffix(tableName, "y") && len(tableName) > 1 && !isVowel(tableName[len(tableName)-2]):
		tableName = strings.TrimSuffix(tableName, "y") + "ies"
	case strings.HasSuffix(tableName, "s"), strings.HasSuffix(tableName, "x"),
		strings.HasSuffix(tableName, "z"), strings.HasSuffix(tableName, "ch"),
		strings.HasSuffix(tableName, "sh"):
		tableName += "es"
	default:
		tableName += "s"
	}
	return tableName
}

func isVowel(b byte) bool {
	return b == 'a' || b == 'e' || b == 'i' || b == 'o' || b == 'u'
}
