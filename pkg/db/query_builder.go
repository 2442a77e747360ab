package db

import (
	"fmt"
	"strings"
)

// SELECT builder for the lookups that do not map onto a single gorm model,
// such as the tax rate for a zone and category.
//
// SECURITY WARNING:
// Table and column names are NOT escaped. Only values passed through Where
// are parameterized, so identifiers must be hardcoded or whitelisted.
//
//   db.NewBuilder("tax_rates").Select("value").Where("zone_id", db.Equal, zoneID)

// Operator represents SQL comparison operators
type Operator string

const (
	Equal              Operator = "="
	NotEqual           Operator = "!="
	GreaterThan        Operator = ">"
	GreaterThanOrEqual Operator = ">="
	LessThan           Operator = "<"
	LessThanOrEqual    Operator = "<="
)

// Condition represents a WHERE clause condition
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// Builder assembles a parameterized SELECT whose conditions are joined with AND
type Builder struct {
	table      string
	selectCols []string
	where      []Condition
	orderBy    []string
	limit      int
}

// NewBuilder creates a new query builder.
// SECURITY: table must be a trusted identifier.
func NewBuilder(table string) *Builder {
	return &Builder{
		table:      table,
		selectCols: []string{"*"},
	}
}

// Select sets the columns to select
func (b *Builder) Select(cols ...string) *Builder {
	b.selectCols = cols
	return b
}

// Where adds an AND condition; value is always parameterized
func (b *Builder) Where(field string, operator Operator, value interface{}) *Builder {
	b.where = append(b.where, Condition{Field: field, Operator: operator, Value: value})
	return b
}

// OrderBy adds an ORDER BY clause
func (b *Builder) OrderBy(field string, desc bool) *Builder {
	if desc {
		b.orderBy = append(b.orderBy, field+" DESC")
	} else {
		b.orderBy = append(b.orderBy, field+" ASC")
	}
	return b
}

// Limit sets the LIMIT clause; negative values mean no limit
func (b *Builder) Limit(limit int) *Builder {
	if limit < 0 {
		limit = 0
	}
	b.limit = limit
	return b
}

// BuildSelect renders the query and its positional arguments
func (b *Builder) BuildSelect() (string, []interface{}) {
	var query strings.Builder
	var args []interface{}

	query.WriteString("SELECT ")
	query.WriteString(strings.Join(b.selectCols, ", "))
	query.WriteString(" FROM ")
	query.WriteString(b.table)

	if len(b.where) > 0 {
		conditions := make([]string, len(b.where))
		for i, cond := range b.where {
			conditions[i] = fmt.Sprintf("%s %s ?", cond.Field, cond.Operator)
			args = append(args, cond.Value)
		}
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(conditions, " AND "))
	}

	if len(b.orderBy) > 0 {
		query.WriteString(" ORDER BY ")
		query.WriteString(strings.Join(b.orderBy, ", "))
	}

	if b.limit > 0 {
		fmt.Fprintf(&query, " LIMIT %d", b.limit)
	}

	return query.String(), args
}
