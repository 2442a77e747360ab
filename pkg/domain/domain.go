// Package domain contains the GORM models of the catalog, channel and order
// aggregates that the hydrator works on.
//
// Translatable text fields are not stored on the entity rows. They carry
// `gorm:"-"` and are flattened from the translations collection at read time.
package domain

import (
	"time"

	"github.com/ammar0144/hydra4go/pkg/schema"
)

// Base holds the columns shared by every table
type Base struct {
	ID        int64     `gorm:"primaryKey" json:"id" msgpack:"id"`
	CreatedAt time.Time `json:"createdAt" msgpack:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" msgpack:"updatedAt"`
}

// GetPrimaryKeyValue returns the row id
func (b Base) GetPrimaryKeyValue() interface{} {
	return b.ID
}

// Translation holds the columns shared by every *_translations table
type Translation struct {
	Base
	LanguageCode string `gorm:"size:8;index" json:"languageCode" msgpack:"languageCode"`
	BaseID       int64  `gorm:"index" json:"baseId" msgpack:"baseId"`
}

// Models returns one zero value of every entity, for schema registration and migrations
func Models() []schema.Entity {
	return []schema.Entity{
		&Zone{},
		&TaxCategory{},
		&TaxRate{},
		&Channel{},
		&Asset{},
		&Facet{},
		&FacetTranslation{},
		&FacetValue{},
		&FacetValueTranslation{},
		&Product{},
		&ProductTranslation{},
		&ProductAsset{},
		&ProductOptionGroup{},
		&ProductOptionGroupTranslation{},
		&ProductOption{},
		&ProductOptionTranslation{},
		&ProductVariant{},
		&ProductVariantTranslation{},
		&ProductVariantPrice{},
		&StockLevel{},
		&Customer{},
		&Order{},
		&OrderLine{},
	}
}

// NewRegistry returns a schema registry holding every domain model
func NewRegistry() (*schema.Registry, error) {
	r := schema.NewRegistry()
	if err := r.Register(Models()...); err != nil {
		return nil, err
	}
	return r, nil
}
