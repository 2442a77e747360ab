package domain

import (
	"github.com/ammar0144/hydra4go/pkg/schema"
)

// Asset is an uploaded media file
type Asset struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	Name     string `gorm:"size:255" json:"name" msgpack:"name"`
	Type     string `gorm:"size:32" json:"type" msgpack:"type"`
	MimeType string `gorm:"size:128" json:"mimeType" msgpack:"mimeType"`
	Width    int    `json:"width" msgpack:"width"`
	Height   int    `json:"height" msgpack:"height"`
	FileSize int64  `json:"fileSize" msgpack:"fileSize"`
	Source   string `gorm:"size:512" json:"source" msgpack:"source"`
	Preview  string `gorm:"size:512" json:"preview" msgpack:"preview"`
}

func (Asset) TableName() string { return "assets" }

// Facet groups facet values, e.g. "brand"
type Facet struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	Code         string              `gorm:"size:64" json:"code" msgpack:"code"`
	Name         string              `gorm:"-" json:"name" msgpack:"name" hydrate:"translatable"`
	Translations []*FacetTranslation `gorm:"foreignKey:BaseID" json:"translations" msgpack:"translations,omitempty"`
	Values       []*FacetValue       `gorm:"foreignKey:FacetID" json:"values" msgpack:"values,omitempty"`
}

func (Facet) TableName() string { return "facets" }

// FacetTranslation holds the localized name of a facet
type FacetTranslation struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Translation
	Name string `gorm:"size:255" json:"name" msgpack:"name"`
}

func (FacetTranslation) TableName() string { return "facet_translations" }

// FacetValue is one value of a facet, e.g. "brand: Acme"
type FacetValue struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	Code         string                   `gorm:"size:64" json:"code" msgpack:"code"`
	Name         string                   `gorm:"-" json:"name" msgpack:"name" hydrate:"translatable"`
	FacetID      int64                    `gorm:"index" json:"facetId" msgpack:"facetId"`
	Facet        *Facet                   `gorm:"foreignKey:FacetID" json:"facet,omitempty" msgpack:"facet,omitempty"`
	Translations []*FacetValueTranslation `gorm:"foreignKey:BaseID" json:"translations" msgpack:"translations,omitempty"`
}

func (FacetValue) TableName() string { return "facet_values" }

// FacetValueTranslation holds the localized name of a facet value
type FacetValueTranslation struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Translation
	Name string `gorm:"size:255" json:"name" msgpack:"name"`
}

func (FacetValueTranslation) TableName() string { return "facet_value_translations" }

// Product is the catalog entry that owns variants, assets and option groups
type Product struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	Enabled         bool                  `json:"enabled" msgpack:"enabled"`
	Name            string                `gorm:"-" json:"name" msgpack:"name" hydrate:"translatable"`
	Slug            string                `gorm:"-" json:"slug" msgpack:"slug" hydrate:"translatable"`
	Description     string                `gorm:"-" json:"description" msgpack:"description" hydrate:"translatable"`
	Translations    []*ProductTranslation `gorm:"foreignKey:BaseID" json:"translations" msgpack:"translations,omitempty"`
	FeaturedAssetID *int64                `json:"featuredAssetId" msgpack:"featuredAssetId"`
	FeaturedAsset   *Asset                `gorm:"foreignKey:FeaturedAssetID" json:"featuredAsset,omitempty" msgpack:"featuredAsset,omitempty"`
	Assets          []*ProductAsset       `gorm:"foreignKey:ProductID" json:"assets" msgpack:"assets,omitempty"`
	Variants        []*ProductVariant     `gorm:"foreignKey:ProductID" json:"variants" msgpack:"variants,omitempty"`
	OptionGroups    []*ProductOptionGroup `gorm:"foreignKey:ProductID" json:"optionGroups" msgpack:"optionGroups,omitempty"`
	FacetValues     []*FacetValue         `gorm:"many2many:product_facet_values" json:"facetValues" msgpack:"facetValues,omitempty"`
	Channels        []*Channel            `gorm:"many2many:product_channels" json:"channels" msgpack:"channels,omitempty"`
}

func (Product) TableName() string { return "products" }

// ProductTranslation holds the localized texts of a product
type ProductTranslation struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Translation
	Name        string `gorm:"size:255" json:"name" msgpack:"name"`
	Slug        string `gorm:"size:255" json:"slug" msgpack:"slug"`
	Description string `gorm:"type:text" json:"description" msgpack:"description"`
}

func (ProductTranslation) TableName() string { return "product_translations" }

// ProductAsset joins a product to an asset with a display position
type ProductAsset struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	ProductID int64  `gorm:"index" json:"productId" msgpack:"productId"`
	AssetID   int64  `gorm:"index" json:"assetId" msgpack:"assetId"`
	Asset     *Asset `gorm:"foreignKey:AssetID" json:"asset,omitempty" msgpack:"asset,omitempty"`
	Position  int    `json:"position" msgpack:"position"`
}

func (ProductAsset) TableName() string { return "product_assets" }

// ProductOptionGroup is a dimension along which variants differ, e.g. "size"
type ProductOptionGroup struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	Code         string                           `gorm:"size:64" json:"code" msgpack:"code"`
	Name         string                           `gorm:"-" json:"name" msgpack:"name" hydrate:"translatable"`
	ProductID    int64                            `gorm:"index" json:"productId" msgpack:"productId"`
	Translations []*ProductOptionGroupTranslation `gorm:"foreignKey:BaseID" json:"translations" msgpack:"translations,omitempty"`
	Options      []*ProductOption                 `gorm:"foreignKey:GroupID" json:"options" msgpack:"options,omitempty"`
}

func (ProductOptionGroup) TableName() string { return "product_option_groups" }

// ProductOptionGroupTranslation holds the localized name of an option group
type ProductOptionGroupTranslation struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Translation
	Name string `gorm:"size:255" json:"name" msgpack:"name"`
}

func (ProductOptionGroupTranslation) TableName() string { return "product_option_group_translations" }

// ProductOption is one value of an option group, e.g. "large"
type ProductOption struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	Code         string                      `gorm:"size:64" json:"code" msgpack:"code"`
	Name         string                      `gorm:"-" json:"name" msgpack:"name" hydrate:"translatable"`
	GroupID      int64                       `gorm:"index" json:"groupId" msgpack:"groupId"`
	Group        *ProductOptionGroup         `gorm:"foreignKey:GroupID" json:"group,omitempty" msgpack:"group,omitempty"`
	Translations []*ProductOptionTranslation `gorm:"foreignKey:BaseID" json:"translations" msgpack:"translations,omitempty"`
}

func (ProductOption) TableName() string { return "product_options" }

// ProductOptionTranslation holds the localized name of an option
type ProductOptionTranslation struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Translation
	Name string `gorm:"size:255" json:"name" msgpack:"name"`
}

func (ProductOptionTranslation) TableName() string { return "product_option_translations" }

// StockLevel is the stock of a variant at one stock location
type StockLevel struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	ProductVariantID int64 `gorm:"index" json:"productVariantId" msgpack:"productVariantId"`
	StockLocationID  int64 `gorm:"index" json:"stockLocationId" msgpack:"stockLocationId"`
	StockOnHand      int   `json:"stockOnHand" msgpack:"stockOnHand"`
	StockAllocated   int   `json:"stockAllocated" msgpack:"stockAllocated"`
}

func (StockLevel) TableName() string { return "stock_levels" }
