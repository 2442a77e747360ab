package domain

import (
	"github.com/ammar0144/hydra4go/pkg/schema"
)

// ProductVariant is a purchasable SKU of a product
type ProductVariant struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	ProductID    int64                        `gorm:"index" json:"productId" msgpack:"productId"`
	Product      *Product                     `gorm:"foreignKey:ProductID" json:"product,omitempty" msgpack:"product,omitempty"`
	SKU          string                       `gorm:"size:64;uniqueIndex" json:"sku" msgpack:"sku"`
	Enabled      bool                         `json:"enabled" msgpack:"enabled"`
	Name         string                       `gorm:"-" json:"name" msgpack:"name" hydrate:"translatable"`
	Translations []*ProductVariantTranslation `gorm:"foreignKey:BaseID" json:"translations" msgpack:"translations,omitempty"`

	// Price is the list price in minor units. CurrencyCode and PriceWithTax
	// are derived per request from the channel prices and tax context.
	Price        int64  `json:"price" msgpack:"price"`
	CurrencyCode string `gorm:"-" json:"currencyCode" msgpack:"currencyCode"`
	PriceWithTax *int64 `gorm:"-" json:"priceWithTax" msgpack:"priceWithTax"`

	TaxCategoryID        int64                  `gorm:"index" json:"taxCategoryId" msgpack:"taxCategoryId"`
	TaxCategory          *TaxCategory           `gorm:"foreignKey:TaxCategoryID" json:"taxCategory,omitempty" msgpack:"taxCategory,omitempty"`
	ProductVariantPrices []*ProductVariantPrice `gorm:"foreignKey:VariantID" json:"productVariantPrices" msgpack:"productVariantPrices,omitempty"`
	Options              []*ProductOption       `gorm:"many2many:product_variant_options" json:"options" msgpack:"options,omitempty"`
	FacetValues          []*FacetValue          `gorm:"many2many:product_variant_facet_values" json:"facetValues" msgpack:"facetValues,omitempty"`
	StockLevels          []*StockLevel          `gorm:"foreignKey:ProductVariantID" json:"stockLevels" msgpack:"stockLevels,omitempty"`
	FeaturedAssetID      *int64                 `json:"featuredAssetId" msgpack:"featuredAssetId"`
	FeaturedAsset        *Asset                 `gorm:"foreignKey:FeaturedAssetID" json:"featuredAsset,omitempty" msgpack:"featuredAsset,omitempty"`

	list listPrice `gorm:"-"`
}

// listPrice is the stored price captured before the first SetPrices overwrites it
type listPrice struct {
	set      bool
	price    int64
	currency string
}

func (ProductVariant) TableName() string { return "product_variants" }

// PriceTaxCategory returns the id of the variant's tax category, or nil when unset
func (v *ProductVariant) PriceTaxCategory() interface{} {
	if v.TaxCategory != nil && v.TaxCategory.ID != 0 {
		return v.TaxCategory.ID
	}
	if v.TaxCategoryID != 0 {
		return v.TaxCategoryID
	}
	return nil
}

// PriceFor selects the channel price matching channelID and currencyCode.
// An empty currency matches any. Falls back to the list price, which earlier
// SetPrices calls do not change.
func (v *ProductVariant) PriceFor(channelID interface{}, currencyCode string) (int64, string) {
	want, hasChannel := schema.NormalizeKey(channelID)
	if hasChannel {
		for _, p := range v.ProductVariantPrices {
			if p == nil {
				continue
			}
			got, ok := schema.NormalizeKey(p.ChannelID)
			if !ok || got != want {
				continue
			}
			if currencyCode == "" || p.CurrencyCode == currencyCode {
				return p.Price, p.CurrencyCode
			}
		}
	}
	price, currency := v.basePrice()
	if currency == "" {
		currency = currencyCode
	}
	return price, currency
}

func (v *ProductVariant) basePrice() (int64, string) {
	if v.list.set {
		return v.list.price, v.list.currency
	}
	return v.Price, v.CurrencyCode
}

// SetPrices stores the derived price fields
func (v *ProductVariant) SetPrices(price int64, currencyCode string, priceWithTax *int64) {
	if !v.list.set {
		v.list = listPrice{set: true, price: v.Price, currency: v.CurrencyCode}
	}
	v.Price = price
	v.CurrencyCode = currencyCode
	v.PriceWithTax = priceWithTax
}

// PricingRelations names the relations PriceFor and PriceTaxCategory read
func (v *ProductVariant) PricingRelations() []string {
	return []string{"productVariantPrices", "taxCategory"}
}

// ProductVariantTranslation holds the localized name of a variant
type ProductVariantTranslation struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Translation
	Name string `gorm:"size:255" json:"name" msgpack:"name"`
}

func (ProductVariantTranslation) TableName() string { return "product_variant_translations" }

// ProductVariantPrice is the price of a variant in one channel and currency
type ProductVariantPrice struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	VariantID    int64  `gorm:"index" json:"variantId" msgpack:"variantId"`
	ChannelID    int64  `gorm:"index" json:"channelId" msgpack:"channelId"`
	CurrencyCode string `gorm:"size:3" json:"currencyCode" msgpack:"currencyCode"`
	Price        int64  `json:"price" msgpack:"price"`
}

func (ProductVariantPrice) TableName() string { return "product_variant_prices" }
