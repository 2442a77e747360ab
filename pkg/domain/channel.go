package domain

import (
	"github.com/ammar0144/hydra4go/pkg/schema"
	"github.com/shopspring/decimal"
)

// Zone is a geographic grouping used for tax and shipping
type Zone struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	Name string `gorm:"size:255" json:"name" msgpack:"name"`
}

func (Zone) TableName() string { return "zones" }

// TaxCategory groups variants taxed at the same rate
type TaxCategory struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	Name      string `gorm:"size:255" json:"name" msgpack:"name"`
	IsDefault bool   `json:"isDefault" msgpack:"isDefault"`
}

func (TaxCategory) TableName() string { return "tax_categories" }

// TaxRate is the percentage applied to a tax category within a zone
type TaxRate struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	Name       string          `gorm:"size:255" json:"name" msgpack:"name"`
	Enabled    bool            `json:"enabled" msgpack:"enabled"`
	Value      decimal.Decimal `gorm:"type:decimal(5,2)" json:"value" msgpack:"value"`
	CategoryID int64           `gorm:"index" json:"categoryId" msgpack:"categoryId"`
	Category   *TaxCategory    `gorm:"foreignKey:CategoryID" json:"category,omitempty" msgpack:"category,omitempty"`
	ZoneID     int64           `gorm:"index" json:"zoneId" msgpack:"zoneId"`
	Zone       *Zone           `gorm:"foreignKey:ZoneID" json:"zone,omitempty" msgpack:"zone,omitempty"`
}

func (TaxRate) TableName() string { return "tax_rates" }

// Channel is a sales channel with its own defaults for language, currency and tax zone
type Channel struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	Code                  string `gorm:"size:64;uniqueIndex" json:"code" msgpack:"code"`
	Token                 string `gorm:"size:64;uniqueIndex" json:"token" msgpack:"token"`
	DefaultLanguageCode   string `gorm:"size:8" json:"defaultLanguageCode" msgpack:"defaultLanguageCode"`
	DefaultCurrencyCode   string `gorm:"size:3" json:"defaultCurrencyCode" msgpack:"defaultCurrencyCode"`
	DefaultTaxZoneID      *int64 `json:"defaultTaxZoneId" msgpack:"defaultTaxZoneId"`
	DefaultTaxZone        *Zone  `gorm:"foreignKey:DefaultTaxZoneID" json:"defaultTaxZone,omitempty" msgpack:"defaultTaxZone,omitempty"`
	DefaultShippingZoneID *int64 `json:"defaultShippingZoneId" msgpack:"defaultShippingZoneId"`
	DefaultShippingZone   *Zone  `gorm:"foreignKey:DefaultShippingZoneID" json:"defaultShippingZone,omitempty" msgpack:"defaultShippingZone,omitempty"`
}

func (Channel) TableName() string { return "channels" }

// TaxZoneKey returns the id of the channel's default tax zone, or nil
func (c *Channel) TaxZoneKey() interface{} {
	if c == nil || c.DefaultTaxZoneID == nil {
		return nil
	}
	return *c.DefaultTaxZoneID
}
