package domain

import (
	"github.com/ammar0144/hydra4go/pkg/schema"
)

// Customer places orders
type Customer struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	FirstName    string `gorm:"size:255" json:"firstName" msgpack:"firstName"`
	LastName     string `gorm:"size:255" json:"lastName" msgpack:"lastName"`
	EmailAddress string `gorm:"size:255;index" json:"emailAddress" msgpack:"emailAddress"`
}

func (Customer) TableName() string { return "customers" }

// Order is a customer's basket or placed order
type Order struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	Code         string       `gorm:"size:32;uniqueIndex" json:"code" msgpack:"code"`
	State        string       `gorm:"size:32" json:"state" msgpack:"state"`
	Active       bool         `json:"active" msgpack:"active"`
	CurrencyCode string       `gorm:"size:3" json:"currencyCode" msgpack:"currencyCode"`
	CustomerID   *int64       `json:"customerId" msgpack:"customerId"`
	Customer     *Customer    `gorm:"foreignKey:CustomerID" json:"customer,omitempty" msgpack:"customer,omitempty"`
	ChannelID    *int64       `json:"channelId" msgpack:"channelId"`
	Channel      *Channel     `gorm:"foreignKey:ChannelID" json:"channel,omitempty" msgpack:"channel,omitempty"`
	Lines        []*OrderLine `gorm:"foreignKey:OrderID" json:"lines" msgpack:"lines,omitempty"`
}

func (Order) TableName() string { return "orders" }

// PriceDependentRelations lists the paths whose variants need current prices
// whenever an order is hydrated through them
func (o *Order) PriceDependentRelations() []string {
	return []string{"lines.productVariant"}
}

// OrderLine is one variant and quantity within an order
type OrderLine struct {
	schema.Loaded `gorm:"-" json:"-" msgpack:"-"`
	Base
	OrderID          int64           `gorm:"index" json:"orderId" msgpack:"orderId"`
	ProductVariantID int64           `gorm:"index" json:"productVariantId" msgpack:"productVariantId"`
	ProductVariant   *ProductVariant `gorm:"foreignKey:ProductVariantID" json:"productVariant,omitempty" msgpack:"productVariant,omitempty"`
	Quantity         int             `json:"quantity" msgpack:"quantity"`
	FeaturedAssetID  *int64          `json:"featuredAssetId" msgpack:"featuredAssetId"`
	FeaturedAsset    *Asset          `gorm:"foreignKey:FeaturedAssetID" json:"featuredAsset,omitempty" msgpack:"featuredAsset,omitempty"`
}

func (OrderLine) TableName() string { return "order_lines" }
