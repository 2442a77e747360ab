package hydrate

import (
	"context"
	"errors"
	"log/slog"
	"reflect"

	"github.com/shopspring/decimal"

	"github.com/ammar0144/hydra4go/pkg/relpath"
	"github.com/ammar0144/hydra4go/pkg/schema"
)

type rateKey struct {
	zone     interface{}
	category interface{}
}

type rateResult struct {
	rate decimal.Decimal
	ok   bool
}

type priceUpdate struct {
	target   Priceable
	price    int64
	currency string
	withTax  *int64
}

// applyPrices sets the channel price and priceWithTax on every Priceable
// entity along tree. A missing tax zone, category or rate leaves
// priceWithTax nil; only context cancellation fails the call. Every price is
// resolved before the first one is written, so a failed call changes no price.
func (h *Hydrator) applyPrices(ctx context.Context, root schema.Entity, tree *relpath.Node, log *slog.Logger) error {
	rc := RequestContextFrom(ctx)
	zone, hasZone := schema.NormalizeKey(rc.TaxZoneID)
	rates := make(map[rateKey]rateResult)
	var updates []priceUpdate

	err := h.registry.Walk(root, tree, func(_ *schema.EntityType, v reflect.Value) error {
		p, ok := v.Interface().(Priceable)
		if !ok {
			return nil
		}

		price, currency := p.PriceFor(rc.ChannelID, rc.CurrencyCode)

		var withTax *int64
		category, hasCategory := schema.NormalizeKey(p.PriceTaxCategory())
		if hasZone && hasCategory && h.taxRates != nil {
			k := rateKey{zone: zone, category: category}
			res, cached := rates[k]
			if !cached {
				rate, err := h.taxRates.TaxRate(ctx, rc.TaxZoneID, p.PriceTaxCategory())
				switch {
				case err == nil:
					res = rateResult{rate: rate, ok: true}
				case ctx.Err() != nil:
					return ctx.Err()
				case errors.Is(err, ErrTaxRateNotFound):
					log.DebugContext(ctx, "no tax rate", "zone", zone, "taxCategory", category)
				default:
					log.WarnContext(ctx, "tax rate lookup failed", "zone", zone, "taxCategory", category, "error", err)
				}
				rates[k] = res
			}
			if res.ok {
				w := PriceWithTax(price, res.rate)
				withTax = &w
			}
		}

		updates = append(updates, priceUpdate{target: p, price: price, currency: currency, withTax: withTax})
		return nil
	})
	if err != nil {
		return err
	}

	for _, u := range updates {
		u.target.SetPrices(u.price, u.currency, u.withTax)
	}
	return nil
}

// PriceWithTax returns price * (1 + rate) rounded half away from zero to minor units
func PriceWithTax(price int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(price).Mul(decimal.NewFromInt(1).Add(rate)).Round(0).IntPart()
}
