package hydrate

import "context"

// RequestContext is the per-request locale and pricing context
type RequestContext struct {
	// LanguageCode is the language the caller asked for
	LanguageCode string

	// DefaultLanguageCode is the active channel's default language
	DefaultLanguageCode string

	// ChannelID selects channel-specific prices
	ChannelID interface{}

	// CurrencyCode selects the price currency; empty accepts any
	CurrencyCode string

	// TaxZoneID is the zone used to look up tax rates; nil disables priceWithTax
	TaxZoneID interface{}
}

type requestContextKey struct{}

// WithRequestContext attaches rc to ctx
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom returns the RequestContext attached to ctx, or the zero value
func RequestContextFrom(ctx context.Context) RequestContext {
	rc, _ := ctx.Value(requestContextKey{}).(RequestContext)
	return rc
}

// languages returns the translation preference order, skipping blanks and repeats
func (rc RequestContext) languages(fallback string) []string {
	out := make([]string, 0, 3)
	for _, l := range []string{rc.LanguageCode, rc.DefaultLanguageCode, fallback} {
		if l == "" {
			continue
		}
		dup := false
		for _, seen := range out {
			if seen == l {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, l)
		}
	}
	return out
}
