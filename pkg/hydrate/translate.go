package hydrate

import (
	"context"
	"reflect"

	"github.com/ammar0144/hydra4go/pkg/relpath"
	"github.com/ammar0144/hydra4go/pkg/schema"
)

// translate flattens the best matching translation onto every translatable
// entity along tree, root included. Entities without loaded translations are
// left untouched.
func (h *Hydrator) translate(ctx context.Context, root schema.Entity, tree *relpath.Node) {
	langs := RequestContextFrom(ctx).languages(h.config.DefaultLanguageCode)

	// Walk only fails when the visitor does
	_ = h.registry.Walk(root, tree, func(et *schema.EntityType, v reflect.Value) error {
		if !et.Translatable() {
			return nil
		}
		if tr, ok := selectTranslation(et, v, langs); ok {
			et.ApplyTranslation(v, tr)
		}
		return nil
	})
}

// selectTranslation picks the first translation matching langs in order,
// falling back to the first available one
func selectTranslation(et *schema.EntityType, v reflect.Value, langs []string) (reflect.Value, bool) {
	trs := et.Translations(v)
	if len(trs) == 0 {
		return reflect.Value{}, false
	}
	for _, lang := range langs {
		for _, tr := range trs {
			if et.TranslationLanguage(tr) == lang {
				return tr, true
			}
		}
	}
	return trs[0], true
}
