package hydrate

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ammar0144/hydra4go/pkg/schema"
)

// fetch issues the single loader call for a non-empty plan and checks the answer
func (h *Hydrator) fetch(ctx context.Context, et *schema.EntityType, root schema.Entity, p *plan) (schema.Entity, error) {
	id := root.GetPrimaryKeyValue()
	key, ok := schema.NormalizeKey(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, et.Name)
	}

	h.metrics.fetched(et.Name)
	fresh, err := h.loader.LoadWithRelations(ctx, et.Name, id, p.tree.Leaves())
	if err != nil {
		return nil, fmt.Errorf("load %s %v: %w", et.Name, id, err)
	}
	if fresh == nil || reflect.ValueOf(fresh).IsNil() {
		return nil, fmt.Errorf("load %s %v: %w", et.Name, id, ErrNotFound)
	}

	if reflect.TypeOf(fresh) != reflect.TypeOf(root) {
		return nil, fmt.Errorf("%w: want %T, loader returned %T", ErrRootMismatch, root, fresh)
	}
	if got, _ := schema.NormalizeKey(fresh.GetPrimaryKeyValue()); got != key {
		return nil, fmt.Errorf("%w: want %s %v, loader returned %v", ErrRootMismatch, et.Name, id, fresh.GetPrimaryKeyValue())
	}
	return fresh, nil
}
