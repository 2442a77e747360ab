package hydrate

import (
	"reflect"

	"github.com/ammar0144/hydra4go/pkg/relpath"
	"github.com/ammar0144/hydra4go/pkg/schema"
)

type mergeKey struct {
	ptr  uintptr
	node *relpath.Node
}

// merger folds a freshly loaded graph into the caller's graph along a plan
type merger struct {
	plan    *plan
	visited map[mergeKey]struct{}
}

// merge deep-merges fresh into target. Instances already held by target are
// kept and completed; only missing entities are adopted from fresh.
func merge(et *schema.EntityType, target, fresh reflect.Value, p *plan) {
	m := &merger{plan: p, visited: make(map[mergeKey]struct{})}
	m.merge(et, target, fresh, p.tree, false)
}

func (m *merger) merge(et *schema.EntityType, target, fresh reflect.Value, node *relpath.Node, refetched bool) {
	if target.Pointer() == fresh.Pointer() {
		return
	}
	key := mergeKey{ptr: target.Pointer(), node: node}
	if _, done := m.visited[key]; done {
		return
	}
	m.visited[key] = struct{}{}

	tracker := schema.Tracker(target)
	for _, c := range node.Children() {
		rel, ok := et.Relation(c.Name)
		if !ok {
			continue
		}
		refetch := refetched || m.plan.refetch[c]

		switch rel.Kind {
		case schema.Single:
			m.mergeSingle(rel, target, fresh, c, refetch)
		case schema.Collection:
			m.mergeCollection(rel, target, fresh, c, refetch)
		}
		tracker.MarkRelationLoaded(rel.Name)
	}
}

func (m *merger) mergeSingle(rel *schema.Relation, target, fresh reflect.Value, node *relpath.Node, refetch bool) {
	tv := rel.Value(target)
	fv := rel.Value(fresh)

	switch {
	case fv.IsNil():
		// keep whatever target holds
	case tv.IsNil():
		rel.Set(target, fv)
	default:
		tk, tok := schema.KeyOf(tv)
		fk, fok := schema.KeyOf(fv)
		if tok && fok && tk == fk {
			m.merge(rel.Target, tv, fv, node, refetch)
			return
		}
		rel.Set(target, fv)
	}
}

// mergeCollection reconciles both sides by primary key. Shared entries keep the
// target instance; a refetched collection takes the fresh order, otherwise the
// target order is kept and fresh-only entries are appended.
func (m *merger) mergeCollection(rel *schema.Relation, target, fresh reflect.Value, node *relpath.Node, refetch bool) {
	targets := rel.Members(target)
	freshes := rel.Members(fresh)

	out := rel.MakeSlice(len(targets) + len(freshes))
	seen := make(map[interface{}]struct{}, cap(targets)+len(freshes))

	add := func(v reflect.Value) bool {
		k, ok := schema.KeyOf(v)
		if !ok {
			out = reflect.Append(out, v)
			return true
		}
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		out = reflect.Append(out, v)
		return true
	}

	if refetch {
		byKey := indexByKey(targets)
		for _, f := range freshes {
			if k, ok := schema.KeyOf(f); ok {
				if t, shared := byKey[k]; shared {
					if add(t) {
						m.merge(rel.Target, t, f, node, refetch)
					}
					continue
				}
			}
			add(f)
		}
		for _, t := range targets {
			add(t)
		}
	} else {
		byKey := indexByKey(freshes)
		for _, t := range targets {
			if add(t) {
				if k, ok := schema.KeyOf(t); ok {
					if f, shared := byKey[k]; shared {
						m.merge(rel.Target, t, f, node, refetch)
					}
				}
			}
		}
		for _, f := range freshes {
			add(f)
		}
	}

	rel.Set(target, out)
}

// indexByKey maps each primary key to its first member
func indexByKey(members []reflect.Value) map[interface{}]reflect.Value {
	idx := make(map[interface{}]reflect.Value, len(members))
	for _, v := range members {
		if k, ok := schema.KeyOf(v); ok {
			if _, dup := idx[k]; !dup {
				idx[k] = v
			}
		}
	}
	return idx
}
