package hydrate

import (
	"reflect"

	"github.com/ammar0144/hydra4go/pkg/relpath"
	"github.com/ammar0144/hydra4go/pkg/schema"
)

// plan is the part of the requested tree that must be fetched.
// Nodes in refetch were missing on at least one parent instance and carry
// their whole requested subtree; other plan nodes are present themselves
// but lead to something missing.
type plan struct {
	tree    *relpath.Node
	refetch map[*relpath.Node]bool
}

func (p *plan) empty() bool {
	return p.tree.Empty()
}

// inspect compares the requested tree with what root already holds
func inspect(et *schema.EntityType, root reflect.Value, requested *relpath.Node) *plan {
	p := &plan{refetch: make(map[*relpath.Node]bool)}
	p.tree = p.inspect(et, []reflect.Value{root}, requested)
	return p
}

func (p *plan) inspect(et *schema.EntityType, parents []reflect.Value, requested *relpath.Node) *relpath.Node {
	out := &relpath.Node{Name: requested.Name, Requested: requested.Requested}

	for _, c := range requested.Children() {
		rel, ok := et.Relation(c.Name)
		if !ok {
			continue
		}

		satisfied := true
		var members []reflect.Value
		seen := make(map[uintptr]struct{})
		for _, parent := range parents {
			if !present(rel, parent) {
				satisfied = false
				break
			}
			for _, m := range rel.Members(parent) {
				if _, dup := seen[m.Pointer()]; dup {
					continue
				}
				seen[m.Pointer()] = struct{}{}
				members = append(members, m)
			}
		}

		if !satisfied {
			p.refetch[out.AddChild(c.Clone())] = true
			continue
		}
		if c.IsLeaf() || len(members) == 0 {
			continue
		}
		if sub := p.inspect(rel.Target, members, c); !sub.IsLeaf() {
			out.AddChild(sub)
		}
	}
	return out
}

// present reports whether a relation is already resolved on one parent instance
func present(rel *schema.Relation, parent reflect.Value) bool {
	v := rel.Value(parent)
	switch rel.Kind {
	case schema.Single:
		if !v.IsNil() {
			_, ok := schema.KeyOf(v)
			return ok
		}
	default:
		if v.Len() > 0 {
			return true
		}
	}
	return schema.Tracker(parent).RelationLoaded(rel.Name)
}
