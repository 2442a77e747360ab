// Package relpath parses dot-separated relation paths into a prefix tree.
//
// Paths such as "lines.productVariant" and "lines.featuredAsset" share the
// "lines" node, and a path that is a prefix of another ("lines") is subsumed
// by the deeper request.
package relpath

import (
	"errors"
	"fmt"
	"strings"
)

// Separator joins relation names inside a path
const Separator = "."

// ErrInvalidPath is returned for empty paths or paths with blank segments
var ErrInvalidPath = errors.New("invalid relation path")

// Node is one relation in the requested tree.
// The root node has an empty Name.
type Node struct {
	Name string

	// Requested is true when some input path ended at this node
	Requested bool

	children []*Node
	index    map[string]int
}

// New returns an empty root node
func New() *Node {
	return &Node{}
}

// Parse builds a prefix tree from the given paths.
// Duplicate and overlapping paths are merged; child order follows first appearance.
func Parse(paths []string) (*Node, error) {
	root := New()
	for _, p := range paths {
		segments, err := Split(p)
		if err != nil {
			return nil, err
		}
		root.Insert(segments...)
	}
	return root, nil
}

// MustParse is like Parse but panics on error. Intended for static path lists.
func MustParse(paths ...string) *Node {
	n, err := Parse(paths)
	if err != nil {
		panic(err)
	}
	return n
}

// Split validates a single path and returns its segments
func Split(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	segments := strings.Split(path, Separator)
	for i, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, fmt.Errorf("%w: blank segment in %q", ErrInvalidPath, path)
		}
		segments[i] = s
	}
	return segments, nil
}

// Join builds a dotted path from segments
func Join(segments ...string) string {
	return strings.Join(segments, Separator)
}

// Insert adds the path given by segments below n and returns the deepest node
func (n *Node) Insert(segments ...string) *Node {
	cur := n
	for _, s := range segments {
		cur = cur.ensureChild(s)
	}
	if len(segments) > 0 {
		cur.Requested = true
	}
	return cur
}

func (n *Node) ensureChild(name string) *Node {
	if c := n.Child(name); c != nil {
		return c
	}
	if n.index == nil {
		n.index = make(map[string]int)
	}
	c := &Node{Name: name}
	n.index[name] = len(n.children)
	n.children = append(n.children, c)
	return c
}

// Child returns the named child or nil
func (n *Node) Child(name string) *Node {
	if n == nil || n.index == nil {
		return nil
	}
	i, ok := n.index[name]
	if !ok {
		return nil
	}
	return n.children[i]
}

// Children returns the child nodes in insertion order
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	return n.children
}

// IsLeaf reports whether n has no children
func (n *Node) IsLeaf() bool {
	return n == nil || len(n.children) == 0
}

// Empty reports whether the tree below n requests nothing
func (n *Node) Empty() bool {
	return n.IsLeaf()
}

// AddChild attaches an existing node, merging it into a same-named child if present
func (n *Node) AddChild(c *Node) *Node {
	existing := n.Child(c.Name)
	if existing == nil {
		if n.index == nil {
			n.index = make(map[string]int)
		}
		n.index[c.Name] = len(n.children)
		n.children = append(n.children, c)
		return c
	}
	existing.Requested = existing.Requested || c.Requested
	for _, gc := range c.children {
		existing.AddChild(gc)
	}
	return existing
}

// Clone returns a deep copy of the tree rooted at n
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Name: n.Name, Requested: n.Requested}
	for _, child := range n.children {
		c.AddChild(child.Clone())
	}
	return c
}

// Leaves returns the dotted path of every leaf below n.
// The deepest requests are enough to describe the whole tree.
func (n *Node) Leaves() []string {
	var out []string
	n.walk(nil, func(prefix []string, node *Node) {
		if node.IsLeaf() {
			out = append(out, Join(prefix...))
		}
	})
	return out
}

// Paths returns the dotted path of every node below n, parents first
func (n *Node) Paths() []string {
	var out []string
	n.walk(nil, func(prefix []string, _ *Node) {
		out = append(out, Join(prefix...))
	})
	return out
}

// Len returns the number of nodes below n
func (n *Node) Len() int {
	count := 0
	n.walk(nil, func([]string, *Node) { count++ })
	return count
}

func (n *Node) walk(prefix []string, fn func([]string, *Node)) {
	if n == nil {
		return
	}
	for _, c := range n.children {
		p := append(append([]string(nil), prefix...), c.Name)
		fn(p, c)
		c.walk(p, fn)
	}
}

// String renders the tree as a sorted-by-insertion list of leaf paths
func (n *Node) String() string {
	return "[" + strings.Join(n.Leaves(), ", ") + "]"
}
