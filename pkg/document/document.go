// Package document bundles a node tree with its geometry and a schema
// version. A Document is the unit that is saved, loaded, laid out and
// exported.
package document

import (
	"fmt"

	"github.com/matzehuels/mindmap/pkg/geometry"
	"github.com/matzehuels/mindmap/pkg/tree"
)

// CurrentVersion is the schema version written by this module.
const CurrentVersion = 1

// Document is a mind map: its node tree and the rectangle of every node.
type Document struct {
	Version  int
	Tree     *tree.Store
	Geometry *geometry.Model
}

// New wraps an existing tree and geometry at the current version.
func New(s *tree.Store, g *geometry.Model) *Document {
	return &Document{Version: CurrentVersion, Tree: s, Geometry: g}
}

// Empty returns a document without any node.
func Empty(opts ...tree.Option) *Document {
	return New(tree.New(opts...), geometry.New())
}

// Clone returns a deep copy; image payloads are shared.
func (d *Document) Clone() *Document {
	return &Document{Version: d.Version, Tree: d.Tree.Clone(), Geometry: d.Geometry.Clone()}
}

// Validate checks the tree invariant and that geometry covers exactly the
// live nodes.
func (d *Document) Validate() error {
	if err := d.Tree.Validate(); err != nil {
		return err
	}
	return d.Geometry.CheckConsistent(d.Tree)
}

// Equal reports whether d and o are structurally equal: same root, same nodes
// with the same content and child order, and rectangles within eps.
func (d *Document) Equal(o *Document, eps float64) bool {
	return d.Diff(o, eps) == nil
}

// Diff describes the first difference between d and o, or returns nil when
// they are structurally equal.
func (d *Document) Diff(o *Document, eps float64) error {
	if d.Version != o.Version {
		return fmt.Errorf("version %d != %d", d.Version, o.Version)
	}
	if d.Tree.Root() != o.Tree.Root() {
		return fmt.Errorf("root %q != %q", d.Tree.Root(), o.Tree.Root())
	}
	if d.Tree.Len() != o.Tree.Len() {
		return fmt.Errorf("node count %d != %d", d.Tree.Len(), o.Tree.Len())
	}
	for _, id := range d.Tree.IDs() {
		a, _ := d.Tree.Node(id)
		b, ok := o.Tree.Node(id)
		if !ok {
			return fmt.Errorf("node %q missing", id)
		}
		if !a.Content.Equal(b.Content) {
			return fmt.Errorf("node %q content differs", id)
		}
		if len(a.Children) != len(b.Children) {
			return fmt.Errorf("node %q has %d children, want %d", id, len(b.Children), len(a.Children))
		}
		for i := range a.Children {
			if a.Children[i] != b.Children[i] {
				return fmt.Errorf("node %q child %d is %q, want %q", id, i, b.Children[i], a.Children[i])
			}
		}
		ra, _ := d.Geometry.Get(id)
		rb, _ := o.Geometry.Get(id)
		if !ra.Approx(rb, eps) {
			return fmt.Errorf("node %q rect %v != %v", id, ra, rb)
		}
		if d.Geometry.FixedSize(id) != o.Geometry.FixedSize(id) {
			return fmt.Errorf("node %q fixed size flag differs", id)
		}
	}
	return nil
}

// Stats summarises a document.
type Stats struct {
	Nodes  int
	Depth  int // deepest level, root is 0
	Leaves int
	Images int
	Links  int
}

// Stats counts nodes, leaves, images and links.
func (d *Document) Stats() Stats {
	var st Stats
	if d.Tree.Root() == "" {
		return st
	}
	d.Tree.Walk(d.Tree.Root(), func(id tree.NodeID, depth int) bool {
		st.Nodes++
		st.Depth = max(st.Depth, depth)
		if d.Tree.ChildCount(id) == 0 {
			st.Leaves++
		}
		c, _ := d.Tree.Content(id)
		if c.Image != nil {
			st.Images++
		}
		if c.Link != "" {
			st.Links++
		}
		return true
	})
	return st
}
