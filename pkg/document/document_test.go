package document

import (
	"testing"

	"github.com/matzehuels/mindmap/pkg/geometry"
	"github.com/matzehuels/mindmap/pkg/tree"
)

func sample(t *testing.T) *Document {
	t.Helper()
	d := Empty(tree.WithIDGenerator(tree.NewSequenceGenerator("n")))
	root, err := d.Tree.CreateRoot(tree.TextContent("root"))
	if err != nil {
		t.Fatal(err)
	}
	a, _ := d.Tree.AddChild(root, tree.TextContent("a"))
	b, _ := d.Tree.AddChild(root, tree.Content{Text: "b", Link: "https://go.dev"})
	c, _ := d.Tree.AddChild(a, tree.ImageContent(&tree.Image{Format: "png", Data: []byte{1, 2, 3}, Width: 3, Height: 1}))
	for i, id := range []tree.NodeID{root, a, b, c} {
		d.Geometry.Set(id, geometry.Rect{X: float64(i * 10), Y: 0, W: 10, H: 10})
	}
	return d
}

func TestValidate(t *testing.T) {
	d := sample(t)
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	d.Geometry.Remove("n2")
	if err := d.Validate(); err == nil {
		t.Error("Validate accepted a node without geometry")
	}
}

func TestCloneAndEqual(t *testing.T) {
	d := sample(t)
	c := d.Clone()
	if err := d.Diff(c, geometry.Epsilon); err != nil {
		t.Fatalf("clone differs: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Document)
	}{
		{"moved", func(d *Document) { _ = d.Geometry.Move("n2", 99, 99) }},
		{"content", func(d *Document) { _ = d.Tree.SetContent("n3", tree.TextContent("B")) }},
		{"order", func(d *Document) { _, _ = d.Tree.MoveSibling("n3", -1) }},
		{"fixed", func(d *Document) { d.Geometry.SetFixedSize("n1", true) }},
		{"removed", func(d *Document) {
			_, _ = d.Tree.Remove("n4")
			d.Geometry.Remove("n4")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := d.Clone()
			tt.mutate(c)
			if d.Equal(c, geometry.Epsilon) {
				t.Error("Equal reported no difference")
			}
		})
	}

	tiny := d.Clone()
	r, _ := tiny.Geometry.Get("n1")
	tiny.Geometry.Set("n1", r.Translate(1e-9, 0))
	if !d.Equal(tiny, geometry.Epsilon) {
		t.Error("Equal rejected a difference within tolerance")
	}
}

func TestStats(t *testing.T) {
	got := sample(t).Stats()
	want := Stats{Nodes: 4, Depth: 2, Leaves: 2, Images: 1, Links: 1}
	if got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
	if got := Empty().Stats(); got != (Stats{}) {
		t.Errorf("empty Stats() = %+v", got)
	}
}
