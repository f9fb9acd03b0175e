package layout

import (
	"math/rand/v2"
	"strings"
	"testing"

	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geometry"
	"github.com/matzehuels/mindmap/pkg/tree"
)

func testConfig(dir Direction) Config {
	cfg := DefaultConfig()
	cfg.Direction = dir
	cfg.NodePadding = 0
	cfg.MinWidth = 1
	cfg.MinHeight = 1
	return cfg
}

func testEngine(dir Direction) *Engine {
	return New(testConfig(dir), FixedMeasurer{CharWidth: 10, LineHeight: 20})
}

// build creates a store with a root and places every node the way the editor
// does on insertion.
func build(t *testing.T, e *Engine) (*tree.Store, *geometry.Model, tree.NodeID) {
	t.Helper()
	s := tree.New(tree.WithIDGenerator(tree.NewSequenceGenerator("n")))
	g := geometry.New()
	root, err := s.CreateRoot(tree.TextContent("R"))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.PlaceNew(s, g, root); err != nil {
		t.Fatal(err)
	}
	return s, g, root
}

func add(t *testing.T, e *Engine, s *tree.Store, g *geometry.Model, parent tree.NodeID, text string) tree.NodeID {
	t.Helper()
	id, err := s.AddChild(parent, tree.TextContent(text))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.PlaceNew(s, g, id); err != nil {
		t.Fatal(err)
	}
	return id
}

func rect(t *testing.T, g *geometry.Model, id tree.NodeID) geometry.Rect {
	t.Helper()
	r, ok := g.Get(id)
	if !ok {
		t.Fatalf("no geometry for %s", id)
	}
	return r
}

func TestLayoutThreeChildren(t *testing.T) {
	e := testEngine(DirectionRight)
	s, g, root := build(t, e)
	a := add(t, e, s, g, root, "A")
	b := add(t, e, s, g, root, "B")
	c := add(t, e, s, g, root, "C")

	if err := e.LayoutAll(s, g); err != nil {
		t.Fatalf("LayoutAll: %v", err)
	}

	rr, ra, rb, rc := rect(t, g, root), rect(t, g, a), rect(t, g, b), rect(t, g, c)
	if rr.X != 0 || rr.Y != 0 {
		t.Errorf("root moved to (%v, %v), want (0, 0)", rr.X, rr.Y)
	}
	if !(ra.Y < rb.Y && rb.Y < rc.Y) {
		t.Errorf("children not in insertion order: A.Y=%v B.Y=%v C.Y=%v", ra.Y, rb.Y, rc.Y)
	}
	for _, r := range []geometry.Rect{ra, rb, rc} {
		if want := rr.Right() + DefaultLevelGap; r.X != want {
			t.Errorf("child X = %v, want %v", r.X, want)
		}
	}
	if gap := rb.Y - ra.Bottom(); gap != DefaultSiblingGap {
		t.Errorf("sibling gap = %v, want %v", gap, DefaultSiblingGap)
	}
	if span := (ra.Y + rc.Bottom()) / 2; rr.CenterY() != span {
		t.Errorf("root center = %v, want %v", rr.CenterY(), span)
	}
	if pairs := Overlaps(s, g); len(pairs) != 0 {
		t.Errorf("Overlaps = %v, want none", pairs)
	}
}

func TestLayoutRootOnly(t *testing.T) {
	e := testEngine(DirectionRight)
	s, g, root := build(t, e)
	g.Set(root, geometry.Rect{X: 5, Y: 7, W: 1, H: 1})

	if err := e.LayoutAll(s, g); err != nil {
		t.Fatal(err)
	}
	if got, want := rect(t, g, root), (geometry.Rect{X: 5, Y: 7, W: 10, H: 20}); got != want {
		t.Errorf("root = %v, want %v", got, want)
	}
}

func TestLayoutUnknownNode(t *testing.T) {
	e := testEngine(DirectionRight)
	s, g, _ := build(t, e)
	if err := e.Layout(s, g, "missing"); !pkgerrors.Is(err, pkgerrors.ErrCodeNotFound) {
		t.Errorf("Layout(missing) error = %v, want NOT_FOUND", err)
	}
}

// randomTree grows a tree of n nodes with a fixed seed, mixing text lengths,
// multi-line labels and images.
func randomTree(t *testing.T, e *Engine, n int, seed uint64) (*tree.Store, *geometry.Model) {
	t.Helper()
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	s, g, root := build(t, e)
	ids := []tree.NodeID{root}
	for range n {
		parent := ids[r.IntN(len(ids))]
		c := tree.TextContent(strings.Repeat("x", 1+r.IntN(12)))
		if r.IntN(5) == 0 {
			c.Text += "\nsecond line"
		}
		if r.IntN(6) == 0 {
			c.Image = &tree.Image{Format: "png", Width: 20 + r.IntN(400), Height: 10 + r.IntN(200)}
		}
		id, err := s.AddChild(parent, c)
		if err != nil {
			t.Fatal(err)
		}
		if err := e.PlaceNew(s, g, id); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	return s, g
}

func TestLayoutProperties(t *testing.T) {
	for _, dir := range Directions {
		for seed := uint64(1); seed <= 5; seed++ {
			t.Run(string(dir), func(t *testing.T) {
				e := testEngine(dir)
				s, g := randomTree(t, e, 80, seed)
				if err := e.LayoutAll(s, g); err != nil {
					t.Fatal(err)
				}

				if pairs := Overlaps(s, g); len(pairs) != 0 {
					t.Fatalf("%d overlapping pairs, first %v", len(pairs), pairs[0])
				}
				for _, id := range s.IDs() {
					p, ok := s.Parent(id)
					if !ok {
						continue
					}
					pr, cr := rect(t, g, p), rect(t, g, id)
					var ok2 bool
					switch dir {
					case DirectionRight:
						ok2 = cr.X > pr.Right()
					case DirectionLeft:
						ok2 = cr.Right() < pr.X
					case DirectionDown:
						ok2 = cr.Y > pr.Bottom()
					case DirectionUp:
						ok2 = cr.Bottom() < pr.Y
					}
					if !ok2 {
						t.Errorf("child %s %v not beyond parent %s %v", id, cr, p, pr)
					}
				}
			})
		}
	}
}

func TestLayoutDeterministic(t *testing.T) {
	e := testEngine(DirectionDown)
	s, g := randomTree(t, e, 50, 42)
	if err := e.LayoutAll(s, g); err != nil {
		t.Fatal(err)
	}
	first := g.Clone()
	if err := e.LayoutAll(s, g); err != nil {
		t.Fatal(err)
	}
	for _, id := range s.IDs() {
		a, _ := first.Get(id)
		b, _ := g.Get(id)
		if a != b {
			t.Errorf("node %s moved between runs: %v -> %v", id, a, b)
		}
	}
}

func TestLayoutSubtreeScope(t *testing.T) {
	e := testEngine(DirectionRight)
	s, g, root := build(t, e)
	a := add(t, e, s, g, root, "A")
	b := add(t, e, s, g, root, "B")
	add(t, e, s, g, a, "A1")
	add(t, e, s, g, a, "A2")
	if err := e.LayoutAll(s, g); err != nil {
		t.Fatal(err)
	}

	// Drag A somewhere else, then organize only A's subtree.
	if err := g.Move(a, 500, 500); err != nil {
		t.Fatal(err)
	}
	before := g.Clone()
	if err := e.Layout(s, g, a); err != nil {
		t.Fatal(err)
	}

	if got := rect(t, g, a); got.X != 500 || got.Y != 500 {
		t.Errorf("subtree root moved to (%v, %v), want (500, 500)", got.X, got.Y)
	}
	for _, id := range []tree.NodeID{root, b} {
		want, _ := before.Get(id)
		if got := rect(t, g, id); got != want {
			t.Errorf("node %s outside the subtree moved: %v -> %v", id, want, got)
		}
	}
	for _, c := range s.Children(a) {
		if r := rect(t, g, c); r.X <= 500 {
			t.Errorf("child %s at x=%v, want beyond 500", c, r.X)
		}
	}
}

func TestPlaceNew(t *testing.T) {
	e := testEngine(DirectionRight)
	s, g, root := build(t, e)
	g.Set(root, geometry.Rect{X: 0, Y: 100, W: 10, H: 20})

	a := add(t, e, s, g, root, "AAAA")
	ra := rect(t, g, a)
	if ra.X != 70 || ra.CenterY() != 110 {
		t.Errorf("first child = %v, want x=70 centred at y=110", ra)
	}

	a1 := add(t, e, s, g, a, "deep")
	b := add(t, e, s, g, root, "B")
	rb := rect(t, g, b)
	band, _ := e.SubtreeBounds(s, g, a)
	if rb.Y != band.Bottom()+DefaultSiblingGap {
		t.Errorf("second child y = %v, want %v", rb.Y, band.Bottom()+DefaultSiblingGap)
	}
	for _, id := range []tree.NodeID{root, a, a1} {
		if rb.Overlaps(rect(t, g, id)) {
			t.Errorf("new node overlaps %s", id)
		}
	}
}

func TestNodeSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxImageWidth = 100
	e := New(cfg, FixedMeasurer{CharWidth: 10, LineHeight: 20})
	pad := 2 * cfg.NodePadding

	tests := []struct {
		name string
		c    tree.Content
		w, h float64
	}{
		{"empty", tree.Content{}, cfg.MinWidth, cfg.MinHeight},
		{"text", tree.TextContent("hello world"), 110 + pad, 20 + pad},
		{"multi-line", tree.TextContent("ab\nabcd"), 40 + pad, 40 + pad},
		{"image", tree.ImageContent(&tree.Image{Width: 80, Height: 60}), 80 + pad, 60 + pad},
		{"scaled image", tree.ImageContent(&tree.Image{Width: 200, Height: 50}), 100 + pad, 25 + pad},
		{"both", tree.Content{Text: "hi", Image: &tree.Image{Width: 80, Height: 60}}, 80 + pad, 60 + 20 + cfg.ContentGap + pad},
		{"both wide text", tree.Content{Text: "0123456789ab", Image: &tree.Image{Width: 80, Height: 60}}, 120 + pad, 60 + 20 + cfg.ContentGap + pad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := e.NodeSize(tt.c)
			if w != tt.w || h != tt.h {
				t.Errorf("NodeSize = %vx%v, want %vx%v", w, h, tt.w, tt.h)
			}
		})
	}
}

func TestFixedSizeHonoured(t *testing.T) {
	e := testEngine(DirectionRight)
	s, g, root := build(t, e)
	a := add(t, e, s, g, root, "A")
	g.Set(a, geometry.Rect{W: 300, H: 150})
	g.SetFixedSize(a, true)

	if err := e.LayoutAll(s, g); err != nil {
		t.Fatal(err)
	}
	if r := rect(t, g, a); r.W != 300 || r.H != 150 {
		t.Errorf("fixed node resized to %vx%v", r.W, r.H)
	}
}

func TestFontMeasurer(t *testing.T) {
	m, err := NewFontMeasurer(14, 72)
	if err != nil {
		t.Fatalf("NewFontMeasurer: %v", err)
	}
	w1, h1 := m.MeasureText("New Node")
	w2, _ := m.MeasureText("New Node with a much longer label")
	_, h3 := m.MeasureText("one\ntwo")
	if w1 <= 0 || h1 <= 0 {
		t.Fatalf("MeasureText = %vx%v, want positive", w1, h1)
	}
	if w2 <= w1 {
		t.Errorf("longer text not wider: %v <= %v", w2, w1)
	}
	if h3 <= h1 {
		t.Errorf("two lines not taller: %v <= %v", h3, h1)
	}
	if w, h := m.MeasureText(""); w != 0 || h != 0 {
		t.Errorf("empty text = %vx%v, want 0x0", w, h)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"bad direction", func(c *Config) { c.Direction = "sideways" }, true},
		{"zero level gap", func(c *Config) { c.LevelGap = 0 }, true},
		{"negative sibling gap", func(c *Config) { c.SiblingGap = -1 }, true},
		{"zero min width", func(c *Config) { c.MinWidth = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	if _, err := ParseDirection("up"); err != nil {
		t.Errorf("ParseDirection(up): %v", err)
	}
	if _, err := ParseDirection("north"); err == nil {
		t.Error("ParseDirection(north) succeeded")
	}
}
