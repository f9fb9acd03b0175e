package layout

import (
	"math"

	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geometry"
	"github.com/matzehuels/mindmap/pkg/tree"
)

// Engine computes node rectangles. It holds no per-document state and may be
// shared by several documents as long as calls are not concurrent.
type Engine struct {
	cfg  Config
	text TextMeasurer
}

// New creates an engine. A nil measurer falls back to a FixedMeasurer with
// rough Go Regular proportions at 14pt; an empty direction means right.
func New(cfg Config, m TextMeasurer) *Engine {
	if cfg.Direction == "" {
		cfg.Direction = DirectionRight
	}
	if m == nil {
		m = FixedMeasurer{CharWidth: 8, LineHeight: 17}
	}
	return &Engine{cfg: cfg, text: m}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// WithConfig returns an engine with cfg and the same text measurer.
func (e *Engine) WithConfig(cfg Config) *Engine { return New(cfg, e.text) }

// extent is a node size expressed along the layout axes.
type extent struct {
	main, cross float64
}

// subtree holds the per-node results of the measuring pass.
type subtree struct {
	own      extent
	span     float64 // cross-axis extent of the whole subtree
	children float64 // cross-axis extent of the children band, gaps included
}

// LayoutAll lays out the whole document starting at the root.
func (e *Engine) LayoutAll(s *tree.Store, g *geometry.Model) error {
	if s.Root() == "" {
		return nil
	}
	return e.Layout(s, g, s.Root())
}

// Layout recomputes the rectangles of id and all its descendants. The top-left
// corner of id stays where it is; nothing outside the subtree is touched.
//
// Children are stacked along the cross axis in stored order, separated by
// SiblingGap, and every parent is centred on the cross axis over the band its
// children occupy. Each child starts LevelGap past its parent's far edge on
// the main axis. Sibling subtrees therefore occupy disjoint cross-axis bands
// and descendants lie strictly beyond their ancestors, so no two rectangles in
// the subtree overlap.
func (e *Engine) Layout(s *tree.Store, g *geometry.Model, id tree.NodeID) error {
	if !s.Contains(id) {
		return pkgerrors.New(pkgerrors.ErrCodeNotFound, "node %q not found", id)
	}

	info := make(map[tree.NodeID]*subtree)
	for _, n := range s.PostOrder(id) {
		st := &subtree{own: e.extent(s, g, n)}
		kids := s.Children(n)
		for i, c := range kids {
			if i > 0 {
				st.children += e.cfg.SiblingGap
			}
			st.children += info[c].span
		}
		st.span = math.Max(st.own.cross, st.children)
		info[n] = st
	}

	anchor, _ := g.Get(id)
	root := info[id]
	rootW, rootH := e.size(root.own)
	rootCrossOffset := (root.span - root.own.cross) / 2

	var place func(n tree.NodeID, main, crossStart float64)
	place = func(n tree.NodeID, main, crossStart float64) {
		st := info[n]
		center := crossStart + st.span/2
		cross := center - st.own.cross/2 - rootCrossOffset
		g.Set(n, e.rect(anchor, rootW, rootH, st.own, main, cross))

		next := center - st.children/2
		for _, c := range s.Children(n) {
			place(c, main+st.own.main+e.cfg.LevelGap, next)
			next += info[c].span + e.cfg.SiblingGap
		}
	}
	place(id, 0, 0)
	return nil
}

// PlaceNew gives id an initial rectangle next to its parent without moving
// any other node: LevelGap past the parent's far edge, after the subtrees of
// its earlier siblings on the cross axis. A node without a parent is put at
// the origin.
func (e *Engine) PlaceNew(s *tree.Store, g *geometry.Model, id tree.NodeID) error {
	n, ok := s.Node(id)
	if !ok {
		return pkgerrors.New(pkgerrors.ErrCodeNotFound, "node %q not found", id)
	}
	w, h := e.NodeSize(n.Content)
	if n.IsRoot() {
		g.Set(id, geometry.Rect{W: w, H: h})
		return nil
	}
	p, ok := g.Get(n.Parent)
	if !ok {
		return pkgerrors.New(pkgerrors.ErrCodeNotFound, "parent %q has no geometry", n.Parent)
	}

	var band geometry.Rect
	for _, sib := range s.Children(n.Parent) {
		if sib == id {
			continue
		}
		if b, err := e.SubtreeBounds(s, g, sib); err == nil {
			band = band.Union(b)
		}
	}

	r := geometry.Rect{W: w, H: h}
	dir := e.cfg.Direction
	switch dir {
	case DirectionRight:
		r.X = p.Right() + e.cfg.LevelGap
	case DirectionLeft:
		r.X = p.X - e.cfg.LevelGap - w
	case DirectionDown:
		r.Y = p.Bottom() + e.cfg.LevelGap
	case DirectionUp:
		r.Y = p.Y - e.cfg.LevelGap - h
	}
	switch {
	case dir.horizontal() && band.Empty():
		r.Y = p.CenterY() - h/2
	case dir.horizontal():
		r.Y = band.Bottom() + e.cfg.SiblingGap
	case band.Empty():
		r.X = p.CenterX() - w/2
	default:
		r.X = band.Right() + e.cfg.SiblingGap
	}
	g.Set(id, r)
	return nil
}

// SubtreeBounds returns the union of the rectangles of id and its descendants.
func (e *Engine) SubtreeBounds(s *tree.Store, g *geometry.Model, id tree.NodeID) (geometry.Rect, error) {
	if !s.Contains(id) {
		return geometry.Rect{}, pkgerrors.New(pkgerrors.ErrCodeNotFound, "node %q not found", id)
	}
	var b geometry.Rect
	s.Walk(id, func(n tree.NodeID, _ int) bool {
		if r, ok := g.Get(n); ok {
			b = b.Union(r)
		}
		return true
	})
	return b, nil
}

// Overlaps lists every pair of nodes whose rectangles overlap, in sorted
// identifier order. A freshly organized document has none.
func Overlaps(s *tree.Store, g *geometry.Model) [][2]tree.NodeID {
	ids := s.IDs()
	var out [][2]tree.NodeID
	for i, a := range ids {
		ra, ok := g.Get(a)
		if !ok {
			continue
		}
		for _, b := range ids[i+1:] {
			if rb, ok := g.Get(b); ok && ra.Overlaps(rb) {
				out = append(out, [2]tree.NodeID{a, b})
			}
		}
	}
	return out
}

// extent returns the size of n along the layout axes. Nodes with a fixed size
// keep their stored width and height.
func (e *Engine) extent(s *tree.Store, g *geometry.Model, n tree.NodeID) extent {
	var w, h float64
	if r, ok := g.Get(n); ok && g.FixedSize(n) && !r.Empty() {
		w, h = r.W, r.H
	} else {
		c, _ := s.Content(n)
		w, h = e.NodeSize(c)
	}
	if e.cfg.Direction.horizontal() {
		return extent{main: w, cross: h}
	}
	return extent{main: h, cross: w}
}

func (e *Engine) size(x extent) (w, h float64) {
	if e.cfg.Direction.horizontal() {
		return x.main, x.cross
	}
	return x.cross, x.main
}

// rect converts a position along the layout axes, relative to the subtree
// root, into scene coordinates. Reversed directions mirror the main axis
// around the root so the root's top-left corner stays fixed.
func (e *Engine) rect(anchor geometry.Rect, rootW, rootH float64, own extent, main, cross float64) geometry.Rect {
	w, h := e.size(own)
	r := geometry.Rect{W: w, H: h}
	switch e.cfg.Direction {
	case DirectionRight:
		r.X, r.Y = anchor.X+main, anchor.Y+cross
	case DirectionLeft:
		r.X, r.Y = anchor.X+rootW-main-w, anchor.Y+cross
	case DirectionDown:
		r.X, r.Y = anchor.X+cross, anchor.Y+main
	case DirectionUp:
		r.X, r.Y = anchor.X+cross, anchor.Y+rootH-main-h
	}
	return r
}
