package sink

import (
	"math"
	"strings"

	"github.com/matzehuels/mindmap/pkg/document"
	"github.com/matzehuels/mindmap/pkg/geometry"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/tree"
)

// Margin surrounds the drawing on every side.
const Margin = 20.0

// Point is a position in scene coordinates.
type Point struct{ X, Y float64 }

// Box is one node ready to draw. All coordinates are in scene space, where
// the drawing's top-left corner is the origin.
type Box struct {
	ID        tree.NodeID
	Rect      geometry.Rect
	Lines     []string
	TextRect  geometry.Rect // area the lines are centred in
	Image     *tree.Image
	ImageRect geometry.Rect
	Link      string
	Color     string
	Root      bool
}

// Connector is a cubic bezier from a parent's edge to a child's edge.
type Connector struct {
	From, To       tree.NodeID
	P0, C1, C2, P1 Point
	Color          string
}

// Scene is a document resolved into drawable boxes and connectors, in
// pre-order so parents are drawn before their children.
type Scene struct {
	Width, Height float64
	Style         Style
	Boxes         []Box
	Connectors    []Connector
}

// Build resolves doc into a scene. eng supplies the padding and image
// scaling the layout used.
func Build(doc *document.Document, eng *layout.Engine, st Style) *Scene {
	sc := &Scene{Style: st}
	s, g := doc.Tree, doc.Geometry
	if s.Root() == "" {
		sc.Width, sc.Height = 2*Margin, 2*Margin
		return sc
	}

	bounds := g.Bounds()
	dx, dy := Margin-bounds.X, Margin-bounds.Y
	sc.Width = bounds.W + 2*Margin
	sc.Height = bounds.H + 2*Margin
	cfg := eng.Config()

	s.Walk(s.Root(), func(id tree.NodeID, _ int) bool {
		r, _ := g.Get(id)
		r = r.Translate(dx, dy)
		c, _ := s.Content(id)
		color := st.BranchColor(s.BranchIndex(id))
		sc.Boxes = append(sc.Boxes, buildBox(id, r, c, color, id == s.Root(), eng, cfg))

		if p, ok := s.Parent(id); ok {
			pr, _ := g.Get(p)
			sc.Connectors = append(sc.Connectors, connect(p, id, pr.Translate(dx, dy), r, color, st.CurveFactor))
		}
		return true
	})
	return sc
}

func buildBox(id tree.NodeID, r geometry.Rect, c tree.Content, color string, root bool, eng *layout.Engine, cfg layout.Config) Box {
	b := Box{ID: id, Rect: r, Link: c.Link, Color: color, Root: root}
	inner := r.Inset(-cfg.NodePadding)
	if inner.Empty() {
		inner = r
	}
	textTop := inner.Y

	if iw, ih := eng.ImageBox(c.Image); iw > 0 && ih > 0 {
		// Shrink to fit nodes resized below the image's size.
		if scale := math.Min(inner.W/iw, inner.H/ih); scale < 1 {
			iw, ih = iw*scale, ih*scale
		}
		b.Image = c.Image
		b.ImageRect = geometry.Rect{X: inner.CenterX() - iw/2, Y: inner.Y, W: iw, H: ih}
		textTop = b.ImageRect.Bottom() + cfg.ContentGap
	}
	if c.Text != "" {
		b.Lines = strings.Split(c.Text, "\n")
		b.TextRect = geometry.Rect{X: inner.X, Y: textTop, W: inner.W, H: math.Max(inner.Bottom()-textTop, 0)}
		if b.Image == nil {
			b.TextRect = inner
		}
	}
	return b
}

// connect joins the facing edges of the parent and child rectangles. The
// axis with the larger centre offset decides which edges face each other,
// so connectors stay sensible after nodes are dragged by hand.
func connect(from, to tree.NodeID, p, c geometry.Rect, color string, curve float64) Connector {
	cn := Connector{From: from, To: to, Color: color}
	dx, dy := c.CenterX()-p.CenterX(), c.CenterY()-p.CenterY()

	if math.Abs(dx) >= math.Abs(dy) {
		if dx >= 0 {
			cn.P0, cn.P1 = Point{p.Right(), p.CenterY()}, Point{c.X, c.CenterY()}
		} else {
			cn.P0, cn.P1 = Point{p.X, p.CenterY()}, Point{c.Right(), c.CenterY()}
		}
		k := (cn.P1.X - cn.P0.X) * curve
		cn.C1, cn.C2 = Point{cn.P0.X + k, cn.P0.Y}, Point{cn.P1.X - k, cn.P1.Y}
		return cn
	}

	if dy >= 0 {
		cn.P0, cn.P1 = Point{p.CenterX(), p.Bottom()}, Point{c.CenterX(), c.Y}
	} else {
		cn.P0, cn.P1 = Point{p.CenterX(), p.Y}, Point{c.CenterX(), c.Bottom()}
	}
	k := (cn.P1.Y - cn.P0.Y) * curve
	cn.C1, cn.C2 = Point{cn.P0.X, cn.P0.Y + k}, Point{cn.P1.X, cn.P1.Y - k}
	return cn
}
