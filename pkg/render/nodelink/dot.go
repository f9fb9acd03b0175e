package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/mindmap/pkg/document"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/render"
	"github.com/matzehuels/mindmap/pkg/render/sink"
	"github.com/matzehuels/mindmap/pkg/tree"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Direction in which children are ranked; the layout default if empty.
	Direction layout.Direction
	// Style supplies branch colours; sink.Classic if zero.
	Style sink.Style
	// Detailed appends node ids and links to the labels.
	Detailed bool
}

var rankdir = map[layout.Direction]string{
	layout.DirectionRight: "LR",
	layout.DirectionLeft:  "RL",
	layout.DirectionDown:  "TB",
	layout.DirectionUp:    "BT",
}

// ToDOT converts a document to Graphviz DOT format. Graphviz computes its
// own positions; the document's geometry is ignored.
func ToDOT(doc *document.Document, opts Options) string {
	st := opts.Style
	if st.Name == "" {
		st = sink.Classic
	}
	dir, ok := rankdir[opts.Direction]
	if !ok {
		dir = rankdir[layout.DirectionRight]
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", dir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	fmt.Fprintf(&buf, "  node [shape=box, style=\"rounded,filled\", fillcolor=%q, fontcolor=%q, fontsize=%.0f, margin=\"0.2,0.1\"];\n",
		st.NodeFill, st.TextColor, st.FontSize)
	fmt.Fprintf(&buf, "  edge [arrowhead=none, penwidth=%.1f];\n", st.StrokeWidth)
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	s := doc.Tree
	if s.Root() == "" {
		buf.WriteString("}\n")
		return buf.String()
	}

	s.Walk(s.Root(), func(id tree.NodeID, _ int) bool {
		c, _ := s.Content(id)
		attrs := fmtAttrs(id, c, st.BranchColor(s.BranchIndex(id)), id == s.Root(), opts.Detailed)
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(attrs, ", "))
		return true
	})

	buf.WriteString("\n")
	s.Walk(s.Root(), func(id tree.NodeID, _ int) bool {
		for _, child := range s.Children(id) {
			fmt.Fprintf(&buf, "  %q -> %q [color=%q];\n", id, child, st.BranchColor(s.BranchIndex(child)))
		}
		return true
	})

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(id tree.NodeID, c tree.Content, detailed bool) string {
	label := c.Text
	if label == "" && c.Image != nil {
		label = fmt.Sprintf("[%s %dx%d]", c.Image.Format, c.Image.Width, c.Image.Height)
	}
	if !detailed {
		return label
	}
	parts := []string{label, "id: " + string(id)}
	if c.Link != "" {
		parts = append(parts, "link: "+c.Link)
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(id tree.NodeID, c tree.Content, color string, root, detailed bool) []string {
	attrs := []string{
		fmt.Sprintf("label=%q", fmtLabel(id, c, detailed)),
		fmt.Sprintf("color=%q", color),
	}
	if root {
		attrs = append(attrs, "penwidth=2")
	}
	if c.Link != "" {
		attrs = append(attrs, fmt.Sprintf("URL=%q", c.Link))
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeExportFailure, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeExportFailure, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeExportFailure, err, "render DOT")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with one sized
// in user units, so the SVG scales like the native exports.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}
