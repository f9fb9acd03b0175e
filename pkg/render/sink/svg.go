package sink

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"

	"github.com/matzehuels/mindmap/pkg/fonts"
)

// lineHeight is the baseline distance in multiples of the font size.
const lineHeight = 1.25

// RenderSVG draws the scene as a standalone SVG document. Images are
// embedded as data URIs so the output has no external references.
func RenderSVG(sc *Scene) []byte {
	st := sc.Style
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		sc.Width, sc.Height, sc.Width, sc.Height)
	fmt.Fprintf(&buf, `  <rect class="background" x="0" y="0" width="%.1f" height="%.1f" fill="%s"/>`+"\n",
		sc.Width, sc.Height, st.Background)

	buf.WriteString(`  <g class="connectors" fill="none">` + "\n")
	for _, c := range sc.Connectors {
		fmt.Fprintf(&buf, `    <path d="M %.1f %.1f C %.1f %.1f, %.1f %.1f, %.1f %.1f" stroke="%s" stroke-width="%.1f" data-from="%s" data-to="%s"/>`+"\n",
			c.P0.X, c.P0.Y, c.C1.X, c.C1.Y, c.C2.X, c.C2.Y, c.P1.X, c.P1.Y,
			c.Color, st.StrokeWidth, escapeXML(string(c.From)), escapeXML(string(c.To)))
	}
	buf.WriteString("  </g>\n")

	for _, b := range sc.Boxes {
		renderBox(&buf, st, b)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderBox(buf *bytes.Buffer, st Style, b Box) {
	fmt.Fprintf(buf, `  <g class="node" id="node-%s">`+"\n", escapeXML(string(b.ID)))
	wrapURL(buf, b.Link, func() {
		stroke := st.StrokeWidth
		if b.Root {
			stroke *= 1.5
		}
		fmt.Fprintf(buf, `    <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="%.1f" fill="%s" stroke="%s" stroke-width="%.1f"/>`+"\n",
			b.Rect.X, b.Rect.Y, b.Rect.W, b.Rect.H, st.CornerRadius, st.NodeFill, b.Color, stroke)

		if b.Image != nil {
			fmt.Fprintf(buf, `    <image x="%.1f" y="%.1f" width="%.1f" height="%.1f" href="data:image/%s;base64,%s"/>`+"\n",
				b.ImageRect.X, b.ImageRect.Y, b.ImageRect.W, b.ImageRect.H,
				b.Image.Format, base64.StdEncoding.EncodeToString(b.Image.Data))
		}
		renderLines(buf, st, b)
	})
	buf.WriteString("  </g>\n")
}

func renderLines(buf *bytes.Buffer, st Style, b Box) {
	if len(b.Lines) == 0 {
		return
	}
	color := st.TextColor
	if b.Link != "" {
		color = st.LinkColor
	}
	weight := "normal"
	if b.Root {
		weight = "bold"
	}

	step := st.FontSize * lineHeight
	// First baseline such that the block of lines is centred vertically.
	y := b.TextRect.CenterY() - step*float64(len(b.Lines)-1)/2
	fmt.Fprintf(buf, `    <text x="%.1f" text-anchor="middle" dominant-baseline="middle" font-family="%s" font-size="%.1f" font-weight="%s" fill="%s">`+"\n",
		b.TextRect.CenterX(), fonts.FontFamily, st.FontSize, weight, color)
	for i, line := range b.Lines {
		fmt.Fprintf(buf, `      <tspan x="%.1f" y="%.1f">%s</tspan>`+"\n", b.TextRect.CenterX(), y+float64(i)*step, escapeXML(line))
	}
	buf.WriteString("    </text>\n")
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func wrapURL(buf *bytes.Buffer, url string, fn func()) {
	if url != "" {
		fmt.Fprintf(buf, `    <a href="%s" target="_blank">`+"\n", escapeXML(url))
	}
	fn()
	if url != "" {
		buf.WriteString("    </a>\n")
	}
}
