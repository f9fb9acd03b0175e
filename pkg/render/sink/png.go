package sink

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/fogleman/gg"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/fonts"
)

// DefaultScale is the raster scale factor used when none is given.
const DefaultScale = 2.0

// RenderPNG rasterises the scene at the given scale, which is clamped to
// the zoom limits. Unlike PDF this needs no external tools.
func RenderPNG(sc *Scene, scale float64) ([]byte, error) {
	s := ClampZoom(scale)
	st := sc.Style
	w := int(math.Ceil(sc.Width * s))
	h := int(math.Ceil(sc.Height * s))

	regular, err := fonts.Regular()
	if err != nil {
		return nil, err
	}
	bold, err := fonts.Bold()
	if err != nil {
		return nil, err
	}
	face, err := fonts.NewFace(regular, st.FontSize*s, fonts.DefaultDPI)
	if err != nil {
		return nil, err
	}
	boldFace, err := fonts.NewFace(bold, st.FontSize*s, fonts.DefaultDPI)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(w, h)
	dc.SetHexColor(st.Background)
	dc.Clear()

	dc.SetLineWidth(st.StrokeWidth * s)
	for _, c := range sc.Connectors {
		dc.SetHexColor(c.Color)
		dc.MoveTo(c.P0.X*s, c.P0.Y*s)
		dc.CubicTo(c.C1.X*s, c.C1.Y*s, c.C2.X*s, c.C2.Y*s, c.P1.X*s, c.P1.Y*s)
		dc.Stroke()
	}

	for _, b := range sc.Boxes {
		r := b.Rect
		dc.DrawRoundedRectangle(r.X*s, r.Y*s, r.W*s, r.H*s, st.CornerRadius*s)
		dc.SetHexColor(st.NodeFill)
		dc.FillPreserve()
		dc.SetHexColor(b.Color)
		if b.Root {
			dc.SetLineWidth(st.StrokeWidth * 1.5 * s)
		} else {
			dc.SetLineWidth(st.StrokeWidth * s)
		}
		dc.Stroke()

		if b.Image != nil {
			if err := drawImage(dc, b, s); err != nil {
				return nil, err
			}
		}

		if len(b.Lines) > 0 {
			dc.SetFontFace(face)
			if b.Root {
				dc.SetFontFace(boldFace)
			}
			dc.SetHexColor(st.TextColor)
			if b.Link != "" {
				dc.SetHexColor(st.LinkColor)
			}
			step := st.FontSize * lineHeight
			y := b.TextRect.CenterY() - step*float64(len(b.Lines)-1)/2
			for i, line := range b.Lines {
				dc.DrawStringAnchored(line, b.TextRect.CenterX()*s, (y+float64(i)*step)*s, 0.5, 0.35)
			}
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeExportFailure, err, "encode png")
	}
	return buf.Bytes(), nil
}

func drawImage(dc *gg.Context, b Box, s float64) error {
	img, _, err := image.Decode(bytes.NewReader(b.Image.Data))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeExportFailure, err, "decode image of node %s", b.ID)
	}
	dw := max(1, int(math.Round(b.ImageRect.W*s)))
	dh := max(1, int(math.Round(b.ImageRect.H*s)))
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	dc.DrawImage(dst, int(math.Round(b.ImageRect.X*s)), int(math.Round(b.ImageRect.Y*s)))
	return nil
}
