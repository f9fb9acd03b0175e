package sink

import (
	"context"

	"github.com/matzehuels/mindmap/pkg/render"
)

// RenderPDF renders the scene as PDF via SVG conversion.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, sc *Scene) ([]byte, error) {
	return render.ToPDF(ctx, RenderSVG(sc))
}
