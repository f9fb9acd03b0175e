package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/mindmap/pkg/document"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	pkgio "github.com/matzehuels/mindmap/pkg/io"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/render/nodelink"
	"github.com/matzehuels/mindmap/pkg/render/sink"
)

// Render generates the requested formats concurrently. doc must not be
// modified until Render returns. opts must already be validated.
func Render(ctx context.Context, doc *document.Document, eng *layout.Engine, formats []string, opts Options) (map[string][]byte, error) {
	st, err := sink.StyleByName(opts.Style)
	if err != nil {
		return nil, err
	}
	scene := sync.OnceValue(func() *sink.Scene { return sink.Build(doc, eng, st) })

	var mu sync.Mutex
	artifacts := make(map[string][]byte, len(formats))

	g, ctx := errgroup.WithContext(ctx)
	for _, format := range formats {
		g.Go(func() error {
			data, err := renderFormat(ctx, doc, eng, scene, st, format, opts)
			if err != nil {
				return fmt.Errorf("render %s: %w", format, err)
			}
			mu.Lock()
			artifacts[format] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func renderFormat(ctx context.Context, doc *document.Document, eng *layout.Engine, scene func() *sink.Scene, st sink.Style, format string, opts Options) ([]byte, error) {
	switch format {
	case FormatSVG:
		return sink.RenderSVG(scene()), nil
	case FormatPNG:
		return sink.RenderPNG(scene(), opts.Scale)
	case FormatPDF:
		return sink.RenderPDF(ctx, scene())
	case FormatDOT:
		dir := opts.Direction
		if dir == "" {
			dir = eng.Config().Direction
		}
		return []byte(nodelink.ToDOT(doc, nodelink.Options{Direction: dir, Style: st})), nil
	case FormatYAML:
		return sink.RenderOutline(doc)
	case FormatJSON:
		return pkgio.Marshal(doc)
	}
	return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "unsupported format: %s", format)
}
