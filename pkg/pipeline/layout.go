package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/mindmap/pkg/document"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/observability"
)

// Prepare returns the document to render: a copy, fully re-laid out when
// opts.Organize is set. eng's direction is replaced by opts.Direction if
// one is given. The caller's document is never modified.
func Prepare(ctx context.Context, doc *document.Document, eng *layout.Engine, opts Options) (*document.Document, *layout.Engine, error) {
	work := doc.Clone()
	if !opts.Organize {
		return work, eng, nil
	}

	if opts.Direction != "" && opts.Direction != eng.Config().Direction {
		cfg := eng.Config()
		cfg.Direction = opts.Direction
		eng = eng.WithConfig(cfg)
	}

	start := time.Now()
	err := eng.LayoutAll(work.Tree, work.Geometry)
	observability.Pipeline().OnLayoutComplete(ctx, "export", work.Tree.Len(), time.Since(start), err)
	if err != nil {
		return nil, nil, err
	}
	return work, eng, nil
}
