package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mindmap/pkg/cache"
	"github.com/matzehuels/mindmap/pkg/document"
	pkgio "github.com/matzehuels/mindmap/pkg/io"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/observability"
)

// Runner encapsulates exports with caching.
// Both CLI and server use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger, so multiple
// goroutines can safely use the same Runner with different documents.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	// Engine supplies padding and image sizing to the renderers and lays
	// out documents exported with Options.Organize.
	Engine *layout.Engine
	// TTL is the lifetime of cached artifacts.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		Engine: layout.New(layout.DefaultConfig(), nil),
		TTL:    DefaultArtifactTTL,
	}
}

// Export renders doc in every requested format. Cached artifacts are reused
// unless opts.Refresh is set; the rest are rendered concurrently and stored.
func (r *Runner) Export(ctx context.Context, doc *document.Document, opts Options) (res *Result, err error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := r.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	}

	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	defer func() {
		observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	}()

	work, eng, err := Prepare(ctx, doc, r.Engine, opts)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	data, err := pkgio.Marshal(work)
	if err != nil {
		return nil, fmt.Errorf("hash document: %w", err)
	}

	res = &Result{
		DocHash:   cache.Hash(data),
		Artifacts: make(map[string][]byte, len(opts.Formats)),
	}
	res.Stats.NodeCount = work.Tree.Len()
	res.Stats.PrepareTime = time.Since(start)

	logger.Debug("prepared document",
		"nodes", res.Stats.NodeCount,
		"hash", res.DocHash[:12],
		"organize", opts.Organize,
		"duration", res.Stats.PrepareTime)

	var missing []string
	for _, format := range opts.Formats {
		if !opts.Refresh {
			key := r.Keyer.ArtifactKey(res.DocHash, opts.ArtifactKeyOpts(format, eng.Config()))
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				res.Artifacts[format] = data
				res.CacheInfo.Hits = append(res.CacheInfo.Hits, format)
				continue
			} else if err != nil {
				logger.Warn("cache lookup failed", "format", format, "error", err)
			}
		}
		missing = append(missing, format)
	}

	renderStart := time.Now()
	if len(missing) > 0 {
		rendered, err := Render(ctx, work, eng, missing, opts)
		if err != nil {
			return nil, err
		}
		for format, data := range rendered {
			res.Artifacts[format] = data
			key := r.Keyer.ArtifactKey(res.DocHash, opts.ArtifactKeyOpts(format, eng.Config()))
			if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
				logger.Warn("cache store failed", "format", format, "error", err)
			}
		}
	}
	res.Stats.RenderTime = time.Since(renderStart)

	logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", res.CacheInfo.Hits,
		"duration", res.Stats.RenderTime)
	return res, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
