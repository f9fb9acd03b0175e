// Package pipeline renders mind map documents into export formats.
//
// The CLI export command and the HTTP export endpoint both go through a
// [Runner], so they produce identical bytes and share one artifact cache.
//
// # Stages
//
//  1. Prepare: clone the document and, if requested, re-run the full layout
//  2. Render: produce every requested format concurrently
//
// Artifacts are cached under the hash of the prepared document plus the
// options that affect each format, so an unchanged document is never
// rendered twice.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Export(ctx, doc, pipeline.Options{
//	    Formats: []string{"svg", "png"},
//	    Style:   "classic",
//	})
//	if err != nil {
//	    return err
//	}
//	svg := res.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mindmap/pkg/cache"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/render/sink"
)

// Default values shared by the CLI and the server.
const (
	DefaultScale = sink.DefaultScale
	DefaultStyle = sink.StyleClassic

	// DefaultArtifactTTL is how long rendered artifacts stay cached.
	DefaultArtifactTTL = 7 * 24 * time.Hour
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatDOT  = "dot"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Formats lists the supported output formats.
var Formats = []string{FormatSVG, FormatPNG, FormatPDF, FormatDOT, FormatYAML, FormatJSON}

// ContentTypes maps each format to its MIME type.
var ContentTypes = map[string]string{
	FormatSVG:  "image/svg+xml",
	FormatPNG:  "image/png",
	FormatPDF:  "application/pdf",
	FormatDOT:  "text/vnd.graphviz",
	FormatYAML: "application/yaml",
	FormatJSON: "application/json",
}

// Options controls an export.
type Options struct {
	Formats   []string         `json:"formats,omitempty"`
	Style     string           `json:"style,omitempty"`
	Scale     float64          `json:"scale,omitempty"` // PNG only
	Direction layout.Direction `json:"direction,omitempty"`
	// Organize re-runs the full layout on a copy before rendering, so the
	// export ignores nodes dragged by hand. The document is not changed.
	Organize bool `json:"organize,omitempty"`
	// Refresh skips cache lookups; results are still stored.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of an export.
type Result struct {
	// DocHash is the content hash of the rendered document.
	DocHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains export timing and size information.
type Stats struct {
	NodeCount   int
	PrepareTime time.Duration
	RenderTime  time.Duration
}

// CacheInfo reports which formats came from the cache.
type CacheInfo struct {
	Hits []string
}

// AllHit reports whether no format had to be rendered.
func (c CacheInfo) AllHit(formats []string) bool {
	for _, f := range formats {
		if !slices.Contains(c.Hits, f) {
			return false
		}
	}
	return true
}

// ValidateFormat checks that a format is supported.
func ValidateFormat(format string) error {
	if !slices.Contains(Formats, format) {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)", format, strings.Join(Formats, ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are supported.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks the options and fills in defaults. Duplicate
// formats are removed.
func (o *Options) ValidateAndSetDefaults() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.Formats = dedupe(o.Formats)

	if o.Style == "" {
		o.Style = DefaultStyle
	}
	if !sink.ValidStyle(o.Style) {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "invalid style: %q (must be one of: %s)", o.Style, strings.Join(sink.Styles, ", "))
	}

	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Scale < sink.ZoomMin || o.Scale > sink.ZoomMax {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "invalid scale: %v (must be between %v and %v)", o.Scale, sink.ZoomMin, sink.ZoomMax)
	}

	if o.Direction != "" {
		if _, err := layout.ParseDirection(string(o.Direction)); err != nil {
			return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "invalid direction")
		}
	}
	return nil
}

// ArtifactKeyOpts returns the cache key options of one format rendered
// with the layout configuration cfg. Options that do not change a format's
// bytes are left out, so for example a PNG scale change keeps the cached
// SVG. Organize needs no key field since it already changes the document
// hash.
func (o *Options) ArtifactKeyOpts(format string, cfg layout.Config) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: format}
	switch format {
	case FormatSVG, FormatPDF:
		k.Style = o.Style
		k.Layout = layoutKey(cfg)
	case FormatPNG:
		k.Style = o.Style
		k.Scale = o.Scale
		k.Layout = layoutKey(cfg)
	case FormatDOT:
		k.Style = o.Style
		k.Direction = string(o.Direction)
		if k.Direction == "" {
			k.Direction = string(cfg.Direction)
		}
	}
	return k
}

// layoutKey identifies the engine settings the scene builder draws with.
func layoutKey(cfg layout.Config) string {
	return fmt.Sprintf("%s/%g/%g/%g/%g/%g/%g/%g", cfg.Direction, cfg.LevelGap, cfg.SiblingGap,
		cfg.NodePadding, cfg.ContentGap, cfg.MinWidth, cfg.MinHeight, cfg.MaxImageWidth)
}

func dedupe(formats []string) []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}
