// Package fonts provides the font faces used to measure and draw node text.
//
// The Go font family is compiled into the binary through
// golang.org/x/image/font/gofont, so layout gives the same result on every
// machine regardless of the fonts installed locally.
package fonts

import (
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Default text metrics, in points at 72 DPI (one point per scene unit).
const (
	DefaultSize = 14.0
	DefaultDPI  = 72.0
)

// FontFamily is the CSS font-family used by the SVG output. Viewers without
// the Go fonts fall back to a similar sans-serif.
const FontFamily = `'Go', 'Helvetica Neue', Arial, sans-serif`

// Parsed fonts, computed once on first access.
var (
	regular, bold         *opentype.Font
	regularErr, boldErr   error
	regularOnce, boldOnce sync.Once
)

// Regular returns the parsed Go Regular font.
func Regular() (*opentype.Font, error) {
	regularOnce.Do(func() {
		regular, regularErr = opentype.Parse(goregular.TTF)
	})
	return regular, regularErr
}

// Bold returns the parsed Go Bold font, used for the root node.
func Bold() (*opentype.Font, error) {
	boldOnce.Do(func() {
		bold, boldErr = opentype.Parse(gobold.TTF)
	})
	return bold, boldErr
}

// RegularTTF returns the raw Go Regular font file.
func RegularTTF() []byte { return goregular.TTF }

// BoldTTF returns the raw Go Bold font file.
func BoldTTF() []byte { return gobold.TTF }

// NewFace creates a face of f at the given size and DPI. Faces are not safe
// for concurrent use.
func NewFace(f *opentype.Font, size, dpi float64) (font.Face, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
}
