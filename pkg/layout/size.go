package layout

import (
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/matzehuels/mindmap/pkg/fonts"
	"github.com/matzehuels/mindmap/pkg/tree"
)

// TextMeasurer reports the size of a block of text, one line per '\n'.
type TextMeasurer interface {
	MeasureText(text string) (w, h float64)
}

// FontMeasurer measures text with a real font face.
type FontMeasurer struct {
	mu         sync.Mutex
	face       font.Face
	lineHeight float64
}

// NewFontMeasurer measures with Go Regular at the given point size and DPI.
func NewFontMeasurer(size, dpi float64) (*FontMeasurer, error) {
	f, err := fonts.Regular()
	if err != nil {
		return nil, err
	}
	face, err := fonts.NewFace(f, size, dpi)
	if err != nil {
		return nil, err
	}
	return &FontMeasurer{face: face, lineHeight: fixedToFloat(face.Metrics().Height)}, nil
}

// MeasureText implements TextMeasurer.
func (m *FontMeasurer) MeasureText(text string) (w, h float64) {
	if text == "" {
		return 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		w = math.Max(w, fixedToFloat(font.MeasureString(m.face, line)))
	}
	return math.Ceil(w), math.Ceil(m.lineHeight * float64(len(lines)))
}

// FixedMeasurer gives every rune the same width. Tests use it to get layouts
// that are easy to reason about.
type FixedMeasurer struct {
	CharWidth  float64
	LineHeight float64
}

// MeasureText implements TextMeasurer.
func (m FixedMeasurer) MeasureText(text string) (w, h float64) {
	if text == "" {
		return 0, 0
	}
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		w = math.Max(w, float64(utf8.RuneCountInString(line))*m.CharWidth)
	}
	return w, float64(len(lines)) * m.LineHeight
}

// NodeSize returns the natural size of a node showing c: the content's
// intrinsic size plus padding, never below the configured minimum. Text and
// image together are stacked vertically, image first.
func (e *Engine) NodeSize(c tree.Content) (w, h float64) {
	tw, th := e.text.MeasureText(c.Text)
	iw, ih := e.imageSize(c.Image)

	switch c.Kind() {
	case tree.KindText:
		w, h = tw, th
	case tree.KindImage:
		w, h = iw, ih
	case tree.KindBoth:
		w, h = math.Max(tw, iw), th+ih+e.cfg.ContentGap
	}
	w += 2 * e.cfg.NodePadding
	h += 2 * e.cfg.NodePadding
	return math.Max(w, e.cfg.MinWidth), math.Max(h, e.cfg.MinHeight)
}

// ImageBox returns the displayed size of img after scaling to MaxImageWidth.
func (e *Engine) ImageBox(img *tree.Image) (w, h float64) { return e.imageSize(img) }

func (e *Engine) imageSize(img *tree.Image) (w, h float64) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return 0, 0
	}
	w, h = float64(img.Width), float64(img.Height)
	if limit := e.cfg.MaxImageWidth; limit > 0 && w > limit {
		h = math.Round(h * limit / w)
		w = limit
	}
	return w, h
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
