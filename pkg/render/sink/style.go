package sink

import (
	"slices"

	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/fonts"
)

// Style names.
const (
	StyleClassic = "classic"
	StylePlain   = "plain"
)

// Styles lists the available style names.
var Styles = []string{StyleClassic, StylePlain}

// Style holds the colours and stroke settings of an export.
type Style struct {
	Name         string
	Background   string
	NodeFill     string
	TextColor    string
	LinkColor    string
	RootColor    string
	Palette      []string // one colour per top-level branch, cycled
	FontSize     float64
	StrokeWidth  float64
	CornerRadius float64
	CurveFactor  float64 // 0 draws straight connectors, 1 fully horizontal tangents
}

// Classic colours every top-level branch differently.
var Classic = Style{
	Name:       StyleClassic,
	Background: "#ffffff",
	NodeFill:   "#ffffff",
	TextColor:  "#222222",
	LinkColor:  "#1a5fb4",
	RootColor:  "#333333",
	Palette: []string{
		"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f",
		"#edc948", "#b07aa1", "#ff9da7", "#9c755f", "#bab0ac",
	},
	FontSize:     fonts.DefaultSize,
	StrokeWidth:  2,
	CornerRadius: 6,
	CurveFactor:  0.5,
}

// Plain draws everything in one neutral colour, for printing.
var Plain = Style{
	Name:         StylePlain,
	Background:   "#ffffff",
	NodeFill:     "#ffffff",
	TextColor:    "#000000",
	LinkColor:    "#000000",
	RootColor:    "#000000",
	Palette:      []string{"#555555"},
	FontSize:     fonts.DefaultSize,
	StrokeWidth:  1,
	CornerRadius: 0,
	CurveFactor:  0.5,
}

// StyleByName returns the named style.
func StyleByName(name string) (Style, error) {
	switch name {
	case "", StyleClassic:
		return Classic, nil
	case StylePlain:
		return Plain, nil
	}
	return Style{}, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "unknown style %q (want one of %v)", name, Styles)
}

// BranchColor returns the colour of the top-level branch with the given
// index; negative indexes are the root.
func (s Style) BranchColor(branch int) string {
	if branch < 0 || len(s.Palette) == 0 {
		return s.RootColor
	}
	return s.Palette[branch%len(s.Palette)]
}

// ValidStyle reports whether name is a known style.
func ValidStyle(name string) bool { return slices.Contains(Styles, name) }
