package layout

import (
	"fmt"
	"slices"
)

// Direction is the main axis along which depth grows.
type Direction string

const (
	DirectionRight Direction = "right"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionUp    Direction = "up"
)

// Directions lists the valid directions.
var Directions = []Direction{DirectionRight, DirectionDown, DirectionLeft, DirectionUp}

// horizontal reports whether depth grows along x.
func (d Direction) horizontal() bool { return d == DirectionRight || d == DirectionLeft }

// reversed reports whether depth grows toward negative coordinates.
func (d Direction) reversed() bool { return d == DirectionLeft || d == DirectionUp }

// Default spacing in scene units.
const (
	DefaultLevelGap      = 60.0
	DefaultSiblingGap    = 16.0
	DefaultNodePadding   = 8.0
	DefaultContentGap    = 6.0
	DefaultMinWidth      = 40.0
	DefaultMinHeight     = 24.0
	DefaultMaxImageWidth = 320.0
)

// Config holds the spacing constants of the layout.
type Config struct {
	Direction     Direction
	LevelGap      float64 // main-axis gap between a parent and its children
	SiblingGap    float64 // cross-axis gap between adjacent sibling subtrees
	NodePadding   float64 // inner padding around a node's content
	ContentGap    float64 // gap between image and text when both are shown
	MinWidth      float64
	MinHeight     float64
	MaxImageWidth float64 // images wider than this are scaled down; 0 disables
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Direction:     DirectionRight,
		LevelGap:      DefaultLevelGap,
		SiblingGap:    DefaultSiblingGap,
		NodePadding:   DefaultNodePadding,
		ContentGap:    DefaultContentGap,
		MinWidth:      DefaultMinWidth,
		MinHeight:     DefaultMinHeight,
		MaxImageWidth: DefaultMaxImageWidth,
	}
}

// Validate checks that the configuration can produce a non-overlapping
// layout.
func (c Config) Validate() error {
	if !slices.Contains(Directions, c.Direction) {
		return fmt.Errorf("invalid direction: %q (must be one of %v)", c.Direction, Directions)
	}
	if c.LevelGap <= 0 {
		return fmt.Errorf("level gap must be positive, got %v", c.LevelGap)
	}
	if c.SiblingGap < 0 || c.NodePadding < 0 || c.ContentGap < 0 {
		return fmt.Errorf("gaps and padding must not be negative")
	}
	if c.MinWidth <= 0 || c.MinHeight <= 0 {
		return fmt.Errorf("minimum node size must be positive")
	}
	if c.MaxImageWidth < 0 {
		return fmt.Errorf("max image width must not be negative")
	}
	return nil
}

// ParseDirection converts a string to a Direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if !slices.Contains(Directions, d) {
		return "", fmt.Errorf("invalid direction: %q (must be one of %v)", s, Directions)
	}
	return d, nil
}
