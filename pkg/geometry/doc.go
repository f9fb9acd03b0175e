// Package geometry holds the per-node rectangles of a mind map.
//
// A [Model] is a plain mapping from node identifier to [Rect], independent of
// tree structure. Users move nodes by calling [Model.Set] or [Model.Move]
// directly; the layout engine writes the same entries when it organizes a
// subtree. Every live node must have exactly one entry and deleted nodes must
// have none; [Model.CheckConsistent] verifies this against a tree store.
//
// Coordinates use a top-left origin with y growing downward, matching SVG and
// raster output.
package geometry
