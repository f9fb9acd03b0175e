package geometry

import (
	"maps"
	"slices"

	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/tree"
)

// Model maps node identifiers to rectangles. It knows nothing about tree
// structure; keeping it in step with a tree.Store is the caller's job.
//
// The zero value is not usable - use New.
type Model struct {
	rects map[tree.NodeID]Rect
	fixed map[tree.NodeID]bool
}

// New creates an empty model.
func New() *Model {
	return &Model{
		rects: make(map[tree.NodeID]Rect),
		fixed: make(map[tree.NodeID]bool),
	}
}

// Get returns the rectangle of id.
func (m *Model) Get(id tree.NodeID) (Rect, bool) {
	r, ok := m.rects[id]
	return r, ok
}

// Set stores the rectangle of id, creating the entry if needed.
func (m *Model) Set(id tree.NodeID, r Rect) { m.rects[id] = r }

// Remove deletes the entry of id. Removing an unknown id is a no-op.
func (m *Model) Remove(id tree.NodeID) {
	delete(m.rects, id)
	delete(m.fixed, id)
}

// Has reports whether id has an entry.
func (m *Model) Has(id tree.NodeID) bool {
	_, ok := m.rects[id]
	return ok
}

// Len returns the number of entries.
func (m *Model) Len() int { return len(m.rects) }

// IDs returns all identifiers with an entry, sorted.
func (m *Model) IDs() []tree.NodeID {
	return slices.Sorted(maps.Keys(m.rects))
}

// Move sets the top-left corner of id, keeping its size.
func (m *Model) Move(id tree.NodeID, x, y float64) error {
	r, ok := m.rects[id]
	if !ok {
		return pkgerrors.New(pkgerrors.ErrCodeNotFound, "no geometry for node %q", id)
	}
	r.X, r.Y = x, y
	m.rects[id] = r
	return nil
}

// SetFixedSize marks the size of id as explicitly chosen. Layout keeps a fixed
// size instead of measuring the node's content.
func (m *Model) SetFixedSize(id tree.NodeID, fixed bool) {
	if fixed {
		m.fixed[id] = true
	} else {
		delete(m.fixed, id)
	}
}

// FixedSize reports whether id has an explicitly chosen size.
func (m *Model) FixedSize(id tree.NodeID) bool { return m.fixed[id] }

// Bounds returns the union of all rectangles.
func (m *Model) Bounds() Rect {
	var b Rect
	for _, id := range m.IDs() {
		b = b.Union(m.rects[id])
	}
	return b
}

// Clone returns an independent copy.
func (m *Model) Clone() *Model {
	return &Model{rects: maps.Clone(m.rects), fixed: maps.Clone(m.fixed)}
}

// CheckConsistent verifies that m has an entry for every node of s and none
// for anything else.
func (m *Model) CheckConsistent(s *tree.Store) error {
	if m.Len() != s.Len() {
		for _, id := range m.IDs() {
			if !s.Contains(id) {
				return pkgerrors.New(pkgerrors.ErrCodeInternal, "orphaned geometry for %q", id)
			}
		}
	}
	for _, id := range s.IDs() {
		if !m.Has(id) {
			return pkgerrors.New(pkgerrors.ErrCodeInternal, "node %q has no geometry", id)
		}
	}
	return nil
}
