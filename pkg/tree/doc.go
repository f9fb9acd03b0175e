// Package tree provides the node store of a mind map: an arena of nodes keyed
// by identifier that always forms a single rooted tree.
//
// # Overview
//
// A [Store] owns every node of a document. Parents own their children by
// identifier (an ordered slice of [NodeID]) and every node keeps a non-owning
// back-reference to its parent. No node ever holds a pointer to another node,
// so there are no reference cycles to manage and cloning a store is a plain
// copy of the arena.
//
// The tree invariant holds by construction:
//
//   - exactly one root, created once by [Store.CreateRoot] and never removed
//   - every other node is created by [Store.AddChild] under an existing parent
//   - [Store.Reparent] refuses to move a node below itself or its descendants
//   - [Store.Remove] removes a node together with its whole subtree
//
// Every operation validates its arguments before touching the arena, so a
// failed call leaves the store unmodified.
//
// # Basic Usage
//
//	s := tree.New()
//	root, _ := s.CreateRoot(tree.TextContent("Project"))
//	a, _ := s.AddChild(root, tree.TextContent("Research"))
//	b, _ := s.AddChild(root, tree.TextContent("Design"))
//	_ = s.Reparent(b, a)
//	removed, _ := s.Remove(a) // [b, a] in post-order
//
// # Content
//
// Node content is a tagged variant, not a type hierarchy. [Content] carries an
// optional text and an optional [Image]; [Content.Kind] reports which of
// [KindText], [KindImage] or [KindBoth] applies. A node may additionally carry a
// link (URL, file, directory or media path) classified by [Content.LinkKind].
//
// # Identifiers
//
// Identifiers come from an [IDGenerator]. The default generator returns random
// UUIDs; [NewSequenceGenerator] returns predictable ids for tests and
// examples. A store remembers every identifier it has removed and never issues
// it again.
//
// # Errors
//
// Failures are reported as *errors.Error values from
// [github.com/matzehuels/mindmap/pkg/errors] with codes NOT_FOUND,
// CYCLE_DETECTED, CANNOT_REMOVE_ROOT, CANNOT_REPARENT_ROOT and
// ALREADY_INITIALIZED.
//
// # Concurrency
//
// Store is not safe for concurrent use. Edits are expected to arrive one at a
// time from a single logical thread of control.
package tree
