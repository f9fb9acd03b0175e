// Package editor implements the edit operations of a mind map: adding,
// deleting and reparenting nodes, moving them by hand, changing content and
// re-organizing the layout.
//
// # Atomicity
//
// Every operation takes a checkpoint of the document, applies the change,
// then checks that the tree is still a single rooted tree and that geometry
// covers exactly the live nodes. If the change or the check fails, the
// checkpoint becomes the live document again and the error is returned. A
// failed operation is never recorded in the history and never reported to
// listeners.
//
// # Layout
//
// Structural edits lay out only the affected subtree:
//
//   - AddChild places the new node next to its siblings, then lays out the
//     parent's subtree
//   - Delete lays out the former parent's subtree
//   - Reparent lays out the old and the new parent's subtrees
//
// Move never triggers layout. Organize lays out the whole document and
// OrganizeFrom a single subtree; the subtree root keeps its top-left corner.
//
// # History
//
// Committed changes push the previous document onto a bounded undo stack:
//
//	ed := editor.New(document.Empty(), layout.New(layout.DefaultConfig(), nil))
//	root, _ := ed.Init(ctx, tree.TextContent("Topic"))
//	child, _ := ed.AddChild(ctx, root, tree.Content{})
//	ed.Undo(ctx) // child is gone again
//	ed.Redo(ctx) // and back
//
// Undo and Redo swap whole documents, so a pointer obtained from Document
// before the call no longer refers to the live document afterwards.
package editor
