package editor

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mindmap/pkg/document"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/observability"
	"github.com/matzehuels/mindmap/pkg/tree"
)

// DefaultNodeText is the text given to nodes created without content.
const DefaultNodeText = "New Node"

// DefaultHistoryLimit bounds the undo stack.
const DefaultHistoryLimit = 100

// Operation names, as reported to hooks and listeners.
const (
	OpInit         = "init"
	OpAdd          = "add"
	OpDelete       = "delete"
	OpReparent     = "reparent"
	OpMove         = "move"
	OpSetContent   = "set_content"
	OpMoveSibling  = "move_sibling"
	OpResize       = "resize"
	OpOrganize     = "organize"
	OpOrganizeFrom = "organize_from"
	OpUndo         = "undo"
	OpRedo         = "redo"
	OpLoad         = "load"
)

// Change describes a committed edit.
type Change struct {
	Op string `json:"op"`

	// Node is the node the operation targeted, empty for whole-document
	// operations.
	Node tree.NodeID `json:"node,omitempty"`

	// Removed lists the nodes deleted by the operation.
	Removed []tree.NodeID `json:"removed,omitempty"`
}

// Listener is notified after every committed change.
type Listener func(Change)

// Editor applies edit operations to a document. Every operation either
// commits completely or leaves the document as it was.
//
// An Editor is not safe for concurrent use.
type Editor struct {
	doc    *document.Document
	engine *layout.Engine
	logger *log.Logger

	limit     int
	undo      []*document.Document
	redo      []*document.Document
	listeners []Listener

	// batching collects the changes of a Batch until it commits.
	batching bool
	pending  []Change
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHistoryLimit bounds the number of undo steps kept. Zero disables
// history.
func WithHistoryLimit(n int) Option {
	return func(e *Editor) {
		if n >= 0 {
			e.limit = n
		}
	}
}

// WithListener registers a change listener.
func WithListener(fn Listener) Option {
	return func(e *Editor) {
		if fn != nil {
			e.listeners = append(e.listeners, fn)
		}
	}
}

// New creates an editor over doc. A nil doc starts empty; a nil engine uses
// the default layout configuration.
func New(doc *document.Document, engine *layout.Engine, opts ...Option) *Editor {
	if doc == nil {
		doc = document.Empty()
	}
	if engine == nil {
		engine = layout.New(layout.DefaultConfig(), nil)
	}
	e := &Editor{
		doc:    doc,
		engine: engine,
		logger: log.Default(),
		limit:  DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Document returns the live document. Callers must not modify it.
func (e *Editor) Document() *document.Document { return e.doc }

// Engine returns the layout engine.
func (e *Editor) Engine() *layout.Engine { return e.engine }

// Snapshot returns an independent copy of the current document.
func (e *Editor) Snapshot() *document.Document { return e.doc.Clone() }

// OnChange registers a listener for committed changes.
func (e *Editor) OnChange(fn Listener) {
	if fn != nil {
		e.listeners = append(e.listeners, fn)
	}
}

// CanUndo reports whether Undo would change the document.
func (e *Editor) CanUndo() bool { return len(e.undo) > 0 }

// CanRedo reports whether Redo would change the document.
func (e *Editor) CanRedo() bool { return len(e.redo) > 0 }

// Load replaces the document and clears the history. The document is
// validated first; an invalid one is rejected and the current one kept.
func (e *Editor) Load(ctx context.Context, doc *document.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	e.doc = doc
	e.undo, e.redo = nil, nil
	e.logger.Debug("document loaded", "nodes", doc.Tree.Len())
	e.notify(Change{Op: OpLoad})
	return nil
}

// Init creates the root node of an empty document and places it at the
// origin. Empty text becomes DefaultNodeText.
func (e *Editor) Init(ctx context.Context, c tree.Content) (tree.NodeID, error) {
	var id tree.NodeID
	err := e.apply(ctx, OpInit, func(d *document.Document) (Change, error) {
		var err error
		if id, err = d.Tree.CreateRoot(withDefaultText(c)); err != nil {
			return Change{}, err
		}
		return Change{Op: OpInit, Node: id}, e.engine.PlaceNew(d.Tree, d.Geometry, id)
	})
	return id, err
}

// AddChild creates a node under parent, places it next to its siblings and
// lays out the parent's subtree. Empty text becomes DefaultNodeText.
func (e *Editor) AddChild(ctx context.Context, parent tree.NodeID, c tree.Content) (tree.NodeID, error) {
	var id tree.NodeID
	err := e.apply(ctx, OpAdd, func(d *document.Document) (Change, error) {
		var err error
		if id, err = d.Tree.AddChild(parent, withDefaultText(c)); err != nil {
			return Change{}, err
		}
		if err := e.engine.PlaceNew(d.Tree, d.Geometry, id); err != nil {
			return Change{}, err
		}
		return Change{Op: OpAdd, Node: id}, e.layout(ctx, d, parent)
	})
	return id, err
}

// Delete removes id and its descendants together with their geometry, then
// lays out the former parent's subtree. It returns the removed identifiers.
func (e *Editor) Delete(ctx context.Context, id tree.NodeID) ([]tree.NodeID, error) {
	var removed []tree.NodeID
	err := e.apply(ctx, OpDelete, func(d *document.Document) (Change, error) {
		parent, _ := d.Tree.Parent(id)
		var err error
		if removed, err = d.Tree.Remove(id); err != nil {
			return Change{}, err
		}
		for _, r := range removed {
			d.Geometry.Remove(r)
		}
		return Change{Op: OpDelete, Node: id, Removed: removed}, e.layout(ctx, d, parent)
	})
	return removed, err
}

// Reparent moves id under newParent as its last child, then lays out the
// subtrees of the old and the new parent.
func (e *Editor) Reparent(ctx context.Context, id, newParent tree.NodeID) error {
	return e.apply(ctx, OpReparent, func(d *document.Document) (Change, error) {
		oldParent, _ := d.Tree.Parent(id)
		if err := d.Tree.Reparent(id, newParent); err != nil {
			return Change{}, err
		}
		if err := e.layout(ctx, d, oldParent); err != nil {
			return Change{}, err
		}
		return Change{Op: OpReparent, Node: id}, e.layout(ctx, d, newParent)
	})
}

// Move sets the top-left corner of id. No other node moves.
func (e *Editor) Move(ctx context.Context, id tree.NodeID, x, y float64) error {
	return e.apply(ctx, OpMove, func(d *document.Document) (Change, error) {
		return Change{Op: OpMove, Node: id}, d.Geometry.Move(id, x, y)
	})
}

// SetContent replaces the content of id. Unless the node has a fixed size it
// is resized to fit, and its subtree is laid out again.
func (e *Editor) SetContent(ctx context.Context, id tree.NodeID, c tree.Content) error {
	return e.apply(ctx, OpSetContent, func(d *document.Document) (Change, error) {
		if err := d.Tree.SetContent(id, c); err != nil {
			return Change{}, err
		}
		return Change{Op: OpSetContent, Node: id}, e.layout(ctx, d, id)
	})
}

// MoveSibling shifts id by delta places among its siblings and lays out the
// parent's subtree.
func (e *Editor) MoveSibling(ctx context.Context, id tree.NodeID, delta int) error {
	return e.apply(ctx, OpMoveSibling, func(d *document.Document) (Change, error) {
		if _, err := d.Tree.MoveSibling(id, delta); err != nil {
			return Change{}, err
		}
		parent, _ := d.Tree.Parent(id)
		return Change{Op: OpMoveSibling, Node: id}, e.layout(ctx, d, parent)
	})
}

// Resize gives id an explicit size that layout keeps. A zero width and height
// drop the explicit size and return the node to its content size.
func (e *Editor) Resize(ctx context.Context, id tree.NodeID, w, h float64) error {
	return e.apply(ctx, OpResize, func(d *document.Document) (Change, error) {
		r, ok := d.Geometry.Get(id)
		if !ok {
			return Change{}, pkgerrors.New(pkgerrors.ErrCodeNotFound, "node %q not found", id)
		}
		switch {
		case w == 0 && h == 0:
			d.Geometry.SetFixedSize(id, false)
		case w <= 0 || h <= 0:
			return Change{}, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "size %gx%g must be positive", w, h)
		default:
			r.W, r.H = w, h
			d.Geometry.Set(id, r)
			d.Geometry.SetFixedSize(id, true)
		}
		return Change{Op: OpResize, Node: id}, e.layout(ctx, d, id)
	})
}

// Organize lays out the whole document from the root.
func (e *Editor) Organize(ctx context.Context) error {
	return e.apply(ctx, OpOrganize, func(d *document.Document) (Change, error) {
		start := time.Now()
		err := e.engine.LayoutAll(d.Tree, d.Geometry)
		observability.Pipeline().OnLayoutComplete(ctx, "document", d.Tree.Len(), time.Since(start), err)
		return Change{Op: OpOrganize}, err
	})
}

// OrganizeFrom lays out the subtree rooted at id. The node keeps its
// top-left corner.
func (e *Editor) OrganizeFrom(ctx context.Context, id tree.NodeID) error {
	return e.apply(ctx, OpOrganizeFrom, func(d *document.Document) (Change, error) {
		if !d.Tree.Contains(id) {
			return Change{}, pkgerrors.New(pkgerrors.ErrCodeNotFound, "node %q not found", id)
		}
		return Change{Op: OpOrganizeFrom, Node: id}, e.layout(ctx, d, id)
	})
}

// Undo restores the document as it was before the last committed change.
// It reports false when there is nothing to undo.
func (e *Editor) Undo(ctx context.Context) bool {
	ok := len(e.undo) > 0
	if ok {
		e.redo = append(e.redo, e.doc)
		e.doc = e.undo[len(e.undo)-1]
		e.undo = e.undo[:len(e.undo)-1]
		e.notify(Change{Op: OpUndo})
	}
	observability.Edit().OnHistory(ctx, OpUndo, ok)
	return ok
}

// Redo reapplies the last undone change. It reports false when there is
// nothing to redo.
func (e *Editor) Redo(ctx context.Context) bool {
	ok := len(e.redo) > 0
	if ok {
		e.undo = append(e.undo, e.doc)
		e.doc = e.redo[len(e.redo)-1]
		e.redo = e.redo[:len(e.redo)-1]
		e.notify(Change{Op: OpRedo})
	}
	observability.Edit().OnHistory(ctx, OpRedo, ok)
	return ok
}

// apply runs fn against the live document. If fn fails or leaves the tree and
// geometry inconsistent, the checkpoint taken beforehand becomes the live
// document again.
func (e *Editor) apply(ctx context.Context, op string, fn func(*document.Document) (Change, error)) error {
	start := time.Now()
	checkpoint := e.doc.Clone()

	change, err := fn(e.doc)
	if err == nil {
		if verr := e.doc.Validate(); verr != nil {
			err = pkgerrors.Wrap(pkgerrors.ErrCodeInternal, verr, "%s left the document inconsistent", op)
		}
	}

	dur := time.Since(start)
	if err != nil {
		e.doc = checkpoint
		e.logger.Debug("edit rejected", "op", op, "error", err)
		observability.Edit().OnEdit(ctx, op, e.doc.Tree.Len(), dur, err)
		return err
	}

	e.logger.Debug("edit applied", "op", op, "node", change.Node, "nodes", e.doc.Tree.Len(), "duration", dur)
	observability.Edit().OnEdit(ctx, op, e.doc.Tree.Len(), dur, nil)
	if e.batching {
		e.pending = append(e.pending, change)
		return nil
	}
	e.pushUndo(checkpoint)
	e.redo = nil
	e.notify(change)
	return nil
}

// Batch runs fn so that the edits it makes commit as one undo step. If fn
// returns an error every edit made inside it is rolled back and listeners
// see nothing. Listeners are notified of each change after fn returns.
//
// fn must not call Undo, Redo or Load. A nested Batch joins the outer one.
func (e *Editor) Batch(ctx context.Context, fn func() error) error {
	if e.batching {
		return fn()
	}
	checkpoint := e.doc.Clone()
	e.batching, e.pending = true, nil
	err := fn()
	changes := e.pending
	e.batching, e.pending = false, nil

	if err != nil {
		e.doc = checkpoint
		e.logger.Debug("batch rolled back", "edits", len(changes), "error", err)
		return err
	}
	if len(changes) == 0 {
		return nil
	}
	e.pushUndo(checkpoint)
	e.redo = nil
	for _, c := range changes {
		e.notify(c)
	}
	return nil
}

// layout lays out the subtree of id; an empty id (the parent of the root) is
// a no-op.
func (e *Editor) layout(ctx context.Context, d *document.Document, id tree.NodeID) error {
	if id == "" {
		return nil
	}
	start := time.Now()
	err := e.engine.Layout(d.Tree, d.Geometry, id)
	observability.Pipeline().OnLayoutComplete(ctx, "subtree", len(d.Tree.Descendants(id))+1, time.Since(start), err)
	return err
}

func (e *Editor) pushUndo(d *document.Document) {
	if e.limit == 0 {
		return
	}
	e.undo = append(e.undo, d)
	if over := len(e.undo) - e.limit; over > 0 {
		e.undo = append(e.undo[:0], e.undo[over:]...)
	}
}

func (e *Editor) notify(c Change) {
	for _, fn := range e.listeners {
		fn(c)
	}
}

func withDefaultText(c tree.Content) tree.Content {
	if c.Text == "" && c.Image == nil {
		c.Text = DefaultNodeText
	}
	return c
}
