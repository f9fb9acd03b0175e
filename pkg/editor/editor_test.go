package editor

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/matzehuels/mindmap/pkg/document"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geometry"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/observability"
	"github.com/matzehuels/mindmap/pkg/tree"
)

func newEditor(t *testing.T, opts ...Option) (*Editor, tree.NodeID) {
	t.Helper()
	cfg := layout.DefaultConfig()
	cfg.NodePadding = 0
	eng := layout.New(cfg, layout.FixedMeasurer{CharWidth: 10, LineHeight: 20})
	doc := document.Empty(tree.WithIDGenerator(tree.NewSequenceGenerator("n")))

	ed := New(doc, eng, opts...)
	root, err := ed.Init(context.Background(), tree.TextContent("Root"))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return ed, root
}

func mustAdd(t *testing.T, ed *Editor, parent tree.NodeID, text string) tree.NodeID {
	t.Helper()
	id, err := ed.AddChild(context.Background(), parent, tree.TextContent(text))
	if err != nil {
		t.Fatalf("AddChild(%s, %q): %v", parent, text, err)
	}
	return id
}

func rectOf(t *testing.T, ed *Editor, id tree.NodeID) geometry.Rect {
	t.Helper()
	r, ok := ed.Document().Geometry.Get(id)
	if !ok {
		t.Fatalf("no geometry for %s", id)
	}
	return r
}

func TestAddChildLaysOutParent(t *testing.T) {
	ed, root := newEditor(t)
	a := mustAdd(t, ed, root, "Alpha")
	b := mustAdd(t, ed, root, "Beta")
	c := mustAdd(t, ed, root, "Gamma")

	tests := []struct {
		id   tree.NodeID
		want geometry.Rect
	}{
		{root, geometry.Rect{X: 0, Y: 0, W: 40, H: 24}},
		{a, geometry.Rect{X: 100, Y: -40, W: 50, H: 24}},
		{b, geometry.Rect{X: 100, Y: 0, W: 40, H: 24}},
		{c, geometry.Rect{X: 100, Y: 40, W: 50, H: 24}},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			if got := rectOf(t, ed, tt.id); !got.Approx(tt.want, geometry.Epsilon) {
				t.Errorf("rect = %+v, want %+v", got, tt.want)
			}
		})
	}
	if o := layout.Overlaps(ed.Document().Tree, ed.Document().Geometry); len(o) != 0 {
		t.Errorf("overlaps after insertion: %v", o)
	}
}

func TestAddChildDefaultText(t *testing.T) {
	ed, root := newEditor(t)
	id, err := ed.AddChild(context.Background(), root, tree.Content{})
	if err != nil {
		t.Fatal(err)
	}
	c, _ := ed.Document().Tree.Content(id)
	if c.Text != DefaultNodeText {
		t.Errorf("text = %q, want %q", c.Text, DefaultNodeText)
	}
}

func TestInitTwice(t *testing.T) {
	ed, _ := newEditor(t)
	_, err := ed.Init(context.Background(), tree.TextContent("Again"))
	if !pkgerrors.Is(err, pkgerrors.ErrCodeAlreadyInitialized) {
		t.Errorf("Init twice: got %v, want ALREADY_INITIALIZED", err)
	}
	if ed.Document().Tree.Len() != 1 {
		t.Errorf("Len = %d, want 1", ed.Document().Tree.Len())
	}
}

func TestFailedEditsLeaveDocumentUntouched(t *testing.T) {
	ctx := context.Background()
	ed, root := newEditor(t)
	a := mustAdd(t, ed, root, "A")
	a1 := mustAdd(t, ed, a, "A1")
	before := ed.Snapshot()
	undoDepth := len(ed.undo)

	tests := []struct {
		name string
		op   func() error
		code pkgerrors.Code
	}{
		{"add under unknown", func() error { _, err := ed.AddChild(ctx, "ghost", tree.TextContent("x")); return err }, pkgerrors.ErrCodeNotFound},
		{"delete root", func() error { _, err := ed.Delete(ctx, root); return err }, pkgerrors.ErrCodeCannotRemoveRoot},
		{"delete unknown", func() error { _, err := ed.Delete(ctx, "ghost"); return err }, pkgerrors.ErrCodeNotFound},
		{"reparent into descendant", func() error { return ed.Reparent(ctx, a, a1) }, pkgerrors.ErrCodeCycleDetected},
		{"reparent onto self", func() error { return ed.Reparent(ctx, a, a) }, pkgerrors.ErrCodeCycleDetected},
		{"reparent root", func() error { return ed.Reparent(ctx, root, a) }, pkgerrors.ErrCodeCannotReparentRoot},
		{"move unknown", func() error { return ed.Move(ctx, "ghost", 1, 1) }, pkgerrors.ErrCodeNotFound},
		{"set content unknown", func() error { return ed.SetContent(ctx, "ghost", tree.TextContent("x")) }, pkgerrors.ErrCodeNotFound},
		{"organize unknown", func() error { return ed.OrganizeFrom(ctx, "ghost") }, pkgerrors.ErrCodeNotFound},
		{"resize negative", func() error { return ed.Resize(ctx, a, -1, 10) }, pkgerrors.ErrCodeInvalidInput},
		{"resize unknown", func() error { return ed.Resize(ctx, "ghost", 10, 10) }, pkgerrors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			if !pkgerrors.Is(err, tt.code) {
				t.Fatalf("error = %v, want code %s", err, tt.code)
			}
			if diff := before.Diff(ed.Document(), geometry.Epsilon); diff != nil {
				t.Errorf("document changed: %v", diff)
			}
			if len(ed.undo) != undoDepth {
				t.Errorf("failed edit recorded in history")
			}
		})
	}
}

func TestDeleteRemovesGeometry(t *testing.T) {
	ed, root := newEditor(t)
	a := mustAdd(t, ed, root, "A")
	a1 := mustAdd(t, ed, a, "A1")
	b := mustAdd(t, ed, root, "B")

	removed, err := ed.Delete(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}
	if want := []tree.NodeID{a1, a}; !slices.Equal(removed, want) {
		t.Errorf("removed = %v, want %v", removed, want)
	}
	d := ed.Document()
	for _, id := range removed {
		if d.Tree.Contains(id) || d.Geometry.Has(id) {
			t.Errorf("%s still present after delete", id)
		}
	}
	rr, rb := rectOf(t, ed, root), rectOf(t, ed, b)
	if rb.CenterY() != rr.CenterY() {
		t.Errorf("remaining child not re-centred: B.CenterY=%v root.CenterY=%v", rb.CenterY(), rr.CenterY())
	}
}

func TestReparent(t *testing.T) {
	ed, root := newEditor(t)
	a := mustAdd(t, ed, root, "A")
	a1 := mustAdd(t, ed, a, "A1")
	b := mustAdd(t, ed, root, "B")

	if err := ed.Reparent(context.Background(), a1, b); err != nil {
		t.Fatal(err)
	}
	d := ed.Document()
	if p, _ := d.Tree.Parent(a1); p != b {
		t.Errorf("parent = %s, want %s", p, b)
	}
	if got := d.Tree.Children(a); len(got) != 0 {
		t.Errorf("old parent children = %v, want none", got)
	}
	if rb, r1 := rectOf(t, ed, b), rectOf(t, ed, a1); r1.X <= rb.Right() {
		t.Errorf("A1.X = %v, want beyond B.Right = %v", r1.X, rb.Right())
	}
	if o := layout.Overlaps(d.Tree, d.Geometry); len(o) != 0 {
		t.Errorf("overlaps after reparent: %v", o)
	}
}

func TestMoveTouchesOneNode(t *testing.T) {
	ed, root := newEditor(t)
	a := mustAdd(t, ed, root, "A")
	b := mustAdd(t, ed, root, "B")
	before := rectOf(t, ed, b)

	if err := ed.Move(context.Background(), a, 500, 300); err != nil {
		t.Fatal(err)
	}
	if r := rectOf(t, ed, a); r.X != 500 || r.Y != 300 {
		t.Errorf("A at (%v, %v), want (500, 300)", r.X, r.Y)
	}
	if r := rectOf(t, ed, b); r != before {
		t.Errorf("B moved from %+v to %+v", before, r)
	}
}

func TestOrganizeAfterDrag(t *testing.T) {
	ctx := context.Background()
	ed, root := newEditor(t)
	a := mustAdd(t, ed, root, "A")
	b := mustAdd(t, ed, root, "B")
	organized := rectOf(t, ed, a)

	_ = ed.Move(ctx, a, 0, 0)
	_ = ed.Move(ctx, b, 0, 0)
	if err := ed.Organize(ctx); err != nil {
		t.Fatal(err)
	}
	if r := rectOf(t, ed, a); !r.Approx(organized, geometry.Epsilon) {
		t.Errorf("A = %+v, want %+v", r, organized)
	}
	d := ed.Document()
	if o := layout.Overlaps(d.Tree, d.Geometry); len(o) != 0 {
		t.Errorf("overlaps after organize: %v", o)
	}
}

func TestOrganizeFromKeepsAnchor(t *testing.T) {
	ctx := context.Background()
	ed, root := newEditor(t)
	a := mustAdd(t, ed, root, "A")
	a1 := mustAdd(t, ed, a, "A1")

	_ = ed.Move(ctx, a, 400, 400)
	if err := ed.OrganizeFrom(ctx, a); err != nil {
		t.Fatal(err)
	}
	ra, r1 := rectOf(t, ed, a), rectOf(t, ed, a1)
	if ra.X != 400 || ra.Y != 400 {
		t.Errorf("A at (%v, %v), want (400, 400)", ra.X, ra.Y)
	}
	if r1.X != ra.Right()+layout.DefaultLevelGap {
		t.Errorf("A1.X = %v, want %v", r1.X, ra.Right()+layout.DefaultLevelGap)
	}
	if rr := rectOf(t, ed, root); rr.X != 0 || rr.Y != 0 {
		t.Errorf("root moved to (%v, %v)", rr.X, rr.Y)
	}
}

func TestSetContentResizes(t *testing.T) {
	ed, root := newEditor(t)
	if err := ed.SetContent(context.Background(), root, tree.TextContent("A much longer root")); err != nil {
		t.Fatal(err)
	}
	if r := rectOf(t, ed, root); r.W != 180 {
		t.Errorf("W = %v, want 180", r.W)
	}
}

func TestResize(t *testing.T) {
	ctx := context.Background()
	ed, root := newEditor(t)
	a := mustAdd(t, ed, root, "A")

	if err := ed.Resize(ctx, a, 120, 80); err != nil {
		t.Fatal(err)
	}
	if err := ed.Organize(ctx); err != nil {
		t.Fatal(err)
	}
	if r := rectOf(t, ed, a); r.W != 120 || r.H != 80 {
		t.Errorf("size after organize = %vx%v, want 120x80", r.W, r.H)
	}

	if err := ed.Resize(ctx, a, 0, 0); err != nil {
		t.Fatal(err)
	}
	if r := rectOf(t, ed, a); r.W != layout.DefaultMinWidth || r.H != layout.DefaultMinHeight {
		t.Errorf("size after reset = %vx%v, want content size", r.W, r.H)
	}
}

func TestMoveSibling(t *testing.T) {
	ed, root := newEditor(t)
	a := mustAdd(t, ed, root, "A")
	b := mustAdd(t, ed, root, "B")

	if err := ed.MoveSibling(context.Background(), b, -1); err != nil {
		t.Fatal(err)
	}
	if got, want := ed.Document().Tree.Children(root), []tree.NodeID{b, a}; !slices.Equal(got, want) {
		t.Errorf("children = %v, want %v", got, want)
	}
	if rectOf(t, ed, b).Y >= rectOf(t, ed, a).Y {
		t.Error("B not laid out above A after moving it first")
	}
}

func TestUndoRedo(t *testing.T) {
	ctx := context.Background()
	ed, root := newEditor(t)
	if !ed.Undo(ctx) {
		t.Fatal("Undo after Init = false, want true")
	}
	if ed.Document().Tree.Len() != 0 || ed.Undo(ctx) {
		t.Fatal("expected an empty document with no further history")
	}
	if !ed.Redo(ctx) {
		t.Fatal("Redo = false")
	}

	a := mustAdd(t, ed, root, "A")
	if !ed.Undo(ctx) {
		t.Fatal("Undo = false")
	}
	if ed.Document().Tree.Contains(a) || ed.Document().Geometry.Has(a) {
		t.Error("undo kept the added node")
	}
	if !ed.CanRedo() || !ed.Redo(ctx) {
		t.Fatal("Redo = false")
	}
	if !ed.Document().Tree.Contains(a) {
		t.Error("redo did not restore the node")
	}

	_ = ed.Undo(ctx)
	mustAdd(t, ed, root, "B")
	if ed.CanRedo() {
		t.Error("new edit kept the redo stack")
	}
}

func TestHistoryLimit(t *testing.T) {
	ctx := context.Background()
	ed, root := newEditor(t, WithHistoryLimit(2))
	for _, s := range []string{"A", "B", "C"} {
		mustAdd(t, ed, root, s)
	}
	n := 0
	for ed.Undo(ctx) {
		n++
	}
	if n != 2 {
		t.Errorf("undo steps = %d, want 2", n)
	}
	if got := ed.Document().Tree.Len(); got != 2 {
		t.Errorf("Len after undoing = %d, want 2", got)
	}
}

func TestListener(t *testing.T) {
	var got []Change
	ed, root := newEditor(t, WithListener(func(c Change) { got = append(got, c) }))
	a := mustAdd(t, ed, root, "A")
	_, _ = ed.Delete(context.Background(), "ghost")
	_, _ = ed.Delete(context.Background(), a)

	want := []string{OpInit, OpAdd, OpDelete}
	var ops []string
	for _, c := range got {
		ops = append(ops, c.Op)
	}
	if !slices.Equal(ops, want) {
		t.Errorf("ops = %v, want %v", ops, want)
	}
	if last := got[len(got)-1]; !slices.Equal(last.Removed, []tree.NodeID{a}) {
		t.Errorf("Removed = %v, want [%s]", last.Removed, a)
	}
}

func TestBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("rollback", func(t *testing.T) {
		var got []Change
		ed, root := newEditor(t)
		a := mustAdd(t, ed, root, "A")
		ed.OnChange(func(c Change) { got = append(got, c) })
		before := ed.Snapshot()

		err := ed.Batch(ctx, func() error {
			if err := ed.SetContent(ctx, a, tree.TextContent("X")); err != nil {
				return err
			}
			return ed.Resize(ctx, a, 0, 5)
		})
		if !pkgerrors.Is(err, pkgerrors.ErrCodeInvalidInput) {
			t.Fatalf("Batch error = %v, want INVALID_INPUT", err)
		}
		if c, _ := ed.Document().Tree.Content(a); c.Text != "A" {
			t.Errorf("text = %q after a failed batch, want %q", c.Text, "A")
		}
		if diff := before.Diff(ed.Document(), geometry.Epsilon); diff != nil {
			t.Errorf("failed batch changed the document: %v", diff)
		}
		if len(got) != 0 {
			t.Errorf("listeners saw %v", got)
		}
		if !ed.Undo(ctx) || ed.Document().Tree.Contains(a) {
			t.Error("undo after a failed batch did not remove A")
		}
	})

	t.Run("one undo step", func(t *testing.T) {
		var ops []string
		ed, root := newEditor(t)
		a := mustAdd(t, ed, root, "A")
		ed.OnChange(func(c Change) { ops = append(ops, c.Op) })

		err := ed.Batch(ctx, func() error {
			if err := ed.SetContent(ctx, a, tree.TextContent("X")); err != nil {
				return err
			}
			return ed.Resize(ctx, a, 120, 80)
		})
		if err != nil {
			t.Fatal(err)
		}
		if want := []string{OpSetContent, OpResize}; !slices.Equal(ops, want) {
			t.Errorf("ops = %v, want %v", ops, want)
		}
		if !ed.Undo(ctx) {
			t.Fatal("Undo = false")
		}
		c, _ := ed.Document().Tree.Content(a)
		if r := rectOf(t, ed, a); c.Text != "A" || r.W == 120 {
			t.Errorf("undo left text %q width %v, want the pre-batch node", c.Text, r.W)
		}
	})

	t.Run("empty", func(t *testing.T) {
		ed, _ := newEditor(t)
		_ = ed.Undo(ctx)
		if err := ed.Batch(ctx, func() error { return nil }); err != nil {
			t.Fatal(err)
		}
		if !ed.CanRedo() {
			t.Error("an empty batch cleared the redo stack")
		}
	})
}

func TestLoadRejectsInvalid(t *testing.T) {
	ed, root := newEditor(t)
	bad := document.Empty()
	_, _ = bad.Tree.CreateRoot(tree.TextContent("x")) // no geometry for the root

	if err := ed.Load(context.Background(), bad); err == nil {
		t.Fatal("Load accepted a document without geometry")
	}
	if !ed.Document().Tree.Contains(root) {
		t.Error("failed load replaced the document")
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	ed, root := newEditor(t)
	snap := ed.Snapshot()
	mustAdd(t, ed, root, "A")
	if snap.Tree.Len() != 1 || snap.Geometry.Len() != 1 {
		t.Errorf("snapshot changed: %d nodes, %d rects", snap.Tree.Len(), snap.Geometry.Len())
	}
}

type recordingHooks struct {
	observability.NoopEditHooks
	ops    []string
	failed int
}

func (h *recordingHooks) OnEdit(_ context.Context, op string, _ int, _ time.Duration, err error) {
	h.ops = append(h.ops, op)
	if err != nil {
		h.failed++
	}
}

func TestEditHooks(t *testing.T) {
	h := &recordingHooks{}
	observability.SetEditHooks(h)
	defer observability.Reset()

	ed, root := newEditor(t)
	mustAdd(t, ed, root, "A")
	_ = ed.Reparent(context.Background(), root, root)

	if want := []string{OpInit, OpAdd, OpReparent}; !slices.Equal(h.ops, want) {
		t.Errorf("ops = %v, want %v", h.ops, want)
	}
	if h.failed != 1 {
		t.Errorf("failed = %d, want 1", h.failed)
	}
}
