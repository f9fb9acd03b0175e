package editor_test

import (
	"context"
	"fmt"

	"github.com/matzehuels/mindmap/pkg/document"
	"github.com/matzehuels/mindmap/pkg/editor"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/tree"
)

func Example() {
	ctx := context.Background()
	cfg := layout.DefaultConfig()
	cfg.NodePadding = 0
	ed := editor.New(
		document.Empty(tree.WithIDGenerator(tree.NewSequenceGenerator("n"))),
		layout.New(cfg, layout.FixedMeasurer{CharWidth: 10, LineHeight: 20}),
	)

	root, _ := ed.Init(ctx, tree.TextContent("Root"))
	a, _ := ed.AddChild(ctx, root, tree.TextContent("A"))
	b, _ := ed.AddChild(ctx, root, tree.TextContent("B"))

	err := ed.Reparent(ctx, a, a)
	fmt.Println(pkgerrors.GetCode(err))

	_ = ed.Reparent(ctx, b, a)
	r, _ := ed.Document().Geometry.Get(b)
	fmt.Printf("B under A at x=%v y=%v\n", r.X, r.Y)

	ed.Undo(ctx)
	p, _ := ed.Document().Tree.Parent(b)
	fmt.Println("after undo B's parent is", p)
	// Output:
	// CYCLE_DETECTED
	// B under A at x=200 y=0
	// after undo B's parent is n1
}
