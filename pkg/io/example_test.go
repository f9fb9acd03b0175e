package io_test

import (
	"fmt"

	"github.com/matzehuels/mindmap/pkg/document"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geometry"
	pkgio "github.com/matzehuels/mindmap/pkg/io"
	"github.com/matzehuels/mindmap/pkg/tree"
)

func ExampleMarshal() {
	d := document.Empty(tree.WithIDGenerator(tree.NewSequenceGenerator("n")))
	root, _ := d.Tree.CreateRoot(tree.TextContent("Root"))
	child, _ := d.Tree.AddChild(root, tree.TextContent("Child"))
	d.Geometry.Set(root, geometry.Rect{W: 56, H: 32})
	d.Geometry.Set(child, geometry.Rect{X: 116, W: 56, H: 32})

	data, _ := pkgio.Marshal(d)
	fmt.Print(string(data))
	// Output:
	// {
	//   "version": 1,
	//   "root": "n1",
	//   "nodes": {
	//     "n1": {
	//       "content": "Root",
	//       "children": [
	//         "n2"
	//       ],
	//       "rect": {
	//         "x": 0,
	//         "y": 0,
	//         "w": 56,
	//         "h": 32
	//       }
	//     },
	//     "n2": {
	//       "content": "Child",
	//       "children": [],
	//       "rect": {
	//         "x": 116,
	//         "y": 0,
	//         "w": 56,
	//         "h": 32
	//       }
	//     }
	//   }
	// }
}

func ExampleUnmarshal() {
	_, err := pkgio.Unmarshal([]byte("{not json"))
	fmt.Println(pkgerrors.GetCode(err))

	_, err = pkgio.Unmarshal([]byte(`{"version":1,"root":"r","nodes":{"r":{"children":["ghost"]}}}`))
	fmt.Println(pkgerrors.GetCode(err))
	// Output:
	// PARSE_FAILURE
	// INVALID_DOCUMENT
}
