// Package pkg provides the core libraries of the mindmap editor.
//
// # Overview
//
// A mind map is a tree of text, image and link nodes with a rectangle per
// node on a 2-D canvas. The pkg directory is organized into four areas:
//
//  1. Model: [tree], [geometry] and [document] hold the node hierarchy and
//     the node rectangles.
//  2. Editing: [layout] places subtrees, [editor] applies edit operations
//     with undo and redo, and [session] tracks the open file.
//  3. Serialization and output: [io] reads and writes the JSON file format,
//     [render/sink] and [render/nodelink] draw exports, and [pipeline] runs
//     layout and render with a [cache].
//  4. Infrastructure: [config], [storage], [server], [httputil],
//     [observability] and [errors].
//
// # Architecture
//
// The typical data flow of an edit:
//
//	JSON file
//	    ↓
//	[io] package (decode + validate)
//	    ↓
//	[editor] package (edit operation → partial layout)
//	    ↓
//	[io] package (encode, atomic write)
//
// and of an export:
//
//	Document
//	    ↓
//	[pipeline] package (organize copy → cache lookup)
//	    ↓
//	[render/sink] package (scene → SVG/PNG/PDF)
//
// # Quick Start
//
//	doc := document.Empty()
//	ed := editor.New(doc, nil)
//
//	root, _ := ed.Init(ctx, tree.TextContent("Project"))
//	plan, _ := ed.AddChild(ctx, root, tree.TextContent("Plan"))
//	_, _ = ed.AddChild(ctx, plan, tree.TextContent("Milestones"))
//
//	_ = pkgio.ExportJSON(ed.Document(), "project.json")
//
// Render the map to SVG and PNG through the cache:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	res, _ := runner.Export(ctx, ed.Document(), pipeline.Options{
//	    Formats: []string{pipeline.FormatSVG, pipeline.FormatPNG},
//	})
//
// # Testing
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/editor/...    # Specific package
//	go test -run Example ./...  # Examples only
package pkg
