// Package io provides JSON import and export for mind-map documents.
//
// # Overview
//
// A document file holds the node tree, the rectangle of every node and any
// embedded images. Saving and loading is lossless: identifiers, content,
// child order and geometry survive a round trip unchanged.
//
// # JSON Format
//
//	{
//	  "version": 1,
//	  "root": "n1",
//	  "nodes": {
//	    "n1": {"content": "Project", "children": ["n2"],
//	           "rect": {"x": 0, "y": 0, "w": 80, "h": 32}},
//	    "n2": {"content": "Logo", "imageRef": "sha256:9f86d0…",
//	           "link": "https://example.com", "children": [],
//	           "rect": {"x": 140, "y": 0, "w": 120, "h": 90}, "fixedSize": true}
//	  },
//	  "images": {
//	    "sha256:9f86d0…": {"format": "png", "width": 104, "height": 40,
//	                       "data": "iVBORw0KGgo…"}
//	  }
//	}
//
// Images are stored once per distinct payload under the SHA-256 of their
// bytes and referenced from nodes by "imageRef".
//
// # Import
//
// Use [ImportJSON] to read a document from a file path, [ReadJSON] to read
// from any io.Reader or [Unmarshal] for a byte slice:
//
//	doc, err := io.ImportJSON("ideas.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Loading is all-or-nothing. Text that is not JSON fails with
// PARSE_FAILURE. JSON that does not describe a single rooted tree fails with
// INVALID_DOCUMENT: duplicate node identifiers, a child that is not a node, a
// node listed under two parents, a second parentless node, a cycle, a missing
// root, an unknown image reference or an unsupported version.
//
// # Export
//
// Use [ExportJSON] to write a document to a file, [WriteJSON] to write to any
// io.Writer or [Marshal] for a byte slice. ExportJSON writes to a temporary
// file and renames it into place, so an interrupted save never truncates the
// previous version.
//
// # Images
//
// [DecodeImage] and [LoadImage] turn PNG, JPEG, GIF, BMP or WebP bytes into a
// [tree.Image] with its intrinsic size, ready to attach to a node.
package io
