package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matzehuels/mindmap/pkg/document"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geometry"
	"github.com/matzehuels/mindmap/pkg/tree"
)

// MaxDocumentSize bounds how much ReadJSON will read.
const MaxDocumentSize = 256 << 20

// ReadJSON decodes a document from r. See [Unmarshal] for the validation
// performed. ReadJSON does not close r.
func ReadJSON(r io.Reader, opts ...tree.Option) (*document.Document, error) {
	data, err := readLimited(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data, opts...)
}

// ImportJSON reads the document file at path.
func ImportJSON(path string, opts ...tree.Option) (*document.Document, error) {
	doc, _, err := Load(path, opts...)
	return doc, err
}

// Load is ImportJSON that also returns the bytes it read, so callers can
// recognise the file later.
func Load(path string, opts ...tree.Option) (*document.Document, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	data, err := readLimited(f)
	if err != nil {
		return nil, nil, err
	}
	doc, err := Unmarshal(data, opts...)
	if err != nil {
		return nil, nil, err
	}
	return doc, data, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if len(data) > MaxDocumentSize {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "document exceeds %d bytes", MaxDocumentSize)
	}
	return data, nil
}

// Unmarshal decodes and validates a document. Nothing is returned unless the
// whole document is valid:
//   - text that is not JSON fails with PARSE_FAILURE
//   - anything else that is wrong fails with INVALID_DOCUMENT
//
// opts configure the returned tree store, typically its id generator.
func Unmarshal(data []byte, opts ...tree.Option) (*document.Document, error) {
	if !json.Valid(data) {
		return nil, parseFailure(data)
	}
	if err := checkDuplicateNodes(data); err != nil {
		return nil, err
	}

	var in file
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidDocument, err, "unexpected document structure")
	}
	if in.Version < 1 || in.Version > document.CurrentVersion {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "unsupported version %d", in.Version)
	}
	if in.Root == "" {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "missing root")
	}
	if _, ok := in.Nodes[in.Root]; !ok {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "root %q is not a node", in.Root)
	}

	images, err := decodeImages(in.Images)
	if err != nil {
		return nil, err
	}

	g := geometry.New()
	nodes := make([]tree.Node, 0, len(in.Nodes))
	for id, n := range in.Nodes {
		c := tree.Content{Text: n.Content, Link: n.Link}
		if n.ImageRef != "" {
			img, ok := images[n.ImageRef]
			if !ok {
				return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "node %q references unknown image %q", id, n.ImageRef)
			}
			c.Image = img
		}
		if n.Rect.W < 0 || n.Rect.H < 0 {
			return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "node %q has a negative size", id)
		}
		nodes = append(nodes, tree.Node{ID: tree.NodeID(id), Content: c, Children: toNodeIDs(n.Children)})
		g.Set(tree.NodeID(id), n.Rect)
		g.SetFixedSize(tree.NodeID(id), n.FixedSize)
	}

	s, err := tree.Restore(tree.NodeID(in.Root), nodes, opts...)
	if err != nil {
		return nil, err
	}
	doc := &document.Document{Version: in.Version, Tree: s, Geometry: g}
	if err := doc.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidDocument, err, "inconsistent document")
	}
	return doc, nil
}

func decodeImages(in map[string]binary) (map[string]*tree.Image, error) {
	out := make(map[string]*tree.Image, len(in))
	for ref, b := range in {
		if hash, _, _ := strings.Cut(ref, "#"); ImageRef(b.Data) != hash {
			return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "image %q does not match its content", ref)
		}
		if b.Width < 0 || b.Height < 0 {
			return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "image %q has a negative size", ref)
		}
		img := &tree.Image{Data: b.Data, Format: b.Format, Width: b.Width, Height: b.Height}
		if img.Width == 0 || img.Height == 0 {
			if decoded, err := DecodeImage(b.Data); err == nil {
				img.Format, img.Width, img.Height = decoded.Format, decoded.Width, decoded.Height
			}
		}
		out[ref] = img
	}
	return out, nil
}

// checkDuplicateNodes walks the token stream of a syntactically valid
// document and rejects a "nodes" object that repeats a key. encoding/json
// would otherwise keep the last value silently.
func checkDuplicateNodes(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "document must be a JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.ErrCodeParseFailure, err, "read key")
		}
		if key, _ := tok.(string); key != "nodes" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return pkgerrors.Wrap(pkgerrors.ErrCodeParseFailure, err, "read %v", tok)
			}
			continue
		}

		tok, err = dec.Token()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.ErrCodeParseFailure, err, "read nodes")
		}
		if tok != json.Delim('{') {
			// Wrong type; json.Unmarshal reports it.
			return nil
		}
		seen := make(map[string]bool)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.ErrCodeParseFailure, err, "read node id")
			}
			id, _ := tok.(string)
			if seen[id] {
				return pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "duplicate node id %q", id)
			}
			seen[id] = true
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return pkgerrors.Wrap(pkgerrors.ErrCodeParseFailure, err, "read node %q", id)
			}
		}
		if _, err := dec.Token(); err != nil {
			return pkgerrors.Wrap(pkgerrors.ErrCodeParseFailure, err, "read nodes")
		}
	}
	return nil
}

// parseFailure locates the syntax error in data for the message.
func parseFailure(data []byte) error {
	var v any
	err := json.Unmarshal(data, &v)
	if err == nil {
		err = fmt.Errorf("invalid JSON")
	}
	return pkgerrors.Wrap(pkgerrors.ErrCodeParseFailure, err, "file contains invalid JSON data")
}
