package io

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/mindmap/pkg/document"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geometry"
	"github.com/matzehuels/mindmap/pkg/tree"
)

type file struct {
	Version int               `json:"version"`
	Root    string            `json:"root"`
	Nodes   map[string]node   `json:"nodes"`
	Images  map[string]binary `json:"images,omitempty"`
}

type node struct {
	Content   string        `json:"content"`
	ImageRef  string        `json:"imageRef,omitempty"`
	Link      string        `json:"link,omitempty"`
	Children  []string      `json:"children"`
	Rect      geometry.Rect `json:"rect"`
	FixedSize bool          `json:"fixedSize,omitempty"`
}

type binary struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"data"`
}

// ImageRef returns the reference under which an image payload is stored.
func ImageRef(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// WriteJSON encodes doc as indented JSON and writes it to w.
// Object keys are sorted, so equal documents produce identical bytes.
// A document without a root cannot be stored and fails with
// INVALID_DOCUMENT.
//
// Images are keyed by [ImageRef]. When nodes share a payload but disagree
// on its format or size, the later ones get the ref with a
// "#format-WxH" suffix.
func WriteJSON(doc *document.Document, w io.Writer) error {
	if doc.Tree.Root() == "" {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "document has no root")
	}
	out := file{
		Version: doc.Version,
		Root:    string(doc.Tree.Root()),
		Nodes:   make(map[string]node, doc.Tree.Len()),
	}

	for _, id := range doc.Tree.IDs() {
		n, _ := doc.Tree.Node(id)
		r, _ := doc.Geometry.Get(id)
		nd := node{
			Content:   n.Content.Text,
			Link:      n.Content.Link,
			Children:  make([]string, len(n.Children)),
			Rect:      r,
			FixedSize: doc.Geometry.FixedSize(id),
		}
		for i, c := range n.Children {
			nd.Children[i] = string(c)
		}
		if img := n.Content.Image; img != nil {
			b := binary{Format: img.Format, Width: img.Width, Height: img.Height, Data: img.Data}
			ref := ImageRef(img.Data)
			if prev, ok := out.Images[ref]; ok && !sameHeader(prev, b) {
				ref = fmt.Sprintf("%s#%s-%dx%d", ref, b.Format, b.Width, b.Height)
			}
			if out.Images == nil {
				out.Images = make(map[string]binary)
			}
			out.Images[ref] = b
			nd.ImageRef = ref
		}
		out.Nodes[string(id)] = nd
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func sameHeader(a, b binary) bool {
	return a.Format == b.Format && a.Width == b.Width && a.Height == b.Height
}

// Marshal returns the JSON encoding of doc.
func Marshal(doc *document.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(doc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportJSON writes doc to path. The file is replaced atomically; on failure
// the previous contents are left intact. A document that cannot be stored
// fails with INVALID_DOCUMENT, anything else with EXPORT_FAILURE.
func ExportJSON(doc *document.Document, path string) error {
	_, err := Save(doc, path)
	return err
}

// Save is ExportJSON that also returns the bytes written.
func Save(doc *document.Document, path string) ([]byte, error) {
	data, err := Marshal(doc)
	if err != nil {
		if pkgerrors.GetCode(err) != "" {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeExportFailure, err, "encode %s", path)
	}
	if err := WriteFileAtomic(path, data); err != nil {
		return nil, err
	}
	return data, nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// over path.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeExportFailure, err, "create %s", path)
	}
	defer os.Remove(tmp.Name())
	_ = tmp.Chmod(0o644)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return pkgerrors.Wrap(pkgerrors.ErrCodeExportFailure, err, "write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeExportFailure, err, "write %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeExportFailure, err, "rename to %s", path)
	}
	return nil
}

func toNodeIDs(ids []string) []tree.NodeID {
	out := make([]tree.NodeID, len(ids))
	for i, id := range ids {
		out[i] = tree.NodeID(id)
	}
	return out
}
