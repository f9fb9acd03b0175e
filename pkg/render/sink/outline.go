package sink

import (
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/mindmap/pkg/document"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	pkgio "github.com/matzehuels/mindmap/pkg/io"
	"github.com/matzehuels/mindmap/pkg/tree"
)

// OutlineNode is one entry of a YAML outline.
type OutlineNode struct {
	Text     string         `yaml:"text,omitempty"`
	Link     string         `yaml:"link,omitempty"`
	Image    string         `yaml:"image,omitempty"`
	Children []*OutlineNode `yaml:"children,omitempty"`
}

// Outline returns the document's hierarchy without geometry. Images are
// referenced by content hash. An empty document yields nil.
func Outline(doc *document.Document) *OutlineNode {
	s := doc.Tree
	if s.Root() == "" {
		return nil
	}
	return outline(s, s.Root())
}

func outline(s *tree.Store, id tree.NodeID) *OutlineNode {
	c, _ := s.Content(id)
	n := &OutlineNode{Text: c.Text, Link: c.Link}
	if c.Image != nil {
		n.Image = pkgio.ImageRef(c.Image.Data)
	}
	for _, child := range s.Children(id) {
		n.Children = append(n.Children, outline(s, child))
	}
	return n
}

// RenderOutline writes the document's outline as YAML.
func RenderOutline(doc *document.Document) ([]byte, error) {
	data, err := yaml.Marshal(Outline(doc))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeExportFailure, err, "encode outline")
	}
	return data, nil
}
