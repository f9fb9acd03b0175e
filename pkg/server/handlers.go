package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/mindmap/pkg/editor"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/geometry"
	pkgio "github.com/matzehuels/mindmap/pkg/io"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/pipeline"
	"github.com/matzehuels/mindmap/pkg/tree"
)

type addNodeRequest struct {
	// Parent is empty only when creating the root of an empty map.
	Parent tree.NodeID `json:"parent"`
	Text   string      `json:"text" validate:"max=10000"`
	Link   string      `json:"link,omitempty" validate:"max=2048"`
	Image  []byte      `json:"image,omitempty"`
}

type updateNodeRequest struct {
	Text        *string `json:"text,omitempty" validate:"omitempty,max=10000"`
	Link        *string `json:"link,omitempty" validate:"omitempty,max=2048"`
	Image       []byte  `json:"image,omitempty"`
	RemoveImage bool    `json:"remove_image,omitempty"`
	// Width and Height are given together; zero restores automatic sizing.
	Width  *float64 `json:"width,omitempty" validate:"omitempty,gte=0"`
	Height *float64 `json:"height,omitempty" validate:"omitempty,gte=0"`
}

type moveRequest struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

type reparentRequest struct {
	Parent tree.NodeID `json:"parent" validate:"required"`
	// Index places the node among its new siblings; the end if omitted.
	Index *int `json:"index,omitempty" validate:"omitempty,gte=0"`
}

type nodeResponse struct {
	ID       tree.NodeID   `json:"id"`
	Parent   tree.NodeID   `json:"parent,omitempty"`
	Children []tree.NodeID `json:"children"`
	Text     string        `json:"text,omitempty"`
	Link     string        `json:"link,omitempty"`
	Image    string        `json:"image,omitempty"`
	Rect     geometry.Rect `json:"rect"`
}

type historyResponse struct {
	Applied bool `json:"applied"`
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
}

func describe(ed *editor.Editor, id tree.NodeID) nodeResponse {
	d := ed.Document()
	c, _ := d.Tree.Content(id)
	parent, _ := d.Tree.Parent(id)
	r, _ := d.Geometry.Get(id)
	resp := nodeResponse{
		ID:       id,
		Parent:   parent,
		Children: d.Tree.Children(id),
		Text:     c.Text,
		Link:     c.Link,
		Rect:     r,
	}
	if resp.Children == nil {
		resp.Children = []tree.NodeID{}
	}
	if c.Image != nil {
		resp.Image = pkgio.ImageRef(c.Image.Data)
	}
	return resp
}

func decodeImage(data []byte) (*tree.Image, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return pkgio.DecodeImage(data)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "feed_clients": s.hub.Len()})
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc := s.sess.Snapshot()
	if doc.Tree.Root() == "" {
		s.writeError(w, pkgerrors.New(pkgerrors.ErrCodeNotFound, "map is empty"))
		return
	}
	data, err := pkgio.Marshal(doc)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) addNode(w http.ResponseWriter, r *http.Request) {
	var req addNodeRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	img, err := decodeImage(req.Image)
	if err != nil {
		s.writeError(w, err)
		return
	}
	c := tree.Content{Text: req.Text, Link: req.Link, Image: img}

	var resp nodeResponse
	err = s.sess.Do(func(ed *editor.Editor) error {
		var id tree.NodeID
		var err error
		if req.Parent == "" {
			if ed.Document().Tree.Root() != "" {
				return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "parent is required")
			}
			id, err = ed.Init(r.Context(), c)
		} else {
			id, err = ed.AddChild(r.Context(), req.Parent, c)
		}
		if err != nil {
			return err
		}
		resp = describe(ed, id)
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) updateNode(w http.ResponseWriter, r *http.Request) {
	id := tree.NodeID(chi.URLParam(r, "id"))
	var req updateNodeRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if (req.Width == nil) != (req.Height == nil) {
		s.writeError(w, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "width and height must be given together"))
		return
	}
	img, err := decodeImage(req.Image)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var resp nodeResponse
	err = s.sess.Do(func(ed *editor.Editor) error {
		c, ok := ed.Document().Tree.Content(id)
		if !ok {
			return pkgerrors.New(pkgerrors.ErrCodeNotFound, "node %q not found", id)
		}
		changed := false
		if req.Text != nil {
			c.Text, changed = *req.Text, true
		}
		if req.Link != nil {
			c.Link, changed = *req.Link, true
		}
		if img != nil {
			c.Image, changed = img, true
		} else if req.RemoveImage {
			c.Image, changed = nil, true
		}
		err := ed.Batch(r.Context(), func() error {
			if changed {
				if err := ed.SetContent(r.Context(), id, c); err != nil {
					return err
				}
			}
			if req.Width != nil && req.Height != nil {
				return ed.Resize(r.Context(), id, *req.Width, *req.Height)
			}
			return nil
		})
		if err != nil {
			return err
		}
		resp = describe(ed, id)
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	id := tree.NodeID(chi.URLParam(r, "id"))
	var removed []tree.NodeID
	err := s.sess.Do(func(ed *editor.Editor) error {
		var err error
		removed, err = ed.Delete(r.Context(), id)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (s *Server) moveNode(w http.ResponseWriter, r *http.Request) {
	id := tree.NodeID(chi.URLParam(r, "id"))
	var req moveRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.nodeEdit(w, id, func(ed *editor.Editor) error {
		return ed.Move(r.Context(), id, *req.X, *req.Y)
	})
}

// reparentNode attaches the node under its new parent and then, if an
// index is given, moves it among its siblings. Both steps form one undo
// entry.
func (s *Server) reparentNode(w http.ResponseWriter, r *http.Request) {
	id := tree.NodeID(chi.URLParam(r, "id"))
	var req reparentRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.nodeEdit(w, id, func(ed *editor.Editor) error {
		return ed.Batch(r.Context(), func() error {
			if err := ed.Reparent(r.Context(), id, req.Parent); err != nil {
				return err
			}
			if req.Index == nil {
				return nil
			}
			last := len(ed.Document().Tree.Children(req.Parent)) - 1
			if delta := *req.Index - last; delta < 0 {
				return ed.MoveSibling(r.Context(), id, delta)
			}
			return nil
		})
	})
}

func (s *Server) organizeNode(w http.ResponseWriter, r *http.Request) {
	id := tree.NodeID(chi.URLParam(r, "id"))
	s.nodeEdit(w, id, func(ed *editor.Editor) error {
		return ed.OrganizeFrom(r.Context(), id)
	})
}

// nodeEdit runs fn and replies with the node's state afterwards.
func (s *Server) nodeEdit(w http.ResponseWriter, id tree.NodeID, fn func(ed *editor.Editor) error) {
	var resp nodeResponse
	err := s.sess.Do(func(ed *editor.Editor) error {
		if err := fn(ed); err != nil {
			return err
		}
		resp = describe(ed, id)
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) organize(w http.ResponseWriter, r *http.Request) {
	err := s.sess.Do(func(ed *editor.Editor) error { return ed.Organize(r.Context()) })
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.getDocument(w, r)
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	s.history(w, func(ed *editor.Editor) bool { return ed.Undo(r.Context()) })
}

func (s *Server) redo(w http.ResponseWriter, r *http.Request) {
	s.history(w, func(ed *editor.Editor) bool { return ed.Redo(r.Context()) })
}

func (s *Server) history(w http.ResponseWriter, step func(ed *editor.Editor) bool) {
	var resp historyResponse
	_ = s.sess.Do(func(ed *editor.Editor) error {
		resp.Applied = step(ed)
		resp.CanUndo, resp.CanRedo = ed.CanUndo(), ed.CanRedo()
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	path := s.sess.Path()
	if path == "" {
		s.writeError(w, pkgerrors.New(pkgerrors.ErrCodeInvalidPath, "the document has no file to save to"))
		return
	}
	if err := s.sess.Save(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": path})
}

// export renders the current document. Query parameters: style, scale,
// direction and organize.
func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	q := r.URL.Query()
	opts := pipeline.Options{
		Formats:   []string{format},
		Style:     q.Get("style"),
		Direction: layout.Direction(q.Get("direction")),
		Logger:    s.logger,
	}
	if v := q.Get("scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.writeError(w, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "invalid scale %q", v))
			return
		}
		opts.Scale = scale
	}
	if v := q.Get("organize"); v != "" {
		organize, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "invalid organize %q", v))
			return
		}
		opts.Organize = organize
	}

	res, err := s.runner.Export(r.Context(), s.sess.Snapshot(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", pipeline.ContentTypes[format])
	w.Header().Set("X-Document-Hash", res.DocHash)
	_, _ = w.Write(res.Artifacts[format])
}
