package tree

import (
	"maps"
	"slices"

	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
)

// Node is a read-only view of a stored node. Children is a copy; mutating it
// has no effect on the store.
type Node struct {
	ID       NodeID
	Parent   NodeID // empty for the root
	Content  Content
	Children []NodeID
}

// IsRoot reports whether the node has no parent.
func (n Node) IsRoot() bool { return n.Parent == "" }

type node struct {
	parent   NodeID
	content  Content
	children []NodeID
}

// Store is an arena of nodes forming a single rooted tree.
//
// The zero value is not usable - use New to create a store.
// Store is not safe for concurrent use without external synchronization.
type Store struct {
	nodes   map[NodeID]*node
	root    NodeID
	retired map[NodeID]struct{}
	ids     IDGenerator
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

// New creates an empty store. CreateRoot must be called before any child can
// be added.
func New(opts ...Option) *Store {
	s := &Store{
		nodes:   make(map[NodeID]*node),
		retired: make(map[NodeID]struct{}),
		ids:     NewUUIDGenerator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRoot creates the root node. It fails with ALREADY_INITIALIZED if the
// store already has a root.
func (s *Store) CreateRoot(c Content) (NodeID, error) {
	if s.root != "" {
		return "", pkgerrors.New(pkgerrors.ErrCodeAlreadyInitialized, "root already exists: %s", s.root)
	}
	id := s.nextID()
	s.nodes[id] = &node{content: c}
	s.root = id
	return id, nil
}

// AddChild appends a new node to the end of parent's children and returns its
// identifier.
func (s *Store) AddChild(parent NodeID, c Content) (NodeID, error) {
	p, ok := s.nodes[parent]
	if !ok {
		return "", notFound(parent)
	}
	id := s.nextID()
	s.nodes[id] = &node{parent: parent, content: c}
	p.children = append(p.children, id)
	return id, nil
}

// Remove deletes id and its whole subtree, detaching it from its parent.
// The removed identifiers are returned in post-order (descendants before
// ancestors, id last) so callers can release per-node state in the same order.
func (s *Store) Remove(id NodeID) ([]NodeID, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, notFound(id)
	}
	if id == s.root {
		return nil, pkgerrors.New(pkgerrors.ErrCodeCannotRemoveRoot, "cannot remove the root node")
	}

	removed := s.PostOrder(id)
	p := s.nodes[n.parent]
	p.children = slices.DeleteFunc(p.children, func(c NodeID) bool { return c == id })
	for _, r := range removed {
		delete(s.nodes, r)
		s.retired[r] = struct{}{}
	}
	return removed, nil
}

// Reparent detaches id from its parent and appends it to newParent's
// children. Moving a node below itself or one of its descendants fails with
// CYCLE_DETECTED. Reparenting under the current parent moves the node to the
// end of the sibling list.
func (s *Store) Reparent(id, newParent NodeID) error {
	n, ok := s.nodes[id]
	if !ok {
		return notFound(id)
	}
	np, ok := s.nodes[newParent]
	if !ok {
		return notFound(newParent)
	}
	if id == s.root {
		return pkgerrors.New(pkgerrors.ErrCodeCannotReparentRoot, "cannot reparent the root node")
	}
	if id == newParent || s.IsDescendant(newParent, id) {
		return pkgerrors.New(pkgerrors.ErrCodeCycleDetected, "cannot move %s below itself", id)
	}

	old := s.nodes[n.parent]
	old.children = slices.DeleteFunc(old.children, func(c NodeID) bool { return c == id })
	np.children = append(np.children, id)
	n.parent = newParent
	return nil
}

// MoveSibling shifts id by delta positions within its parent's children,
// clamped to the ends of the list. It returns the new index.
func (s *Store) MoveSibling(id NodeID, delta int) (int, error) {
	n, ok := s.nodes[id]
	if !ok {
		return 0, notFound(id)
	}
	if id == s.root {
		return 0, pkgerrors.New(pkgerrors.ErrCodeCannotReparentRoot, "the root node has no siblings")
	}
	siblings := s.nodes[n.parent].children
	from := slices.Index(siblings, id)
	to := min(max(from+delta, 0), len(siblings)-1)
	if to == from {
		return from, nil
	}
	siblings = slices.Delete(siblings, from, from+1)
	siblings = slices.Insert(siblings, to, id)
	s.nodes[n.parent].children = siblings
	return to, nil
}

// SetContent replaces the content of id.
func (s *Store) SetContent(id NodeID, c Content) error {
	n, ok := s.nodes[id]
	if !ok {
		return notFound(id)
	}
	n.content = c
	return nil
}

// Children returns a copy of id's ordered child identifiers, or nil if id is
// unknown or a leaf.
func (s *Store) Children(id NodeID) []NodeID {
	n, ok := s.nodes[id]
	if !ok || len(n.children) == 0 {
		return nil
	}
	return slices.Clone(n.children)
}

// ChildCount returns the number of direct children of id.
func (s *Store) ChildCount(id NodeID) int {
	if n, ok := s.nodes[id]; ok {
		return len(n.children)
	}
	return 0
}

// Parent returns the parent of id. The root and unknown ids report false.
func (s *Store) Parent(id NodeID) (NodeID, bool) {
	n, ok := s.nodes[id]
	if !ok || n.parent == "" {
		return "", false
	}
	return n.parent, true
}

// Node returns a read-only view of id.
func (s *Store) Node(id NodeID) (Node, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	return Node{ID: id, Parent: n.parent, Content: n.content, Children: slices.Clone(n.children)}, true
}

// Content returns the content of id.
func (s *Store) Content(id NodeID) (Content, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return Content{}, false
	}
	return n.content, true
}

// Root returns the root identifier, or "" for an empty store.
func (s *Store) Root() NodeID { return s.root }

// Len returns the number of live nodes.
func (s *Store) Len() int { return len(s.nodes) }

// Contains reports whether id is a live node.
func (s *Store) Contains(id NodeID) bool {
	_, ok := s.nodes[id]
	return ok
}

// IDs returns all live identifiers in sorted order.
func (s *Store) IDs() []NodeID {
	return slices.Sorted(maps.Keys(s.nodes))
}

// Depth returns the number of edges between id and the root, or -1 if id is
// unknown.
func (s *Store) Depth(id NodeID) int {
	n, ok := s.nodes[id]
	if !ok {
		return -1
	}
	d := 0
	for n.parent != "" {
		n = s.nodes[n.parent]
		d++
	}
	return d
}

// IsDescendant reports whether id lies strictly below ancestor.
func (s *Store) IsDescendant(id, ancestor NodeID) bool {
	n, ok := s.nodes[id]
	if !ok {
		return false
	}
	for n.parent != "" {
		if n.parent == ancestor {
			return true
		}
		n = s.nodes[n.parent]
	}
	return false
}

// BranchIndex returns the position among the root's children of the top-level
// branch containing id. The root itself and unknown ids report -1.
func (s *Store) BranchIndex(id NodeID) int {
	n, ok := s.nodes[id]
	if !ok || id == s.root {
		return -1
	}
	for n.parent != s.root {
		id = n.parent
		n = s.nodes[id]
	}
	return slices.Index(s.nodes[s.root].children, id)
}

// Walk visits id and its descendants in pre-order, children in stored order.
// Returning false from fn skips the node's subtree.
func (s *Store) Walk(id NodeID, fn func(id NodeID, depth int) bool) {
	if _, ok := s.nodes[id]; !ok {
		return
	}
	s.walk(id, 0, fn)
}

func (s *Store) walk(id NodeID, depth int, fn func(NodeID, int) bool) {
	if !fn(id, depth) {
		return
	}
	for _, c := range s.nodes[id].children {
		s.walk(c, depth+1, fn)
	}
}

// Descendants returns every node strictly below id in pre-order.
func (s *Store) Descendants(id NodeID) []NodeID {
	var out []NodeID
	s.Walk(id, func(n NodeID, _ int) bool {
		if n != id {
			out = append(out, n)
		}
		return true
	})
	return out
}

// PostOrder returns id and its descendants with every node listed after all
// of its children.
func (s *Store) PostOrder(id NodeID) []NodeID {
	if _, ok := s.nodes[id]; !ok {
		return nil
	}
	var out []NodeID
	var visit func(NodeID)
	visit = func(n NodeID) {
		for _, c := range s.nodes[n].children {
			visit(c)
		}
		out = append(out, n)
	}
	visit(id)
	return out
}

// Clone returns a deep copy of the store's structure. Image payloads are
// shared since they are never mutated in place.
func (s *Store) Clone() *Store {
	c := &Store{
		nodes:   make(map[NodeID]*node, len(s.nodes)),
		root:    s.root,
		retired: maps.Clone(s.retired),
		ids:     s.ids,
	}
	for id, n := range s.nodes {
		c.nodes[id] = &node{parent: n.parent, content: n.content.Clone(), children: slices.Clone(n.children)}
	}
	return c
}

// Validate checks the tree invariant: a single root, parent and child links
// that agree, and every node reachable from the root exactly once.
func (s *Store) Validate() error {
	if len(s.nodes) == 0 {
		if s.root != "" {
			return pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "root %s is not stored", s.root)
		}
		return nil
	}
	r, ok := s.nodes[s.root]
	if !ok {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "root %q is not stored", s.root)
	}
	if r.parent != "" {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "root %s has a parent", s.root)
	}

	seen := make(map[NodeID]bool, len(s.nodes))
	stack := []NodeID{s.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			return pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "node %s reached twice", id)
		}
		seen[id] = true
		for _, c := range s.nodes[id].children {
			cn, ok := s.nodes[c]
			if !ok {
				return pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "node %s lists unknown child %s", id, c)
			}
			if cn.parent != id {
				return pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "child %s of %s points to parent %q", c, id, cn.parent)
			}
			stack = append(stack, c)
		}
	}
	if len(seen) != len(s.nodes) {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "%d nodes unreachable from root", len(s.nodes)-len(seen))
	}
	return nil
}

// Restore builds a store from previously saved nodes. Parent links are derived
// from the children lists; Node.Parent is ignored. The result is validated as
// a whole and nothing is returned unless every node hangs off root exactly
// once.
func Restore(root NodeID, nodes []Node, opts ...Option) (*Store, error) {
	s := New(opts...)
	if len(nodes) == 0 {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "document has no nodes")
	}
	for _, n := range nodes {
		if n.ID == "" {
			return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "node with empty id")
		}
		if _, dup := s.nodes[n.ID]; dup {
			return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "duplicate node id %q", n.ID)
		}
		s.nodes[n.ID] = &node{content: n.Content, children: slices.Clone(n.Children)}
	}
	for _, n := range nodes {
		for _, c := range n.Children {
			cn, ok := s.nodes[c]
			if !ok {
				return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "node %q lists unknown child %q", n.ID, c)
			}
			if c == root {
				return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "root %q listed as child of %q", c, n.ID)
			}
			if cn.parent != "" {
				return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "node %q listed under both %q and %q", c, cn.parent, n.ID)
			}
			cn.parent = n.ID
		}
	}
	for id, n := range s.nodes {
		if n.parent == "" && id != root {
			return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidDocument, "node %q has no parent and is not the root", id)
		}
	}
	s.root = root
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) nextID() NodeID {
	for {
		id := s.ids.Next()
		if id == "" {
			continue
		}
		if _, live := s.nodes[id]; live {
			continue
		}
		if _, dead := s.retired[id]; dead {
			continue
		}
		return id
	}
}

func notFound(id NodeID) error {
	return pkgerrors.New(pkgerrors.ErrCodeNotFound, "node %q not found", id)
}
