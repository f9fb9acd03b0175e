// Package session manages the open document of an interactive front end:
// the editor working on it, the file it came from, whether it has unsaved
// changes, and the list of recently opened files.
//
// # Generations
//
// Every committed edit and every applied load increments the session's
// generation. A background load started with LoadAsync remembers the
// generation it started from and is discarded if the session moved on in the
// meantime, so a slow load never overwrites newer work:
//
//	res := <-sess.LoadAsync(ctx, session.FileLoader(path))
//	if res.Err != nil {
//	    // the current document is unchanged
//	}
//
// # Concurrency
//
// The editor is not safe for concurrent use. All access goes through
// Session.Do, which serialises callers with the session's mutex.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mindmap/pkg/cache"
	"github.com/matzehuels/mindmap/pkg/document"
	"github.com/matzehuels/mindmap/pkg/editor"
	pkgio "github.com/matzehuels/mindmap/pkg/io"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/observability"
)

// ErrSuperseded is reported by LoadAsync when a newer edit or load made the
// loaded document stale.
var ErrSuperseded = errors.New("load superseded by a newer change")

// Loader produces a fully constructed document, typically by reading a file.
type Loader func(ctx context.Context) (*document.Document, error)

// FileLoader reads the document stored at path.
func FileLoader(path string) Loader {
	return func(ctx context.Context) (*document.Document, error) {
		return pkgio.ImportJSON(path)
	}
}

// LoadResult is delivered once by LoadAsync.
type LoadResult struct {
	Document   *document.Document
	Generation uint64
	Err        error
}

// Session is an open document together with its file path.
type Session struct {
	mu     sync.Mutex
	ed     *editor.Editor
	path   string
	dirty  bool
	gen    uint64
	logger *log.Logger
	recent *FileStore
	edOpts []editor.Option

	// disk hashes the file contents this session last wrote or read.
	disk string
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecent records every opened or saved path in store.
func WithRecent(store *FileStore) Option {
	return func(s *Session) { s.recent = store }
}

// WithEditorOptions configures editors created by Open and OpenRecent.
func WithEditorOptions(opts ...editor.Option) Option {
	return func(s *Session) { s.edOpts = append(s.edOpts, opts...) }
}

// New creates a session around ed. path may be empty for an unsaved document.
func New(ed *editor.Editor, path string, opts ...Option) *Session {
	s := configure(path, opts)
	s.attach(ed)
	return s
}

func configure(path string, opts []Option) *Session {
	s := &Session{path: path, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) attach(ed *editor.Editor) {
	s.ed = ed
	ed.OnChange(s.onChange)
}

// Open loads the document at path and wraps it in a session with an editor
// using eng.
func Open(ctx context.Context, path string, eng *layout.Engine, opts ...Option) (*Session, error) {
	start := time.Now()
	doc, data, err := pkgio.Load(path)
	observability.Pipeline().OnLoadComplete(ctx, "file", nodeCount(doc), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	s := configure(path, opts)
	s.attach(editor.New(doc, eng, s.edOpts...))
	s.disk = cache.Hash(data)
	s.remember(ctx, path)
	return s, nil
}

// OpenRecent opens the most recently used document recorded in store.
func OpenRecent(ctx context.Context, store *FileStore, eng *layout.Engine, opts ...Option) (*Session, error) {
	recent, err := store.Recent(ctx)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, errors.New("no recently opened document")
	}
	return Open(ctx, recent[0], eng, append(opts, WithRecent(store))...)
}

// onChange runs inside Do with the mutex held.
func (s *Session) onChange(c editor.Change) {
	s.gen++
	if c.Op != editor.OpLoad {
		s.dirty = true
	}
}

// Do runs fn with exclusive access to the editor.
func (s *Session) Do(fn func(ed *editor.Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.ed)
}

// Snapshot returns a copy of the current document.
func (s *Session) Snapshot() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ed.Snapshot()
}

// Path returns the file the document is saved to.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Dirty reports whether there are unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Generation returns the number of changes applied so far.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Save writes the document to its path.
func (s *Session) Save(ctx context.Context) error {
	return s.SaveAs(ctx, s.Path())
}

// SaveAs writes the document to path and makes path the session's file.
func (s *Session) SaveAs(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := pkgio.Save(s.ed.Document(), path)
	if err != nil {
		return err
	}
	s.disk = cache.Hash(data)
	s.path = path
	s.dirty = false
	s.logger.Debug("document saved", "path", path, "nodes", s.ed.Document().Tree.Len())
	s.remember(ctx, path)
	return nil
}

// LoadAsync runs load in the background. The returned channel receives
// exactly one result and is then closed. On success the document has
// already replaced the session's document. If the context is cancelled or
// the session changed while loading, the result carries the error and the
// current document stays.
func (s *Session) LoadAsync(ctx context.Context, load Loader) <-chan LoadResult {
	out := make(chan LoadResult, 1)
	started := s.Generation()

	go func() {
		defer close(out)

		begin := time.Now()
		doc, err := load(ctx)
		observability.Pipeline().OnLoadComplete(ctx, "async", nodeCount(doc), time.Since(begin), err)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			out <- LoadResult{Generation: started, Err: err}
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != started {
			s.logger.Debug("discarding stale load", "started", started, "current", s.gen)
			out <- LoadResult{Generation: s.gen, Err: ErrSuperseded}
			return
		}
		if err := s.ed.Load(ctx, doc); err != nil {
			out <- LoadResult{Generation: s.gen, Err: err}
			return
		}
		s.dirty = false
		out <- LoadResult{Document: doc, Generation: s.gen}
	}()
	return out
}

// matchesDisk reports whether data is what the session last wrote or read.
func (s *Session) matchesDisk(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disk != "" && s.disk == cache.Hash(data)
}

func (s *Session) setDisk(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disk = cache.Hash(data)
}

func (s *Session) remember(ctx context.Context, path string) {
	if s.recent == nil || path == "" {
		return
	}
	if err := s.recent.AddRecent(ctx, path); err != nil {
		s.logger.Warn("could not record recent file", "path", path, "error", err)
	}
}

func nodeCount(d *document.Document) int {
	if d == nil {
		return 0
	}
	return d.Tree.Len()
}
