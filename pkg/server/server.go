// Package server exposes an open mind map over HTTP.
//
// The API edits the session's document through the same editor operations
// as the CLI and TUI, so every invariant of the core holds for HTTP clients
// too. Requests are serialised by the session; there is exactly one writer
// at a time.
//
// # Routes
//
//	GET    /api/v1/document              current document (JSON file format)
//	POST   /api/v1/nodes                 add a child, or the root of an empty map
//	PATCH  /api/v1/nodes/{id}            change content or size
//	DELETE /api/v1/nodes/{id}            delete a subtree
//	POST   /api/v1/nodes/{id}/move       drag to a position
//	POST   /api/v1/nodes/{id}/reparent   attach under another parent
//	POST   /api/v1/nodes/{id}/organize   re-layout one subtree
//	POST   /api/v1/organize              re-layout the whole map
//	POST   /api/v1/undo, /api/v1/redo    history
//	POST   /api/v1/save                  write the document to its file
//	GET    /api/v1/export/{format}       svg, png, pdf, dot, yaml or json
//	GET    /ws                           live change feed
//	GET    /metrics                      Prometheus metrics, if enabled
//	GET    /health                       liveness
//
// # Errors
//
// Failures are returned as {"error": {"code": ..., "message": ...}} with the
// status derived from the error code: NOT_FOUND is 404, structural conflicts
// such as CYCLE_DETECTED are 409, malformed input is 400 and an invalid
// document is 422.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/matzehuels/mindmap/pkg/editor"
	"github.com/matzehuels/mindmap/pkg/pipeline"
	"github.com/matzehuels/mindmap/pkg/session"
)

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 10 * time.Second

// Server serves one session.
type Server struct {
	sess    *session.Session
	runner  *pipeline.Runner
	hub     *Hub
	logger  *log.Logger
	origins []string
	metrics http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = append(s.origins, origins...) }
}

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// New creates a server for sess. runner renders exports; a nil runner
// renders without caching.
func New(sess *session.Session, runner *pipeline.Runner, opts ...Option) *Server {
	s := &Server{sess: sess, runner: runner, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, s.logger)
	}
	s.hub = NewHub(s.logger)

	_ = sess.Do(func(ed *editor.Editor) error {
		ed.OnChange(s.publish)
		return nil
	})
	return s
}

// Hub returns the change feed hub.
func (s *Server) Hub() *Hub { return s.hub }

// publish runs inside Session.Do, so it must not block or touch the session.
func (s *Server) publish(c editor.Change) {
	s.hub.Broadcast(Event{Type: EventChange, Change: &c})
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.health)
	r.Get("/ws", s.serveWS)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/document", s.getDocument)

		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", s.addNode)
			r.Patch("/{id}", s.updateNode)
			r.Delete("/{id}", s.deleteNode)
			r.Post("/{id}/move", s.moveNode)
			r.Post("/{id}/reparent", s.reparentNode)
			r.Post("/{id}/organize", s.organizeNode)
		})

		r.Post("/organize", s.organize)
		r.Post("/undo", s.undo)
		r.Post("/redo", s.redo)
		r.Post("/save", s.save)
		r.Get("/export/{format}", s.export)
	})
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
