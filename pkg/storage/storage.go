// Package storage keeps named mind map documents in a backend: a local
// directory, Redis or MongoDB. All backends store the same JSON encoding the
// document files use, so a document pulled from any backend is
// byte-for-byte what `mindmap export` would write.
//
// Names are validated with [pkgerrors.ValidateDocumentName] before they reach
// a backend. Loading a missing name fails with NOT_FOUND; backend failures
// are STORAGE_ERROR with the driver error as cause.
//
// [pkgerrors.ValidateDocumentName]: github.com/matzehuels/mindmap/pkg/errors
package storage

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/mindmap/pkg/document"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	pkgio "github.com/matzehuels/mindmap/pkg/io"
	"github.com/matzehuels/mindmap/pkg/observability"
)

// Backend names.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// Info describes a stored document.
type Info struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists named documents.
type Store interface {
	Save(ctx context.Context, name string, doc *document.Document) error
	Load(ctx context.Context, name string) (*document.Document, error)

	// List returns the stored documents sorted by name.
	List(ctx context.Context) ([]Info, error)

	Delete(ctx context.Context, name string) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend       string
	Dir           string
	RedisURL      string
	MongoURI      string
	MongoDatabase string
}

// Open connects to the backend named in cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendFile:
		return NewFileStore(cfg.Dir)
	case BackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL)
	case BackendMongo:
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, pkgerrors.New(pkgerrors.ErrCodeUnsupported, "unknown storage backend %q", cfg.Backend)
	}
}

// encode and decode are shared by all backends.
func encode(doc *document.Document) ([]byte, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return pkgio.Marshal(doc)
}

func decode(name string, data []byte) (*document.Document, error) {
	doc, err := pkgio.Unmarshal(data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.GetCode(err), err, "stored document %q", name)
	}
	return doc, nil
}

func sortInfos(infos []Info) {
	slices.SortFunc(infos, func(a, b Info) int { return strings.Compare(a.Name, b.Name) })
}

func notFound(name string) error {
	return pkgerrors.New(pkgerrors.ErrCodeNotFound, "document %q not found", name)
}

func backendErr(err error, format string, args ...any) error {
	return pkgerrors.Wrap(pkgerrors.ErrCodeStorage, err, format, args...)
}

// observe reports one storage operation to the hooks. It is deferred with a
// pointer to the operation's named error result.
func observe(ctx context.Context, backend, op string, start time.Time, errp *error) {
	observability.Storage().OnStorageOp(ctx, backend, op, time.Since(start), *errp)
}
