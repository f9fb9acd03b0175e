package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/mindmap/pkg/cache"
	"github.com/matzehuels/mindmap/pkg/document"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
)

// DefaultRedisPrefix namespaces every key the Redis store writes.
const DefaultRedisPrefix = "mindmap:"

// RedisStore keeps each document as a string key and indexes names in a
// sorted set scored by the last save time.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to url (redis://[:password@]host:port/db),
// retrying while the server is unreachable.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "invalid redis url")
	}
	client := redis.NewClient(opts)
	err = cache.RetryWithBackoff(ctx, func() error {
		if err := client.Ping(ctx).Err(); err != nil {
			return cache.Retryable(err)
		}
		return nil
	})
	if err != nil {
		client.Close()
		return nil, backendErr(err, "connect to redis")
	}
	return NewRedisStoreFromClient(client, DefaultRedisPrefix), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) docKey(name string) string { return s.prefix + "doc:" + name }
func (s *RedisStore) indexKey() string          { return s.prefix + "docs" }

// Save writes the document and updates the index in one transaction.
func (s *RedisStore) Save(ctx context.Context, name string, doc *document.Document) (err error) {
	defer observe(ctx, BackendRedis, "save", time.Now(), &err)
	if err = pkgerrors.ValidateDocumentName(name); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.docKey(name), data, 0)
		p.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(time.Now().Unix()), Member: name})
		return nil
	})
	if err != nil {
		return backendErr(err, "save %q", name)
	}
	return nil
}

// Load reads a stored document.
func (s *RedisStore) Load(ctx context.Context, name string) (doc *document.Document, err error) {
	defer observe(ctx, BackendRedis, "load", time.Now(), &err)
	if err = pkgerrors.ValidateDocumentName(name); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.docKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, backendErr(err, "load %q", name)
	}
	return decode(name, data)
}

// List returns the indexed documents with their sizes.
func (s *RedisStore) List(ctx context.Context) (out []Info, err error) {
	defer observe(ctx, BackendRedis, "list", time.Now(), &err)
	members, err := s.client.ZRangeWithScores(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, backendErr(err, "list documents")
	}

	sizes := make([]*redis.IntCmd, len(members))
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, m := range members {
			sizes[i] = p.StrLen(ctx, s.docKey(fmt.Sprint(m.Member)))
		}
		return nil
	})
	if err != nil {
		return nil, backendErr(err, "list documents")
	}

	for i, m := range members {
		out = append(out, Info{
			Name:      fmt.Sprint(m.Member),
			Size:      sizes[i].Val(),
			UpdatedAt: time.Unix(int64(m.Score), 0).UTC(),
		})
	}
	sortInfos(out)
	return out, nil
}

// Delete removes a document and its index entry.
func (s *RedisStore) Delete(ctx context.Context, name string) (err error) {
	defer observe(ctx, BackendRedis, "delete", time.Now(), &err)
	if err = pkgerrors.ValidateDocumentName(name); err != nil {
		return err
	}
	var del *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		del = p.Del(ctx, s.docKey(name))
		p.ZRem(ctx, s.indexKey(), name)
		return nil
	})
	if err != nil {
		return backendErr(err, "delete %q", name)
	}
	if del.Val() == 0 {
		return notFound(name)
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)
