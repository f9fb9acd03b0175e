package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/mindmap/pkg/document"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
)

// Mongo defaults.
const (
	DefaultMongoDatabase   = "mindmap"
	DefaultMongoCollection = "documents"
)

// mongoDocument is the stored record. The JSON encoding is kept as a string
// so it round-trips exactly.
type mongoDocument struct {
	Name      string    `bson:"_id"`
	Data      string    `bson:"data"`
	Size      int64     `bson:"size"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps documents in a MongoDB collection keyed by name.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and uses the given database.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, backendErr(err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, backendErr(err, "ping mongodb")
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(DefaultMongoCollection),
	}, nil
}

// Save upserts the document.
func (s *MongoStore) Save(ctx context.Context, name string, doc *document.Document) (err error) {
	defer observe(ctx, BackendMongo, "save", time.Now(), &err)
	if err = pkgerrors.ValidateDocumentName(name); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}
	rec := mongoDocument{Name: name, Data: string(data), Size: int64(len(data)), UpdatedAt: time.Now().UTC()}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": name}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return backendErr(err, "save %q", name)
	}
	return nil
}

// Load reads a stored document.
func (s *MongoStore) Load(ctx context.Context, name string) (doc *document.Document, err error) {
	defer observe(ctx, BackendMongo, "load", time.Now(), &err)
	if err = pkgerrors.ValidateDocumentName(name); err != nil {
		return nil, err
	}
	var rec mongoDocument
	err = s.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, backendErr(err, "load %q", name)
	}
	return decode(name, []byte(rec.Data))
}

// List returns every stored document without fetching the payloads.
func (s *MongoStore) List(ctx context.Context) (out []Info, err error) {
	defer observe(ctx, BackendMongo, "list", time.Now(), &err)
	opts := options.Find().
		SetProjection(bson.M{"data": 0}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, backendErr(err, "list documents")
	}
	var recs []mongoDocument
	if err = cur.All(ctx, &recs); err != nil {
		return nil, backendErr(err, "list documents")
	}
	for _, r := range recs {
		out = append(out, Info{Name: r.Name, Size: r.Size, UpdatedAt: r.UpdatedAt.UTC()})
	}
	return out, nil
}

// Delete removes a stored document.
func (s *MongoStore) Delete(ctx context.Context, name string) (err error) {
	defer observe(ctx, BackendMongo, "delete", time.Now(), &err)
	if err = pkgerrors.ValidateDocumentName(name); err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return backendErr(err, "delete %q", name)
	}
	if res.DeletedCount == 0 {
		return notFound(name)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
