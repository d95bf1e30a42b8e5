// Package mongo implements store.Store on MongoDB.
//
// Layouts are stored one document per layout in a single collection. BSON
// has no unsigned 64-bit integer, so the layout seed is kept in its own
// field as the int64 with the same bit pattern.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/matzehuels/sysmap/pkg/errors"
	"github.com/matzehuels/sysmap/pkg/graph"
	"github.com/matzehuels/sysmap/pkg/store"
)

const (
	DefaultDatabase   = "sysmap"
	DefaultCollection = "layouts"
)

// Options configures the connection.
type Options struct {
	URI        string
	Database   string // defaults to DefaultDatabase
	Collection string // defaults to DefaultCollection
}

// Store implements store.Store using a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

type document struct {
	ID        string       `bson:"_id"`
	Name      string       `bson:"name"`
	GraphHash string       `bson:"graph_hash"`
	Seed      int64        `bson:"seed"`
	Layout    graph.Layout `bson:"layout"`
	CreatedAt time.Time    `bson:"created_at"`
}

func toDocument(l *store.SavedLayout) document {
	return document{
		ID:        l.ID,
		Name:      l.Name,
		GraphHash: l.GraphHash,
		Seed:      int64(l.Layout.Seed),
		Layout:    l.Layout,
		CreatedAt: l.CreatedAt,
	}
}

func (d document) saved() store.SavedLayout {
	l := store.SavedLayout{
		ID:        d.ID,
		Name:      d.Name,
		GraphHash: d.GraphHash,
		Layout:    d.Layout,
		CreatedAt: d.CreatedAt.UTC(),
	}
	l.Layout.Seed = uint64(d.Seed)
	return l
}

// New connects to MongoDB, verifies the connection and ensures indexes.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.URI == "" {
		return nil, errs.New(errs.ErrCodeInvalidInput, "mongo uri is required")
	}
	if opts.Database == "" {
		opts.Database = DefaultDatabase
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "ping mongo")
	}

	s := &Store{
		client: client,
		coll:   client.Database(opts.Database).Collection(opts.Collection),
		now:    func() time.Time { return time.Now().Truncate(time.Millisecond) },
	}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "graph_hash", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return errs.Wrap(errs.ErrCodeStorage, err, "create indexes")
	}
	return nil
}

// Save upserts a layout by ID.
func (s *Store) Save(ctx context.Context, l *store.SavedLayout) error {
	if err := store.Prepare(l, s.now()); err != nil {
		return err
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": l.ID}, toDocument(l), options.Replace().SetUpsert(true))
	if err != nil {
		return errs.Wrap(errs.ErrCodeStorage, err, "save layout %s", l.ID)
	}
	return nil
}

// Get returns the layout with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*store.SavedLayout, error) {
	if err := store.ValidateID(id); err != nil {
		return nil, err
	}
	var d document
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.NotFound(id)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "get layout %s", id)
	}
	l := d.saved()
	return &l, nil
}

// List returns layouts newest first, optionally filtered by graph hash.
func (s *Store) List(ctx context.Context, graphHash string) ([]store.SavedLayout, error) {
	filter := bson.M{}
	if graphHash != "" {
		filter["graph_hash"] = graphHash
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})

	cur, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "list layouts")
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "list layouts")
	}

	out := make([]store.SavedLayout, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.saved())
	}
	return out, nil
}

// Delete removes a layout. Deleting an unknown ID is an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := store.ValidateID(id); err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errs.Wrap(errs.ErrCodeStorage, err, "delete layout %s", id)
	}
	if res.DeletedCount == 0 {
		return store.NotFound(id)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
