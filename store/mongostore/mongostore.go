// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package mongostore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/danielhkuo/eventroll/store"
)

// Each document is stored as {_id, revision, data: {...fields}}.
const (
	idKey       = "_id"
	revisionKey = "revision"
	dataKey     = "data"
)

// Store is a DocumentStore backed by MongoDB. Array unions use $addToSet so
// concurrent sessions never overwrite each other's attendance.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.DocumentStore = (*Store)(nil)

// Connect dials uri and pings the primary.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "ping mongo")
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

type envelope struct {
	ID       string   `bson:"_id"`
	Revision int64    `bson:"revision"`
	Data     bson.Raw `bson:"data"`
}

func (e envelope) document(collection string) (store.Document, error) {
	fields := map[string]any{}
	if len(e.Data) > 0 {
		// Relaxed extended JSON keeps plain numbers, strings and arrays, which
		// is the value space the rest of the store works with.
		b, err := bson.MarshalExtJSON(e.Data, false, false)
		if err != nil {
			return store.Document{}, errors.Wrapf(err, "convert %s/%s", collection, e.ID)
		}
		if err := json.Unmarshal(b, &fields); err != nil {
			return store.Document{}, errors.Wrapf(err, "convert %s/%s", collection, e.ID)
		}
	}
	return store.Document{Collection: collection, ID: e.ID, Revision: e.Revision, Fields: fields}, nil
}

func (s *Store) FetchByID(ctx context.Context, collection, id string) (store.Document, error) {
	var env envelope
	err := s.db.Collection(collection).FindOne(ctx, bson.M{idKey: id}).Decode(&env)
	if err == mongo.ErrNoDocuments {
		return store.Document{}, errors.Wrapf(store.ErrNotFound, "%s/%s", collection, id)
	}
	if err != nil {
		return store.Document{}, errors.Wrapf(err, "fetch %s/%s", collection, id)
	}
	return env.document(collection)
}

func (s *Store) FetchAll(ctx context.Context, collection string) ([]store.Document, error) {
	return s.find(ctx, collection, bson.M{})
}

func (s *Store) FetchWhere(ctx context.Context, collection string, f store.Filter) ([]store.Document, error) {
	filter, err := translate(f)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, collection, filter)
}

// translate maps a store.Filter onto a query over the data sub-document.
// Equality on an array field in MongoDB already means "contains".
func translate(f store.Filter) (bson.M, error) {
	key := dataKey + "." + f.Field
	switch f.Op {
	case store.OpEqual, store.OpArrayContains:
		return bson.M{key: f.Value}, nil
	case store.OpNotEqual:
		return bson.M{key: bson.M{"$ne": f.Value}}, nil
	default:
		return nil, errors.Wrapf(store.ErrUnsupportedOp, "%q", f.Op)
	}
}

func (s *Store) find(ctx context.Context, collection string, filter bson.M) ([]store.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: idKey, Value: 1}})
	cur, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s", collection)
	}
	defer cur.Close(ctx)

	var docs []store.Document
	for cur.Next(ctx) {
		var env envelope
		if err := cur.Decode(&env); err != nil {
			return nil, errors.Wrapf(err, "decode %s", collection)
		}
		doc, err := env.document(collection)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, errors.Wrapf(cur.Err(), "iterate %s", collection)
}

func (s *Store) Overwrite(ctx context.Context, collection, id string, fields map[string]any) error {
	if fields == nil {
		fields = map[string]any{}
	}
	_, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{idKey: id},
		bson.M{
			"$set": bson.M{dataKey: fields},
			"$inc": bson.M{revisionKey: 1},
		},
		options.Update().SetUpsert(true),
	)
	return errors.Wrapf(err, "overwrite %s/%s", collection, id)
}

func (s *Store) MutateFields(ctx context.Context, collection, id string, partial map[string]any) error {
	set := bson.M{}
	for k, v := range partial {
		set[dataKey+"."+k] = v
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{idKey: id},
		bson.M{"$set": set, "$inc": bson.M{revisionKey: 1}},
	)
	if err != nil {
		return errors.Wrapf(err, "mutate %s/%s", collection, id)
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(store.ErrNotFound, "%s/%s", collection, id)
	}
	return nil
}

func (s *Store) UpdateIfRevision(ctx context.Context, collection, id string, revision int64, fields map[string]any) error {
	if fields == nil {
		fields = map[string]any{}
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{idKey: id, revisionKey: revision},
		bson.M{"$set": bson.M{dataKey: fields}, "$inc": bson.M{revisionKey: 1}},
	)
	if err != nil {
		return errors.Wrapf(err, "update %s/%s", collection, id)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := s.FetchByID(ctx, collection, id); err != nil {
		return err
	}
	return errors.Wrapf(store.ErrStaleWrite, "%s/%s at revision %d", collection, id, revision)
}

func (s *Store) UnionArrays(ctx context.Context, collection, id string, values map[string][]string) (store.Document, error) {
	add := bson.M{}
	for field, vals := range values {
		if vals == nil {
			vals = []string{}
		}
		add[dataKey+"."+field] = bson.M{"$each": vals}
	}

	var env envelope
	err := s.db.Collection(collection).FindOneAndUpdate(ctx,
		bson.M{idKey: id},
		bson.M{"$addToSet": add, "$inc": bson.M{revisionKey: 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&env)
	if err == mongo.ErrNoDocuments {
		return store.Document{}, errors.Wrapf(store.ErrNotFound, "%s/%s", collection, id)
	}
	if err != nil {
		return store.Document{}, errors.Wrapf(err, "union %s/%s", collection, id)
	}
	return env.document(collection)
}

func (s *Store) DeleteByID(ctx context.Context, collection, id string) error {
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{idKey: id})
	return errors.Wrapf(err, "delete %s/%s", collection, id)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
