// Package mongo provides the MongoDB document store.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dukex/pvm/pkg/docstore"
)

const defaultDatabase = "pvm"

type Store struct {
	client   *mongo.Client
	database *mongo.Database
	logger   *slog.Logger
}

// NewStore connects to uri and uses database, "pvm" when empty.
func NewStore(ctx context.Context, logger *slog.Logger, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)

		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return NewFromClient(client, logger, database), nil
}

func NewFromClient(client *mongo.Client, logger *slog.Logger, database string) *Store {
	if database == "" {
		database = defaultDatabase
	}

	return &Store{
		client:   client,
		database: client.Database(database),
		logger:   logger.With("module", "mongo_docstore"),
	}
}

func (s *Store) Get(ctx context.Context, collection, key string, out any) error {
	raw, err := s.database.Collection(collection).FindOne(ctx, bson.M{"_id": key}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, key)
	}

	if err != nil {
		return fmt.Errorf("failed to get %s/%s: %w", collection, key, err)
	}

	doc, err := toDocument(raw)
	if err != nil {
		return err
	}

	return doc.Decode(out)
}

func (s *Store) Put(ctx context.Context, collection, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	var value bson.D
	if err := bson.UnmarshalExtJSON(data, false, &value); err != nil {
		return fmt.Errorf("failed to convert document: %w", err)
	}

	value = append(bson.D{{Key: "_id", Value: key}}, value...)

	_, err = s.database.Collection(collection).ReplaceOne(
		ctx,
		bson.M{"_id": key},
		value,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", collection, key, err)
	}

	return nil
}

func (s *Store) Query(ctx context.Context, collection string, query docstore.Query, out any) error {
	filter := bson.M{}
	for field, value := range query.Filter {
		filter[field] = value
	}

	cursor, err := s.database.Collection(collection).Find(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	docs := []docstore.Document{}

	for cursor.Next(ctx) {
		doc, err := toDocument(cursor.Current)
		if err != nil {
			return err
		}

		docs = append(docs, doc)
	}

	if err := cursor.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", collection, err)
	}

	docstore.Sort(docs, query.SortBy, query.Descending)

	return docstore.DecodeAll(docs, out)
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	if _, err := s.database.Collection(collection).DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, key, err)
	}

	return nil
}

func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongo: %w", err)
	}

	return nil
}

// toDocument goes through relaxed extended JSON so documents read back
// exactly as plain JSON wrote them, keys in stored order.
func toDocument(raw bson.Raw) (docstore.Document, error) {
	var value bson.D
	if err := bson.Unmarshal(raw, &value); err != nil {
		return docstore.Document{}, fmt.Errorf("failed to read document: %w", err)
	}

	value = slices.DeleteFunc(value, func(element bson.E) bool {
		return element.Key == "_id"
	})

	data, err := bson.MarshalExtJSON(value, false, false)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("failed to convert document: %w", err)
	}

	return docstore.NewDocument(data)
}
