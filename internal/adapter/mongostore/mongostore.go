package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jun/notesapp/internal/adapter"
	"github.com/jun/notesapp/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Store implements adapter.NoteStore on a MongoDB collection.
// The collection is fetched from the provider on every call, so the first
// call triggers the lazy connection.
type Store struct {
	provider adapter.CollectionProvider
}

// NewStore creates a Store backed by provider.
func NewStore(provider adapter.CollectionProvider) *Store {
	return &Store{provider: provider}
}

func (s *Store) Find(ctx context.Context) ([]model.NoteDocument, error) {
	coll, err := s.provider.Collection(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cur, err := coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find notes: %w", err)
	}

	docs := []model.NoteDocument{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	return docs, nil
}

func (s *Store) InsertOne(ctx context.Context, doc model.NoteDocument) (bson.ObjectID, error) {
	coll, err := s.provider.Collection(ctx)
	if err != nil {
		return bson.NilObjectID, err
	}

	res, err := coll.InsertOne(ctx, doc)
	if err != nil {
		return bson.NilObjectID, fmt.Errorf("insert note: %w", err)
	}
	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return bson.NilObjectID, fmt.Errorf("insert note: unexpected id type %T", res.InsertedID)
	}
	return id, nil
}

func (s *Store) FindOne(ctx context.Context, id string) (*model.NoteDocument, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, adapter.ErrNotFound
	}

	coll, err := s.provider.Collection(ctx)
	if err != nil {
		return nil, err
	}

	var doc model.NoteDocument
	if err := coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, adapter.ErrNotFound
		}
		return nil, fmt.Errorf("find note %s: %w", id, err)
	}
	return &doc, nil
}

func (s *Store) FindOneAndUpdate(ctx context.Context, id string, update model.NoteUpdate) (*model.NoteDocument, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, adapter.ErrNotFound
	}

	coll, err := s.provider.Collection(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc model.NoteDocument
	err = coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, updatePipeline(update), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, adapter.ErrNotFound
		}
		return nil, fmt.Errorf("update note %s: %w", id, err)
	}
	return &doc, nil
}

func (s *Store) DeleteOne(ctx context.Context, id string) (int64, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return 0, nil
	}

	coll, err := s.provider.Collection(ctx)
	if err != nil {
		return 0, err
	}

	res, err := coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return 0, fmt.Errorf("delete note %s: %w", id, err)
	}
	return res.DeletedCount, nil
}

// updatePipeline builds a single-stage $set pipeline for a partial update.
// Only supplied fields are written. updatedAt always advances: it becomes the
// later of update.UpdatedAt and the stored value plus one millisecond.
// Field values go through $literal so a leading "$" is not read as a path.
func updatePipeline(update model.NoteUpdate) mongo.Pipeline {
	set := bson.D{{Key: "updatedAt", Value: bson.D{{Key: "$max", Value: bson.A{
		update.UpdatedAt,
		bson.D{{Key: "$add", Value: bson.A{"$updatedAt", 1}}},
	}}}}}
	if update.Title != nil {
		set = append(set, bson.E{Key: "title", Value: bson.D{{Key: "$literal", Value: *update.Title}}})
	}
	if update.Content != nil {
		set = append(set, bson.E{Key: "content", Value: bson.D{{Key: "$literal", Value: *update.Content}}})
	}
	return mongo.Pipeline{{{Key: "$set", Value: set}}}
}
