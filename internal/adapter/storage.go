package adapter

import (
	"context"

	"github.com/jun/notesapp/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// NoteStore defines the document-store operations the note service relies on.
// Each method performs exactly one storage call.
type NoteStore interface {
	// Find returns every note, most recently updated first.
	Find(ctx context.Context) ([]model.NoteDocument, error)

	// InsertOne stores a new document and returns its generated identifier.
	InsertOne(ctx context.Context, doc model.NoteDocument) (bson.ObjectID, error)

	// FindOne retrieves a document by its identifier.
	// It returns ErrNotFound if no document matches.
	FindOne(ctx context.Context, id string) (*model.NoteDocument, error)

	// FindOneAndUpdate applies update to the matching document and returns the
	// document as it is after the update. It returns ErrNotFound if no document matches.
	FindOneAndUpdate(ctx context.Context, id string, update model.NoteUpdate) (*model.NoteDocument, error)

	// DeleteOne removes the matching document and returns how many were deleted.
	DeleteOne(ctx context.Context, id string) (int64, error)
}
