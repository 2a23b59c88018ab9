package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jun/notesapp/internal/adapter"
	"github.com/jun/notesapp/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryAdapter implements adapter.NoteStore on an in-process map.
// It backs tests and STORAGE=memory local runs.
type MemoryAdapter struct {
	docs map[bson.ObjectID]model.NoteDocument
	mu   sync.RWMutex
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		docs: make(map[bson.ObjectID]model.NoteDocument),
	}
}

func (m *MemoryAdapter) Find(ctx context.Context) ([]model.NoteDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]model.NoteDocument, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, d)
	}
	// Newest-updated first.
	slices.SortFunc(docs, func(a, b model.NoteDocument) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return docs, nil
}

func (m *MemoryAdapter) InsertOne(ctx context.Context, doc model.NoteDocument) (bson.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if doc.ID.IsZero() {
		doc.ID = bson.NewObjectID()
	}
	m.docs[doc.ID] = doc
	return doc.ID, nil
}

func (m *MemoryAdapter) FindOne(ctx context.Context, id string) (*model.NoteDocument, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, adapter.ErrNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[oid]
	if !ok {
		return nil, adapter.ErrNotFound
	}
	return &d, nil
}

func (m *MemoryAdapter) FindOneAndUpdate(ctx context.Context, id string, update model.NoteUpdate) (*model.NoteDocument, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, adapter.ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[oid]
	if !ok {
		return nil, adapter.ErrNotFound
	}
	if update.Title != nil {
		d.Title = *update.Title
	}
	if update.Content != nil {
		d.Content = *update.Content
	}
	// updatedAt always advances, even when the clock has not.
	d.UpdatedAt = later(update.UpdatedAt, d.UpdatedAt.Add(time.Millisecond))
	m.docs[oid] = d
	return &d, nil
}

func (m *MemoryAdapter) DeleteOne(ctx context.Context, id string) (int64, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[oid]; !ok {
		return 0, nil
	}
	delete(m.docs, oid)
	return 1, nil
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
