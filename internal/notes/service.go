// Package notes implements the note operations: validate the input, make one
// storage call, and map the result to the client shape.
package notes

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jun/notesapp/internal/adapter"
	"github.com/jun/notesapp/internal/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Ack acknowledges a successful delete.
type Ack struct {
	Success bool `json:"success"`
}

// Service runs note operations against a NoteStore.
//
// Updates carry no version check: concurrent updates to the same note are
// last-write-wins on updatedAt.
type Service struct {
	store    adapter.NoteStore
	validate *validator.Validate
	now      func() time.Time
	logger   zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now as the source of note timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the fallback logger used when the request context carries none.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new Service.
func NewService(store adapter.NoteStore, opts ...Option) *Service {
	s := &Service{
		store:    store,
		validate: newValidator(),
		now:      time.Now,
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp returns the current time at the precision a BSON date keeps.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Service) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.logger
}

func (s *Service) fail(ctx context.Context, op Op, err error) error {
	s.log(ctx).Error().Err(err).Str("op", string(op)).Msg("note operation failed")
	return &OperationError{Op: op, Err: err}
}

// List returns every note, most recently updated first.
func (s *Service) List(ctx context.Context) ([]model.Note, error) {
	docs, err := s.store.Find(ctx)
	if err != nil {
		return nil, s.fail(ctx, OpList, err)
	}

	notes := make([]model.Note, 0, len(docs))
	for _, d := range docs {
		notes = append(notes, model.ToNote(d))
	}
	return notes, nil
}

// Create stores a new note and returns it as read back from storage.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Note, error) {
	in.normalize()
	if err := check(s.validate, in); err != nil {
		return nil, err
	}

	now := s.timestamp()
	id, err := s.store.InsertOne(ctx, model.NoteDocument{
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, s.fail(ctx, OpCreate, err)
	}

	created, err := s.store.FindOne(ctx, id.Hex())
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			s.log(ctx).Error().Str("id", id.Hex()).Msg("created note missing on re-read")
			return nil, ErrCreateIntegrity
		}
		return nil, s.fail(ctx, OpCreate, err)
	}

	note := model.ToNote(*created)
	return &note, nil
}

// Update sets the supplied fields and updatedAt, returning the updated note.
func (s *Service) Update(ctx context.Context, in UpdateInput) (*model.Note, error) {
	in.normalize()
	if err := check(s.validate, in); err != nil {
		return nil, err
	}

	doc, err := s.store.FindOneAndUpdate(ctx, in.ID, model.NoteUpdate{
		Title:     in.Title,
		Content:   in.Content,
		UpdatedAt: s.timestamp(),
	})
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, s.fail(ctx, OpUpdate, err)
	}

	note := model.ToNote(*doc)
	return &note, nil
}

// Delete removes a note.
func (s *Service) Delete(ctx context.Context, in DeleteInput) (*Ack, error) {
	in.normalize()
	if err := check(s.validate, in); err != nil {
		return nil, err
	}

	n, err := s.store.DeleteOne(ctx, in.ID)
	if err != nil {
		return nil, s.fail(ctx, OpDelete, err)
	}
	if n == 0 {
		return nil, ErrNoteNotFound
	}
	return &Ack{Success: true}, nil
}
