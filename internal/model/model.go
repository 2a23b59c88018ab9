package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// TimeLayout is the wire format for note timestamps (UTC, millisecond precision).
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Note represents the note structure used in API.
type Note struct {
	ID        string `json:"id" validate:"required"`
	Title     string `json:"title" validate:"min=1,max=200"`
	Content   string `json:"content" validate:"max=10000"`
	CreatedAt string `json:"createdAt" validate:"required,datetime=2006-01-02T15:04:05.000Z07:00"`
	UpdatedAt string `json:"updatedAt" validate:"required,datetime=2006-01-02T15:04:05.000Z07:00"`
}

// NoteDocument is a note as stored in the notes collection.
type NoteDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Title     string        `bson:"title"`
	Content   string        `bson:"content"`
	CreatedAt time.Time     `bson:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

// NoteUpdate holds the fields of a partial update. Nil fields are left untouched.
type NoteUpdate struct {
	Title     *string
	Content   *string
	UpdatedAt time.Time
}

// ToNote converts a stored document into its client-facing form.
func ToNote(doc NoteDocument) Note {
	return Note{
		ID:        doc.ID.Hex(),
		Title:     doc.Title,
		Content:   doc.Content,
		CreatedAt: FormatTime(doc.CreatedAt),
		UpdatedAt: FormatTime(doc.UpdatedAt),
	}
}

// FormatTime renders t the way a JavaScript client's toISOString does.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
