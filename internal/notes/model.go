package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidNoteID indicates that a note identifier is empty or exceeds storage bounds.
	ErrInvalidNoteID = errors.New("notes: invalid note id")
	// ErrInvalidDraft indicates that a note draft is missing required fields.
	ErrInvalidDraft = errors.New("notes: invalid draft")
)

// NoteID represents a validated note identifier.
type NoteID string

// NewNoteID validates raw input and returns a NoteID.
func NewNoteID(rawInput string) (NoteID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidNoteID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidNoteID, maxIdentifierLength)
	}
	return NoteID(trimmed), nil
}

// String returns the underlying string identifier.
func (id NoteID) String() string {
	return string(id)
}

// Note is the domain representation of one user document with resolved tags.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Tags      []string  `json:"tags"`
}

// Draft carries the fields required to create a note. Identifier and
// timestamps are assigned by the repository.
type Draft struct {
	Title   string
	Content string
	Tags    []string
}

// Validate reports whether the draft satisfies creation requirements.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidDraft)
	}
	return nil
}

// UpdateFields describes a partial note update. Nil fields are left
// untouched; a non-nil empty Tags slice clears all tag associations.
type UpdateFields struct {
	Title   *string
	Content *string
	Tags    *[]string
}

// NoteRecord models the persisted note row. Content is opaque HTML markup;
// timestamps are unix milliseconds.
type NoteRecord struct {
	ID              string `gorm:"column:id;primaryKey;size:190;not null"`
	Title           string `gorm:"column:title;not null"`
	Content         string `gorm:"column:content;type:text;not null"`
	CreatedAtMillis int64  `gorm:"column:created_at;not null"`
	UpdatedAtMillis int64  `gorm:"column:updated_at;not null;index:idx_notes_updated"`
}

// TableName provides the explicit table binding for GORM.
func (NoteRecord) TableName() string {
	return "notes"
}

// TagRecord models one normalized label. Names are globally unique with
// case-sensitive matching.
type TagRecord struct {
	ID   string `gorm:"column:id;primaryKey;size:190;not null"`
	Name string `gorm:"column:name;size:190;not null;uniqueIndex:idx_tags_name"`
}

// TableName provides the explicit table binding for GORM.
func (TagRecord) TableName() string {
	return "tags"
}

// NoteTagRecord joins notes to tags. The pair is the primary key; deleting
// either parent cascades into this table.
type NoteTagRecord struct {
	NoteID string     `gorm:"column:note_id;primaryKey;size:190;not null"`
	TagID  string     `gorm:"column:tag_id;primaryKey;size:190;not null"`
	Note   NoteRecord `gorm:"foreignKey:NoteID;references:ID;constraint:OnDelete:CASCADE"`
	Tag    TagRecord  `gorm:"foreignKey:TagID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName provides the explicit table binding for GORM.
func (NoteTagRecord) TableName() string {
	return "note_tags"
}

func (record NoteRecord) toDomain(tags []string) Note {
	if tags == nil {
		tags = []string{}
	}
	return Note{
		ID:        record.ID,
		Title:     record.Title,
		Content:   record.Content,
		CreatedAt: time.UnixMilli(record.CreatedAtMillis).UTC(),
		UpdatedAt: time.UnixMilli(record.UpdatedAtMillis).UTC(),
		Tags:      tags,
	}
}
