package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// RepositoryError carries a machine-readable operation.reason code alongside
// the underlying cause.
type RepositoryError struct {
	code string
	err  error
}

func (e *RepositoryError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *RepositoryError) Unwrap() error {
	return e.err
}

func (e *RepositoryError) Code() string {
	return e.code
}

const (
	opRepositoryNew = "notes.repository.new"
	opFindAll       = "notes.find_all"
	opFindByID      = "notes.find_by_id"
	opCreate        = "notes.create"
	opUpdate        = "notes.update"
	opDelete        = "notes.delete"
)

func newRepositoryError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &RepositoryError{code: code, err: cause}
}

// IDProvider issues unique string identifiers for notes and tags.
type IDProvider interface {
	NewID() (string, error)
}

// RepositoryConfig describes the dependencies required to build a Repository.
type RepositoryConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Repository translates between the Note domain entity and relational rows
// and enforces the tag uniqueness invariants.
type Repository struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewRepository validates the configuration and returns a Repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Database == nil {
		return nil, newRepositoryError(opRepositoryNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newRepositoryError(opRepositoryNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Repository{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// FindAll returns every note ordered by most recent update first, each with
// its resolved tag-name list.
func (r *Repository) FindAll(ctx context.Context) ([]Note, error) {
	var records []NoteRecord
	if err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Find(&records).Error; err != nil {
		r.logError(opFindAll, "query_failed", err)
		return nil, newRepositoryError(opFindAll, "query_failed", err)
	}

	result := make([]Note, 0, len(records))
	for _, record := range records {
		tags, err := r.tagsForNote(r.db.WithContext(ctx), record.ID)
		if err != nil {
			r.logError(opFindAll, "tag_resolve_failed", err, zap.String("note_id", record.ID))
			return nil, newRepositoryError(opFindAll, "tag_resolve_failed", err)
		}
		result = append(result, record.toDomain(tags))
	}

	return result, nil
}

// FindByID returns the note with resolved tags, or nil when no row matches.
// Absence is not an error.
func (r *Repository) FindByID(ctx context.Context, id string) (*Note, error) {
	var record NoteRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logError(opFindByID, "query_failed", err, zap.String("note_id", id))
		return nil, newRepositoryError(opFindByID, "query_failed", err)
	}

	tags, err := r.tagsForNote(r.db.WithContext(ctx), record.ID)
	if err != nil {
		r.logError(opFindByID, "tag_resolve_failed", err, zap.String("note_id", id))
		return nil, newRepositoryError(opFindByID, "tag_resolve_failed", err)
	}

	note := record.toDomain(tags)
	return &note, nil
}

// Create persists a new note from the draft. Both timestamps are set to the
// same instant; tag associations are saved in the same transaction.
func (r *Repository) Create(ctx context.Context, draft Draft) (*Note, error) {
	if err := draft.Validate(); err != nil {
		r.logError(opCreate, "invalid_draft", err)
		return nil, newRepositoryError(opCreate, "invalid_draft", err)
	}

	noteID, err := r.idProvider.NewID()
	if err != nil {
		r.logError(opCreate, "id_generation_failed", err)
		return nil, newRepositoryError(opCreate, "id_generation_failed", err)
	}

	nowMillis := r.clock().UTC().UnixMilli()
	record := NoteRecord{
		ID:              noteID,
		Title:           draft.Title,
		Content:         draft.Content,
		CreatedAtMillis: nowMillis,
		UpdatedAtMillis: nowMillis,
	}

	txErr := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			r.logError(opCreate, "note_insert_failed", err, zap.String("note_id", noteID))
			return newRepositoryError(opCreate, "note_insert_failed", err)
		}
		if err := r.saveTags(tx, noteID, draft.Tags); err != nil {
			r.logError(opCreate, "tag_save_failed", err, zap.String("note_id", noteID))
			return newRepositoryError(opCreate, "tag_save_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	note := record.toDomain(draft.Tags)
	return &note, nil
}

// Update merges the supplied fields onto the existing note and advances
// updatedAt. A nil Tags field leaves associations untouched; a non-nil empty
// slice clears them. Returns nil when the note does not exist.
func (r *Repository) Update(ctx context.Context, id string, fields UpdateFields) (*Note, error) {
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	merged := *existing
	if fields.Title != nil {
		merged.Title = *fields.Title
	}
	if fields.Content != nil {
		merged.Content = *fields.Content
	}

	nowMillis := r.clock().UTC().UnixMilli()
	merged.UpdatedAt = time.UnixMilli(nowMillis).UTC()

	txErr := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"title":      merged.Title,
			"content":    merged.Content,
			"updated_at": nowMillis,
		}
		if err := tx.Model(&NoteRecord{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			r.logError(opUpdate, "note_update_failed", err, zap.String("note_id", id))
			return newRepositoryError(opUpdate, "note_update_failed", err)
		}
		if fields.Tags != nil {
			if err := r.saveTags(tx, id, *fields.Tags); err != nil {
				r.logError(opUpdate, "tag_save_failed", err, zap.String("note_id", id))
				return newRepositoryError(opUpdate, "tag_save_failed", err)
			}
			merged.Tags = *fields.Tags
			if merged.Tags == nil {
				merged.Tags = []string{}
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	return &merged, nil
}

// Delete removes the note row; cascading foreign keys remove its tag
// associations. Reports whether a row was actually removed.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&NoteRecord{})
	if result.Error != nil {
		r.logError(opDelete, "delete_failed", result.Error, zap.String("note_id", id))
		return false, newRepositoryError(opDelete, "delete_failed", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// saveTags replaces the full association set for a note inside the caller's
// transaction: delete all join rows, then upsert each tag by name and relink.
// Duplicate names in the input resolve to the same pair and are ignored.
func (r *Repository) saveTags(tx *gorm.DB, noteID string, tagNames []string) error {
	if err := tx.Where("note_id = ?", noteID).Delete(&NoteTagRecord{}).Error; err != nil {
		return err
	}
	if len(tagNames) == 0 {
		return nil
	}

	for _, name := range tagNames {
		tagID, err := r.idProvider.NewID()
		if err != nil {
			return err
		}
		// Insert-or-ignore keyed on the unique name; the fresh id is
		// discarded when the name already exists.
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&TagRecord{ID: tagID, Name: name}).Error; err != nil {
			return err
		}

		var tag TagRecord
		if err := tx.Where("name = ?", name).Take(&tag).Error; err != nil {
			return err
		}

		link := NoteTagRecord{NoteID: noteID, TagID: tag.ID}
		if err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&link).Error; err != nil {
			return err
		}
	}

	return nil
}

func (r *Repository) tagsForNote(tx *gorm.DB, noteID string) ([]string, error) {
	var names []string
	err := tx.Model(&TagRecord{}).
		Select("tags.name").
		Joins("JOIN note_tags ON note_tags.tag_id = tags.id").
		Where("note_tags.note_id = ?", noteID).
		Scan(&names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *Repository) loggerOrDefault() *zap.Logger {
	if r == nil || r.logger == nil {
		return noOpLogger
	}
	return r.logger
}

func (r *Repository) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	r.loggerOrDefault().Error("note repository error", attrs...)
}
