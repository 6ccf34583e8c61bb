// Package transfer is the bulk serialization boundary: JSON export/import of
// the whole store and Markdown export/import of individual notes.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/memoka-app/memoka/internal/markdown"
	"github.com/memoka-app/memoka/internal/notes"
	"go.uber.org/zap"
)

// ImportedTag is attached to every note created through Markdown import.
const ImportedTag = "imported"

const markdownExtension = ".md"

var errMissingRepository = errors.New("note repository is required")

// ServiceConfig describes the dependencies required to build a Service.
type ServiceConfig struct {
	Repository *notes.Repository
	Logger     *zap.Logger
}

// Service moves notes across the filesystem boundary. All operations are
// synchronous; a write that fails partway leaves the destination undefined
// and the error is returned to the caller.
type Service struct {
	repository *notes.Repository
	logger     *zap.Logger
}

// NewService validates the configuration and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repository == nil {
		return nil, errMissingRepository
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repository: cfg.Repository, logger: logger}, nil
}

// draftPayload is the entry shape accepted by ImportAll. Identifiers and
// timestamps present in the source are ignored; imports always mint fresh
// ones.
type draftPayload struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// ExportAll serializes every note to a pretty-printed JSON array at the
// given path, creating parent directories as needed.
func (s *Service) ExportAll(ctx context.Context, path string) error {
	all, err := s.repository.FindAll(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		s.logger.Error("notes export encode failed", zap.Error(err))
		return err
	}

	if err := writeFile(path, data); err != nil {
		s.logger.Error("notes export write failed", zap.String("path", path), zap.Error(err))
		return err
	}

	s.logger.Info("notes exported", zap.String("path", path))
	return nil
}

// ImportAll reads a JSON array of note drafts and creates one note per
// entry, in input order. The first failing entry aborts the remaining batch;
// entries created before the failure are kept.
func (s *Service) ImportAll(ctx context.Context, path string) ([]notes.Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("notes import read failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	var drafts []draftPayload
	if err := json.Unmarshal(data, &drafts); err != nil {
		s.logger.Error("notes import decode failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("decode import payload: %w", err)
	}

	imported := make([]notes.Note, 0, len(drafts))
	for _, draft := range drafts {
		created, err := s.repository.Create(ctx, notes.Draft{
			Title:   draft.Title,
			Content: draft.Content,
			Tags:    draft.Tags,
		})
		if err != nil {
			return nil, err
		}
		imported = append(imported, *created)
	}

	s.logger.Info("notes imported", zap.String("path", path), zap.Int("count", len(imported)))
	return imported, nil
}

// ExportNoteAsMarkdown renders one note as a Markdown document and writes it
// to the given path. The note content is emitted verbatim; only the title
// and tag header lines are synthesized.
func (s *Service) ExportNoteAsMarkdown(note notes.Note, path string) error {
	if err := writeFile(path, []byte(RenderNoteMarkdown(note))); err != nil {
		s.logger.Error("markdown export write failed", zap.String("path", path), zap.Error(err))
		return err
	}
	s.logger.Info("note exported as markdown", zap.String("note_id", note.ID), zap.String("path", path))
	return nil
}

// RenderNoteMarkdown produces the Markdown document for a note:
// "# <title>", an optional "Tags:" line, then the raw content.
func RenderNoteMarkdown(note notes.Note) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(note.Title)
	b.WriteString("\n\n")
	if len(note.Tags) > 0 {
		b.WriteString("Tags: ")
		b.WriteString(strings.Join(note.Tags, ", "))
		b.WriteString("\n\n")
	}
	b.WriteString(note.Content)
	return b.String()
}

// ImportMarkdown creates one note per Markdown file: the title is the file
// name without extension, the content is the rendered HTML, and each note is
// tagged "imported". The first failing file aborts the remaining batch.
func (s *Service) ImportMarkdown(ctx context.Context, paths []string) ([]notes.Note, error) {
	imported := make([]notes.Note, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Error("markdown import read failed", zap.String("path", path), zap.Error(err))
			return nil, err
		}

		htmlContent, err := markdown.ToHTML(string(data))
		if err != nil {
			s.logger.Error("markdown import render failed", zap.String("path", path), zap.Error(err))
			return nil, err
		}

		title := strings.TrimSuffix(filepath.Base(path), markdownExtension)
		created, err := s.repository.Create(ctx, notes.Draft{
			Title:   title,
			Content: htmlContent,
			Tags:    []string{ImportedTag},
		})
		if err != nil {
			return nil, err
		}
		imported = append(imported, *created)
	}

	s.logger.Info("markdown files imported", zap.Int("count", len(imported)))
	return imported, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
