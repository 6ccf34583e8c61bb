package server

import (
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/memoka-app/memoka/internal/images"
	"github.com/memoka-app/memoka/internal/notes"
	"github.com/memoka-app/memoka/internal/transfer"
	"gorm.io/gorm"
)

type sequentialIDGenerator struct {
	next int
}

func (g *sequentialIDGenerator) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("id-%04d", g.next), nil
}

func newTestRouter(t *testing.T) (http.Handler, *notes.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:server_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := db.AutoMigrate(&notes.NoteRecord{}, &notes.TagRecord{}, &notes.NoteTagRecord{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repository, err := notes.NewRepository(notes.RepositoryConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: &sequentialIDGenerator{},
	})
	if err != nil {
		t.Fatalf("failed to build repository: %v", err)
	}

	transferService, err := transfer.NewService(transfer.ServiceConfig{Repository: repository})
	if err != nil {
		t.Fatalf("failed to build transfer service: %v", err)
	}

	imageStore, err := images.NewStore(filepath.Join(t.TempDir(), "images"), nil)
	if err != nil {
		t.Fatalf("failed to build image store: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		Repository: repository,
		Transfer:   transferService,
		Images:     imageStore,
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	return handler, repository
}
