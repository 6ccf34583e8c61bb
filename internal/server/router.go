package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/memoka-app/memoka/internal/images"
	"github.com/memoka-app/memoka/internal/notes"
	"github.com/memoka-app/memoka/internal/transfer"
	"go.uber.org/zap"
)

var (
	errMissingRepository      = errors.New("note repository dependency required")
	errMissingTransferService = errors.New("transfer service dependency required")
	errMissingImageStore      = errors.New("image store dependency required")
)

// Dependencies carries the collaborators the HTTP surface dispatches to.
type Dependencies struct {
	Repository *notes.Repository
	Transfer   *transfer.Service
	Images     *images.Store
	Logger     *zap.Logger
}

// NewHTTPHandler builds the gin router exposing the note command surface.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Repository == nil {
		return nil, errMissingRepository
	}
	if deps.Transfer == nil {
		return nil, errMissingTransferService
	}
	if deps.Images == nil {
		return nil, errMissingImageStore
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		repository: deps.Repository,
		transfer:   deps.Transfer,
		images:     deps.Images,
		logger:     logger,
	}

	router.GET("/notes", handler.handleGetAllNotes)
	router.GET("/notes/:id", handler.handleGetNoteByID)
	router.POST("/notes", handler.handleCreateNote)
	router.PATCH("/notes/:id", handler.handleUpdateNote)
	router.DELETE("/notes/:id", handler.handleDeleteNote)
	router.POST("/notes/export", handler.handleExportNotes)
	router.POST("/notes/import", handler.handleImportNotes)
	router.POST("/notes/:id/markdown", handler.handleExportNoteAsMarkdown)
	router.POST("/notes/import-markdown", handler.handleImportMarkdown)
	router.POST("/images", handler.handleUploadImage)

	return router, nil
}

type httpHandler struct {
	repository *notes.Repository
	transfer   *transfer.Service
	images     *images.Store
	logger     *zap.Logger
}

type createNotePayload struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// updateNotePayload distinguishes omitted fields (nil) from explicitly empty
// ones; an absent tags key leaves associations untouched while an empty list
// clears them.
type updateNotePayload struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

type filePathPayload struct {
	Path string `json:"path"`
}

type filePathsPayload struct {
	Paths []string `json:"paths"`
}

func (h *httpHandler) handleGetAllNotes(c *gin.Context) {
	all, err := h.repository.FindAll(c.Request.Context())
	if err != nil {
		h.respondRepositoryError(c, "failed to list notes", err)
		return
	}
	c.JSON(http.StatusOK, all)
}

func (h *httpHandler) handleGetNoteByID(c *gin.Context) {
	noteID, err := notes.NewNoteID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_note_id"})
		return
	}

	note, err := h.repository.FindByID(c.Request.Context(), noteID.String())
	if err != nil {
		h.respondRepositoryError(c, "failed to load note", err)
		return
	}
	if note == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	var request createNotePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if strings.TrimSpace(request.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title_required"})
		return
	}

	created, err := h.repository.Create(c.Request.Context(), notes.Draft{
		Title:   request.Title,
		Content: request.Content,
		Tags:    request.Tags,
	})
	if err != nil {
		h.respondRepositoryError(c, "failed to create note", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	noteID, err := notes.NewNoteID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_note_id"})
		return
	}

	var request updateNotePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	updated, err := h.repository.Update(c.Request.Context(), noteID.String(), notes.UpdateFields{
		Title:   request.Title,
		Content: request.Content,
		Tags:    request.Tags,
	})
	if err != nil {
		h.respondRepositoryError(c, "failed to update note", err)
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	noteID, err := notes.NewNoteID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_note_id"})
		return
	}

	deleted, err := h.repository.Delete(c.Request.Context(), noteID.String())
	if err != nil {
		h.respondRepositoryError(c, "failed to delete note", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *httpHandler) handleExportNotes(c *gin.Context) {
	var request filePathPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Path) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.transfer.ExportAll(c.Request.Context(), request.Path); err != nil {
		h.logger.Error("failed to export notes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exported": true})
}

func (h *httpHandler) handleImportNotes(c *gin.Context) {
	var request filePathPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Path) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	imported, err := h.transfer.ImportAll(c.Request.Context(), request.Path)
	if err != nil {
		h.logger.Error("failed to import notes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import_failed"})
		return
	}
	c.JSON(http.StatusOK, imported)
}

func (h *httpHandler) handleExportNoteAsMarkdown(c *gin.Context) {
	noteID, err := notes.NewNoteID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_note_id"})
		return
	}

	var request filePathPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Path) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.repository.FindByID(c.Request.Context(), noteID.String())
	if err != nil {
		h.respondRepositoryError(c, "failed to load note", err)
		return
	}
	if note == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	if err := h.transfer.ExportNoteAsMarkdown(*note, request.Path); err != nil {
		h.logger.Error("failed to export note as markdown", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exported": true})
}

func (h *httpHandler) handleImportMarkdown(c *gin.Context) {
	var request filePathsPayload
	if err := c.ShouldBindJSON(&request); err != nil || len(request.Paths) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	imported, err := h.transfer.ImportMarkdown(c.Request.Context(), request.Paths)
	if err != nil {
		h.logger.Error("failed to import markdown files", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import_failed"})
		return
	}
	c.JSON(http.StatusOK, imported)
}

func (h *httpHandler) handleUploadImage(c *gin.Context) {
	var request filePathPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Path) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	upload, err := h.images.Save(request.Path)
	if err != nil {
		h.logger.Error("failed to upload image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload_failed"})
		return
	}
	c.JSON(http.StatusOK, upload)
}

// respondRepositoryError maps repository failures to HTTP: validation
// failures are the client's fault, everything else is internal. The coded
// error string is surfaced so the UI can present a stable identifier.
func (h *httpHandler) respondRepositoryError(c *gin.Context, message string, err error) {
	h.logger.Error(message, zap.Error(err))

	if errors.Is(err, notes.ErrInvalidDraft) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_draft"})
		return
	}

	var repoErr *notes.RepositoryError
	if errors.As(err, &repoErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": repoErr.Code()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}
