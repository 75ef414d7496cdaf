package documents

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tutorai/tutorai-backend/internal/auth"
	"github.com/tutorai/tutorai-backend/internal/chat"
)

const maxUploadBytes = 50 << 20 // 50 MiB

type Handler struct {
	repo      *Repo
	svc       *Service
	uploadDir string
}

// Register mounts the admin document routes.
func Register(rg *gin.RouterGroup, repo *Repo, svc *Service, uploadDir string) {
	h := &Handler{repo: repo, svc: svc, uploadDir: uploadDir}

	rg.POST("", h.upload)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.POST("/:id/reindex", h.reindex)
	rg.POST("/:id/retry-failed", h.retryFailed)
	rg.DELETE("/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "file is required"})
		return
	}

	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"ok": false, "error": "file exceeds 50MB limit"})
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "only PDF files are accepted"})
		return
	}
	if err := checkPDFMagic(file); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}

	// uuid prefix avoids collisions between same-named uploads
	storedName := uuid.NewString() + "_" + filepath.Base(file.Filename)
	storedPath := filepath.Join(h.uploadDir, storedName)

	if err := c.SaveUploadedFile(file, storedPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": fmt.Sprintf("store file: %v", err)})
		return
	}

	doc, err := h.repo.Create(c.Request.Context(), title, file.Filename, storedPath, file.Size, auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	h.svc.TriggerIndex(doc)

	c.JSON(http.StatusCreated, gin.H{"ok": true, "document": doc})
}

func (h *Handler) list(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !ValidStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid status filter"})
		return
	}

	limit, offset := chat.Pagination(c.Query("limit"), c.Query("offset"))

	docs, total, err := h.repo.List(c.Request.Context(), ListFilter{
		Status: status,
		Query:  strings.TrimSpace(c.Query("q")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"documents": docs,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	doc, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "document": doc})
}

func (h *Handler) reindex(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	doc, err := h.svc.Reindex(c.Request.Context(), id)
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true, "document": doc})
}

func (h *Handler) retryFailed(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.RetryFailedChunks(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// checkPDFMagic rejects files that only look like PDFs by name.
func checkPDFMagic(file *multipart.FileHeader) error {
	f, err := file.Open()
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	defer f.Close()

	magic := make([]byte, 5)
	if _, err := io.ReadFull(f, magic); err != nil {
		return errors.New("file is not a valid PDF")
	}
	if !bytes.Equal(magic, []byte("%PDF-")) {
		return errors.New("file is not a valid PDF")
	}
	return nil
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid document id"})
		return 0, false
	}
	return id, true
}

func respondRepoErr(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "document not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
}
