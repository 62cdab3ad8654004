// handlers_files.go - Uploaded file handlers
package api

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/sat-practice/backend/internal/models"
	"github.com/sat-practice/backend/internal/storage"
)

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	store         storage.Store
	allowDeletion bool
}

// NewFileHandler creates a new file handler instance
func NewFileHandler(store storage.Store, allowDeletion bool) FileHandler {
	return &FileHandlerImpl{
		store:         store,
		allowDeletion: allowDeletion,
	}
}

// HandleUploadFile accepts a multipart test source or image and saves it to storage
func (h *FileHandlerImpl) HandleUploadFile(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(file.Filename, src)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	log.Infof("[Upload] Stored %s %q (%d bytes) as %s", info.Kind, info.Name, info.Size, info.ID)
	return c.JSON(http.StatusCreated, info)
}

// HandleUploadBase64 accepts a file as base64 JSON and saves it to storage
func (h *FileHandlerImpl) HandleUploadBase64(c echo.Context) error {
	var req uploadFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := req.validate(); err != nil {
		return err
	}

	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}

	info, err := h.store.Save(req.Name, bytes.NewReader(decoded))
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	return c.JSON(http.StatusCreated, info)
}

// HandleGetRecentFiles returns recently uploaded files, optionally filtered by kind
func (h *FileHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	files, err := h.store.List(0)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}

	files = filterByKind(files, models.FileKind(c.QueryParam("kind")))
	if len(files) > limit {
		files = files[:limit]
	}

	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a specific file
func (h *FileHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile deletes an uploaded file
func (h *FileHandlerImpl) HandleDeleteFile(c echo.Context) error {
	if !h.allowDeletion {
		return &APIError{Status: http.StatusForbidden, Code: "FORBIDDEN", Message: "file deletion is disabled"}
	}

	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return NewNotFoundError("file", id)
	}

	return c.NoContent(http.StatusNoContent)
}

type uploadFileRequest struct {
	Name string `json:"name"`
	Data string `json:"data"` // Base64-encoded content
}

func (r *uploadFileRequest) validate() error {
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.Data == "" {
		return NewValidationError("data")
	}
	return nil
}

// filterByKind keeps files of the given kind; an empty kind keeps everything.
func filterByKind(files []*models.FileInfo, kind models.FileKind) []*models.FileInfo {
	if kind == "" {
		return files
	}
	out := make([]*models.FileInfo, 0, len(files))
	for _, f := range files {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}
