// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/sat-practice/backend/internal/models"
	"github.com/sat-practice/backend/internal/upload"
)

// FileHandler handles uploaded file operations
type FileHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleUploadBase64(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
}

// ParseHandler handles parse session operations
type ParseHandler interface {
	HandleStartParse(c echo.Context) error
	HandleParsePreview(c echo.Context) error
	HandleParseStatus(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleParseProgressStream(c echo.Context) error
	HandleParseDocument(c echo.Context) error
	HandleParseQuestions(c echo.Context) error
	HandleParseStructured(c echo.Context) error
	HandleParseImageRequirements(c echo.Context) error
}

// TestHandler handles published test operations
type TestHandler interface {
	HandleCreateTest(c echo.Context) error
	HandleListTests(c echo.Context) error
	HandleGetTest(c echo.Context) error
	HandleGetStructuredTest(c echo.Context) error
	HandleGetTestMsgpack(c echo.Context) error
	HandleDeleteTest(c echo.Context) error
}

// ImageHandler handles question image operations
type ImageHandler interface {
	HandleTestImageRequirements(c echo.Context) error
	HandleAllImageRequirements(c echo.Context) error
	HandleUploadTestImages(c echo.Context) error
	HandleStartAttachJob(c echo.Context) error
	HandleAttachJobStatus(c echo.Context) error
	HandleServeImage(c echo.Context) error
}

// ResultHandler handles submissions and scored results
type ResultHandler interface {
	HandleSubmit(c echo.Context) error
	HandleGetResult(c echo.Context) error
	HandleListResults(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	StartSession(fileID, filePath, title string) (*models.ParseSession, error)
	StartContentSession(title, content string) (*models.ParseSession, error)
	GetSession(id string) (*models.ParseSession, bool)
	GetDocument(id string) (*models.ParsedDocument, bool)
	TouchSession(id string) bool
	Wait(ctx context.Context, id string, onProgress func(models.ParseSession)) (*models.ParseSession, error)
}

// ImageManager stores question images and attaches them to tests.
type ImageManager interface {
	AttachImage(ctx context.Context, testID, name string, r io.Reader) (*upload.AttachResult, error)
	RequirementStatus(ctx context.Context, testID string) ([]upload.RequirementStatus, error)
	ImagePath(testID, name string) (string, error)
	RemoveTestImages(testID string) error
	StartJob(testID string, fileIDs []string) *upload.Job
	GetJob(id string) (*upload.Job, bool)
}
