// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sat-practice/backend/internal/models"
	"github.com/sat-practice/backend/internal/parser"
	"github.com/sat-practice/backend/internal/storage"
	"github.com/sat-practice/backend/internal/store"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Files             storage.Store
	Tests             store.Store
	SessionMgr        SessionManager
	Images            ImageManager
	Registry          *parser.Registry
	Policy            *models.ExamPolicy
	Version           string
	AllowFileDeletion bool
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Files     FileHandler
	Parse     ParseHandler
	Tests     TestHandler
	Images    ImageHandler
	Results   ResultHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	registry := deps.Registry
	if registry == nil {
		registry = parser.GetGlobalRegistry()
	}
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, registry),
		Files:     NewFileHandler(deps.Files, deps.AllowFileDeletion),
		Parse:     NewParseHandler(deps.Files, deps.SessionMgr, registry, deps.Policy),
		Tests:     NewTestHandler(deps.Tests, deps.SessionMgr, deps.Images, registry, deps.Policy),
		Images:    NewImageHandler(deps.Tests, deps.Images),
		Results:   NewResultHandler(deps.Tests),
		WebSocket: NewWebSocketHandler(deps.SessionMgr),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// WebSocket endpoint
	apiGroup.GET("/ws/parse", handlers.WebSocket.HandleWebSocket)

	// Uploaded files
	apiGroup.POST("/files/upload", handlers.Files.HandleUploadFile)
	apiGroup.POST("/files/upload/base64", handlers.Files.HandleUploadBase64)
	apiGroup.GET("/files/recent", handlers.Files.HandleGetRecentFiles)
	apiGroup.GET("/files/:id", handlers.Files.HandleGetFile)
	apiGroup.DELETE("/files/:id", handlers.Files.HandleDeleteFile)

	// Parse sessions
	apiGroup.POST("/parse", handlers.Parse.HandleStartParse)
	apiGroup.POST("/parse/preview", handlers.Parse.HandleParsePreview)
	apiGroup.GET("/parse/:sessionId/status", handlers.Parse.HandleParseStatus)
	apiGroup.POST("/parse/:sessionId/keepalive", handlers.Parse.HandleSessionKeepAlive)
	apiGroup.GET("/parse/:sessionId/progress", handlers.Parse.HandleParseProgressStream)
	apiGroup.GET("/parse/:sessionId/document", handlers.Parse.HandleParseDocument)
	apiGroup.GET("/parse/:sessionId/questions", handlers.Parse.HandleParseQuestions)
	apiGroup.GET("/parse/:sessionId/structured", handlers.Parse.HandleParseStructured)
	apiGroup.GET("/parse/:sessionId/image-requirements", handlers.Parse.HandleParseImageRequirements)

	// Published tests
	apiGroup.POST("/tests", handlers.Tests.HandleCreateTest)
	apiGroup.GET("/tests", handlers.Tests.HandleListTests)
	apiGroup.POST("/tests/submit", handlers.Results.HandleSubmit)
	apiGroup.GET("/tests/:testId", handlers.Tests.HandleGetTest)
	apiGroup.GET("/tests/:testId/structured", handlers.Tests.HandleGetStructuredTest)
	apiGroup.GET("/tests/:testId/msgpack", handlers.Tests.HandleGetTestMsgpack)
	apiGroup.DELETE("/tests/:testId", handlers.Tests.HandleDeleteTest)
	apiGroup.GET("/tests/:testId/results", handlers.Results.HandleListResults)

	// Images
	apiGroup.GET("/image-requirements", handlers.Images.HandleAllImageRequirements)
	apiGroup.GET("/tests/:testId/image-requirements", handlers.Images.HandleTestImageRequirements)
	apiGroup.POST("/tests/:testId/images", handlers.Images.HandleUploadTestImages)
	apiGroup.POST("/tests/:testId/images/attach", handlers.Images.HandleStartAttachJob)
	apiGroup.GET("/images/jobs/:jobId", handlers.Images.HandleAttachJobStatus)
	apiGroup.GET("/images/:testId/:name", handlers.Images.HandleServeImage)

	// Results
	apiGroup.GET("/results/:resultId", handlers.Results.HandleGetResult)
}

// SetupMiddleware installs the error handler and panic recovery
func SetupMiddleware(e *echo.Echo) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
	}))
}
