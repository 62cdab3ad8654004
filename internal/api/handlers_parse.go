// handlers_parse.go - Parse session operation handlers
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/sat-practice/backend/internal/models"
	"github.com/sat-practice/backend/internal/parser"
	"github.com/sat-practice/backend/internal/storage"
)

// maxPreviewBytes caps the raw text accepted by the synchronous preview.
const maxPreviewBytes = 4 << 20

// ParseHandlerImpl implements the ParseHandler interface
type ParseHandlerImpl struct {
	store      storage.Store
	sessionMgr SessionManager
	registry   *parser.Registry
	policy     *models.ExamPolicy
}

// NewParseHandler creates a new parse handler instance
func NewParseHandler(store storage.Store, sessionMgr SessionManager, registry *parser.Registry, policy *models.ExamPolicy) ParseHandler {
	return &ParseHandlerImpl{
		store:      store,
		sessionMgr: sessionMgr,
		registry:   registry,
		policy:     policy,
	}
}

// HandleStartParse starts a background parse of an uploaded test source
func (h *ParseHandlerImpl) HandleStartParse(c echo.Context) error {
	var req startParseRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.FileID == "" {
		return NewValidationError("fileId")
	}

	info, err := h.store.Get(req.FileID)
	if err != nil {
		return NewNotFoundError("file", req.FileID)
	}
	if info.Kind != models.FileKindTestSource {
		return NewBadRequestError(fmt.Sprintf("file %s is not a test source", info.Name), nil)
	}

	path, err := h.store.GetFilePath(req.FileID)
	if err != nil {
		return NewInternalError("failed to get file path", err)
	}

	sess, err := h.sessionMgr.StartSession(info.ID, path, req.Title)
	if err != nil {
		return NewInternalError("failed to start session", err)
	}
	if err := h.store.SetStatus(info.ID, "parsing"); err != nil {
		log.Warnf("[Parse] Failed to mark file %s as parsing for session %s: %v", info.ID, sess.ID, err)
	}

	return c.JSON(http.StatusAccepted, sess)
}

// HandleParsePreview compiles a raw text body synchronously. The optional
// dialect query parameter bypasses the fallback chain.
func (h *ParseHandlerImpl) HandleParsePreview(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPreviewBytes+1))
	if err != nil {
		return NewBadRequestError("failed to read body", err)
	}
	if len(body) > maxPreviewBytes {
		return NewBadRequestError("test file too large", nil)
	}
	if len(body) == 0 {
		return NewValidationError("body")
	}

	title := c.QueryParam("title")
	doc, err := h.compile(string(body), title, c.QueryParam("dialect"))
	if err != nil {
		return err
	}

	warnings := doc.Warnings
	if warnings == nil {
		warnings = []models.ParseWarning{}
	}
	return c.JSON(http.StatusOK, previewResponse{
		Document:  doc,
		Questions: parser.ToFlatQuestions(doc),
		Warnings:  warnings,
	})
}

// compile runs the chain, or a single named dialect.
func (h *ParseHandlerImpl) compile(content, title, dialect string) (*models.ParsedDocument, error) {
	if dialect == "" {
		doc, err := h.registry.Parse(content, title)
		if err != nil {
			return nil, newParseError(err)
		}
		return doc, nil
	}

	p, err := h.registry.GetParserByName(dialect)
	if err != nil {
		return nil, NewBadRequestError("unknown dialect", err)
	}
	o := p.Parse(content, title)
	switch o.Kind {
	case parser.Success:
		return o.Document, nil
	case parser.NotApplicable:
		return nil, NewBadRequestError(fmt.Sprintf("%s dialect does not apply", p.Dialect()), fmt.Errorf("%s", o.Reason))
	default:
		return nil, newParseError(&parser.ParseError{Dialect: p.Dialect(), Reason: o.Reason, Err: o.Err})
	}
}

// HandleParseStatus returns the current status of a parsing session
func (h *ParseHandlerImpl) HandleParseStatus(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	// Touch session to prevent cleanup while being viewed
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, sess)
}

// HandleSessionKeepAlive extends session lifetime for active viewing
func (h *ParseHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if ok := h.sessionMgr.TouchSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleParseProgressStream streams parsing progress via SSE
func (h *ParseHandlerImpl) HandleParseProgressStream(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		h.sendSSEError(c, "session not found")
		return nil
	}
	h.sendSSEData(c, sess)
	if isFinished(sess) {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil

		case <-ticker.C:
			sess, ok := h.sessionMgr.GetSession(id)
			if !ok {
				h.sendSSEError(c, "session not found")
				return nil
			}

			h.sendSSEData(c, sess)
			if isFinished(sess) {
				return nil
			}

		case <-timeout.C:
			h.sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

// HandleParseDocument returns the full compiled document
func (h *ParseHandlerImpl) HandleParseDocument(c echo.Context) error {
	doc, err := h.document(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

// HandleParseQuestions returns the flat question list
func (h *ParseHandlerImpl) HandleParseQuestions(c echo.Context) error {
	doc, err := h.document(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, parser.ToFlatQuestions(doc))
}

// HandleParseStructured returns the section/module projection
func (h *ParseHandlerImpl) HandleParseStructured(c echo.Context) error {
	doc, err := h.document(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, parser.BuildStructuredExam(doc.TestName, parser.ToFlatQuestions(doc), h.policy))
}

// HandleParseImageRequirements returns the images the document needs,
// grouped by test, plus any filename collisions.
func (h *ParseHandlerImpl) HandleParseImageRequirements(c echo.Context) error {
	doc, err := h.document(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"requirements": doc.ImageRequirements,
		"groups":       parser.GroupRequirementsByTest(doc.ImageRequirements),
		"collisions":   parser.FilenameCollisions(doc.ImageRequirements),
	})
}

// document loads the compiled document of a finished session.
func (h *ParseHandlerImpl) document(c echo.Context) (*models.ParsedDocument, error) {
	id := c.Param("sessionId")
	if id == "" {
		return nil, NewValidationError("sessionId")
	}
	return sessionDocument(h.sessionMgr, id)
}

// sessionDocument returns the document of a completed session, or an API
// error describing why it is not available yet.
func sessionDocument(mgr SessionManager, id string) (*models.ParsedDocument, error) {
	sess, ok := mgr.GetSession(id)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}
	mgr.TouchSession(id)

	switch sess.Status {
	case models.SessionStatusError:
		return nil, NewBadRequestError("parse failed", fmt.Errorf("%s", sess.Error))
	case models.SessionStatusComplete:
	default:
		return nil, NewConflictError(fmt.Sprintf("session %s is still %s", id, sess.Status))
	}

	doc, ok := mgr.GetDocument(id)
	if !ok {
		return nil, NewNotFoundError("document", id)
	}
	return doc, nil
}

// Request/Response types

type startParseRequest struct {
	FileID string `json:"fileId"`
	Title  string `json:"title"`
}

type previewResponse struct {
	Document  *models.ParsedDocument `json:"document"`
	Questions []models.FlatQuestion  `json:"questions"`
	Warnings  []models.ParseWarning  `json:"warnings"`
}

// Helper functions

func isFinished(sess *models.ParseSession) bool {
	return sess.Status == models.SessionStatusComplete || sess.Status == models.SessionStatusError
}

func (h *ParseHandlerImpl) sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}

func (h *ParseHandlerImpl) sendSSEError(c echo.Context, message string) {
	h.sendSSEData(c, map[string]string{"error": message})
}
