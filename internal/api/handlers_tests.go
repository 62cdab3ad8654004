// handlers_tests.go - Published test handlers
package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/sat-practice/backend/internal/models"
	"github.com/sat-practice/backend/internal/parser"
	"github.com/sat-practice/backend/internal/store"
	"github.com/vmihailenco/msgpack/v5"
)

// TestHandlerImpl implements the TestHandler interface
type TestHandlerImpl struct {
	tests      store.Store
	sessionMgr SessionManager
	images     ImageManager
	registry   *parser.Registry
	policy     *models.ExamPolicy
}

// NewTestHandler creates a new test handler instance
func NewTestHandler(tests store.Store, sessionMgr SessionManager, images ImageManager, registry *parser.Registry, policy *models.ExamPolicy) TestHandler {
	return &TestHandlerImpl{
		tests:      tests,
		sessionMgr: sessionMgr,
		images:     images,
		registry:   registry,
		policy:     policy,
	}
}

// HandleCreateTest publishes a test from a finished parse session or from
// inline content. Documents with warnings are rejected unless allowWarnings is set.
func (h *TestHandlerImpl) HandleCreateTest(c echo.Context) error {
	var req createTestRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	var doc *models.ParsedDocument
	var err error
	if req.SessionID != "" {
		doc, err = sessionDocument(h.sessionMgr, req.SessionID)
	} else {
		doc, err = h.registry.Parse(req.Content, req.Title)
		if err != nil {
			err = newParseError(err)
		}
	}
	if err != nil {
		return err
	}

	if len(doc.Warnings) > 0 && !req.AllowWarnings {
		return NewUnprocessableError("test file has defects; fix them or set allowWarnings", doc.Warnings)
	}
	if doc.TotalQuestions == 0 {
		return NewUnprocessableError("test file has no questions", doc.Warnings)
	}

	test := newTest(req.Title, doc)
	if err := h.tests.PutTest(c.Request().Context(), test); err != nil {
		return NewInternalError("failed to save test", err)
	}

	log.Infof("[Tests] Created %s %q: %d questions, %d images required, %d warnings",
		test.TestID, test.Title, len(test.Questions), len(test.ImageRequirements), len(test.Warnings))
	return c.JSON(http.StatusCreated, test)
}

// newTest builds a published test from a compiled document.
func newTest(title string, doc *models.ParsedDocument) *models.Test {
	if title == "" {
		title = doc.TestName
	}
	return &models.Test{
		TestID:            uuid.New().String(),
		Title:             title,
		Questions:         parser.ToFlatQuestions(doc),
		ImageRequirements: doc.ImageRequirements,
		Warnings:          doc.Warnings,
		CreatedAt:         time.Now().UTC(),
	}
}

// HandleListTests returns every published test, newest first
func (h *TestHandlerImpl) HandleListTests(c echo.Context) error {
	tests, err := h.tests.ListTests(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to list tests", err)
	}
	return c.JSON(http.StatusOK, tests)
}

// HandleGetTest returns the student view of a test, without answers
func (h *TestHandlerImpl) HandleGetTest(c echo.Context) error {
	test, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, test.StudentView())
}

// HandleGetStructuredTest returns the student view grouped by section and module
func (h *TestHandlerImpl) HandleGetStructuredTest(c echo.Context) error {
	test, err := h.load(c)
	if err != nil {
		return err
	}
	view := test.StudentView()
	return c.JSON(http.StatusOK, parser.BuildStructuredExam(view.Title, view.Questions, h.policy))
}

// HandleGetTestMsgpack returns the student view in MessagePack format
func (h *TestHandlerImpl) HandleGetTestMsgpack(c echo.Context) error {
	test, err := h.load(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(test.StudentView()); err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", buf.Bytes())
}

// HandleDeleteTest removes a test, its results and its images
func (h *TestHandlerImpl) HandleDeleteTest(c echo.Context) error {
	id := c.Param("testId")
	if id == "" {
		return NewValidationError("testId")
	}

	if err := h.tests.DeleteTest(c.Request().Context(), id); err != nil {
		return storeError("test", id, err)
	}
	if h.images != nil {
		if err := h.images.RemoveTestImages(id); err != nil {
			log.Warnf("[Tests] Failed to remove images of %s: %v", id, err)
		}
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *TestHandlerImpl) load(c echo.Context) (*models.Test, error) {
	id := c.Param("testId")
	if id == "" {
		return nil, NewValidationError("testId")
	}
	test, err := h.tests.GetTest(c.Request().Context(), id)
	if err != nil {
		return nil, storeError("test", id, err)
	}
	return test, nil
}

type createTestRequest struct {
	Title         string `json:"title"`
	SessionID     string `json:"sessionId"`
	Content       string `json:"content"`
	AllowWarnings bool   `json:"allowWarnings"`
}

func (r *createTestRequest) validate() error {
	if r.SessionID == "" && r.Content == "" {
		return NewValidationError("sessionId or content")
	}
	if r.SessionID != "" && r.Content != "" {
		return NewBadRequestError("provide either sessionId or content, not both", nil)
	}
	return nil
}
