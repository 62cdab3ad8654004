// handlers_results.go - Submission and result handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/sat-practice/backend/internal/models"
	"github.com/sat-practice/backend/internal/scoring"
	"github.com/sat-practice/backend/internal/store"
)

// ResultHandlerImpl implements the ResultHandler interface
type ResultHandlerImpl struct {
	tests store.Store
}

// NewResultHandler creates a new result handler instance
func NewResultHandler(tests store.Store) ResultHandler {
	return &ResultHandlerImpl{tests: tests}
}

// HandleSubmit grades a submission and stores the result
func (h *ResultHandlerImpl) HandleSubmit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.TestID == "" {
		return NewValidationError("testId")
	}
	if req.StudentID == "" {
		return NewValidationError("studentId")
	}
	if req.Answers == nil {
		req.Answers = map[string]string{}
	}

	ctx := c.Request().Context()
	test, err := h.tests.GetTest(ctx, req.TestID)
	if err != nil {
		return storeError("test", req.TestID, err)
	}

	result := scoring.Score(test, req.StudentID, req.Answers)
	if err := h.tests.PutResult(ctx, result); err != nil {
		return NewInternalError("failed to save result", err)
	}

	log.Infof("[Results] %s scored %d%% on %s (%d/%d)",
		result.StudentID, result.Score, result.TestID, result.CorrectAnswers, result.TotalQuestions)
	return c.JSON(http.StatusCreated, submitResponse{
		ResultID:       result.ResultID,
		Score:          result.Score,
		CorrectAnswers: result.CorrectAnswers,
		TotalQuestions: result.TotalQuestions,
	})
}

// HandleGetResult returns a scored result with per-question detail
func (h *ResultHandlerImpl) HandleGetResult(c echo.Context) error {
	id := c.Param("resultId")
	if id == "" {
		return NewValidationError("resultId")
	}
	result, err := h.tests.GetResult(c.Request().Context(), id)
	if err != nil {
		return storeError("result", id, err)
	}
	return c.JSON(http.StatusOK, result)
}

// HandleListResults returns the results table of one test
func (h *ResultHandlerImpl) HandleListResults(c echo.Context) error {
	id := c.Param("testId")
	if id == "" {
		return NewValidationError("testId")
	}

	ctx := c.Request().Context()
	if _, err := h.tests.GetTest(ctx, id); err != nil {
		return storeError("test", id, err)
	}
	results, err := h.tests.ListResults(ctx, id)
	if err != nil {
		return NewInternalError("failed to list results", err)
	}
	if results == nil {
		results = []models.Result{}
	}
	return c.JSON(http.StatusOK, results)
}

type submitRequest struct {
	TestID    string            `json:"testId"`
	StudentID string            `json:"studentId"`
	Answers   map[string]string `json:"answers"`
}

type submitResponse struct {
	ResultID       string `json:"resultId"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correctAnswers"`
	TotalQuestions int    `json:"totalQuestions"`
}
