// handlers_images.go - Question image handlers
package api

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sat-practice/backend/internal/models"
	"github.com/sat-practice/backend/internal/parser"
	"github.com/sat-practice/backend/internal/storage"
	"github.com/sat-practice/backend/internal/store"
	"github.com/sat-practice/backend/internal/upload"
)

// ImageHandlerImpl implements the ImageHandler interface
type ImageHandlerImpl struct {
	tests  store.Store
	images ImageManager
}

// NewImageHandler creates a new image handler instance
func NewImageHandler(tests store.Store, images ImageManager) ImageHandler {
	return &ImageHandlerImpl{
		tests:  tests,
		images: images,
	}
}

// HandleTestImageRequirements lists a test's image requirements with their upload status
func (h *ImageHandlerImpl) HandleTestImageRequirements(c echo.Context) error {
	id := c.Param("testId")
	if id == "" {
		return NewValidationError("testId")
	}

	statuses, err := h.images.RequirementStatus(c.Request().Context(), id)
	if err != nil {
		return storeError("test", id, err)
	}

	missing := 0
	for _, s := range statuses {
		if !s.Uploaded {
			missing++
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"testId":       id,
		"requirements": statuses,
		"total":        len(statuses),
		"missing":      missing,
	})
}

// HandleAllImageRequirements lists the requirements of every test, grouped by test
func (h *ImageHandlerImpl) HandleAllImageRequirements(c echo.Context) error {
	ctx := c.Request().Context()
	summaries, err := h.tests.ListTests(ctx)
	if err != nil {
		return NewInternalError("failed to list tests", err)
	}

	var all []models.ImageRequirement
	for _, s := range summaries {
		test, err := h.tests.GetTest(ctx, s.TestID)
		if err != nil {
			return storeError("test", s.TestID, err)
		}
		all = append(all, test.ImageRequirements...)
	}

	groups := parser.GroupRequirementsByTest(all)
	if groups == nil {
		groups = []models.RequirementGroup{}
	}
	return c.JSON(http.StatusOK, groups)
}

// HandleUploadTestImages stores multipart images for a test. Every part named
// "file" or "files" is attached.
func (h *ImageHandlerImpl) HandleUploadTestImages(c echo.Context) error {
	id := c.Param("testId")
	if id == "" {
		return NewValidationError("testId")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}
	var files []*multipart.FileHeader
	files = append(files, form.File["files"]...)
	files = append(files, form.File["file"]...)
	if len(files) == 0 {
		return NewBadRequestError("no files provided", nil)
	}

	results := make([]*upload.AttachResult, 0, len(files))
	for _, fh := range files {
		if !storage.IsImageName(fh.Filename) {
			return NewBadRequestError(fmt.Sprintf("%s is not an image", fh.Filename), nil)
		}
		res, err := h.attach(c, id, fh)
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"testId":  id,
		"results": results,
		"missing": results[len(results)-1].Missing,
	})
}

func (h *ImageHandlerImpl) attach(c echo.Context, testID string, fh *multipart.FileHeader) (*upload.AttachResult, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	res, err := h.images.AttachImage(c.Request().Context(), testID, fh.Filename, src)
	if err != nil {
		if apiErr := storeError("test", testID, err); apiErr.Status == http.StatusNotFound {
			return nil, apiErr
		}
		return nil, NewBadRequestError(fmt.Sprintf("failed to attach %s", fh.Filename), err)
	}
	return res, nil
}

// HandleStartAttachJob attaches previously uploaded image files in the background
func (h *ImageHandlerImpl) HandleStartAttachJob(c echo.Context) error {
	id := c.Param("testId")
	if id == "" {
		return NewValidationError("testId")
	}

	var req attachJobRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if len(req.FileIDs) == 0 {
		return NewValidationError("fileIds")
	}
	if _, err := h.tests.GetTest(c.Request().Context(), id); err != nil {
		return storeError("test", id, err)
	}

	job := h.images.StartJob(id, req.FileIDs)
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"jobId":  job.ID,
		"status": job.Status,
	})
}

// HandleAttachJobStatus returns the state of an attach job
func (h *ImageHandlerImpl) HandleAttachJobStatus(c echo.Context) error {
	id := c.Param("jobId")
	job, ok := h.images.GetJob(id)
	if !ok {
		return NewNotFoundError("job", id)
	}
	return c.JSON(http.StatusOK, job)
}

// HandleServeImage serves a stored question image
func (h *ImageHandlerImpl) HandleServeImage(c echo.Context) error {
	testID, name := c.Param("testId"), c.Param("name")
	path, err := h.images.ImagePath(testID, name)
	if err != nil {
		return NewNotFoundError("image", name)
	}
	return c.File(path)
}

type attachJobRequest struct {
	FileIDs []string `json:"fileIds"`
}
