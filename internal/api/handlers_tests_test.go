package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/sat-practice/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func (env *testEnv) createTest(t *testing.T, req map[string]interface{}) models.Test {
	t.Helper()
	rec := env.doJSON(http.MethodPost, "/api/tests", req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var test models.Test
	decode(t, rec, &test)
	return test
}

func TestCreateTestFromContent(t *testing.T) {
	env := newTestEnv(t)
	test := env.createTest(t, map[string]interface{}{"content": sampleTest})

	assert.NotEmpty(t, test.TestID)
	assert.Equal(t, "June 2025 US 1", test.Title)
	require.Len(t, test.Questions, 2)
	assert.Equal(t, "B", test.Questions[0].Answer)
	require.Len(t, test.ImageRequirements, 1)
	assert.Equal(t, sampleImage, test.ImageRequirements[0].Filename)

	stored, err := env.tests.GetTest(context.Background(), test.TestID)
	require.NoError(t, err)
	assert.Equal(t, test.Title, stored.Title)
}

func TestCreateTestFromSession(t *testing.T) {
	env := newTestEnv(t)
	id := env.startParse(t, sampleTest, "")

	test := env.createTest(t, map[string]interface{}{"sessionId": id, "title": "Practice A"})
	assert.Equal(t, "Practice A", test.Title)
	assert.Len(t, test.Questions, 2)
}

func TestCreateTestRejectsWarnings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(http.MethodPost, "/api/tests", map[string]interface{}{"content": defectiveTest})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var apiErr APIError
	decode(t, rec, &apiErr)
	assert.Equal(t, "UNPROCESSABLE", apiErr.Code)
	require.Len(t, apiErr.Warnings, 1)
	assert.Equal(t, "question has no correct answer", apiErr.Warnings[0].Reason)

	test := env.createTest(t, map[string]interface{}{"content": defectiveTest, "allowWarnings": true})
	assert.Len(t, test.Warnings, 1)
}

func TestCreateTestValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]interface{}
		code int
	}{
		{"empty", map[string]interface{}{}, http.StatusBadRequest},
		{"both sources", map[string]interface{}{"content": sampleTest, "sessionId": "x"}, http.StatusBadRequest},
		{"unknown session", map[string]interface{}{"sessionId": "x"}, http.StatusNotFound},
		{"unparseable", map[string]interface{}{"content": "hello"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON(http.MethodPost, "/api/tests", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateTestStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.tests.PutErr = errors.New("disk full")

	rec := env.doJSON(http.MethodPost, "/api/tests", map[string]interface{}{"content": sampleTest})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "disk full")
}

func TestGetTestStripsAnswers(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTest(t, map[string]interface{}{"content": sampleTest})

	rec := env.do(http.MethodGet, "/api/tests/"+created.TestID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"answer"`)
	assert.NotContains(t, rec.Body.String(), `"imageName"`)

	var view models.Test
	decode(t, rec, &view)
	require.Len(t, view.Questions, 2)
	assert.Equal(t, "s2m1-q1", view.Questions[1].Key)
}

func TestGetStructuredTest(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTest(t, map[string]interface{}{"content": sampleTest})

	rec := env.do(http.MethodGet, "/api/tests/"+created.TestID+"/structured", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var exam models.StructuredExam
	decode(t, rec, &exam)
	assert.Equal(t, "June 2025 US 1", exam.Title)
	assert.Equal(t, 2, exam.QuestionCount())
	assert.Equal(t, 32*60, exam.Sections[0].Modules[0].TimeLimitSec)
	for _, q := range exam.Flatten() {
		assert.Empty(t, q.Answer)
	}
}

func TestGetTestMsgpack(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTest(t, map[string]interface{}{"content": sampleTest})

	rec := env.do(http.MethodGet, "/api/tests/"+created.TestID+"/msgpack", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get("Content-Type"))

	dec := msgpack.NewDecoder(bytes.NewReader(rec.Body.Bytes()))
	dec.SetCustomStructTag("json")
	var view models.Test
	require.NoError(t, dec.Decode(&view))
	assert.Equal(t, created.TestID, view.TestID)
	require.Len(t, view.Questions, 2)
	assert.Empty(t, view.Questions[0].Answer)
}

func TestListAndDeleteTests(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTest(t, map[string]interface{}{"content": sampleTest})

	rec := env.do(http.MethodGet, "/api/tests", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.TestSummary
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].QuestionCount)
	assert.Equal(t, 1, list[0].ImagesRequired)

	rec = env.do(http.MethodDelete, "/api/tests/"+created.TestID, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodGet, "/api/tests/"+created.TestID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodDelete, "/api/tests/"+created.TestID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
