package upload

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sat-practice/backend/internal/models"
	"github.com/sat-practice/backend/internal/store"
	"github.com/sat-practice/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *testutil.MockExamStore, *testutil.MockStorage) {
	t.Helper()
	tests := testutil.NewMockExamStore()
	files := testutil.NewMockStorage(t.TempDir())
	m, err := NewManager(t.TempDir(), tests, files)
	require.NoError(t, err)

	require.NoError(t, tests.PutTest(context.Background(), &models.Test{
		TestID: "t1",
		Title:  "June",
		Questions: []models.FlatQuestion{
			{Key: "s1m1-q1", ID: 1, ImageName: "june_s1m1_q1.png", RequiresImage: true},
			{Key: "s1m1-q2", ID: 2},
			{Key: "s2m1-q1", ID: 1, ImageName: "june_s2m1_q1.png", RequiresImage: true},
		},
		ImageRequirements: []models.ImageRequirement{
			{TestName: "June", QuestionID: 1, Filename: "june_s1m1_q1.png"},
			{TestName: "June", QuestionID: 1, Filename: "june_s2m1_q1.png"},
		},
	}))
	return m, tests, files
}

func TestManager_AttachImage(t *testing.T) {
	m, tests, _ := newTestManager(t)
	ctx := context.Background()

	res, err := m.AttachImage(ctx, "t1", "June_S1M1_Q1.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, []string{"s1m1-q1"}, res.Matched)
	assert.Equal(t, []string{"june_s2m1_q1.png"}, res.Missing)
	assert.Equal(t, "/api/images/t1/June_S1M1_Q1.png", res.URL)

	test, err := tests.GetTest(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, res.URL, test.Questions[0].ImageURL)
	assert.Empty(t, test.Questions[0].ImageName)
	assert.Equal(t, "june_s2m1_q1.png", test.Questions[2].ImageName)

	path, err := m.ImagePath("t1", "June_S1M1_Q1.png")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	status, err := m.RequirementStatus(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.True(t, status[0].Uploaded)
	assert.False(t, status[1].Uploaded)
}

func TestManager_AttachImage_UnknownTest(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.AttachImage(context.Background(), "nope", "a.png", strings.NewReader("x"))
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestManager_ImagePathRejectsTraversal(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.ImagePath("t1", "../secret.png")
	assert.Error(t, err)
	_, err = m.ImagePath("..", "x.png")
	assert.Error(t, err)
}

func TestManager_StartJob(t *testing.T) {
	m, tests, files := newTestManager(t)
	files.AddFile("f1", "june_s1m1_q1.png", []byte("one"))
	files.AddFile("f2", "june_s2m1_q1.jpg", []byte("two"))
	files.AddFile("f3", "extra.png", []byte("three"))

	job := m.StartJob("t1", []string{"f1", "f2", "f3"})

	require.Eventually(t, func() bool {
		j, ok := m.GetJob(job.ID)
		return ok && j.Status != StatusProcessing
	}, 2*time.Second, 10*time.Millisecond)

	j, _ := m.GetJob(job.ID)
	assert.Equal(t, StatusComplete, j.Status)
	assert.Equal(t, 100.0, j.Progress)
	assert.Equal(t, []string{"june_s1m1_q1.png", "june_s2m1_q1.jpg"}, j.Attached)
	assert.Equal(t, []string{"extra.png"}, j.Unmatched)
	assert.Empty(t, j.Missing)

	test, _ := tests.GetTest(context.Background(), "t1")
	for _, q := range test.Questions {
		assert.Empty(t, q.ImageName, q.Key)
	}

	names, err := m.UploadedImages("t1")
	require.NoError(t, err)
	assert.Len(t, names, 3)
}

func TestManager_StartJobRejectsNonImage(t *testing.T) {
	m, _, files := newTestManager(t)
	files.AddFile("src", "test.txt", []byte("[Q1]"))

	job := m.StartJob("t1", []string{"src"})
	require.Eventually(t, func() bool {
		j, _ := m.GetJob(job.ID)
		return j.Status == StatusError
	}, 2*time.Second, 10*time.Millisecond)

	j, _ := m.GetJob(job.ID)
	assert.Contains(t, j.Error, "not an image")
}

func TestManager_StartJobReturnsSnapshot(t *testing.T) {
	m, _, _ := newTestManager(t)
	ids := []string{"missing-file"}

	job := m.StartJob("t1", ids)
	ids[0] = "changed"
	assert.Equal(t, StatusProcessing, job.Status)
	assert.Equal(t, []string{"missing-file"}, job.FileIDs)

	require.Eventually(t, func() bool {
		j, _ := m.GetJob(job.ID)
		return j.Status == StatusError
	}, 2*time.Second, 10*time.Millisecond)

	// the caller's copy is not touched by the worker
	assert.Equal(t, StatusProcessing, job.Status)
	assert.Empty(t, job.Error)
	assert.Nil(t, job.CompletedAt)

	j, _ := m.GetJob(job.ID)
	assert.Contains(t, j.Error, "missing-file")
	assert.NotNil(t, j.CompletedAt)
}

func TestManager_CleanupOldJobs(t *testing.T) {
	m, _, _ := newTestManager(t)
	job := m.StartJob("t1", nil)
	require.Eventually(t, func() bool {
		j, _ := m.GetJob(job.ID)
		return j.Status == StatusComplete
	}, 2*time.Second, 10*time.Millisecond)

	m.CleanupOldJobs(time.Hour)
	_, ok := m.GetJob(job.ID)
	assert.True(t, ok)

	m.CleanupOldJobs(-time.Second)
	_, ok = m.GetJob(job.ID)
	assert.False(t, ok)
}

func TestManager_RemoveTestImages(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.AttachImage(context.Background(), "t1", "june_s1m1_q1.png", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, m.RemoveTestImages("t1"))
	names, err := m.UploadedImages("t1")
	require.NoError(t, err)
	assert.Empty(t, names)
}
