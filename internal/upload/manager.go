package upload

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/sat-practice/backend/internal/models"
)

// Status represents the attach job processing status.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Job attaches previously uploaded image files to a test in the background.
type Job struct {
	ID          string     `json:"id"`
	TestID      string     `json:"testId"`
	FileIDs     []string   `json:"fileIds"`
	Status      Status     `json:"status"`
	Progress    float64    `json:"progress"`
	Attached    []string   `json:"attached"`
	Unmatched   []string   `json:"unmatched"`
	Missing     []string   `json:"missing"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// AttachResult describes one stored image.
type AttachResult struct {
	TestID   string   `json:"testId"`
	Filename string   `json:"filename"`
	URL      string   `json:"url"`
	Matched  []string `json:"matched"`
	Missing  []string `json:"missing"`
}

// TestStore is the part of the test store the manager needs.
type TestStore interface {
	GetTest(ctx context.Context, testID string) (*models.Test, error)
	PutTest(ctx context.Context, test *models.Test) error
}

// FileStore is the part of the upload storage the manager needs.
type FileStore interface {
	Get(id string) (*models.FileInfo, error)
	GetFilePath(id string) (string, error)
}

// Manager stores question images and resolves them into published tests.
type Manager struct {
	jobs      map[string]*Job
	mu        sync.RWMutex
	attachMu  sync.Mutex
	imagesDir string
	urlPrefix string
	tests     TestStore
	files     FileStore
}

// NewManager creates a new image manager. Images live under imagesDir/<testId>/.
func NewManager(imagesDir string, tests TestStore, files FileStore) (*Manager, error) {
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("creating images directory: %w", err)
	}
	return &Manager{
		jobs:      make(map[string]*Job),
		imagesDir: imagesDir,
		urlPrefix: "/api/images",
		tests:     tests,
		files:     files,
	}, nil
}

// ImagePath returns the on-disk path of a stored image.
func (m *Manager) ImagePath(testID, name string) (string, error) {
	if !safeSegment(testID) || !safeSegment(name) {
		return "", fmt.Errorf("invalid image path: %s/%s", testID, name)
	}
	path := filepath.Join(m.imagesDir, testID, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("image not found: %s/%s", testID, name)
	}
	return path, nil
}

// ImageURL is the public URL an attached image is served from.
func (m *Manager) ImageURL(testID, name string) string {
	return fmt.Sprintf("%s/%s/%s", m.urlPrefix, url.PathEscape(testID), url.PathEscape(name))
}

// AttachImage stores one image for a test and points every question whose
// expected filename matches it at the new URL.
func (m *Manager) AttachImage(ctx context.Context, testID, name string, r io.Reader) (*AttachResult, error) {
	name = filepath.Base(name)
	if !safeSegment(testID) || !safeSegment(name) || name == string(filepath.Separator) {
		return nil, fmt.Errorf("invalid image name: %s", name)
	}

	m.attachMu.Lock()
	defer m.attachMu.Unlock()

	test, err := m.tests.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	if err := m.writeImage(testID, name, r); err != nil {
		return nil, err
	}

	res := &AttachResult{TestID: testID, Filename: name, URL: m.ImageURL(testID, name)}
	key := ImageKey(name)
	for _, q := range test.Questions {
		if q.ImageName != "" && ImageKey(q.ImageName) == key {
			res.Matched = append(res.Matched, q.Key)
		}
	}

	test.Questions, res.Missing = ResolveImages(test.Questions, map[string]string{name: res.URL})
	if err := m.tests.PutTest(ctx, test); err != nil {
		return nil, fmt.Errorf("saving test %s: %w", testID, err)
	}

	log.Infof("[Images %s] Stored %s, matched %d question(s), %d still missing",
		shortID(testID), name, len(res.Matched), len(res.Missing))
	return res, nil
}

func (m *Manager) writeImage(testID, name string, r io.Reader) error {
	dir := filepath.Join(m.imagesDir, testID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating image directory: %w", err)
	}

	path := filepath.Join(dir, name)
	tmp := path + ".uploading"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating image: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing image: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalizing image: %w", err)
	}
	return nil
}

// UploadedImages lists the image files stored for a test.
func (m *Manager) UploadedImages(testID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.imagesDir, filepath.Base(testID)))
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) != ".uploading" {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// RequirementStatus reports which of a test's image requirements are satisfied.
func (m *Manager) RequirementStatus(ctx context.Context, testID string) ([]RequirementStatus, error) {
	test, err := m.tests.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	names, err := m.UploadedImages(testID)
	if err != nil {
		return nil, err
	}
	return MatchImages(test.ImageRequirements, names), nil
}

// RemoveTestImages deletes every stored image of a test.
func (m *Manager) RemoveTestImages(testID string) error {
	return os.RemoveAll(filepath.Join(m.imagesDir, filepath.Base(testID)))
}

// StartJob begins attaching uploaded image files to a test asynchronously.
// The returned job is a snapshot; poll GetJob for progress.
func (m *Manager) StartJob(testID string, fileIDs []string) *Job {
	job := &Job{
		ID:        uuid.New().String(),
		TestID:    testID,
		FileIDs:   append([]string(nil), fileIDs...),
		Status:    StatusProcessing,
		Attached:  make([]string, 0, len(fileIDs)),
		Unmatched: make([]string, 0),
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	snapshot := snapshotJob(job)
	m.mu.Unlock()

	go m.processJob(job)

	return snapshot
}

// GetJob retrieves a snapshot of a job by ID.
func (m *Manager) GetJob(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	return snapshotJob(job), true
}

// snapshotJob copies job; callers hold m.mu.
func snapshotJob(job *Job) *Job {
	cp := *job
	cp.FileIDs = append([]string(nil), job.FileIDs...)
	cp.Attached = append([]string(nil), job.Attached...)
	cp.Unmatched = append([]string(nil), job.Unmatched...)
	cp.Missing = append([]string(nil), job.Missing...)
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

func (m *Manager) processJob(job *Job) {
	defer func() {
		if r := recover(); r != nil {
			m.markJobError(job, fmt.Sprintf("panic during attach: %v", r))
		}
	}()

	log.Infof("[ImageJob %s] Attaching %d file(s) to test %s", shortID(job.ID), len(job.FileIDs), job.TestID)
	ctx := context.Background()

	for i, fileID := range job.FileIDs {
		res, err := m.attachStoredFile(ctx, job.TestID, fileID)
		if err != nil {
			m.markJobError(job, fmt.Sprintf("attaching %s: %v", fileID, err))
			return
		}

		m.mu.Lock()
		if len(res.Matched) > 0 {
			job.Attached = append(job.Attached, res.Filename)
		} else {
			job.Unmatched = append(job.Unmatched, res.Filename)
		}
		job.Missing = res.Missing
		job.Progress = float64(i+1) / float64(len(job.FileIDs)) * 100
		m.mu.Unlock()
	}

	m.markJobComplete(job)
	log.Infof("[ImageJob %s] Complete: %d attached, %d unmatched", shortID(job.ID), len(job.Attached), len(job.Unmatched))
}

func (m *Manager) attachStoredFile(ctx context.Context, testID, fileID string) (*AttachResult, error) {
	info, err := m.files.Get(fileID)
	if err != nil {
		return nil, err
	}
	if info.Kind != models.FileKindImage {
		return nil, fmt.Errorf("file %s is not an image", info.Name)
	}
	path, err := m.files.GetFilePath(fileID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return m.AttachImage(ctx, testID, info.Name, f)
}

// markJobComplete marks job as complete (thread-safe).
func (m *Manager) markJobComplete(job *Job) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = StatusComplete
	job.Progress = 100
	now := time.Now()
	job.CompletedAt = &now
}

// markJobError marks job as failed (thread-safe).
func (m *Manager) markJobError(job *Job, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = StatusError
	job.Error = errMsg
	now := time.Now()
	job.CompletedAt = &now
	log.Errorf("[ImageJob %s] Error: %s", shortID(job.ID), errMsg)
}

// CleanupOldJobs removes finished jobs older than the specified duration.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, job := range m.jobs {
		if job.Status == StatusComplete || job.Status == StatusError {
			if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(m.jobs, id)
			}
		}
	}
}

func safeSegment(s string) bool {
	return s != "" && s != "." && s != ".." && s == filepath.Base(s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
