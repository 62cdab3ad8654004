package session

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/sat-practice/backend/internal/models"
	"github.com/sat-practice/backend/internal/parser"
)

// MaxSessions limits retained sessions to bound memory
const MaxSessions = 50

// SessionMaxAge is how long to keep completed sessions before cleanup
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is how long to keep sessions that are actively being used
const SessionKeepAliveWindow = 5 * time.Minute

// pollInterval is how often Wait samples session progress.
const pollInterval = 25 * time.Millisecond

// Manager runs test-file compilations in the background.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	registry *parser.Registry
}

// SessionState holds the session metadata and the compiled document.
type SessionState struct {
	Session      *models.ParseSession
	Document     *models.ParsedDocument
	CreatedAt    time.Time
	LastAccessed time.Time // Last time the session was accessed (for keep-alive)
}

// NewManager creates a session manager on the global dialect registry.
func NewManager() *Manager {
	return NewManagerWithRegistry(parser.GetGlobalRegistry())
}

// NewManagerWithRegistry creates a session manager with a specific registry.
func NewManagerWithRegistry(registry *parser.Registry) *Manager {
	return &Manager{
		sessions: make(map[string]*SessionState),
		registry: registry,
	}
}

// StartSession begins compiling an uploaded file.
func (m *Manager) StartSession(fileID, filePath, title string) (*models.ParseSession, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}
	sess := m.newSession(fileID, title)
	go m.runParse(sess.ID, title, func() (string, error) {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", filePath, err)
		}
		return string(data), nil
	})
	return sess, nil
}

// StartContentSession begins compiling text that was submitted directly.
func (m *Manager) StartContentSession(title, content string) (*models.ParseSession, error) {
	sess := m.newSession("", title)
	go m.runParse(sess.ID, title, func() (string, error) { return content, nil })
	return sess, nil
}

func (m *Manager) newSession(fileID, title string) *models.ParseSession {
	// Clean up old sessions if at limit
	m.cleanupOldSessionsIfNeeded()

	sessionID := uuid.New().String()
	sess := models.NewParseSession(sessionID, fileID, title)

	now := time.Now()
	m.mu.Lock()
	m.sessions[sessionID] = &SessionState{Session: sess, CreatedAt: now, LastAccessed: now}
	m.mu.Unlock()

	cp := *sess
	return &cp
}

func (m *Manager) runParse(sessionID, title string, load func() (string, error)) {
	// Recover from panics to prevent backend crash
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[Parse %s] PANIC recovered: %v", shortID(sessionID), r)
			m.updateSessionError(sessionID, fmt.Sprintf("parse panicked: %v", r))
		}
	}()

	start := time.Now()
	m.updateProgress(sessionID, models.SessionStatusParsing, 10)

	content, err := load()
	if err != nil {
		log.Errorf("[Parse %s] ERROR: %v", shortID(sessionID), err)
		m.updateSessionError(sessionID, err.Error())
		return
	}
	log.Infof("[Parse %s] Compiling %d bytes", shortID(sessionID), len(content))
	m.updateProgress(sessionID, models.SessionStatusParsing, 40)

	doc, err := m.registry.Parse(content, title)
	if err != nil {
		log.Warnf("[Parse %s] ERROR: parse failed: %v", shortID(sessionID), err)
		m.updateSessionError(sessionID, err.Error())
		return
	}

	elapsed := time.Since(start).Milliseconds()
	log.Infof("[Parse %s] Parse complete: dialect=%s sections=%d questions=%d images=%d warnings=%d (%dms)",
		shortID(sessionID), doc.Dialect, len(doc.Sections), doc.TotalQuestions,
		len(doc.ImageRequirements), len(doc.Warnings), elapsed)

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}

	state.Document = doc
	state.Session.Status = models.SessionStatusComplete
	state.Session.Progress = 100
	state.Session.Dialect = doc.Dialect
	state.Session.SectionCount = len(doc.Sections)
	state.Session.QuestionCount = doc.TotalQuestions
	state.Session.ImagesRequired = len(doc.ImageRequirements)
	state.Session.ProcessingTimeMs = elapsed
	state.Session.Warnings = append(state.Session.Warnings[:0], doc.Warnings...)
	if state.Session.Title == "" {
		state.Session.Title = doc.TestName
	}
}

func (m *Manager) updateProgress(sessionID string, status models.SessionStatus, progress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.sessions[sessionID]; ok {
		state.Session.Status = status
		state.Session.Progress = progress
	}
}

func (m *Manager) updateSessionError(sessionID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}

	state.Session.Status = models.SessionStatusError
	state.Session.Error = reason
}

// cleanupOldSessionsIfNeeded removes the oldest finished sessions if at capacity
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < MaxSessions {
		return
	}

	var finished []string
	for id, state := range m.sessions {
		if isFinished(state.Session.Status) {
			finished = append(finished, id)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return m.sessions[finished[i]].LastAccessed.Before(m.sessions[finished[j]].LastAccessed)
	})

	toFree := len(m.sessions) - MaxSessions + 1
	for i := 0; i < toFree && i < len(finished); i++ {
		delete(m.sessions, finished[i])
		log.Debugf("[Manager] Cleaned up old session %s", shortID(finished[i]))
	}
}

// CleanupOldSessions removes finished sessions not accessed within maxAge,
// but keeps sessions that have been accessed within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-SessionKeepAliveWindow)

	removed := 0
	for id, state := range m.sessions {
		if !isFinished(state.Session.Status) {
			continue
		}
		if state.LastAccessed.After(keepAliveCutoff) && maxAge > 0 {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			removed++
			log.Debugf("[Manager] Cleaned up aged session %s (last accessed: %s ago)",
				shortID(id), now.Sub(state.LastAccessed).Round(time.Second))
		}
	}
	return removed
}

// GetSession returns a snapshot of a session by ID.
func (m *Manager) GetSession(id string) (*models.ParseSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	cp := *state.Session
	cp.Warnings = append([]models.ParseWarning(nil), state.Session.Warnings...)
	return &cp, true
}

// GetDocument returns the compiled document of a completed session.
func (m *Manager) GetDocument(id string) (*models.ParsedDocument, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok || state.Document == nil {
		return nil, false
	}
	return state.Document, true
}

// TouchSession updates the LastAccessed timestamp for a session.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// Wait blocks until the session finishes or ctx is done. onProgress, if set,
// is called whenever the session's progress changes.
func (m *Manager) Wait(ctx context.Context, id string, onProgress func(models.ParseSession)) (*models.ParseSession, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	lastProgress := -1.0
	for {
		sess, ok := m.GetSession(id)
		if !ok {
			return nil, fmt.Errorf("session not found: %s", id)
		}
		if sess.Progress != lastProgress && onProgress != nil && !isFinished(sess.Status) {
			onProgress(*sess)
		}
		lastProgress = sess.Progress
		if isFinished(sess.Status) {
			return sess, nil
		}

		select {
		case <-ctx.Done():
			return sess, ctx.Err()
		case <-ticker.C:
		}
	}
}

func isFinished(status models.SessionStatus) bool {
	return status == models.SessionStatusComplete || status == models.SessionStatusError
}

// shortID safely truncates an ID for logging
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
