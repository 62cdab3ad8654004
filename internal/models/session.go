package models

// SessionStatus represents the status of a parse session.
type SessionStatus string

const (
	SessionStatusPending  SessionStatus = "pending"
	SessionStatusParsing  SessionStatus = "parsing"
	SessionStatusComplete SessionStatus = "complete"
	SessionStatusError    SessionStatus = "error"
)

// ParseSession represents the compilation of one uploaded test file.
type ParseSession struct {
	ID               string         `json:"id"`
	FileID           string         `json:"fileId"`
	Title            string         `json:"title,omitempty"`
	Status           SessionStatus  `json:"status"`
	Progress         float64        `json:"progress"` // 0-100
	Dialect          Dialect        `json:"dialect,omitempty"`
	SectionCount     int            `json:"sectionCount,omitempty"`
	QuestionCount    int            `json:"questionCount,omitempty"`
	ImagesRequired   int            `json:"imagesRequired,omitempty"`
	ProcessingTimeMs int64          `json:"processingTimeMs,omitempty"`
	Error            string         `json:"error,omitempty"`
	Warnings         []ParseWarning `json:"warnings,omitempty"`
}

// NewParseSession creates a new ParseSession in pending status.
func NewParseSession(id, fileID, title string) *ParseSession {
	return &ParseSession{
		ID:       id,
		FileID:   fileID,
		Title:    title,
		Status:   SessionStatusPending,
		Progress: 0,
		Warnings: make([]ParseWarning, 0),
	}
}
