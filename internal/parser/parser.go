package parser

import (
	"errors"
	"fmt"

	"github.com/sat-practice/backend/internal/models"
)

// Parser defines the interface for test-definition dialects.
type Parser interface {
	// Name returns the unique name of the parser.
	Name() string
	// Dialect returns the grammar this parser understands.
	Dialect() models.Dialect
	// CanParse reports whether the content looks like this dialect.
	CanParse(content string) bool
	// Parse compiles content. It never panics on malformed input; defects
	// become warnings on the returned document.
	Parse(content, testName string) Outcome
}

// OutcomeKind tags the result of one dialect attempt.
type OutcomeKind int

const (
	// Success carries a document.
	Success OutcomeKind = iota
	// NotApplicable means the input is not this dialect; try the next one.
	NotApplicable
	// Fatal stops the chain.
	Fatal
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case NotApplicable:
		return "not-applicable"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the tagged result of a single dialect parse.
type Outcome struct {
	Kind     OutcomeKind
	Document *models.ParsedDocument
	Reason   string
	Err      error
}

func succeeded(doc *models.ParsedDocument) Outcome {
	return Outcome{Kind: Success, Document: doc}
}

func notApplicable(reason string) Outcome {
	return Outcome{Kind: NotApplicable, Reason: reason}
}

func fatal(reason string, err error) Outcome {
	return Outcome{Kind: Fatal, Reason: reason, Err: err}
}

var (
	// ErrNoDialect is returned when no dialect recognised the input.
	ErrNoDialect = errors.New("no dialect recognised the test file")
	// ErrInvalidEncoding is returned for input that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("test file is not valid UTF-8")
)

// ParseError is the typed error surfaced by the dialect chain.
type ParseError struct {
	Dialect models.Dialect
	Reason  string
	Err     error
}

func (e *ParseError) Error() string {
	msg := "parse failed"
	if e.Dialect != "" {
		msg = fmt.Sprintf("%s parse failed", e.Dialect)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
