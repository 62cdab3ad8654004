package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sat-practice/backend/internal/models"
)

// Registry holds the dialects in fallback order.
type Registry struct {
	parsers []Parser
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry returns the standard chain: marker first, legacy as fallback.
func NewRegistry() *Registry {
	return &Registry{
		parsers: []Parser{
			NewMarkerParser(),
			NewLegacyParser(),
		},
	}
}

// GetGlobalRegistry returns the singleton registry.
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// Register appends a dialect to the end of the chain.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// Parsers returns the dialects in chain order.
func (r *Registry) Parsers() []Parser {
	out := make([]Parser, len(r.parsers))
	copy(out, r.parsers)
	return out
}

// FindParser returns the first dialect whose CanParse accepts content.
func (r *Registry) FindParser(content string) (Parser, error) {
	for _, p := range r.parsers {
		if p.CanParse(content) {
			return p, nil
		}
	}
	return nil, ErrNoDialect
}

// GetParserByName returns a parser by its name or dialect, case-insensitively.
func (r *Registry) GetParserByName(name string) (Parser, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range r.parsers {
		if strings.ToLower(p.Name()) == name || string(p.Dialect()) == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("parser not found: %s", name)
}

// Chain runs each dialect in order and returns every outcome it produced.
// It stops at the first Success or Fatal.
func (r *Registry) Chain(content, testName string) []Outcome {
	if !utf8.ValidString(content) {
		return []Outcome{fatal("input rejected", ErrInvalidEncoding)}
	}

	outcomes := make([]Outcome, 0, len(r.parsers))
	for _, p := range r.parsers {
		o := runDialect(p, content, testName)
		outcomes = append(outcomes, o)
		if o.Kind != NotApplicable {
			break
		}
	}
	return outcomes
}

// Parse returns the first successful document in the chain.
func (r *Registry) Parse(content, testName string) (*models.ParsedDocument, error) {
	outcomes := r.Chain(content, testName)
	reasons := make([]string, 0, len(outcomes))

	for i, o := range outcomes {
		switch o.Kind {
		case Success:
			return o.Document, nil
		case Fatal:
			pe := &ParseError{Reason: o.Reason, Err: o.Err}
			if i < len(r.parsers) && !errors.Is(o.Err, ErrInvalidEncoding) {
				pe.Dialect = r.parsers[i].Dialect()
			}
			return nil, pe
		default:
			reasons = append(reasons, fmt.Sprintf("%s: %s", r.parsers[i].Dialect(), o.Reason))
		}
	}
	return nil, &ParseError{Reason: strings.Join(reasons, "; "), Err: ErrNoDialect}
}

// runDialect converts a panic inside a dialect into a Fatal outcome.
func runDialect(p Parser, content, testName string) (o Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			o = fatal("parser panicked", fmt.Errorf("%v", rec))
		}
	}()
	return p.Parse(content, testName)
}

// ParseTestFile compiles content with the global registry.
func ParseTestFile(content, testName string) (*models.ParsedDocument, error) {
	return globalRegistry.Parse(content, testName)
}
