package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sat-practice/backend/internal/models"
)

var (
	legacyHeaderRegex = regexp.MustCompile(`^\[Q(\d+)\]$`)
	legacyOptionRegex = regexp.MustCompile(`^[A-D]\)`)
)

// LegacyParser handles the terse bracket dialect:
//
//	[Q1]
//	IMG: q1.png
//	What is x?
//	A) 1
//	B) 2
//	ANS: A
type LegacyParser struct{}

func NewLegacyParser() *LegacyParser {
	return &LegacyParser{}
}

func (p *LegacyParser) Name() string { return "Legacy Bracket" }

func (p *LegacyParser) Dialect() models.Dialect { return models.DialectLegacy }

// CanParse reports whether any line opens a bracket question.
func (p *LegacyParser) CanParse(content string) bool {
	for _, l := range splitLines(content) {
		if isLegacyHeader(l.text) {
			return true
		}
	}
	return false
}

func isLegacyHeader(line string) bool {
	return strings.HasPrefix(line, "[Q") && strings.HasSuffix(line, "]")
}

// Parse reads every [Qn] block into a single unnamed section.
func (p *LegacyParser) Parse(content, testName string) Outcome {
	var (
		questions []*draftQuestion
		current   *draftQuestion
	)

	for _, l := range splitLines(content) {
		line := l.text
		switch {
		case isLegacyHeader(line):
			current = newDraft(l.num, line)
			if m := legacyHeaderRegex.FindStringSubmatch(line); m != nil {
				if id, err := strconv.Atoi(m[1]); err == nil {
					current.q.ID = id
				}
			}
			questions = append(questions, current)

		case current == nil:
			// Preamble before the first question.

		case strings.HasPrefix(line, "IMG:"):
			current.imageName = strings.TrimSpace(strings.TrimPrefix(line, "IMG:"))

		case strings.HasPrefix(line, "ANS:"):
			current.q.Answer = strings.TrimSpace(strings.TrimPrefix(line, "ANS:"))

		case legacyOptionRegex.MatchString(line):
			current.q.Options = append(current.q.Options, strings.TrimSpace(line[2:]))

		case !strings.HasPrefix(line, "[") && len(current.q.Options) == 0:
			if current.q.Text != "" {
				current.q.Text += " "
			}
			current.q.Text += line
		}
	}

	if len(questions) == 0 {
		return notApplicable("no [Qn] question headers found")
	}

	for _, d := range questions {
		if len(d.q.Options) == 0 {
			d.q.AnswerType = models.AnswerTypeStudentProduced
		}
	}

	if testName == "" {
		testName = DefaultTestName
	}
	doc := assembleDocument(testName, models.DialectLegacy, []draftSection{{questions: questions}}, nil)
	return succeeded(doc)
}
