package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sat-practice/backend/internal/models"
)

// Marker vocabulary. Lines are trimmed before matching; value markers are
// matched by prefix, bare markers by equality.
const (
	markerTestName      = "TEST_NAME:::"
	markerSection       = "QUESTION_SECTION:::"
	markerStart         = "QUESTION_START"
	markerNumber        = "QUESTION_NUMBER:::"
	markerPassage       = "PASSAGE:::"
	markerText          = "QUESTION_TEXT:::"
	markerOptionsStart  = "OPTIONS_START"
	markerOption        = "OPTION:::"
	markerCorrectAnswer = "CORRECT_ANSWER:::"
	markerNote          = "NOTE:::"
	markerEnd           = "QUESTION_END"
)

// MarkerParser handles the verbose colon-marker dialect.
type MarkerParser struct{}

func NewMarkerParser() *MarkerParser {
	return &MarkerParser{}
}

func (p *MarkerParser) Name() string { return "Marker" }

func (p *MarkerParser) Dialect() models.Dialect { return models.DialectMarker }

// CanParse reports whether the content declares at least one section.
func (p *MarkerParser) CanParse(content string) bool {
	for _, l := range splitLines(content) {
		if strings.HasPrefix(l.text, markerSection) {
			return true
		}
	}
	return false
}

// markerState is the accumulator for one Parse call.
type markerState struct {
	testName string
	sections []draftSection
	section  *draftSection
	question *draftQuestion
	warnings []models.ParseWarning
}

func (s *markerState) warn(line sourceLine, reason string) {
	sec := ""
	if s.section != nil {
		sec = s.section.name
	}
	qid := 0
	if s.question != nil {
		qid = s.question.q.ID
	}
	s.warnings = append(s.warnings, models.ParseWarning{
		Line:       line.num,
		Section:    sec,
		QuestionID: qid,
		Content:    line.text,
		Reason:     reason,
	})
}

// closeQuestion commits the open question to the open section.
func (s *markerState) closeQuestion() {
	if s.question == nil {
		return
	}
	if s.section == nil {
		s.warnings = append(s.warnings, models.ParseWarning{
			Line:       s.question.line,
			QuestionID: s.question.q.ID,
			Content:    s.question.header,
			Reason:     "question appears before any QUESTION_SECTION and was dropped",
		})
	} else {
		s.section.questions = append(s.section.questions, s.question)
	}
	s.question = nil
}

func (s *markerState) closeSection() {
	s.closeQuestion()
	if s.section != nil {
		s.sections = append(s.sections, *s.section)
		s.section = nil
	}
}

func value(line, marker string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, marker))
}

func (s *markerState) step(l sourceLine) {
	line := l.text
	q := s.question

	switch {
	case strings.HasPrefix(line, markerTestName):
		if s.testName == "" {
			s.testName = value(line, markerTestName)
		}

	case strings.HasPrefix(line, markerSection):
		s.closeSection()
		s.section = &draftSection{name: value(line, markerSection)}

	case line == markerStart:
		s.closeQuestion()
		s.question = newDraft(l.num, line)

	case line == markerEnd:
		// Questions are committed at the next boundary.

	case q == nil:
		// Outside a question nothing else carries meaning.

	case strings.HasPrefix(line, markerNumber):
		raw := value(line, markerNumber)
		id, err := leadingInt(raw)
		if err != nil {
			s.warn(l, fmt.Sprintf("invalid question number %q", raw))
			return
		}
		q.q.ID = id
		q.header = line

	case strings.HasPrefix(line, markerPassage):
		q.q.Passage = value(line, markerPassage)

	case strings.HasPrefix(line, markerText):
		q.q.Text = NormalizeFormula(value(line, markerText))

	case line == markerOptionsStart:
		q.parsingOptions = true

	case strings.HasPrefix(line, markerOption):
		if !q.parsingOptions {
			s.warn(l, "OPTION outside OPTIONS_START was ignored")
			return
		}
		q.q.Options = append(q.q.Options, NormalizeFormula(value(line, markerOption)))

	case strings.HasPrefix(line, markerCorrectAnswer):
		q.q.Answer = value(line, markerCorrectAnswer)

	case strings.HasPrefix(line, markerNote):
		interpretNote(&q.q, value(line, markerNote))

	case !q.parsingOptions && q.q.Text != "":
		q.q.Text += " " + NormalizeFormula(line)
	}
}

// leadingInt parses the leading decimal digits of s, so "12." and "12)" read as 12.
func leadingInt(s string) (int, error) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("no digits in %q", s)
	}
	return strconv.Atoi(s[:end])
}

// Parse walks the marker state machine over content.
func (p *MarkerParser) Parse(content, testName string) Outcome {
	st := &markerState{testName: testName}
	for _, l := range splitLines(content) {
		st.step(l)
	}
	st.closeSection()

	if len(st.sections) == 0 {
		return notApplicable("no QUESTION_SECTION markers found")
	}
	if st.testName == "" {
		st.testName = DefaultTestName
	}
	return succeeded(assembleDocument(st.testName, models.DialectMarker, st.sections, st.warnings))
}
