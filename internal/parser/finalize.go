package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sat-practice/backend/internal/models"
)

// DefaultTestName is used when neither the caller nor the file names the test.
const DefaultTestName = "Unknown Test"

var (
	sectionHeaderRegex = regexp.MustCompile(`(?i)section\s*(\d+)\s*,\s*module\s*(\d+)`)
	questionKeyRegex   = regexp.MustCompile(`^s(\d+)m(\d+)-q-?\d+$`)
)

// QuestionContext carries the position data a bare Question does not have.
// It is resolved by the caller for each section and handed to finalization.
type QuestionContext struct {
	TestName       string
	Section        string
	SectionOrdinal int
	ModuleOrdinal  int
}

// ResolveContext builds the context for the section at index (0-based).
// Ordinals are read from a "Section N, Module M" header; other names fall back
// to the section's position with module 1.
func ResolveContext(testName string, index int, sectionName string) QuestionContext {
	ctx := QuestionContext{
		TestName:       testName,
		Section:        sectionName,
		SectionOrdinal: index + 1,
		ModuleOrdinal:  1,
	}
	if s, m, ok := SectionOrdinals(sectionName); ok {
		ctx.SectionOrdinal = s
		ctx.ModuleOrdinal = m
	}
	return ctx
}

// SectionOrdinals extracts N and M from names like "Section 2, Module 1: Math".
func SectionOrdinals(name string) (section, module int, ok bool) {
	m := sectionHeaderRegex.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	section, errS := strconv.Atoi(m[1])
	module, errM := strconv.Atoi(m[2])
	if errS != nil || errM != nil {
		return 0, 0, false
	}
	return section, module, true
}

// SectionSubject returns the part of a section name after the first colon,
// or the whole name when there is none.
func SectionSubject(name string) string {
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		if subject := strings.TrimSpace(name[idx+1:]); subject != "" {
			return subject
		}
	}
	return strings.TrimSpace(name)
}

// ImageFilename formats the canonical image name, e.g. "june_2025_us_1_s2m1_q11.png".
func ImageFilename(ctx QuestionContext, questionID int) string {
	return fmt.Sprintf("%s_s%dm%d_q%d.png", Slugify(ctx.TestName), ctx.SectionOrdinal, ctx.ModuleOrdinal, questionID)
}

// QuestionKey is the section-scoped key used to address a question in answers.
func QuestionKey(ctx QuestionContext, questionID int) string {
	return fmt.Sprintf("s%dm%d-q%d", ctx.SectionOrdinal, ctx.ModuleOrdinal, questionID)
}

// KeyOrdinals reads the section and module ordinals back out of a QuestionKey.
func KeyOrdinals(key string) (section, module int, ok bool) {
	m := questionKeyRegex.FindStringSubmatch(key)
	if m == nil {
		return 0, 0, false
	}
	section, errS := strconv.Atoi(m[1])
	module, errM := strconv.Atoi(m[2])
	if errS != nil || errM != nil {
		return 0, 0, false
	}
	return section, module, true
}

// Slugify lowercases name and joins alphanumeric runs with underscores.
func Slugify(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	if b.Len() == 0 {
		return "test"
	}
	return b.String()
}

// sourceLine is a trimmed, non-blank input line with its 1-based line number.
type sourceLine struct {
	num  int
	text string
}

func splitLines(content string) []sourceLine {
	raw := strings.Split(content, "\n")
	lines := make([]sourceLine, 0, len(raw))
	for i, l := range raw {
		t := strings.TrimSpace(l)
		if t == "" {
			continue
		}
		lines = append(lines, sourceLine{num: i + 1, text: t})
	}
	return lines
}

// draftQuestion is the accumulator both dialects fill before finalization.
type draftQuestion struct {
	q              models.Question
	line           int
	header         string
	imageName      string // legacy IMG: value, consumed by finalization
	parsingOptions bool
}

func newDraft(line int, header string) *draftQuestion {
	return &draftQuestion{
		q: models.Question{
			Options:    make([]string, 0, 4),
			AnswerType: models.AnswerTypeMultipleChoice,
		},
		line:   line,
		header: header,
	}
}

type draftSection struct {
	name      string
	questions []*draftQuestion
}

// finalizeQuestion turns a draft into a Question and reports its field-level defects.
func finalizeQuestion(d *draftQuestion, ctx QuestionContext) (models.Question, []models.ParseWarning) {
	q := d.q
	var warnings []models.ParseWarning
	warn := func(reason string) {
		warnings = append(warnings, models.ParseWarning{
			Line:       d.line,
			Section:    ctx.Section,
			QuestionID: q.ID,
			Content:    d.header,
			Reason:     reason,
		})
	}

	if !q.HasID() {
		warn("question has no valid id")
	}

	if d.imageName != "" {
		q.RequiresImage = true
		q.ImageFilename = d.imageName
		if q.ImageDescription == "" {
			q.ImageDescription = models.ImageGeneral
		}
	} else if q.RequiresImage {
		q.ImageFilename = ImageFilename(ctx, q.ID)
	} else {
		q.ImageFilename = ""
		q.ImageDescription = ""
	}
	if q.RequiresImage {
		q.ImageType = models.ImageTypeQuestion
	}

	if q.Options == nil {
		q.Options = []string{}
	}
	if q.AnswerType == models.AnswerTypeMultipleChoice && len(q.Options) == 0 {
		warn("multiple-choice question has no options")
	}
	if q.Answer == "" {
		warn("question has no correct answer")
	}
	if strings.TrimSpace(q.Text) == "" && q.Passage == "" {
		warn("question has no text")
	}

	return q, warnings
}

// assembleDocument finalizes every draft with its section context and derives
// the document totals and image requirements.
func assembleDocument(testName string, dialect models.Dialect, drafts []draftSection, warnings []models.ParseWarning) *models.ParsedDocument {
	doc := &models.ParsedDocument{
		TestName: testName,
		Dialect:  dialect,
		Sections: make([]models.Section, 0, len(drafts)),
		Warnings: warnings,
	}

	for i, ds := range drafts {
		ctx := ResolveContext(testName, i, ds.name)
		sec := models.Section{
			Name:      ds.name,
			Questions: make([]models.Question, 0, len(ds.questions)),
		}
		for _, d := range ds.questions {
			q, w := finalizeQuestion(d, ctx)
			sec.Questions = append(sec.Questions, q)
			doc.Warnings = append(doc.Warnings, w...)
		}
		doc.TotalQuestions += len(sec.Questions)
		doc.Sections = append(doc.Sections, sec)
	}

	doc.Warnings = append(doc.Warnings, duplicateIDWarnings(doc, dialect == models.DialectLegacy)...)
	doc.ImageRequirements = DeriveImageRequirements(doc)
	return doc
}

// duplicateIDWarnings flags repeated question ids. Legacy files need ids unique
// across the whole document; marker files only within a section.
func duplicateIDWarnings(doc *models.ParsedDocument, global bool) []models.ParseWarning {
	var warnings []models.ParseWarning
	seen := make(map[int]string)
	for _, sec := range doc.Sections {
		if !global {
			seen = make(map[int]string)
		}
		for _, q := range sec.Questions {
			if !q.HasID() {
				continue
			}
			if prev, dup := seen[q.ID]; dup {
				reason := fmt.Sprintf("duplicate question id %d", q.ID)
				if prev != sec.Name {
					reason = fmt.Sprintf("duplicate question id %d (first seen in %q)", q.ID, prev)
				}
				warnings = append(warnings, models.ParseWarning{
					Section:    sec.Name,
					QuestionID: q.ID,
					Reason:     reason,
				})
				continue
			}
			seen[q.ID] = sec.Name
		}
	}
	return warnings
}
