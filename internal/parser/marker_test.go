package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sat-practice/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMarkerTest = `TEST_NAME:::June 2025 US 1
QUESTION_SECTION:::Section 1, Module 1: Reading and Writing
QUESTION_START
QUESTION_NUMBER:::1
PASSAGE:::The passage.
QUESTION_TEXT:::Which choice
completes the text?
OPTIONS_START
OPTION:::alpha
OPTION:::beta
OPTION:::gamma
OPTION:::delta
CORRECT_ANSWER:::B
QUESTION_END

QUESTION_START
QUESTION_NUMBER:::2
QUESTION_TEXT:::What is 1/2 of 4?
OPTIONS_START
OPTION:::1
OPTION:::2
CORRECT_ANSWER:::B
QUESTION_END
QUESTION_SECTION:::Section 2, Module 1: Math
QUESTION_START
QUESTION_NUMBER:::11
QUESTION_TEXT:::The graph shows y = x^2.
NOTE:::Requires image: graph
OPTIONS_START
OPTION:::1
OPTION:::2
OPTION:::3
OPTION:::4
CORRECT_ANSWER:::C
QUESTION_END
QUESTION_START
QUESTION_NUMBER:::12
QUESTION_TEXT:::Solve for x.
NOTE:::Requires image - student-produced response
CORRECT_ANSWER:::5/2
QUESTION_END
`

func parseMarker(t *testing.T, content, testName string) *models.ParsedDocument {
	t.Helper()
	out := NewMarkerParser().Parse(content, testName)
	require.Equal(t, Success, out.Kind, out.Reason)
	require.NotNil(t, out.Document)
	return out.Document
}

func TestMarkerParser_Sample(t *testing.T) {
	doc := parseMarker(t, sampleMarkerTest, "")

	assert.Equal(t, "June 2025 US 1", doc.TestName)
	assert.Equal(t, models.DialectMarker, doc.Dialect)
	assert.Equal(t, 4, doc.TotalQuestions)
	assert.Empty(t, doc.Warnings)

	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "Section 1, Module 1: Reading and Writing", doc.Sections[0].Name)
	assert.Equal(t, "Section 2, Module 1: Math", doc.Sections[1].Name)

	rw := doc.Sections[0].Questions
	require.Len(t, rw, 2)
	assert.Equal(t, "The passage.", rw[0].Passage)
	assert.Equal(t, "Which choice completes the text?", rw[0].Text)
	assert.Equal(t, []string{"alpha", "beta", "gamma", "delta"}, rw[0].Options)
	assert.Equal(t, "B", rw[0].Answer)
	assert.Equal(t, `What is $\frac{1}{2}$ of 4?`, rw[1].Text)

	math := doc.Sections[1].Questions
	require.Len(t, math, 2)
	assert.Equal(t, "The graph shows y = $x^{2}$.", math[0].Text)
	assert.True(t, math[0].RequiresImage)
	assert.Equal(t, models.ImageGraph, math[0].ImageDescription)
	assert.Equal(t, "june_2025_us_1_s2m1_q11.png", math[0].ImageFilename)
	assert.Equal(t, models.ImageTypeQuestion, math[0].ImageType)

	assert.Equal(t, models.AnswerTypeStudentProduced, math[1].AnswerType)
	assert.Equal(t, models.ImageStudentProduced, math[1].ImageDescription)
	assert.Equal(t, []string{}, math[1].Options)
	assert.Equal(t, "5/2", math[1].Answer)
	assert.Equal(t, "june_2025_us_1_s2m1_q12.png", math[1].ImageFilename)

	require.Len(t, doc.ImageRequirements, 2)
}

func TestMarkerParser_CallerNameWins(t *testing.T) {
	doc := parseMarker(t, sampleMarkerTest, "Custom Name")
	assert.Equal(t, "Custom Name", doc.TestName)
	assert.Equal(t, "custom_name_s2m1_q11.png", doc.Sections[1].Questions[0].ImageFilename)
}

func TestMarkerParser_QuestionCountMatchesStarts(t *testing.T) {
	for _, n := range []int{1, 2, 7, 25} {
		var b strings.Builder
		b.WriteString("QUESTION_SECTION:::Math\n")
		for i := 1; i <= n; i++ {
			fmt.Fprintf(&b, "QUESTION_START\nQUESTION_NUMBER:::%d\nQUESTION_TEXT:::Question %d\nCORRECT_ANSWER:::%d\n", i, i, i)
			if i%2 == 0 {
				b.WriteString("QUESTION_END\n")
			}
		}

		doc := parseMarker(t, b.String(), "T")
		require.Len(t, doc.Sections, 1)
		qs := doc.Sections[0].Questions
		require.Len(t, qs, n)
		for i, q := range qs {
			assert.Equal(t, i+1, q.ID)
			assert.Equal(t, fmt.Sprintf("Question %d", i+1), q.Text)
		}
	}
}

func TestMarkerParser_MultipleChoiceWithoutOptionsIsDefect(t *testing.T) {
	content := `QUESTION_SECTION:::Section 1, Module 2: Math
QUESTION_START
QUESTION_NUMBER:::3
QUESTION_TEXT:::Which is largest?
CORRECT_ANSWER:::A
`
	doc := parseMarker(t, content, "T")
	q := doc.Sections[0].Questions[0]

	assert.Equal(t, models.AnswerTypeMultipleChoice, q.AnswerType)
	assert.Empty(t, q.Options)
	require.Len(t, doc.Warnings, 1)
	assert.Equal(t, "multiple-choice question has no options", doc.Warnings[0].Reason)
	assert.Equal(t, 3, doc.Warnings[0].QuestionID)
	assert.Equal(t, "Section 1, Module 2: Math", doc.Warnings[0].Section)
}

func TestMarkerParser_Warnings(t *testing.T) {
	content := `QUESTION_START
QUESTION_NUMBER:::99
QUESTION_TEXT:::Orphan
QUESTION_SECTION:::Math
QUESTION_START
QUESTION_TEXT:::No number here
OPTION:::early option
OPTIONS_START
OPTION:::a
CORRECT_ANSWER:::A
QUESTION_START
QUESTION_NUMBER:::abc
QUESTION_TEXT:::Bad number
OPTIONS_START
OPTION:::a
CORRECT_ANSWER:::A
QUESTION_START
QUESTION_NUMBER:::5.
QUESTION_TEXT:::Five
OPTIONS_START
OPTION:::a
CORRECT_ANSWER:::A
QUESTION_START
QUESTION_NUMBER:::5
QUESTION_TEXT:::Five again
OPTIONS_START
OPTION:::a
CORRECT_ANSWER:::A
`
	doc := parseMarker(t, content, "T")
	qs := doc.Sections[0].Questions
	require.Len(t, qs, 4)
	assert.Equal(t, []string{"a"}, qs[0].Options)
	assert.Equal(t, 5, qs[2].ID)

	reasons := warningReasons(doc)
	assert.Contains(t, reasons, "question appears before any QUESTION_SECTION and was dropped")
	assert.Contains(t, reasons, "OPTION outside OPTIONS_START was ignored")
	assert.Contains(t, reasons, `invalid question number "abc"`)
	assert.Contains(t, reasons, "question has no valid id")
	assert.Contains(t, reasons, "duplicate question id 5")
}

func TestMarkerParser_IDsScopedToSection(t *testing.T) {
	content := `QUESTION_SECTION:::Section 1, Module 1: Reading and Writing
QUESTION_START
QUESTION_NUMBER:::1
QUESTION_TEXT:::First
OPTIONS_START
OPTION:::a
CORRECT_ANSWER:::A
QUESTION_SECTION:::Section 1, Module 2: Reading and Writing
QUESTION_START
QUESTION_NUMBER:::1
QUESTION_TEXT:::Also first
OPTIONS_START
OPTION:::a
CORRECT_ANSWER:::A
`
	doc := parseMarker(t, content, "T")
	assert.Empty(t, doc.Warnings)
	assert.Equal(t, 2, doc.TotalQuestions)
}

func TestMarkerParser_OptionsStateDropsFreeText(t *testing.T) {
	content := `QUESTION_SECTION:::Math
QUESTION_START
QUESTION_NUMBER:::1
QUESTION_TEXT:::Pick one
OPTIONS_START
OPTION:::a
free text inside options
OPTION:::b
CORRECT_ANSWER:::A
`
	q := parseMarker(t, content, "T").Sections[0].Questions[0]
	assert.Equal(t, "Pick one", q.Text)
	assert.Equal(t, []string{"a", "b"}, q.Options)
}

func TestMarkerParser_PositionalOrdinals(t *testing.T) {
	content := `QUESTION_SECTION:::Reading
QUESTION_START
QUESTION_NUMBER:::1
QUESTION_TEXT:::R
NOTE:::requires image
CORRECT_ANSWER:::A
QUESTION_SECTION:::Math
QUESTION_START
QUESTION_NUMBER:::4
QUESTION_TEXT:::M
NOTE:::Requires image: diagram
CORRECT_ANSWER:::A
`
	doc := parseMarker(t, content, "Fall Test")
	require.Len(t, doc.ImageRequirements, 2)
	assert.Equal(t, "fall_test_s1m1_q1.png", doc.ImageRequirements[0].Filename)
	assert.Equal(t, "fall_test_s2m1_q4.png", doc.ImageRequirements[1].Filename)
	assert.Equal(t, models.ImageDiagram, doc.ImageRequirements[1].Description)
}

func TestMarkerParser_NoSectionsNotApplicable(t *testing.T) {
	out := NewMarkerParser().Parse("[Q1]\nWhat is x?\nA) 1\nB) 2\nANS: A\n", "")
	assert.Equal(t, NotApplicable, out.Kind)
	assert.Nil(t, out.Document)
}
