package parser

import (
	"testing"

	"github.com/sat-practice/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveImageRequirements_Coverage(t *testing.T) {
	doc := parseMarker(t, sampleMarkerTest, "")
	reqs := DeriveImageRequirements(doc)

	type key struct {
		section string
		id      int
	}
	counts := make(map[key]int)
	for _, r := range reqs {
		counts[key{r.Section, r.QuestionID}]++
		assert.Equal(t, doc.TestName, r.TestName)
		assert.Equal(t, models.ImageTypeQuestion, r.Type)
	}

	for _, s := range doc.Sections {
		for _, q := range s.Questions {
			n := counts[key{s.Name, q.ID}]
			if q.RequiresImage {
				assert.Equal(t, 1, n, "question %d in %s", q.ID, s.Name)
				assert.NotEmpty(t, q.ImageFilename)
			} else {
				assert.Zero(t, n, "question %d in %s", q.ID, s.Name)
				assert.Empty(t, q.ImageFilename)
			}
		}
	}

	assert.Equal(t, doc.ImageRequirements, reqs)
}

func TestDeriveImageRequirements_Nil(t *testing.T) {
	assert.Empty(t, DeriveImageRequirements(nil))
}

func TestFilenameCollisions(t *testing.T) {
	content := `QUESTION_SECTION:::Section 1, Module 1: Math
QUESTION_START
QUESTION_NUMBER:::4
QUESTION_TEXT:::First
NOTE:::requires image
CORRECT_ANSWER:::1
QUESTION_SECTION:::Section 1, Module 1: Math (copy)
QUESTION_START
QUESTION_NUMBER:::4
QUESTION_TEXT:::Second
NOTE:::requires image
CORRECT_ANSWER:::1
`
	doc := parseMarker(t, content, "T")
	require.Len(t, doc.ImageRequirements, 2)

	collisions := FilenameCollisions(doc.ImageRequirements)
	require.Len(t, collisions, 1)
	assert.Len(t, collisions["t_s1m1_q4.png"], 2)

	assert.Empty(t, FilenameCollisions(parseMarker(t, sampleMarkerTest, "").ImageRequirements))
}

func TestGroupRequirementsByTest(t *testing.T) {
	reqs := []models.ImageRequirement{
		{TestName: "B", QuestionID: 1},
		{TestName: "A", QuestionID: 2},
		{TestName: "B", QuestionID: 3},
	}
	groups := GroupRequirementsByTest(reqs)
	require.Len(t, groups, 2)
	assert.Equal(t, "B", groups[0].TestName)
	assert.Len(t, groups[0].Requirements, 2)
	assert.Equal(t, "A", groups[1].TestName)
}
