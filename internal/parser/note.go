package parser

import (
	"strings"

	"github.com/sat-practice/backend/internal/models"
)

// noteRules are checked in order once a note is gated by "requires image".
// The first keyword found wins, so "graph embedded in table" is a graph.
var noteRules = []struct {
	keyword     string
	description string
}{
	{"student-produced", models.ImageStudentProduced},
	{"graph", models.ImageGraph},
	{"table", models.ImageTable},
	{"diagram", models.ImageDiagram},
}

// interpretNote applies a NOTE::: value to q. Notes without "requires image"
// leave q untouched.
func interpretNote(q *models.Question, note string) {
	lower := strings.ToLower(note)
	if !strings.Contains(lower, "requires image") {
		return
	}

	q.RequiresImage = true
	q.ImageDescription = models.ImageGeneral
	for _, r := range noteRules {
		if !strings.Contains(lower, r.keyword) {
			continue
		}
		q.ImageDescription = r.description
		if r.description == models.ImageStudentProduced {
			q.AnswerType = models.AnswerTypeStudentProduced
		}
		break
	}
}
