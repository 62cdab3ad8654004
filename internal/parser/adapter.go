package parser

import (
	"sort"

	"github.com/sat-practice/backend/internal/models"
)

// ToFlatQuestions flattens every section into the delivery shape.
// A passage is prefixed to the question text with a blank line.
func ToFlatQuestions(doc *models.ParsedDocument) []models.FlatQuestion {
	if doc == nil {
		return []models.FlatQuestion{}
	}
	out := make([]models.FlatQuestion, 0, doc.TotalQuestions)
	for i, sec := range doc.Sections {
		ctx := ResolveContext(doc.TestName, i, sec.Name)
		for _, q := range sec.Questions {
			text := q.Text
			if q.Passage != "" {
				text = q.Passage + "\n\n" + q.Text
			}
			options := make([]string, len(q.Options))
			copy(options, q.Options)

			fq := models.FlatQuestion{
				Key:           QuestionKey(ctx, q.ID),
				ID:            q.ID,
				Text:          text,
				Options:       options,
				Answer:        q.Answer,
				Section:       sec.Name,
				AnswerType:    q.AnswerType,
				RequiresImage: q.RequiresImage,
			}
			if q.RequiresImage {
				fq.ImageName = q.ImageFilename
			}
			out = append(out, fq)
		}
	}
	return out
}

// BuildStructuredExam groups flat questions by section and module for timed
// delivery. Ordinals come from each question's Key, so sections that share a
// name stay apart; questions without a key fall back to the position of their
// section name. Questions within a module are sorted by id; Flatten on the
// result returns the same questions with every field intact.
func BuildStructuredExam(title string, flat []models.FlatQuestion, policy *models.ExamPolicy) models.StructuredExam {
	type moduleKey struct{ section, module int }

	nameIndex := make(map[string]int)
	modules := make(map[moduleKey]*models.StructuredModule)
	sections := make(map[int]*models.StructuredSection)
	var order []moduleKey

	for _, q := range flat {
		s, m, ok := KeyOrdinals(q.Key)
		if !ok {
			idx, seen := nameIndex[q.Section]
			if !seen {
				idx = len(nameIndex)
				nameIndex[q.Section] = idx
			}
			ctx := ResolveContext(title, idx, q.Section)
			s, m = ctx.SectionOrdinal, ctx.ModuleOrdinal
		}
		subject := SectionSubject(q.Section)

		if _, ok := sections[s]; !ok {
			sections[s] = &models.StructuredSection{Ordinal: s, Subject: subject}
		}

		key := moduleKey{s, m}
		mod, ok := modules[key]
		if !ok {
			mod = &models.StructuredModule{
				Ordinal:      m,
				Name:         q.Section,
				TimeLimitSec: policy.TimeLimitSec(subject),
			}
			modules[key] = mod
			order = append(order, key)
		}
		mod.Questions = append(mod.Questions, q)
	}

	exam := models.StructuredExam{Title: title, Sections: make([]models.StructuredSection, 0, len(sections))}
	for _, key := range order {
		mod := modules[key]
		sort.SliceStable(mod.Questions, func(a, b int) bool {
			return mod.Questions[a].ID < mod.Questions[b].ID
		})
		sections[key.section].Modules = append(sections[key.section].Modules, *mod)
	}
	for _, sec := range sections {
		sort.SliceStable(sec.Modules, func(a, b int) bool {
			return sec.Modules[a].Ordinal < sec.Modules[b].Ordinal
		})
		exam.Sections = append(exam.Sections, *sec)
	}
	sort.Slice(exam.Sections, func(a, b int) bool {
		return exam.Sections[a].Ordinal < exam.Sections[b].Ordinal
	})
	return exam
}
