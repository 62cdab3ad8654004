package models

import "time"

// Test is a published exam built from a parsed document.
type Test struct {
	TestID            string             `json:"testId"`
	Title             string             `json:"title"`
	Questions         []FlatQuestion     `json:"questions"`
	ImageRequirements []ImageRequirement `json:"imageRequirements,omitempty"`
	Warnings          []ParseWarning     `json:"warnings,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
}

// StudentView returns a copy of the test with answer keys and transient fields removed.
func (t Test) StudentView() Test {
	out := t
	out.Questions = make([]FlatQuestion, len(t.Questions))
	for i, q := range t.Questions {
		q.Answer = ""
		q.ImageName = ""
		out.Questions[i] = q
	}
	out.Warnings = nil
	return out
}

// TestSummary is a row in the admin test list.
type TestSummary struct {
	TestID         string    `json:"testId"`
	Title          string    `json:"title"`
	QuestionCount  int       `json:"questionCount"`
	ImagesRequired int       `json:"imagesRequired"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Summary builds the list row for a test.
func (t Test) Summary() TestSummary {
	return TestSummary{
		TestID:         t.TestID,
		Title:          t.Title,
		QuestionCount:  len(t.Questions),
		ImagesRequired: len(t.ImageRequirements),
		CreatedAt:      t.CreatedAt,
	}
}
