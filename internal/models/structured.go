package models

// StructuredExam groups flat questions back into sections and timed modules.
type StructuredExam struct {
	Title    string              `json:"title" msgpack:"title"`
	Sections []StructuredSection `json:"sections" msgpack:"sections"`
}

// StructuredSection is one exam part, e.g. "Section 2: Math".
type StructuredSection struct {
	Ordinal int                `json:"ordinal" msgpack:"ordinal"`
	Subject string             `json:"subject" msgpack:"subject"`
	Modules []StructuredModule `json:"modules" msgpack:"modules"`
}

// StructuredModule is a timed block of questions sorted by question number.
type StructuredModule struct {
	Ordinal      int            `json:"ordinal" msgpack:"ordinal"`
	Name         string         `json:"name" msgpack:"name"`
	TimeLimitSec int            `json:"timeLimitSec,omitempty" msgpack:"timeLimitSec,omitempty"`
	Questions    []FlatQuestion `json:"questions" msgpack:"questions"`
}

// Flatten returns every question in section, module, question order.
func (e StructuredExam) Flatten() []FlatQuestion {
	var out []FlatQuestion
	for _, s := range e.Sections {
		for _, m := range s.Modules {
			out = append(out, m.Questions...)
		}
	}
	return out
}

// QuestionCount returns the number of questions across all modules.
func (e StructuredExam) QuestionCount() int {
	n := 0
	for _, s := range e.Sections {
		for _, m := range s.Modules {
			n += len(m.Questions)
		}
	}
	return n
}
