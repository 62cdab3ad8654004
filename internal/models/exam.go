// Package models contains domain types for the practice exam backend.
package models

// AnswerType distinguishes lettered choices from free-response questions.
type AnswerType string

const (
	AnswerTypeMultipleChoice  AnswerType = "multiple-choice"
	AnswerTypeStudentProduced AnswerType = "student-produced"
)

// Image classifications assigned by the NOTE interpreter.
const (
	ImageGraph           = "Graph or chart"
	ImageTable           = "Data table"
	ImageDiagram         = "Geometric diagram"
	ImageStudentProduced = "Student-produced response with image"
	ImageGeneral         = "General image required"
)

// ImageTypeQuestion is the only image slot a question currently has.
const ImageTypeQuestion = "question"

// Dialect names the text grammar a document was parsed from.
type Dialect string

const (
	DialectMarker Dialect = "marker"
	DialectLegacy Dialect = "legacy"
)

// Question is a single parsed exam question.
// ID is the authored question number; 0 means the source never supplied a usable one.
type Question struct {
	ID               int        `json:"id"`
	Text             string     `json:"text"`
	Passage          string     `json:"passage,omitempty"`
	Options          []string   `json:"options"`
	Answer           string     `json:"answer"`
	AnswerType       AnswerType `json:"answerType"`
	RequiresImage    bool       `json:"requiresImage"`
	ImageType        string     `json:"imageType,omitempty"`
	ImageDescription string     `json:"imageDescription,omitempty"`
	ImageFilename    string     `json:"imageFilename,omitempty"`
}

// HasID reports whether the question carries a valid question number.
func (q Question) HasID() bool {
	return q.ID > 0
}

// Section is a named group of questions, e.g. "Section 2, Module 1: Math".
type Section struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// ImageRequirement describes one question image that still has to be supplied.
type ImageRequirement struct {
	TestName    string `json:"testName"`
	Section     string `json:"section"`
	QuestionID  int    `json:"questionId"`
	Filename    string `json:"filename"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// ParsedDocument is the result of compiling one test-definition file.
type ParsedDocument struct {
	TestName          string             `json:"testName"`
	Dialect           Dialect            `json:"dialect"`
	Sections          []Section          `json:"sections"`
	TotalQuestions    int                `json:"totalQuestions"`
	ImageRequirements []ImageRequirement `json:"imageRequirements"`
	Warnings          []ParseWarning     `json:"warnings,omitempty"`
}

// ParseWarning is a field-level defect found while parsing. It never aborts a parse.
type ParseWarning struct {
	Line       int    `json:"line,omitempty"`
	Section    string `json:"section,omitempty"`
	QuestionID int    `json:"questionId,omitempty"`
	Content    string `json:"content,omitempty"`
	Reason     string `json:"reason"`
}

// FlatQuestion is the delivery/scoring shape of a question.
// ImageName is transient: it is cleared once ImageURL has been resolved.
type FlatQuestion struct {
	Key           string     `json:"key" msgpack:"key"`
	ID            int        `json:"id" msgpack:"id"`
	Text          string     `json:"text" msgpack:"text"`
	ImageURL      string     `json:"imageUrl,omitempty" msgpack:"imageUrl,omitempty"`
	ImageName     string     `json:"imageName,omitempty" msgpack:"imageName,omitempty"`
	Options       []string   `json:"options" msgpack:"options"`
	Answer        string     `json:"answer,omitempty" msgpack:"answer,omitempty"`
	Section       string     `json:"section" msgpack:"section"`
	AnswerType    AnswerType `json:"answerType" msgpack:"answerType"`
	RequiresImage bool       `json:"requiresImage" msgpack:"requiresImage"`
}

// RequirementGroup collects the image requirements of one test.
type RequirementGroup struct {
	TestName     string             `json:"testName"`
	Requirements []ImageRequirement `json:"requirements"`
}
