package models

import "time"

// QuestionResult is the graded outcome of one question in a submission.
type QuestionResult struct {
	QuestionKey   string `json:"questionKey"`
	QuestionID    int    `json:"questionId"`
	Section       string `json:"section,omitempty"`
	StudentAnswer string `json:"studentAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
}

// Result is a scored submission.
type Result struct {
	ResultID        string            `json:"resultId"`
	TestID          string            `json:"testId"`
	StudentID       string            `json:"studentId"`
	Answers         map[string]string `json:"answers"`
	Score           int               `json:"score"`
	CorrectAnswers  int               `json:"correctAnswers"`
	TotalQuestions  int               `json:"totalQuestions"`
	DetailedResults []QuestionResult  `json:"detailedResults"`
	SubmittedAt     time.Time         `json:"submittedAt"`
}
