// Package scoring grades student submissions against a published test.
package scoring

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sat-practice/backend/internal/models"
)

// NoAnswer is recorded for questions the student left blank.
const NoAnswer = "No answer"

// numericTolerance absorbs float error when comparing fractions to decimals.
const numericTolerance = 1e-9

// Score grades answers, keyed by FlatQuestion.Key or, failing that, by the
// bare question id, and returns a new Result.
func Score(test *models.Test, studentID string, answers map[string]string) *models.Result {
	result := &models.Result{
		ResultID:        uuid.New().String(),
		TestID:          test.TestID,
		StudentID:       studentID,
		Answers:         answers,
		TotalQuestions:  len(test.Questions),
		DetailedResults: make([]models.QuestionResult, 0, len(test.Questions)),
		SubmittedAt:     time.Now(),
	}

	for _, q := range test.Questions {
		given := lookupAnswer(answers, q)
		correct := given != "" && IsCorrect(q, given)
		if correct {
			result.CorrectAnswers++
		}
		if given == "" {
			given = NoAnswer
		}
		result.DetailedResults = append(result.DetailedResults, models.QuestionResult{
			QuestionKey:   q.Key,
			QuestionID:    q.ID,
			Section:       q.Section,
			StudentAnswer: given,
			CorrectAnswer: q.Answer,
			IsCorrect:     correct,
		})
	}

	result.Score = Percentage(result.CorrectAnswers, result.TotalQuestions)
	return result
}

// Percentage returns round(correct/total*100), or 0 for an empty test.
func Percentage(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

func lookupAnswer(answers map[string]string, q models.FlatQuestion) string {
	if q.Key != "" {
		if a, ok := answers[q.Key]; ok {
			return strings.TrimSpace(a)
		}
	}
	return strings.TrimSpace(answers[strconv.Itoa(q.ID)])
}

// IsCorrect compares one answer with the key. Letters match case-insensitively;
// student-produced answers also match by numeric value, so "1/2" equals ".5".
// A key may list alternatives separated by " or ".
func IsCorrect(q models.FlatQuestion, given string) bool {
	given = strings.TrimSpace(given)
	if given == "" {
		return false
	}

	for _, key := range strings.Split(q.Answer, " or ") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if strings.EqualFold(key, given) {
			return true
		}
		if q.AnswerType != models.AnswerTypeStudentProduced {
			continue
		}
		kv, kOK := ParseNumber(key)
		gv, gOK := ParseNumber(given)
		if kOK && gOK && math.Abs(kv-gv) <= numericTolerance {
			return true
		}
	}
	return false
}

// ParseNumber reads integers, decimals (".5", "-2.25") and simple fractions ("7/2").
func ParseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return 0, false
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN != nil || errD != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
