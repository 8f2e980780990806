package assessment

import "math"

// Grade is the outcome label of an attempt.
type Grade string

const (
	GradeExcellent Grade = "EXCELLENT"
	GradePass      Grade = "PASS"
	GradeFail      Grade = "FAIL"
)

const (
	// PassScore is the pass line applied to every assessment. The configured
	// pass percentage is stored and reported but does not move it.
	PassScore      = 35
	excellentAbove = 60
)

// Result is the graded outcome of one submission.
type Result struct {
	CorrectCount   int
	TotalQuestions int
	Score          int
	Passed         bool
	Grade          Grade
}

// GradeAnswers scores answers against questions. Unanswered and unknown
// question ids count as wrong; answers are compared exactly.
func GradeAnswers(questions []Question, answers Answers) Result {
	res := Result{TotalQuestions: len(questions)}
	for _, q := range questions {
		if got, ok := answers[q.ID]; ok && got == q.CorrectAnswer {
			res.CorrectCount++
		}
	}
	res.Score = Score(res.CorrectCount, res.TotalQuestions)
	res.Passed = res.Score >= PassScore
	res.Grade = gradeFor(res.Score)
	return res
}

// Score returns round(correct/total*100), halves rounded away from zero.
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

func gradeFor(score int) Grade {
	switch {
	case score < PassScore:
		return GradeFail
	case score > excellentAbove:
		return GradeExcellent
	default:
		return GradePass
	}
}
