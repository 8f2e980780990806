package assessment

import (
	"time"

	id "qualify/pkg/domain"
)

// OptionsPerQuestion is the fixed number of choices on every question.
const OptionsPerQuestion = 4

// Assessment is the single assessment configuration of a training.
type Assessment struct {
	ID             id.AssessmentID
	TrainingID     id.TrainingID
	PassPercentage int
	MaxAttempts    int
	CreatedBy      id.UserID
	GeneratedByAI  bool
	Questions      []Question
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Question is a four-option multiple choice question.
type Question struct {
	ID            id.QuestionID
	Prompt        string
	Options       []string
	CorrectAnswer string
}

// Answers maps question ids to the chosen option.
type Answers map[id.QuestionID]string

// Attempt is one graded submission. Attempts are never modified after they
// are appended.
type Attempt struct {
	ID             id.AttemptID
	RecordID       id.RecordID
	AssessmentID   id.AssessmentID
	UserID         id.UserID
	TrainingID     id.TrainingID
	Number         int
	Answers        Answers
	CorrectCount   int
	TotalQuestions int
	Score          int
	Passed         bool
	Grade          Grade
	SubmittedAt    time.Time
}

// QuestionInput is an authored question.
type QuestionInput struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// CreateRequest describes a new assessment and its full question set.
type CreateRequest struct {
	TrainingID     id.TrainingID
	PassPercentage int
	MaxAttempts    int
	GeneratedByAI  bool
	Questions      []QuestionInput
}

// ConfigPatch changes the grading settings. Nil fields are left alone.
type ConfigPatch struct {
	PassPercentage *int `json:"pass_percentage,omitempty"`
	MaxAttempts    *int `json:"max_attempts,omitempty"`
}

// TakerView is what a trainee sees: no correct answers.
type TakerView struct {
	AssessmentID   id.AssessmentID `json:"assessment_id"`
	TrainingID     id.TrainingID   `json:"training_id"`
	PassPercentage int             `json:"pass_percentage"`
	MaxAttempts    int             `json:"max_attempts"`
	Questions      []TakerQuestion `json:"questions"`
}

type TakerQuestion struct {
	ID      id.QuestionID `json:"id"`
	Prompt  string        `json:"prompt"`
	Options []string      `json:"options"`
}

// TakerViewOf strips the answer key from a.
func TakerViewOf(a *Assessment) *TakerView {
	view := &TakerView{
		AssessmentID:   a.ID,
		TrainingID:     a.TrainingID,
		PassPercentage: a.PassPercentage,
		MaxAttempts:    a.MaxAttempts,
		Questions:      make([]TakerQuestion, len(a.Questions)),
	}
	for i, q := range a.Questions {
		view.Questions[i] = TakerQuestion{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: append([]string(nil), q.Options...),
		}
	}
	return view
}
