package exam

import (
	"encoding/json"
	"strings"

	"github.com/mind-engage/mindengage-exams/internal/errs"
)

// ExamInput carries create and partial-update fields. On update a nil field
// keeps the stored value.
type ExamInput struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,min=0"`
}

type SectionInput struct {
	ExamID          *int64  `json:"exam_id"`
	Title           *string `json:"title"`
	QuestionCount   *int    `json:"question_count" validate:"omitempty,min=0"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,min=0"`
	QuestionMode    *string `json:"question_mode" validate:"omitempty,oneof=objective theory mixed"`
}

// QuestionInput is the body of question create and update. SectionID, Text
// and Options are always required; the rest fall back to defaults on create
// and to the stored value on update.
type QuestionInput struct {
	SectionID    int64     `json:"section_id" validate:"required"`
	Text         string    `json:"text" validate:"required"`
	Options      *[]string `json:"options"`
	CorrectIndex *int      `json:"correct_index"`
	Difficulty   *string   `json:"difficulty"`
	Type         *string   `json:"type" validate:"omitempty,oneof=objective theory"`
	AnswerText   *string   `json:"answer_text"`
}

// SubmissionInput is one student's answer sheet. UserID comes from the
// token, never from the body.
type SubmissionInput struct {
	UserID      int64
	ExamID      int64
	AttemptUUID string
	SubmittedAt string
	Details     []json.RawMessage
}

// ScoreSummary is what the scorer returns to the student.
type ScoreSummary struct {
	ResultID int64 `json:"-"`
	Score    int   `json:"score"`
	MaxScore int   `json:"max_score"`
}

// apply merges in over q and checks the answer-key invariants.
func (in QuestionInput) apply(q Question) (Question, error) {
	if in.SectionID == 0 || strings.TrimSpace(in.Text) == "" || in.Options == nil {
		return q, errs.Validation("section_id, text and options(array) are required")
	}
	q.SectionID = in.SectionID
	q.Text = in.Text
	q.Options = *in.Options
	if in.CorrectIndex != nil {
		q.CorrectIndex = *in.CorrectIndex
	}
	if in.Difficulty != nil && *in.Difficulty != "" {
		q.Difficulty = *in.Difficulty
	}
	if in.Type != nil && *in.Type != "" {
		q.Type = *in.Type
	}
	if in.AnswerText != nil {
		q.AnswerText = in.AnswerText
	}

	switch q.Type {
	case TypeObjective:
		if len(q.Options) < 2 {
			return q, errs.Validation("objective questions need at least 2 options")
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return q, errs.Validation("correct_index out of range")
		}
	case TypeTheory:
	default:
		return q, errs.Validation("type must be objective or theory")
	}
	return q, nil
}

func newQuestion() Question {
	return Question{Options: []string{}, Difficulty: "medium", Type: TypeObjective}
}

func marshalOptions(opts []string) (string, error) {
	if opts == nil {
		opts = []string{}
	}
	b, err := json.Marshal(opts)
	return string(b), err
}
