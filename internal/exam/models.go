package exam

import "encoding/json"

// Question types.
const (
	TypeObjective = "objective"
	TypeTheory    = "theory"
)

// Roles.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

type Exam struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	DurationMinutes int     `json:"duration_minutes"`
}

type Section struct {
	ID              int64  `json:"id"`
	ExamID          int64  `json:"exam_id"`
	Title           string `json:"title"`
	QuestionCount   int    `json:"question_count"`
	DurationMinutes *int   `json:"duration_minutes"`
	QuestionMode    string `json:"question_mode"`
}

// Question is the full record, answer key included. Only admins see it.
type Question struct {
	ID           int64    `json:"id"`
	SectionID    int64    `json:"section_id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Difficulty   string   `json:"difficulty"`
	Type         string   `json:"type"`
	AnswerText   *string  `json:"answer_text"`
}

// StudentQuestion is what a student may see: no correct_index, no answer_text.
type StudentQuestion struct {
	ID         int64    `json:"id"`
	SectionID  int64    `json:"section_id"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
	Difficulty string   `json:"difficulty"`
	Type       string   `json:"type"`
}

func (q Question) ForStudent() StudentQuestion {
	return StudentQuestion{
		ID:         q.ID,
		SectionID:  q.SectionID,
		Text:       q.Text,
		Options:    q.Options,
		Difficulty: q.Difficulty,
		Type:       q.Type,
	}
}

type User struct {
	ID    int64   `json:"id"`
	Name  *string `json:"name"`
	Email string  `json:"email"`
	Role  string  `json:"-"`
}

// Result is an immutable record of one submission, enriched with the
// student's and exam's current names when read back.
type Result struct {
	ID           int64           `json:"id"`
	UserID       *int64          `json:"user_id"`
	ExamID       *int64          `json:"exam_id"`
	AttemptUUID  string          `json:"attempt_uuid"`
	Score        int             `json:"score"`
	MaxScore     int             `json:"max_score"`
	SubmittedAt  string          `json:"submitted_at"`
	Details      json.RawMessage `json:"details"`
	StudentName  *string         `json:"student_name"`
	StudentEmail *string         `json:"student_email"`
	ExamTitle    *string         `json:"exam_title"`
}
