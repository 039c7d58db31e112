package exam

import "context"

// Store is the persistent store behind the catalog, the question bank, the
// auth gate's user upsert and the submission scorer. Every mutation runs in
// a single transaction.
type Store interface {
	ListExams(ctx context.Context) ([]Exam, error)
	GetExam(ctx context.Context, id int64) (Exam, error)
	CreateExam(ctx context.Context, in ExamInput) (Exam, error)
	UpdateExam(ctx context.Context, id int64, in ExamInput) (Exam, error)
	DeleteExam(ctx context.Context, id int64) error // cascades to sections and questions

	ListSections(ctx context.Context, examID int64) ([]Section, error)
	CreateSection(ctx context.Context, in SectionInput) (Section, error)
	UpdateSection(ctx context.Context, id int64, in SectionInput) (Section, error)
	DeleteSection(ctx context.Context, id int64) error // cascades to questions

	ListQuestions(ctx context.Context, sectionID int64) ([]Question, error) // full records, answer keys included
	CreateQuestion(ctx context.Context, in QuestionInput) (int64, error)
	UpdateQuestion(ctx context.Context, id int64, in QuestionInput) error
	DeleteQuestion(ctx context.Context, id int64) error

	// UpsertStudent finds a student by email or creates one. created reports
	// whether this call inserted the row.
	UpsertStudent(ctx context.Context, name *string, email string) (u User, created bool, err error)
	UserRole(ctx context.Context, userID int64) (string, error)

	// SubmitResult re-scores the details against the stored answer key and
	// appends one immutable result row.
	SubmitResult(ctx context.Context, in SubmissionInput) (ScoreSummary, error)
	ListResults(ctx context.Context) ([]Result, error) // most recent first
	GetResult(ctx context.Context, id int64) (Result, error)

	Ping(ctx context.Context) error
}
