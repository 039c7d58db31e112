package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-exams/internal/db"
	"github.com/mind-engage/mindengage-exams/internal/errs"
	"github.com/mind-engage/mindengage-exams/internal/eventlog"
	"github.com/mind-engage/mindengage-exams/internal/grading"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	grader grading.Grader
	events *eventlog.Repo
	now    func() time.Time
}

type StoreOption func(*SQLStore)

func WithGrader(g grading.Grader) StoreOption  { return func(s *SQLStore) { s.grader = g } }
func WithClock(now func() time.Time) StoreOption { return func(s *SQLStore) { s.now = now } }

// WithEvents replaces the default event log, e.g. to stamp a site id.
func WithEvents(r *eventlog.Repo) StoreOption { return func(s *SQLStore) { s.events = r } }

func NewSQLStore(h *sql.DB, driver string, opts ...StoreOption) *SQLStore {
	s := &SQLStore{
		db:     h,
		driver: driver,
		grader: grading.NewDefaultGrader(),
		events: eventlog.NewRepo(h, ""),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Events exposes the audit trail written by this store.
func (s *SQLStore) Events() *eventlog.Repo { return s.events }

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Internal("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = errs.Internal("commit transaction", cerr)
		}
	}()
	return fn(tx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

/* -------------------------------- exams -------------------------------- */

const examCols = `id, title, description, duration_minutes`

func scanExam(r rowScanner) (Exam, error) {
	var e Exam
	var desc sql.NullString
	if err := r.Scan(&e.ID, &e.Title, &desc, &e.DurationMinutes); err != nil {
		return Exam{}, err
	}
	if desc.Valid {
		e.Description = &desc.String
	}
	return e, nil
}

func (s *SQLStore) ListExams(ctx context.Context) ([]Exam, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+examCols+` FROM exams ORDER BY id`)
	if err != nil {
		return nil, errs.Internal("list exams", err)
	}
	defer rows.Close()
	out := []Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, errs.Internal("list exams", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("list exams", err)
	}
	return out, nil
}

func (s *SQLStore) GetExam(ctx context.Context, id int64) (Exam, error) {
	return getExam(ctx, s.db, id)
}

func getExam(ctx context.Context, q queryer, id int64) (Exam, error) {
	e, err := scanExam(q.QueryRowContext(ctx, `SELECT `+examCols+` FROM exams WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Exam{}, errs.NotFound("exam not found")
	}
	if err != nil {
		return Exam{}, errs.Internal("get exam", err)
	}
	return e, nil
}

func (s *SQLStore) CreateExam(ctx context.Context, in ExamInput) (Exam, error) {
	e := Exam{DurationMinutes: 40}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return Exam{}, errs.Validation("title required")
	}
	e.Title = *in.Title
	e.Description = in.Description
	if in.DurationMinutes != nil {
		e.DurationMinutes = *in.DurationMinutes
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO exams (title, description, duration_minutes) VALUES ($1,$2,$3) RETURNING id`,
			e.Title, nullString(e.Description), e.DurationMinutes).Scan(&e.ID)
		if err != nil {
			return errs.Internal("create exam", err)
		}
		return nil
	})
	if err != nil {
		return Exam{}, err
	}
	return e, nil
}

func (s *SQLStore) UpdateExam(ctx context.Context, id int64, in ExamInput) (Exam, error) {
	var out Exam
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := getExam(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.Title != nil {
			if strings.TrimSpace(*in.Title) == "" {
				return errs.Validation("title must not be empty")
			}
			cur.Title = *in.Title
		}
		if in.Description != nil {
			cur.Description = in.Description
		}
		if in.DurationMinutes != nil {
			cur.DurationMinutes = *in.DurationMinutes
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE exams SET title=$1, description=$2, duration_minutes=$3 WHERE id=$4`,
			cur.Title, nullString(cur.Description), cur.DurationMinutes, id); err != nil {
			return errs.Internal("update exam", err)
		}
		out = cur
		return nil
	})
	return out, err
}

// DeleteExam removes the exam, its sections and their questions, and
// detaches its results, all in one transaction. The explicit statements do
// not rely on the driver having foreign keys switched on.
func (s *SQLStore) DeleteExam(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmts := []string{
			`UPDATE results SET exam_id=NULL WHERE exam_id=$1`,
			`DELETE FROM questions WHERE section_id IN (SELECT id FROM sections WHERE exam_id=$1)`,
			`DELETE FROM sections WHERE exam_id=$1`,
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return errs.Internal("delete exam", err)
			}
		}
		if err := deleteOne(ctx, tx, `DELETE FROM exams WHERE id=$1`, id, "exam not found"); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, eventlog.TypeExamDeleted, itoa(id), map[string]int64{"exam_id": id})
	})
}

/* ------------------------------- sections ------------------------------- */

const sectionCols = `id, exam_id, title, question_count, duration_minutes, question_mode`

func scanSection(r rowScanner) (Section, error) {
	var sec Section
	var dur sql.NullInt64
	if err := r.Scan(&sec.ID, &sec.ExamID, &sec.Title, &sec.QuestionCount, &dur, &sec.QuestionMode); err != nil {
		return Section{}, err
	}
	if dur.Valid {
		d := int(dur.Int64)
		sec.DurationMinutes = &d
	}
	return sec, nil
}

func (s *SQLStore) ListSections(ctx context.Context, examID int64) ([]Section, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sectionCols+` FROM sections WHERE exam_id=$1 ORDER BY id`, examID)
	if err != nil {
		return nil, errs.Internal("list sections", err)
	}
	defer rows.Close()
	out := []Section{}
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, errs.Internal("list sections", err)
		}
		out = append(out, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("list sections", err)
	}
	return out, nil
}

func getSection(ctx context.Context, q queryer, id int64) (Section, error) {
	sec, err := scanSection(q.QueryRowContext(ctx, `SELECT `+sectionCols+` FROM sections WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Section{}, errs.NotFound("section not found")
	}
	if err != nil {
		return Section{}, errs.Internal("get section", err)
	}
	return sec, nil
}

func exists(ctx context.Context, q queryer, query string, id int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLStore) CreateSection(ctx context.Context, in SectionInput) (Section, error) {
	if in.ExamID == nil || *in.ExamID == 0 || in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return Section{}, errs.Validation("exam_id and title required")
	}
	sec := Section{
		ExamID:          *in.ExamID,
		Title:           *in.Title,
		QuestionCount:   10,
		DurationMinutes: in.DurationMinutes,
		QuestionMode:    TypeObjective,
	}
	if in.QuestionCount != nil {
		sec.QuestionCount = *in.QuestionCount
	}
	if in.QuestionMode != nil && *in.QuestionMode != "" {
		sec.QuestionMode = *in.QuestionMode
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM exams WHERE id=$1`, sec.ExamID)
		if err != nil {
			return errs.Internal("create section", err)
		}
		if !ok {
			return errs.Validation("unknown exam_id")
		}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO sections (exam_id, title, question_count, duration_minutes, question_mode)
			 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
			sec.ExamID, sec.Title, sec.QuestionCount, nullInt(sec.DurationMinutes), sec.QuestionMode).Scan(&sec.ID)
		if err != nil {
			return errs.Internal("create section", err)
		}
		return nil
	})
	if err != nil {
		return Section{}, err
	}
	return sec, nil
}

func (s *SQLStore) UpdateSection(ctx context.Context, id int64, in SectionInput) (Section, error) {
	var out Section
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := getSection(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.ExamID != nil && *in.ExamID != cur.ExamID {
			ok, err := exists(ctx, tx, `SELECT 1 FROM exams WHERE id=$1`, *in.ExamID)
			if err != nil {
				return errs.Internal("update section", err)
			}
			if !ok {
				return errs.Validation("unknown exam_id")
			}
			cur.ExamID = *in.ExamID
		}
		if in.Title != nil {
			if strings.TrimSpace(*in.Title) == "" {
				return errs.Validation("title must not be empty")
			}
			cur.Title = *in.Title
		}
		if in.QuestionCount != nil {
			cur.QuestionCount = *in.QuestionCount
		}
		if in.DurationMinutes != nil {
			cur.DurationMinutes = in.DurationMinutes
		}
		if in.QuestionMode != nil && *in.QuestionMode != "" {
			cur.QuestionMode = *in.QuestionMode
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sections SET exam_id=$1, title=$2, question_count=$3, duration_minutes=$4, question_mode=$5 WHERE id=$6`,
			cur.ExamID, cur.Title, cur.QuestionCount, nullInt(cur.DurationMinutes), cur.QuestionMode, id); err != nil {
			return errs.Internal("update section", err)
		}
		out = cur
		return nil
	})
	return out, err
}

func (s *SQLStore) DeleteSection(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE section_id=$1`, id); err != nil {
			return errs.Internal("delete section", err)
		}
		if err := deleteOne(ctx, tx, `DELETE FROM sections WHERE id=$1`, id, "section not found"); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, eventlog.TypeSectionDeleted, itoa(id), map[string]int64{"section_id": id})
	})
}

/* ------------------------------- questions ------------------------------ */

const questionCols = `id, section_id, text, options_json, correct_index, difficulty, type, answer_text`

func scanQuestion(r rowScanner) (Question, error) {
	var q Question
	var opts string
	var answer sql.NullString
	if err := r.Scan(&q.ID, &q.SectionID, &q.Text, &opts, &q.CorrectIndex, &q.Difficulty, &q.Type, &answer); err != nil {
		return Question{}, err
	}
	if err := json.Unmarshal([]byte(opts), &q.Options); err != nil || q.Options == nil {
		q.Options = []string{}
	}
	if answer.Valid {
		q.AnswerText = &answer.String
	}
	return q, nil
}

func (s *SQLStore) ListQuestions(ctx context.Context, sectionID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+questionCols+` FROM questions WHERE section_id=$1 ORDER BY id`, sectionID)
	if err != nil {
		return nil, errs.Internal("list questions", err)
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, errs.Internal("list questions", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("list questions", err)
	}
	return out, nil
}

func (s *SQLStore) CreateQuestion(ctx context.Context, in QuestionInput) (int64, error) {
	q, err := in.apply(newQuestion())
	if err != nil {
		return 0, err
	}
	opts, err := marshalOptions(q.Options)
	if err != nil {
		return 0, errs.Validation("options must be an array of strings")
	}
	var id int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM sections WHERE id=$1`, q.SectionID)
		if err != nil {
			return errs.Internal("create question", err)
		}
		if !ok {
			return errs.Validation("unknown section_id")
		}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO questions (section_id, text, options_json, correct_index, difficulty, type, answer_text)
			 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			q.SectionID, q.Text, opts, q.CorrectIndex, q.Difficulty, q.Type, nullString(q.AnswerText)).Scan(&id)
		if err != nil {
			return errs.Internal("failed to create question", err)
		}
		return nil
	})
	return id, err
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, id int64, in QuestionInput) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := scanQuestion(tx.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions WHERE id=$1`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return errs.NotFound("question not found")
		}
		if err != nil {
			return errs.Internal("failed to update question", err)
		}
		q, err := in.apply(cur)
		if err != nil {
			return err
		}
		if q.SectionID != cur.SectionID {
			ok, err := exists(ctx, tx, `SELECT 1 FROM sections WHERE id=$1`, q.SectionID)
			if err != nil {
				return errs.Internal("failed to update question", err)
			}
			if !ok {
				return errs.Validation("unknown section_id")
			}
		}
		opts, err := marshalOptions(q.Options)
		if err != nil {
			return errs.Validation("options must be an array of strings")
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE questions SET section_id=$1, text=$2, options_json=$3, correct_index=$4, difficulty=$5, type=$6, answer_text=$7
			 WHERE id=$8`,
			q.SectionID, q.Text, opts, q.CorrectIndex, q.Difficulty, q.Type, nullString(q.AnswerText), id)
		if err != nil {
			return errs.Internal("failed to update question", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errs.NotFound("question not found")
		}
		return nil
	})
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := deleteOne(ctx, tx, `DELETE FROM questions WHERE id=$1`, id, "question not found"); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, eventlog.TypeQuestionDeleted, itoa(id), map[string]int64{"question_id": id})
	})
}

/* --------------------------------- users -------------------------------- */

func (s *SQLStore) findUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	var name sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, name, email, role FROM users WHERE email=$1`, email).
		Scan(&u.ID, &name, &u.Email, &u.Role)
	if err != nil {
		return User{}, err
	}
	if name.Valid {
		u.Name = &name.String
	}
	return u, nil
}

func (s *SQLStore) UserRole(ctx context.Context, userID int64) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errs.NotFound("user not found")
	}
	if err != nil {
		return "", errs.Internal("lookup user", err)
	}
	return role, nil
}

func (s *SQLStore) UpsertStudent(ctx context.Context, name *string, email string) (User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return User{}, false, errs.Validation("email required")
	}
	if name != nil && strings.TrimSpace(*name) == "" {
		name = nil
	}

	u, err := s.findUserByEmail(ctx, email)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, false, errs.Internal("failed to login student", err)
	}

	var id int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO users (name, email, role, created_at) VALUES ($1,$2,$3,$4) RETURNING id`,
			nullString(name), email, RoleStudent, s.now().Unix()).Scan(&id); err != nil {
			return err
		}
		return s.events.Append(ctx, tx, eventlog.TypeStudentRegistered, itoa(id), map[string]string{"email": email})
	})
	switch {
	case err == nil:
		return User{ID: id, Name: name, Email: email, Role: RoleStudent}, true, nil
	case db.IsUniqueViolation(err):
		// A concurrent login inserted the same email first; the constraint
		// kept it to one row, so read that row back.
		u, ferr := s.findUserByEmail(ctx, email)
		if ferr != nil {
			return User{}, false, errs.Internal("failed to login student", ferr)
		}
		return u, false, nil
	default:
		return User{}, false, errs.Internal("failed to login student", err)
	}
}

/* -------------------------------- helpers ------------------------------- */

func deleteOne(ctx context.Context, tx *sql.Tx, query string, id int64, notFound string) error {
	res, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return errs.Internal("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Internal("delete", err)
	}
	if n == 0 {
		return errs.NotFound(notFound)
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
