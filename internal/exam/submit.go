package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-exams/internal/errs"
	"github.com/mind-engage/mindengage-exams/internal/eventlog"
	"github.com/mind-engage/mindengage-exams/internal/grading"
)

// SubmittedAtLayout is used when the client sends no submitted_at.
const SubmittedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// SubmitResult scores the submission from the stored answer key, never from
// anything the client claims, and appends one result row. Nothing is written
// when any step fails.
func (s *SQLStore) SubmitResult(ctx context.Context, in SubmissionInput) (ScoreSummary, error) {
	if in.ExamID == 0 {
		return ScoreSummary{}, errs.Validation("exam_id required")
	}
	if in.AttemptUUID == "" {
		in.AttemptUUID = uuid.NewString()
	}
	if strings.TrimSpace(in.SubmittedAt) == "" {
		in.SubmittedAt = s.now().UTC().Format(SubmittedAtLayout)
	}
	if in.Details == nil {
		in.Details = []json.RawMessage{}
	}
	detailsJSON, err := json.Marshal(in.Details)
	if err != nil {
		return ScoreSummary{}, errs.Validation("details must be a JSON array")
	}

	answers := make([]grading.Answer, 0, len(in.Details))
	for _, raw := range in.Details {
		answers = append(answers, grading.ParseAnswer(raw))
	}

	var out ScoreSummary
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM exams WHERE id=$1`, in.ExamID)
		if err != nil {
			return errs.Internal("failed to submit results", err)
		}
		if !ok {
			return errs.NotFound("exam not found")
		}

		keys, err := answerKeys(ctx, tx, in.ExamID, answers)
		if err != nil {
			return errs.Internal("failed to submit results", err)
		}
		score, maxScore, err := grading.Tally(ctx, s.grader, keys, answers)
		if err != nil {
			return errs.Internal("failed to submit results", err)
		}

		var userID sql.NullInt64
		if in.UserID != 0 {
			userID = sql.NullInt64{Int64: in.UserID, Valid: true}
		}
		var id int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO results (user_id, exam_id, attempt_uuid, score, max_score, submitted_at, details_json)
			 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			userID, in.ExamID, in.AttemptUUID, score, maxScore, in.SubmittedAt, string(detailsJSON)).Scan(&id)
		if err != nil {
			return errs.Internal("failed to submit results", err)
		}
		if err := s.events.Append(ctx, tx, eventlog.TypeResultSubmitted, itoa(id), map[string]any{
			"user_id":      in.UserID,
			"exam_id":      in.ExamID,
			"attempt_uuid": in.AttemptUUID,
			"score":        score,
			"max_score":    maxScore,
		}); err != nil {
			return errs.Internal("failed to submit results", err)
		}
		out = ScoreSummary{ResultID: id, Score: score, MaxScore: maxScore}
		return nil
	})
	if err != nil {
		return ScoreSummary{}, err
	}
	return out, nil
}

// answerKeys loads the canonical key of every question the answers refer
// to. A question only counts as known when its section belongs to examID.
func answerKeys(ctx context.Context, tx *sql.Tx, examID int64, answers []grading.Answer) (map[int64]grading.Key, error) {
	keys := map[int64]grading.Key{}
	seen := map[int64]bool{}
	var args []any
	var ph []string
	for _, a := range answers {
		if a.QuestionID == 0 || seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true
		args = append(args, a.QuestionID)
		ph = append(ph, "$"+strconv.Itoa(len(args)))
	}
	if len(args) == 0 {
		return keys, nil
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT q.id, q.type, q.correct_index, s.exam_id
		 FROM questions q JOIN sections s ON s.id = q.section_id
		 WHERE q.id IN (`+strings.Join(ph, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, owner int64
		var k grading.Key
		if err := rows.Scan(&id, &k.Type, &k.CorrectIndex, &owner); err != nil {
			return nil, err
		}
		k.Known = owner == examID
		keys[id] = k
	}
	return keys, rows.Err()
}

/* ---------------------------- admin results view ---------------------------- */

const resultSelect = `SELECT r.id, r.user_id, r.exam_id, r.attempt_uuid, r.score, r.max_score, r.submitted_at, r.details_json,
       u.name, u.email, e.title
FROM results r
LEFT JOIN users u ON r.user_id = u.id
LEFT JOIN exams e ON r.exam_id = e.id`

func scanResult(r rowScanner) (Result, error) {
	var res Result
	var userID, examID sql.NullInt64
	var details string
	var name, email, title sql.NullString
	if err := r.Scan(&res.ID, &userID, &examID, &res.AttemptUUID, &res.Score, &res.MaxScore,
		&res.SubmittedAt, &details, &name, &email, &title); err != nil {
		return Result{}, err
	}
	if userID.Valid {
		res.UserID = &userID.Int64
	}
	if examID.Valid {
		res.ExamID = &examID.Int64
	}
	if json.Valid([]byte(details)) {
		res.Details = json.RawMessage(details)
	} else {
		res.Details = json.RawMessage("[]")
	}
	if name.Valid {
		res.StudentName = &name.String
	}
	if email.Valid {
		res.StudentEmail = &email.String
	}
	if title.Valid {
		res.ExamTitle = &title.String
	}
	return res, nil
}

func (s *SQLStore) ListResults(ctx context.Context) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, resultSelect)
	if err != nil {
		return nil, errs.Internal("failed to fetch results", err)
	}
	defer rows.Close()
	out := []Result{}
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, errs.Internal("failed to fetch results", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("failed to fetch results", err)
	}
	SortBySubmittedDesc(out)
	return out, nil
}

func (s *SQLStore) GetResult(ctx context.Context, id int64) (Result, error) {
	res, err := scanResult(s.db.QueryRowContext(ctx, resultSelect+` WHERE r.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, errs.NotFound("result not found")
	}
	if err != nil {
		return Result{}, errs.Internal("failed to fetch result", err)
	}
	return res, nil
}

// SortBySubmittedDesc orders results most recent first by the instant their
// submitted_at denotes, whatever layout the client used. Unparseable
// timestamps go last; ties fall back to id, newest first.
func SortBySubmittedDesc(rs []Result) {
	type keyed struct {
		t  time.Time
		ok bool
	}
	ks := make(map[int64]keyed, len(rs))
	for _, r := range rs {
		t, ok := ParseTimestamp(r.SubmittedAt)
		ks[r.ID] = keyed{t, ok}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := ks[rs[i].ID], ks[rs[j].ID]
		if a.ok != b.ok {
			return a.ok
		}
		if a.ok && !a.t.Equal(b.t) {
			return a.t.After(b.t)
		}
		return rs[i].ID > rs[j].ID
	})
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"1/2/2006, 3:04:05 PM",
}

// ParseTimestamp reads the timestamp layouts browsers and databases commonly
// produce, plus unix seconds or milliseconds. Layouts without a zone are UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), true
		}
		return time.Unix(n, 0).UTC(), true
	}
	// JS Date.toString() appends " (Zone Name)".
	if i := strings.Index(s, " ("); i > 0 {
		s = s[:i]
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
