// Package eventlog is the append-only audit trail written alongside store
// mutations. Appends take the caller's transaction so an event exists exactly
// when the change it describes was committed.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Event types.
const (
	TypeResultSubmitted   = "ResultSubmitted"
	TypeStudentRegistered = "StudentRegistered"
	TypeQuestionDeleted   = "QuestionDeleted"
	TypeSectionDeleted    = "SectionDeleted"
	TypeExamDeleted       = "ExamDeleted"
)

type Event struct {
	Seq       int64  `json:"seq"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Repo struct {
	db     *sql.DB
	siteID string
	now    func() time.Time
}

func NewRepo(db *sql.DB, siteID string) *Repo {
	if siteID == "" {
		siteID = "local"
	}
	return &Repo{db: db, siteID: siteID, now: time.Now}
}

// Append writes one event through ex. data is marshalled to JSON.
func (r *Repo) Append(ctx context.Context, ex Execer, typ, key string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		r.siteID, typ, key, string(b), r.now().Unix())
	return err
}

// List returns events of one type (all types when typ is empty), oldest first.
func (r *Repo) List(ctx context.Context, typ string) ([]Event, error) {
	q := `SELECT seq, site_id, typ, key, data, created_at FROM event_log`
	args := []any{}
	if typ != "" {
		q += ` WHERE typ=$1`
		args = append(args, typ)
	}
	q += ` ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
