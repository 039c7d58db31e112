package seed

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mind-engage/mindengage-exams/internal/db"
	"github.com/mind-engage/mindengage-exams/internal/errs"
	"github.com/mind-engage/mindengage-exams/internal/exam"
)

func newStore(t *testing.T) *exam.SQLStore {
	t.Helper()
	h, err := db.Open(context.Background(), db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { h.Close() })
	return exam.NewSQLStore(h, string(db.DriverSQLite))
}

func TestRunDefaultCatalogOnce(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	catalog, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}

	seeded, err := Run(ctx, s, catalog)
	if err != nil || !seeded {
		t.Fatalf("seeded=%v err=%v", seeded, err)
	}
	exams, _ := s.ListExams(ctx)
	if len(exams) != 3 || exams[0].Title != "Math" || exams[2].Title != "Science" {
		t.Fatalf("exams=%+v", exams)
	}
	secs, _ := s.ListSections(ctx, exams[0].ID)
	if len(secs) != 2 || secs[0].Title != "Algebra" || secs[0].QuestionCount != 2 {
		t.Fatalf("sections=%+v", secs)
	}
	qs, _ := s.ListQuestions(ctx, secs[0].ID)
	if len(qs) != 2 || qs[0].CorrectIndex != 1 || qs[0].Difficulty != "easy" || qs[0].Type != exam.TypeObjective {
		t.Fatalf("questions=%+v", qs)
	}

	seeded, err = Run(ctx, s, catalog)
	if err != nil || seeded {
		t.Fatalf("second run seeded=%v err=%v", seeded, err)
	}
	if exams, _ := s.ListExams(ctx); len(exams) != 3 {
		t.Fatalf("second run duplicated exams: %d", len(exams))
	}
}

func TestRunRejectsBadQuestion(t *testing.T) {
	catalog, err := Parse([]byte(`[{"title":"Bad","sections":[{"title":"S","questions":[{"text":"q","options":["a","b"],"correct_index":5}]}]}]`))
	if err != nil {
		t.Fatal(err)
	}
	_, err = Run(context.Background(), newStore(t), catalog)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("err=%v want validation", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte(`{"title":`)); err == nil {
		t.Fatal("parsed garbage")
	}
}
