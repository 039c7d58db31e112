// Package seed loads a demo catalog of exams, sections and questions into an
// empty store.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-exams/internal/exam"
)

//go:embed catalog.json
var defaultCatalog []byte

type ExamSeed struct {
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	Sections    []SectionSeed `json:"sections"`
}

type SectionSeed struct {
	Title     string         `json:"title"`
	Questions []QuestionSeed `json:"questions"`
}

type QuestionSeed struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Difficulty   string   `json:"difficulty"`
	Type         string   `json:"type"`
	AnswerText   *string  `json:"answer_text"`
}

// Parse decodes a catalog file. nil data means the built-in demo catalog.
func Parse(data []byte) ([]ExamSeed, error) {
	if data == nil {
		data = defaultCatalog
	}
	var out []ExamSeed
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return out, nil
}

// Run inserts the catalog unless the store already holds an exam. It reports
// whether anything was written. Each row goes through the store's own
// validation, so a bad question aborts the run with a validation error.
func Run(ctx context.Context, store exam.Store, catalog []ExamSeed) (bool, error) {
	existing, err := store.ListExams(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		zap.L().Info("database already seeded", zap.Int("exams", len(existing)))
		return false, nil
	}

	questions := 0
	for _, es := range catalog {
		title := es.Title
		e, err := store.CreateExam(ctx, exam.ExamInput{Title: &title, Description: es.Description})
		if err != nil {
			return true, fmt.Errorf("exam %q: %w", es.Title, err)
		}
		for _, ss := range es.Sections {
			secTitle := ss.Title
			count := len(ss.Questions)
			sec, err := store.CreateSection(ctx, exam.SectionInput{ExamID: &e.ID, Title: &secTitle, QuestionCount: &count})
			if err != nil {
				return true, fmt.Errorf("section %q: %w", ss.Title, err)
			}
			for _, qs := range ss.Questions {
				if _, err := store.CreateQuestion(ctx, questionInput(sec.ID, qs)); err != nil {
					return true, fmt.Errorf("question %q: %w", qs.Text, err)
				}
				questions++
			}
		}
	}
	zap.L().Info("seeding complete", zap.Int("exams", len(catalog)), zap.Int("questions", questions))
	return true, nil
}

func questionInput(sectionID int64, qs QuestionSeed) exam.QuestionInput {
	in := exam.QuestionInput{
		SectionID:    sectionID,
		Text:         qs.Text,
		Options:      &qs.Options,
		CorrectIndex: &qs.CorrectIndex,
		AnswerText:   qs.AnswerText,
	}
	if qs.Options == nil {
		in.Options = &[]string{}
	}
	if qs.Difficulty != "" {
		in.Difficulty = &qs.Difficulty
	}
	if qs.Type != "" {
		in.Type = &qs.Type
	}
	return in
}
