package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-exams/internal/errs"
	"github.com/mind-engage/mindengage-exams/internal/exam"
)

// GET /api/exams and GET /api/admin/exams
func ListExamsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListExams(r.Context())
		if err != nil {
			errs.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/exams/{examID}/sections. An unknown exam has no sections.
func ListSectionsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "examID", "exam")
		if err != nil {
			writeJSON(w, http.StatusOK, []exam.Section{})
			return
		}
		list, err := store.ListSections(r.Context(), id)
		if err != nil {
			errs.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/sections/{sectionID}/questions. Answer keys are stripped.
func ListStudentQuestionsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "sectionID", "section")
		if err != nil {
			writeJSON(w, http.StatusOK, []exam.StudentQuestion{})
			return
		}
		qs, err := store.ListQuestions(r.Context(), id)
		if err != nil {
			errs.Write(w, err)
			return
		}
		out := make([]exam.StudentQuestion, 0, len(qs))
		for _, q := range qs {
			out = append(out, q.ForStudent())
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /api/admin/sections/{sectionID}/questions
func ListAdminQuestionsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "sectionID", "section")
		if err != nil {
			writeJSON(w, http.StatusOK, []exam.Question{})
			return
		}
		qs, err := store.ListQuestions(r.Context(), id)
		if err != nil {
			errs.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, qs)
	}
}
