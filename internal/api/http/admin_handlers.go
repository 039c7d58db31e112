package http

import (
	"context"
	"net/http"

	"github.com/mind-engage/mindengage-exams/internal/errs"
	"github.com/mind-engage/mindengage-exams/internal/exam"
)

/* --------------------------------- exams --------------------------------- */

func CreateExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.ExamInput
		if err := decode(r, &in); err != nil {
			errs.Write(w, err)
			return
		}
		e, err := store.CreateExam(r.Context(), in)
		if err != nil {
			errs.Write(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

func UpdateExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "examID", "exam")
		if err != nil {
			errs.Write(w, err)
			return
		}
		var in exam.ExamInput
		if err := decode(r, &in); err != nil {
			errs.Write(w, err)
			return
		}
		e, err := store.UpdateExam(r.Context(), id, in)
		if err != nil {
			errs.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func DeleteExamHandler(store exam.Store) http.HandlerFunc {
	return deleteHandler("examID", "exam", "Exam deleted", store.DeleteExam)
}

/* -------------------------------- sections ------------------------------- */

func CreateSectionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.SectionInput
		if err := decode(r, &in); err != nil {
			errs.Write(w, err)
			return
		}
		sec, err := store.CreateSection(r.Context(), in)
		if err != nil {
			errs.Write(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sec)
	}
}

func UpdateSectionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "sectionID", "section")
		if err != nil {
			errs.Write(w, err)
			return
		}
		var in exam.SectionInput
		if err := decode(r, &in); err != nil {
			errs.Write(w, err)
			return
		}
		sec, err := store.UpdateSection(r.Context(), id, in)
		if err != nil {
			errs.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sec)
	}
}

func DeleteSectionHandler(store exam.Store) http.HandlerFunc {
	return deleteHandler("sectionID", "section", "Section deleted", store.DeleteSection)
}

/* ------------------------------- questions ------------------------------- */

// POST /api/admin/questions -> 201 {id, message}
func CreateQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.QuestionInput
		if err := decode(r, &in); err != nil {
			errs.Write(w, err)
			return
		}
		id, err := store.CreateQuestion(r.Context(), in)
		if err != nil {
			errs.Write(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": id, "message": "Question created"})
	}
}

func UpdateQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "questionID", "question")
		if err != nil {
			errs.Write(w, err)
			return
		}
		var in exam.QuestionInput
		if err := decode(r, &in); err != nil {
			errs.Write(w, err)
			return
		}
		if err := store.UpdateQuestion(r.Context(), id, in); err != nil {
			errs.Write(w, err)
			return
		}
		writeMessage(w, http.StatusOK, "Question updated")
	}
}

func DeleteQuestionHandler(store exam.Store) http.HandlerFunc {
	return deleteHandler("questionID", "question", "Question deleted", store.DeleteQuestion)
}

// deleteHandler answers {message} on success. A second delete of the same
// id is a 404, never a silent success.
func deleteHandler(param, what, done string, del func(ctx context.Context, id int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, param, what)
		if err != nil {
			errs.Write(w, err)
			return
		}
		if err := del(r.Context(), id); err != nil {
			errs.Write(w, err)
			return
		}
		writeMessage(w, http.StatusOK, done)
	}
}
