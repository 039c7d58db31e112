package http

import (
	"bytes"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	authmw "github.com/mind-engage/mindengage-exams/internal/auth/middleware"
	"github.com/mind-engage/mindengage-exams/internal/errs"
	"github.com/mind-engage/mindengage-exams/internal/exam"
	"github.com/mind-engage/mindengage-exams/internal/grading"
	"github.com/mind-engage/mindengage-exams/internal/metrics"
)

// submitRequest is the student's answer sheet. Score fields sent by older
// clients are decoded and dropped; the server always re-scores.
type submitRequest struct {
	ExamID      json.RawMessage `json:"exam_id"`
	AttemptUUID string          `json:"attempt_uuid"`
	SubmittedAt string          `json:"submitted_at"`
	Details     json.RawMessage `json:"details"`
	DetailsJSON json.RawMessage `json:"details_json"`
	Score       json.RawMessage `json:"score"`
	MaxScore    json.RawMessage `json:"max_score"`
}

type submitResponse struct {
	Message  string `json:"message"`
	Score    int    `json:"score"`
	MaxScore int    `json:"max_score"`
}

// POST /api/results (student)
func SubmitResultHandler(store exam.Store, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := func(err error) {
			m.SubmissionFailed()
			errs.Write(w, err)
		}

		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			fail(errs.Validation("bad json"))
			return
		}
		examID, ok := grading.Integral(req.ExamID)
		if !ok || examID <= 0 {
			fail(errs.Validation("exam_id required"))
			return
		}
		raw := req.Details
		if isAbsent(raw) {
			raw = req.DetailsJSON
		}
		details, err := parseDetails(raw)
		if err != nil {
			fail(err)
			return
		}

		in := exam.SubmissionInput{
			ExamID:      examID,
			AttemptUUID: req.AttemptUUID,
			SubmittedAt: req.SubmittedAt,
			Details:     details,
		}
		if c := authmw.ClaimsFromContext(r.Context()); c != nil {
			in.UserID = c.UserID
		}

		sum, err := store.SubmitResult(r.Context(), in)
		if err != nil {
			fail(err)
			return
		}
		m.ObserveSubmission(sum.Score, sum.MaxScore)
		zap.L().Info("result submitted",
			zap.Int64("result_id", sum.ResultID),
			zap.Int64("user_id", in.UserID),
			zap.Int64("exam_id", examID),
			zap.Int("score", sum.Score),
			zap.Int("max_score", sum.MaxScore),
		)
		writeJSON(w, http.StatusOK, submitResponse{Message: "Submitted", Score: sum.Score, MaxScore: sum.MaxScore})
	}
}

func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// parseDetails accepts an array of records or a string holding one.
func parseDetails(raw json.RawMessage) ([]json.RawMessage, error) {
	if isAbsent(raw) {
		return []json.RawMessage{}, nil
	}
	raw = bytes.TrimSpace(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errs.Validation("details_json must be a JSON array")
		}
		raw = json.RawMessage(s)
	}
	var out []json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errs.Validation("details must be a JSON array")
	}
	if out == nil {
		out = []json.RawMessage{}
	}
	return out, nil
}

// GET /api/admin/results
func ListResultsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListResults(r.Context())
		if err != nil {
			errs.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/admin/results/{resultID}
func GetResultHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "resultID", "result")
		if err != nil {
			errs.Write(w, err)
			return
		}
		res, err := store.GetResult(r.Context(), id)
		if err != nil {
			errs.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
