package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestKindMatching(t *testing.T) {
	err := fmt.Errorf("delete: %w", NotFound("question not found"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrapped not-found to match sentinel")
	}
	if errors.Is(err, ErrValidation) {
		t.Fatalf("not-found must not match validation")
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatalf("plain errors are internal")
	}
}

func TestWriteStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{Validation("email required"), http.StatusBadRequest, "email required"},
		{InvalidCredentials("invalid credentials"), http.StatusUnauthorized, "invalid credentials"},
		{Unauthenticated("missing authorization token"), http.StatusUnauthorized, "missing authorization token"},
		{Forbidden("insufficient role"), http.StatusForbidden, "insufficient role"},
		{NotFound("result not found"), http.StatusNotFound, "result not found"},
		{Internal("failed to submit results", errors.New("disk full")), http.StatusInternalServerError, "failed to submit results"},
		{errors.New("raw driver error"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		Write(rec, tc.err)
		if rec.Code != tc.status {
			t.Errorf("%v: status=%d want %d", tc.err, rec.Code, tc.status)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["error"] != tc.msg {
			t.Errorf("error=%q want %q", body["error"], tc.msg)
		}
	}
}
