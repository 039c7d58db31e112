package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerPolicy(t *testing.T) {
	c := NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"admin", PermExamManage, true},
		{"admin", PermResultView, true},
		{"student", PermExamView, true},
		{"student", PermResultSubmit, true},
		{"student", PermExamManage, false},
		{"student", PermResultView, false},
		{"", PermExamView, false},
		{"proctor", PermExamView, false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q,%q)=%v want %v", tc.role, tc.perm, got, tc.want)
		}
	}
	if !c.All("student", PermExamView, PermResultSubmit) || c.All("student", PermExamView, PermExamManage) {
		t.Error("All mismatch")
	}
}

func TestWildcardSuffix(t *testing.T) {
	c := NewChecker(map[string][]string{"grader": {"result:*"}})
	if !c.Has("grader", PermResultView) || c.Has("grader", PermExamView) {
		t.Fatal("prefix wildcard mismatch")
	}
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Require(PermExamManage)(ok)

	cases := []struct {
		role string
		want int
	}{
		{"", http.StatusUnauthorized},
		{"student", http.StatusForbidden},
		{"admin", http.StatusNoContent},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodPost, "/api/admin/questions", nil)
		if tc.role != "" {
			r = r.WithContext(WithRole(r.Context(), tc.role))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != tc.want {
			t.Errorf("role=%q: status=%d want %d", tc.role, rec.Code, tc.want)
		}
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequireRole("student")(ok)
	for role, want := range map[string]int{"": 401, "admin": 403, "student": 204} {
		r := httptest.NewRequest(http.MethodPost, "/api/results", nil)
		if role != "" {
			r = r.WithContext(WithRole(r.Context(), role))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != want {
			t.Errorf("role=%q: status=%d want %d", role, rec.Code, want)
		}
	}
}
