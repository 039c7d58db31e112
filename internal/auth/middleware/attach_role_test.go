package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mind-engage/mindengage-exams/internal/errs"
	"github.com/mind-engage/mindengage-exams/internal/rbac"
)

type fakeRoles map[int64]string

func (f fakeRoles) UserRole(_ context.Context, id int64) (string, error) {
	role, ok := f[id]
	if !ok {
		return "", errs.NotFound("user not found")
	}
	return role, nil
}

func TestAttachRoleFromDB(t *testing.T) {
	var seen string
	h := AttachRoleFromDB(fakeRoles{7: "student"}, "admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = rbac.RoleFromContext(r.Context())
	}))

	cases := []struct {
		name   string
		claims *Claims
		want   int
		role   string
	}{
		{"no claims", nil, http.StatusUnauthorized, ""},
		{"admin", &Claims{Role: "admin"}, http.StatusOK, "admin"},
		{"student row", &Claims{Role: "student", UserID: 7}, http.StatusOK, "student"},
		{"deleted student", &Claims{Role: "student", UserID: 8}, http.StatusUnauthorized, ""},
		{"no user id", &Claims{Role: "student"}, http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		seen = ""
		r := httptest.NewRequest(http.MethodPost, "/api/results", nil)
		ctx := r.Context()
		if tc.claims != nil {
			ctx = rbac.WithRole(WithClaims(ctx, tc.claims), tc.claims.Role)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r.WithContext(ctx))
		if rec.Code != tc.want || seen != tc.role {
			t.Errorf("%s: status=%d role=%q want %d %q", tc.name, rec.Code, seen, tc.want, tc.role)
		}
	}
}
