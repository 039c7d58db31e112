package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/mind-engage/mindengage-exams/internal/errs"
	"github.com/mind-engage/mindengage-exams/internal/rbac"
)

// RoleLookup resolves the stored role of a user row.
type RoleLookup interface {
	UserRole(ctx context.Context, userID int64) (string, error)
}

// AttachRoleFromDB makes the users table authoritative for non-admin tokens:
// a token whose user row no longer exists is rejected, and the stored role
// replaces the claimed one. Admin tokens carry no user row and pass through.
func AttachRoleFromDB(users RoleLookup, adminRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			c := ClaimsFromContext(ctx)
			if c == nil {
				errs.Write(w, errs.Unauthenticated("missing bearer token"))
				return
			}
			if c.Role == adminRole {
				next.ServeHTTP(w, r)
				return
			}
			if c.UserID == 0 {
				errs.Write(w, errs.Unauthenticated("token has no user"))
				return
			}
			role, err := users.UserRole(ctx, c.UserID)
			switch {
			case errors.Is(err, errs.ErrNotFound):
				errs.Write(w, errs.Unauthenticated("unknown user"))
				return
			case err != nil:
				errs.Write(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
		})
	}
}
