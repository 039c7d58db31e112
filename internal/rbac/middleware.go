package rbac

import (
	"net/http"

	"github.com/mind-engage/mindengage-exams/internal/errs"
)

var defaultChecker = NewChecker(nil)

// Require enforces a single permission. A request without a role is
// unauthenticated; a role without the permission is forbidden.
func Require(perm string) func(http.Handler) http.Handler {
	return defaultChecker.Require(perm)
}

// RequireAny enforces that the role has at least one of the permissions.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return defaultChecker.RequireAny(perms...)
}

// RequireRole admits only the listed roles, whatever their permissions.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return defaultChecker.gate(func(role string) bool {
		for _, r := range roles {
			if r == role {
				return true
			}
		}
		return false
	})
}

func (c *Checker) Require(perm string) func(http.Handler) http.Handler {
	return c.gate(func(role string) bool { return c.Has(role, perm) })
}

func (c *Checker) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return c.gate(func(role string) bool { return c.Any(role, perms...) })
}

func (c *Checker) gate(allowed func(role string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" {
				errs.Write(w, errs.Unauthenticated("missing bearer token"))
				return
			}
			if !allowed(role) {
				errs.Write(w, errs.Forbidden("forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
