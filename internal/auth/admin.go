package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	authmw "github.com/mind-engage/mindengage-exams/internal/auth/middleware"
	"github.com/mind-engage/mindengage-exams/internal/errs"
	"github.com/mind-engage/mindengage-exams/internal/exam"
)

// AdminCredentials is the single configured admin identity. The admin is not
// a users row.
type AdminCredentials struct {
	Username string
	passHash []byte
}

// NewAdminCredentials uses passHash when set, otherwise bcrypt-hashes
// password once so the plaintext is not kept in memory.
func NewAdminCredentials(username, passHash, password string) (AdminCredentials, error) {
	c := AdminCredentials{Username: username}
	if passHash != "" {
		if _, err := bcrypt.Cost([]byte(passHash)); err != nil {
			return AdminCredentials{}, errs.Internal("ADMIN_PASS_HASH is not a bcrypt hash", err)
		}
		c.passHash = []byte(passHash)
		return c, nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AdminCredentials{}, errs.Internal("hash admin password", err)
	}
	c.passHash = h
	return c, nil
}

// Check compares the username in constant time and the password with bcrypt.
func (c AdminCredentials) Check(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1
	passOK := bcrypt.CompareHashAndPassword(c.passHash, []byte(password)) == nil
	return userOK && passOK
}

// POST /api/admin/login  { "username": "...", "password": "..." } -> { "token": "..." }
func AdminLoginHandler(a *authmw.AuthService, creds AdminCredentials) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errs.Write(w, errs.Validation("bad json"))
			return
		}
		if !creds.Check(req.Username, req.Password) {
			errs.Write(w, errs.InvalidCredentials("invalid credentials"))
			return
		}
		tok, err := a.IssueJWT(authmw.Claims{
			Role:             exam.RoleAdmin,
			Username:         creds.Username,
			RegisteredClaims: subject(creds.Username),
		})
		if err != nil {
			errs.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": tok})
	}
}
