package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	authmw "github.com/mind-engage/mindengage-exams/internal/auth/middleware"
	"github.com/mind-engage/mindengage-exams/internal/errs"
	"github.com/mind-engage/mindengage-exams/internal/exam"
	"github.com/mind-engage/mindengage-exams/internal/validate"
)

// StudentUpserter finds or creates the student row for an email.
type StudentUpserter interface {
	UpsertStudent(ctx context.Context, name *string, email string) (exam.User, bool, error)
}

type studentLoginRequest struct {
	Name  *string `json:"name"`
	Email string  `json:"email" validate:"required,email"`
}

type studentLoginResponse struct {
	Token string    `json:"token"`
	User  exam.User `json:"user"`
}

// POST /api/student/login  { "name"?: "...", "email": "..." } -> { "token", "user" }
func StudentLoginHandler(a *authmw.AuthService, users StudentUpserter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req studentLoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errs.Write(w, errs.Validation("bad json"))
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if err := validate.Struct(req); err != nil {
			errs.Write(w, err)
			return
		}

		u, created, err := users.UpsertStudent(r.Context(), req.Name, req.Email)
		if err != nil {
			errs.Write(w, err)
			return
		}
		if created {
			zap.L().Info("student registered", zap.Int64("user_id", u.ID))
		}

		c := authmw.Claims{
			Role:             exam.RoleStudent,
			UserID:           u.ID,
			Email:            u.Email,
			RegisteredClaims: subject(strconv.FormatInt(u.ID, 10)),
		}
		if u.Name != nil {
			c.Name = *u.Name
		}
		tok, err := a.IssueJWT(c)
		if err != nil {
			errs.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, studentLoginResponse{Token: tok, User: u})
	}
}

func subject(sub string) jwt.RegisteredClaims { return jwt.RegisteredClaims{Subject: sub} }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
