package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-exams/internal/auth"
	authmw "github.com/mind-engage/mindengage-exams/internal/auth/middleware"
	"github.com/mind-engage/mindengage-exams/internal/errs"
	"github.com/mind-engage/mindengage-exams/internal/exam"
	"github.com/mind-engage/mindengage-exams/internal/logger"
	"github.com/mind-engage/mindengage-exams/internal/metrics"
	"github.com/mind-engage/mindengage-exams/internal/rbac"
)

type Deps struct {
	Store       exam.Store
	Auth        *authmw.AuthService
	Admin       auth.AdminCredentials
	Metrics     *metrics.Metrics // nil disables /metrics and request metrics
	Logger      *zap.Logger      // nil disables request logging
	CORSOrigins []string
	Timeout     time.Duration
}

func NewRouter(d Deps) http.Handler {
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	if d.Logger != nil {
		r.Use(logger.RequestLogger(d.Logger))
	}
	r.Use(middleware.Recoverer, d.Metrics.Middleware)
	r.Use(middleware.Timeout(d.Timeout))
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errs.Write(w, errs.NotFound("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errs.WriteMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Public
	r.Post("/api/admin/login", auth.AdminLoginHandler(d.Auth, d.Admin))
	r.Post("/api/student/login", auth.StudentLoginHandler(d.Auth, d.Store))
	r.Get("/api/exams", ListExamsHandler(d.Store))
	r.Get("/api/exams/{examID}/sections", ListSectionsHandler(d.Store))
	r.Get("/api/sections/{sectionID}/questions", ListStudentQuestionsHandler(d.Store))

	// Protected API (JWT -> role in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth))
		pr.Use(authmw.AttachRoleFromDB(d.Store, exam.RoleAdmin))

		// Submissions are bound to a student row; admins cannot submit.
		pr.With(rbac.RequireRole(exam.RoleStudent), rbac.Require(rbac.PermResultSubmit)).
			Post("/api/results", SubmitResultHandler(d.Store, d.Metrics))

		pr.Route("/api/admin", func(ar chi.Router) {
			ar.Use(rbac.Require(rbac.PermExamManage))

			ar.Get("/exams", ListExamsHandler(d.Store))
			ar.Post("/exams", CreateExamHandler(d.Store))
			ar.Put("/exams/{examID}", UpdateExamHandler(d.Store))
			ar.Delete("/exams/{examID}", DeleteExamHandler(d.Store))

			ar.Post("/sections", CreateSectionHandler(d.Store))
			ar.Put("/sections/{sectionID}", UpdateSectionHandler(d.Store))
			ar.Delete("/sections/{sectionID}", DeleteSectionHandler(d.Store))
			ar.Get("/sections/{sectionID}/questions", ListAdminQuestionsHandler(d.Store))

			ar.Post("/questions", CreateQuestionHandler(d.Store))
			ar.Put("/questions/{questionID}", UpdateQuestionHandler(d.Store))
			ar.Delete("/questions/{questionID}", DeleteQuestionHandler(d.Store))

			ar.With(rbac.Require(rbac.PermResultView)).Get("/results", ListResultsHandler(d.Store))
			ar.With(rbac.Require(rbac.PermResultView)).Get("/results/{resultID}", GetResultHandler(d.Store))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.Ping(r.Context()); err != nil {
			errs.WriteMessage(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}
	return r
}
