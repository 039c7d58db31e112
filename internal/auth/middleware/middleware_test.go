package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mind-engage/mindengage-exams/internal/errs"
	"github.com/mind-engage/mindengage-exams/internal/rbac"
)

func studentClaims() Claims {
	return Claims{Role: "student", UserID: 7, Name: "Ada", Email: "ada@example.com", RegisteredClaims: jwt.RegisteredClaims{Subject: "7"}}
}

func TestIssueAndVerify(t *testing.T) {
	a := NewAuthService("s3cret", 0)
	tok, err := a.IssueJWT(studentClaims())
	if err != nil {
		t.Fatal(err)
	}
	c, err := a.Verify(tok, "student")
	if err != nil {
		t.Fatal(err)
	}
	if c.UserID != 7 || c.Email != "ada@example.com" || c.Subject != "7" || c.Issuer != Issuer {
		t.Fatalf("claims=%+v", c)
	}
	if got := c.ExpiresAt.Sub(c.IssuedAt.Time); got != DefaultTTL {
		t.Fatalf("ttl=%v want %v", got, DefaultTTL)
	}
	if _, err := a.Verify(tok, "admin"); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("role mismatch err=%v", err)
	}
}

func TestParseRejects(t *testing.T) {
	a := NewAuthService("s3cret", time.Hour)
	good, _ := a.IssueJWT(studentClaims())

	expired, _ := NewAuthService("s3cret", time.Hour).
		WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).
		IssueJWT(studentClaims())
	otherKey, _ := NewAuthService("different", time.Hour).IssueJWT(studentClaims())

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{
		Issuer: Issuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	noneTok, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer}})
	noExpTok, _ := noExp.SignedString([]byte("s3cret"))

	cases := map[string]string{
		"empty":     "",
		"garbage":   "not.a.token",
		"expired":   expired,
		"other key": otherKey,
		"alg none":  noneTok,
		"no exp":    noExpTok,
		"tampered":  good[:len(good)-2] + "xx",
	}
	for name, tok := range cases {
		if _, err := a.Parse(tok); !errors.Is(err, errs.ErrUnauthenticated) {
			t.Errorf("%s: err=%v want unauthenticated", name, err)
		}
	}
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("s3cret", time.Hour)
	tok, _ := a.IssueJWT(studentClaims())

	var gotRole, gotSub string
	var gotClaims *Claims
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole = rbac.RoleFromContext(r.Context())
		gotSub = SubjectFromContext(r.Context())
		gotClaims = ClaimsFromContext(r.Context())
	}))

	for _, hdr := range []string{"", "Basic abc", "Bearer ", "Bearer nope"} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if hdr != "" {
			r.Header.Set("Authorization", hdr)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status=%d", hdr, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("header %q: content-type=%q", hdr, ct)
		}
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
	}
	if gotRole != "student" || gotSub != "7" || gotClaims == nil || gotClaims.UserID != 7 {
		t.Fatalf("context role=%q sub=%q claims=%+v", gotRole, gotSub, gotClaims)
	}
}
