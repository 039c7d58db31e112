package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	authmw "github.com/mind-engage/mindengage-exams/internal/auth/middleware"
	"github.com/mind-engage/mindengage-exams/internal/exam"
)

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestAdminCredentials(t *testing.T) {
	plain, err := NewAdminCredentials("admin", "", "changeme")
	if err != nil {
		t.Fatal(err)
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	hashed, err := NewAdminCredentials("root", string(hash), "ignored")
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		c          AdminCredentials
		user, pass string
		want       bool
	}{
		{plain, "admin", "changeme", true},
		{plain, "admin", "changeme ", false},
		{plain, "Admin", "changeme", false},
		{plain, "", "", false},
		{hashed, "root", "s3cret", true},
		{hashed, "root", "ignored", false},
	}
	for _, tc := range cases {
		if got := tc.c.Check(tc.user, tc.pass); got != tc.want {
			t.Errorf("Check(%q,%q)=%v want %v", tc.user, tc.pass, got, tc.want)
		}
	}
	if _, err := NewAdminCredentials("admin", "not-bcrypt", ""); err == nil {
		t.Fatal("accepted a non-bcrypt hash")
	}
}

func TestAdminLoginHandler(t *testing.T) {
	a := authmw.NewAuthService("k", time.Hour)
	creds, _ := NewAdminCredentials("admin", "", "changeme")
	h := AdminLoginHandler(a, creds)

	rec := post(h, `{"username":"admin","password":"changeme"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
	}
	var out struct{ Token string }
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	c, err := a.Verify(out.Token, exam.RoleAdmin)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if c.Username != "admin" || c.Subject != "admin" {
		t.Fatalf("claims=%+v", c)
	}

	if rec := post(h, `{"username":"admin","password":"wrong"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status=%d", rec.Code)
	}
	if rec := post(h, `{`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json status=%d", rec.Code)
	}
}

// memUsers is an in-memory upserter keyed by normalized email.
type memUsers struct {
	mu    sync.Mutex
	byKey map[string]exam.User
}

func (m *memUsers) UpsertStudent(_ context.Context, name *string, email string) (exam.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	if u, ok := m.byKey[email]; ok {
		return u, false, nil
	}
	u := exam.User{ID: int64(len(m.byKey) + 1), Name: name, Email: email, Role: exam.RoleStudent}
	m.byKey[email] = u
	return u, true, nil
}

func TestStudentLoginHandler(t *testing.T) {
	a := authmw.NewAuthService("k", time.Hour)
	users := &memUsers{byKey: map[string]exam.User{}}
	h := StudentLoginHandler(a, users)

	rec := post(h, `{"name":"Ada","email":" Ada@Example.com "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
	}
	var out struct {
		Token string `json:"token"`
		User  struct {
			ID    int64   `json:"id"`
			Name  *string `json:"name"`
			Email string  `json:"email"`
			Role  *string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.User.ID != 1 || out.User.Email != "ada@example.com" || out.User.Name == nil || *out.User.Name != "Ada" {
		t.Fatalf("user=%+v", out.User)
	}
	c, err := a.Verify(out.Token, exam.RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	if c.UserID != 1 || c.Name != "Ada" || c.Email != "ada@example.com" || c.Subject != "1" {
		t.Fatalf("claims=%+v", c)
	}

	// same email logs into the same user
	rec = post(h, `{"email":"ada@example.com"}`)
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out.User.ID != 1 {
		t.Fatalf("second login id=%d", out.User.ID)
	}

	for _, body := range []string{`{}`, `{"name":"x"}`, `{"email":"   "}`, `{"email":"not-an-email"}`, `[`} {
		if rec := post(h, body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status=%d want 400", body, rec.Code)
		}
	}
}
