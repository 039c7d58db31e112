package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mind-engage/mindengage-exams/internal/errs"
	"github.com/mind-engage/mindengage-exams/internal/rbac"
)

const (
	Issuer     = "mindengage-exams"
	DefaultTTL = 8 * time.Hour
)

type AuthService struct {
	hmac []byte
	ttl  time.Duration
	now  func() time.Time
}

func NewAuthService(secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &AuthService{hmac: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the issuing clock. Verification always uses wall time.
func (a *AuthService) WithClock(now func() time.Time) *AuthService {
	a.now = now
	return a
}

// Claims identify either the configured admin (Username set, UserID zero) or
// a student user row (UserID, Name, Email set). Subject mirrors the identity.
type Claims struct {
	Role     string `json:"role"`
	UserID   int64  `json:"user_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(c Claims) (string, error) {
	now := a.now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   c.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &c)
	s, err := t.SignedString(a.hmac)
	if err != nil {
		return "", errs.Internal("issue token", err)
	}
	return s, nil
}

// Parse checks signature, algorithm and expiry. Any failure is
// Unauthenticated.
func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, errs.Unauthenticated("missing token")
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(Issuer),
	)
	if err != nil || !token.Valid {
		return nil, errs.Unauthenticated("invalid or expired token")
	}
	c, ok := token.Claims.(*Claims)
	if !ok || c.Role == "" {
		return nil, errs.Unauthenticated("invalid token claims")
	}
	return c, nil
}

// Verify parses the token and, when requiredRole is set, demands that role.
func (a *AuthService) Verify(tokenStr, requiredRole string) (*Claims, error) {
	c, err := a.Parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if requiredRole != "" && c.Role != requiredRole {
		return nil, errs.Forbidden("forbidden")
	}
	return c, nil
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// JWTMiddleware rejects requests without a valid bearer token and stores the
// claims, subject and role in the request context.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := BearerToken(r)
			if tok == "" {
				errs.Write(w, errs.Unauthenticated("missing bearer token"))
				return
			}
			c, err := a.Parse(tok)
			if err != nil {
				errs.Write(w, err)
				return
			}
			ctx := WithClaims(r.Context(), c)
			ctx = WithSubject(ctx, c.Subject)
			ctx = rbac.WithRole(ctx, c.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
