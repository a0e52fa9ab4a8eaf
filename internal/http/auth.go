package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"trainingclub/internal/core"
	clublog "trainingclub/internal/log"
)

type principalKey struct{}

// Principal is the authenticated caller. Subject is the member id.
type Principal struct {
	Subject string
	Role    core.Role
}

// Claims are the bearer token claims: the standard set plus the club role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator validates HS256 bearer tokens. With an empty secret every
// request runs as an anonymous Admin, which is meant for local use only.
type Authenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.secret) > 0
}

// IssueToken signs a token for subject with role, valid for ttl.
func (a *Authenticator) IssueToken(subject string, role core.Role, ttl time.Duration) (string, error) {
	if !a.Enabled() {
		return "", errors.New("auth disabled: JWT secret not configured")
	}
	now := a.now()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates tokenString and returns its principal.
func (a *Authenticator) ParseToken(tokenString string) (Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid token: %w", err)
	}

	role, err := core.ParseRole(claims.Role)
	if err != nil {
		return Principal{}, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Principal{}, errors.New("token without subject")
	}
	return Principal{Subject: claims.Subject, Role: role}, nil
}

// Middleware authenticates the Authorization header and stores the
// principal in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			ctx := context.WithValue(r.Context(), principalKey{}, Principal{Role: core.RoleAdmin})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			UnauthorizedError("authorization header required").Write(w)
			return
		}
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			UnauthorizedError("invalid authorization format, use: Bearer <token>").Write(w)
			return
		}

		p, err := a.ParseToken(strings.TrimSpace(tokenString))
		if err != nil {
			fields := clublog.NewFields().WithError(err).WithHTTPRequest(r.Method, r.URL.Path, "", "", "")
			clublog.FromContext(r.Context()).WithComponent(clublog.ComponentAuth).
				WarnContext(r.Context(), "Rejected bearer token", fields.ToSlice()...)
			UnauthorizedError("invalid or expired token").Write(w)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects callers whose role ranks below required.
func RequireRole(required core.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				UnauthorizedError("authentication required").Write(w)
				return
			}
			if !p.Role.Allows(required) {
				fields := clublog.NewFields().WithMember(p.Subject, string(p.Role)).WithHTTPRequest(r.Method, r.URL.Path, "", "", "")
				clublog.FromContext(r.Context()).WithComponent(clublog.ComponentAuth).
					InfoContext(r.Context(), "Role too low for route", fields.ToSlice()...)
				ForbiddenError(fmt.Sprintf("%s role required", required)).Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFrom returns the caller stored by Middleware.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
