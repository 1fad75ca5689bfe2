package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vedran77/xchat/pkg/domain"
)

type contextKey string

const CallerKey contextKey = "caller"

// Auth resolves the caller from the Authorization header. The header holds
// the caller's name as is. When jwtSecret is set, "Bearer <token>" signed
// with HS256 is accepted too and its subject is the name.
func Auth(jwtSecret string, unauthorized func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := callerFromHeader(r.Header.Get("Authorization"), jwtSecret)
			if err != nil {
				unauthorized(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func callerFromHeader(header, jwtSecret string) (domain.Name, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return domain.Name{}, fmt.Errorf("%w: missing Authorization header", domain.ErrUnauthenticated)
	}

	raw := header
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && jwtSecret != "" {
		sub, err := subjectFromToken(token, jwtSecret)
		if err != nil {
			return domain.Name{}, err
		}
		raw = sub
	}

	name, err := domain.ParseName(raw)
	if err != nil {
		return domain.Name{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	return name, nil
}

func subjectFromToken(tokenStr, secret string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: invalid or expired token", domain.ErrUnauthenticated)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: token has no subject", domain.ErrUnauthenticated)
	}
	return sub, nil
}

func WithCaller(ctx context.Context, caller domain.Name) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

// Caller returns the authenticated caller. It panics outside Auth, which is
// a routing bug.
func Caller(ctx context.Context) domain.Name {
	caller, ok := ctx.Value(CallerKey).(domain.Name)
	if !ok {
		panic(errors.New("middleware: no caller in context"))
	}
	return caller
}
