package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"ira/internal/apierr"
)

type contextKey string

const userContextKey contextKey = "ira_user"

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userContextKey).(*User)
	return u, ok
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return token, token != ""
}

// JWTMiddleware rejects requests without a valid bearer token and puts the
// token's user into the request context.
func JWTMiddleware(svc *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				apierr.Write(w, apierr.Auth("Not authorized, no token"))
				return
			}
			userID, err := svc.VerifyToken(token)
			if err != nil {
				apierr.Write(w, err)
				return
			}
			user, err := svc.ResolveUser(r.Context(), userID)
			if err != nil {
				if errors.Is(err, ErrUserNotFound) {
					apierr.Write(w, apierr.Auth("Not authorized, user not found"))
					return
				}
				logger.Error("resolve token user", "err", err, "user_id", userID)
				apierr.Write(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
