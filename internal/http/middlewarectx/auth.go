// Package middlewarectx содержит HTTP middleware сервиса: проверку bearer-токена,
// ограничение частоты запросов по IP и заголовки для встраивания виджета.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/voicebot-billing/internal/http/response"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// User ключ идентификатора пользователя в контексте.
	User Key = "user_id"
	// Role ключ роли пользователя в контексте.
	Role Key = "role"
)

// TokenParser разбирает платформенный bearer-токен.
type TokenParser interface {
	ParseUserToken(tokenStr string) (*jwt.UserClaims, error)
}

// JWTMiddleware проверяет токен в заголовке Authorization и кладёт
// идентификатор пользователя и роль в контекст. Иначе отвечает 401.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Info("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("Unauthorized"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := parser.ParseUserToken(tokenStr)
			if err != nil {
				log.Info("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("Unauthorized"))
				return
			}

			ctx := context.WithValue(r.Context(), User, claims.Subject)
			ctx = context.WithValue(ctx, Role, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID возвращает идентификатор пользователя, положенный JWTMiddleware.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(User).(string)
	return id, ok && id != ""
}
