package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"healthrisk/packages/apperrors"
)

// TokenVerifier проверяет bearer токен и возвращает пользователя
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*Identity, error)
}

// JWTAuth требует заголовок Authorization: Bearer <token>.
// Верификаторы пробуются по порядку, первый успешный побеждает.
func JWTAuth(log *zap.Logger, dev bool, verifiers ...TokenVerifier) gin.HandlerFunc {

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		// В development режиме без токена подставляем dev пользователя
		if dev && authHeader == "" {
			id := devIdentity
			setIdentity(c, &id)
			c.Next()
			return
		}

		if authHeader == "" {
			apperrors.Respond(c, log, apperrors.NewUnauthorizedError("missing authorization header", nil))
			return
		}

		// Извлекаем токен
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			apperrors.Respond(c, log, apperrors.NewUnauthorizedError("invalid authorization format, expected 'Bearer <token>'", nil))
			return
		}

		tokenString := strings.TrimSpace(authHeader[len("Bearer "):])
		if tokenString == "" {
			apperrors.Respond(c, log, apperrors.NewUnauthorizedError("empty bearer token", nil))
			return
		}

		var errs []error
		unavailable := 0
		for _, v := range verifiers {
			id, err := v.Verify(c.Request.Context(), tokenString)
			if err == nil {
				setIdentity(c, id)
				c.Next()
				return
			}
			if errors.Is(err, ErrProviderUnavailable) {
				unavailable++
			}
			errs = append(errs, err)
		}

		err := errors.Join(errs...)
		if unavailable > 0 && unavailable == len(verifiers) {
			apperrors.Respond(c, log, apperrors.NewUnavailableError("authentication service unavailable", err))
			return
		}
		apperrors.Respond(c, log, apperrors.NewUnauthorizedError("invalid token", err))
	}
}

// RequireRole требует роль у текущего пользователя
func RequireRole(log *zap.Logger, role string) gin.HandlerFunc {
	return RequireAnyRole(log, role)
}

// RequireAnyRole требует хотя бы одну из указанных ролей
func RequireAnyRole(log *zap.Logger, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			apperrors.Respond(c, log, apperrors.NewUnauthorizedError("missing token claims", nil))
			return
		}

		for _, role := range roles {
			if id.HasRole(role) {
				c.Next()
				return
			}
		}

		apperrors.Respond(c, log, apperrors.NewForbiddenError("insufficient permissions", nil))
	}
}
