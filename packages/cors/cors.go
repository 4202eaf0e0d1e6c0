package cors

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultOrigin = "http://localhost:3000"

// CORS возвращает настроенный CORS middleware.
// origins - адреса фронтенда из FRONT_URLS
func CORS(origins []string, log *zap.Logger) gin.HandlerFunc {

	allowedOrigins := origins
	if len(allowedOrigins) == 0 {
		log.Warn("⚠️  FRONT_URLS не задан, используем " + defaultOrigin)
		allowedOrigins = []string{defaultOrigin}
	}

	// Authorization нужен для bearer токенов, Content-Disposition для выгрузки xlsx
	allowHeaders := []string{
		"Origin",
		"Content-Type",
		"Authorization",
		"Accept",
		"X-Requested-With",
		"X-Request-ID",
	}

	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     allowHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
