package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"healthrisk/packages/auth"
	"healthrisk/packages/cors"
	"healthrisk/packages/middleware"
	"healthrisk/packages/mongodb"
	"healthrisk/packages/predict"
)

// Максимальный размер тела запроса (xlsx для пакетного прогноза)
const maxBodyBytes = 10 << 20

// Deps - зависимости маршрутов
type Deps struct {
	DB           mongodb.Pinger
	Auth         *auth.Handler
	Predict      *predict.Handler
	RequireAuth  gin.HandlerFunc
	RequireAdmin gin.HandlerFunc
	LoginLimit   gin.HandlerFunc
	Origins      []string
	Log          *zap.Logger
}

// NewRouter собирает gin с глобальными middleware и маршрутами
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(deps.Log),
		cors.CORS(deps.Origins, deps.Log),
		middleware.BodyLimit(maxBodyBytes),
	)

	RegisterRoutes(router, deps)
	return router
}

func RegisterRoutes(r *gin.Engine, deps Deps) {

	r.GET("/ping", healthCheck)
	r.GET("/api/health", func(c *gin.Context) { apiHealth(c, deps) })

	authGroup := r.Group("/api/auth")
	deps.Auth.RegisterRoutes(authGroup, deps.RequireAuth, deps.LoginLimit)

	predictGroup := r.Group("/api/predict", deps.RequireAuth)
	deps.Predict.RegisterRoutes(predictGroup)

	adminGroup := r.Group("/api/admin", deps.RequireAuth, deps.RequireAdmin)
	deps.Predict.RegisterAdminRoutes(adminGroup)

}

// Проверка доступности сервера
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Проверка сервера и базы
func apiHealth(c *gin.Context, deps Deps) {
	if err := deps.DB.Ping(c.Request.Context()); err != nil {
		deps.Log.Warn("❌ MongoDB не доступна", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
}
