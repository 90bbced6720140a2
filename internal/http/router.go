package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"city-spots/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	authH *AuthHandler,
	locationH *LocationHandler,
	attendanceH *AttendanceHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging y recovery. No se fuerza JSON
	// global porque /auth/confirm responde con redirects.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	auth := r.Group("/auth")
	auth.POST("/signup", authH.Signup)
	auth.POST("/login", authH.Login)
	auth.POST("/refresh", authH.Refresh)
	auth.POST("/logout", authH.Logout)
	auth.POST("/reset-password", authH.ResetPassword)
	auth.POST("/update-password", authH.UpdatePassword)
	auth.GET("/confirm", authH.Confirm)
	auth.GET("/session", JWTAuthMiddleware(jwtSvc), authH.Session)

	r.GET("/locations", locationH.ListLocations)
	r.GET("/locations/:id", locationH.GetLocation)
	r.GET("/categories", locationH.ListCategories)
	r.GET("/regions", locationH.ListRegions)

	me := r.Group("/me", JWTAuthMiddleware(jwtSvc))
	me.GET("/record", attendanceH.GetRecord)
	me.PUT("/record", attendanceH.UpdateRecord)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
