package app

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"tribe-notify.io/notify/internal/api/handlers"
	"tribe-notify.io/notify/internal/api/middleware"
	"tribe-notify.io/notify/internal/config"
)

// Public routes that do NOT require JWT authentication. Preference
// links carry their own signed token in the path.
var publicPrefixes = []string{
	"/api/v1/health/",
	"/api/v1/preferences/",
}

func newRouter(cfg *config.Config, server *handlers.Server, signingKey []byte) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.ErrorHandler())
	if len(cfg.Server.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	router.Use(jwtSkipPublic(signingKey))

	v1 := router.Group("/api/v1")
	v1.GET("/health/live", server.GetLiveness)
	v1.GET("/health/ready", server.GetReadiness)

	v1.POST("/groups/:groupID/updates/:updateID/notifications", server.CreateNotifications)
	v1.GET("/groups/:groupID/analytics", server.GetAnalytics)
	v1.POST("/notifications/process", server.ProcessNotifications)

	v1.POST("/recipients/:recipientID/preference-links", server.IssuePreferenceLink)
	v1.GET("/preferences/:token", server.GetPreferences)
	v1.PUT("/preferences/:token", server.UpdatePreferences)

	return router
}

// jwtSkipPublic returns middleware that applies JWT auth only on non-public routes.
func jwtSkipPublic(signingKey []byte) gin.HandlerFunc {
	jwtMw := middleware.JWTAuth(signingKey)
	return func(c *gin.Context) {
		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}
		jwtMw(c)
	}
}
