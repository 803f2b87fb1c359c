package api

import (
	"Synapse/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all the routes for the card service. limiter may be nil.
func RegisterRoutes(router *gin.Engine, api *API, jwtSecret string, limiter *ratelimiter.KeyedLimiter) {
	router.GET("/healthz", api.HealthHandler)

	// All routes will be under /api/v1
	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware(jwtSecret))
	if limiter != nil {
		v1.Use(UserRateLimit(limiter))
	}

	cards := v1.Group("/cards")
	{
		cards.POST("", api.CreateCardHandler)
		cards.POST("/upload", api.UploadCardHandler)
		cards.GET("", api.ListCardsHandler)
		cards.DELETE("/:id", api.DeleteCardHandler)
		cards.POST("/:id/qna", api.GenerateQnAHandler)
		cards.GET("/:id/export", api.ExportCardHandler)
	}

	clusters := v1.Group("/clusters")
	{
		clusters.GET("", api.ListClustersHandler)
		clusters.POST("/recompute", api.RecomputeClustersHandler)
	}
}
