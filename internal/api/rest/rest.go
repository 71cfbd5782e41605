package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-media-ledger/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		// Likes
		v1.POST("/likes/toggle", handler.ToggleLike)
		v1.GET("/likes/status", handler.GetLikeStatus)
		v1.GET("/users/:fid/likes", handler.GetLikedMedia)
		v1.GET("/users/:fid/likes/stream", handler.StreamLikedMedia)

		// Plays
		v1.POST("/plays/sessions", handler.CreatePlaySession)
		v1.POST("/plays/sessions/:id/progress", handler.TrackProgress)
		v1.POST("/plays/sessions/:id/reset", handler.ResetPlaySession)
		v1.DELETE("/plays/sessions/:id", handler.DeletePlaySession)
		v1.GET("/users/:fid/plays/recent", handler.GetRecentlyPlayed)
		v1.GET("/top-played", handler.GetTopPlayed)

		// Maintenance (requires authentication)
		admin := v1.Group("/admin", middleware.Auth(authCfg))
		admin.POST("/top-played/refresh", handler.RefreshTopPlayed)
		admin.POST("/repair", handler.RepairLikeAggregate)
		admin.POST("/users/:fid/migrate", handler.MigrateUserLikes)
	}
}
