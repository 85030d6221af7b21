package routes

import (
	"event-management-api/controllers"
	"event-management-api/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Event Management API is running",
				})
			})

			// Registration flow (acting user id is optional, for audit)
			public.GET("/lotes", controllers.GetLotes)
			public.POST("/registrations", middleware.OptionalAuthMiddleware(), controllers.CreateRegistration)

			// Reviewer candidacy intake
			public.POST("/candidacies", controllers.CreateCandidacy)

			// Review access by locator + access code
			public.GET("/review/:locator", controllers.OpenReview)
			public.POST("/review/:locator", controllers.SubmitReview)
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Candidacy management (3 = admin)
			candidacies := protected.Group("/candidacies")
			{
				candidacies.GET("", middleware.RequireRole(3), controllers.GetCandidacies)
				candidacies.POST("/:id/approve", middleware.RequireRole(3), controllers.ApproveCandidacy)
			}

			// Assignments
			assignments := protected.Group("/assignments")
			{
				assignments.GET("", middleware.RequireRole(3), controllers.GetAssignments)
				assignments.POST("", middleware.RequireRole(3), controllers.CreateAssignment)
				assignments.POST("/distribute", middleware.RequireRole(3), controllers.DistributeAssignments)
			}

			// Audit log
			protected.GET("/audit-events", middleware.RequireRole(3), controllers.GetAuditEvents)
		}
	}
}
