package routes

import (
	"case-management-api/controllers"
	"case-management-api/middleware"
	"case-management-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Case Management API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)

			// CSV import pipeline
			imports := protected.Group("/import")
			{
				imports.POST("", controllers.UploadImport)
				imports.POST("/validate", controllers.ValidateImport)
				imports.GET("/history", controllers.GetImportHistory)
				imports.GET("/:batchId/status", controllers.GetImportStatus)
				imports.GET("/:batchId/errors", controllers.GetImportErrors)

				// Only admins can cancel a running batch
				imports.POST("/:batchId/cancel", middleware.RequireRole(models.RoleAdmin), controllers.CancelImport)
			}

			// Cases
			cases := protected.Group("/cases")
			{
				cases.GET("", controllers.GetCases)
				cases.GET("/:id", controllers.GetCase)
				cases.POST("", middleware.RequireRole(models.RoleDataEntry), controllers.CreateCase)
				cases.PUT("/:id", middleware.RequireRole(models.RoleDataEntry), controllers.UpdateCase)
				cases.DELETE("/:id", middleware.RequireRole(models.RoleAdmin), controllers.DeleteCase)
			}

			// Master data
			protected.GET("/courts", controllers.GetCourts)
			protected.GET("/courts/:id", controllers.GetCourt)
			protected.GET("/judges", controllers.GetJudges)

			// Dashboard
			dashboard := protected.Group("/dashboard")
			{
				dashboard.GET("/stats", controllers.GetDashboardStats)
				dashboard.GET("/recent-activity", controllers.GetRecentActivity)
			}
		}
	}
}
