package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caban7m/GymRat/internal/billing"
	"github.com/caban7m/GymRat/internal/entitlement"
	"github.com/caban7m/GymRat/internal/repository"
	"github.com/caban7m/GymRat/internal/service"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	webhookSecret string,
	authService service.AuthService,
	planService service.PlanService,
	catalogService service.CatalogService,
	billingClient billing.Client,
	billingFeed *billing.Feed,
	sessions *entitlement.SessionManager,
	entitlementRepo repository.EntitlementRepository,
) {

	authHandler := NewAuthHandler(authService, sessions)
	planHandler := NewPlanHandler(planService, catalogService)
	billingHandler := NewBillingHandler(billingClient, billingFeed, sessions, entitlementRepo)
	webhookHandler := NewWebhookHandler(entitlementRepo, webhookSecret)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Provider-facing, no auth middleware; the handler checks the bearer
	// secret and the method itself (registered with Any so non-POST gets
	// a 405 from us, not a gin 404).
	router.Any("/webhooks/revenuecat", webhookHandler.Handle)

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.POST("/auth/logout", authHandler.Logout)

		protected.GET("/me", func(c *gin.Context) {
			userID, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": userID.Hex()})
		})

		// --- Plan Routes ---
		planGroup := protected.Group("/plan")
		{
			planGroup.GET("", planHandler.GetPlan)
			planGroup.POST("", planHandler.AssignPlan)
			planGroup.DELETE("", planHandler.ResetPlan)
			planGroup.POST("/preview", planHandler.PreviewPlan)
		}

		// --- Catalog Routes ---
		protected.GET("/templates", planHandler.ListTemplates)
		exerciseGroup := protected.Group("/exercises")
		{
			exerciseGroup.GET("/:id", planHandler.GetExercise)
			exerciseGroup.POST("/:id/image-url", planHandler.RequestExerciseImageURL)
			exerciseGroup.POST("/:id/image-confirm", planHandler.ConfirmExerciseImage)
		}

		// --- Billing & Entitlement Routes ---
		billingGroup := protected.Group("/billing")
		{
			billingGroup.GET("/offerings", billingHandler.GetOfferings)
			billingGroup.POST("/purchase", billingHandler.PurchaseCompleted)
			billingGroup.POST("/restore", billingHandler.RestoreCompleted)
		}
		protected.GET("/entitlement", billingHandler.GetEntitlement)
		protected.POST("/entitlement/refresh", billingHandler.RefreshEntitlement)
	}
}
