package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clarazen/backend/internal/config"
	"github.com/clarazen/backend/internal/handlers"
	"github.com/clarazen/backend/internal/middleware"
	affiliatesvc "github.com/clarazen/backend/internal/services/affiliate"
	"github.com/clarazen/backend/internal/services/billing"
	"github.com/clarazen/backend/internal/services/wellness"
)

// RegisterRoutes configures all API routes
func RegisterRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, affiliateSvc *affiliatesvc.AffiliateService) {
	// 60 req/s per IP overall, 30 click requests per minute per IP
	rateLimiter := middleware.NewRateLimiter(60, 30, 10, 5)
	router.Use(rateLimiter.IPRateLimiterMiddleware())

	billingSvc := billing.NewBillingService(db, affiliateSvc)
	wellnessSvc := wellness.NewWellnessService(db)

	authHandler := handlers.NewAuthHandler(db, affiliateSvc, cfg.JWT.Expiration)
	affiliateHandler := handlers.NewAffiliateHandler(db, affiliateSvc)
	adminHandler := handlers.NewAdminHandler(db, affiliateSvc)
	billingHandler := handlers.NewBillingHandler(db, billingSvc)
	wellnessHandler := handlers.NewWellnessHandler(db, wellnessSvc)
	webhookHandler := handlers.NewWebhookHandler(db, billingSvc, cfg.Billing.WebhookSecret)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Webhooks - no authentication, verified by signature
	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/payments", webhookHandler.PaymentWebhook)
	}

	v1 := router.Group("/api")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Public click tracking, behind the stricter click limiter
		v1.POST("/affiliates/click", rateLimiter.ClickRateLimiterMiddleware(), affiliateHandler.TrackClick)

		v1.GET("/plans", billingHandler.ListPlans)

		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.POST("/affiliates", affiliateHandler.CreateAffiliate)
			protected.GET("/affiliates/stats", affiliateHandler.GetStats)
			protected.GET("/affiliates/commissions", affiliateHandler.GetCommissions)
			protected.GET("/affiliates/withdrawals", affiliateHandler.GetWithdrawals)
			protected.POST("/affiliates/withdrawals", affiliateHandler.RequestWithdrawal)

			protected.POST("/subscriptions", billingHandler.Subscribe)

			diary := protected.Group("/diary")
			{
				diary.POST("/", wellnessHandler.CreateDiaryEntry)
				diary.GET("/", wellnessHandler.ListDiaryEntries)
			}

			finances := protected.Group("/finances")
			{
				finances.POST("/", wellnessHandler.CreateFinanceEntry)
				finances.GET("/", wellnessHandler.ListFinanceEntries)
			}

			routine := protected.Group("/routine")
			{
				routine.POST("/", wellnessHandler.CreateRoutineTask)
				routine.GET("/", wellnessHandler.ListRoutineTasks)
				routine.PUT("/:id/complete", wellnessHandler.CompleteRoutineTask)
			}

			protected.GET("/reports/weekly", wellnessHandler.GetWeeklyReport)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
		{
			admin.GET("/affiliates", adminHandler.ListAffiliates)
			admin.GET("/affiliates/top", adminHandler.TopAffiliates)
			admin.GET("/withdrawals", adminHandler.ListWithdrawals)
			admin.POST("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
			admin.POST("/withdrawals/:id/reject", adminHandler.RejectWithdrawal)
		}
	}
}
