package v1

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jason-czar/freedomains/api/v1/auth"
	"github.com/jason-czar/freedomains/api/v1/domains"
	"github.com/jason-czar/freedomains/api/v1/middleware"
	"github.com/jason-czar/freedomains/internal/config"
	"github.com/jason-czar/freedomains/internal/httpx"
	"github.com/jason-czar/freedomains/internal/registration"
)

// SetupRouter sets up the API v1 routes
func SetupRouter(r *gin.Engine, db *gorm.DB, cfg *config.Config,
	svc *registration.Service, records domains.RecordLister) {
	v1 := r.Group("/api/v1")
	{
		// Public routes (no authentication required)
		v1.GET("/ping", pingHandler)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", auth.RegisterHandler(db))
			authGroup.POST("/login", auth.LoginHandler(db, cfg))
		}

		// Protected routes (authentication required)
		protected := v1.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/me", meHandler)

			domainsHandler := domains.NewHandler(svc, records)
			domainsGroup := protected.Group("/domains")
			{
				domainsGroup.GET("", domainsHandler.List)
				domainsGroup.POST("", domainsHandler.Create)
				domainsGroup.GET("/check", domainsHandler.CheckAvailable)
				domainsGroup.GET("/:id", domainsHandler.Get)
				domainsGroup.DELETE("/:id", domainsHandler.Delete)
				domainsGroup.POST("/:id/suspend", domainsHandler.Suspend)
				domainsGroup.POST("/:id/renew", domainsHandler.Renew)

				domainsGroup.GET("/:id/dns-records", domainsHandler.ListRecords)
				domainsGroup.POST("/:id/dns-records", domainsHandler.AddRecord)
				domainsGroup.DELETE("/:id/dns-records/:role", domainsHandler.RemoveRecord)
				domainsGroup.POST("/:id/delegate", domainsHandler.Delegate)
				domainsGroup.POST("/:id/recheck-verification", domainsHandler.Recheck)

				domainsGroup.POST("/:id/email", domainsHandler.EnableEmail)
				domainsGroup.DELETE("/:id/email", domainsHandler.DisableEmail)
				domainsGroup.PUT("/:id/forwarding", domainsHandler.SetForwarding)
				domainsGroup.DELETE("/:id/forwarding", domainsHandler.ClearForwarding)
			}
		}
	}
}

// pingHandler handles the ping request using unified response
func pingHandler(c *gin.Context) {
	httpx.OK(c, gin.H{
		"pong": true,
	})
}

// meHandler returns current owner information
func meHandler(c *gin.Context) {
	ownerID, _ := c.Get("owner_id")
	email, _ := c.Get("email")

	httpx.OK(c, gin.H{
		"id":    ownerID,
		"email": email,
	})
}
