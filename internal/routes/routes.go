package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopemx/internal/handlers"
	"shopemx/internal/middleware"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Verify   *handlers.VerifyHandler
	Profile  *handlers.ProfileHandler
	Document *handlers.DocumentHandler
	Sell     *handlers.SellHandler
	Buy      *handlers.BuyHandler
	Admin    *handlers.AdminHandler
}

func SetupRoutes(
	r *gin.Engine,
	h Handlers,
	sessions middleware.SessionValidator,
	cookie middleware.CookieConfig,
) *gin.Engine {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// ---- public
	auth := r.Group("/auth")
	{
		auth.POST("/check-phone", h.Auth.CheckPhone)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/register", h.Auth.Register)

		// logout работает и без сессии: просто чистит куку
		optional := auth.Group("", middleware.OptionalAuth(sessions, cookie))
		optional.POST("/logout", h.Auth.Logout)
		optional.GET("/logout", h.Auth.Logout)
	}
	r.GET("/offers", h.Sell.ListActive)

	// ---- protected
	protected := r.Group("", middleware.AuthMiddleware(sessions, cookie))

	authed := protected.Group("/auth")
	{
		authed.POST("/verify", h.Auth.Verify)
		authed.POST("/send-verification-code", h.Verify.SendCode)
		authed.POST("/verify-code", h.Verify.VerifyCode)
		authed.POST("/verify-password", h.Auth.VerifyPassword)
		authed.POST("/change-password", h.Auth.ChangePassword)
	}
	protected.GET("/user", h.Auth.Me)

	// PROFILE
	profile := protected.Group("/profile")
	{
		profile.PUT("", h.Profile.Update)
		profile.PUT("/bank-details", h.Profile.UpdateBank)
		profile.POST("/verification-request", h.Profile.RequestVerification)
		profile.GET("/verification-request", h.Profile.ListRequests)
	}

	// DOCUMENTS
	protected.POST("/upload-document", h.Document.Upload)
	protected.GET("/get-document", h.Document.Get)
	protected.DELETE("/delete-document", h.Document.Delete)

	// SELL
	sell := protected.Group("/sell")
	{
		sell.POST("/create-offer", h.Sell.CreateOffer)
		sell.POST("/confirm-offer/:id", h.Sell.ConfirmOffer)
		sell.POST("/cancel-offer/:id", h.Sell.CancelOffer)
		sell.POST("/decline-offer/:id", h.Sell.DeclineOffer)
	}
	protected.GET("/offers/:id", h.Sell.Get)

	// BUY
	buy := protected.Group("/buy")
	{
		buy.POST("", h.Buy.Buy)
		buy.POST("/confirm-purchase/:id", h.Buy.ConfirmPurchase)
		buy.GET("/generate-contract/:id", h.Buy.GenerateContract)
	}

	// TRANSACTIONS
	tx := protected.Group("/transactions")
	{
		tx.GET("/sales", h.Buy.Sales)
		tx.GET("/purchases", h.Buy.Purchases)
	}

	// ADMIN
	admin := protected.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/verification-requests", h.Admin.ListRequests)
		admin.POST("/verification-requests/:id/approve", h.Admin.Approve)
		admin.POST("/verification-requests/:id/reject", h.Admin.Reject)
		admin.GET("/users", h.Admin.ListUsers)
		admin.GET("/users/export", h.Admin.ExportUsers)
		admin.GET("/users/:id/document", h.Admin.UserDocument)
	}

	return r
}
