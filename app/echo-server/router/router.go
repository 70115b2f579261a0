package router

import (
	"net/http"

	"electroCare/business/policy"
	"electroCare/internal/middleware"
	"electroCare/internal/rest"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func can(action policy.Action) echo.MiddlewareFunc {
	return middleware.RequireAction(action)
}

func SetupSystemRoutes(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func SetupAuthRoutes(api *echo.Group, handler *rest.UserHandler, authRequired, rateLimit echo.MiddlewareFunc) {
	auth := api.Group("/auth")

	auth.POST("/register", handler.Register, rateLimit)
	auth.POST("/login", handler.Login, rateLimit)
	auth.POST("/forgot-password", handler.ForgotPassword, rateLimit)
	auth.POST("/reset-password", handler.ResetPassword, rateLimit)
	auth.GET("/email-verification/:code", handler.VerifyEmail)

	auth.POST("/logout", handler.Logout, authRequired)
	auth.GET("/me", handler.Me, authRequired)
}

func SetupRepairRoutes(api *echo.Group, handler *rest.RepairHandler, authRequired echo.MiddlewareFunc) {
	repairs := api.Group("/repairs", authRequired)

	repairs.POST("", handler.Create, can(policy.RepairCreate))
	repairs.GET("/my", handler.ListMine)
	repairs.GET("/assigned", handler.ListQueue, can(policy.RepairViewQueue))
	repairs.GET("/tech-assigned", handler.ListTechQueue, can(policy.RepairViewTechQueue))
	repairs.POST("/accept/:id", handler.Accept, can(policy.RepairAccept))
	repairs.GET("/:id", handler.Get)
	repairs.PATCH("/:id", handler.UpdateStatus, can(policy.RepairUpdateStatus))
	repairs.POST("/:id/assign", handler.AssignTechnician, can(policy.RepairAssign))
	repairs.POST("/:id/tracking", handler.Track, can(policy.RepairTrack))
}

func SetupMarketplaceRoutes(api *echo.Group, handler *rest.MarketplaceHandler, authRequired echo.MiddlewareFunc) {
	market := api.Group("/marketplace", authRequired)

	market.POST("", handler.PostListing, can(policy.ListingCreate))
	market.GET("", handler.ListListings)
	market.GET("/my", handler.ListMine)
	market.GET("/review", handler.ReviewQueue, can(policy.ListingReview))
	market.POST("/purchase", handler.Purchase, can(policy.PurchaseCreate))
	market.GET("/purchases/my", handler.ListMyPurchases, can(policy.PurchaseCreate))
	market.POST("/purchases/:id/complete", handler.CompletePurchase, can(policy.PurchaseCreate))
}

func SetupWalletRoutes(api *echo.Group, handler *rest.WalletHandler, authRequired echo.MiddlewareFunc) {
	wallet := api.Group("/wallet", authRequired, can(policy.WalletUse))

	wallet.GET("", handler.GetWallet)
	wallet.GET("/transactions", handler.ListTransactions)
	wallet.GET("/withdrawals", handler.ListMyWithdrawals)
	wallet.POST("/top-up", handler.TopUp)
	wallet.POST("/redeem", handler.RedeemPoints)
	wallet.POST("/redeem-coins", handler.RedeemElectroCoins)
	wallet.POST("/withdraw", handler.Withdraw)
}

func SetupRecruitmentRoutes(api *echo.Group, handler *rest.RecruitmentHandler, authRequired echo.MiddlewareFunc) {
	recruitment := api.Group("/recruitment", authRequired)

	recruitment.POST("/apply-technician", handler.ApplyTechnician, can(policy.ApplicationSubmit))
	recruitment.POST("/apply-delivery", handler.ApplyDelivery, can(policy.ApplicationSubmit))
	recruitment.GET("/my", handler.ListMine)
}

type AdminHandlers struct {
	Users       *rest.UserHandler
	Marketplace *rest.MarketplaceHandler
	Wallet      *rest.WalletHandler
	Recruitment *rest.RecruitmentHandler
	Broadcast   *rest.BroadcastHandler
	Shops       *rest.ShopHandler
}

// SetupAdminRoutes mounts review and management endpoints. Listing review
// is shared with shops and technicians, the rest is admin only.
func SetupAdminRoutes(api *echo.Group, h AdminHandlers, authRequired echo.MiddlewareFunc) {
	admin := api.Group("/admin", authRequired)

	admin.POST("/approve-sale", h.Marketplace.ApproveSale, can(policy.ListingReview))
	admin.POST("/reject-sale", h.Marketplace.RejectSale, can(policy.ListingReview))

	admin.POST("/approve-purchase", h.Marketplace.ApprovePurchase, can(policy.PurchaseReview))
	admin.POST("/reject-purchase", h.Marketplace.RejectPurchase, can(policy.PurchaseReview))
	admin.GET("/purchases", h.Marketplace.ListPurchases, can(policy.PurchaseReview))

	admin.POST("/approve-withdrawal", h.Wallet.ApproveWithdrawal, can(policy.WithdrawalReview))
	admin.POST("/reject-withdrawal", h.Wallet.RejectWithdrawal, can(policy.WithdrawalReview))
	admin.GET("/withdrawals", h.Wallet.ListWithdrawals, can(policy.WithdrawalReview))

	admin.GET("/applications", h.Recruitment.ListPending, can(policy.ApplicationReview))
	admin.POST("/applications/:id/approve", h.Recruitment.Approve, can(policy.ApplicationReview))
	admin.POST("/applications/:id/reject", h.Recruitment.Reject, can(policy.ApplicationReview))

	admin.POST("/broadcast", h.Broadcast.Broadcast, can(policy.BroadcastSend))

	admin.GET("/users", h.Users.GetAllUsers, can(policy.UserManage))
	admin.PUT("/users/:id/role", h.Users.UpdateRole, can(policy.UserManage))
	admin.POST("/shops", h.Shops.CreateShop, can(policy.UserManage))
}

func SetupShopRoutes(api *echo.Group, handler *rest.ShopHandler, authRequired echo.MiddlewareFunc) {
	api.GET("/shops", handler.ListShops, authRequired)
}

func SetupUploadRoutes(api *echo.Group, handler *rest.UploadHandler, authRequired echo.MiddlewareFunc, maxBytes string) {
	api.POST("/upload", handler.Upload, authRequired, can(policy.UploadCreate), echomiddleware.BodyLimit(maxBytes))
}

func SetupRealtimeRoutes(api *echo.Group, handler *rest.RealtimeHandler, authRequired echo.MiddlewareFunc) {
	api.GET("/realtime", handler.Subscribe, authRequired, can(policy.RealtimeSubscribe))
}
