package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"lumina_shop/internal/controller"
	"lumina_shop/internal/middleware"
)

// Controllers 路由依赖的控制器
type Controllers struct {
	Storefront *controller.StorefrontController
	Shopper    *controller.ShopperController
	Chat       *controller.ChatController
	Locale     *controller.LocaleController
	Admin      *controller.AdminController
}

// Options 路由选项
type Options struct {
	AllowOrigins  []string
	ChatInterval  time.Duration // 同一会话两次提问的最小间隔
	LoginInterval time.Duration // 同一 IP 两次登录的最小间隔
	UploadDir     string        // 本地存储目录，非空时挂载到 /uploads
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctl Controllers, opts Options) {
	r.Use(corsMiddleware(opts.AllowOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}

	limiter := middleware.NewCooldownLimiter()

	api := r.Group("/api", middleware.Session())
	{
		// 目录浏览
		api.GET("/categories", ctl.Storefront.Categories)
		api.GET("/home", ctl.Storefront.Home)
		products := api.Group("/products")
		{
			products.GET("", ctl.Storefront.Products)
			products.GET("/brands", ctl.Storefront.Brands)
			products.GET("/:id", ctl.Storefront.ProductDetail)
		}
		api.GET("/sellers/:id", ctl.Storefront.Seller)

		// 购物车
		cart := api.Group("/cart")
		{
			cart.GET("", ctl.Shopper.Cart)
			cart.DELETE("", ctl.Shopper.ClearCart)
			cart.POST("/items", ctl.Shopper.AddCartItem)
			cart.PATCH("/items/:id", ctl.Shopper.UpdateCartItem)
			cart.DELETE("/items/:id", ctl.Shopper.RemoveCartItem)
		}

		// 心愿单、订单、最近浏览、提示
		api.GET("/wishlist", ctl.Shopper.Wishlist)
		api.POST("/wishlist/:id/toggle", ctl.Shopper.ToggleWishlist)
		api.GET("/orders", ctl.Shopper.Orders)
		api.POST("/checkout", ctl.Shopper.Checkout)
		api.GET("/recently-viewed", ctl.Shopper.RecentlyViewed)
		api.GET("/toast", ctl.Shopper.Toast)
		api.DELETE("/toast", ctl.Shopper.DismissToast)

		// 导购对话
		chatLimit := middleware.Cooldown(limiter, "chat", opts.ChatInterval, middleware.BySession)
		chat := api.Group("/chat")
		{
			chat.GET("", ctl.Chat.Messages)
			chat.POST("", chatLimit, ctl.Chat.Send)
			chat.POST("/ask/:id", chatLimit, ctl.Chat.Ask)
			chat.DELETE("/pending", ctl.Chat.CancelPending)
		}

		// 语言与价格
		locale := api.Group("/locale")
		{
			locale.GET("/price", ctl.Locale.Price)
			locale.GET("/translate", ctl.Locale.Translate)
		}

		// 后台
		api.POST("/admin/login",
			middleware.Cooldown(limiter, "login", opts.LoginInterval, middleware.ByClientIP),
			ctl.Admin.Login)
		admin := api.Group("/admin", middleware.JWTAuth())
		{
			admin.GET("/dashboard", ctl.Admin.Dashboard)

			admin.GET("/products", ctl.Admin.Products)
			admin.POST("/products", ctl.Admin.CreateProduct)
			admin.PUT("/products/:id", ctl.Admin.UpdateProduct)
			admin.DELETE("/products/:id", ctl.Admin.DeleteProduct)
			admin.POST("/products/:id/images", ctl.Admin.UploadImage)

			admin.GET("/orders", ctl.Admin.Orders)
			admin.POST("/orders", ctl.Admin.CreateOrder)
			admin.PATCH("/orders/:id/status", ctl.Admin.UpdateOrderStatus)

			admin.GET("/sellers", ctl.Admin.Sellers)
			admin.POST("/sellers/:id/verify", ctl.Admin.VerifySeller)

			admin.GET("/coupons", ctl.Admin.Coupons)
			admin.POST("/coupons", ctl.Admin.CreateCoupon)
			admin.DELETE("/coupons/:id", ctl.Admin.DeleteCoupon)

			admin.GET("/ai/usage", ctl.Admin.AIUsage)
		}
	}
}

// corsMiddleware 前端跨域调用，需暴露会话头
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", middleware.SessionHeader)
	cfg.ExposeHeaders = []string{middleware.SessionHeader, controller.StateLoadHeader}
	cfg.MaxAge = 12 * time.Hour
	return cors.New(cfg)
}
