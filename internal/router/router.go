// internal/router/router.go
package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/events"
	"github.com/javajoker/storefront-backend/internal/handlers"
	"github.com/javajoker/storefront-backend/internal/middleware"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/store"
)

// Initialize wires the services onto the HTTP routes. Card payments are only
// offered when Stripe is configured.
func Initialize(cfg *config.Config, st store.Store, bus events.Bus, storageService *services.StorageService, limiters *middleware.RateLimiters) *gin.Engine {
	// Initialize services
	paymentService := services.NewPaymentService(cfg)
	var cardPayments services.CardPayments
	if paymentService.Enabled() {
		cardPayments = paymentService
	}

	authService := services.NewAuthService(st, cfg)
	productService := services.NewProductService(st, bus, storageService)
	cartService := services.NewCartService(st, bus, cfg)
	orderService := services.NewOrderService(st, bus, storageService, cardPayments, cartService, cfg)
	adminService := services.NewAdminService(st, bus, storageService, cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService, storageService)
	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(orderService, paymentService, cfg)
	adminHandler := handlers.NewAdminHandler(adminService)
	streamHandler := handlers.NewStreamHandler(bus)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(corsConfig(cfg)))
	r.Use(middleware.I18nMiddleware())
	r.Use(limiters.General.Middleware())
	r.Use(middleware.AuditLogMiddleware(st))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(limiters.Auth.Middleware())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
			auth.PUT("/me", middleware.AuthRequired(), authHandler.UpdateProfile)
		}

		// Catalog routes (public)
		products := v1.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/stream", streamHandler.ProductStream)
			products.GET("/:id", productHandler.GetProduct)
			products.GET("/:id/related", productHandler.GetRelatedProducts)
		}

		categories := v1.Group("/categories")
		{
			categories.GET("", productHandler.GetCategories)
			categories.GET("/:id", productHandler.GetCategory)
			categories.GET("/:id/products", productHandler.GetCategoryProducts)
		}

		// Cart routes
		cart := v1.Group("/cart")
		cart.Use(middleware.AuthRequired())
		{
			cart.GET("", cartHandler.GetCart)
			cart.GET("/stream", streamHandler.CartStream)
			cart.POST("/items", cartHandler.AddItem)
			cart.PUT("/items/:key/quantity", cartHandler.UpdateQuantity)
			cart.PUT("/items/:key/variant", cartHandler.UpdateVariant)
			cart.DELETE("/items/:key", cartHandler.RemoveItem)
		}

		// Order routes
		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.POST("", limiters.Upload.Middleware(), orderHandler.PlaceOrder)
			orders.GET("", orderHandler.GetMyOrders)
			orders.GET("/:id", orderHandler.GetOrder)
		}

		// Payment routes
		payments := v1.Group("/payments")
		{
			payments.GET("/options", paymentHandler.GetCheckoutOptions)
			payments.POST("/intent", middleware.AuthRequired(), paymentHandler.CreatePaymentIntent)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			// Dashboard
			dashboard := admin.Group("/dashboard")
			{
				dashboard.GET("/stats", adminHandler.GetDashboardStats)
			}

			// Catalog management
			adminProducts := admin.Group("/products")
			{
				adminProducts.GET("/low-stock", adminHandler.GetLowStockProducts)
				adminProducts.POST("", productHandler.CreateProduct)
				adminProducts.PUT("/:id", productHandler.UpdateProduct)
				adminProducts.DELETE("/:id", productHandler.DeleteProduct)
			}

			adminCategories := admin.Group("/categories")
			{
				adminCategories.POST("", productHandler.CreateCategory)
				adminCategories.PUT("/:id", productHandler.UpdateCategory)
				adminCategories.DELETE("/:id", productHandler.DeleteCategory)
			}

			adminProviders := admin.Group("/providers")
			{
				adminProviders.GET("", productHandler.GetProviders)
				adminProviders.GET("/:id", productHandler.GetProvider)
				adminProviders.POST("", productHandler.CreateProvider)
				adminProviders.PUT("/:id", productHandler.UpdateProvider)
				adminProviders.DELETE("/:id", productHandler.DeleteProvider)
			}

			admin.POST("/uploads", limiters.Upload.Middleware(), productHandler.UploadImages)

			// Order management
			adminOrders := admin.Group("/orders")
			{
				adminOrders.GET("", orderHandler.GetOrders)
				adminOrders.GET("/stream", streamHandler.OrderStream)
				adminOrders.GET("/:id", orderHandler.GetOrder)
				adminOrders.GET("/:id/proof", orderHandler.GetPaymentProof)
				adminOrders.PUT("/:id/status", orderHandler.UpdateOrderStatus)
			}

			// Customer management
			adminCustomers := admin.Group("/customers")
			{
				adminCustomers.GET("", adminHandler.GetCustomers)
				adminCustomers.DELETE("/:id", adminHandler.DeleteCustomer)
			}
		}
	}

	// Local uploads are served from disk; S3 objects are linked directly.
	if !storageService.UsesS3() {
		uploadHandler := handlers.NewUploadHandler(storageService)
		r.GET("/uploads/*filepath", uploadHandler.ServeFile)
		r.HEAD("/uploads/*filepath", uploadHandler.ServeFile)
	}

	return r
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Total-Count", "X-Page", "X-Per-Page", "X-Total-Pages"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	for _, origin := range strings.Split(cfg.Frontend.BaseURL, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			corsCfg.AllowOrigins = append(corsCfg.AllowOrigins, origin)
		}
	}
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}

	return corsCfg
}
