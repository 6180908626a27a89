// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecocart/storefront-api/internal/config"
	"github.com/ecocart/storefront-api/internal/handlers"
	"github.com/ecocart/storefront-api/internal/i18n"
	"github.com/ecocart/storefront-api/internal/middleware"
	"github.com/ecocart/storefront-api/internal/repository"
	"github.com/ecocart/storefront-api/internal/services"
	"github.com/ecocart/storefront-api/internal/utils"
)

// Dependencies are the long-lived collaborators main wires up. The router
// builds the services on top of them.
type Dependencies struct {
	Store    repository.Store
	Notifier *services.NotificationService
	Storage  *services.StorageService
	Limiters *middleware.RateLimiters
}

func Initialize(cfg *config.Config, deps Dependencies) *gin.Engine {
	// Initialize services
	userService := services.NewUserService(deps.Store, cfg.Catalog.SearchHistoryLimit)
	productService := services.NewProductService(deps.Store, userService, cfg.Catalog)
	orderService := services.NewOrderService(deps.Store, deps.Notifier, cfg.Catalog)
	motivationService := services.NewMotivationService(deps.Store)

	// Initialize handlers
	productHandler := handlers.NewProductHandler(productService, deps.Storage)
	orderHandler := handlers.NewOrderHandler(orderService)
	userHandler := handlers.NewUserHandler(userService, motivationService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	limiters := deps.Limiters
	if limiters == nil {
		limiters = middleware.DefaultRateLimiters()
	}

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())
	r.Use(limiters.General.Middleware())
	r.Use(middleware.OptionalAuth())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"store":     cfg.Store.Driver,
			"languages": i18n.GetSupportedLanguages(),
			"version":   "1.0.0",
		})
	})

	products := r.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/search", productHandler.SearchProducts)
		products.GET("/:id", productHandler.GetProduct)

		admin := products.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.POST("", productHandler.CreateProduct)
			admin.PATCH("/:id", productHandler.UpdateProduct)
			admin.DELETE("/:id", productHandler.DeleteProduct)
			admin.POST("/upload-images", limiters.Upload.Middleware(), productHandler.UploadImages)
		}
	}

	r.GET("/categories", productHandler.GetCategories)
	r.GET("/brands", productHandler.GetBrands)

	orders := r.Group("/orders")
	orders.Use(middleware.AuthRequired())
	{
		orders.POST("", limiters.Orders.Middleware(), orderHandler.PlaceOrder)
		orders.GET("/own", orderHandler.ListOwnOrders)
		orders.GET("/:id", orderHandler.GetOrder)

		orders.GET("", middleware.AdminRequired(), orderHandler.ListOrders)
		orders.PATCH("/:id", middleware.AdminRequired(), orderHandler.UpdateOrder)
	}

	users := r.Group("/users")
	users.Use(middleware.AuthRequired())
	{
		users.GET("/own", userHandler.GetOwnProfile)
		users.PATCH("/:id", userHandler.UpdateUser)
	}

	r.GET("/motivation", middleware.AuthRequired(), userHandler.GetMotivation)

	// Locally stored uploads
	if deps.Storage != nil && deps.Storage.IsLocal() {
		r.Static(services.LocalURLPrefix, cfg.AWS.UploadDir)
	}

	return r
}
