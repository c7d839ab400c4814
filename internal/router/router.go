// internal/router/router.go
package router

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/javajoker/marketplace-backend/internal/config"
	"github.com/javajoker/marketplace-backend/internal/handlers"
	"github.com/javajoker/marketplace-backend/internal/middleware"
	"github.com/javajoker/marketplace-backend/internal/services"
	"github.com/javajoker/marketplace-backend/internal/storage"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

// Dependencies are built in main and shared with the background jobs.
type Dependencies struct {
	DB         *gorm.DB
	Redis      *redis.Client
	Store      storage.ObjectStore
	Limiters   *middleware.RateLimiters
	Statistics *services.StatisticsService
}

func Initialize(cfg *config.Config, deps Dependencies) *gin.Engine {
	db := deps.DB

	// Initialize services
	storageService := services.NewStorageService(deps.Store, cfg.Storage.MaxSizeMB)
	authService := services.NewAuthService(db, cfg)
	userService := services.NewUserService(db, storageService)
	categoryService := services.NewCategoryService(db, storageService)
	productService := services.NewProductService(db, storageService)
	bidService := services.NewBidService(db)
	saleService := services.NewSaleService(db)
	statisticsService := deps.Statistics
	if statisticsService == nil {
		statisticsService = services.NewStatisticsService(db, deps.Redis, cfg.Redis.StatsTTL)
	}
	limiters := deps.Limiters
	if limiters == nil {
		limiters = middleware.NewRateLimiters(cfg.RateLimit)
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, deps.Redis, storageService.Backend())
	authHandler := handlers.NewAuthHandler(authService, productService)
	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(productService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	bidHandler := handlers.NewBidHandler(bidService)
	saleHandler := handlers.NewSaleHandler(saleService)
	adminHandler := handlers.NewAdminHandler(statisticsService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)
	utils.SetJWTIssuer(cfg.JWT.Issuer)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))

	var authRateLimit, uploadRateLimit gin.HandlerFunc = passThrough, passThrough
	if cfg.RateLimit.Enabled {
		r.Use(limiters.General.Middleware())
		authRateLimit = limiters.Auth.Middleware()
		uploadRateLimit = limiters.Upload.Middleware()
	}

	r.GET("/health", healthHandler.Check)

	authed := middleware.AuthRequired(middleware.StoredRole(db))
	allow := middleware.Authorize

	api := r.Group("/api")
	{
		users := api.Group("/users")
		{
			users.POST("/register", authRateLimit, authHandler.Register)
			users.POST("/login", authRateLimit, authHandler.Login)
			users.POST("/admin/login", authRateLimit, authHandler.AdminLogin)
			users.GET("/me", authed, allow(middleware.OpViewProfile), authHandler.GetProfile)
			users.GET("/products", authed, allow(middleware.OpManageOwnProducts), authHandler.GetMyProducts)
		}

		products := api.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/getby/:categoryId", productHandler.GetProductsByCategory)
			products.GET("/:id", productHandler.GetProduct)

			protected := products.Group("")
			protected.Use(authed, allow(middleware.OpManageOwnProducts))
			{
				protected.POST("", uploadRateLimit, productHandler.CreateProduct)
				protected.GET("/user/:id", productHandler.GetOwnProduct)
				protected.PUT("/user/:id", uploadRateLimit, productHandler.UpdateProduct)
				protected.DELETE("/:id", productHandler.DeleteProduct)
			}
		}

		categories := api.Group("/categories")
		{
			categories.GET("", categoryHandler.GetCategories)
			categories.GET("/:id", categoryHandler.GetCategory)

			staff := categories.Group("")
			staff.Use(authed, allow(middleware.OpManageCategories))
			{
				staff.POST("", uploadRateLimit, categoryHandler.CreateCategory)
				staff.PUT("/:id", uploadRateLimit, categoryHandler.UpdateCategory)
				staff.DELETE("/:id", categoryHandler.DeleteCategory)
			}
		}

		bids := api.Group("/bids")
		bids.Use(authed)
		{
			bids.POST("", allow(middleware.OpPlaceBid), bidHandler.CreateBid)
			bids.GET("", allow(middleware.OpManageBids), bidHandler.GetMyBids)
			bids.GET("/received", allow(middleware.OpManageBids), bidHandler.GetReceivedBids)
			bids.GET("/:id", allow(middleware.OpManageBids), bidHandler.GetBid)
			bids.PUT("/:id", allow(middleware.OpManageBids), bidHandler.UpdateBid)
			bids.DELETE("/:id", allow(middleware.OpManageBids), bidHandler.DeleteBid)
		}

		sales := api.Group("/sale")
		sales.Use(authed)
		{
			sales.POST("", allow(middleware.OpFinalizeSale), saleHandler.FinalizeSale)
			sales.GET("", allow(middleware.OpViewSales), saleHandler.GetSales)
			sales.GET("/:id", allow(middleware.OpViewSales), saleHandler.GetSale)
		}

		allUsers := api.Group("/all-users")
		allUsers.Use(authed, allow(middleware.OpManageUsers))
		{
			allUsers.GET("", userHandler.GetUsers)
			allUsers.GET("/:id", userHandler.GetUser)
			allUsers.PUT("/:id", userHandler.UpdateUser)
			allUsers.DELETE("/:id", userHandler.DeleteUser)
		}

		stats := api.Group("/user-statistics")
		stats.Use(authed, allow(middleware.OpViewStatistics))
		{
			stats.GET("/registrations", adminHandler.GetRegistrations)
			stats.GET("/overview", adminHandler.GetDashboardStats)
		}
	}

	// Static file serving for the local storage driver
	if local, ok := deps.Store.(*storage.LocalStore); ok {
		r.Static(staticPath(cfg.Storage.Local.BaseURL), local.Dir())
	}

	return r
}

// staticPath returns the path part of the public uploads URL.
func staticPath(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "/uploads"
	}
	return strings.TrimRight(u.Path, "/")
}

func passThrough(c *gin.Context) {
	c.Next()
}
