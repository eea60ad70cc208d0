package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wanderhub/internal/config"
	"wanderhub/internal/delivery/http/handler"
	"wanderhub/internal/infrastructure/database/postgres"
	"wanderhub/internal/logger"
	"wanderhub/internal/middleware"
	listingUsecase "wanderhub/internal/usecase/listing"
	userUsecase "wanderhub/internal/usecase/user"
)

func SetupRoutes(cfg *config.Config, db *postgres.DB, images listingUsecase.ImageStore) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))
	router.Use(middleware.RateLimitMiddleware(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst))

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": "Database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Service is running",
		})
	})

	userRepository := postgres.NewUserRepository(db)
	sessionRepository := postgres.NewSessionRepository(db)
	userService := userUsecase.NewService(userRepository, sessionRepository, cfg)

	listingRepository := postgres.NewListingRepository(db)
	reviewRepository := postgres.NewReviewRepository(db)
	listingService := listingUsecase.NewService(listingRepository, reviewRepository, userRepository, images)

	userHandler := handler.NewUserHandler(userService, &cfg.Session)
	listingHandler := handler.NewListingHandler(listingService)

	// Every request resolves its session and seller context; neither is
	// cached between requests.
	router.Use(middleware.SessionMiddleware(&cfg.Session, userService))
	router.Use(middleware.SellerContextMiddleware(listingService))

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, "/listings")
	})

	root := router.Group("")
	{
		userHandler.RegisterRoutes(root)
		listingHandler.RegisterPublicRoutes(root)

		protected := root.Group("")
		protected.Use(middleware.RequireAuth())
		{
			userHandler.RegisterProfileRoutes(protected)
			listingHandler.RegisterAuthRoutes(protected)

			seller := protected.Group("")
			seller.Use(middleware.RequireSeller())
			{
				listingHandler.RegisterSellerRoutes(seller)
			}
		}
	}

	logger.Info("All routes initialized")
	return router
}
