// Package server assembles the foodgram HTTP surface from the feature
// handlers. cmd/foodgram and the integration tests share it.
package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/admin"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/config"
	"github.com/mikepea/foodgram/pkg/foodgram/ingredients"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/metrics"
	"github.com/mikepea/foodgram/pkg/foodgram/pagination"
	"github.com/mikepea/foodgram/pkg/foodgram/presenter"
	"github.com/mikepea/foodgram/pkg/foodgram/recipes"
	"github.com/mikepea/foodgram/pkg/foodgram/shoppinglist"
	"github.com/mikepea/foodgram/pkg/foodgram/tags"
	"github.com/mikepea/foodgram/pkg/foodgram/users"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/mikepea/foodgram/api/swagger"
)

// MediaURL is the absolute prefix recipe images are served under
func MediaURL(cfg *config.Config) string {
	return strings.TrimRight(cfg.Server.BaseURL, "/") + cfg.Media.URLPath
}

// NewRouter creates a gin engine with every route registered
func NewRouter(db *gorm.DB, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(), metrics.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.Static(cfg.Media.URLPath, cfg.Media.Dir)

	p := presenter.New(db, MediaURL(cfg))
	paginator := pagination.New(cfg.API.PageSize, cfg.API.MaxPageSize)

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"service": "foodgram",
			})
		})

		// Token routes (public, login is rate limited)
		limiter := auth.NewRateLimiter(cfg.RateLimit.LoginRequests, cfg.RateLimit.LoginWindow)
		auth.NewHandler(db, limiter).RegisterRoutes(api.Group("/auth"))

		// Everything else reads the token when present; writes check for it per route
		public := api.Group("", auth.OptionalAuth())

		users.NewHandler(db, p, paginator).RegisterRoutes(public.Group("/users"))
		tags.NewHandler(db).RegisterRoutes(public.Group("/tags"))
		ingredients.NewHandler(db).RegisterRoutes(public.Group("/ingredients"))

		images := recipes.ImageStore{Dir: cfg.Media.Dir, MaxWidth: cfg.Media.MaxWidth}
		recipesGroup := public.Group("/recipes")
		recipes.NewHandler(db, images, p, paginator).RegisterRoutes(recipesGroup)
		renderer := shoppinglist.Renderer{FontPath: cfg.PDF.FontPath, FontSize: cfg.PDF.FontSize}
		shoppinglist.NewHandler(db, renderer).RegisterRoutes(recipesGroup)

		// Admin routes (token required, admin role required)
		adminGroup := api.Group("/admin", auth.AuthMiddleware(), auth.RequireAdmin(db))
		admin.NewHandler(db).RegisterRoutes(adminGroup)
	}

	return r
}

// WithCORS wraps the engine so browsers on the allowed origins can call the API
func WithCORS(h http.Handler, origins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition", logging.RequestIDHeader},
		AllowCredentials: true,
	})
	return c.Handler(h)
}
