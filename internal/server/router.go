package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/kestrel-retail/discovery-engine/internal/handlers"
	"github.com/kestrel-retail/discovery-engine/internal/middleware"
)

type RouterConfig struct {
	SessionMiddleware  *middleware.SessionMiddleware
	SearchHandler      *handlers.SearchHandler
	RecommendHandler   *handlers.RecommendHandler
	InteractionHandler *handlers.InteractionHandler
	AdminHandler       *handlers.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware("discovery-engine"))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	router.Use(cfg.SessionMiddleware.Resolve())

	router.GET("/healthcheck", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	// ===============
	// || Discovery ||
	// ===============
	api := router.Group("/api")
	{
		api.POST("/search", cfg.SearchHandler.Search)
		api.POST("/interactions", cfg.InteractionHandler.Record)
		api.GET("/recommendations/session", cfg.RecommendHandler.ForSession)
		api.GET("/recommendations/similar/:id", cfg.RecommendHandler.Similar)
		api.GET("/recommendations/trending", cfg.RecommendHandler.Trending)
	}

	// ===============
	// || Admin     ||
	// ===============
	admin := router.Group("/api/admin")
	{
		admin.GET("/weights", cfg.AdminHandler.GetWeights)
		admin.PUT("/weights", cfg.AdminHandler.UpdateWeights)

		admin.POST("/products", cfg.AdminHandler.CreateProduct)
		admin.PUT("/products/:id", cfg.AdminHandler.UpdateProduct)
		admin.DELETE("/products/:id", cfg.AdminHandler.DeleteProduct)
		admin.POST("/products/:id/regenerate-embedding", cfg.AdminHandler.RegenerateEmbedding)
		admin.POST("/products/regenerate-embeddings", cfg.AdminHandler.RegenerateAllEmbeddings)

		admin.POST("/metrics/calculate", cfg.AdminHandler.CalculateMetrics)
		admin.GET("/search-logs", cfg.AdminHandler.ListSearchLogs)
	}

	return router
}
