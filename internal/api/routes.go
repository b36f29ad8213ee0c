package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/codyseavey/pokebinder/internal/api/handlers"
	"github.com/codyseavey/pokebinder/internal/config"
	"github.com/codyseavey/pokebinder/internal/logger"
	"github.com/codyseavey/pokebinder/internal/metrics"
	"github.com/codyseavey/pokebinder/internal/services"
)

// Services bundles what the router needs.
type Services struct {
	Catalog     services.Catalog
	Collections *services.CollectionService
	Snapshots   *services.SnapshotService
	PriceWorker *services.PriceWorker
}

func SetupRouter(cfg config.ServerConfig, svc Services, log *zap.Logger) *gin.Engine {
	log = logger.OrNop(log)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log), metrics.GinMiddleware())

	serveFrontend := cfg.FrontendDistPath != "" && dirExists(cfg.FrontendDistPath)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = false
	router.Use(cors.New(corsConfig))

	cardHandler := handlers.NewCardHandler(svc.Catalog)
	collectionHandler := handlers.NewCollectionHandler(svc.Collections, svc.Snapshots)
	priceHandler := handlers.NewPriceHandler(svc.Collections, svc.PriceWorker)

	api := router.Group("/api")
	{
		api.GET("/cards/:id", cardHandler.GetCard)
		api.GET("/prices/status", priceHandler.GetPriceStatus)

		collection := api.Group("/users/:user/collection")
		{
			collection.GET("", collectionHandler.GetCollection)
			collection.POST("", collectionHandler.AddToCollection)
			collection.GET("/sets", collectionHandler.GetSetGroups)
			collection.GET("/binders/prize", collectionHandler.GetPrizeBinder)
			collection.GET("/binders/elite", collectionHandler.GetEliteBinder)
			collection.GET("/search", collectionHandler.SearchCollection)
			collection.GET("/history", collectionHandler.GetValueHistory)
			collection.POST("/refresh-prices", priceHandler.RefreshPrices)
			collection.GET("/:id", collectionHandler.GetCollectionItem)
			collection.PUT("/:id", collectionHandler.UpdateCollectionItem)
			collection.DELETE("/:id", collectionHandler.DeleteCollectionItem)
			collection.PUT("/:id/binder", collectionHandler.AssignBinder)
			collection.POST("/:id/refresh-price", priceHandler.RefreshCardPrice)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if serveFrontend {
		indexPath := filepath.Join(cfg.FrontendDistPath, "index.html")

		router.Static("/assets", filepath.Join(cfg.FrontendDistPath, "assets"))
		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback - serve index.html for all non-API routes
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.File(indexPath)
		})
	}

	return router
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			log.Error("request failed", append(fields, zap.String("error", errs.String()))...)
			return
		}
		log.Debug("request", fields...)
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
