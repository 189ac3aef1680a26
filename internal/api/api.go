// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/orderplan/internal/api/handlers"
	"github.com/andresuchdata/orderplan/internal/api/middleware"
	"github.com/andresuchdata/orderplan/internal/cache"
	"github.com/andresuchdata/orderplan/internal/config"
	"github.com/andresuchdata/orderplan/internal/history"
	"github.com/andresuchdata/orderplan/internal/repository"
	"github.com/andresuchdata/orderplan/internal/service"
	"github.com/andresuchdata/orderplan/internal/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Stores   *service.StoreService
	Mappings *service.MappingService
	Filters  *service.FilterService
	Stock    *service.StockService
	Process  *service.ProcessService
	Orders   *service.OrderService
	History  *service.HistoryService
	Novelty  *service.NoveltyService
}

// NewServices wires every service over one repository set.
func NewServices(
	repos *repository.Set,
	stockCache cache.GlobalStockCache,
	historyCache cache.HistoryCache,
	archive *storage.Archive,
	engine config.EngineConfig,
) *Services {
	recorder := history.NewRecorder(repos.History)
	stores := service.NewStoreService(repos.Stores, repos.Limits, historyCache)
	mappings := service.NewMappingService(repos.Mappings, engine.ConflictPolicy)
	filters := service.NewFilterService(repos.Filters)
	stock := service.NewStockService(repos.GlobalStock, repos.Stores, mappings, recorder, stockCache, historyCache, archive)

	return &Services{
		Stores:   stores,
		Mappings: mappings,
		Filters:  filters,
		Stock:    stock,
		Process:  service.NewProcessService(repos, mappings, filters, stock, recorder, historyCache, archive, engine),
		Orders:   service.NewOrderService(repos.Orders, repos.Stores, archive, engine),
		History:  service.NewHistoryService(repos.Stores, recorder, historyCache),
		Novelty:  service.NewNoveltyService(repos, stock, stores, engine),
	}
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.UseRawPath = true

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Order-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if services == nil {
		return router
	}

	apiGroup := router.Group("/api")

	storeHandler := handlers.NewStoreHandler(services.Stores)
	stockHandler := handlers.NewStockHandler(services.Stock, services.History)
	orderHandler := handlers.NewOrderHandler(services.Process, services.Orders)
	catalogHandler := handlers.NewCatalogHandler(services.Mappings, services.Filters)
	noveltyHandler := handlers.NewNoveltyHandler(services.Novelty)

	storeGroup := apiGroup.Group("/stores")
	{
		storeGroup.GET("", storeHandler.ListStores)
		storeGroup.POST("", storeHandler.CreateStore)
		storeGroup.GET("/:id", storeHandler.GetStore)
		storeGroup.PUT("/:id", storeHandler.UpdateStore)
		storeGroup.DELETE("/:id", storeHandler.DeleteStore)

		storeGroup.GET("/:id/limits", storeHandler.ListLimits)
		storeGroup.POST("/:id/limits", storeHandler.AddLimits)
		storeGroup.PUT("/:id/limits/:product", storeHandler.UpdateLimit)
		storeGroup.PUT("/:id/limits/:product/rename", storeHandler.RenameLimit)
		storeGroup.DELETE("/:id/limits/:product", storeHandler.DeleteLimit)

		storeGroup.GET("/:id/orders", orderHandler.ListOrders)
		storeGroup.GET("/:id/orders/:order_id", orderHandler.GetOrder)
		storeGroup.GET("/:id/orders/:order_id/download", orderHandler.DownloadOrder)

		storeGroup.GET("/:id/stock-history", stockHandler.GetStoreHistory)
		storeGroup.GET("/:id/stock-history/:product", stockHandler.GetProductHistory)

		storeGroup.GET("/:id/new-products", noveltyHandler.List)
		storeGroup.POST("/:id/new-products/accept", noveltyHandler.Accept)
		storeGroup.POST("/:id/new-products/reject", noveltyHandler.Reject)
		storeGroup.GET("/:id/blacklist", noveltyHandler.ListBlacklist)
		storeGroup.POST("/:id/blacklist/remove", noveltyHandler.RemoveFromBlacklist)
	}

	stockGroup := apiGroup.Group("/global-stock")
	{
		stockGroup.POST("/upload", stockHandler.UploadGlobalStock)
		stockGroup.GET("/latest", stockHandler.GetLatest)
		stockGroup.GET("/history", stockHandler.GetHistory)
		stockGroup.GET("/:id", stockHandler.GetUpload)
	}

	apiGroup.POST("/process", orderHandler.ProcessFile)
	apiGroup.POST("/process-text", orderHandler.ProcessText)

	mappingGroup := apiGroup.Group("/product-mappings")
	{
		mappingGroup.GET("", catalogHandler.ListMappings)
		mappingGroup.POST("", catalogHandler.CreateMapping)
		mappingGroup.GET("/conflicts", catalogHandler.MappingConflicts)
		mappingGroup.GET("/:id", catalogHandler.GetMapping)
		mappingGroup.PUT("/:id", catalogHandler.UpdateMapping)
		mappingGroup.DELETE("/:id", catalogHandler.DeleteMapping)
	}

	filterGroup := apiGroup.Group("/filters")
	{
		filterGroup.GET("", catalogHandler.ListFilters)
		filterGroup.POST("", catalogHandler.CreateFilter)
		filterGroup.POST("/validate", catalogHandler.ValidateFilter)
		filterGroup.GET("/:id", catalogHandler.GetFilter)
		filterGroup.DELETE("/:id", catalogHandler.DeleteFilter)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
