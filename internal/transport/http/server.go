package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "lawrag/internal/app"
	"lawrag/internal/bootstrap"
	"lawrag/internal/cache"
	"lawrag/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	documentService := appsvc.NewDocumentService(
		app.DocumentRepo,
		app.TaskPublisher,
		app.Index,
		app.Config.Upload.Dir,
		int64(app.Config.Upload.MaxSizeMB)<<20,
		app.Logger,
	)
	searchService := appsvc.NewSearchService(app.Gateway, app.Index, app.Config.Ask.TopK)
	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		2*app.Config.Ask.HistoryWindow,
	)
	qaService := appsvc.NewQAService(app.Synthesizer, historyCache, app.Logger)

	documentHandler := handler.NewDocumentHandler(documentService)
	searchHandler := handler.NewSearchHandler(searchService)
	qaHandler := handler.NewQAHandler(qaService)

	v1 := router.Group("/api/v1")

	docs := v1.Group("/documents")
	docs.POST("", documentHandler.Upload)
	docs.GET("", documentHandler.List)
	docs.GET("/:id/status", documentHandler.Status)
	docs.POST("/:id/reparse", documentHandler.Reparse)
	docs.DELETE("/:id", documentHandler.Delete)

	v1.POST("/parse", documentHandler.Parse)
	v1.POST("/search", searchHandler.Search)
	v1.GET("/stats", searchHandler.Stats)
	v1.POST("/qa", qaHandler.Ask)
	v1.DELETE("/qa/sessions/:id", qaHandler.ClearSession)

	return router
}
