// Package api exposes the runtime database to the presentation layer: a
// small set of data-access endpoints plus a WebSocket feed for the
// db-updated and sync-status signals.
package api

import (
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shivamkjha23-afk/ATR2026/internal/core"
	"github.com/shivamkjha23-afk/ATR2026/internal/images"
	"github.com/shivamkjha23-afk/ATR2026/internal/middleware"
)

// SetupRoutes wires the data-access API onto the router. syncer may be nil
// when cloud sync is disabled; authClient may be nil in local-only mode.
// clientURL gates the WebSocket origin the same way CORS gates the REST API.
func SetupRoutes(
	router *gin.Engine,
	logger *zap.Logger,
	store *core.Store,
	uploader *images.Uploader,
	syncer Syncer,
	authClient *auth.Client,
	clientURL string,
) {
	h := &Handlers{store: store, uploader: uploader, syncer: syncer, log: logger}

	hub := NewHub(logger, clientURL)
	store.Bus().Subscribe(hub.Broadcast)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ws", hub.Handle)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(authClient))

	v1.GET("/db", h.GetDB)
	v1.GET("/collections/:name", h.GetCollection)
	v1.POST("/collections/:name", h.UpsertRecord)
	v1.POST("/collections/:name/batch", h.BatchUpsertRecords)
	v1.DELETE("/collections/:name/:id", h.DeleteRecord)

	v1.GET("/users/pending", h.PendingUsers)
	v1.POST("/users/request", h.RequestAccess)
	v1.POST("/users/:username/approve", h.ApproveUser)

	v1.GET("/images/resolve", h.ResolveImage)
	v1.POST("/images", h.UploadImage)

	v1.GET("/dashboard/summary", h.DashboardSummary)
	v1.GET("/meta/options", h.FormOptions)

	v1.GET("/sync/status", h.SyncStatus)
	v1.POST("/sync/now", h.SyncNow)

	v1.POST("/admin/import", h.ImportWorkbook)

	logger.Info("API routes registered")
}
