package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shivamkjha23-afk/ATR2026/internal/core"
	"github.com/shivamkjha23-afk/ATR2026/internal/images"
	"github.com/shivamkjha23-afk/ATR2026/internal/middleware"
	"github.com/shivamkjha23-afk/ATR2026/internal/models"
)

// Syncer is the replication engine surface the API needs: the manual sync
// trigger from the admin panel.
type Syncer interface {
	SyncNow(ctx context.Context) error
}

// Handlers carries the injected core dependencies for all endpoints.
type Handlers struct {
	store    *core.Store
	uploader *images.Uploader
	syncer   Syncer
	log      *zap.Logger
}

// GetDB returns the full runtime database.
func (h *Handlers) GetDB(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Read())
}

// GetCollection returns one record collection.
func (h *Handlers) GetCollection(c *gin.Context) {
	rows, err := h.store.Collection(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// UpsertRecord creates or updates one record, stamped with the acting user.
func (h *Handlers) UpsertRecord(c *gin.Context) {
	var payload models.Record
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload: " + err.Error()})
		return
	}
	record, err := h.store.Upsert(c.Param("name"), payload, middleware.ActingUser(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record})
}

// BatchUpsertRecords applies many payloads in one read-modify-write cycle.
func (h *Handlers) BatchUpsertRecords(c *gin.Context) {
	var body struct {
		Rows []models.Record `json:"rows" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload: " + err.Error()})
		return
	}
	count, err := h.store.BatchUpsert(c.Param("name"), body.Rows, middleware.ActingUser(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// DeleteRecord removes a record by id. Deleting an absent id succeeds.
func (h *Handlers) DeleteRecord(c *gin.Context) {
	if err := h.store.DeleteByID(c.Param("name"), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

// PendingUsers lists access requests awaiting approval.
func (h *Handlers) PendingUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rows": h.store.PendingUsers()})
}

// RequestAccess files an access request for a username.
func (h *Handlers) RequestAccess(c *gin.Context) {
	var body struct {
		Username string `json:"username" binding:"required"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload: " + err.Error()})
		return
	}
	user, err := h.store.RequestAccess(body.Username, body.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ApproveUser approves a pending access request; admin only.
func (h *Handlers) ApproveUser(c *gin.Context) {
	actor := middleware.ActingUser(c)
	if !h.store.IsAdmin(actor) {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access only"})
		return
	}
	user, err := h.store.ApproveUser(c.Param("username"), actor)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ResolveImage maps a logical path to its remote URL.
func (h *Handlers) ResolveImage(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path query parameter is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "url": h.uploader.Resolve(path)})
}

// UploadImage uploads a multipart image and records its remote URL.
func (h *Handlers) UploadImage(c *gin.Context) {
	path := c.PostForm("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path form field is required"})
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file form field is required: " + err.Error()})
		return
	}
	defer file.Close()

	url, err := h.uploader.Store(c.Request.Context(), path, header.Filename, file)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, images.ErrNotConfigured) {
			status = http.StatusBadRequest
		}
		h.log.Warn("image upload failed", zap.String("path", path), zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "url": url})
}

// DashboardSummary returns the inspection progress counters.
func (h *Handlers) DashboardSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.ProgressSummary())
}

// FormOptions returns the read-only option lists used by the form pages.
func (h *Handlers) FormOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"units":               models.UnitOptions,
		"equipment_types":     models.EquipmentTypes,
		"inspection_statuses": models.InspectionStatusOptions,
		"final_statuses":      models.FinalStatusOptions,
	})
}

// SyncStatus returns the last replication outcome.
func (h *Handlers) SyncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.LastSyncStatus())
}

// SyncNow triggers an immediate pull-then-push cycle.
func (h *Handlers) SyncNow(c *gin.Context) {
	if h.syncer == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "cloud sync is disabled"})
		return
	}
	if err := h.syncer.SyncNow(c.Request.Context()); err != nil {
		h.log.Warn("manual sync failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.store.LastSyncStatus())
}
