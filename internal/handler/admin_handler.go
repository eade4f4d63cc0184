// Package handler exposes the admin HTTP surface: health, per-batch quota
// inspection, and allow-list management.
package handler

import (
	"errors"
	"net/http"

	"invoicedrop/internal/allowlist"
	"invoicedrop/internal/quota"
	"invoicedrop/internal/storage"
	"invoicedrop/internal/transport/httpdto"
	"invoicedrop/pkg/faults"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	allow   allowlist.Allowlist
	tracker *quota.Tracker
	store   storage.RemoteStore
}

func NewAdminHandler(allow allowlist.Allowlist, tracker *quota.Tracker, store storage.RemoteStore) *AdminHandler {
	return &AdminHandler{allow: allow, tracker: tracker, store: store}
}

func (h *AdminHandler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "STORAGE_UNREACHABLE"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
}

func (h *AdminHandler) BatchQuota(c *gin.Context) {
	batchID := c.Param("id")
	if batchID == "" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("batch id is required", "INVALID_REQUEST"))
		return
	}
	counts := h.tracker.Snapshot(batchID)
	resp := httpdto.BatchQuotaResponse{
		BatchID:   batchID,
		Photos:    categoryQuota(h.tracker, batchID, quota.CategoryPhoto, counts),
		Videos:    categoryQuota(h.tracker, batchID, quota.CategoryVideo, counts),
		Documents: categoryQuota(h.tracker, batchID, quota.CategoryDocument, counts),
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}

func categoryQuota(t *quota.Tracker, batchID string, cat quota.Category, counts quota.Counts) httpdto.CategoryQuota {
	return httpdto.CategoryQuota{
		Count:     counts.Of(cat),
		Limit:     t.Limit(cat),
		Remaining: t.Remaining(batchID, cat),
	}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.allow.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UserListResponse{Users: users, Total: len(users)}))
}

func (h *AdminHandler) AddUser(c *gin.Context) {
	var req httpdto.AddUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	if err := h.allow.Add(c.Request.Context(), req.UserID); err != nil {
		if errors.Is(err, faults.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, httpdto.NewErrorResponse("user already allowed", "ALREADY_EXISTS"))
			return
		}
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"user_id": req.UserID}))
}

func (h *AdminHandler) RemoveUser(c *gin.Context) {
	userID := c.Param("id")
	if err := h.allow.Remove(c.Request.Context(), userID); err != nil {
		if errors.Is(err, faults.ErrNotFound) {
			c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("user not found", "NOT_FOUND"))
			return
		}
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}
