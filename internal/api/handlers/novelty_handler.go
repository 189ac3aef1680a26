package handlers

import (
	"net/http"

	"github.com/andresuchdata/orderplan/internal/service"
	"github.com/gin-gonic/gin"
)

type NoveltyHandler struct {
	service *service.NoveltyService
}

func NewNoveltyHandler(service *service.NoveltyService) *NoveltyHandler {
	return &NoveltyHandler{service: service}
}

type noveltyRequest struct {
	Product string `json:"product"`
	Limit   *int   `json:"limit"`
}

func (h *NoveltyHandler) List(c *gin.Context) {
	report, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *NoveltyHandler) Accept(c *gin.Context) {
	var req noveltyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Limit == nil {
		badRequest(c, "product and limit are required")
		return
	}
	limits, err := h.service.Accept(c.Request.Context(), c.Param("id"), req.Product, *req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, limits)
}

func (h *NoveltyHandler) Reject(c *gin.Context) {
	var req noveltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "product is required")
		return
	}
	if err := h.service.Reject(c.Request.Context(), c.Param("id"), req.Product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product added to blacklist"})
}

func (h *NoveltyHandler) ListBlacklist(c *gin.Context) {
	entries, err := h.service.Blacklist(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *NoveltyHandler) RemoveFromBlacklist(c *gin.Context) {
	var req noveltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "product is required")
		return
	}
	if err := h.service.Unblacklist(c.Request.Context(), c.Param("id"), req.Product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product removed from blacklist"})
}
