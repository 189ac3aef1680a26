package handlers

import (
	"errors"
	"net/http"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/service"
	"github.com/gin-gonic/gin"
)

type StoreHandler struct {
	service *service.StoreService
}

func NewStoreHandler(service *service.StoreService) *StoreHandler {
	return &StoreHandler{service: service}
}

func (h *StoreHandler) ListStores(c *gin.Context) {
	stores, err := h.service.ListStores(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stores)
}

func (h *StoreHandler) GetStore(c *gin.Context) {
	store, err := h.service.GetStore(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, store)
}

func (h *StoreHandler) CreateStore(c *gin.Context) {
	var in service.StoreInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	store, err := h.service.CreateStore(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, store)
}

func (h *StoreHandler) UpdateStore(c *gin.Context) {
	var in service.StoreInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	store, err := h.service.UpdateStore(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, store)
}

func (h *StoreHandler) DeleteStore(c *gin.Context) {
	if err := h.service.DeleteStore(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "store deleted"})
}

func (h *StoreHandler) ListLimits(c *gin.Context) {
	limits, err := h.service.ListLimits(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, limits)
}

func (h *StoreHandler) AddLimits(c *gin.Context) {
	var in service.AddLimitsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	limits, err := h.service.AddLimits(c.Request.Context(), c.Param("id"), in)
	respondLimits(c, limits, err)
}

type updateLimitRequest struct {
	Limit *int `json:"limit"`
}

func (h *StoreHandler) UpdateLimit(c *gin.Context) {
	var req updateLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Limit == nil {
		badRequest(c, "limit is required")
		return
	}
	limits, err := h.service.UpdateLimit(c.Request.Context(), c.Param("id"), c.Param("product"), *req.Limit)
	respondLimits(c, limits, err)
}

type renameLimitRequest struct {
	NewName string `json:"new_name"`
}

func (h *StoreHandler) RenameLimit(c *gin.Context) {
	var req renameLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	limits, err := h.service.RenameLimit(c.Request.Context(), c.Param("id"), c.Param("product"), req.NewName)
	respondLimits(c, limits, err)
}

func (h *StoreHandler) DeleteLimit(c *gin.Context) {
	limits, err := h.service.DeleteLimit(c.Request.Context(), c.Param("id"), c.Param("product"), queryBool(c, "apply_to_all"))
	respondLimits(c, limits, err)
}

// respondLimits reports a partial broadcast as 207 together with the
// limits that were saved.
func respondLimits(c *gin.Context, limits []domain.Limit, err error) {
	var broadcastErr *domain.BroadcastError
	if errors.As(err, &broadcastErr) {
		failed := make(map[string]string, len(broadcastErr.Failed))
		for id, e := range broadcastErr.Failed {
			failed[id] = e.Error()
		}
		c.JSON(http.StatusMultiStatus, gin.H{
			"limits":  limits,
			"applied": broadcastErr.Applied,
			"failed":  failed,
			"error":   broadcastErr.Error(),
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, limits)
}
