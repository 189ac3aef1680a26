package handlers

import (
	"net/http"

	"github.com/andresuchdata/orderplan/internal/service"
	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the global product mappings and saved filters.
type CatalogHandler struct {
	mappings *service.MappingService
	filters  *service.FilterService
}

func NewCatalogHandler(mappings *service.MappingService, filters *service.FilterService) *CatalogHandler {
	return &CatalogHandler{mappings: mappings, filters: filters}
}

func (h *CatalogHandler) ListMappings(c *gin.Context) {
	mappings, err := h.mappings.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mappings)
}

func (h *CatalogHandler) GetMapping(c *gin.Context) {
	mapping, err := h.mappings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapping)
}

func (h *CatalogHandler) MappingConflicts(c *gin.Context) {
	conflicts, err := h.mappings.Conflicts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conflicts)
}

func (h *CatalogHandler) CreateMapping(c *gin.Context) {
	var in service.MappingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	mapping, err := h.mappings.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mapping)
}

func (h *CatalogHandler) UpdateMapping(c *gin.Context) {
	var in service.MappingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	mapping, err := h.mappings.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapping)
}

func (h *CatalogHandler) DeleteMapping(c *gin.Context) {
	if err := h.mappings.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "mapping deleted"})
}

type filterRequest struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

func (h *CatalogHandler) ListFilters(c *gin.Context) {
	filters, err := h.filters.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, filters)
}

func (h *CatalogHandler) GetFilter(c *gin.Context) {
	f, err := h.filters.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *CatalogHandler) CreateFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	f, err := h.filters.Create(c.Request.Context(), req.Name, req.Expression)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (h *CatalogHandler) ValidateFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	canonical, err := h.filters.Validate(req.Expression)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "canonical": canonical})
}

func (h *CatalogHandler) DeleteFilter(c *gin.Context) {
	if err := h.filters.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "filter deleted"})
}
