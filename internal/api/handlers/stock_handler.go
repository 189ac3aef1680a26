package handlers

import (
	"net/http"
	"time"

	"github.com/andresuchdata/orderplan/internal/service"
	"github.com/gin-gonic/gin"
)

type StockHandler struct {
	stock   *service.StockService
	history *service.HistoryService
}

func NewStockHandler(stock *service.StockService, history *service.HistoryService) *StockHandler {
	return &StockHandler{stock: stock, history: history}
}

// UploadGlobalStock accepts a multipart "file" and an optional stock_date
// query parameter (YYYY-MM-DD or RFC 3339).
func (h *StockHandler) UploadGlobalStock(c *gin.Context) {
	stockDate, err := service.ParseStockDate(c.Query("stock_date"), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	filename, data, err := readUpload(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.stock.Upload(c.Request.Context(), filename, data, stockDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *StockHandler) GetLatest(c *gin.Context) {
	upload, err := h.stock.Latest(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}

func (h *StockHandler) GetHistory(c *gin.Context) {
	infos, err := h.stock.History(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, infos)
}

func (h *StockHandler) GetUpload(c *gin.Context) {
	upload, err := h.stock.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}

func (h *StockHandler) GetStoreHistory(c *gin.Context) {
	period := c.DefaultQuery("period", "week")
	summary, err := h.history.Summary(c.Request.Context(), c.Param("id"), period)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": period, "products": summary})
}

func (h *StockHandler) GetProductHistory(c *gin.Context) {
	series, err := h.history.Series(c.Request.Context(), c.Param("id"), c.Param("product"), c.DefaultQuery("period", "week"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}
