package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/andresuchdata/orderplan/internal/service"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	process *service.ProcessService
	orders  *service.OrderService
}

func NewOrderHandler(process *service.ProcessService, orders *service.OrderService) *OrderHandler {
	return &OrderHandler{process: process, orders: orders}
}

// ProcessFile computes an order from an uploaded store stock file.
// filter_expressions is a JSON array of expression strings.
func (h *OrderHandler) ProcessFile(c *gin.Context) {
	var expressions []string
	if raw := strings.TrimSpace(c.Query("filter_expressions")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &expressions); err != nil {
			badRequest(c, "filter_expressions must be a JSON array of strings")
			return
		}
	}
	filename, data, err := readUpload(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}

	seller := c.Query("seller_request")
	if seller == "" {
		seller = c.PostForm("seller_request")
	}

	result, err := h.process.Process(c.Request.Context(), service.ProcessRequest{
		StoreID:           c.Query("store_id"),
		Filename:          filename,
		File:              data,
		FilterExpressions: expressions,
		FilterIDs:         splitList(c.Query("filter_ids")),
		SellerRequest:     seller,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	sendWorkbook(c, result.Filename, result.Order.ID, result.Workbook)
}

type processTextRequest struct {
	StoreID           string             `json:"store_id"`
	Data              []service.StockRow `json:"data"`
	Text              string             `json:"text"`
	FilterExpressions []string           `json:"filter_expressions"`
	FilterIDs         []string           `json:"filter_ids"`
	UseGlobalStock    bool               `json:"use_global_stock"`
	SellerRequest     string             `json:"seller_request"`
}

// ProcessText computes an order from pasted rows or the latest global
// stock.
func (h *OrderHandler) ProcessText(c *gin.Context) {
	var req processTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.process.Process(c.Request.Context(), service.ProcessRequest{
		StoreID:           req.StoreID,
		Rows:              req.Data,
		Text:              req.Text,
		UseGlobalStock:    req.UseGlobalStock,
		FilterExpressions: req.FilterExpressions,
		FilterIDs:         req.FilterIDs,
		SellerRequest:     req.SellerRequest,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	sendWorkbook(c, result.Filename, result.Order.ID, result.Workbook)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("id"), c.Param("order_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) DownloadOrder(c *gin.Context) {
	data, filename, err := h.orders.Download(c.Request.Context(), c.Param("id"), c.Param("order_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	sendWorkbook(c, filename, c.Param("order_id"), data)
}
