package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// InventoryUseCaseInterface is the use case behind the inventory handlers
type InventoryUseCaseInterface interface {
	GetStock(ctx context.Context, key StockKey, withVariation bool) ([]InventoryLevel, error)
	SetStock(ctx context.Context, req StockWriteRequest) (*InventoryLevel, error)
}

// InventoryHandler holds the HTTP handlers of the inventory API
type InventoryHandler struct {
	useCase InventoryUseCaseInterface
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(useCase InventoryUseCaseInterface) *InventoryHandler {
	return &InventoryHandler{useCase: useCase}
}

const inventoryPath = "/wp-json/flora-im/v1/inventory"

// RegisterRoutes mounts the inventory routes on r
func (h *InventoryHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET(inventoryPath, h.GetStock)
	r.POST(inventoryPath, h.SetStock)
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, apiResponse{Success: false, Message: message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrLevelNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrQuantityChanged):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func queryInt(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// GetStock answers GET /wp-json/flora-im/v1/inventory?product_id=&location_id=[&variation_id=]
func (h *InventoryHandler) GetStock(c *gin.Context) {
	var key StockKey
	var err error
	if key.ProductID, err = queryInt(c, "product_id"); err != nil {
		fail(c, http.StatusBadRequest, "invalid product_id")
		return
	}
	if key.LocationID, err = queryInt(c, "location_id"); err != nil {
		fail(c, http.StatusBadRequest, "invalid location_id")
		return
	}
	if key.VariationID, err = queryInt(c, "variation_id"); err != nil {
		fail(c, http.StatusBadRequest, "invalid variation_id")
		return
	}

	levels, err := h.useCase.GetStock(c.Request.Context(), key, c.Query("variation_id") != "")
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Printf("❌ [GET STOCK] FAILED for %s : %v", key, err)
			fail(c, status, "failed to read stock")
			return
		}
		fail(c, status, err.Error())
		return
	}

	views := make([]stockView, 0, len(levels))
	for i := range levels {
		views = append(views, viewOf(&levels[i]))
	}
	c.JSON(http.StatusOK, apiResponse{Success: true, Data: views})
}

// SetStock answers POST /wp-json/flora-im/v1/inventory
func (h *InventoryHandler) SetStock(c *gin.Context) {
	var req StockWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	level, err := h.useCase.SetStock(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Printf("ℹ️ [SET STOCK] FAILED for %s : %v", req.Key(), err)
			fail(c, status, "failed to write stock")
			return
		}
		fail(c, status, err.Error())
		return
	}

	c.JSON(http.StatusOK, apiResponse{Success: true, Data: viewOf(level)})
}

// HealthCheck reports service health
func (h *InventoryHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "inventory-service"})
}
