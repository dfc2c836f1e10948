package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// CheckoutUseCaseInterface defines the use case behind the HTTP handlers
type CheckoutUseCaseInterface interface {
	Checkout(ctx context.Context, req CheckoutRequest) CheckoutResult
}

// CheckoutHandler holds the HTTP handlers of the checkout service
type CheckoutHandler struct {
	useCase CheckoutUseCaseInterface
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(useCase CheckoutUseCaseInterface) *CheckoutHandler {
	return &CheckoutHandler{useCase: useCase}
}

// statusCodeFor maps a checkout outcome to an HTTP status. An order that
// exists with a failed deduction is 207 so clients cannot mistake it for a
// failed sale.
func statusCodeFor(result CheckoutResult) int {
	switch result.Status {
	case CheckoutStatusCompleted:
		return http.StatusOK
	case CheckoutStatusInventoryFailed:
		return http.StatusMultiStatus
	case CheckoutStatusInvalidInput:
		return http.StatusBadRequest
	case CheckoutStatusOrderFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Checkout runs the checkout pipeline for one cart
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("❌ Invalid request body: %v", err)
		c.JSON(http.StatusBadRequest, CheckoutResult{
			Status:    CheckoutStatusInvalidInput,
			Severity:  SeverityError,
			ErrorKind: string(KindInvalidCheckoutInput),
			Error:     "invalid request body: " + err.Error(),
		})
		return
	}

	result := h.useCase.Checkout(c.Request.Context(), req)
	c.JSON(statusCodeFor(result), result)
}

// HealthCheck reports service health
func (h *CheckoutHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "checkout-service",
	})
}

// RegisterRoutes mounts the checkout routes on r
func (h *CheckoutHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.POST("/api/checkout", h.Checkout)
}
