package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCheckoutUseCase struct {
	mock.Mock
}

func (m *MockCheckoutUseCase) Checkout(ctx context.Context, req CheckoutRequest) CheckoutResult {
	args := m.Called(ctx, req)
	return args.Get(0).(CheckoutResult)
}

func newTestRouter(useCase CheckoutUseCaseInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewCheckoutHandler(useCase).RegisterRoutes(r)
	return r
}

const checkoutBody = `{"location_id":7,"employee_id":3,"payment":{"method":"card"},"lines":[{"product_id":42,"quantity":1,"unit_price":10}]}`

func TestCheckoutHandler_StatusCodes(t *testing.T) {
	tests := []struct {
		status string
		want   int
	}{
		{CheckoutStatusCompleted, http.StatusOK},
		{CheckoutStatusInventoryFailed, http.StatusMultiStatus},
		{CheckoutStatusInvalidInput, http.StatusBadRequest},
		{CheckoutStatusOrderFailed, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			// Arrange
			useCase := new(MockCheckoutUseCase)
			useCase.On("Checkout", mock.Anything, mock.MatchedBy(func(req CheckoutRequest) bool {
				return req.LocationID == 7 && len(req.Lines) == 1 && req.Lines[0].ProductID == 42
			})).Return(CheckoutResult{CheckoutID: "chk-1", Status: tt.status, OrderID: 101})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(checkoutBody))
			req.Header.Set("Content-Type", "application/json")

			// Act
			newTestRouter(useCase).ServeHTTP(w, req)

			// Assert
			assert.Equal(t, tt.want, w.Code)
			var got CheckoutResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, "chk-1", got.CheckoutID)
			useCase.AssertExpectations(t)
		})
	}
}

func TestCheckoutHandler_MalformedBody(t *testing.T) {
	useCase := new(MockCheckoutUseCase)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{"lines": "nope"`))
	req.Header.Set("Content-Type", "application/json")

	newTestRouter(useCase).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var got CheckoutResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, CheckoutStatusInvalidInput, got.Status)
	assert.Equal(t, string(KindInvalidCheckoutInput), got.ErrorKind)
	useCase.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything)
}

func TestCheckoutHandler_HealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	newTestRouter(new(MockCheckoutUseCase)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
