package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockInventoryUseCase struct {
	mock.Mock
}

func (m *MockInventoryUseCase) GetStock(ctx context.Context, key StockKey, withVariation bool) ([]InventoryLevel, error) {
	args := m.Called(ctx, key, withVariation)
	if l := args.Get(0); l != nil {
		return l.([]InventoryLevel), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInventoryUseCase) SetStock(ctx context.Context, req StockWriteRequest) (*InventoryLevel, error) {
	args := m.Called(ctx, req)
	if l := args.Get(0); l != nil {
		return l.(*InventoryLevel), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestRouter(useCase InventoryUseCaseInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewInventoryHandler(useCase).RegisterRoutes(r)
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestInventoryHandler_GetStock(t *testing.T) {
	// Arrange
	useCase := new(MockInventoryUseCase)
	useCase.On("GetStock", mock.Anything, testKey, false).
		Return([]InventoryLevel{{StockKey: testKey, Quantity: decimal.NewFromInt(5)}}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, inventoryPath+"?product_id=42&location_id=7", nil)

	// Act
	newTestRouter(useCase).ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)

	var views []stockView
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, int64(42), views[0].ProductID)
	assert.True(t, views[0].Quantity.Equal(decimal.NewFromInt(5)))
}

func TestInventoryHandler_GetStock_Errors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
	}{
		{"bad product id", "?product_id=abc&location_id=7", nil, http.StatusBadRequest},
		{"not found", "?product_id=42&location_id=7", ErrLevelNotFound, http.StatusNotFound},
		{"invalid", "?product_id=42&location_id=7", fmt.Errorf("%w: nope", ErrInvalidRequest), http.StatusBadRequest},
		{"database", "?product_id=42&location_id=7", fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useCase := new(MockInventoryUseCase)
			if tt.err != nil {
				useCase.On("GetStock", mock.Anything, mock.Anything, false).Return(nil, tt.err)
			}
			w := httptest.NewRecorder()

			newTestRouter(useCase).ServeHTTP(w, httptest.NewRequest(http.MethodGet, inventoryPath+tt.query, nil))

			assert.Equal(t, tt.status, w.Code)
			assert.False(t, decodeEnvelope(t, w).Success)
		})
	}
}

func TestInventoryHandler_SetStock(t *testing.T) {
	// Arrange
	useCase := new(MockInventoryUseCase)
	useCase.On("SetStock", mock.Anything, mock.MatchedBy(func(req StockWriteRequest) bool {
		return req.Key() == testKey &&
			req.Quantity.Valid && req.Quantity.Decimal.Equal(decimal.RequireFromString("2.5")) &&
			req.ExpectedQuantity.Valid && req.ExpectedQuantity.Decimal.Equal(decimal.NewFromInt(5))
	})).Return(&InventoryLevel{StockKey: testKey, Quantity: decimal.RequireFromString("2.5")}, nil)

	w := httptest.NewRecorder()
	body := `{"product_id":42,"location_id":7,"quantity":2.5,"expected_quantity":5}`
	req := httptest.NewRequest(http.MethodPost, inventoryPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	// Act
	newTestRouter(useCase).ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeEnvelope(t, w).Success)
	useCase.AssertExpectations(t)
}

func TestInventoryHandler_SetStock_Conflict(t *testing.T) {
	useCase := new(MockInventoryUseCase)
	useCase.On("SetStock", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: expected 5, found 4", ErrQuantityChanged))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, inventoryPath,
		strings.NewReader(`{"product_id":42,"location_id":7,"quantity":2,"expected_quantity":5}`))
	req.Header.Set("Content-Type", "application/json")

	newTestRouter(useCase).ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	env := decodeEnvelope(t, w)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "expected 5")
}

func TestInventoryHandler_SetStock_MalformedBody(t *testing.T) {
	useCase := new(MockInventoryUseCase)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, inventoryPath, strings.NewReader(`{"quantity":`))
	req.Header.Set("Content-Type", "application/json")

	newTestRouter(useCase).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	useCase.AssertNotCalled(t, "SetStock", mock.Anything, mock.Anything)
}
