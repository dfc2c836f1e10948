package main

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewInventoryMovement(t *testing.T) {
	// Arrange
	key := StockKey{ProductID: 42, LocationID: 7}

	// Act
	movement := NewInventoryMovement(key, decimal.NewFromInt(5), decimal.NewFromInt(2), "", "order-101")

	// Assert
	assert.NotEmpty(t, movement.ID)
	assert.Equal(t, key, movement.Key)
	assert.Equal(t, MovementReasonSet, movement.Reason)
	assert.Equal(t, "order-101", movement.Reference)
	assert.True(t, movement.Change().Equal(decimal.NewFromInt(-3)))
	assert.WithinDuration(t, time.Now(), movement.CreatedAt, time.Second)
}

func TestStockWriteRequest_Key(t *testing.T) {
	req := StockWriteRequest{ProductID: 1, LocationID: 2, VariationID: 3}
	assert.Equal(t, StockKey{ProductID: 1, LocationID: 2, VariationID: 3}, req.Key())
	assert.Equal(t, "product=1 location=2 variation=3", req.Key().String())
}
