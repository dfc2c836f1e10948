package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockKey identifies one stock counter
type StockKey struct {
	ProductID   int64 `json:"product_id"`
	LocationID  int64 `json:"location_id"`
	VariationID int64 `json:"variation_id"`
}

func (k StockKey) String() string {
	return fmt.Sprintf("product=%d location=%d variation=%d", k.ProductID, k.LocationID, k.VariationID)
}

// InventoryLevel is the stock of one product (or variation) at one location
type InventoryLevel struct {
	StockKey
	Quantity  decimal.Decimal `json:"quantity"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// InventoryMovement records one absolute stock write with the value it replaced
type InventoryMovement struct {
	ID          string          `json:"id"`
	Key         StockKey        `json:"key"`
	OldQuantity decimal.Decimal `json:"old_quantity"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Reason      string          `json:"reason"`
	Reference   string          `json:"reference,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewInventoryMovement creates a new InventoryMovement
func NewInventoryMovement(key StockKey, oldQty, newQty decimal.Decimal, reason, reference string) *InventoryMovement {
	return &InventoryMovement{
		ID:          uuid.New().String(),
		Key:         key,
		OldQuantity: oldQty,
		NewQuantity: newQty,
		Reason:      movementReason(reason),
		Reference:   reference,
		CreatedAt:   time.Now(),
	}
}

// Change is the signed difference applied by the movement.
func (m *InventoryMovement) Change() decimal.Decimal {
	return m.NewQuantity.Sub(m.OldQuantity)
}

// Movement reasons
const (
	MovementReasonSet        = "set"
	MovementReasonSale       = "pos_sale"
	MovementReasonCompensate = "pos_compensation"
)

func movementReason(reason string) string {
	if reason == "" {
		return MovementReasonSet
	}
	return reason
}

// StockWriteRequest is the body of POST /wp-json/flora-im/v1/inventory
type StockWriteRequest struct {
	ProductID        int64               `json:"product_id"`
	LocationID       int64               `json:"location_id"`
	VariationID      int64               `json:"variation_id"`
	Quantity         decimal.NullDecimal `json:"quantity"`
	ExpectedQuantity decimal.NullDecimal `json:"expected_quantity"`
	Reason           string              `json:"reason,omitempty"`
	Reference        string              `json:"reference,omitempty"`
}

// Key returns the counter the request writes.
func (r StockWriteRequest) Key() StockKey {
	return StockKey{ProductID: r.ProductID, LocationID: r.LocationID, VariationID: r.VariationID}
}

// apiResponse is the {success, data} envelope of the Flora IM API
type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// stockView is how a level is rendered on the wire
type stockView struct {
	ProductID   int64           `json:"product_id"`
	LocationID  int64           `json:"location_id"`
	VariationID int64           `json:"variation_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func viewOf(level *InventoryLevel) stockView {
	return stockView{
		ProductID:   level.ProductID,
		LocationID:  level.LocationID,
		VariationID: level.VariationID,
		Quantity:    level.Quantity,
		UpdatedAt:   level.UpdatedAt,
	}
}
