package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const inventoryPath = "/wp-json/flora-im/v1/inventory"

// InventoryReader fetches the current stock of one counter.
type InventoryReader interface {
	GetStock(ctx context.Context, key InventoryKey) (decimal.Decimal, error)
}

// Movement reasons recorded by the inventory API
const (
	MovementReasonSale         = "pos_sale"
	MovementReasonCompensation = "pos_compensation"
)

// StockMovement says why a write happens. The inventory API records it and
// applies a reference at most once per reason.
type StockMovement struct {
	Reason    string
	Reference string
}

// InventoryWriter overwrites one counter with an absolute value. When expected
// is set the write only applies if the counter still holds that value.
type InventoryWriter interface {
	SetStock(ctx context.Context, key InventoryKey, target decimal.Decimal, expected *decimal.Decimal, movement StockMovement) error
}

// FloraInventoryClient talks to the Flora IM inventory REST API.
type FloraInventoryClient struct {
	client      *resty.Client
	readPolicy  RetryPolicy
	writePolicy RetryPolicy
}

// NewFloraInventoryClient creates a new inventory API client
func NewFloraInventoryClient(client *resty.Client, readPolicy, writePolicy RetryPolicy) *FloraInventoryClient {
	return &FloraInventoryClient{
		client:      client,
		readPolicy:  readPolicy,
		writePolicy: writePolicy,
	}
}

type stockWriteRequest struct {
	ProductID        int64    `json:"product_id"`
	LocationID       int64    `json:"location_id"`
	VariationID      int64    `json:"variation_id,omitempty"`
	Quantity         float64  `json:"quantity"`
	ExpectedQuantity *float64 `json:"expected_quantity,omitempty"`
	Reason           string   `json:"reason,omitempty"`
	Reference        string   `json:"reference,omitempty"`
}

// GetStock reads the stock of key. It never returns a guessed value: any
// failure after the retries is reported as ErrStockUnavailable.
func (c *FloraInventoryClient) GetStock(ctx context.Context, key InventoryKey) (decimal.Decimal, error) {
	params := map[string]string{
		"product_id":  strconv.FormatInt(key.ProductID, 10),
		"location_id": strconv.FormatInt(key.LocationID, 10),
	}
	if key.VariationID != 0 {
		params["variation_id"] = strconv.FormatInt(key.VariationID, 10)
	}

	stock, err := retryCall(ctx, "inventory.get", c.readPolicy, func(ctx context.Context) (decimal.Decimal, error) {
		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(inventoryPath)
		if err != nil {
			if isTransientTransport(err) {
				return decimal.Zero, transient(err)
			}
			return decimal.Zero, err
		}
		if resp.IsError() {
			statusErr := fmt.Errorf("inventory api returned %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
			if isTransientStatus(resp.StatusCode()) {
				return decimal.Zero, transient(statusErr)
			}
			return decimal.Zero, statusErr
		}
		return parseStockResponse(resp.Body(), key)
	})
	if err != nil {
		log.Printf("❌ [STOCK READ] FAILED for %s: %v", key, err)
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrStockUnavailable, key, err)
	}

	return stock, nil
}

// SetStock writes target as the new absolute stock of key.
//
// An attempt that timed out may still have been applied. If a later attempt
// of the same conditional write then gets a conflict, the counter is read
// back and a value equal to target counts as success.
func (c *FloraInventoryClient) SetStock(ctx context.Context, key InventoryKey, target decimal.Decimal, expected *decimal.Decimal, movement StockMovement) error {
	if target.IsNegative() {
		return &PipelineError{
			Kind:      KindInvalidStockValue,
			Line:      -1,
			ProductID: key.ProductID,
			Message:   fmt.Sprintf("refusing to write negative stock %s for %s", target, key),
		}
	}

	body := stockWriteRequest{
		ProductID:   key.ProductID,
		LocationID:  key.LocationID,
		VariationID: key.VariationID,
		Quantity:    target.InexactFloat64(),
		Reason:      movement.Reason,
		Reference:   movement.Reference,
	}
	if expected != nil {
		v := expected.InexactFloat64()
		body.ExpectedQuantity = &v
	}

	uncertain := false
	_, err := retryCall(ctx, "inventory.set", c.writePolicy, func(ctx context.Context) (struct{}, error) {
		resp, err := c.client.R().
			SetContext(ctx).
			SetBody(body).
			Post(inventoryPath)
		if err != nil {
			if isTransientTransport(err) {
				uncertain = true
				return struct{}{}, transient(err)
			}
			return struct{}{}, err
		}
		if resp.StatusCode() == http.StatusConflict {
			return struct{}{}, fmt.Errorf("%w: %s", ErrStockConflict, key)
		}
		if resp.IsError() {
			statusErr := fmt.Errorf("inventory api returned %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
			if isTransientStatus(resp.StatusCode()) {
				uncertain = true
				return struct{}{}, transient(statusErr)
			}
			return struct{}{}, statusErr
		}
		return struct{}{}, parseWriteResponse(resp.Body())
	})
	if err != nil && uncertain && errors.Is(err, ErrStockConflict) {
		if current, readErr := c.GetStock(ctx, key); readErr == nil && current.Equal(target) {
			log.Printf("ℹ️ [STOCK WRITE] %s already holds %s, earlier attempt was applied", key, target)
			return nil
		}
	}
	if err != nil {
		log.Printf("❌ [STOCK WRITE] FAILED for %s target=%s: %v", key, target, err)
		return fmt.Errorf("writing stock for %s: %w", key, err)
	}

	log.Debugf("✅ [STOCK WRITE] %s = %s", key, target)
	return nil
}
