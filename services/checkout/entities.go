package main

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ConversionRule describes how many inventory units one sold unit consumes.
type ConversionRule struct {
	InputAmount  float64 `json:"input_amount"`
	InputUnit    string  `json:"input_unit"`
	OutputAmount float64 `json:"output_amount"`
	OutputUnit   string  `json:"output_unit"`
	Description  string  `json:"description,omitempty"`
}

// String renders the rule the way it is stored in order line metadata.
func (r ConversionRule) String() string {
	if r.Description != "" {
		return r.Description
	}
	return fmt.Sprintf("%g%s per %g%s", r.InputAmount, r.InputUnit, r.OutputAmount, r.OutputUnit)
}

// CartLine is one purchasable unit of the checkout request
type CartLine struct {
	ProductID       int64           `json:"product_id"`
	VariationID     int64           `json:"variation_id,omitempty"`
	Name            string          `json:"name,omitempty"`
	SKU             string          `json:"sku,omitempty"`
	Category        string          `json:"category,omitempty"`
	Quantity        float64         `json:"quantity"`
	UnitPrice       float64         `json:"unit_price"`
	PriceOverride   *float64        `json:"price_override,omitempty"`
	DiscountPercent *float64        `json:"discount_percent,omitempty"`
	ConversionRule  *ConversionRule `json:"conversion_rule,omitempty"`
}

// PaymentInfo carries the tender details of the sale.
type PaymentInfo struct {
	Method       string   `json:"method"`
	CashReceived *float64 `json:"cash_received,omitempty"`
	Reference    string   `json:"reference,omitempty"`
}

// Payment methods accepted at the register
const (
	PaymentMethodCash  = "cash"
	PaymentMethodCard  = "card"
	PaymentMethodSplit = "split"
)

// CheckoutRequest is the checkout(cartLines, context) payload.
type CheckoutRequest struct {
	Lines      []CartLine  `json:"lines"`
	LocationID int64       `json:"location_id"`
	EmployeeID int64       `json:"employee_id"`
	TerminalID string      `json:"terminal_id,omitempty"`
	CustomerID int64       `json:"customer_id,omitempty"`
	Payment    PaymentInfo `json:"payment"`
	TaxRate    *float64    `json:"tax_rate,omitempty"`
	Notes      string      `json:"notes,omitempty"`
}

// InventoryKey identifies one stock counter. Counters are per location.
type InventoryKey struct {
	ProductID   int64 `json:"product_id"`
	LocationID  int64 `json:"location_id"`
	VariationID int64 `json:"variation_id"`
}

func (k InventoryKey) String() string {
	return fmt.Sprintf("product=%d location=%d variation=%d", k.ProductID, k.LocationID, k.VariationID)
}

// KeyForLine builds the stock counter key of a cart line at a location
func KeyForLine(locationID int64, line CartLine) InventoryKey {
	return InventoryKey{
		ProductID:   line.ProductID,
		LocationID:  locationID,
		VariationID: line.VariationID,
	}
}

// DeductionRecord captures a committed stock write and is the unit of rollback.
type DeductionRecord struct {
	LineIndex         int             `json:"line_index"`
	Key               InventoryKey    `json:"key"`
	QuantitySold      decimal.Decimal `json:"quantity_sold"`
	QuantityDeducted  decimal.Decimal `json:"quantity_deducted"`
	OldStock          decimal.Decimal `json:"old_stock"`
	NewStock          decimal.Decimal `json:"new_stock"`
	ConversionApplied bool            `json:"conversion_applied"`
	ConversionCapped  bool            `json:"conversion_capped,omitempty"`
	Oversold          bool            `json:"oversold,omitempty"`
	Reference         string          `json:"reference"`
}

// Signal is an observability event raised during checkout. It never fails the sale.
type Signal struct {
	Kind      string          `json:"kind"`
	LineIndex int             `json:"line_index"`
	Key       InventoryKey    `json:"key"`
	Message   string          `json:"message"`
	Amount    decimal.Decimal `json:"amount"`
}

// Signal kinds
const (
	SignalOversellingDetected = "overselling_detected"
	SignalConversionCapped    = "conversion_capped"
)

// RestoredLine reports a compensating write that put the old stock back.
type RestoredLine struct {
	LineIndex     int             `json:"line_index"`
	Key           InventoryKey    `json:"key"`
	RestoredStock decimal.Decimal `json:"restored_stock"`
}

// RollbackFailure reports a compensating write that could not be applied.
type RollbackFailure struct {
	LineIndex int          `json:"line_index"`
	Key       InventoryKey `json:"key"`
	Error     string       `json:"error"`
}

// CheckoutResult is the single outcome returned to the register.
type CheckoutResult struct {
	CheckoutID             string            `json:"checkout_id"`
	Success                bool              `json:"success"`
	Status                 string            `json:"status"`
	Severity               string            `json:"severity,omitempty"`
	OrderID                int64             `json:"order_id,omitempty"`
	OrderNumber            string            `json:"order_number,omitempty"`
	OrderCreated           bool              `json:"order_created"`
	ErrorKind              string            `json:"error_kind,omitempty"`
	Error                  string            `json:"error,omitempty"`
	RollbackErrorKind      string            `json:"rollback_error_kind,omitempty"`
	Deductions             []DeductionRecord `json:"deductions,omitempty"`
	RestoredLines          []RestoredLine    `json:"restored_lines,omitempty"`
	RollbackFailures       []RollbackFailure `json:"rollback_failures,omitempty"`
	Signals                []Signal          `json:"signals,omitempty"`
	ReconciliationRequired bool              `json:"reconciliation_required"`
}

// Checkout statuses
const (
	CheckoutStatusCompleted       = "completed"
	CheckoutStatusInvalidInput    = "invalid_input"
	CheckoutStatusOrderFailed     = "order_failed"
	CheckoutStatusInventoryFailed = "inventory_failed"
)

// Result severities. Inventory failures after a committed order are warnings.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)
