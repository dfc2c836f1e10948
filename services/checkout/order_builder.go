package main

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

var (
	hundred       = decimal.NewFromInt(100)
	paymentTitles = map[string]string{
		PaymentMethodCash:  "Cash",
		PaymentMethodCard:  "Card",
		PaymentMethodSplit: "Split Payment",
	}
)

// MetaData is a WooCommerce key/value pair on orders and line items.
type MetaData struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CommerceLineItem is one order line as the commerce API expects it.
type CommerceLineItem struct {
	ProductID   int64      `json:"product_id"`
	VariationID int64      `json:"variation_id,omitempty"`
	Name        string     `json:"name,omitempty"`
	SKU         string     `json:"sku,omitempty"`
	Quantity    float64    `json:"quantity"`
	Subtotal    string     `json:"subtotal"`
	Total       string     `json:"total"`
	MetaData    []MetaData `json:"meta_data,omitempty"`
}

// CommerceOrder is the order payload submitted to the commerce API.
type CommerceOrder struct {
	Status             string             `json:"status"`
	SetPaid            bool               `json:"set_paid"`
	PaymentMethod      string             `json:"payment_method"`
	PaymentMethodTitle string             `json:"payment_method_title"`
	CustomerID         int64              `json:"customer_id,omitempty"`
	CustomerNote       string             `json:"customer_note,omitempty"`
	LineItems          []CommerceLineItem `json:"line_items"`
	MetaData           []MetaData         `json:"meta_data"`

	// Computed totals; sent as order metadata, kept typed for callers.
	Subtotal decimal.Decimal `json:"-"`
	Tax      decimal.Decimal `json:"-"`
	Total    decimal.Decimal `json:"-"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func decimalPtr(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}

// lineTotals returns the pre-discount and discounted totals of a line.
func lineTotals(line CartLine) (subtotal, total decimal.Decimal) {
	price := decimal.NewFromFloat(line.UnitPrice)
	if override := decimalPtr(line.PriceOverride); override != nil {
		price = *override
	}
	qty := decimal.NewFromFloat(line.Quantity)

	subtotal = price.Mul(qty).Round(2)
	total = subtotal
	if discount := decimalPtr(line.DiscountPercent); discount != nil && discount.IsPositive() {
		factor := hundred.Sub(*discount).Div(hundred)
		total = subtotal.Mul(factor).Round(2)
	}
	return subtotal, total
}

// BuildOrder turns a validated checkout request into the commerce order with
// line metadata and computed subtotal, tax and total.
func BuildOrder(checkoutID string, req CheckoutRequest, defaultTaxRate float64) (*CommerceOrder, error) {
	taxRate := decimal.NewFromFloat(defaultTaxRate)
	if req.TaxRate != nil {
		taxRate = decimal.NewFromFloat(*req.TaxRate)
	}
	if taxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must not be negative, got %s", taxRate)
	}

	order := &CommerceOrder{
		Status:             "completed",
		SetPaid:            true,
		PaymentMethod:      req.Payment.Method,
		PaymentMethodTitle: paymentTitles[req.Payment.Method],
		CustomerID:         req.CustomerID,
		CustomerNote:       req.Notes,
		LineItems:          make([]CommerceLineItem, 0, len(req.Lines)),
	}

	subtotal := decimal.Zero
	for _, line := range req.Lines {
		lineSubtotal, lineTotal := lineTotals(line)
		subtotal = subtotal.Add(lineTotal)

		item := CommerceLineItem{
			ProductID:   line.ProductID,
			VariationID: line.VariationID,
			Name:        line.Name,
			SKU:         line.SKU,
			Quantity:    line.Quantity,
			Subtotal:    money(lineSubtotal),
			Total:       money(lineTotal),
		}
		if line.PriceOverride != nil {
			item.MetaData = append(item.MetaData,
				MetaData{Key: "_pos_price_override", Value: money(decimal.NewFromFloat(*line.PriceOverride))},
				MetaData{Key: "_pos_original_price", Value: money(decimal.NewFromFloat(line.UnitPrice))},
			)
		}
		if line.DiscountPercent != nil {
			item.MetaData = append(item.MetaData,
				MetaData{Key: "_pos_discount_percent", Value: decimal.NewFromFloat(*line.DiscountPercent).String()},
				MetaData{Key: "_pos_discount_amount", Value: money(lineSubtotal.Sub(lineTotal))},
			)
		}
		if rule := line.ConversionRule; rule != nil {
			item.MetaData = append(item.MetaData,
				MetaData{Key: "_conversion_rule", Value: rule.String()},
				MetaData{Key: "_conversion_input_amount", Value: strconv.FormatFloat(rule.InputAmount, 'f', -1, 64)},
				MetaData{Key: "_conversion_input_unit", Value: rule.InputUnit},
				MetaData{Key: "_conversion_output_amount", Value: strconv.FormatFloat(rule.OutputAmount, 'f', -1, 64)},
				MetaData{Key: "_conversion_output_unit", Value: rule.OutputUnit},
			)
		}
		order.LineItems = append(order.LineItems, item)
	}

	order.Subtotal = subtotal
	order.Tax = subtotal.Mul(taxRate).Round(2)
	order.Total = order.Subtotal.Add(order.Tax)

	order.MetaData = []MetaData{
		{Key: "_pos_order", Value: "true"},
		{Key: "_pos_checkout_id", Value: checkoutID},
		{Key: "_pos_location_id", Value: strconv.FormatInt(req.LocationID, 10)},
		{Key: "_pos_employee_id", Value: strconv.FormatInt(req.EmployeeID, 10)},
		{Key: "_pos_subtotal", Value: money(order.Subtotal)},
		{Key: "_pos_tax_rate", Value: taxRate.String()},
		{Key: "_pos_tax_total", Value: money(order.Tax)},
		{Key: "_pos_total", Value: money(order.Total)},
		{Key: "_pos_payment_method", Value: req.Payment.Method},
	}
	if req.TerminalID != "" {
		order.MetaData = append(order.MetaData, MetaData{Key: "_pos_terminal_id", Value: req.TerminalID})
	}
	if req.Payment.Reference != "" {
		order.MetaData = append(order.MetaData, MetaData{Key: "_pos_payment_reference", Value: req.Payment.Reference})
	}
	if req.Payment.Method == PaymentMethodCash && req.Payment.CashReceived != nil {
		received := decimal.NewFromFloat(*req.Payment.CashReceived)
		change := received.Sub(order.Total)
		if change.IsNegative() {
			return nil, fmt.Errorf("cash received %s is less than order total %s", money(received), money(order.Total))
		}
		order.MetaData = append(order.MetaData,
			MetaData{Key: "_pos_cash_received", Value: money(received)},
			MetaData{Key: "_pos_change_given", Value: money(change)},
		)
	}

	return order, nil
}
