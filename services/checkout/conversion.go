package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// maxConversionFactor bounds a converted deduction relative to the quantity sold.
const maxConversionFactor = 10

// Deduction is the inventory-unit amount a line removes from stock.
type Deduction struct {
	Amount            decimal.Decimal
	Uncapped          decimal.Decimal
	ConversionApplied bool
	Capped            bool
}

// IsRollCategory reports whether a product category is a roll-type product,
// which must always be sold through a conversion rule.
func IsRollCategory(category string) bool {
	return strings.Contains(strings.ToLower(category), "roll")
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// CalculateDeduction converts the quantity sold on a line into the amount to
// deduct from inventory.
func CalculateDeduction(line CartLine) (Deduction, error) {
	if line.ConversionRule == nil {
		if IsRollCategory(line.Category) {
			return Deduction{}, &PipelineError{
				Kind:      KindConversionRuleRequired,
				ProductID: line.ProductID,
				Message:   fmt.Sprintf("category %q requires a conversion rule", line.Category),
			}
		}
		if !validAmount(line.Quantity) {
			return Deduction{}, &PipelineError{
				Kind:      KindInvalidLineItem,
				ProductID: line.ProductID,
				Message:   fmt.Sprintf("quantity must be a positive finite number, got %v", line.Quantity),
			}
		}
		qty := decimal.NewFromFloat(line.Quantity)
		return Deduction{Amount: qty, Uncapped: qty}, nil
	}

	rule := line.ConversionRule
	if !validAmount(rule.InputAmount) || !validAmount(rule.OutputAmount) {
		return Deduction{}, &PipelineError{
			Kind:      KindInvalidConversionRule,
			ProductID: line.ProductID,
			Message: fmt.Sprintf("conversion amounts must be positive finite numbers, got input=%v output=%v",
				rule.InputAmount, rule.OutputAmount),
		}
	}
	if !validAmount(line.Quantity) {
		return Deduction{}, &PipelineError{
			Kind:      KindInvalidConversionRule,
			ProductID: line.ProductID,
			Message:   fmt.Sprintf("quantity must be a positive finite number, got %v", line.Quantity),
		}
	}

	qty := decimal.NewFromFloat(line.Quantity)
	amount := qty.Mul(decimal.NewFromFloat(rule.InputAmount)).Div(decimal.NewFromFloat(rule.OutputAmount))

	d := Deduction{Amount: amount, Uncapped: amount, ConversionApplied: true}
	limit := qty.Mul(decimal.NewFromInt(maxConversionFactor))
	if amount.GreaterThan(limit) {
		d.Amount = limit
		d.Capped = true
	}
	return d, nil
}
