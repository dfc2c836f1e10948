package main

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// LineState is the position of one cart line in the deduction state machine.
type LineState string

const (
	LineIdle         LineState = "idle"
	LineReadingStock LineState = "reading_stock"
	LineComputing    LineState = "computing"
	LineWriting      LineState = "writing"
	LineCommitted    LineState = "committed"
	LineFailed       LineState = "failed"
)

// conflictAttempts bounds read-compute-write cycles when conditional writes
// keep losing to concurrent checkouts.
const conflictAttempts = 3

type lineRun struct {
	index     int
	key       InventoryKey
	reference string
	state     LineState
	span      trace.Span
}

func (r *lineRun) transition(to LineState) {
	log.WithFields(log.Fields{
		"line": r.index,
		"key":  r.key.String(),
		"from": r.state,
		"to":   to,
	}).Debug("deduction state change")
	r.span.AddEvent(string(to))
	r.state = to
}

func (r *lineRun) fail(err error) error {
	r.transition(LineFailed)
	r.span.RecordError(err)
	r.span.SetStatus(codes.Error, string(KindOf(err)))
	return err
}

// DeductionOrchestrator deducts the stock of one cart line.
type DeductionOrchestrator struct {
	reader            InventoryReader
	writer            InventoryWriter
	tracer            trace.Tracer
	metrics           *pipelineMetrics
	conditionalWrites bool
}

// NewDeductionOrchestrator creates a new DeductionOrchestrator
func NewDeductionOrchestrator(
	reader InventoryReader,
	writer InventoryWriter,
	tracer trace.Tracer,
	metrics *pipelineMetrics,
	conditionalWrites bool,
) *DeductionOrchestrator {
	return &DeductionOrchestrator{
		reader:            reader,
		writer:            writer,
		tracer:            tracer,
		metrics:           metrics,
		conditionalWrites: conditionalWrites,
	}
}

// ValidateLine rejects lines that cannot be deducted before any network call.
func ValidateLine(line CartLine) error {
	if line.ProductID <= 0 {
		return fmt.Errorf("product id must be positive, got %d", line.ProductID)
	}
	if math.IsNaN(line.Quantity) || math.IsInf(line.Quantity, 0) || line.Quantity <= 0 {
		return fmt.Errorf("quantity must be a positive finite number, got %v", line.Quantity)
	}
	if line.VariationID < 0 {
		return fmt.Errorf("variation id must not be negative, got %d", line.VariationID)
	}
	return nil
}

// movementReference identifies one line of one checkout in the inventory
// movement log.
func movementReference(checkoutID string, index int) string {
	return fmt.Sprintf("%s:%d", checkoutID, index)
}

// DeductLine reads the current stock of key, subtracts the converted amount
// sold on the line and writes the result back.
func (o *DeductionOrchestrator) DeductLine(ctx context.Context, checkoutID string, index int, key InventoryKey, line CartLine) (*DeductionRecord, error) {
	ctx, span := o.tracer.Start(ctx, "inventory.deduct_line")
	defer span.End()
	span.SetAttributes(
		attribute.Int("line.index", index),
		attribute.Int64("product_id", key.ProductID),
		attribute.Int64("location_id", key.LocationID),
		attribute.Int64("variation_id", key.VariationID),
	)

	run := &lineRun{index: index, key: key, state: LineIdle, span: span, reference: movementReference(checkoutID, index)}

	if err := ValidateLine(line); err != nil {
		return nil, run.fail(newLineError(KindInvalidLineItem, index, line.ProductID, "invalid line item", err))
	}

	// Conversion rules are checked before the first inventory call so a
	// malformed or missing rule never touches stock.
	deduction, err := CalculateDeduction(line)
	if err != nil {
		var pe *PipelineError
		if errors.As(err, &pe) {
			pe.Line = index
		}
		return nil, run.fail(err)
	}

	for attempt := 1; ; attempt++ {
		record, err := o.deductOnce(ctx, run, line, deduction)
		if err == nil {
			run.transition(LineCommitted)
			span.SetAttributes(
				attribute.String("stock.old", record.OldStock.String()),
				attribute.String("stock.new", record.NewStock.String()),
			)
			return record, nil
		}
		if o.conditionalWrites && errors.Is(err, ErrStockConflict) && attempt < conflictAttempts {
			log.Printf("🔁 [DEDUCT] Stock for %s changed concurrently, re-reading (attempt %d/%d)", key, attempt, conflictAttempts)
			continue
		}
		return nil, run.fail(err)
	}
}

func (o *DeductionOrchestrator) deductOnce(ctx context.Context, run *lineRun, line CartLine, deduction Deduction) (*DeductionRecord, error) {
	key := run.key

	run.transition(LineReadingStock)
	current, err := o.reader.GetStock(ctx, key)
	if err != nil {
		return nil, newLineError(KindInventoryUnavailable, run.index, line.ProductID, "current stock could not be read", err)
	}

	run.transition(LineComputing)

	if deduction.Capped {
		log.WithFields(log.Fields{
			"line":     run.index,
			"key":      key.String(),
			"computed": deduction.Uncapped.String(),
			"capped":   deduction.Amount.String(),
			"rule":     line.ConversionRule.String(),
		}).Warnf("⚠️ [CONVERSION] Deduction capped at %dx quantity sold", maxConversionFactor)
		o.metrics.conversionCapped(ctx, key)
	}

	newStock := current.Sub(deduction.Amount)
	oversold := false
	if newStock.IsNegative() {
		oversold = true
		newStock = decimal.Zero
		log.WithFields(log.Fields{
			"line":     run.index,
			"key":      key.String(),
			"stock":    current.String(),
			"deducted": deduction.Amount.String(),
		}).Warn("⚠️ [OVERSELLING] Deduction exceeds recorded stock, flooring at zero")
		o.metrics.overselling(ctx, key)
	}

	run.transition(LineWriting)
	var expected *decimal.Decimal
	if o.conditionalWrites {
		expected = &current
	}
	movement := StockMovement{Reason: MovementReasonSale, Reference: run.reference}
	if err := o.writer.SetStock(ctx, key, newStock, expected, movement); err != nil {
		if errors.Is(err, ErrInvalidStockValue) {
			return nil, err
		}
		return nil, newLineError(KindInventoryWriteFailed, run.index, line.ProductID, "new stock could not be written", err)
	}

	return &DeductionRecord{
		LineIndex:         run.index,
		Key:               key,
		QuantitySold:      decimal.NewFromFloat(line.Quantity),
		QuantityDeducted:  deduction.Amount,
		OldStock:          current,
		NewStock:          newStock,
		ConversionApplied: deduction.ConversionApplied,
		ConversionCapped:  deduction.Capped,
		Oversold:          oversold,
		Reference:         run.reference,
	}, nil
}
