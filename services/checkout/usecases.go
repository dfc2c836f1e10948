package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// alertPublishTimeout bounds how long an unreachable broker can hold up the
// checkout response.
const alertPublishTimeout = 3 * time.Second

// BatchDeductor deducts every line of a committed order.
type BatchDeductor interface {
	DeductAll(ctx context.Context, checkoutID string, locationID int64, lines []CartLine) BatchResult
}

// CheckoutUseCase is the entry point of the checkout pipeline: it submits the
// order and then deducts stock for it.
type CheckoutUseCase struct {
	submitter OrderSubmitter
	deductor  BatchDeductor
	alerts    AlertPublisher
	tracer    trace.Tracer
	metrics   *pipelineMetrics
	taxRate   float64
}

// NewCheckoutUseCase creates a new CheckoutUseCase
func NewCheckoutUseCase(
	submitter OrderSubmitter,
	deductor BatchDeductor,
	alerts AlertPublisher,
	tracer trace.Tracer,
	metrics *pipelineMetrics,
	taxRate float64,
) *CheckoutUseCase {
	return &CheckoutUseCase{
		submitter: submitter,
		deductor:  deductor,
		alerts:    alerts,
		tracer:    tracer,
		metrics:   metrics,
		taxRate:   taxRate,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidateCheckout checks the whole payload. It has no side effects.
func ValidateCheckout(req CheckoutRequest) error {
	if len(req.Lines) == 0 {
		return fmt.Errorf("cart is empty")
	}
	if req.LocationID <= 0 {
		return fmt.Errorf("location id must be positive, got %d", req.LocationID)
	}
	if req.EmployeeID <= 0 {
		return fmt.Errorf("employee id must be positive, got %d", req.EmployeeID)
	}
	switch req.Payment.Method {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodSplit:
	default:
		return fmt.Errorf("unsupported payment method %q", req.Payment.Method)
	}
	if req.TaxRate != nil && (!finite(*req.TaxRate) || *req.TaxRate < 0) {
		return fmt.Errorf("tax rate must be a non-negative number")
	}

	for i, line := range req.Lines {
		if line.ProductID <= 0 {
			return fmt.Errorf("line %d: product id must be positive, got %d", i, line.ProductID)
		}
		if !finite(line.Quantity) || line.Quantity <= 0 {
			return fmt.Errorf("line %d: quantity must be a positive number, got %v", i, line.Quantity)
		}
		if line.VariationID < 0 {
			return fmt.Errorf("line %d: variation id must not be negative, got %d", i, line.VariationID)
		}
		if !finite(line.UnitPrice) || line.UnitPrice < 0 {
			return fmt.Errorf("line %d: price must not be negative, got %v", i, line.UnitPrice)
		}
		if line.PriceOverride != nil && (!finite(*line.PriceOverride) || *line.PriceOverride < 0) {
			return fmt.Errorf("line %d: price override must not be negative", i)
		}
		if d := line.DiscountPercent; d != nil && (!finite(*d) || *d < 0 || *d > 100) {
			return fmt.Errorf("line %d: discount must be between 0 and 100 percent", i)
		}
	}
	return nil
}

// Checkout submits the order and deducts its stock. The order id is reported
// whenever the order was created, even if the deduction failed afterwards.
func (uc *CheckoutUseCase) Checkout(ctx context.Context, req CheckoutRequest) (result CheckoutResult) {
	checkoutID := uuid.New().String()
	ctx, span := uc.tracer.Start(ctx, "checkout")
	defer span.End()
	span.SetAttributes(
		attribute.String("checkout_id", checkoutID),
		attribute.Int64("location_id", req.LocationID),
		attribute.Int64("employee_id", req.EmployeeID),
		attribute.Int("lines", len(req.Lines)),
	)

	log.Printf("➡️ [CHECKOUT] CheckoutID: %s | LocationID: %d | EmployeeID: %d | Lines: %d",
		checkoutID, req.LocationID, req.EmployeeID, len(req.Lines))

	result = CheckoutResult{CheckoutID: checkoutID}
	defer func() {
		uc.metrics.checkout(ctx, result.Status)
		span.SetAttributes(attribute.String("checkout.status", result.Status))
	}()

	if err := ValidateCheckout(req); err != nil {
		return uc.invalid(span, result, err)
	}
	order, err := BuildOrder(checkoutID, req, uc.taxRate)
	if err != nil {
		return uc.invalid(span, result, err)
	}

	// Point of no return: once the order exists it cannot be abandoned.
	orderCtx, orderSpan := uc.tracer.Start(ctx, "order.submit")
	submitted, err := uc.submitter.SubmitOrder(orderCtx, order)
	if err != nil {
		orderSpan.RecordError(err)
		orderSpan.SetStatus(codes.Error, "order submission failed")
		orderSpan.End()

		pe := newError(KindOrderSubmissionFailed, "order was not created", err)
		log.Printf("❌ [CHECKOUT] FAILED for CheckoutID=%s : %s", checkoutID, pe)
		span.RecordError(pe)
		span.SetStatus(codes.Error, string(pe.Kind))

		result.Status = CheckoutStatusOrderFailed
		result.Severity = SeverityError
		result.ErrorKind = string(pe.Kind)
		result.Error = pe.Error()
		return result
	}
	orderSpan.SetAttributes(attribute.Int64("order_id", submitted.ID))
	orderSpan.End()

	result.OrderCreated = true
	result.OrderID = submitted.ID
	result.OrderNumber = submitted.Number
	span.SetAttributes(attribute.Int64("order_id", submitted.ID))

	// The caller can no longer cancel: a half-deducted cart must still be
	// finished or compensated.
	batch := uc.deductor.DeductAll(context.WithoutCancel(ctx), checkoutID, req.LocationID, req.Lines)
	result.Deductions = batch.Records
	result.Signals = signalsFor(batch.Records)

	if !batch.Success() {
		uc.inventoryFailed(ctx, span, &result, req, batch)
		return result
	}

	result.Success = true
	result.Status = CheckoutStatusCompleted
	for _, sig := range result.Signals {
		uc.publish(ctx, InventoryAlert{
			Type:       alertTypeFor(sig.Kind),
			CheckoutID: checkoutID,
			OrderID:    result.OrderID,
			LocationID: req.LocationID,
			Message:    sig.Message,
			Signals:    []Signal{sig},
			OccurredAt: time.Now().UTC(),
		})
	}

	span.SetStatus(codes.Ok, "checkout completed")
	log.Printf("✅ [CHECKOUT] Success: CheckoutID=%s OrderID=%d", checkoutID, result.OrderID)
	return result
}

func (uc *CheckoutUseCase) invalid(span trace.Span, result CheckoutResult, err error) CheckoutResult {
	pe := newError(KindInvalidCheckoutInput, "", err)
	log.Printf("❌ [CHECKOUT] Invalid input for CheckoutID=%s : %v", result.CheckoutID, err)
	span.RecordError(pe)
	span.SetStatus(codes.Error, string(pe.Kind))

	result.Status = CheckoutStatusInvalidInput
	result.Severity = SeverityError
	result.ErrorKind = string(pe.Kind)
	result.Error = pe.Error()
	return result
}

// inventoryFailed reports a deduction failure after the order was committed.
// It is a warning: the sale happened, the stock needs attention.
func (uc *CheckoutUseCase) inventoryFailed(ctx context.Context, span trace.Span, result *CheckoutResult, req CheckoutRequest, batch BatchResult) {
	result.Status = CheckoutStatusInventoryFailed
	result.Severity = SeverityWarning
	result.ErrorKind = string(KindOf(batch.Err))
	result.Error = batch.Err.Error()
	result.ReconciliationRequired = true
	if batch.Rollback != nil {
		result.RestoredLines = batch.Rollback.Restored
		result.RollbackFailures = batch.Rollback.Failed
	}

	span.RecordError(batch.Err)
	span.SetStatus(codes.Error, result.ErrorKind)
	log.WithFields(log.Fields{
		"checkout_id": result.CheckoutID,
		"order_id":    result.OrderID,
		"failed_line": batch.FailedLine,
		"restored":    len(result.RestoredLines),
	}).Warnf("⚠️ [CHECKOUT] Order created but stock deduction failed: %v", batch.Err)

	alert := InventoryAlert{
		Type:          AlertInventoryDeductionFailed,
		CheckoutID:    result.CheckoutID,
		OrderID:       result.OrderID,
		LocationID:    req.LocationID,
		ErrorKind:     result.ErrorKind,
		Message:       fmt.Sprintf("order %d was created but stock deduction failed at line %d: %v", result.OrderID, batch.FailedLine, batch.Err),
		Signals:       result.Signals,
		RestoredLines: result.RestoredLines,
		OccurredAt:    time.Now().UTC(),
	}
	uc.publish(ctx, alert)

	if !batch.RollbackComplete {
		rollbackErr := newError(KindRollbackPartiallyFailed,
			fmt.Sprintf("%d of %d compensating write(s) failed", len(result.RollbackFailures), len(result.RollbackFailures)+len(result.RestoredLines)), nil)
		result.RollbackErrorKind = string(rollbackErr.Kind)
		result.Error = fmt.Sprintf("%s; %s", result.Error, rollbackErr)

		alert.Type = AlertRollbackPartiallyFailed
		alert.ErrorKind = string(rollbackErr.Kind)
		alert.Message = fmt.Sprintf("order %d: %s, manual reconciliation needed", result.OrderID, rollbackErr)
		alert.RollbackFailures = result.RollbackFailures
		uc.publish(ctx, alert)
	}
}

func (uc *CheckoutUseCase) publish(ctx context.Context, alert InventoryAlert) {
	if uc.alerts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertPublishTimeout)
	defer cancel()
	if err := uc.alerts.Publish(ctx, alert); err != nil {
		log.Printf("⚠️ [ALERT] Failed to publish %s for CheckoutID=%s: %v", alert.Type, alert.CheckoutID, err)
	}
}

// signalsFor lists the observability signals raised by committed deductions.
func signalsFor(records []DeductionRecord) []Signal {
	var signals []Signal
	for _, rec := range records {
		if rec.ConversionCapped {
			signals = append(signals, Signal{
				Kind:      SignalConversionCapped,
				LineIndex: rec.LineIndex,
				Key:       rec.Key,
				Message:   fmt.Sprintf("deduction for %s capped at %s", rec.Key, rec.QuantityDeducted),
				Amount:    rec.QuantityDeducted,
			})
		}
		if rec.Oversold {
			short := rec.QuantityDeducted.Sub(rec.OldStock)
			signals = append(signals, Signal{
				Kind:      SignalOversellingDetected,
				LineIndex: rec.LineIndex,
				Key:       rec.Key,
				Message:   fmt.Sprintf("sold %s with only %s in stock for %s", rec.QuantityDeducted, rec.OldStock, rec.Key),
				Amount:    short,
			})
		}
	}
	return signals
}
