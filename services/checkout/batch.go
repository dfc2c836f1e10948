package main

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// LineDeductor deducts the stock of a single cart line.
type LineDeductor interface {
	DeductLine(ctx context.Context, checkoutID string, index int, key InventoryKey, line CartLine) (*DeductionRecord, error)
}

// BatchResult is the outcome of deducting a whole cart.
type BatchResult struct {
	Records          []DeductionRecord
	Err              error
	FailedLine       int
	Rollback         *RollbackReport
	RollbackComplete bool
}

// Success reports whether every line committed.
func (r BatchResult) Success() bool {
	return r.Err == nil
}

// BatchDeductionCoordinator deducts cart lines one after another and
// compensates the committed ones when a line fails.
type BatchDeductionCoordinator struct {
	deductor          LineDeductor
	writer            InventoryWriter
	tracer            trace.Tracer
	metrics           *pipelineMetrics
	conditionalWrites bool
}

// NewBatchDeductionCoordinator creates a new BatchDeductionCoordinator
func NewBatchDeductionCoordinator(
	deductor LineDeductor,
	writer InventoryWriter,
	tracer trace.Tracer,
	metrics *pipelineMetrics,
	conditionalWrites bool,
) *BatchDeductionCoordinator {
	return &BatchDeductionCoordinator{
		deductor:          deductor,
		writer:            writer,
		tracer:            tracer,
		metrics:           metrics,
		conditionalWrites: conditionalWrites,
	}
}

// DeductAll runs the lines strictly in order. The first failure stops the
// batch and every previously committed line is restored best-effort.
func (c *BatchDeductionCoordinator) DeductAll(ctx context.Context, checkoutID string, locationID int64, lines []CartLine) BatchResult {
	ctx, span := c.tracer.Start(ctx, "inventory.deduct_batch")
	defer span.End()
	span.SetAttributes(
		attribute.String("checkout_id", checkoutID),
		attribute.Int64("location_id", locationID),
		attribute.Int("lines", len(lines)),
	)

	var committed CompensationList
	for i, line := range lines {
		key := KeyForLine(locationID, line)
		record, err := c.deductor.DeductLine(ctx, checkoutID, i, key, line)
		if err != nil {
			log.Printf("❌ [DEDUCT BATCH] line %d failed, rolling back %d committed line(s): %v", i, committed.Len(), err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "deduction failed")

			result := BatchResult{
				Records:          committed.Records(),
				Err:              err,
				FailedLine:       i,
				RollbackComplete: true,
			}
			if committed.Len() > 0 {
				rollbackCtx, rollbackSpan := c.tracer.Start(ctx, "inventory.rollback")
				report := committed.Compensate(rollbackCtx, c.writer, c.conditionalWrites, c.metrics)
				rollbackSpan.SetAttributes(
					attribute.Int("restored", len(report.Restored)),
					attribute.Int("failed", len(report.Failed)),
				)
				if !report.Complete() {
					rollbackSpan.SetStatus(codes.Error, "rollback partially failed")
				}
				rollbackSpan.End()

				result.Rollback = &report
				result.RollbackComplete = report.Complete()
			}
			return result
		}

		committed.Push(*record)
	}

	log.Printf("✅ [DEDUCT BATCH] Success: %d line(s) at location %d", committed.Len(), locationID)
	return BatchResult{Records: committed.Records(), FailedLine: -1, RollbackComplete: true}
}
