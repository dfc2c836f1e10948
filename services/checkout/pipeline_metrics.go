package main

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// pipelineMetrics groups the counters recorded by the checkout pipeline.
type pipelineMetrics struct {
	checkouts        metric.Int64Counter
	oversellings     metric.Int64Counter
	cappedDeductions metric.Int64Counter
	rollbacks        metric.Int64Counter
	rollbackFailures metric.Int64Counter
}

func newPipelineMetrics(meter metric.Meter) (*pipelineMetrics, error) {
	checkouts, err := meter.Int64Counter("pos.checkout.total",
		metric.WithDescription("Checkouts by final status"))
	if err != nil {
		return nil, err
	}
	oversellings, err := meter.Int64Counter("pos.inventory.overselling.total",
		metric.WithDescription("Deductions that exceeded recorded stock"))
	if err != nil {
		return nil, err
	}
	capped, err := meter.Int64Counter("pos.inventory.conversion_capped.total",
		metric.WithDescription("Converted deductions capped by the safety factor"))
	if err != nil {
		return nil, err
	}
	rollbacks, err := meter.Int64Counter("pos.inventory.rollback.total",
		metric.WithDescription("Compensating stock writes attempted"))
	if err != nil {
		return nil, err
	}
	rollbackFailures, err := meter.Int64Counter("pos.inventory.rollback_failures.total",
		metric.WithDescription("Compensating stock writes that failed"))
	if err != nil {
		return nil, err
	}
	return &pipelineMetrics{
		checkouts:        checkouts,
		oversellings:     oversellings,
		cappedDeductions: capped,
		rollbacks:        rollbacks,
		rollbackFailures: rollbackFailures,
	}, nil
}

func keyAttributes(key InventoryKey) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.Int64("product_id", key.ProductID),
		attribute.Int64("location_id", key.LocationID),
	)
}

func (m *pipelineMetrics) checkout(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *pipelineMetrics) overselling(ctx context.Context, key InventoryKey) {
	if m == nil {
		return
	}
	m.oversellings.Add(ctx, 1, keyAttributes(key))
}

func (m *pipelineMetrics) conversionCapped(ctx context.Context, key InventoryKey) {
	if m == nil {
		return
	}
	m.cappedDeductions.Add(ctx, 1, keyAttributes(key))
}

func (m *pipelineMetrics) rollback(ctx context.Context, key InventoryKey, failed bool) {
	if m == nil {
		return
	}
	m.rollbacks.Add(ctx, 1, keyAttributes(key))
	if failed {
		m.rollbackFailures.Add(ctx, 1, keyAttributes(key))
	}
}
