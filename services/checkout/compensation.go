package main

import (
	"context"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// CompensationList holds the committed deductions of a batch in commit order.
// Compensate undoes them newest first by writing back the recorded old stock.
type CompensationList struct {
	records []DeductionRecord
}

// Push registers a committed deduction.
func (l *CompensationList) Push(record DeductionRecord) {
	l.records = append(l.records, record)
}

// Len returns the number of committed deductions.
func (l *CompensationList) Len() int {
	return len(l.records)
}

// Records returns the committed deductions in commit order.
func (l *CompensationList) Records() []DeductionRecord {
	out := make([]DeductionRecord, len(l.records))
	copy(out, l.records)
	return out
}

// RollbackReport is the outcome of a compensation pass.
type RollbackReport struct {
	Restored []RestoredLine
	Failed   []RollbackFailure
}

// Complete reports whether every compensating write succeeded.
func (r RollbackReport) Complete() bool {
	return len(r.Failed) == 0
}

// Compensate restores every registered deduction. Each write is attempted
// once through the writer's own retry policy; failures are collected and the
// pass continues with the remaining records.
func (l *CompensationList) Compensate(ctx context.Context, writer InventoryWriter, conditional bool, metrics *pipelineMetrics) RollbackReport {
	var report RollbackReport

	for i := len(l.records) - 1; i >= 0; i-- {
		rec := l.records[i]
		log.Printf("↩️ [COMPENSATE STOCK] line=%d %s restoring %s (currently %s)",
			rec.LineIndex, rec.Key, rec.OldStock, rec.NewStock)

		var expected *decimal.Decimal
		if conditional {
			current := rec.NewStock
			expected = &current
		}
		movement := StockMovement{Reason: MovementReasonCompensation, Reference: rec.Reference}
		err := writer.SetStock(ctx, rec.Key, rec.OldStock, expected, movement)
		metrics.rollback(ctx, rec.Key, err != nil)
		if err != nil {
			log.WithFields(log.Fields{
				"line": rec.LineIndex,
				"key":  rec.Key.String(),
				"old":  rec.OldStock.String(),
				"new":  rec.NewStock.String(),
			}).Errorf("❌ [COMPENSATE] FAILED, manual reconciliation needed: %v", err)
			report.Failed = append(report.Failed, RollbackFailure{
				LineIndex: rec.LineIndex,
				Key:       rec.Key,
				Error:     err.Error(),
			})
			continue
		}

		log.Printf("✅ [COMPENSATE] Success: line=%d %s", rec.LineIndex, rec.Key)
		report.Restored = append(report.Restored, RestoredLine{
			LineIndex:     rec.LineIndex,
			Key:           rec.Key,
			RestoredStock: rec.OldStock,
		})
	}

	return report
}
