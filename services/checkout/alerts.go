package main

import (
	"context"
	"strconv"
	"time"

	"github.com/floradistro/FloraPOS-sub004/pkg/kafka"
	log "github.com/sirupsen/logrus"
)

// Alert types published for operators
const (
	AlertInventoryDeductionFailed = "inventory_deduction_failed"
	AlertRollbackPartiallyFailed  = "rollback_partially_failed"
	AlertOverselling              = "overselling_detected"
	AlertConversionCapped         = "conversion_capped"
)

// alertTypeFor names the alert raised for a checkout signal.
func alertTypeFor(signalKind string) string {
	switch signalKind {
	case SignalOversellingDetected:
		return AlertOverselling
	case SignalConversionCapped:
		return AlertConversionCapped
	}
	return signalKind
}

// InventoryAlert tells operators that stock may need manual attention.
type InventoryAlert struct {
	Type             string            `json:"type"`
	CheckoutID       string            `json:"checkout_id"`
	OrderID          int64             `json:"order_id,omitempty"`
	LocationID       int64             `json:"location_id"`
	ErrorKind        string            `json:"error_kind,omitempty"`
	Message          string            `json:"message"`
	Signals          []Signal          `json:"signals,omitempty"`
	RestoredLines    []RestoredLine    `json:"restored_lines,omitempty"`
	RollbackFailures []RollbackFailure `json:"rollback_failures,omitempty"`
	OccurredAt       time.Time         `json:"occurred_at"`
}

// AlertPublisher delivers inventory alerts. Publishing never affects the
// outcome of a checkout.
type AlertPublisher interface {
	Publish(ctx context.Context, alert InventoryAlert) error
}

// KafkaAlertPublisher publishes alerts as JSON, keyed by location.
type KafkaAlertPublisher struct {
	writer kafka.MessageWriter
}

// NewKafkaAlertPublisher creates a new KafkaAlertPublisher
func NewKafkaAlertPublisher(writer kafka.MessageWriter) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{writer: writer}
}

func (p *KafkaAlertPublisher) Publish(ctx context.Context, alert InventoryAlert) error {
	return kafka.PublishJSON(ctx, p.writer, strconv.FormatInt(alert.LocationID, 10), alert)
}

// LogAlertPublisher writes alerts to the log when no broker is configured.
type LogAlertPublisher struct{}

func (LogAlertPublisher) Publish(_ context.Context, alert InventoryAlert) error {
	log.WithFields(log.Fields{
		"alert":       alert.Type,
		"checkout_id": alert.CheckoutID,
		"order_id":    alert.OrderID,
		"location_id": alert.LocationID,
		"error_kind":  alert.ErrorKind,
	}).Warnf("🚨 [ALERT] %s", alert.Message)
	return nil
}
