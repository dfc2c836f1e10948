package main

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// MockInventoryReader simulates stock reads
type MockInventoryReader struct {
	mock.Mock
}

func (m *MockInventoryReader) GetStock(ctx context.Context, key InventoryKey) (decimal.Decimal, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockInventoryWriter simulates absolute stock writes
type MockInventoryWriter struct {
	mock.Mock
}

func (m *MockInventoryWriter) SetStock(ctx context.Context, key InventoryKey, target decimal.Decimal, expected *decimal.Decimal, movement StockMovement) error {
	args := m.Called(ctx, key, target, expected, movement)
	return args.Error(0)
}

type MockOrderSubmitter struct {
	mock.Mock
}

func (m *MockOrderSubmitter) SubmitOrder(ctx context.Context, order *CommerceOrder) (*SubmittedOrder, error) {
	args := m.Called(ctx, order)
	if o := args.Get(0); o != nil {
		return o.(*SubmittedOrder), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockAlertPublisher struct {
	mock.Mock
}

func (m *MockAlertPublisher) Publish(ctx context.Context, alert InventoryAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func testTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("test")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// decEq matches a decimal argument by value rather than representation.
func decEq(s string) interface{} {
	want := dec(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

// expectedEq matches the expected-stock argument of a conditional write.
func expectedEq(s string) interface{} {
	want := dec(s)
	return mock.MatchedBy(func(d *decimal.Decimal) bool { return d != nil && d.Equal(want) })
}

var noExpected = (*decimal.Decimal)(nil)

func float(v float64) *float64 {
	return &v
}

func decFromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}
