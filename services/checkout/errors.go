package main

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures by their disposition.
type ErrorKind string

const (
	KindInvalidCheckoutInput    ErrorKind = "InvalidCheckoutInput"
	KindOrderSubmissionFailed   ErrorKind = "OrderSubmissionFailed"
	KindInvalidLineItem         ErrorKind = "InvalidLineItem"
	KindInvalidConversionRule   ErrorKind = "InvalidConversionRule"
	KindConversionRuleRequired  ErrorKind = "ConversionRuleRequired"
	KindInventoryUnavailable    ErrorKind = "InventoryUnavailable"
	KindInventoryWriteFailed    ErrorKind = "InventoryWriteFailed"
	KindInvalidStockValue       ErrorKind = "InvalidStockValue"
	KindRollbackPartiallyFailed ErrorKind = "RollbackPartiallyFailed"
)

var (
	ErrInvalidCheckoutInput    = &PipelineError{Kind: KindInvalidCheckoutInput}
	ErrOrderSubmissionFailed   = &PipelineError{Kind: KindOrderSubmissionFailed}
	ErrInvalidLineItem         = &PipelineError{Kind: KindInvalidLineItem}
	ErrInvalidConversionRule   = &PipelineError{Kind: KindInvalidConversionRule}
	ErrConversionRuleRequired  = &PipelineError{Kind: KindConversionRuleRequired}
	ErrInventoryUnavailable    = &PipelineError{Kind: KindInventoryUnavailable}
	ErrInventoryWriteFailed    = &PipelineError{Kind: KindInventoryWriteFailed}
	ErrInvalidStockValue       = &PipelineError{Kind: KindInvalidStockValue}
	ErrRollbackPartiallyFailed = &PipelineError{Kind: KindRollbackPartiallyFailed}
)

// Transport level errors of the inventory adapter
var (
	ErrStockUnavailable = errors.New("stock level unavailable")
	ErrStockNotFound    = errors.New("no stock entry for inventory key")
	ErrStockConflict    = errors.New("stock changed since it was read")
	ErrWriteRejected    = errors.New("inventory api rejected the write")
)

// PipelineError is a failure of one checkout step. Line is -1 when the error
// is not tied to a cart line.
type PipelineError struct {
	Kind      ErrorKind
	Line      int
	ProductID int64
	Message   string
	Err       error
}

func newLineError(kind ErrorKind, line int, productID int64, msg string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Line: line, ProductID: productID, Message: msg, Err: err}
}

func newError(kind ErrorKind, msg string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Line: -1, Message: msg, Err: err}
}

func (e *PipelineError) Error() string {
	prefix := string(e.Kind)
	if e.Line >= 0 && e.ProductID != 0 {
		prefix = fmt.Sprintf("%s (line %d, product %d)", e.Kind, e.Line, e.ProductID)
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return prefix
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is matches any PipelineError of the same kind, so callers can write
// errors.Is(err, ErrInventoryUnavailable).
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first PipelineError in the chain.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
