package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(conditional bool) (*BatchDeductionCoordinator, *MockInventoryReader, *MockInventoryWriter) {
	reader := new(MockInventoryReader)
	writer := new(MockInventoryWriter)
	orchestrator := NewDeductionOrchestrator(reader, writer, testTracer(), nil, conditional)
	return NewBatchDeductionCoordinator(orchestrator, writer, testTracer(), nil, conditional), reader, writer
}

func TestDeductAll_CommitsEveryLine(t *testing.T) {
	// Arrange
	coordinator, reader, writer := newTestCoordinator(false)
	keyA := InventoryKey{ProductID: 1, LocationID: 7}
	keyB := InventoryKey{ProductID: 2, LocationID: 7, VariationID: 5}
	lines := []CartLine{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, VariationID: 5, Quantity: 2},
	}

	reader.On("GetStock", mock.Anything, keyA).Return(dec("10"), nil)
	reader.On("GetStock", mock.Anything, keyB).Return(dec("5"), nil)
	writer.On("SetStock", mock.Anything, keyA, decEq("9"), noExpected, mock.Anything).Return(nil)
	writer.On("SetStock", mock.Anything, keyB, decEq("3"), noExpected, mock.Anything).Return(nil)

	// Act
	result := coordinator.DeductAll(context.Background(), "co-1", 7, lines)

	// Assert
	require.True(t, result.Success())
	assert.Equal(t, -1, result.FailedLine)
	assert.Len(t, result.Records, 2)
	assert.Nil(t, result.Rollback)
	assert.True(t, result.RollbackComplete)
	writer.AssertExpectations(t)
}

func TestDeductAll_RollsBackCommittedLinesOnFailure(t *testing.T) {
	// Arrange
	coordinator, reader, writer := newTestCoordinator(false)
	keyA := InventoryKey{ProductID: 1, LocationID: 7}
	keyB := InventoryKey{ProductID: 2, LocationID: 7}
	keyC := InventoryKey{ProductID: 3, LocationID: 7}
	lines := []CartLine{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 2},
		{ProductID: 3, Quantity: 1},
	}

	reader.On("GetStock", mock.Anything, keyA).Return(dec("10"), nil)
	reader.On("GetStock", mock.Anything, keyB).Return(dec("5"), nil)
	writer.On("SetStock", mock.Anything, keyA, decEq("9"), noExpected, mock.Anything).Return(nil).Once()
	writer.On("SetStock", mock.Anything, keyB, decEq("3"), noExpected, mock.Anything).Return(errors.New("503 service unavailable"))
	writer.On("SetStock", mock.Anything, keyA, decEq("10"), noExpected, mock.Anything).Return(nil).Once()

	// Act
	result := coordinator.DeductAll(context.Background(), "co-1", 7, lines)

	// Assert
	assert.False(t, result.Success())
	assert.Equal(t, 1, result.FailedLine)
	assert.Equal(t, KindInventoryWriteFailed, KindOf(result.Err))
	require.NotNil(t, result.Rollback)
	assert.True(t, result.RollbackComplete)
	if assert.Len(t, result.Rollback.Restored, 1) {
		assert.Equal(t, keyA, result.Rollback.Restored[0].Key)
		assert.True(t, result.Rollback.Restored[0].RestoredStock.Equal(dec("10")))
	}
	reader.AssertNotCalled(t, "GetStock", mock.Anything, keyC)
	writer.AssertExpectations(t)
}

func TestDeductAll_FirstLineFailureHasNothingToRollBack(t *testing.T) {
	coordinator, reader, writer := newTestCoordinator(false)
	lines := []CartLine{{ProductID: 1, Quantity: 1, Category: "Pre-Rolls"}, {ProductID: 2, Quantity: 1}}

	result := coordinator.DeductAll(context.Background(), "co-1", 7, lines)

	assert.Equal(t, 0, result.FailedLine)
	assert.ErrorIs(t, result.Err, ErrConversionRuleRequired)
	assert.Nil(t, result.Rollback)
	assert.True(t, result.RollbackComplete)
	reader.AssertNotCalled(t, "GetStock", mock.Anything, mock.Anything)
	writer.AssertNotCalled(t, "SetStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeductAll_ReportsIncompleteRollback(t *testing.T) {
	// Arrange
	coordinator, reader, writer := newTestCoordinator(false)
	keyA := InventoryKey{ProductID: 1, LocationID: 7}
	keyB := InventoryKey{ProductID: 2, LocationID: 7}
	lines := []CartLine{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 1}}

	reader.On("GetStock", mock.Anything, keyA).Return(dec("4"), nil)
	reader.On("GetStock", mock.Anything, keyB).Return(dec("4"), nil)
	writer.On("SetStock", mock.Anything, keyA, decEq("3"), noExpected, mock.Anything).Return(nil)
	writer.On("SetStock", mock.Anything, keyB, mock.Anything, noExpected, mock.Anything).Return(errors.New("down"))
	writer.On("SetStock", mock.Anything, keyA, decEq("4"), noExpected, mock.Anything).Return(errors.New("still down"))

	// Act
	result := coordinator.DeductAll(context.Background(), "co-1", 7, lines)

	// Assert
	assert.False(t, result.RollbackComplete)
	require.NotNil(t, result.Rollback)
	assert.Len(t, result.Rollback.Failed, 1)
	assert.Empty(t, result.Rollback.Restored)
}
