package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateDeduction_NoRule(t *testing.T) {
	// Arrange
	line := CartLine{ProductID: 1, Quantity: 3, Category: "Flower"}

	// Act
	d, err := CalculateDeduction(line)

	// Assert
	require.NoError(t, err)
	assert.True(t, d.Amount.Equal(dec("3")))
	assert.False(t, d.ConversionApplied)
	assert.False(t, d.Capped)
}

func TestCalculateDeduction_WithRule(t *testing.T) {
	// Arrange
	line := CartLine{
		ProductID:      1,
		Quantity:       2,
		ConversionRule: &ConversionRule{InputAmount: 0.5, InputUnit: "g", OutputAmount: 1, OutputUnit: "unit"},
	}

	// Act
	d, err := CalculateDeduction(line)

	// Assert
	require.NoError(t, err)
	assert.True(t, d.Amount.Equal(dec("1")), "got %s", d.Amount)
	assert.True(t, d.ConversionApplied)
	assert.False(t, d.Capped)
}

func TestCalculateDeduction_IsLinearInQuantity(t *testing.T) {
	rule := &ConversionRule{InputAmount: 1, OutputAmount: 2}
	quantities := []float64{1, 2, 4, 8}

	base, err := CalculateDeduction(CartLine{ProductID: 1, Quantity: 1, ConversionRule: rule})
	require.NoError(t, err)

	for _, q := range quantities {
		d, err := CalculateDeduction(CartLine{ProductID: 1, Quantity: q, ConversionRule: rule})
		require.NoError(t, err)
		want := base.Amount.Mul(decFromFloat(q))
		assert.True(t, d.Amount.Equal(want), "quantity %v: got %s want %s", q, d.Amount, want)
	}
}

func TestCalculateDeduction_InvalidRule(t *testing.T) {
	tests := []struct {
		name string
		rule ConversionRule
	}{
		{"zero input", ConversionRule{InputAmount: 0, OutputAmount: 1}},
		{"zero output", ConversionRule{InputAmount: 1, OutputAmount: 0}},
		{"negative output", ConversionRule{InputAmount: 1, OutputAmount: -2}},
		{"NaN input", ConversionRule{InputAmount: math.NaN(), OutputAmount: 1}},
		{"infinite output", ConversionRule{InputAmount: 1, OutputAmount: math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := tt.rule
			_, err := CalculateDeduction(CartLine{ProductID: 9, Quantity: 1, ConversionRule: &rule})

			assert.ErrorIs(t, err, ErrInvalidConversionRule)
			assert.Equal(t, KindInvalidConversionRule, KindOf(err))
		})
	}
}

func TestCalculateDeduction_RollCategoryRequiresRule(t *testing.T) {
	// Arrange
	line := CartLine{ProductID: 4, Quantity: 1, Category: "Pre-Rolls"}

	// Act
	_, err := CalculateDeduction(line)

	// Assert
	assert.ErrorIs(t, err, ErrConversionRuleRequired)

	line.ConversionRule = &ConversionRule{InputAmount: 0.7, OutputAmount: 1}
	d, err := CalculateDeduction(line)
	require.NoError(t, err)
	assert.True(t, d.ConversionApplied)
}

func TestCalculateDeduction_CapsAtTenTimesQuantity(t *testing.T) {
	// Arrange
	line := CartLine{
		ProductID:      1,
		Quantity:       2,
		ConversionRule: &ConversionRule{InputAmount: 100, OutputAmount: 1},
	}

	// Act
	d, err := CalculateDeduction(line)

	// Assert
	require.NoError(t, err)
	assert.True(t, d.Capped)
	assert.True(t, d.Amount.Equal(dec("20")), "got %s", d.Amount)
	assert.True(t, d.Uncapped.Equal(dec("200")), "got %s", d.Uncapped)
}

func TestIsRollCategory(t *testing.T) {
	assert.True(t, IsRollCategory("Pre-Rolls"))
	assert.True(t, IsRollCategory("ROLL"))
	assert.True(t, IsRollCategory("rolling papers"))
	assert.False(t, IsRollCategory("Flower"))
	assert.False(t, IsRollCategory(""))
}
