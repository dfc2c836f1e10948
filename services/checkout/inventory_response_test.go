package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStockResponse_Shapes(t *testing.T) {
	key := InventoryKey{ProductID: 42, LocationID: 7}

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "bare list",
			body: `[{"product_id":41,"location_id":7,"quantity":1},{"product_id":42,"location_id":7,"quantity":"12.5"}]`,
			want: "12.5",
		},
		{
			name: "string ids",
			body: `[{"product_id":"42","location_id":"7","variation_id":null,"quantity":3}]`,
			want: "3",
		},
		{
			name: "envelope with list",
			body: `{"success":true,"data":[{"product_id":42,"location_id":7,"quantity":8}]}`,
			want: "8",
		},
		{
			name: "envelope with object",
			body: `{"success":true,"data":{"product_id":42,"location_id":7,"stock":4}}`,
			want: "4",
		},
		{
			name: "bare object",
			body: `{"product_id":42,"location_id":7,"quantity":0}`,
			want: "0",
		},
		{
			name: "object without ids",
			body: `{"quantity":6}`,
			want: "6",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStockResponse([]byte(tt.body), key)

			require.NoError(t, err)
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseStockResponse_MatchesVariation(t *testing.T) {
	key := InventoryKey{ProductID: 42, LocationID: 7, VariationID: 3}
	body := `[{"product_id":42,"location_id":7,"variation_id":0,"quantity":1},{"product_id":42,"location_id":7,"variation_id":3,"quantity":9}]`

	got, err := parseStockResponse([]byte(body), key)

	require.NoError(t, err)
	assert.True(t, got.Equal(dec("9")))
}

func TestParseStockResponse_Failures(t *testing.T) {
	key := InventoryKey{ProductID: 42, LocationID: 7}

	_, err := parseStockResponse([]byte(`{"success":false,"message":"location disabled"}`), key)
	assert.ErrorIs(t, err, ErrStockUnavailable)
	assert.Contains(t, err.Error(), "location disabled")

	_, err = parseStockResponse([]byte(`[{"product_id":1,"location_id":7,"quantity":5}]`), key)
	assert.ErrorIs(t, err, ErrStockNotFound)

	_, err = parseStockResponse([]byte(`{"success":true,"data":[]}`), key)
	assert.ErrorIs(t, err, ErrStockNotFound)

	_, err = parseStockResponse([]byte(`[{"product_id":42,"location_id":7}]`), key)
	assert.ErrorIs(t, err, ErrStockUnavailable)

	_, err = parseStockResponse([]byte(``), key)
	assert.Error(t, err)

	_, err = parseStockResponse([]byte(`<html>oops</html>`), key)
	assert.Error(t, err)
}

func TestParseWriteResponse(t *testing.T) {
	assert.NoError(t, parseWriteResponse([]byte(`{"success":true,"data":{"quantity":3}}`)))
	assert.NoError(t, parseWriteResponse([]byte(``)))
	assert.NoError(t, parseWriteResponse([]byte(`[]`)))

	err := parseWriteResponse([]byte(`{"success":false,"error":"locked"}`))
	assert.ErrorIs(t, err, ErrWriteRejected)
	assert.Contains(t, err.Error(), "locked")
}
