package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// The inventory API answers with a bare list, a bare object, or a
// {success, data} envelope around either. Everything below normalises those
// shapes into one stockEntry list so the rest of the pipeline never sees them.

// flexInt accepts ids encoded as numbers, numeric strings or null.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", s, err)
	}
	*f = flexInt(v)
	return nil
}

type stockEntry struct {
	ProductID   flexInt             `json:"product_id"`
	LocationID  flexInt             `json:"location_id"`
	VariationID flexInt             `json:"variation_id"`
	Quantity    decimal.NullDecimal `json:"quantity"`
	Stock       decimal.NullDecimal `json:"stock"`
}

func (e stockEntry) quantity() (decimal.Decimal, bool) {
	if e.Quantity.Valid {
		return e.Quantity.Decimal, true
	}
	if e.Stock.Valid {
		return e.Stock.Decimal, true
	}
	return decimal.Zero, false
}

func (e stockEntry) matches(key InventoryKey) bool {
	return int64(e.ProductID) == key.ProductID &&
		int64(e.LocationID) == key.LocationID &&
		int64(e.VariationID) == key.VariationID
}

type apiEnvelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (e apiEnvelope) reason() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Error != "" {
		return e.Error
	}
	return "success=false"
}

// decodeEntries turns any accepted body shape into a list of entries.
func decodeEntries(body []byte) ([]stockEntry, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	switch body[0] {
	case '[':
		var entries []stockEntry
		if err := json.Unmarshal(body, &entries); err != nil {
			return nil, fmt.Errorf("decoding stock list: %w", err)
		}
		return entries, nil
	case '{':
		var env apiEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("decoding stock envelope: %w", err)
		}
		if env.Success != nil && !*env.Success {
			return nil, fmt.Errorf("%w: %s", ErrStockUnavailable, env.reason())
		}
		if env.Success != nil || len(env.Data) > 0 {
			if len(env.Data) == 0 || string(env.Data) == "null" {
				return nil, nil
			}
			return decodeEntries(env.Data)
		}
		var entry stockEntry
		if err := json.Unmarshal(body, &entry); err != nil {
			return nil, fmt.Errorf("decoding stock object: %w", err)
		}
		return []stockEntry{entry}, nil
	}
	return nil, fmt.Errorf("unexpected response body %q", truncate(string(body), 64))
}

// parseStockResponse extracts the stock of key from an inventory API body.
func parseStockResponse(body []byte, key InventoryKey) (decimal.Decimal, error) {
	entries, err := decodeEntries(body)
	if err != nil {
		return decimal.Zero, err
	}

	for _, e := range entries {
		if !e.matches(key) {
			continue
		}
		qty, ok := e.quantity()
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: entry for %s has no quantity", ErrStockUnavailable, key)
		}
		return qty, nil
	}

	// A single entry without ids is the API's answer for exactly this key.
	if len(entries) == 1 && entries[0].ProductID == 0 {
		if qty, ok := entries[0].quantity(); ok {
			return qty, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s", ErrStockNotFound, key)
}

// parseWriteResponse fails on an explicit {success:false} even when the
// transport status was 2xx.
func parseWriteResponse(body []byte) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil
	}
	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decoding write response: %w", err)
	}
	if env.Success != nil && !*env.Success {
		return fmt.Errorf("%w: %s", ErrWriteRejected, env.reason())
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
