package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrInvalidRequest  = errors.New("invalid stock request")
	ErrQuantityChanged = errors.New("quantity does not match expected_quantity")
)

// InventoryUseCase holds the inventory business rules
type InventoryUseCase struct {
	repository InventoryRepository
	tracer     trace.Tracer
}

// NewInventoryUseCase creates a new InventoryUseCase
func NewInventoryUseCase(
	repository InventoryRepository,
	tracer trace.Tracer,
) *InventoryUseCase {
	return &InventoryUseCase{
		repository: repository,
		tracer:     tracer,
	}
}

func validateKey(key StockKey) error {
	if key.ProductID <= 0 || key.LocationID <= 0 || key.VariationID < 0 {
		return fmt.Errorf("%w: product_id and location_id must be positive", ErrInvalidRequest)
	}
	return nil
}

// GetStock lists the counters of a product at a location. With a variation
// only that counter is returned.
func (uc *InventoryUseCase) GetStock(ctx context.Context, key StockKey, withVariation bool) ([]InventoryLevel, error) {
	ctx, span := uc.tracer.Start(ctx, "inventory.get")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("product_id", key.ProductID),
		attribute.Int64("location_id", key.LocationID),
	)

	if err := validateKey(key); err != nil {
		return nil, err
	}

	if withVariation {
		level, err := uc.repository.GetLevel(ctx, key)
		if err != nil {
			return nil, err
		}
		return []InventoryLevel{*level}, nil
	}

	levels, err := uc.repository.ListLevels(ctx, key.ProductID, key.LocationID)
	if err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		return nil, ErrLevelNotFound
	}
	return levels, nil
}

// SetStock overwrites a counter with an absolute quantity under a
// pessimistic lock. When expected_quantity is sent the write only applies if
// the locked counter still holds it.
func (uc *InventoryUseCase) SetStock(ctx context.Context, req StockWriteRequest) (*InventoryLevel, error) {
	key := req.Key()
	ctx, span := uc.tracer.Start(ctx, "inventory.set")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("product_id", key.ProductID),
		attribute.Int64("location_id", key.LocationID),
		attribute.Bool("conditional", req.ExpectedQuantity.Valid),
	)

	log.Printf("➡️ [SET STOCK] %s | Quantity: %s | Reason: %s", key, req.Quantity.Decimal, req.Reason)

	if err := validateKey(key); err != nil {
		return nil, err
	}
	if !req.Quantity.Valid {
		return nil, fmt.Errorf("%w: quantity is required", ErrInvalidRequest)
	}
	if req.Quantity.Decimal.IsNegative() {
		return nil, fmt.Errorf("%w: quantity must not be negative, got %s", ErrInvalidRequest, req.Quantity.Decimal)
	}
	switch req.Reason {
	case "", MovementReasonSet, MovementReasonSale, MovementReasonCompensate:
	default:
		return nil, fmt.Errorf("%w: unknown reason %q", ErrInvalidRequest, req.Reason)
	}

	// 1. Begin the transaction
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 2. Lock the counter; a missing counter starts at zero
	current := decimal.Zero
	level, err := uc.repository.GetLevelForUpdate(ctx, tx, key)
	switch {
	case err == nil:
		current = level.Quantity
	case errors.Is(err, ErrLevelNotFound):
	default:
		log.Printf("❌ SET STOCK FAILED: GetLevelForUpdate | %s | Error=%v", key, err)
		return nil, err
	}

	// 3. A reference is applied once per reason; a repeated write answers
	// with the counter as it stands
	if req.Reference != "" {
		applied, err := uc.repository.HasMovement(ctx, tx, key, movementReason(req.Reason), req.Reference)
		if err != nil {
			log.Printf("❌ SET STOCK FAILED: HasMovement | %s | Error=%v", key, err)
			return nil, err
		}
		if applied {
			log.Printf("ℹ️ [SET STOCK] %s reference %s already applied, skipping", key, req.Reference)
			span.SetAttributes(attribute.Bool("duplicate", true))
			if level == nil {
				level = &InventoryLevel{StockKey: key, Quantity: current}
			}
			return level, nil
		}
	}

	// 4. Compare-and-set under the lock
	if req.ExpectedQuantity.Valid && !current.Equal(req.ExpectedQuantity.Decimal) {
		log.Printf("ℹ️ [SET STOCK] Conflict for %s: expected %s, found %s", key, req.ExpectedQuantity.Decimal, current)
		return nil, fmt.Errorf("%w: expected %s, found %s", ErrQuantityChanged, req.ExpectedQuantity.Decimal, current)
	}

	// 5. Write the level and its movement
	saved, err := uc.repository.SaveLevel(ctx, tx, key, req.Quantity.Decimal)
	if err != nil {
		log.Printf("❌ [SET STOCK] %s Failed to update: %v", key, err)
		return nil, err
	}
	movement := NewInventoryMovement(key, current, req.Quantity.Decimal, req.Reason, req.Reference)
	if err := uc.repository.InsertMovement(ctx, tx, movement); err != nil {
		return nil, err
	}

	// 6. Commit
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit stock write: %w", err)
	}

	log.Printf("✅ [SET STOCK] Success: %s %s -> %s (%s)", key, current, saved.Quantity, movement.Change())
	return saved, nil
}
