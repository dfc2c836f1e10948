package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrLevelNotFound is returned when a counter has never been written.
var ErrLevelNotFound = errors.New("inventory level not found")

// InventoryRepository defines the database operations on stock counters
type InventoryRepository interface {
	GetLevel(ctx context.Context, key StockKey) (*InventoryLevel, error)
	ListLevels(ctx context.Context, productID, locationID int64) ([]InventoryLevel, error)
	BeginTx(ctx context.Context) (Tx, error)
	GetLevelForUpdate(ctx context.Context, tx Tx, key StockKey) (*InventoryLevel, error)
	SaveLevel(ctx context.Context, tx Tx, key StockKey, quantity decimal.Decimal) (*InventoryLevel, error)
	InsertMovement(ctx context.Context, tx Tx, movement *InventoryMovement) error
	HasMovement(ctx context.Context, tx Tx, key StockKey, reason, reference string) (bool, error)
}

// Tx is a database transaction
type Tx interface {
	Commit() error
	Rollback() error
}

// PostgresInventoryRepository implements InventoryRepository on PostgreSQL
type PostgresInventoryRepository struct {
	db *pgxpool.Pool
}

// NewInventoryRepository creates a new PostgresInventoryRepository
func NewInventoryRepository(db *pgxpool.Pool) InventoryRepository {
	return &PostgresInventoryRepository{
		db: db,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS inventory_levels (
	product_id   BIGINT      NOT NULL,
	location_id  BIGINT      NOT NULL,
	variation_id BIGINT      NOT NULL DEFAULT 0,
	quantity     NUMERIC     NOT NULL CHECK (quantity >= 0),
	version      INTEGER     NOT NULL DEFAULT 1,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (product_id, location_id, variation_id)
);

CREATE TABLE IF NOT EXISTS inventory_movements (
	id           UUID        PRIMARY KEY,
	product_id   BIGINT      NOT NULL,
	location_id  BIGINT      NOT NULL,
	variation_id BIGINT      NOT NULL DEFAULT 0,
	old_quantity NUMERIC     NOT NULL,
	new_quantity NUMERIC     NOT NULL,
	reason       TEXT        NOT NULL,
	reference    TEXT        NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS inventory_movements_key_idx
	ON inventory_movements (product_id, location_id, variation_id, created_at);

CREATE UNIQUE INDEX IF NOT EXISTS inventory_movements_reference_idx
	ON inventory_movements (product_id, location_id, variation_id, reason, reference)
	WHERE reference <> '';
`

// EnsureSchema creates the inventory tables when they do not exist.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanLevel reads a level row. Quantities travel as text so no precision is lost.
func scanLevel(row rowScanner) (*InventoryLevel, error) {
	var level InventoryLevel
	var qty string
	err := row.Scan(
		&level.ProductID,
		&level.LocationID,
		&level.VariationID,
		&qty,
		&level.Version,
		&level.CreatedAt,
		&level.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLevelNotFound
	}
	if err != nil {
		return nil, err
	}
	level.Quantity, err = decimal.NewFromString(qty)
	if err != nil {
		return nil, fmt.Errorf("invalid stored quantity %q: %w", qty, err)
	}
	return &level, nil
}

const levelColumns = `product_id, location_id, variation_id, quantity::text, version, created_at, updated_at`

// GetLevel reads one counter without locking it
func (r *PostgresInventoryRepository) GetLevel(ctx context.Context, key StockKey) (*InventoryLevel, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+levelColumns+`
		FROM inventory_levels
		WHERE product_id = $1 AND location_id = $2 AND variation_id = $3
	`, key.ProductID, key.LocationID, key.VariationID)
	return scanLevel(row)
}

// ListLevels returns every counter of a product at a location, variations included
func (r *PostgresInventoryRepository) ListLevels(ctx context.Context, productID, locationID int64) ([]InventoryLevel, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+levelColumns+`
		FROM inventory_levels
		WHERE product_id = $1 AND location_id = $2
		ORDER BY variation_id
	`, productID, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	defer rows.Close()

	var levels []InventoryLevel
	for rows.Next() {
		level, err := scanLevel(rows)
		if err != nil {
			return nil, err
		}
		levels = append(levels, *level)
	}
	return levels, rows.Err()
}

// PostgresTx implements Tx
type PostgresTx struct {
	tx pgx.Tx
}

func (t *PostgresTx) Commit() error {
	return t.tx.Commit(context.Background())
}

func (t *PostgresTx) Rollback() error {
	return t.tx.Rollback(context.Background())
}

// BeginTx starts a new transaction
func (r *PostgresInventoryRepository) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &PostgresTx{tx: tx}, nil
}

// GetLevelForUpdate reads a counter with a pessimistic lock (FOR UPDATE)
func (r *PostgresInventoryRepository) GetLevelForUpdate(ctx context.Context, tx Tx, key StockKey) (*InventoryLevel, error) {
	pgTx := tx.(*PostgresTx).tx

	row := pgTx.QueryRow(ctx, `
		SELECT `+levelColumns+`
		FROM inventory_levels
		WHERE product_id = $1 AND location_id = $2 AND variation_id = $3
		FOR UPDATE
	`, key.ProductID, key.LocationID, key.VariationID)
	return scanLevel(row)
}

// SaveLevel writes the absolute quantity of a counter, creating it if needed
func (r *PostgresInventoryRepository) SaveLevel(ctx context.Context, tx Tx, key StockKey, quantity decimal.Decimal) (*InventoryLevel, error) {
	pgTx := tx.(*PostgresTx).tx

	row := pgTx.QueryRow(ctx, `
		INSERT INTO inventory_levels (product_id, location_id, variation_id, quantity)
		VALUES ($1, $2, $3, $4::numeric)
		ON CONFLICT (product_id, location_id, variation_id) DO UPDATE
		SET quantity = EXCLUDED.quantity,
		    version = inventory_levels.version + 1,
		    updated_at = NOW()
		RETURNING `+levelColumns+`
	`, key.ProductID, key.LocationID, key.VariationID, quantity.String())

	level, err := scanLevel(row)
	if err != nil {
		return nil, fmt.Errorf("failed to save level: %w", err)
	}
	return level, nil
}

// InsertMovement records a stock write
func (r *PostgresInventoryRepository) InsertMovement(ctx context.Context, tx Tx, movement *InventoryMovement) error {
	pgTx := tx.(*PostgresTx).tx

	_, err := pgTx.Exec(ctx, `
		INSERT INTO inventory_movements
			(id, product_id, location_id, variation_id, old_quantity, new_quantity, reason, reference, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9)
	`,
		movement.ID,
		movement.Key.ProductID,
		movement.Key.LocationID,
		movement.Key.VariationID,
		movement.OldQuantity.String(),
		movement.NewQuantity.String(),
		movement.Reason,
		movement.Reference,
		movement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert movement record: %w", err)
	}
	return nil
}

// HasMovement reports whether a movement with this reason and reference was
// already recorded for the counter
func (r *PostgresInventoryRepository) HasMovement(ctx context.Context, tx Tx, key StockKey, reason, reference string) (bool, error) {
	pgTx := tx.(*PostgresTx).tx

	var exists bool
	err := pgTx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM inventory_movements
			WHERE product_id = $1 AND location_id = $2 AND variation_id = $3
			  AND reason = $4 AND reference = $5
		)
	`, key.ProductID, key.LocationID, key.VariationID, reason, reference).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up movement: %w", err)
	}
	return exists, nil
}
