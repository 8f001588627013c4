package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound is returned when no product row exists for the requested id.
	ErrProductNotFound = errors.New("fulfillment: product does not exist")
	// ErrWarehouseNotFound is returned when no warehouse row exists for the requested id.
	ErrWarehouseNotFound = errors.New("fulfillment: warehouse does not exist")
	// ErrOrderNotFound signals that no open order matches the request.
	ErrOrderNotFound = errors.New("fulfillment: no matching order")
	// ErrOrderAlreadyFulfilled signals the duplicate-fulfillment guard tripped.
	ErrOrderAlreadyFulfilled = errors.New("fulfillment: order already fulfilled")
)

// uniqueViolation is the Postgres error code backing the order_id uniqueness
// guard on product_warehouse.
const uniqueViolation = "23505"

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// ProductExists reports whether a product row exists for the given id.
func (r *Repository) ProductExists(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM product WHERE id = $1`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("fulfillment: count products: %w", err)
	}
	return count > 0, nil
}

// WarehouseExists reports whether a warehouse row exists for the given id.
func (r *Repository) WarehouseExists(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM warehouse WHERE id = $1`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("fulfillment: count warehouses: %w", err)
	}
	return count > 0, nil
}

// FindMatchingOrder locates the oldest order matching the product, amount,
// and created strictly before the given time, and locks it for the remainder
// of the transaction. The match deliberately ignores fulfilled_at; the
// duplicate guard decides whether the matched order can still be fulfilled.
// Ties break on created_at then id so selection is deterministic regardless
// of plan.
func (r *Repository) FindMatchingOrder(ctx context.Context, tx pgx.Tx, productID, amount int64, before time.Time) (Order, error) {
	const query = `
		SELECT id, product_id, amount, created_at, fulfilled_at
		FROM order_request
		WHERE product_id = $1 AND amount = $2 AND created_at < $3
		ORDER BY created_at ASC, id ASC
		LIMIT 1
		FOR UPDATE
	`

	var order Order
	err := tx.QueryRow(ctx, query, productID, amount, before).Scan(
		&order.ID,
		&order.ProductID,
		&order.Amount,
		&order.CreatedAt,
		&order.FulfilledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("fulfillment: find open order: %w", err)
	}

	return order, nil
}

// OrderFulfilled reports whether a fulfillment record already exists for the order.
func (r *Repository) OrderFulfilled(ctx context.Context, tx pgx.Tx, orderID int64) (bool, error) {
	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM product_warehouse WHERE order_id = $1`, orderID).Scan(&count); err != nil {
		return false, fmt.Errorf("fulfillment: count records for order: %w", err)
	}
	return count > 0, nil
}

// MarkFulfilled stamps the order's fulfilled_at inside the active transaction.
func (r *Repository) MarkFulfilled(ctx context.Context, tx pgx.Tx, orderID int64, at time.Time) error {
	tag, err := tx.Exec(ctx, `UPDATE order_request SET fulfilled_at = $2 WHERE id = $1`, orderID, at)
	if err != nil {
		return fmt.Errorf("fulfillment: mark order fulfilled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ProductPrice reads the unit price for the product.
func (r *Repository) ProductPrice(ctx context.Context, tx pgx.Tx, productID int64) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := tx.QueryRow(ctx, `SELECT price FROM product WHERE id = $1`, productID).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Decimal{}, ErrProductNotFound
		}
		return decimal.Decimal{}, fmt.Errorf("fulfillment: read product price: %w", err)
	}
	return price, nil
}

// InsertRecord creates the fulfillment record and returns its generated id.
// The unique index on order_id backs the duplicate guard; a violation here
// means a concurrent transaction fulfilled the same order first.
func (r *Repository) InsertRecord(ctx context.Context, tx pgx.Tx, params InsertRecordParams) (int64, error) {
	const insertSQL = `
		INSERT INTO product_warehouse (warehouse_id, product_id, order_id, amount, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := tx.QueryRow(ctx, insertSQL,
		params.WarehouseID,
		params.ProductID,
		params.OrderID,
		params.Amount,
		params.Price,
		params.CreatedAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrOrderAlreadyFulfilled
		}
		return 0, fmt.Errorf("fulfillment: insert record: %w", err)
	}

	return id, nil
}
