package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATEs raised by the add_product_to_warehouse function for domain
// violations. They mirror the Go-side validation sequence one to one.
const (
	codeProductNotFound   = "FF001"
	codeWarehouseNotFound = "FF002"
	codeOrderNotFound     = "FF003"
	codeAlreadyFulfilled  = "FF004"
)

// FulfillWithProcedure runs the same validation-and-fulfillment sequence as
// Fulfill, delegated to the add_product_to_warehouse server-side function.
// Domain violations raised by the function are mapped back onto the package
// sentinels so both entry points are observably equivalent.
func (s *Service) FulfillWithProcedure(ctx context.Context, req Request) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("fulfillment: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `SELECT add_product_to_warehouse($1, $2, $3, $4)`,
		req.ProductID,
		req.WarehouseID,
		req.Amount,
		req.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, mapProcedureError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("fulfillment: commit tx: %w", err)
	}

	return id, nil
}

func mapProcedureError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("fulfillment: call procedure: %w", err)
	}

	switch pgErr.Code {
	case codeProductNotFound:
		return ErrProductNotFound
	case codeWarehouseNotFound:
		return ErrWarehouseNotFound
	case codeOrderNotFound:
		return ErrOrderNotFound
	case codeAlreadyFulfilled, uniqueViolation:
		return ErrOrderAlreadyFulfilled
	default:
		return fmt.Errorf("fulfillment: call procedure: %w", err)
	}
}
