package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repo defines the data access required by the workflow. Every method binds
// to the transaction owned by the calling service so the whole step sequence
// commits or rolls back as one unit.
type Repo interface {
	ProductExists(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	WarehouseExists(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	FindMatchingOrder(ctx context.Context, tx pgx.Tx, productID, amount int64, before time.Time) (Order, error)
	OrderFulfilled(ctx context.Context, tx pgx.Tx, orderID int64) (bool, error)
	MarkFulfilled(ctx context.Context, tx pgx.Tx, orderID int64, at time.Time) error
	ProductPrice(ctx context.Context, tx pgx.Tx, productID int64) (decimal.Decimal, error)
	InsertRecord(ctx context.Context, tx pgx.Tx, params InsertRecordParams) (int64, error)
}

// Service executes the fulfillment workflow: the ordered validation chain and
// the order-to-fulfilled state transition, atomically per invocation.
type Service struct {
	pool TxBeginner
	repo Repo
	now  func() time.Time
}

func NewService(pool TxBeginner, repo Repo) *Service {
	if repo == nil {
		repo = NewRepository()
	}
	return &Service{
		pool: pool,
		repo: repo,
		now:  time.Now,
	}
}

// WithClock overrides the fulfillment timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Fulfill validates the request against the store, marks the oldest matching
// open order as fulfilled, and inserts a priced fulfillment record. It returns
// the new record's id. Every step runs in one transaction; any failure rolls
// back all of it.
func (s *Service) Fulfill(ctx context.Context, req Request) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("fulfillment: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ok, err := s.repo.ProductExists(ctx, tx, req.ProductID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrProductNotFound
	}

	ok, err = s.repo.WarehouseExists(ctx, tx, req.WarehouseID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrWarehouseNotFound
	}

	order, err := s.repo.FindMatchingOrder(ctx, tx, req.ProductID, req.Amount, req.CreatedAt)
	if err != nil {
		return 0, err
	}

	fulfilled, err := s.repo.OrderFulfilled(ctx, tx, order.ID)
	if err != nil {
		return 0, err
	}
	if fulfilled {
		return 0, ErrOrderAlreadyFulfilled
	}

	if err := s.repo.MarkFulfilled(ctx, tx, order.ID, s.now()); err != nil {
		return 0, err
	}

	unitPrice, err := s.repo.ProductPrice(ctx, tx, req.ProductID)
	if err != nil {
		return 0, err
	}

	id, err := s.repo.InsertRecord(ctx, tx, InsertRecordParams{
		WarehouseID: req.WarehouseID,
		ProductID:   req.ProductID,
		OrderID:     order.ID,
		Amount:      req.Amount,
		Price:       unitPrice.Mul(decimal.NewFromInt(req.Amount)),
		CreatedAt:   req.CreatedAt,
	})
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("fulfillment: commit tx: %w", err)
	}

	return id, nil
}
