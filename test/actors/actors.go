package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"stockflow/fulfillment"
)

// amounts the seeder and fulfillers draw from; keeping the range small forces
// contention on the same orders.
var amounts = []int64{1, 2, 3, 5}

// OrderSeeder keeps inserting fresh open orders for the product so fulfillers
// never run dry.
func OrderSeeder(ctx context.Context, pool *pgxpool.Pool, productID int64, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		amount := amounts[rand.Intn(len(amounts))]
		createdAt := time.Now().Add(-time.Duration(1+rand.Intn(48)) * time.Hour)
		if _, err := pool.Exec(ctx, `INSERT INTO order_request (product_id, amount, created_at) VALUES ($1, $2, $3)`,
			productID, amount, createdAt); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// tolerated: chaos may have killed our backend
		}
		time.Sleep(time.Duration(10+rand.Intn(30)) * time.Millisecond)
	}
}

// Fulfiller hammers the workflow with requests for random amounts. Domain
// rejections are the expected steady state under contention; storage errors
// are tolerated because the chaos actor terminates backends at random. The
// oracles, not the actors, decide whether the run was correct.
func Fulfiller(ctx context.Context, svc *fulfillment.Service, productID, warehouseID int64, useProcedure bool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		req := fulfillment.Request{
			ProductID:   productID,
			WarehouseID: warehouseID,
			Amount:      amounts[rand.Intn(len(amounts))],
			CreatedAt:   time.Now(),
		}

		var err error
		if useProcedure {
			_, err = svc.FulfillWithProcedure(ctx, req)
		} else {
			_, err = svc.Fulfill(ctx, req)
		}
		switch {
		case err == nil,
			errors.Is(err, fulfillment.ErrOrderNotFound),
			errors.Is(err, fulfillment.ErrOrderAlreadyFulfilled):
			// expected outcomes under contention
		default:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// storage-level failure from chaos; keep going
		}

		time.Sleep(time.Duration(5+rand.Intn(20)) * time.Millisecond)
	}
}

// GhostFulfiller issues requests for ids that do not exist to keep the
// precondition paths hot; any outcome other than the not-found rejections is
// a bug.
func GhostFulfiller(ctx context.Context, svc *fulfillment.Service, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		req := fulfillment.Request{
			ProductID:   1_000_000 + rand.Int63n(1000),
			WarehouseID: 1_000_000 + rand.Int63n(1000),
			Amount:      1,
			CreatedAt:   time.Now(),
		}

		_, err := svc.Fulfill(ctx, req)
		if err == nil {
			return fmt.Errorf("ghost fulfiller: request for nonexistent product %d succeeded", req.ProductID)
		}
		if !errors.Is(err, fulfillment.ErrProductNotFound) && ctx.Err() == nil {
			// storage-level failure from chaos; tolerated
		}

		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}
