package fulfillment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request is the caller-supplied input for a single fulfillment attempt.
// CreatedAt is the nominal order-creation time the request is matched against,
// not the time the request arrives.
type Request struct {
	ProductID   int64
	WarehouseID int64
	Amount      int64
	CreatedAt   time.Time
}

// Order mirrors the order_request table columns touched by the workflow.
// An order is open while FulfilledAt is nil.
type Order struct {
	ID          int64
	ProductID   int64
	Amount      int64
	CreatedAt   time.Time
	FulfilledAt *time.Time
}

// Record is a priced stock movement into a warehouse. Price holds the line
// total (unit price times amount), never the unit price alone.
type Record struct {
	ID          int64
	WarehouseID int64
	ProductID   int64
	OrderID     int64
	Amount      int64
	Price       decimal.Decimal
	CreatedAt   time.Time
}

// InsertRecordParams enumerates the columns written when a fulfillment record
// is created inside the transaction.
type InsertRecordParams struct {
	WarehouseID int64
	ProductID   int64
	OrderID     int64
	Amount      int64
	Price       decimal.Decimal
	CreatedAt   time.Time
}
