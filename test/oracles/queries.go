package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_single_record_per_order",
			SQL: `SELECT order_id, COUNT(*) FROM product_warehouse
                  GROUP BY order_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_fulfilled_order_has_record",
			SQL: `SELECT o.id FROM order_request o
                  WHERE o.fulfilled_at IS NOT NULL
                    AND NOT EXISTS (SELECT 1 FROM product_warehouse pw WHERE pw.order_id = o.id)`,
		},
		{
			Name: "O3_record_order_marked",
			SQL: `SELECT pw.id FROM product_warehouse pw
                  JOIN order_request o ON o.id = pw.order_id
                  WHERE o.fulfilled_at IS NULL`,
		},
		{
			Name: "O4_price_is_line_total",
			SQL: `SELECT pw.id FROM product_warehouse pw
                  JOIN product p ON p.id = pw.product_id
                  WHERE pw.price <> p.price * pw.amount`,
		},
		{
			Name: "O5_order_precedes_request",
			SQL: `SELECT pw.id FROM product_warehouse pw
                  JOIN order_request o ON o.id = pw.order_id
                  WHERE o.created_at >= pw.created_at`,
		},
		{
			Name: "O6_record_matches_order",
			SQL: `SELECT pw.id FROM product_warehouse pw
                  JOIN order_request o ON o.id = pw.order_id
                  WHERE o.product_id <> pw.product_id OR o.amount <> pw.amount`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		if rows.Next() {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
