package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// PlaceOrder converts items into an order inside a single transaction:
// lock each product row (FOR UPDATE, ordered by id to avoid deadlocks),
// check stock, decrement, insert the order and its lines, delete the
// user's matching cart lines. Any shortage rolls everything back and is
// reported for every offending product at once.
func (r *Repo) PlaceOrder(ctx context.Context, userID string, items []ItemInput, location string) (PlacedOrder, error) {
	if userID == "" {
		return PlacedOrder{}, validationf("user id is required")
	}
	if len(items) == 0 {
		return PlacedOrder{}, validationf("order must contain at least one item")
	}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ProductID == "" {
			return PlacedOrder{}, validationf("item product id is required")
		}
		if it.Qty <= 0 {
			return PlacedOrder{}, validationf("invalid qty %d for product %s", it.Qty, it.ProductID)
		}
		if seen[it.ProductID] {
			return PlacedOrder{}, validationf("duplicate product %s in order", it.ProductID)
		}
		seen[it.ProductID] = true
	}

	// Consistent lock order across concurrent placements.
	sorted := make([]ItemInput, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PlacedOrder{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		total     int64
		prices    = make(map[string]int64, len(sorted))
		shortages []StockShortage
	)
	for _, it := range sorted {
		var stock int
		var price int64
		err := tx.QueryRow(ctx,
			`SELECT stock, price_cents FROM products WHERE id=$1 FOR UPDATE`,
			it.ProductID).Scan(&stock, &price)
		if errors.Is(err, pgx.ErrNoRows) {
			return PlacedOrder{}, fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
		}
		if err != nil {
			return PlacedOrder{}, err
		}
		if stock < it.Qty {
			shortages = append(shortages, StockShortage{
				ProductID: it.ProductID, Required: it.Qty, Available: stock,
			})
			continue
		}
		prices[it.ProductID] = price
	}
	if len(shortages) > 0 {
		return PlacedOrder{}, &InsufficientStockError{Shortages: shortages} // rollback via defer
	}

	for _, it := range sorted {
		ct, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1`,
			it.ProductID, it.Qty)
		if err != nil {
			return PlacedOrder{}, err
		}
		if ct.RowsAffected() != 1 {
			return PlacedOrder{}, fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
		}
		total += prices[it.ProductID] * int64(it.Qty)
	}

	orderID := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, total_cents, location)
		VALUES ($1, $2, $3, $4, $5)
	`, orderID, userID, StatusPending, total, location)
	if err != nil {
		return PlacedOrder{}, err
	}

	for _, it := range sorted {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), orderID, it.ProductID, it.Qty, prices[it.ProductID],
		)
		if err != nil {
			return PlacedOrder{}, err
		}
	}

	// Consume the cart lines the order was placed from, if any.
	ids := make([]string, 0, len(sorted))
	for _, it := range sorted {
		ids = append(ids, it.ProductID)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM cart_items WHERE user_id=$1 AND product_id = ANY($2)`,
		userID, ids); err != nil {
		return PlacedOrder{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return PlacedOrder{}, err
	}
	return PlacedOrder{OrderID: orderID, TotalCents: total}, nil
}

// CancelOrder moves the order to Cancelled and returns every line's quantity
// to product stock, all in one transaction. Terminal orders are rejected.
func (r *Repo) CancelOrder(ctx context.Context, orderID, reason string) error {
	if reason == "" {
		return validationf("cancel reason is required")
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	if !CanTransition(status, StatusCancelled) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, status, StatusCancelled)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, cancel_reason=$3, updated_at=now() WHERE id=$1
	`, orderID, StatusCancelled, reason); err != nil {
		return err
	}

	rows, err := tx.Query(ctx, `SELECT product_id, qty FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return err
	}
	type line struct {
		pid string
		qty int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.pid, &l.qty); err != nil {
			rows.Close()
			return err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, l := range lines {
		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`,
			l.pid, l.qty); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// AdvanceStatus applies a forward transition (Shipped, Delivered). Cancelling
// goes through CancelOrder so stock is restored.
func (r *Repo) AdvanceStatus(ctx context.Context, orderID string, to Status) error {
	if to == StatusCancelled {
		return validationf("use cancel to revoke an order")
	}
	if _, ok := validNext[to]; !ok {
		return validationf("unknown status %q", to)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	if !CanTransition(status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, status, to)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, orderID, to); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CheckStock is a read-only snapshot; there is no atomicity across ids and
// callers must treat the result as advisory. The placement transaction is
// the authoritative check.
func (r *Repo) CheckStock(ctx context.Context, productIDs []string) (map[string]int, error) {
	if len(productIDs) == 0 {
		return nil, validationf("no product ids provided")
	}
	rows, err := r.DB.Query(ctx,
		`SELECT id, stock FROM products WHERE id = ANY($1)`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int, len(productIDs))
	for rows.Next() {
		var id string
		var stock int
		if err := rows.Scan(&id, &stock); err != nil {
			return nil, err
		}
		out[id] = stock
	}
	return out, rows.Err()
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, status, total_cents, location, cancel_reason, created_at, updated_at
		FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.Location, &o.CancelReason, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}

	o.Lines, err = r.orderLines(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) orderLines(ctx context.Context, orderID string) ([]OrderLine, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, p.image_url, oi.qty, oi.price_cents
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.ImageURL, &l.Qty, &l.PriceCents); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *Repo) ListOrdersByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, status, total_cents, location, cancel_reason, created_at, updated_at
		FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.Location, &o.CancelReason, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		out[i].Lines, err = r.orderLines(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// HasOrdered gates review submission on a past purchase.
func (r *Repo) HasOrdered(ctx context.Context, userID, productID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE o.user_id=$1 AND oi.product_id=$2
		)`, userID, productID).Scan(&exists)
	return exists, err
}
