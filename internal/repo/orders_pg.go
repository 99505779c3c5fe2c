package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/miniapp-shop/internal/order"
)

// OrderPG persists orders in PostgreSQL. Line items and the shipping
// address are stored as JSONB snapshots since they are immutable after
// checkout and never queried relationally.
type OrderPG struct {
	Pool *pgxpool.Pool
}

const orderColumns = `id, user_id, order_number, status, currency, subtotal, shipping_fee, total,
	items, shipping_address, tracking_number, estimated_delivery, payment_id, created_at, updated_at`

func (r *OrderPG) CreateOrder(ctx context.Context, o *order.Order) error {
	items, addr, err := marshalSnapshots(o)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedAt = now
	o.UpdatedAt = now
	_, err = r.Pool.Exec(ctx, `
		INSERT INTO orders (id, user_id, order_number, status, currency, subtotal, shipping_fee, total,
			items, shipping_address, tracking_number, estimated_delivery, payment_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		o.ID, o.UserID, o.Number, string(o.Status), o.Currency, o.Subtotal, o.ShippingFee, o.Total,
		items, addr, o.TrackingNumber, o.EstimatedDelivery, o.PaymentID, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderPG) FindOrder(ctx context.Context, id uuid.UUID) (order.Order, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *OrderPG) FindOrderForUser(ctx context.Context, id, userID uuid.UUID) (order.Order, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
	return scanOrder(row)
}

func (r *OrderPG) ListOrdersForUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]order.Order, int64, error) {
	var total int64
	if err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderPG) ListOrdersByStatus(ctx context.Context, status order.Status, limit int32) ([]order.Order, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE status = $1 ORDER BY updated_at ASC LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list orders by status: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// SaveOrder writes mutable shipment fields with a guarded UPDATE keyed on
// the previously-read updated_at, so concurrent transitions cannot silently
// overwrite each other.
func (r *OrderPG) SaveOrder(ctx context.Context, o *order.Order) error {
	prevUpdated := o.UpdatedAt
	o.UpdatedAt = time.Now().UTC()
	tag, err := r.Pool.Exec(ctx, `
		UPDATE orders
		SET status = $1, tracking_number = $2, estimated_delivery = $3, payment_id = $4, updated_at = $5
		WHERE id = $6 AND updated_at = $7`,
		string(o.Status), o.TrackingNumber, o.EstimatedDelivery, o.PaymentID, o.UpdatedAt,
		o.ID, prevUpdated,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row vanished or someone else won the race.
		var exists bool
		if checkErr := r.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); checkErr == nil && !exists {
			return order.ErrNotFound
		}
		return fmt.Errorf("update order %s: concurrent modification", o.ID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (order.Order, error) {
	var (
		o         order.Order
		status    string
		itemsRaw  []byte
		addrRaw   []byte
		estimated *time.Time
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Number, &status, &o.Currency, &o.Subtotal, &o.ShippingFee, &o.Total,
		&itemsRaw, &addrRaw, &o.TrackingNumber, &estimated, &o.PaymentID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, order.ErrNotFound
		}
		return order.Order{}, fmt.Errorf("scan order: %w", err)
	}
	o.Status = order.Status(status)
	o.EstimatedDelivery = estimated
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &o.Items); err != nil {
			return order.Order{}, fmt.Errorf("decode order items: %w", err)
		}
	}
	if len(addrRaw) > 0 {
		if err := json.Unmarshal(addrRaw, &o.ShippingAddress); err != nil {
			return order.Order{}, fmt.Errorf("decode shipping address: %w", err)
		}
	}
	return o, nil
}

func collectOrders(rows pgx.Rows) ([]order.Order, error) {
	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

func marshalSnapshots(o *order.Order) (items, addr []byte, err error) {
	items, err = json.Marshal(o.Items)
	if err != nil {
		return nil, nil, fmt.Errorf("encode order items: %w", err)
	}
	addr, err = json.Marshal(o.ShippingAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("encode shipping address: %w", err)
	}
	return items, addr, nil
}
