package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/modulhaus/backoffice/errs"
	"github.com/modulhaus/backoffice/internal/schema"
)

// OrderArchive keeps a durable copy of every order the console commits. The
// in-memory store stays authoritative at runtime; the archive survives
// restarts and feeds the initial load.
type OrderArchive struct {
	pool *pgxpool.Pool
}

// NewOrderArchive constructs an OrderArchive backed by the provided pool.
func NewOrderArchive(pool *pgxpool.Pool) *OrderArchive {
	return &OrderArchive{pool: pool}
}

const (
	orderUpsertSQL = `
INSERT INTO order_archive (
    id,
    customer_id,
    product_ref,
    total_amount,
    fulfillment_status,
    payment_status,
    estimated_delivery,
    version,
    created_at,
    updated_at
)
VALUES (
    @id,
    @customer_id,
    @product_ref,
    @total_amount,
    @fulfillment_status,
    @payment_status,
    @estimated_delivery,
    @version,
    @created_at,
    NOW()
)
ON CONFLICT (id) DO UPDATE SET
    fulfillment_status = EXCLUDED.fulfillment_status,
    payment_status = EXCLUDED.payment_status,
    estimated_delivery = EXCLUDED.estimated_delivery,
    version = EXCLUDED.version,
    updated_at = NOW();
`

	orderSelectSQL = `
SELECT
    id,
    customer_id,
    product_ref,
    total_amount::text,
    fulfillment_status,
    payment_status,
    estimated_delivery,
    version,
    created_at
FROM order_archive
ORDER BY created_at DESC, id DESC;
`
)

func (a *OrderArchive) ensurePool() (*pgxpool.Pool, error) {
	if a.pool == nil {
		return nil, fmt.Errorf("order archive: nil pool")
	}
	return a.pool, nil
}

// PersistOrder upserts the order's durable copy and returns it unchanged.
func (a *OrderArchive) PersistOrder(ctx context.Context, order schema.Order) (schema.Order, error) {
	pool, err := a.ensurePool()
	if err != nil {
		return schema.Order{}, err
	}
	if strings.TrimSpace(order.ID) == "" {
		return schema.Order{}, errs.New("persistence/archive", errs.CodeInvalid,
			errs.WithMessage("order id required"))
	}

	args := pgx.NamedArgs{
		"id":                 order.ID,
		"customer_id":        order.CustomerID,
		"product_ref":        order.ProductRef,
		"total_amount":       order.TotalAmount.String(),
		"fulfillment_status": string(order.Fulfillment),
		"payment_status":     string(order.Payment),
		"estimated_delivery": nullableTime(order.EstimatedDelivery),
		"version":            int64(order.Version),
		"created_at":         order.CreatedAt,
	}
	if _, err := pool.Exec(ctx, orderUpsertSQL, args); err != nil {
		return schema.Order{}, fmt.Errorf("order archive: upsert order %s: %w", order.ID, err)
	}
	return order, nil
}

// LoadOrders returns all archived orders, newest first, for seeding the
// in-memory store on startup.
func (a *OrderArchive) LoadOrders(ctx context.Context) ([]schema.Order, error) {
	pool, err := a.ensurePool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, orderSelectSQL)
	if err != nil {
		return nil, fmt.Errorf("order archive: list orders: %w", err)
	}
	defer rows.Close()

	var orders []schema.Order
	for rows.Next() {
		var (
			id          string
			customerID  string
			productRef  string
			totalText   string
			fulfillment string
			payment     string
			estimated   pgtype.Timestamptz
			version     int64
			createdAt   time.Time
		)
		if err := rows.Scan(
			&id,
			&customerID,
			&productRef,
			&totalText,
			&fulfillment,
			&payment,
			&estimated,
			&version,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("order archive: scan order: %w", err)
		}
		total, err := decimal.NewFromString(totalText)
		if err != nil {
			return nil, fmt.Errorf("order archive: parse amount for %s: %w", id, err)
		}
		order := schema.Order{
			ID:          id,
			CustomerID:  customerID,
			ProductRef:  productRef,
			TotalAmount: total,
			Fulfillment: schema.FulfillmentStatus(fulfillment),
			Payment:     schema.PaymentStatus(payment),
			CreatedAt:   createdAt,
			Version:     uint64(version),
		}
		if estimated.Valid {
			t := estimated.Time
			order.EstimatedDelivery = &t
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order archive: iterate orders: %w", err)
	}
	return orders, nil
}

func nullableTime(ptr *time.Time) any {
	if ptr == nil {
		return nil
	}
	return *ptr
}
