// Package repositories persists the order journal: one row per purchase
// saga, updated at every state transition.
package repositories

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oceanprotocol/squid-go/internal/models"
)

type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

func (r *OrderRepo) Insert(ctx context.Context, o *models.Order) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO orders (agreement_id, did, consumer, provider, price, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, o.AgreementID.Hex(), o.DID, o.Consumer, o.Provider, o.Price.String(), o.Status)
	return err
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, agreementID models.AgreementID, status string, accessGranted, refunded bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET status = $1, access_granted = $2, refunded = $3, updated_at = now()
		WHERE agreement_id = $4
	`, status, accessGranted, refunded, agreementID.Hex())
	return err
}

// ListUnfinished returns orders stuck in a non-terminal state, for recovery
// after a restart.
func (r *OrderRepo) ListUnfinished(ctx context.Context) ([]*models.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT agreement_id, did, consumer, provider, price, status,
		       access_granted, refunded, created_at, updated_at
		FROM orders
		WHERE status NOT IN ($1, $2, $3)
		ORDER BY created_at
	`, models.OrderStatusGranted, models.OrderStatusRefunded, models.OrderStatusFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		var (
			o     models.Order
			id    string
			price string
		)
		if err := rows.Scan(&id, &o.DID, &o.Consumer, &o.Provider, &price, &o.Status,
			&o.AccessGranted, &o.Refunded, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		if o.AgreementID, err = models.ParseAgreementID(id); err != nil {
			return nil, err
		}
		o.Price, _ = new(big.Int).SetString(price, 10)
		if o.Price == nil {
			return nil, fmt.Errorf("order %s: unparseable price %q", id, price)
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}
