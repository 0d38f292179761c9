// Package orders persists delivery addresses and placed orders.
package orders

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/kailas-cloud/shopassist/internal/domain/order"
)

// DB is the subset of *sql.DB used by the repository.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Repo is the Postgres order repository.
type Repo struct {
	db    DB
	newID func() string
}

// New creates an order repository.
func New(db DB) *Repo {
	return &Repo{db: db, newID: uuid.NewString}
}

// CreateDeliveryAddress stores a one-off address for an order and returns its id.
// These records are not part of the user's saved address book.
func (r *Repo) CreateDeliveryAddress(ctx context.Context, userID string, a order.Address) (string, error) {
	id := r.newID()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO delivery_addresses (id, user_id, street, landmark, lat, lng, is_saved)
		VALUES ($1, $2, $3, $4, $5, $6, false)`,
		id, userID, a.Street, a.Landmark, a.Location.Lat, a.Location.Lng)
	if err != nil {
		return "", fmt.Errorf("insert delivery address: %w", err)
	}
	return id, nil
}

// CreateOrder inserts the order and its lines in one transaction.
func (r *Repo) CreateOrder(ctx context.Context, o *order.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, shop_id, subtotal_cents, delivery_fee_cents, total_cents,
			delivery_address_id, status, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID(), o.UserID(), o.ShopID(), o.SubtotalCents(), o.DeliveryFeeCents(), o.TotalCents(),
		o.AddressID(), string(o.Status()), o.PlacedAt())
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, l := range o.Lines() {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_lines (order_id, position, item_id, name, quantity, price_cents)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID(), i, l.ItemID, l.Name, l.Quantity, l.PriceCents)
		if err != nil {
			return fmt.Errorf("insert order line %s: %w", l.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}
