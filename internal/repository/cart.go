package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/liseren91/aistore-billing/internal/entity"
)

func (r *Repository) CreateCartItem(ctx context.Context, item entity.CartItem) error {
	const q = `
	INSERT INTO cart_items (
		id,
		service_id,
		service_name,
		service_color,
		tier_index,
		tier_name,
		price_usd,
		cycle,
		login,
		password,
		payment_url,
		new_account,
		created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(
		ctx,
		q,
		item.ID,
		item.ServiceID,
		item.ServiceName,
		item.ServiceColor,
		item.TierIndex,
		item.TierName,
		item.PriceUSD,
		item.Cycle,
		item.Credentials.Login,
		item.Credentials.Password,
		item.Credentials.PaymentURL,
		item.NewAccount,
		item.CreatedAt,
	)

	return err
}

func (r *Repository) CartItem(ctx context.Context, id uuid.UUID) (entity.CartItem, error) {
	q := selectCartItem + " WHERE id = $1"
	return scanCartItem(r.db.QueryRow(ctx, q, id))
}

func (r *Repository) CartItems(ctx context.Context) (items []entity.CartItem, err error) {
	q := selectCartItem + " ORDER BY created_at"

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return items, nil
}

func (r *Repository) UpdateCartItemCredentials(ctx context.Context, id uuid.UUID, c entity.Credentials) error {
	const q = `UPDATE cart_items SET login = $1, password = $2, payment_url = $3 WHERE id = $4`

	result, err := r.db.Exec(ctx, q, c.Login, c.Password, c.PaymentURL, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return entity.ErrNotFound
	}

	return nil
}

func (r *Repository) DeleteCartItem(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM cart_items WHERE id = $1`

	result, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return entity.ErrNotFound
	}

	return nil
}

func (r *Repository) ClearCart(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DELETE FROM cart_items`)
	return err
}

func (r *Repository) DeleteCartItemsBefore(ctx context.Context, t time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE created_at < $1`, t)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

func scanCartItem(row pgx.Row) (item entity.CartItem, err error) {
	err = row.Scan(
		&item.ID,
		&item.ServiceID,
		&item.ServiceName,
		&item.ServiceColor,
		&item.TierIndex,
		&item.TierName,
		&item.PriceUSD,
		&item.Cycle,
		&item.Credentials.Login,
		&item.Credentials.Password,
		&item.Credentials.PaymentURL,
		&item.NewAccount,
		&item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.CartItem{}, entity.ErrNotFound
		}

		return entity.CartItem{}, err
	}

	return item, nil
}
