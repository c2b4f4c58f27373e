package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype/zeronull"

	"github.com/liseren91/aistore-billing/internal/entity"
)

func (r *Repository) CreatePurchases(ctx context.Context, purchases []entity.Purchase) error {
	dbTx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	defer dbTx.Rollback(ctx) //nolint:errcheck

	const q = `
	INSERT INTO purchases (
		id,
		payer_id,
		service_id,
		service_name,
		plan_name,
		price_rub,
		cycle,
		status,
		method,
		invoice_number,
		invoice_document,
		login,
		password,
		payment_url,
		new_account,
		created_at,
		updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	for _, p := range purchases {
		_, err = dbTx.Exec(
			ctx,
			q,
			p.ID,
			p.PayerID,
			p.ServiceID,
			p.ServiceName,
			p.PlanName,
			p.PriceRub,
			p.Cycle,
			p.Status,
			p.Method,
			zeronull.Int8(p.InvoiceNumber),
			zeronull.Text(p.InvoiceDocument),
			p.Credentials.Login,
			p.Credentials.Password,
			p.Credentials.PaymentURL,
			p.NewAccount,
			p.CreatedAt,
			p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert purchase %s: %w", p.ID, err)
		}
	}

	return dbTx.Commit(ctx)
}

func (r *Repository) Purchase(ctx context.Context, id uuid.UUID) (entity.Purchase, error) {
	q := selectPurchase + " WHERE id = $1"
	return scanPurchase(r.db.QueryRow(ctx, q, id))
}

func (r *Repository) Purchases(ctx context.Context, payerID uuid.UUID) (purchases []entity.Purchase, err error) {
	q := selectPurchase
	args := []any{}

	if payerID != uuid.Nil {
		q += " WHERE payer_id = $1"
		args = append(args, payerID)
	}

	q += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}

		purchases = append(purchases, p)
	}

	return purchases, nil
}

// UpdatePurchaseStatus transitions the purchase only while its status
// still equals from. Zero rows affected means the row is gone or another
// transition committed first; both surface as ErrNotFound.
func (r *Repository) UpdatePurchaseStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to entity.PurchaseStatus,
	updatedAt time.Time,
) error {
	const q = `UPDATE purchases SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	result, err := r.db.Exec(ctx, q, to, updatedAt, id, from)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return entity.ErrNotFound
	}

	return nil
}

func scanPurchase(row pgx.Row) (p entity.Purchase, err error) {
	err = row.Scan(
		&p.ID,
		&p.PayerID,
		&p.ServiceID,
		&p.ServiceName,
		&p.PlanName,
		&p.PriceRub,
		&p.Cycle,
		&p.Status,
		&p.Method,
		(*zeronull.Int8)(&p.InvoiceNumber),
		(*zeronull.Text)(&p.InvoiceDocument),
		&p.Credentials.Login,
		&p.Credentials.Password,
		&p.Credentials.PaymentURL,
		&p.NewAccount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Purchase{}, entity.ErrNotFound
		}

		return entity.Purchase{}, err
	}

	return p, nil
}
