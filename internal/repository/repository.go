package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype/zeronull"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/liseren91/aistore-billing/internal/entity"
)

// Repository is the Postgres persistence layer. A single struct backs
// the consumer-side interfaces declared in the ledger, cart and purchase
// packages.
type Repository struct {
	db *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{
		db: pool,
	}
}

func (r *Repository) CreatePayer(ctx context.Context, p entity.Payer) error {
	const q = `
	INSERT INTO payers (
		id,
		type,
		name,
		inn,
		kpp,
		first_name,
		last_name,
		document_number,
		balance,
		payment_options,
		service_ids,
		created_at,
		updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(
		ctx,
		q,
		p.ID,
		p.Type,
		p.Name,
		p.INN,
		p.KPP,
		p.FirstName,
		p.LastName,
		p.DocumentNumber,
		p.Balance,
		p.PaymentOptions,
		p.ServiceIDs,
		p.CreatedAt,
		p.UpdatedAt,
	)

	return err
}

func (r *Repository) Payer(ctx context.Context, id uuid.UUID) (entity.Payer, error) {
	q := selectPayer + " WHERE id = $1"
	return scanPayer(r.db.QueryRow(ctx, q, id))
}

func (r *Repository) Payers(ctx context.Context) (payers []entity.Payer, err error) {
	q := selectPayer + " ORDER BY created_at"

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		p, err := scanPayer(rows)
		if err != nil {
			return nil, err
		}

		payers = append(payers, p)
	}

	return payers, nil
}

func (r *Repository) UpdatePayerServices(
	ctx context.Context,
	payerID uuid.UUID,
	serviceIDs []string,
	updatedAt time.Time,
) error {
	const q = `UPDATE payers SET service_ids = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(ctx, q, serviceIDs, updatedAt, payerID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return entity.ErrNotFound
	}

	return nil
}

// ApplyTransactions commits the new balance and the paired log entries in
// one SQL transaction, so the balance invariant survives a crash between
// the two writes.
func (r *Repository) ApplyTransactions(
	ctx context.Context,
	payerID uuid.UUID,
	balance decimal.Decimal,
	updatedAt time.Time,
	txs []entity.Transaction,
) error {
	dbTx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	defer dbTx.Rollback(ctx) //nolint:errcheck

	const updateBalance = `UPDATE payers SET balance = $1, updated_at = $2 WHERE id = $3`

	result, err := dbTx.Exec(ctx, updateBalance, balance, updatedAt, payerID)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return entity.ErrNotFound
	}

	const insertTx = `
	INSERT INTO transactions (id, payer_id, kind, amount, method, comment, service_id, service_name, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, t := range txs {
		_, err = dbTx.Exec(
			ctx,
			insertTx,
			t.ID,
			t.PayerID,
			t.Kind,
			t.Amount,
			t.Method,
			t.Comment,
			zeronull.Text(t.ServiceID),
			zeronull.Text(t.ServiceName),
			t.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	return dbTx.Commit(ctx)
}

func (r *Repository) Transactions(
	ctx context.Context,
	payerID uuid.UUID,
	f entity.TransactionFilter,
) ([]entity.Transaction, int, error) {
	stmt := sq.Select(
		"id",
		"payer_id",
		"kind",
		"amount",
		"method",
		"comment",
		"service_id",
		"service_name",
		"created_at",
		"COUNT(*) OVER() AS total_count",
	).From("transactions").Where(sq.Eq{"payer_id": payerID}).PlaceholderFormat(sq.Dollar)

	stmt = applyTransactionFilter(stmt, f).
		Limit(f.Limit).
		Offset(f.Page*f.Limit - f.Limit).
		OrderBy(fmt.Sprintf("%s %s", f.SortBy, f.OrderBy))

	sql, args, err := stmt.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	transactions := make([]entity.Transaction, 0, f.Limit)

	var totalCount int

	for rows.Next() {
		var t entity.Transaction

		var count int

		err = rows.Scan(
			&t.ID,
			&t.PayerID,
			&t.Kind,
			&t.Amount,
			&t.Method,
			&t.Comment,
			(*zeronull.Text)(&t.ServiceID),
			(*zeronull.Text)(&t.ServiceName),
			&t.CreatedAt,
			&count,
		)
		if err != nil {
			return nil, 0, err
		}

		totalCount = count

		transactions = append(transactions, t)
	}

	return transactions, totalCount, nil
}

func applyTransactionFilter(stmt sq.SelectBuilder, f entity.TransactionFilter) sq.SelectBuilder {
	if f.Kind != nil {
		stmt = stmt.Where(sq.Eq{"kind": *f.Kind})
	}

	if f.Amount != nil {
		stmt = stmt.Where(sq.Eq{"amount": *f.Amount})
	}

	if f.CreatedAt != nil {
		stmt = stmt.Where(sq.GtOrEq{"created_at": *f.CreatedAt})
	}

	return stmt
}

func scanPayer(row pgx.Row) (p entity.Payer, err error) {
	err = row.Scan(
		&p.ID,
		&p.Type,
		&p.Name,
		&p.INN,
		&p.KPP,
		&p.FirstName,
		&p.LastName,
		&p.DocumentNumber,
		&p.Balance,
		&p.PaymentOptions,
		&p.ServiceIDs,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Payer{}, entity.ErrNotFound
		}

		return entity.Payer{}, err
	}

	return p, nil
}
