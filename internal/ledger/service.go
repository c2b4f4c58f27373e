// Package ledger is the single authority for payer balances and the
// append-only transaction log. Every balance mutation is paired with a
// transaction entry, so at any point the balance equals the initial
// balance plus deposits minus withdrawals and purchase debits.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/liseren91/aistore-billing/internal/entity"
)

type Repository interface {
	CreatePayer(ctx context.Context, p entity.Payer) error
	Payer(ctx context.Context, id uuid.UUID) (entity.Payer, error)
	Payers(ctx context.Context) ([]entity.Payer, error)
	UpdatePayerServices(ctx context.Context, payerID uuid.UUID, serviceIDs []string, updatedAt time.Time) error
	// ApplyTransactions updates the payer balance and appends the entries
	// in a single storage transaction.
	ApplyTransactions(ctx context.Context, payerID uuid.UUID, balance decimal.Decimal, updatedAt time.Time, txs []entity.Transaction) error
	Transactions(ctx context.Context, payerID uuid.UUID, filter entity.TransactionFilter) ([]entity.Transaction, int, error)
}

// Debit is a single purchase debit within a batch.
type Debit struct {
	Amount      decimal.Decimal
	ServiceID   string
	ServiceName string
	Comment     string
}

type Service struct {
	repo  Repository
	locks *payerLocks
}

func New(repo Repository) *Service {
	return &Service{
		repo:  repo,
		locks: newPayerLocks(),
	}
}

func (s *Service) CreatePayer(ctx context.Context, p entity.Payer) (entity.Payer, error) {
	err := p.Validate()
	if err != nil {
		return entity.Payer{}, err
	}

	now := time.Now()

	p.ID = uuid.Must(uuid.NewV4())
	p.CreatedAt = now
	p.UpdatedAt = now

	if p.PaymentOptions == nil {
		p.PaymentOptions = []entity.PaymentOption{}
	}

	err = s.repo.CreatePayer(ctx, p)
	if err != nil {
		return entity.Payer{}, fmt.Errorf("create payer: %w", err)
	}

	slog.InfoContext(ctx, fmt.Sprintf("Создан плательщик %q с начальным балансом %s руб.", p.DisplayName(), p.Balance))

	return p, nil
}

func (s *Service) Payer(ctx context.Context, id uuid.UUID) (entity.Payer, error) {
	p, err := s.repo.Payer(ctx, id)
	if err != nil {
		return entity.Payer{}, fmt.Errorf("get payer %s: %w", id, err)
	}

	return p, nil
}

func (s *Service) Payers(ctx context.Context) ([]entity.Payer, error) {
	return s.repo.Payers(ctx)
}

// AttachServices adds the given service ids to the payer's denormalized
// service list, skipping ids already present.
func (s *Service) AttachServices(ctx context.Context, payerID uuid.UUID, serviceIDs []string) error {
	unlock := s.locks.lock(payerID)
	defer unlock()

	payer, err := s.repo.Payer(ctx, payerID)
	if err != nil {
		return fmt.Errorf("get payer %s: %w", payerID, err)
	}

	merged := payer.ServiceIDs

	for _, id := range serviceIDs {
		if !slices.Contains(merged, id) {
			merged = append(merged, id)
		}
	}

	if len(merged) == len(payer.ServiceIDs) {
		return nil
	}

	err = s.repo.UpdatePayerServices(ctx, payerID, merged, time.Now())
	if err != nil {
		return fmt.Errorf("update payer %s services: %w", payerID, err)
	}

	return nil
}

// Deposit increases the payer balance. Deposits are always permitted
// regardless of the current balance state.
func (s *Service) Deposit(ctx context.Context, payerID uuid.UUID, amount decimal.Decimal, method string) (entity.Transaction, decimal.Decimal, error) {
	if !amount.IsPositive() {
		return entity.Transaction{}, decimal.Decimal{}, fmt.Errorf("%w: deposit amount %s must be positive", entity.ErrInvalidArgument, amount)
	}

	unlock := s.locks.lock(payerID)
	defer unlock()

	payer, err := s.repo.Payer(ctx, payerID)
	if err != nil {
		return entity.Transaction{}, decimal.Decimal{}, fmt.Errorf("get payer %s: %w", payerID, err)
	}

	balance := payer.Balance.Add(amount)

	tx := entity.Transaction{
		ID:        uuid.Must(uuid.NewV4()),
		PayerID:   payerID,
		Kind:      entity.TransactionKindDeposit,
		Amount:    amount,
		Method:    method,
		Comment:   "Пополнение баланса",
		CreatedAt: time.Now(),
	}

	err = s.repo.ApplyTransactions(ctx, payerID, balance, tx.CreatedAt, []entity.Transaction{tx})
	if err != nil {
		return entity.Transaction{}, decimal.Decimal{}, fmt.Errorf("apply deposit: %w", err)
	}

	slog.InfoContext(ctx, fmt.Sprintf("Пополнение баланса плательщика %s методом %q на сумму %s руб.", payerID, method, amount))

	return tx, balance, nil
}

// Withdraw decreases the payer balance, rejecting amounts above the
// current balance.
func (s *Service) Withdraw(ctx context.Context, payerID uuid.UUID, amount decimal.Decimal, method string) (entity.Transaction, decimal.Decimal, error) {
	if !amount.IsPositive() {
		return entity.Transaction{}, decimal.Decimal{}, fmt.Errorf("%w: withdrawal amount %s must be positive", entity.ErrInvalidArgument, amount)
	}

	unlock := s.locks.lock(payerID)
	defer unlock()

	payer, err := s.repo.Payer(ctx, payerID)
	if err != nil {
		return entity.Transaction{}, decimal.Decimal{}, fmt.Errorf("get payer %s: %w", payerID, err)
	}

	if amount.GreaterThan(payer.Balance) {
		return entity.Transaction{}, decimal.Decimal{}, &entity.InsufficientFundsError{Shortfall: amount.Sub(payer.Balance)}
	}

	balance := payer.Balance.Sub(amount)

	tx := entity.Transaction{
		ID:        uuid.Must(uuid.NewV4()),
		PayerID:   payerID,
		Kind:      entity.TransactionKindWithdrawal,
		Amount:    amount,
		Method:    method,
		Comment:   "Вывод средств",
		CreatedAt: time.Now(),
	}

	err = s.repo.ApplyTransactions(ctx, payerID, balance, tx.CreatedAt, []entity.Transaction{tx})
	if err != nil {
		return entity.Transaction{}, decimal.Decimal{}, fmt.Errorf("apply withdrawal: %w", err)
	}

	slog.InfoContext(ctx, fmt.Sprintf("Вывод средств плательщика %s методом %q на сумму %s руб.", payerID, method, amount))

	return tx, balance, nil
}

// DebitForPurchase debits a single purchase from the payer balance.
// Must not be called for invoice-deferred settlement; the purchase
// manager enforces that.
func (s *Service) DebitForPurchase(ctx context.Context, payerID uuid.UUID, d Debit) (entity.Transaction, decimal.Decimal, error) {
	txs, balance, err := s.DebitBatch(ctx, payerID, []Debit{d})
	if err != nil {
		return entity.Transaction{}, decimal.Decimal{}, err
	}

	return txs[0], balance, nil
}

// DebitBatch debits several purchases atomically: the affordability check
// covers the combined total and the per-payer lock is held for the whole
// batch, so no partial debit can happen and no concurrent operation can
// invalidate the check before the commit.
func (s *Service) DebitBatch(ctx context.Context, payerID uuid.UUID, debits []Debit) ([]entity.Transaction, decimal.Decimal, error) {
	if len(debits) == 0 {
		return nil, decimal.Decimal{}, fmt.Errorf("%w: empty debit batch", entity.ErrInvalidArgument)
	}

	total := decimal.Decimal{}

	for _, d := range debits {
		if !d.Amount.IsPositive() {
			return nil, decimal.Decimal{}, fmt.Errorf("%w: debit amount %s must be positive", entity.ErrInvalidArgument, d.Amount)
		}

		total = total.Add(d.Amount)
	}

	unlock := s.locks.lock(payerID)
	defer unlock()

	payer, err := s.repo.Payer(ctx, payerID)
	if err != nil {
		return nil, decimal.Decimal{}, fmt.Errorf("get payer %s: %w", payerID, err)
	}

	if total.GreaterThan(payer.Balance) {
		return nil, decimal.Decimal{}, &entity.InsufficientFundsError{Shortfall: total.Sub(payer.Balance)}
	}

	balance := payer.Balance.Sub(total)
	now := time.Now()

	txs := make([]entity.Transaction, 0, len(debits))

	for _, d := range debits {
		txs = append(txs, entity.Transaction{
			ID:          uuid.Must(uuid.NewV4()),
			PayerID:     payerID,
			Kind:        entity.TransactionKindPurchase,
			Amount:      d.Amount,
			Method:      entity.PaymentMethodBalance.String(),
			Comment:     d.Comment,
			ServiceID:   d.ServiceID,
			ServiceName: d.ServiceName,
			CreatedAt:   now,
		})
	}

	err = s.repo.ApplyTransactions(ctx, payerID, balance, now, txs)
	if err != nil {
		return nil, decimal.Decimal{}, fmt.Errorf("apply purchase debits: %w", err)
	}

	slog.InfoContext(ctx, fmt.Sprintf("Списание средств плательщика %s за %d покупок на сумму %s руб.", payerID, len(debits), total))

	return txs, balance, nil
}

func (s *Service) Transactions(ctx context.Context, payerID uuid.UUID, filter entity.TransactionFilter) ([]entity.Transaction, int, error) {
	_, err := s.repo.Payer(ctx, payerID)
	if err != nil {
		return nil, 0, fmt.Errorf("get payer %s: %w", payerID, err)
	}

	txs, count, err := s.repo.Transactions(ctx, payerID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("get transactions: %w", err)
	}

	return txs, count, nil
}
