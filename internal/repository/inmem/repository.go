// Package inmem is an in-memory repository with the same contracts as
// the Postgres one. It backs the single-session dev mode (no POSTGRES_DSN
// configured) and the service unit tests.
package inmem

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/liseren91/aistore-billing/internal/entity"
)

type Repository struct {
	mu sync.RWMutex

	payers       map[uuid.UUID]entity.Payer
	transactions []entity.Transaction
	purchases    map[uuid.UUID]entity.Purchase
	cart         []entity.CartItem
}

func New() *Repository {
	return &Repository{
		payers:    make(map[uuid.UUID]entity.Payer),
		purchases: make(map[uuid.UUID]entity.Purchase),
	}
}

func (r *Repository) CreatePayer(_ context.Context, p entity.Payer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.payers[p.ID] = p

	return nil
}

func (r *Repository) Payer(_ context.Context, id uuid.UUID) (entity.Payer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payers[id]
	if !ok {
		return entity.Payer{}, entity.ErrNotFound
	}

	return p, nil
}

func (r *Repository) Payers(_ context.Context) ([]entity.Payer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payers := make([]entity.Payer, 0, len(r.payers))
	for _, p := range r.payers {
		payers = append(payers, p)
	}

	sort.Slice(payers, func(i, j int) bool {
		return payers[i].CreatedAt.Before(payers[j].CreatedAt)
	})

	return payers, nil
}

func (r *Repository) UpdatePayerServices(
	_ context.Context,
	payerID uuid.UUID,
	serviceIDs []string,
	updatedAt time.Time,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payers[payerID]
	if !ok {
		return entity.ErrNotFound
	}

	p.ServiceIDs = serviceIDs
	p.UpdatedAt = updatedAt
	r.payers[payerID] = p

	return nil
}

func (r *Repository) ApplyTransactions(
	_ context.Context,
	payerID uuid.UUID,
	balance decimal.Decimal,
	updatedAt time.Time,
	txs []entity.Transaction,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payers[payerID]
	if !ok {
		return entity.ErrNotFound
	}

	p.Balance = balance
	p.UpdatedAt = updatedAt
	r.payers[payerID] = p

	// The log only grows: entries are copied in and never touched again.
	r.transactions = append(r.transactions, txs...)

	return nil
}

func (r *Repository) Transactions(
	_ context.Context,
	payerID uuid.UUID,
	f entity.TransactionFilter,
) ([]entity.Transaction, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var since time.Time

	if f.CreatedAt != nil {
		var err error

		since, err = parseSince(*f.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("parse created_at filter: %w", err)
		}
	}

	var txs []entity.Transaction

	for _, t := range r.transactions {
		if t.PayerID != payerID {
			continue
		}

		if f.Kind != nil && t.Kind != *f.Kind {
			continue
		}

		if f.Amount != nil && t.Amount.String() != *f.Amount {
			continue
		}

		if f.CreatedAt != nil && t.CreatedAt.Before(since) {
			continue
		}

		txs = append(txs, t)
	}

	sortTransactions(txs, f.SortBy, f.OrderBy)

	total := len(txs)

	if f.Limit > 0 {
		offset := 0
		if f.Page > 0 {
			offset = int(f.Page*f.Limit - f.Limit)
		}

		if offset > len(txs) {
			offset = len(txs)
		}

		end := offset + int(f.Limit)
		if end > len(txs) {
			end = len(txs)
		}

		txs = txs[offset:end]
	}

	return txs, total, nil
}

// parseSince accepts the same values Postgres would cast for the
// created_at comparison: a full timestamp or a bare date.
func parseSince(v string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, v)
	if err == nil {
		return ts, nil
	}

	return time.Parse(time.DateOnly, v)
}

func sortTransactions(txs []entity.Transaction, sortBy entity.TransactionSortCol, orderBy entity.OrderByCol) {
	sort.SliceStable(txs, func(i, j int) bool {
		var less bool

		switch sortBy {
		case entity.SortByID:
			less = strings.Compare(txs[i].ID.String(), txs[j].ID.String()) < 0
		case entity.SortByAmount:
			less = txs[i].Amount.LessThan(txs[j].Amount)
		default:
			less = txs[i].CreatedAt.Before(txs[j].CreatedAt)
		}

		if orderBy == entity.DESC {
			return !less
		}

		return less
	})
}

func (r *Repository) CreatePurchases(_ context.Context, purchases []entity.Purchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range purchases {
		r.purchases[p.ID] = p
	}

	return nil
}

func (r *Repository) Purchase(_ context.Context, id uuid.UUID) (entity.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.purchases[id]
	if !ok {
		return entity.Purchase{}, entity.ErrNotFound
	}

	return p, nil
}

func (r *Repository) Purchases(_ context.Context, payerID uuid.UUID) ([]entity.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var purchases []entity.Purchase

	for _, p := range r.purchases {
		if payerID != uuid.Nil && p.PayerID != payerID {
			continue
		}

		purchases = append(purchases, p)
	}

	sort.Slice(purchases, func(i, j int) bool {
		return purchases[i].CreatedAt.After(purchases[j].CreatedAt)
	})

	return purchases, nil
}

// UpdatePurchaseStatus mirrors the conditional SQL update: a missing row
// and a stale expected status are both ErrNotFound.
func (r *Repository) UpdatePurchaseStatus(
	_ context.Context,
	id uuid.UUID,
	from, to entity.PurchaseStatus,
	updatedAt time.Time,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.purchases[id]
	if !ok || p.Status != from {
		return entity.ErrNotFound
	}

	p.Status = to
	p.UpdatedAt = updatedAt
	r.purchases[id] = p

	return nil
}

func (r *Repository) CreateCartItem(_ context.Context, item entity.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cart = append(r.cart, item)

	return nil
}

func (r *Repository) CartItem(_ context.Context, id uuid.UUID) (entity.CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.cart {
		if item.ID == id {
			return item, nil
		}
	}

	return entity.CartItem{}, entity.ErrNotFound
}

func (r *Repository) CartItems(_ context.Context) ([]entity.CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.cart), nil
}

func (r *Repository) UpdateCartItemCredentials(_ context.Context, id uuid.UUID, c entity.Credentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, item := range r.cart {
		if item.ID == id {
			r.cart[i].Credentials = c
			return nil
		}
	}

	return entity.ErrNotFound
}

func (r *Repository) DeleteCartItem(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, item := range r.cart {
		if item.ID == id {
			r.cart = append(r.cart[:i], r.cart[i+1:]...)
			return nil
		}
	}

	return entity.ErrNotFound
}

func (r *Repository) ClearCart(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cart = nil

	return nil
}

func (r *Repository) DeleteCartItemsBefore(_ context.Context, t time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []entity.CartItem

	var deleted int64

	for _, item := range r.cart {
		if item.CreatedAt.Before(t) {
			deleted++
			continue
		}

		kept = append(kept, item)
	}

	r.cart = kept

	return deleted, nil
}
