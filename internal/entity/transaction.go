package entity

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	TransactionKindDeposit    TransactionKind = "deposit"
	TransactionKindWithdrawal TransactionKind = "withdrawal"
	TransactionKindPurchase   TransactionKind = "purchase"
)

func (k TransactionKind) String() string {
	return string(k)
}

func (k TransactionKind) Validate() error {
	switch k {
	case TransactionKindDeposit, TransactionKindWithdrawal, TransactionKindPurchase:
		return nil
	default:
		return fmt.Errorf("%w: unknown transaction kind %q", ErrInvalidArgument, k)
	}
}

// Transaction is an immutable ledger entry. Amount is always positive,
// direction is carried by Kind. Entries are append-only: once written
// they are never updated or deleted, so the payer balance stays auditable
// by replaying the log.
type Transaction struct {
	ID          uuid.UUID
	PayerID     uuid.UUID
	Kind        TransactionKind
	Amount      decimal.Decimal
	Method      string // payment method label as shown to the user
	Comment     string
	ServiceID   string // set for purchase debits
	ServiceName string
	CreatedAt   time.Time
}

type TransactionFilter struct {
	Kind      *TransactionKind
	Amount    *string
	CreatedAt *string
	Page      uint64
	Limit     uint64
	SortBy    TransactionSortCol
	OrderBy   OrderByCol
}

type TransactionSortCol string

func (t TransactionSortCol) String() string {
	return string(t)
}

const (
	SortByID        TransactionSortCol = "id"
	SortByAmount    TransactionSortCol = "amount"
	SortByCreatedAt TransactionSortCol = "created_at"
)

func (t TransactionSortCol) IsValid() bool {
	switch t {
	case SortByID, SortByAmount, SortByCreatedAt:
		return true
	}

	return false
}

type OrderByCol string

func (o OrderByCol) String() string {
	return string(o)
}

const (
	DESC OrderByCol = "desc"
	ASC  OrderByCol = "asc"
)

func (o OrderByCol) IsValid() bool {
	switch o {
	case DESC, ASC:
		return true
	}

	return false
}
