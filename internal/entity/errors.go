package entity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrNoPayerSelected      = errors.New("no payer selected")
	ErrInvoiceNotApplicable = errors.New("invoice not applicable")
	ErrAlreadyPaid          = errors.New("already paid")
)

// InsufficientFundsError carries the exact amount missing from the payer
// balance, so the caller can prompt a top-up of that amount and retry.
type InsufficientFundsError struct {
	Shortfall decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: short %s RUB", e.Shortfall)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}
