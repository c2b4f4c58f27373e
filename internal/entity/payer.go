package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

type PayerType string

const (
	PayerTypeCompany    PayerType = "company"
	PayerTypeIndividual PayerType = "individual"
)

func (p PayerType) String() string {
	return string(p)
}

func (p PayerType) IsValid() bool {
	switch p {
	case PayerTypeCompany, PayerTypeIndividual:
		return true
	}

	return false
}

// PaymentOption is a named payment-method descriptor attached to a payer.
type PaymentOption struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	IsDefault   bool   `json:"isDefault"`
}

// Payer is a billing identity holding the authoritative balance.
// Company payers carry legal requisites (name, INN, KPP), individual
// payers carry a personal name and an optional document number.
type Payer struct {
	ID             uuid.UUID
	Type           PayerType
	Name           string // company legal name
	INN            string
	KPP            string
	FirstName      string
	LastName       string
	DocumentNumber string
	Balance        decimal.Decimal
	PaymentOptions []PaymentOption
	ServiceIDs     []string // denormalized convenience, not authoritative
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks required identity fields for the payer variant.
func (p Payer) Validate() error {
	switch p.Type {
	case PayerTypeCompany:
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: company name is required", ErrInvalidArgument)
		}
	case PayerTypeIndividual:
		if strings.TrimSpace(p.LastName) == "" {
			return fmt.Errorf("%w: last name is required", ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: unknown payer type %q", ErrInvalidArgument, p.Type)
	}

	if p.Balance.IsNegative() {
		return fmt.Errorf("%w: negative balance %s", ErrInvalidArgument, p.Balance)
	}

	return nil
}

func (p Payer) DisplayName() string {
	if p.Type == PayerTypeCompany {
		return p.Name
	}

	return strings.TrimSpace(p.LastName + " " + p.FirstName)
}
