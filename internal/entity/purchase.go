package entity

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

type PurchaseStatus string

const (
	PurchaseStatusActive         PurchaseStatus = "active"
	PurchaseStatusPendingPayment PurchaseStatus = "pending_payment"
	PurchaseStatusCancelled      PurchaseStatus = "cancelled"
)

func (s PurchaseStatus) String() string {
	return string(s)
}

type PaymentMethod string

const (
	PaymentMethodBalance PaymentMethod = "balance"
	PaymentMethodCard    PaymentMethod = "card"
	PaymentMethodInvoice PaymentMethod = "invoice"
)

func (p PaymentMethod) String() string {
	return string(p)
}

func (p PaymentMethod) Validate() error {
	switch p {
	case PaymentMethodBalance, PaymentMethodCard, PaymentMethodInvoice:
		return nil
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidArgument, p)
	}
}

type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

func (b BillingCycle) String() string {
	return string(b)
}

func (b BillingCycle) Validate() error {
	switch b {
	case BillingCycleMonthly, BillingCycleYearly:
		return nil
	default:
		return fmt.Errorf("%w: unknown billing cycle %q", ErrInvalidArgument, b)
	}
}

// Credentials are optional service-access details attached to a cart item
// and carried over to the purchase at checkout.
type Credentials struct {
	Login      string `json:"login"`
	Password   string `json:"password"`
	PaymentURL string `json:"paymentUrl"`
}

// Purchase is the durable record of an ordered service plan.
// PriceRub is snapshotted at checkout and never recomputed, so later
// catalog or exchange-rate changes do not affect existing purchases.
type Purchase struct {
	ID              uuid.UUID
	PayerID         uuid.UUID
	ServiceID       string
	ServiceName     string
	PlanName        string
	PriceRub        decimal.Decimal
	Cycle           BillingCycle
	Status          PurchaseStatus
	Method          PaymentMethod
	InvoiceNumber   int64  // set for invoice-settled purchases
	InvoiceDocument string // rendered invoice text, set together with InvoiceNumber
	Credentials     Credentials
	NewAccount      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PurchaseEvent is published to the broker whenever a purchase changes state.
type PurchaseEvent struct {
	PurchaseID uuid.UUID       `json:"purchaseId"`
	PayerID    uuid.UUID       `json:"payerId"`
	ServiceID  string          `json:"serviceId"`
	Status     PurchaseStatus  `json:"status"`
	AmountRub  decimal.Decimal `json:"amountRub"`
	OccurredAt time.Time       `json:"occurredAt"`
}
