package entity

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// CartItem is an ephemeral staging record for a planned purchase.
// It is not linked to a payer until checkout, at which point it is
// consumed into exactly one Purchase and discarded.
type CartItem struct {
	ID           uuid.UUID
	ServiceID    string
	ServiceName  string
	ServiceColor string
	TierIndex    int
	TierName     string
	PriceUSD     decimal.Decimal // tier list price at the time the item was added
	Cycle        BillingCycle
	Credentials  Credentials
	NewAccount   bool // create a new service account instead of using credentials
	CreatedAt    time.Time
}

// CredentialsPatch updates individual credential fields; nil means "keep".
type CredentialsPatch struct {
	Login      *string `json:"login"`
	Password   *string `json:"password"`
	PaymentURL *string `json:"paymentUrl"`
}

func (p CredentialsPatch) Apply(c Credentials) Credentials {
	if p.Login != nil {
		c.Login = *p.Login
	}

	if p.Password != nil {
		c.Password = *p.Password
	}

	if p.PaymentURL != nil {
		c.PaymentURL = *p.PaymentURL
	}

	return c
}
