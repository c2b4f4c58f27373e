package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceLine is a single position of an invoice document.
type InvoiceLine struct {
	ServiceName string
	PlanName    string
	PriceRub    decimal.Decimal
}

// InvoiceDocument is a rendered payment invoice for a company payer
// electing deferred settlement. The document itself is plain text;
// storing and delivering it is the caller's concern.
type InvoiceDocument struct {
	Number    int64
	IssuedAt  time.Time
	PayerName string
	INN       string
	KPP       string
	Lines     []InvoiceLine
	TotalRub  decimal.Decimal
	Text      string
}
