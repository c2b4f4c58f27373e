// Package invoice renders plain-text payment invoices for company payers
// electing deferred settlement. Rendering is pure: the same inputs always
// produce the same document, and nothing is persisted here.
package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liseren91/aistore-billing/internal/entity"
)

const dateLayout = "02.01.2006"

// Generate renders an invoice for the given payer and line items.
// Only company payers can settle by invoice.
func Generate(payer entity.Payer, lines []entity.InvoiceLine, total decimal.Decimal, number int64, issuedAt time.Time) (entity.InvoiceDocument, error) {
	if payer.Type != entity.PayerTypeCompany {
		return entity.InvoiceDocument{}, fmt.Errorf("%w: payer %s is not a company", entity.ErrInvoiceNotApplicable, payer.ID)
	}

	if len(lines) == 0 {
		return entity.InvoiceDocument{}, fmt.Errorf("%w: invoice has no line items", entity.ErrInvalidArgument)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Счёт на оплату № %d от %s\n\n", number, issuedAt.Format(dateLayout))
	fmt.Fprintf(&b, "Плательщик: %s\n", payer.Name)
	fmt.Fprintf(&b, "ИНН %s, КПП %s\n\n", payer.INN, payer.KPP)

	b.WriteString("№  Услуга / Тариф                                    Сумма, руб.\n")

	for i, line := range lines {
		item := fmt.Sprintf("%s — %s", line.ServiceName, line.PlanName)
		fmt.Fprintf(&b, "%-2d %-50s %s\n", i+1, item, line.PriceRub.StringFixed(2))
	}

	fmt.Fprintf(&b, "\nИтого к оплате: %s руб.\n", total.StringFixed(2))
	b.WriteString("Оплата по настоящему счёту означает согласие с условиями предоставления услуг.\n")

	return entity.InvoiceDocument{
		Number:    number,
		IssuedAt:  issuedAt,
		PayerName: payer.Name,
		INN:       payer.INN,
		KPP:       payer.KPP,
		Lines:     lines,
		TotalRub:  total,
		Text:      b.String(),
	}, nil
}
