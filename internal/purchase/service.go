// Package purchase drives the purchase lifecycle. The transient steps of
// the flow (plan selection, confirmation, payment) live inside a single
// checkout call; only active, pending_payment and cancelled statuses are
// durable. pending_payment moves to active through a manual
// reconciliation (MarkPaid), cancellation is terminal.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/liseren91/aistore-billing/internal/currency"
	"github.com/liseren91/aistore-billing/internal/entity"
	"github.com/liseren91/aistore-billing/internal/invoice"
	"github.com/liseren91/aistore-billing/internal/ledger"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=../mocks/producer.go -package=mocks github.com/liseren91/aistore-billing/internal/purchase Producer

type Repository interface {
	CreatePurchases(ctx context.Context, purchases []entity.Purchase) error
	Purchase(ctx context.Context, id uuid.UUID) (entity.Purchase, error)
	Purchases(ctx context.Context, payerID uuid.UUID) ([]entity.Purchase, error)
	// UpdatePurchaseStatus is conditional: the row is updated only while
	// its status still equals from, otherwise ErrNotFound is returned.
	UpdatePurchaseStatus(ctx context.Context, id uuid.UUID, from, to entity.PurchaseStatus, updatedAt time.Time) error
}

type Ledger interface {
	Payer(ctx context.Context, id uuid.UUID) (entity.Payer, error)
	DebitBatch(ctx context.Context, payerID uuid.UUID, debits []ledger.Debit) ([]entity.Transaction, decimal.Decimal, error)
	AttachServices(ctx context.Context, payerID uuid.UUID, serviceIDs []string) error
}

type Cart interface {
	Items(ctx context.Context) ([]entity.CartItem, error)
	Clear(ctx context.Context) error
}

type Producer interface {
	SendPurchaseEvent(ctx context.Context, e entity.PurchaseEvent)
}

type Service struct {
	repo     Repository
	ledger   Ledger
	cart     Cart
	producer Producer
	conv     *currency.Converter
}

func New(repo Repository, l Ledger, c Cart, producer Producer, conv *currency.Converter) *Service {
	return &Service{
		repo:     repo,
		ledger:   l,
		cart:     c,
		producer: producer,
		conv:     conv,
	}
}

// CheckoutResult is the outcome of a completed checkout: one purchase per
// cart item, plus the rendered invoice for deferred settlement.
type CheckoutResult struct {
	Purchases []entity.Purchase
	Invoice   *entity.InvoiceDocument
}

// Checkout converts the whole cart into purchases as one atomic intent
// sharing one payer and one payment method. Only the balance method
// debits the ledger; card and invoice settle externally. If the payer
// cannot afford the combined total, the whole batch is rejected and
// nothing is written.
func (s *Service) Checkout(ctx context.Context, payerID uuid.UUID, method entity.PaymentMethod) (CheckoutResult, error) {
	if payerID == uuid.Nil {
		return CheckoutResult{}, entity.ErrNoPayerSelected
	}

	err := method.Validate()
	if err != nil {
		return CheckoutResult{}, err
	}

	payer, err := s.ledger.Payer(ctx, payerID)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("get payer %s: %w", payerID, err)
	}

	items, err := s.cart.Items(ctx)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("get cart items: %w", err)
	}

	if len(items) == 0 {
		return CheckoutResult{}, fmt.Errorf("%w: cart is empty", entity.ErrInvalidArgument)
	}

	now := time.Now()

	// Prices are converted and frozen here; later catalog or rate
	// changes never touch these purchases.
	purchases := make([]entity.Purchase, 0, len(items))
	total := decimal.Decimal{}

	for _, item := range items {
		priceRub := s.conv.UsdToRub(item.PriceUSD)
		total = total.Add(priceRub)

		purchases = append(purchases, entity.Purchase{
			ID:          uuid.Must(uuid.NewV4()),
			PayerID:     payerID,
			ServiceID:   item.ServiceID,
			ServiceName: item.ServiceName,
			PlanName:    item.TierName,
			PriceRub:    priceRub,
			Cycle:       item.Cycle,
			Status:      entity.PurchaseStatusActive,
			Method:      method,
			Credentials: item.Credentials,
			NewAccount:  item.NewAccount,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	var doc *entity.InvoiceDocument

	switch method {
	case entity.PaymentMethodBalance:
		debits := make([]ledger.Debit, 0, len(purchases))

		for _, p := range purchases {
			debits = append(debits, ledger.Debit{
				Amount:      p.PriceRub,
				ServiceID:   p.ServiceID,
				ServiceName: p.ServiceName,
				Comment:     fmt.Sprintf("Оплата тарифа %q сервиса %q", p.PlanName, p.ServiceName),
			})
		}

		_, _, err = s.ledger.DebitBatch(ctx, payerID, debits)
		if err != nil {
			return CheckoutResult{}, fmt.Errorf("debit batch: %w", err)
		}

	case entity.PaymentMethodCard:
		// Settles externally; the ledger is not touched.

	case entity.PaymentMethodInvoice:
		doc, err = s.buildInvoice(payer, purchases, total, now)
		if err != nil {
			return CheckoutResult{}, err
		}
	}

	err = s.repo.CreatePurchases(ctx, purchases)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("create purchases: %w", err)
	}

	err = s.cart.Clear(ctx)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("clear cart: %w", err)
	}

	serviceIDs := make([]string, 0, len(purchases))
	for _, p := range purchases {
		serviceIDs = append(serviceIDs, p.ServiceID)
	}

	err = s.ledger.AttachServices(ctx, payerID, serviceIDs)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("attach services to payer: %w", err)
	}

	for _, p := range purchases {
		s.producer.SendPurchaseEvent(ctx, entity.PurchaseEvent{
			PurchaseID: p.ID,
			PayerID:    p.PayerID,
			ServiceID:  p.ServiceID,
			Status:     p.Status,
			AmountRub:  p.PriceRub,
			OccurredAt: now,
		})
	}

	slog.InfoContext(ctx, fmt.Sprintf("Оформлено %d покупок плательщика %s методом %q на сумму %s руб.",
		len(purchases), payerID, method, total))

	return CheckoutResult{
		Purchases: purchases,
		Invoice:   doc,
	}, nil
}

// buildInvoice renders the deferred-settlement invoice and stamps the
// purchases with pending_payment status and the document reference.
func (s *Service) buildInvoice(payer entity.Payer, purchases []entity.Purchase, total decimal.Decimal, now time.Time) (*entity.InvoiceDocument, error) {
	lines := make([]entity.InvoiceLine, 0, len(purchases))

	for _, p := range purchases {
		lines = append(lines, entity.InvoiceLine{
			ServiceName: p.ServiceName,
			PlanName:    p.PlanName,
			PriceRub:    p.PriceRub,
		})
	}

	number := now.Unix()

	doc, err := invoice.Generate(payer, lines, total, number, now)
	if err != nil {
		return nil, fmt.Errorf("generate invoice: %w", err)
	}

	for i := range purchases {
		purchases[i].Status = entity.PurchaseStatusPendingPayment
		purchases[i].InvoiceNumber = doc.Number
		purchases[i].InvoiceDocument = doc.Text
	}

	return &doc, nil
}

// Cancel moves an active or pending purchase to the terminal cancelled
// status. The original debit transaction is not reversed. The conditional
// status update loops on conflict, so a transition committed between the
// read and the update is observed instead of overwritten.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (entity.Purchase, error) {
	var (
		p   entity.Purchase
		now time.Time
	)

	for {
		var err error

		p, err = s.repo.Purchase(ctx, id)
		if err != nil {
			return entity.Purchase{}, fmt.Errorf("get purchase %s: %w", id, err)
		}

		if p.Status == entity.PurchaseStatusCancelled {
			return entity.Purchase{}, fmt.Errorf("%w: purchase %s is already cancelled", entity.ErrInvalidArgument, id)
		}

		now = time.Now()

		err = s.repo.UpdatePurchaseStatus(ctx, id, p.Status, entity.PurchaseStatusCancelled, now)
		if errors.Is(err, entity.ErrNotFound) {
			// a concurrent transition won, re-read and re-check
			continue
		}

		if err != nil {
			return entity.Purchase{}, fmt.Errorf("update purchase %s status: %w", id, err)
		}

		break
	}

	p.Status = entity.PurchaseStatusCancelled
	p.UpdatedAt = now

	s.producer.SendPurchaseEvent(ctx, entity.PurchaseEvent{
		PurchaseID: p.ID,
		PayerID:    p.PayerID,
		ServiceID:  p.ServiceID,
		Status:     p.Status,
		AmountRub:  p.PriceRub,
		OccurredAt: now,
	})

	slog.InfoContext(ctx, fmt.Sprintf("Покупка %s отменена", id))

	return p, nil
}

// MarkPaid is the manual invoice reconciliation: a pending purchase
// becomes active once proof of payment is accepted. Marking an already
// active purchase returns ErrAlreadyPaid, which callers treat as
// idempotent success.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID) (entity.Purchase, error) {
	var (
		p   entity.Purchase
		now time.Time
	)

	for {
		var err error

		p, err = s.repo.Purchase(ctx, id)
		if err != nil {
			return entity.Purchase{}, fmt.Errorf("get purchase %s: %w", id, err)
		}

		switch p.Status {
		case entity.PurchaseStatusActive:
			// the current record is returned so callers can treat the repeat as a no-op
			return p, fmt.Errorf("purchase %s: %w", id, entity.ErrAlreadyPaid)
		case entity.PurchaseStatusCancelled:
			return entity.Purchase{}, fmt.Errorf("%w: purchase %s is cancelled", entity.ErrInvalidArgument, id)
		case entity.PurchaseStatusPendingPayment:
		}

		now = time.Now()

		err = s.repo.UpdatePurchaseStatus(ctx, id, entity.PurchaseStatusPendingPayment, entity.PurchaseStatusActive, now)
		if errors.Is(err, entity.ErrNotFound) {
			// a concurrent transition won, re-read and re-check
			continue
		}

		if err != nil {
			return entity.Purchase{}, fmt.Errorf("update purchase %s status: %w", id, err)
		}

		break
	}

	p.Status = entity.PurchaseStatusActive
	p.UpdatedAt = now

	s.producer.SendPurchaseEvent(ctx, entity.PurchaseEvent{
		PurchaseID: p.ID,
		PayerID:    p.PayerID,
		ServiceID:  p.ServiceID,
		Status:     p.Status,
		AmountRub:  p.PriceRub,
		OccurredAt: now,
	})

	slog.InfoContext(ctx, fmt.Sprintf("Счёт по покупке %s оплачен", id))

	return p, nil
}

func (s *Service) Purchase(ctx context.Context, id uuid.UUID) (entity.Purchase, error) {
	p, err := s.repo.Purchase(ctx, id)
	if err != nil {
		return entity.Purchase{}, fmt.Errorf("get purchase %s: %w", id, err)
	}

	return p, nil
}

// Purchases lists purchases, optionally narrowed to one payer
// (uuid.Nil means all).
func (s *Service) Purchases(ctx context.Context, payerID uuid.UUID) ([]entity.Purchase, error) {
	return s.repo.Purchases(ctx, payerID)
}
