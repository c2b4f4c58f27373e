package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/liseren91/aistore-billing/internal/entity"
	"github.com/liseren91/aistore-billing/pkg/logger"
)

type PurchaseEntity struct {
	ID              string             `json:"id"`
	PayerID         string             `json:"payerId"`
	ServiceID       string             `json:"serviceId"`
	ServiceName     string             `json:"serviceName"`
	PlanName        string             `json:"planName"`
	PriceRub        string             `json:"priceRub"`
	Cycle           string             `json:"cycle"`
	Status          string             `json:"status"`
	Method          string             `json:"method"`
	InvoiceNumber   int64              `json:"invoiceNumber,omitempty"`
	Credentials     entity.Credentials `json:"credentials"`
	NewAccount      bool               `json:"newAccount"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func purchaseToAPI(p entity.Purchase) PurchaseEntity {
	return PurchaseEntity{
		ID:            p.ID.String(),
		PayerID:       p.PayerID.String(),
		ServiceID:     p.ServiceID,
		ServiceName:   p.ServiceName,
		PlanName:      p.PlanName,
		PriceRub:      p.PriceRub.String(),
		Cycle:         p.Cycle.String(),
		Status:        p.Status.String(),
		Method:        p.Method.String(),
		InvoiceNumber: p.InvoiceNumber,
		Credentials:   p.Credentials,
		NewAccount:    p.NewAccount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type CheckoutRequest struct {
	PayerID string `json:"payerId"`
	Method  string `json:"method"`
}

type InvoiceEntity struct {
	Number   int64     `json:"number"`
	IssuedAt time.Time `json:"issuedAt"`
	TotalRub string    `json:"totalRub"`
	Text     string    `json:"text"`
}

type CheckoutResponse struct {
	Purchases []PurchaseEntity `json:"purchases"`
	Invoice   *InvoiceEntity   `json:"invoice,omitempty"`
}

// Checkout converts the cart into purchases for the selected payer
// @Summary Checkout cart
// @Tags purchases
// @Accept json
// @Produce json
// @Router /checkout [post]
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CheckoutRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "Невалидный JSON")
		return
	}

	// an absent payerId stays uuid.Nil and is rejected by the service
	payerID, _ := uuid.FromString(req.PayerID)

	if payerID != uuid.Nil {
		ctx = logger.WithPayerID(ctx, payerID)
	}

	result, err := h.purchases.Checkout(ctx, payerID, entity.PaymentMethod(req.Method))
	if err != nil {
		var insufficient *entity.InsufficientFundsError

		switch {
		case errors.As(err, &insufficient):
			SendJSON(ctx, w, http.StatusPaymentRequired, InsufficientFundsResponse{
				Message:   "Недостаточно средств на балансе",
				Shortfall: insufficient.Shortfall.String(),
			})
		case errors.Is(err, entity.ErrNoPayerSelected):
			SendJSONErr(ctx, w, http.StatusBadRequest, err, "Плательщик не выбран")
		case errors.Is(err, entity.ErrInvoiceNotApplicable):
			SendJSONErr(ctx, w, http.StatusBadRequest, err, "Оплата по счёту доступна только юридическим лицам")
		case errors.Is(err, entity.ErrNotFound):
			SendJSONErr(ctx, w, http.StatusNotFound, err, "Плательщик не найден")
		case errors.Is(err, entity.ErrInvalidArgument):
			SendJSONErr(ctx, w, http.StatusUnprocessableEntity, err, "Оформление заказа невозможно")
		default:
			SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Не удалось оформить заказ")
		}

		return
	}

	res := CheckoutResponse{Purchases: make([]PurchaseEntity, 0, len(result.Purchases))}
	for _, p := range result.Purchases {
		res.Purchases = append(res.Purchases, purchaseToAPI(p))
	}

	if result.Invoice != nil {
		res.Invoice = &InvoiceEntity{
			Number:   result.Invoice.Number,
			IssuedAt: result.Invoice.IssuedAt,
			TotalRub: result.Invoice.TotalRub.String(),
			Text:     result.Invoice.Text,
		}
	}

	SendJSON(ctx, w, http.StatusCreated, res)
}

type PurchasesResponse struct {
	Purchases []PurchaseEntity `json:"purchases"`
}

// Purchases lists purchases, optionally narrowed to one payer
// @Summary List purchases
// @Tags purchases
// @Produce json
// @Router /purchases [get]
func (h *Handler) Purchases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payerID uuid.UUID

	if q := r.URL.Query().Get("payerId"); q != "" {
		id, err := uuid.FromString(q)
		if err != nil {
			SendJSONErr(ctx, w, http.StatusBadRequest, err, "'payerId' должен быть UUID")
			return
		}

		payerID = id
	}

	purchases, err := h.purchases.Purchases(ctx, payerID)
	if err != nil {
		SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Не удалось получить список покупок")
		return
	}

	res := make([]PurchaseEntity, 0, len(purchases))
	for _, p := range purchases {
		res = append(res, purchaseToAPI(p))
	}

	SendJSON(ctx, w, http.StatusOK, PurchasesResponse{Purchases: res})
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	purchaseID, err := uuid.FromString(chi.URLParam(r, "purchase_id"))
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "'purchase_id' должен быть UUID")
		return
	}

	p, err := h.purchases.Purchase(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			SendJSONErr(ctx, w, http.StatusNotFound, err, "Покупка не найдена")
		} else {
			SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Внутренняя ошибка")
		}

		return
	}

	SendJSON(ctx, w, http.StatusOK, purchaseToAPI(p))
}

// PurchaseInvoice returns the rendered invoice document of a purchase
// @Summary Get purchase invoice
// @Tags purchases
// @Produce text/plain
// @Router /purchases/{purchase_id}/invoice [get]
func (h *Handler) PurchaseInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	purchaseID, err := uuid.FromString(chi.URLParam(r, "purchase_id"))
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "'purchase_id' должен быть UUID")
		return
	}

	p, err := h.purchases.Purchase(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			SendJSONErr(ctx, w, http.StatusNotFound, err, "Покупка не найдена")
		} else {
			SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Внутренняя ошибка")
		}

		return
	}

	if p.InvoiceDocument == "" {
		SendJSONErr(ctx, w, http.StatusNotFound, entity.ErrNotFound, "Счёт по данной покупке не выставлялся")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(p.InvoiceDocument))
}

// CancelPurchase moves a purchase into the cancelled state
// @Summary Cancel purchase
// @Tags purchases
// @Produce json
// @Router /purchases/{purchase_id}/cancel [post]
func (h *Handler) CancelPurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	purchaseID, err := uuid.FromString(chi.URLParam(r, "purchase_id"))
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "'purchase_id' должен быть UUID")
		return
	}

	p, err := h.purchases.Cancel(ctx, purchaseID)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrNotFound):
			SendJSONErr(ctx, w, http.StatusNotFound, err, "Покупка не найдена")
		case errors.Is(err, entity.ErrInvalidArgument):
			SendJSONErr(ctx, w, http.StatusUnprocessableEntity, err, "Покупка уже отменена")
		default:
			SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Не удалось отменить покупку")
		}

		return
	}

	SendJSON(ctx, w, http.StatusOK, purchaseToAPI(p))
}

// MarkPurchasePaid confirms settlement of an invoice purchase.
// Repeated confirmations of an already active purchase are accepted.
// @Summary Mark purchase paid
// @Tags internal
// @Produce json
// @Router /internal/purchases/{purchase_id}/paid [post]
func (h *Handler) MarkPurchasePaid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	purchaseID, err := uuid.FromString(chi.URLParam(r, "purchase_id"))
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "'purchase_id' должен быть UUID")
		return
	}

	p, err := h.purchases.MarkPaid(ctx, purchaseID)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrAlreadyPaid):
			SendJSON(ctx, w, http.StatusOK, purchaseToAPI(p))
		case errors.Is(err, entity.ErrNotFound):
			SendJSONErr(ctx, w, http.StatusNotFound, err, "Покупка не найдена")
		case errors.Is(err, entity.ErrInvalidArgument):
			SendJSONErr(ctx, w, http.StatusUnprocessableEntity, err, "Покупка отменена и не может быть оплачена")
		default:
			SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Не удалось подтвердить оплату")
		}

		return
	}

	SendJSON(ctx, w, http.StatusOK, purchaseToAPI(p))
}

type CatalogServicesResponse struct {
	Services []entity.AiService `json:"services"`
}

func (h *Handler) CatalogServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	services, err := h.catalog.Services(ctx)
	if err != nil {
		SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Не удалось получить каталог сервисов")
		return
	}

	SendJSON(ctx, w, http.StatusOK, CatalogServicesResponse{Services: services})
}

func (h *Handler) CatalogService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	service, err := h.catalog.Service(ctx, chi.URLParam(r, "service_id"))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			SendJSONErr(ctx, w, http.StatusNotFound, err, "Сервис не найден")
		} else {
			SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Внутренняя ошибка")
		}

		return
	}

	SendJSON(ctx, w, http.StatusOK, service)
}
