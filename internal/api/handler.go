package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/liseren91/aistore-billing/internal/entity"
	"github.com/liseren91/aistore-billing/internal/purchase"
	"github.com/liseren91/aistore-billing/pkg/logger"
)

type LedgerService interface {
	CreatePayer(ctx context.Context, p entity.Payer) (entity.Payer, error)
	Payer(ctx context.Context, id uuid.UUID) (entity.Payer, error)
	Payers(ctx context.Context) ([]entity.Payer, error)
	Deposit(ctx context.Context, payerID uuid.UUID, amount decimal.Decimal, method string) (entity.Transaction, decimal.Decimal, error)
	Withdraw(ctx context.Context, payerID uuid.UUID, amount decimal.Decimal, method string) (entity.Transaction, decimal.Decimal, error)
	Transactions(ctx context.Context, payerID uuid.UUID, filter entity.TransactionFilter) ([]entity.Transaction, int, error)
}

type CartService interface {
	AddItem(ctx context.Context, serviceID string, tierIndex int, cycle entity.BillingCycle, creds entity.Credentials, newAccount bool) (entity.CartItem, error)
	RemoveItem(ctx context.Context, id uuid.UUID) error
	Clear(ctx context.Context) error
	UpdateCredentials(ctx context.Context, id uuid.UUID, patch entity.CredentialsPatch) (entity.CartItem, error)
	Items(ctx context.Context) ([]entity.CartItem, error)
	TotalRub(ctx context.Context) (decimal.Decimal, error)
}

type PurchaseService interface {
	Checkout(ctx context.Context, payerID uuid.UUID, method entity.PaymentMethod) (purchase.CheckoutResult, error)
	Cancel(ctx context.Context, id uuid.UUID) (entity.Purchase, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (entity.Purchase, error)
	Purchase(ctx context.Context, id uuid.UUID) (entity.Purchase, error)
	Purchases(ctx context.Context, payerID uuid.UUID) ([]entity.Purchase, error)
}

type CatalogService interface {
	Service(ctx context.Context, id string) (entity.AiService, error)
	Services(ctx context.Context) ([]entity.AiService, error)
}

type Handler struct {
	ledger    LedgerService
	cart      CartService
	purchases PurchaseService
	catalog   CatalogService
}

func NewHandler(l LedgerService, c CartService, p PurchaseService, cat CatalogService) *Handler {
	return &Handler{
		ledger:    l,
		cart:      c,
		purchases: p,
		catalog:   cat,
	}
}

type PayerEntity struct {
	ID             string                 `json:"id"`
	Type           string                 `json:"type"`
	Name           string                 `json:"name,omitempty"`
	INN            string                 `json:"inn,omitempty"`
	KPP            string                 `json:"kpp,omitempty"`
	FirstName      string                 `json:"firstName,omitempty"`
	LastName       string                 `json:"lastName,omitempty"`
	DocumentNumber string                 `json:"documentNumber,omitempty"`
	Balance        string                 `json:"balance"`
	PaymentOptions []entity.PaymentOption `json:"paymentOptions"`
	ServiceIDs     []string               `json:"serviceIds"`
	CreatedAt      time.Time              `json:"createdAt"`
}

func payerToAPI(p entity.Payer) PayerEntity {
	return PayerEntity{
		ID:             p.ID.String(),
		Type:           p.Type.String(),
		Name:           p.Name,
		INN:            p.INN,
		KPP:            p.KPP,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		DocumentNumber: p.DocumentNumber,
		Balance:        p.Balance.String(),
		PaymentOptions: p.PaymentOptions,
		ServiceIDs:     p.ServiceIDs,
		CreatedAt:      p.CreatedAt,
	}
}

type TransactionEntity struct {
	ID          string    `json:"id"`
	PayerID     string    `json:"payerId"`
	Kind        string    `json:"kind"`
	Amount      string    `json:"amount"`
	Method      string    `json:"method"`
	Comment     string    `json:"comment"`
	ServiceID   string    `json:"serviceId,omitempty"`
	ServiceName string    `json:"serviceName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func transactionToAPI(t entity.Transaction) TransactionEntity {
	return TransactionEntity{
		ID:          t.ID.String(),
		PayerID:     t.PayerID.String(),
		Kind:        t.Kind.String(),
		Amount:      t.Amount.String(),
		Method:      t.Method,
		Comment:     t.Comment,
		ServiceID:   t.ServiceID,
		ServiceName: t.ServiceName,
		CreatedAt:   t.CreatedAt,
	}
}

type CreatePayerRequest struct {
	Type           string                 `json:"type"`
	Name           string                 `json:"name"`
	INN            string                 `json:"inn"`
	KPP            string                 `json:"kpp"`
	FirstName      string                 `json:"firstName"`
	LastName       string                 `json:"lastName"`
	DocumentNumber string                 `json:"documentNumber"`
	InitialBalance decimal.Decimal        `json:"initialBalance"`
	PaymentOptions []entity.PaymentOption `json:"paymentOptions"`
}

// CreatePayer creates a company or individual billing identity
// @Summary Create payer
// @Tags payers
// @Accept json
// @Produce json
// @Router /payers [post]
func (h *Handler) CreatePayer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreatePayerRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "Невалидный JSON")
		return
	}

	p := entity.Payer{
		Type:           entity.PayerType(req.Type),
		Name:           req.Name,
		INN:            req.INN,
		KPP:            req.KPP,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		DocumentNumber: req.DocumentNumber,
		Balance:        req.InitialBalance,
		PaymentOptions: req.PaymentOptions,
	}

	created, err := h.ledger.CreatePayer(ctx, p)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidArgument) {
			SendJSONErr(ctx, w, http.StatusUnprocessableEntity, err, "Не заполнены обязательные поля плательщика")
			return
		}

		SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Не удалось создать плательщика")

		return
	}

	SendJSON(ctx, w, http.StatusCreated, payerToAPI(created))
}

type PayersResponse struct {
	Payers []PayerEntity `json:"payers"`
}

func (h *Handler) Payers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payers, err := h.ledger.Payers(ctx)
	if err != nil {
		SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Не удалось получить список плательщиков")
		return
	}

	res := make([]PayerEntity, 0, len(payers))
	for _, p := range payers {
		res = append(res, payerToAPI(p))
	}

	SendJSON(ctx, w, http.StatusOK, PayersResponse{Payers: res})
}

func (h *Handler) Payer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payerID, err := uuid.FromString(chi.URLParam(r, "payer_id"))
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "'payer_id' должен быть UUID")
		return
	}

	p, err := h.ledger.Payer(ctx, payerID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			SendJSONErr(ctx, w, http.StatusNotFound, err, "Плательщик не найден")
		} else {
			SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Внутренняя ошибка")
		}

		return
	}

	SendJSON(ctx, w, http.StatusOK, payerToAPI(p))
}

type MoveFundsRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}

type MoveFundsResponse struct {
	Transaction TransactionEntity `json:"transaction"`
	Balance     string            `json:"balance"`
}

// Deposit tops up the payer balance
// @Summary Deposit funds
// @Tags payers
// @Accept json
// @Produce json
// @Router /payers/{payer_id}/deposits [post]
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.moveFunds(w, r, h.ledger.Deposit)
}

// Withdraw moves funds off the payer balance
// @Summary Withdraw funds
// @Tags payers
// @Accept json
// @Produce json
// @Router /payers/{payer_id}/withdrawals [post]
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.moveFunds(w, r, h.ledger.Withdraw)
}

func (h *Handler) moveFunds(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, payerID uuid.UUID, amount decimal.Decimal, method string) (entity.Transaction, decimal.Decimal, error),
) {
	ctx := r.Context()

	payerID, err := uuid.FromString(chi.URLParam(r, "payer_id"))
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "'payer_id' должен быть UUID")
		return
	}

	ctx = logger.WithPayerID(ctx, payerID)

	var req MoveFundsRequest

	err = json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "Невалидный JSON")
		return
	}

	tx, balance, err := op(ctx, payerID, req.Amount, req.Method)
	if err != nil {
		var insufficient *entity.InsufficientFundsError

		switch {
		case errors.As(err, &insufficient):
			SendJSON(ctx, w, http.StatusPaymentRequired, InsufficientFundsResponse{
				Message:   "Недостаточно средств на балансе",
				Shortfall: insufficient.Shortfall.String(),
			})
		case errors.Is(err, entity.ErrNotFound):
			SendJSONErr(ctx, w, http.StatusNotFound, err, "Плательщик не найден")
		case errors.Is(err, entity.ErrInvalidArgument):
			SendJSONErr(ctx, w, http.StatusUnprocessableEntity, err, "Сумма должна быть положительной")
		default:
			SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Не удалось выполнить операцию")
		}

		return
	}

	SendJSON(ctx, w, http.StatusCreated, MoveFundsResponse{
		Transaction: transactionToAPI(tx),
		Balance:     balance.String(),
	})
}

// InsufficientFundsResponse carries the exact top-up amount needed to
// retry the rejected operation.
type InsufficientFundsResponse struct {
	Message   string `json:"message"`
	Shortfall string `json:"shortfall"`
}

type TransactionsResponse struct {
	Transactions []TransactionEntity `json:"transactions"`
	TotalCount   int                 `json:"totalCount"`
}

// Transactions returns the payer transaction history with optional filters
// @Summary Получение истории транзакций плательщика
// @Tags payers
// @Produce json
// @Router /payers/{payer_id}/transactions [get]
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payerID, err := uuid.FromString(chi.URLParam(r, "payer_id"))
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "'payer_id' должен быть UUID")
		return
	}

	ctx = logger.WithPayerID(ctx, payerID)

	filter := parseTransactionFilter(r.URL.Query())

	transactions, totalCount, err := h.ledger.Transactions(ctx, payerID, filter)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			SendJSONErr(ctx, w, http.StatusNotFound, err, "Плательщик не найден")
			return
		}

		SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Не удалось получить историю транзакций")

		return
	}

	res := make([]TransactionEntity, 0, len(transactions))
	for _, t := range transactions {
		res = append(res, transactionToAPI(t))
	}

	SendJSON(ctx, w, http.StatusOK, TransactionsResponse{Transactions: res, TotalCount: totalCount})
}

func parseTransactionFilter(url url.Values) entity.TransactionFilter {
	const (
		defaultLimit uint64 = 10
		maxLimit     uint64 = 100
		defaultPage  uint64 = 1
	)

	kind := url.Get("kind")
	amount := url.Get("amount")
	createdAt := url.Get("createdAt")
	qLimit := url.Get("limit")
	qPage := url.Get("page")
	sortBy := entity.TransactionSortCol(url.Get("sortBy"))
	orderBy := entity.OrderByCol(url.Get("orderBy"))

	limit, err := strconv.ParseUint(qLimit, 10, 64)
	if err != nil {
		limit = defaultLimit
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	page, err := strconv.ParseUint(qPage, 10, 64)
	if err != nil {
		page = defaultPage
	}

	if !sortBy.IsValid() {
		sortBy = entity.SortByCreatedAt
	}

	if !orderBy.IsValid() {
		orderBy = entity.DESC
	}

	filter := entity.TransactionFilter{
		Page:    page,
		Limit:   limit,
		SortBy:  sortBy,
		OrderBy: orderBy,
	}

	if k := entity.TransactionKind(kind); k.Validate() == nil {
		filter.Kind = &k
	}

	if amount != "" {
		filter.Amount = &amount
	}

	if createdAt != "" {
		filter.CreatedAt = &createdAt
	}

	return filter
}

// HealthHandler - returns service health status.
// @Summary Health check
// @Tags health
// @Produce text/plain
// @Router /health [get]
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	_, err := w.Write([]byte("Сервис работает!\n"))
	if err != nil {
		SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Сервис не работает!")
		return
	}
}
