package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/liseren91/aistore-billing/internal/entity"
)

type CartItemEntity struct {
	ID           string             `json:"id"`
	ServiceID    string             `json:"serviceId"`
	ServiceName  string             `json:"serviceName"`
	ServiceColor string             `json:"serviceColor,omitempty"`
	TierIndex    int                `json:"tierIndex"`
	TierName     string             `json:"tierName"`
	PriceUSD     string             `json:"priceUsd"`
	Cycle        string             `json:"cycle"`
	Credentials  entity.Credentials `json:"credentials"`
	NewAccount   bool               `json:"newAccount"`
	CreatedAt    time.Time          `json:"createdAt"`
}

func cartItemToAPI(item entity.CartItem) CartItemEntity {
	return CartItemEntity{
		ID:           item.ID.String(),
		ServiceID:    item.ServiceID,
		ServiceName:  item.ServiceName,
		ServiceColor: item.ServiceColor,
		TierIndex:    item.TierIndex,
		TierName:     item.TierName,
		PriceUSD:     item.PriceUSD.String(),
		Cycle:        item.Cycle.String(),
		Credentials:  item.Credentials,
		NewAccount:   item.NewAccount,
		CreatedAt:    item.CreatedAt,
	}
}

type CartResponse struct {
	Items    []CartItemEntity `json:"items"`
	TotalRub string           `json:"totalRub"`
}

// Cart returns the cart contents together with the ruble total
// @Summary Get cart
// @Tags cart
// @Produce json
// @Router /cart [get]
func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.cart.Items(ctx)
	if err != nil {
		SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Не удалось получить корзину")
		return
	}

	total, err := h.cart.TotalRub(ctx)
	if err != nil {
		SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Не удалось рассчитать сумму корзины")
		return
	}

	res := make([]CartItemEntity, 0, len(items))
	for _, item := range items {
		res = append(res, cartItemToAPI(item))
	}

	SendJSON(ctx, w, http.StatusOK, CartResponse{Items: res, TotalRub: total.String()})
}

type AddCartItemRequest struct {
	ServiceID   string             `json:"serviceId"`
	TierIndex   int                `json:"tierIndex"`
	Cycle       string             `json:"cycle"`
	Credentials entity.Credentials `json:"credentials"`
	NewAccount  bool               `json:"newAccount"`
}

// AddCartItem adds a service plan to the cart
// @Summary Add cart item
// @Tags cart
// @Accept json
// @Produce json
// @Router /cart/items [post]
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AddCartItemRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "Невалидный JSON")
		return
	}

	item, err := h.cart.AddItem(ctx, req.ServiceID, req.TierIndex, entity.BillingCycle(req.Cycle), req.Credentials, req.NewAccount)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrNotFound):
			SendJSONErr(ctx, w, http.StatusNotFound, err, "Сервис не найден в каталоге")
		case errors.Is(err, entity.ErrInvalidArgument):
			SendJSONErr(ctx, w, http.StatusUnprocessableEntity, err, "Тариф недоступен для покупки")
		default:
			SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Не удалось добавить позицию в корзину")
		}

		return
	}

	SendJSON(ctx, w, http.StatusCreated, cartItemToAPI(item))
}

// UpdateCartItemCredentials patches access credentials on a cart item
// @Summary Update cart item credentials
// @Tags cart
// @Accept json
// @Produce json
// @Router /cart/items/{item_id}/credentials [patch]
func (h *Handler) UpdateCartItemCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := uuid.FromString(chi.URLParam(r, "item_id"))
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "'item_id' должен быть UUID")
		return
	}

	var patch entity.CredentialsPatch

	err = json.NewDecoder(r.Body).Decode(&patch)
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "Невалидный JSON")
		return
	}

	item, err := h.cart.UpdateCredentials(ctx, itemID, patch)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			SendJSONErr(ctx, w, http.StatusNotFound, err, "Позиция корзины не найдена")
		} else {
			SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Не удалось обновить данные доступа")
		}

		return
	}

	SendJSON(ctx, w, http.StatusOK, cartItemToAPI(item))
}

// RemoveCartItem removes a single item from the cart
// @Summary Remove cart item
// @Tags cart
// @Router /cart/items/{item_id} [delete]
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := uuid.FromString(chi.URLParam(r, "item_id"))
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "'item_id' должен быть UUID")
		return
	}

	err = h.cart.RemoveItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			SendJSONErr(ctx, w, http.StatusNotFound, err, "Позиция корзины не найдена")
		} else {
			SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Не удалось удалить позицию из корзины")
		}

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearCart drops every item from the cart
// @Summary Clear cart
// @Tags cart
// @Router /cart [delete]
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.cart.Clear(ctx)
	if err != nil {
		SendJSONErr(ctx, w, http.StatusInternalServerError, err, "Не удалось очистить корзину")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
