package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/liseren91/aistore-billing/internal/api"
	"github.com/liseren91/aistore-billing/internal/cart"
	"github.com/liseren91/aistore-billing/internal/clients/catalog"
	"github.com/liseren91/aistore-billing/internal/currency"
	"github.com/liseren91/aistore-billing/internal/entity"
	"github.com/liseren91/aistore-billing/internal/ledger"
	"github.com/liseren91/aistore-billing/internal/purchase"
	"github.com/liseren91/aistore-billing/internal/repository/inmem"
	"github.com/liseren91/aistore-billing/pkg/broker"
)

func newCatalogStub(t *testing.T) *httptest.Server {
	t.Helper()

	services := []entity.AiService{
		{
			ID:   "chatgpt",
			Name: "ChatGPT",
			Tiers: []entity.PricingTier{
				{Name: "Plus", PriceLabel: "$20/мес"},
				{Name: "Enterprise", PriceLabel: "Custom"},
			},
		},
		{
			ID:   "midjourney",
			Name: "Midjourney",
			Tiers: []entity.PricingTier{
				{Name: "Basic", PriceLabel: "$10/мес"},
			},
		},
	}

	r := chi.NewRouter()

	r.Get("/api/services", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(services)
	})

	r.Get("/api/services/{service_id}", func(w http.ResponseWriter, req *http.Request) {
		for _, svc := range services {
			if svc.ID == chi.URLParam(req, "service_id") {
				_ = json.NewEncoder(w).Encode(svc)
				return
			}
		}

		w.WriteHeader(http.StatusNotFound)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return srv
}

func newServer(t *testing.T, apiKeyEnabled bool) *httptest.Server {
	t.Helper()

	conv, err := currency.NewConverter(decimal.NewFromInt(95), decimal.NewFromInt(7))
	require.NoError(t, err)

	repo := inmem.New()
	catalogClient := catalog.NewClient(newCatalogStub(t).URL)

	ledgerService := ledger.New(repo)
	cartService := cart.New(repo, catalogClient, conv)
	purchaseService := purchase.New(repo, ledgerService, cartService, broker.NopProducer{}, conv)

	handler := api.NewHandler(ledgerService, cartService, purchaseService, catalogClient)
	mw := api.NewMiddleware(apiKeyEnabled, "secret")

	srv := httptest.NewServer(api.NewRouter(handler, mw))
	t.Cleanup(srv.Close)

	return srv
}

func do(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func createPayer(t *testing.T, baseURL string, balance int64) string {
	t.Helper()

	resp, raw := do(t, http.MethodPost, baseURL+"/api/payers", map[string]any{
		"type":           "company",
		"name":           "ООО Ромашка",
		"inn":            "7707083893",
		"kpp":            "770701001",
		"initialBalance": balance,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var payer api.PayerEntity

	require.NoError(t, json.Unmarshal(raw, &payer))

	return payer.ID
}

func addCartItem(t *testing.T, baseURL, serviceID string, tierIndex int) {
	t.Helper()

	resp, _ := do(t, http.MethodPost, baseURL+"/api/cart/items", map[string]any{
		"serviceId": serviceID,
		"tierIndex": tierIndex,
		"cycle":     "monthly",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestHandler_PayerFunds(t *testing.T) {
	t.Parallel()

	srv := newServer(t, false)
	payerID := createPayer(t, srv.URL, 150000)

	resp, raw := do(t, http.MethodPost, fmt.Sprintf("%s/api/payers/%s/withdrawals", srv.URL, payerID), map[string]any{
		"amount": 5000,
		"method": "card",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var moved api.MoveFundsResponse

	require.NoError(t, json.Unmarshal(raw, &moved))
	require.Equal(t, "145000", moved.Balance)
	require.Equal(t, "withdrawal", moved.Transaction.Kind)

	resp, raw = do(t, http.MethodGet, fmt.Sprintf("%s/api/payers/%s/transactions", srv.URL, payerID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history api.TransactionsResponse

	require.NoError(t, json.Unmarshal(raw, &history))
	require.Equal(t, 1, history.TotalCount)
}

func TestHandler_Withdraw_InsufficientFunds(t *testing.T) {
	t.Parallel()

	srv := newServer(t, false)
	payerID := createPayer(t, srv.URL, 1200)

	resp, raw := do(t, http.MethodPost, fmt.Sprintf("%s/api/payers/%s/withdrawals", srv.URL, payerID), map[string]any{
		"amount": 2000,
		"method": "card",
	})
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	var rejection api.InsufficientFundsResponse

	require.NoError(t, json.Unmarshal(raw, &rejection))
	require.Equal(t, "800", rejection.Shortfall)
}

func TestHandler_CheckoutBalance(t *testing.T) {
	t.Parallel()

	srv := newServer(t, false)
	payerID := createPayer(t, srv.URL, 150000)

	addCartItem(t, srv.URL, "chatgpt", 0)
	addCartItem(t, srv.URL, "midjourney", 0)

	resp, raw := do(t, http.MethodGet, srv.URL+"/api/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cartRes api.CartResponse

	require.NoError(t, json.Unmarshal(raw, &cartRes))
	require.Len(t, cartRes.Items, 2)
	// $20 + $10 at rate 95 plus 7% commission
	require.Equal(t, "3050", cartRes.TotalRub)

	resp, raw = do(t, http.MethodPost, srv.URL+"/api/checkout", map[string]any{
		"payerId": payerID,
		"method":  "balance",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var checkout api.CheckoutResponse

	require.NoError(t, json.Unmarshal(raw, &checkout))
	require.Len(t, checkout.Purchases, 2)
	require.Nil(t, checkout.Invoice)

	for _, p := range checkout.Purchases {
		require.Equal(t, "active", p.Status)
	}

	resp, raw = do(t, http.MethodGet, fmt.Sprintf("%s/api/payers/%s", srv.URL, payerID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payer api.PayerEntity

	require.NoError(t, json.Unmarshal(raw, &payer))
	require.Equal(t, "146950", payer.Balance)
	require.ElementsMatch(t, []string{"chatgpt", "midjourney"}, payer.ServiceIDs)

	// the cart is consumed by checkout
	resp, raw = do(t, http.MethodGet, srv.URL+"/api/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, json.Unmarshal(raw, &cartRes))
	require.Empty(t, cartRes.Items)
}

func TestHandler_CheckoutInvoiceAndMarkPaid(t *testing.T) {
	t.Parallel()

	srv := newServer(t, false)
	payerID := createPayer(t, srv.URL, 0)

	addCartItem(t, srv.URL, "chatgpt", 0)

	resp, raw := do(t, http.MethodPost, srv.URL+"/api/checkout", map[string]any{
		"payerId": payerID,
		"method":  "invoice",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var checkout api.CheckoutResponse

	require.NoError(t, json.Unmarshal(raw, &checkout))
	require.Len(t, checkout.Purchases, 1)
	require.NotNil(t, checkout.Invoice)
	require.Equal(t, "pending_payment", checkout.Purchases[0].Status)

	purchaseID := checkout.Purchases[0].ID

	resp, raw = do(t, http.MethodGet, fmt.Sprintf("%s/api/purchases/%s/invoice", srv.URL, purchaseID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	require.Contains(t, string(raw), "Счёт на оплату")

	resp, raw = do(t, http.MethodPost, fmt.Sprintf("%s/api/internal/purchases/%s/paid", srv.URL, purchaseID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var paid api.PurchaseEntity

	require.NoError(t, json.Unmarshal(raw, &paid))
	require.Equal(t, "active", paid.Status)

	// the confirmation is idempotent
	resp, raw = do(t, http.MethodPost, fmt.Sprintf("%s/api/internal/purchases/%s/paid", srv.URL, purchaseID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, json.Unmarshal(raw, &paid))
	require.Equal(t, "active", paid.Status)
}

func TestHandler_Checkout_NoPayer(t *testing.T) {
	t.Parallel()

	srv := newServer(t, false)

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/checkout", map[string]any{
		"method": "balance",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_Catalog(t *testing.T) {
	t.Parallel()

	srv := newServer(t, false)

	resp, raw := do(t, http.MethodGet, srv.URL+"/api/catalog/services", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing api.CatalogServicesResponse

	require.NoError(t, json.Unmarshal(raw, &listing))
	require.Len(t, listing.Services, 2)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/catalog/services/unknown", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_BadIdentifiers(t *testing.T) {
	t.Parallel()

	srv := newServer(t, false)

	resp, _ := do(t, http.MethodGet, srv.URL+"/api/payers/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/payers/11111111-1111-1111-1111-111111111111", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/cart/items/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_InternalAPIKey(t *testing.T) {
	t.Parallel()

	srv := newServer(t, true)

	url := srv.URL + "/api/internal/purchases/11111111-1111-1111-1111-111111111111/paid"

	resp, _ := do(t, http.MethodPost, url, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, url, nil)
	require.NoError(t, err)

	req.Header.Set("X-Api-Key", "secret")

	withKey, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer func() { _ = withKey.Body.Close() }()

	// the key is accepted, the purchase simply does not exist
	require.Equal(t, http.StatusNotFound, withKey.StatusCode)
}
