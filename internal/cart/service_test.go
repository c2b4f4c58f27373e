package cart_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/liseren91/aistore-billing/internal/cart"
	"github.com/liseren91/aistore-billing/internal/currency"
	"github.com/liseren91/aistore-billing/internal/entity"
	"github.com/liseren91/aistore-billing/internal/mocks"
	"github.com/liseren91/aistore-billing/internal/repository/inmem"
)

func chatGPT() entity.AiService {
	return entity.AiService{
		ID:       "chatgpt",
		Name:     "ChatGPT",
		Category: "Чат-боты",
		Color:    "#10a37f",
		Tiers: []entity.PricingTier{
			{Name: "Plus", PriceLabel: "$20/мес", Features: []string{"GPT-4o", "DALL-E"}},
			{Name: "Pro", PriceLabel: "$200/мес", Features: []string{"o1 pro mode"}},
			{Name: "Enterprise", PriceLabel: "Custom", Features: []string{"SSO"}},
		},
	}
}

func newService(t *testing.T) (*cart.Service, *mocks.MockCatalogProvider, *inmem.Repository) {
	t.Helper()

	ctrl := gomock.NewController(t)
	catalog := mocks.NewMockCatalogProvider(ctrl)

	conv, err := currency.NewConverter(decimal.NewFromInt(95), decimal.NewFromInt(7))
	require.NoError(t, err)

	repo := inmem.New()

	return cart.New(repo, catalog, conv), catalog, repo
}

func TestService_AddItem(t *testing.T) {
	t.Parallel()

	s, catalog, _ := newService(t)

	catalog.EXPECT().Service(gomock.Any(), "chatgpt").Return(chatGPT(), nil)

	item, err := s.AddItem(context.Background(), "chatgpt", 0, entity.BillingCycleMonthly, entity.Credentials{Login: "user@example.com"}, false)
	require.NoError(t, err)

	require.Equal(t, "chatgpt", item.ServiceID)
	require.Equal(t, "ChatGPT", item.ServiceName)
	require.Equal(t, "Plus", item.TierName)
	require.True(t, item.PriceUSD.Equal(decimal.NewFromInt(20)))
	require.Equal(t, "user@example.com", item.Credentials.Login)
}

func TestService_AddItem_SameTierTwice(t *testing.T) {
	t.Parallel()

	s, catalog, _ := newService(t)

	catalog.EXPECT().Service(gomock.Any(), "chatgpt").Return(chatGPT(), nil).Times(2)

	_, err := s.AddItem(context.Background(), "chatgpt", 0, entity.BillingCycleMonthly, entity.Credentials{}, true)
	require.NoError(t, err)

	_, err = s.AddItem(context.Background(), "chatgpt", 0, entity.BillingCycleMonthly, entity.Credentials{}, true)
	require.NoError(t, err)

	items, err := s.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	// $20 * 95 * 1.07 = 2033 per item
	total, err := s.TotalRub(context.Background())
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.NewFromInt(4066)))
}

func TestService_AddItem_Invalid(t *testing.T) {
	t.Parallel()

	s, catalog, _ := newService(t)

	_, err := s.AddItem(context.Background(), "chatgpt", 0, "weekly", entity.Credentials{}, false)
	require.ErrorIs(t, err, entity.ErrInvalidArgument)

	catalog.EXPECT().Service(gomock.Any(), "unknown").Return(entity.AiService{}, entity.ErrNotFound)

	_, err = s.AddItem(context.Background(), "unknown", 0, entity.BillingCycleMonthly, entity.Credentials{}, false)
	require.ErrorIs(t, err, entity.ErrNotFound)

	catalog.EXPECT().Service(gomock.Any(), "chatgpt").Return(chatGPT(), nil).Times(2)

	_, err = s.AddItem(context.Background(), "chatgpt", 5, entity.BillingCycleMonthly, entity.Credentials{}, false)
	require.ErrorIs(t, err, entity.ErrInvalidArgument)

	// the Enterprise tier has no numeric price
	_, err = s.AddItem(context.Background(), "chatgpt", 2, entity.BillingCycleMonthly, entity.Credentials{}, false)
	require.ErrorIs(t, err, entity.ErrInvalidArgument)
}

func TestService_UpdateCredentials(t *testing.T) {
	t.Parallel()

	s, catalog, _ := newService(t)

	catalog.EXPECT().Service(gomock.Any(), "chatgpt").Return(chatGPT(), nil)

	item, err := s.AddItem(context.Background(), "chatgpt", 0, entity.BillingCycleMonthly, entity.Credentials{
		Login:    "old@example.com",
		Password: "secret",
	}, false)
	require.NoError(t, err)

	login := "new@example.com"

	updated, err := s.UpdateCredentials(context.Background(), item.ID, entity.CredentialsPatch{Login: &login})
	require.NoError(t, err)

	require.Equal(t, "new@example.com", updated.Credentials.Login)
	require.Equal(t, "secret", updated.Credentials.Password)
}

func TestService_UpdateCredentials_NotFound(t *testing.T) {
	t.Parallel()

	s, _, _ := newService(t)

	login := "user@example.com"

	_, err := s.UpdateCredentials(context.Background(), uuid.Must(uuid.NewV4()), entity.CredentialsPatch{Login: &login})
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestService_RemoveItem(t *testing.T) {
	t.Parallel()

	s, catalog, _ := newService(t)

	catalog.EXPECT().Service(gomock.Any(), "chatgpt").Return(chatGPT(), nil)

	item, err := s.AddItem(context.Background(), "chatgpt", 0, entity.BillingCycleMonthly, entity.Credentials{}, false)
	require.NoError(t, err)

	require.NoError(t, s.RemoveItem(context.Background(), item.ID))

	err = s.RemoveItem(context.Background(), item.ID)
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestService_PurgeAbandoned(t *testing.T) {
	t.Parallel()

	s, catalog, repo := newService(t)

	stale := entity.CartItem{
		ID:        uuid.Must(uuid.NewV4()),
		ServiceID: "midjourney",
		PriceUSD:  decimal.NewFromInt(10),
		Cycle:     entity.BillingCycleMonthly,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}
	require.NoError(t, repo.CreateCartItem(context.Background(), stale))

	catalog.EXPECT().Service(gomock.Any(), "chatgpt").Return(chatGPT(), nil)

	fresh, err := s.AddItem(context.Background(), "chatgpt", 0, entity.BillingCycleMonthly, entity.Credentials{}, false)
	require.NoError(t, err)

	require.NoError(t, s.PurgeAbandoned(context.Background()))

	items, err := s.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, fresh.ID, items[0].ID)
}
