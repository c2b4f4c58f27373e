// Package cart manages the ephemeral staging list of planned purchases.
// Items live here until checkout consumes them into purchases or the
// user removes them.
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/liseren91/aistore-billing/internal/currency"
	"github.com/liseren91/aistore-billing/internal/entity"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=../mocks/catalog.go -package=mocks github.com/liseren91/aistore-billing/internal/cart CatalogProvider

type Repository interface {
	CreateCartItem(ctx context.Context, item entity.CartItem) error
	CartItem(ctx context.Context, id uuid.UUID) (entity.CartItem, error)
	CartItems(ctx context.Context) ([]entity.CartItem, error)
	UpdateCartItemCredentials(ctx context.Context, id uuid.UUID, c entity.Credentials) error
	DeleteCartItem(ctx context.Context, id uuid.UUID) error
	ClearCart(ctx context.Context) error
	DeleteCartItemsBefore(ctx context.Context, t time.Time) (int64, error)
}

type CatalogProvider interface {
	Service(ctx context.Context, id string) (entity.AiService, error)
}

type Service struct {
	repo    Repository
	catalog CatalogProvider
	conv    *currency.Converter
}

func New(repo Repository, catalog CatalogProvider, conv *currency.Converter) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		conv:    conv,
	}
}

// AddItem stages a tier of a catalog service for purchase. The same
// service and tier may be staged twice; each item becomes an independent
// purchase at checkout.
func (s *Service) AddItem(ctx context.Context, serviceID string, tierIndex int, cycle entity.BillingCycle, creds entity.Credentials, newAccount bool) (entity.CartItem, error) {
	err := cycle.Validate()
	if err != nil {
		return entity.CartItem{}, err
	}

	svc, err := s.catalog.Service(ctx, serviceID)
	if err != nil {
		return entity.CartItem{}, fmt.Errorf("get catalog service %q: %w", serviceID, err)
	}

	if tierIndex < 0 || tierIndex >= len(svc.Tiers) {
		return entity.CartItem{}, fmt.Errorf("%w: service %q has no tier %d", entity.ErrInvalidArgument, serviceID, tierIndex)
	}

	tier := svc.Tiers[tierIndex]

	price, ok := currency.ExtractUsdAmount(tier.PriceLabel)
	if !ok {
		return entity.CartItem{}, fmt.Errorf("%w: tier %q of service %q has no numeric price (%q)",
			entity.ErrInvalidArgument, tier.Name, serviceID, tier.PriceLabel)
	}

	item := entity.CartItem{
		ID:           uuid.Must(uuid.NewV4()),
		ServiceID:    svc.ID,
		ServiceName:  svc.Name,
		ServiceColor: svc.Color,
		TierIndex:    tierIndex,
		TierName:     tier.Name,
		PriceUSD:     price,
		Cycle:        cycle,
		Credentials:  creds,
		NewAccount:   newAccount,
		CreatedAt:    time.Now(),
	}

	err = s.repo.CreateCartItem(ctx, item)
	if err != nil {
		return entity.CartItem{}, fmt.Errorf("create cart item: %w", err)
	}

	slog.InfoContext(ctx, fmt.Sprintf("В корзину добавлен тариф %q сервиса %q", tier.Name, svc.Name))

	return item, nil
}

func (s *Service) RemoveItem(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteCartItem(ctx, id)
	if err != nil {
		return fmt.Errorf("delete cart item %s: %w", id, err)
	}

	return nil
}

func (s *Service) Clear(ctx context.Context) error {
	return s.repo.ClearCart(ctx)
}

// UpdateCredentials patches the optional access fields of a staged item.
// Unknown items are an explicit error, not a silent no-op.
func (s *Service) UpdateCredentials(ctx context.Context, id uuid.UUID, patch entity.CredentialsPatch) (entity.CartItem, error) {
	item, err := s.repo.CartItem(ctx, id)
	if err != nil {
		return entity.CartItem{}, fmt.Errorf("get cart item %s: %w", id, err)
	}

	item.Credentials = patch.Apply(item.Credentials)

	err = s.repo.UpdateCartItemCredentials(ctx, id, item.Credentials)
	if err != nil {
		return entity.CartItem{}, fmt.Errorf("update cart item %s credentials: %w", id, err)
	}

	return item, nil
}

func (s *Service) Items(ctx context.Context) ([]entity.CartItem, error) {
	return s.repo.CartItems(ctx)
}

// TotalRub is the converted total of all staged items.
func (s *Service) TotalRub(ctx context.Context) (decimal.Decimal, error) {
	items, err := s.repo.CartItems(ctx)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("get cart items: %w", err)
	}

	total := decimal.Decimal{}

	for _, item := range items {
		total = total.Add(s.conv.UsdToRub(item.PriceUSD))
	}

	return total, nil
}

// PurgeAbandoned removes items staged more than a day ago. Runs as a
// background job.
func (s *Service) PurgeAbandoned(ctx context.Context) error {
	const maxAge = 24 * time.Hour

	n, err := s.repo.DeleteCartItemsBefore(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return fmt.Errorf("delete stale cart items: %w", err)
	}

	if n > 0 {
		slog.InfoContext(ctx, "purged abandoned cart items", "count", n)
	}

	return nil
}
