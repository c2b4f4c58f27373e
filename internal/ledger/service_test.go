package ledger_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/liseren91/aistore-billing/internal/entity"
	"github.com/liseren91/aistore-billing/internal/ledger"
	"github.com/liseren91/aistore-billing/internal/repository/inmem"
)

func newPayer(t *testing.T, s *ledger.Service, balance int64) entity.Payer {
	t.Helper()

	p, err := s.CreatePayer(context.Background(), entity.Payer{
		Type:    entity.PayerTypeCompany,
		Name:    "ООО Ромашка",
		INN:     "7707083893",
		KPP:     "770701001",
		Balance: decimal.NewFromInt(balance),
	})
	require.NoError(t, err)

	return p
}

func TestService_CreatePayer_Invalid(t *testing.T) {
	t.Parallel()

	s := ledger.New(inmem.New())

	_, err := s.CreatePayer(context.Background(), entity.Payer{Type: entity.PayerTypeCompany})
	require.ErrorIs(t, err, entity.ErrInvalidArgument)

	_, err = s.CreatePayer(context.Background(), entity.Payer{Type: entity.PayerTypeIndividual})
	require.ErrorIs(t, err, entity.ErrInvalidArgument)

	_, err = s.CreatePayer(context.Background(), entity.Payer{
		Type:     entity.PayerTypeIndividual,
		LastName: "Иванов",
		Balance:  decimal.NewFromInt(-1),
	})
	require.ErrorIs(t, err, entity.ErrInvalidArgument)
}

func TestService_Deposit(t *testing.T) {
	t.Parallel()

	s := ledger.New(inmem.New())
	p := newPayer(t, s, 1000)

	tx, balance, err := s.Deposit(context.Background(), p.ID, decimal.NewFromInt(500), "card")
	require.NoError(t, err)
	require.Equal(t, entity.TransactionKindDeposit, tx.Kind)
	require.True(t, balance.Equal(decimal.NewFromInt(1500)))

	got, err := s.Payer(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.NewFromInt(1500)))
}

func TestService_Withdraw(t *testing.T) {
	t.Parallel()

	s := ledger.New(inmem.New())
	p := newPayer(t, s, 150000)

	tx, balance, err := s.Withdraw(context.Background(), p.ID, decimal.NewFromInt(5000), "card")
	require.NoError(t, err)
	require.Equal(t, entity.TransactionKindWithdrawal, tx.Kind)
	require.True(t, balance.Equal(decimal.NewFromInt(145000)))

	txs, count, err := s.Transactions(context.Background(), p.ID, entity.TransactionFilter{
		Page:    1,
		Limit:   10,
		SortBy:  entity.SortByCreatedAt,
		OrderBy: entity.DESC,
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, tx.ID, txs[0].ID)
}

func TestService_Withdraw_InsufficientFunds(t *testing.T) {
	t.Parallel()

	s := ledger.New(inmem.New())
	p := newPayer(t, s, 1200)

	_, _, err := s.Withdraw(context.Background(), p.ID, decimal.NewFromInt(2000), "card")
	require.ErrorIs(t, err, entity.ErrInsufficientFunds)

	var insufficient *entity.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	require.True(t, insufficient.Shortfall.Equal(decimal.NewFromInt(800)))

	// the rejected withdrawal leaves no trace
	got, err := s.Payer(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.NewFromInt(1200)))

	_, count, err := s.Transactions(context.Background(), p.ID, entity.TransactionFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestService_MoveFunds_NonPositiveAmount(t *testing.T) {
	t.Parallel()

	s := ledger.New(inmem.New())
	p := newPayer(t, s, 1000)

	_, _, err := s.Deposit(context.Background(), p.ID, decimal.Zero, "card")
	require.ErrorIs(t, err, entity.ErrInvalidArgument)

	_, _, err = s.Withdraw(context.Background(), p.ID, decimal.NewFromInt(-5), "card")
	require.ErrorIs(t, err, entity.ErrInvalidArgument)
}

func TestService_DebitBatch(t *testing.T) {
	t.Parallel()

	s := ledger.New(inmem.New())
	p := newPayer(t, s, 10000)

	debits := []ledger.Debit{
		{Amount: decimal.NewFromInt(3000), ServiceID: "chatgpt", ServiceName: "ChatGPT", Comment: "Оплата тарифа"},
		{Amount: decimal.NewFromInt(3000), ServiceID: "claude", ServiceName: "Claude", Comment: "Оплата тарифа"},
	}

	txs, balance, err := s.DebitBatch(context.Background(), p.ID, debits)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.True(t, balance.Equal(decimal.NewFromInt(4000)))

	for _, tx := range txs {
		require.Equal(t, entity.TransactionKindPurchase, tx.Kind)
		require.Equal(t, entity.PaymentMethodBalance.String(), tx.Method)
	}
}

func TestService_DebitBatch_RejectsWholeBatch(t *testing.T) {
	t.Parallel()

	s := ledger.New(inmem.New())
	p := newPayer(t, s, 5000)

	debits := []ledger.Debit{
		{Amount: decimal.NewFromInt(3000), ServiceID: "chatgpt", ServiceName: "ChatGPT"},
		{Amount: decimal.NewFromInt(3000), ServiceID: "claude", ServiceName: "Claude"},
	}

	_, _, err := s.DebitBatch(context.Background(), p.ID, debits)

	var insufficient *entity.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	require.True(t, insufficient.Shortfall.Equal(decimal.NewFromInt(1000)))

	// affordable first item must not have been debited on its own
	got, err := s.Payer(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.NewFromInt(5000)))

	_, count, err := s.Transactions(context.Background(), p.ID, entity.TransactionFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestService_Withdraw_Concurrent(t *testing.T) {
	t.Parallel()

	s := ledger.New(inmem.New())
	p := newPayer(t, s, 1000)

	const (
		workers = 20
		amount  = 100
	)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		rejected int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _, err := s.Withdraw(context.Background(), p.ID, decimal.NewFromInt(amount), "card")
			if err != nil {
				mu.Lock()
				rejected++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	// exactly ten withdrawals fit into the balance, the rest are rejected
	require.Equal(t, workers-10, rejected)

	got, err := s.Payer(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.IsZero())

	_, count, err := s.Transactions(context.Background(), p.ID, entity.TransactionFilter{Page: 1, Limit: 100})
	require.NoError(t, err)
	require.Equal(t, 10, count)
}

func TestService_Transactions_UnknownPayer(t *testing.T) {
	t.Parallel()

	s := ledger.New(inmem.New())

	_, _, err := s.Transactions(context.Background(), uuid.Must(uuid.NewV4()), entity.TransactionFilter{Page: 1, Limit: 10})
	require.ErrorIs(t, err, entity.ErrNotFound)
}

// TestService_RandomizedSequence drives the ledger with a seeded stream of
// deposits, withdrawals and purchase debits against a shadow balance. The
// balance must never go negative, and replaying the transaction log must
// land on the same final balance.
func TestService_RandomizedSequence(t *testing.T) {
	t.Parallel()

	s := ledger.New(inmem.New())
	p := newPayer(t, s, 5000)

	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	shadow := decimal.NewFromInt(5000)

	for i := 0; i < 300; i++ {
		amount := decimal.NewFromInt(rng.Int63n(900) + 1)

		switch rng.Intn(3) {
		case 0:
			_, balance, err := s.Deposit(ctx, p.ID, amount, "card")
			require.NoError(t, err)

			shadow = shadow.Add(amount)
			require.True(t, balance.Equal(shadow))
		case 1:
			_, balance, err := s.Withdraw(ctx, p.ID, amount, "card")
			if shadow.LessThan(amount) {
				require.ErrorIs(t, err, entity.ErrInsufficientFunds)

				break
			}
			require.NoError(t, err)

			shadow = shadow.Sub(amount)
			require.True(t, balance.Equal(shadow))
		default:
			second := decimal.NewFromInt(rng.Int63n(900) + 1)
			debits := []ledger.Debit{
				{Amount: amount, ServiceID: "chatgpt", ServiceName: "ChatGPT"},
				{Amount: second, ServiceID: "claude", ServiceName: "Claude"},
			}

			_, balance, err := s.DebitBatch(ctx, p.ID, debits)
			if shadow.LessThan(amount.Add(second)) {
				require.ErrorIs(t, err, entity.ErrInsufficientFunds)

				break
			}
			require.NoError(t, err)

			shadow = shadow.Sub(amount).Sub(second)
			require.True(t, balance.Equal(shadow))
		}

		current, err := s.Payer(ctx, p.ID)
		require.NoError(t, err)
		require.True(t, current.Balance.GreaterThanOrEqual(decimal.Zero))
		require.True(t, current.Balance.Equal(shadow))
	}

	txs, total, err := s.Transactions(ctx, p.ID, entity.TransactionFilter{Page: 1, Limit: 2000})
	require.NoError(t, err)
	require.Len(t, txs, total)

	replayed := decimal.NewFromInt(5000)

	for _, tx := range txs {
		if tx.Kind == entity.TransactionKindDeposit {
			replayed = replayed.Add(tx.Amount)
		} else {
			replayed = replayed.Sub(tx.Amount)
		}
	}

	require.True(t, replayed.Equal(shadow))
}
