package entity_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/liseren91/aistore-billing/internal/entity"
)

func TestPayer_Validate(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name    string
		payer   entity.Payer
		wantErr bool
	}{
		{
			name:  "valid company",
			payer: entity.Payer{Type: entity.PayerTypeCompany, Name: "ООО Ромашка", INN: "7707083893"},
		},
		{
			name:  "valid individual",
			payer: entity.Payer{Type: entity.PayerTypeIndividual, LastName: "Иванов"},
		},
		{
			name:    "company without name",
			payer:   entity.Payer{Type: entity.PayerTypeCompany, INN: "7707083893"},
			wantErr: true,
		},
		{
			name:    "individual without last name",
			payer:   entity.Payer{Type: entity.PayerTypeIndividual, FirstName: "Иван"},
			wantErr: true,
		},
		{
			name:    "unknown type",
			payer:   entity.Payer{Type: "government", Name: "Орган"},
			wantErr: true,
		},
		{
			name: "negative balance",
			payer: entity.Payer{
				Type:    entity.PayerTypeCompany,
				Name:    "ООО Ромашка",
				Balance: decimal.NewFromInt(-100),
			},
			wantErr: true,
		},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.payer.Validate()
			if tt.wantErr {
				if !errors.Is(err, entity.ErrInvalidArgument) {
					t.Errorf("Validate() = %v, want ErrInvalidArgument", err)
				}

				return
			}

			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestPayer_DisplayName(t *testing.T) {
	t.Parallel()

	company := entity.Payer{Type: entity.PayerTypeCompany, Name: "ООО Ромашка"}
	if got := company.DisplayName(); got != "ООО Ромашка" {
		t.Errorf("DisplayName() = %q", got)
	}

	individual := entity.Payer{Type: entity.PayerTypeIndividual, FirstName: "Иван", LastName: "Иванов"}
	if got := individual.DisplayName(); got != "Иванов Иван" {
		t.Errorf("DisplayName() = %q", got)
	}
}

func TestInsufficientFundsError(t *testing.T) {
	t.Parallel()

	var err error = &entity.InsufficientFundsError{Shortfall: decimal.NewFromInt(800)}

	if !errors.Is(err, entity.ErrInsufficientFunds) {
		t.Error("errors.Is(err, ErrInsufficientFunds) = false")
	}

	var insufficient *entity.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatal("errors.As failed")
	}

	if !insufficient.Shortfall.Equal(decimal.NewFromInt(800)) {
		t.Errorf("Shortfall = %s, want 800", insufficient.Shortfall)
	}
}
