package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/core/ports"
)

type CustomerUseCase struct {
	repo ports.CustomerRepository
	now  func() time.Time
}

func NewCustomerUseCase(repo ports.CustomerRepository) *CustomerUseCase {
	return &CustomerUseCase{repo: repo, now: time.Now}
}

func (uc *CustomerUseCase) ListCustomers(ctx context.Context, filter domain.CustomerFilter) ([]domain.Customer, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Limit <= 0 || filter.Limit > domain.DefaultCustomerListLimit {
		filter.Limit = domain.DefaultCustomerListLimit
	}
	customers, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

func (uc *CustomerUseCase) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get customer", fmt.Errorf("id is required"))
	}
	return uc.repo.GetByID(ctx, id)
}

// CreateCustomer derives the code from the name when none is given and seeds
// the VAT rate from the country.
func (uc *CustomerUseCase) CreateCustomer(ctx context.Context, in domain.CustomerInput) (*domain.Customer, error) {
	in = in.Normalize()
	if in.Code == "" {
		in.Code = domain.CustomerCodeFromName(in.Name)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	customer := domain.Customer{
		ID:        uuid.NewString(),
		Code:      in.Code,
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Company:   in.Company,
		Address:   in.Address,
		VATNumber: in.VATNumber,
		Country:   in.Country,
		VATRate:   domain.DefaultVATRate(in.Country),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	slog.Info("customer_created", "customer_id", customer.ID, "code", customer.Code, "country", customer.Country)
	return &customer, nil
}

// UpdateCustomer changes contact details. Empty fields keep their stored value;
// code, country and VAT rate are fixed at creation.
func (uc *CustomerUseCase) UpdateCustomer(ctx context.Context, id string, in domain.CustomerInput) (*domain.Customer, error) {
	current, err := uc.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	in = in.Normalize()

	next := *current
	overwrite(&next.Name, in.Name)
	overwrite(&next.Email, in.Email)
	overwrite(&next.Phone, in.Phone)
	overwrite(&next.Company, in.Company)
	overwrite(&next.Address, in.Address)
	overwrite(&next.VATNumber, in.VATNumber)
	check := domain.CustomerInput{Code: next.Code, Name: next.Name, Email: next.Email, Country: next.Country}
	if err := check.Validate(); err != nil {
		return nil, err
	}
	next.UpdatedAt = uc.now().UTC()

	if err := uc.repo.Update(ctx, next); err != nil {
		return nil, err
	}
	return &next, nil
}

func overwrite(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
