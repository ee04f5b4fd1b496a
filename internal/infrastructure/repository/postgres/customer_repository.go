package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dakshin/partsquote/internal/core/domain"
)

type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = `id, code, name, email, phone, company, address, vat_number, country, vat_rate, created_at, updated_at`

// Create inserts the customer; an email already on file is a conflict.
func (r *CustomerRepository) Create(ctx context.Context, c domain.Customer) error {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO customers (`+customerColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (email) DO NOTHING
`,
		c.ID, c.Code, c.Name, c.Email, c.Phone, c.Company, c.Address, c.VATNumber, c.Country,
		c.VATRate, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert customer rows affected: %w", err)
	}
	if inserted == 0 {
		return domain.WrapError(domain.ErrConflict, "create customer", fmt.Errorf("email %s already exists", c.Email))
	}
	return nil
}

func (r *CustomerRepository) Update(ctx context.Context, c domain.Customer) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE customers
SET name = $2, email = $3, phone = $4, company = $5, address = $6, vat_number = $7, updated_at = $8
WHERE id = $1
`, c.ID, c.Name, c.Email, c.Phone, c.Company, c.Address, c.VATNumber, c.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update customer rows affected: %w", err)
	}
	if updated == 0 {
		return domain.WrapError(domain.ErrCustomerNotFound, "update customer", fmt.Errorf("id %s", c.ID))
	}
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return r.one(row, "id "+id)
}

// GetByCode returns the oldest customer carrying code; codes are not unique.
func (r *CustomerRepository) GetByCode(ctx context.Context, code string) (*domain.Customer, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+customerColumns+`
FROM customers
WHERE code = $1
ORDER BY created_at
LIMIT 1
`, code)
	return r.one(row, "code "+code)
}

func (r *CustomerRepository) one(row *sql.Row, key string) (*domain.Customer, error) {
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCustomerNotFound, "get customer", errors.New(key))
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return customer, nil
}

// List matches search against name, email and company, newest first.
func (r *CustomerRepository) List(ctx context.Context, filter domain.CustomerFilter) ([]domain.Customer, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultCustomerListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+customerColumns+`
FROM customers
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%' OR company ILIKE '%' || $1 || '%')
ORDER BY created_at DESC
LIMIT $2
`, filter.Search, limit)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Customer, 0)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, *customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return out, nil
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Address, &c.VATNumber, &c.Country,
		&c.VATRate, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
