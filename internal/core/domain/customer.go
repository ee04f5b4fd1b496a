package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

const maxCustomerCodeLen = 16

// Customer is a quote recipient. Code is the customer segment of quote references.
type Customer struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone,omitempty"`
	Company   string          `json:"company,omitempty"`
	Address   string          `json:"address,omitempty"`
	VATNumber string          `json:"vat_number,omitempty"`
	Country   string          `json:"country"`
	VATRate   decimal.Decimal `json:"vat_rate"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CustomerInput struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Address   string `json:"address"`
	VATNumber string `json:"vat_number"`
	Country   string `json:"country"`
}

type CustomerFilter struct {
	Search string
	Limit  int
}

// DefaultCustomerListLimit caps customer listings.
const DefaultCustomerListLimit = 100

// Normalize trims every field and upper-cases the code and country.
func (in CustomerInput) Normalize() CustomerInput {
	return CustomerInput{
		Code:      strings.ToUpper(strings.TrimSpace(in.Code)),
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
		Company:   strings.TrimSpace(in.Company),
		Address:   strings.TrimSpace(in.Address),
		VATNumber: strings.TrimSpace(in.VATNumber),
		Country:   strings.ToUpper(strings.TrimSpace(in.Country)),
	}
}

// Validate expects a normalized input.
func (in CustomerInput) Validate() error {
	if in.Name == "" || in.Email == "" || in.Country == "" {
		return fmt.Errorf("%w: name, email and country are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return fmt.Errorf("%w: email %q is not valid", ErrInvalidInput, in.Email)
	}
	if len(in.Code) > maxCustomerCodeLen {
		return fmt.Errorf("%w: code is longer than %d characters", ErrInvalidInput, maxCustomerCodeLen)
	}
	for _, r := range in.Code {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return fmt.Errorf("%w: code %q must be letters and digits", ErrInvalidInput, in.Code)
		}
	}
	return nil
}

// CustomerCodeFromName takes the first three letters of name, padded with X.
func CustomerCodeFromName(name string) string {
	letters := make([]rune, 0, 3)
	for _, r := range strings.ToUpper(name) {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, r)
			if len(letters) == 3 {
				break
			}
		}
	}
	for len(letters) < 3 {
		letters = append(letters, 'X')
	}
	return string(letters)
}

// DefaultVATRate is the regional rate for country, or zero when the country is not a tax region.
func DefaultVATRate(country string) decimal.Decimal {
	if rate, ok := TaxRateFor(country); ok {
		return rate
	}
	return decimal.Zero
}
