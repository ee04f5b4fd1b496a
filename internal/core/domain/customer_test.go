package domain

import "testing"

func TestCustomerCodeFromName(t *testing.T) {
	tests := map[string]string{
		"Desert Trucks LLC": "DES",
		"al-Noor":           "ALN",
		"K2":                "KXX",
		"":                  "XXX",
	}
	for name, want := range tests {
		if got := CustomerCodeFromName(name); got != want {
			t.Fatalf("CustomerCodeFromName(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestCustomerInputValidate(t *testing.T) {
	valid := CustomerInput{Name: " Desert Trucks ", Email: " Ops@Desert.example ", Country: "uae", Code: "dt1"}.Normalize()
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if valid.Email != "ops@desert.example" || valid.Country != "UAE" || valid.Code != "DT1" {
		t.Fatalf("unexpected normalized input: %+v", valid)
	}

	invalid := []CustomerInput{
		{Email: "a@b.example", Country: "UAE"},
		{Name: "A", Email: "not-an-email", Country: "UAE"},
		{Name: "A", Email: "a@b.example"},
		{Name: "A", Email: "a@b.example", Country: "UAE", Code: "DT-1"},
		{Name: "A", Email: "a@b.example", Country: "UAE", Code: "ABCDEFGHIJKLMNOPQ"},
	}
	for _, in := range invalid {
		if err := in.Normalize().Validate(); !IsKind(err, ErrInvalidInput) {
			t.Fatalf("Validate(%+v) expected invalid input, got %v", in, err)
		}
	}
}

func TestDefaultVATRate(t *testing.T) {
	if got := DefaultVATRate("uae"); got.String() != "0.05" {
		t.Fatalf("DefaultVATRate(uae) = %s", got)
	}
	if got := DefaultVATRate("Atlantis"); !got.IsZero() {
		t.Fatalf("DefaultVATRate(Atlantis) = %s, want 0", got)
	}
}
