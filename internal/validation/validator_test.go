package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/brcode-generator/internal/types"
)

func validCharge() types.Charge {
	return types.Charge{
		Row:        2,
		Reference:  "A1",
		RawAmount:  "10.00",
		Amount:     decimal.NewNullDecimal(decimal.RequireFromString("10.00")),
		PaymentKey: "user@bank.com",
		Name:       "João da Silva",
		City:       "São Paulo",
	}
}

func rules(errs []*ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Severity+":"+e.Rule)
	}
	return out
}

func TestValidateCharge(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *types.Charge)
		want   []string
	}{
		{name: "valid", mutate: func(c *types.Charge) {}, want: []string{}},
		{name: "open amount", mutate: func(c *types.Charge) { c.RawAmount = ""; c.Amount = decimal.NullDecimal{} }, want: []string{}},
		{
			name: "bad amount",
			mutate: func(c *types.Charge) {
				c.RawAmount = "dez"
				c.Amount = decimal.NullDecimal{}
				c.AmountErr = os.ErrInvalid
			},
			want: []string{"error:amount_format"},
		},
		{
			name:   "negative amount",
			mutate: func(c *types.Charge) { c.Amount = decimal.NewNullDecimal(decimal.NewFromInt(-5)) },
			want:   []string{"error:amount_negative"},
		},
		{
			name:   "zero amount",
			mutate: func(c *types.Charge) { c.Amount = decimal.NewNullDecimal(decimal.RequireFromString("0.001")) },
			want:   []string{"warning:amount_zero"},
		},
		{
			name:   "rounded amount",
			mutate: func(c *types.Charge) { c.Amount = decimal.NewNullDecimal(decimal.RequireFromString("10.005")) },
			want:   []string{"warning:amount_precision"},
		},
		{
			name:   "trailing zeros are not rounding",
			mutate: func(c *types.Charge) { c.Amount = decimal.NewNullDecimal(decimal.RequireFromString("10.000")) },
			want:   []string{},
		},
		{
			name:   "amount too large",
			mutate: func(c *types.Charge) { c.Amount = decimal.NewNullDecimal(decimal.RequireFromString("99999999999")) },
			want:   []string{"error:amount_too_large"},
		},
		{name: "no key", mutate: func(c *types.Charge) { c.PaymentKey = " " }, want: []string{"error:key_required"}},
		{name: "long key", mutate: func(c *types.Charge) { c.PaymentKey = strings.Repeat("k", 78) }, want: []string{"error:key_too_long"}},
		{name: "no name", mutate: func(c *types.Charge) { c.Name = "!!!" }, want: []string{"error:name_required"}},
		{name: "long name", mutate: func(c *types.Charge) { c.Name = strings.Repeat("A", 26) }, want: []string{"warning:name_truncated"}},
		{name: "no city", mutate: func(c *types.Charge) { c.City = "" }, want: []string{"error:city_required"}},
		{name: "long city", mutate: func(c *types.Charge) { c.City = "São José dos Campos" }, want: []string{"warning:city_truncated"}},
		{name: "reference sanitized", mutate: func(c *types.Charge) { c.Reference = "PED-1" }, want: []string{"warning:reference_changed"}},
		{name: "empty reference", mutate: func(c *types.Charge) { c.Reference = "" }, want: []string{"warning:reference_changed"}},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCharge()
			tt.mutate(&c)

			errs := v.ValidateCharge(&c)
			assert.Equal(t, tt.want, rules(errs))
			for _, e := range errs {
				assert.Equal(t, 2, e.RowNumber)
			}
		})
	}
}

func TestMaxPaymentKeyLen(t *testing.T) {
	require.Equal(t, 77, MaxPaymentKeyLen)
}

func TestValidateAll(t *testing.T) {
	good := validCharge()
	warn := validCharge()
	warn.Row = 3
	warn.Reference = "PED-3"
	bad := validCharge()
	bad.Row = 4
	bad.PaymentKey = ""

	result := Validate([]types.Charge{good, warn, bad})
	assert.False(t, result.IsValid)
	assert.Equal(t, 3, result.ChargesValidated)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 1, result.WarningCount)
	assert.Equal(t, map[int]bool{4: true}, result.RejectedRows)

	result = Validate([]types.Charge{good, warn})
	assert.True(t, result.IsValid)
}

func TestTreatWarningsAsErrors(t *testing.T) {
	c := validCharge()
	c.Reference = "PED-1"

	v := NewValidatorWithOptions(ValidationOptions{TreatWarningsAsErrors: true})
	result := v.ValidateAll([]types.Charge{c})
	assert.False(t, result.IsValid)
	assert.Equal(t, 1, result.ErrorCount)
}

func TestFormatErrors(t *testing.T) {
	assert.Equal(t, "No validation errors.", FormatErrors(nil))

	out := FormatErrors([]*ValidationError{{
		Severity:  SeverityError,
		Field:     "key",
		Rule:      "key_required",
		Message:   "payment key is required",
		RowNumber: 4,
	}})
	assert.Contains(t, out, "1 finding(s)")
	assert.Contains(t, out, "1. [ERROR] Row 4, Field 'key': payment key is required (value: '')")
}

func TestWriteErrorLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.log")
	err := WriteErrorLog([]*ValidationError{{Severity: SeverityWarning, Field: "name", Message: "m", RowNumber: 2}}, "loja.csv", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Source:    loja.csv")
	assert.Contains(t, string(data), "[WARNING] Row 2")
}
