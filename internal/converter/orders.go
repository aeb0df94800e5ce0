// =============================================================================
// BR Code Generator - Order Mapping
// =============================================================================
//
// Turns transformed rows into charges. The profile's column mapping decides
// where each attribute comes from:
//
//   | Attribute | Column mapping | Fallback                                 |
//   |-----------|----------------|------------------------------------------|
//   | Amount    | columns.amount | product price (columns.product) or none  |
//   | Reference | columns.reference | <prefix><unix millis><row number>     |
//   | Key       | columns.key    | profile payment_key                      |
//   | Name      | columns.name   | profile beneficiary_name / full_name     |
//   | City      | columns.city   | profile beneficiary_city / SAO PAULO     |
//
// =============================================================================

package converter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/brcode-generator/internal/config"
	"github.com/ginjaninja78/brcode-generator/internal/types"
)

// GenerateReference returns prefix followed by the unix time in
// milliseconds ("TXN1700000000000").
func GenerateReference(prefix string, now time.Time) string {
	return prefix + strconv.FormatInt(now.UnixMilli(), 10)
}

// ParseAmount parses an amount cell. An empty cell is a null amount.
func ParseAmount(raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid amount %q", raw)
	}
	return decimal.NewNullDecimal(d), nil
}

// OrderMapper maps rows of one file to charges.
type OrderMapper struct {
	profile *config.Profile
	now     time.Time
}

// NewOrderMapper captures now once so that every generated reference of a
// file shares the same timestamp and differs by row number.
func NewOrderMapper(profile *config.Profile, now time.Time) *OrderMapper {
	return &OrderMapper{profile: profile, now: now}
}

// Map converts a single row.
func (m *OrderMapper) Map(row types.Row) types.Charge {
	cols := m.profile.Columns
	charge := types.Charge{
		Row:        row.Number,
		PaymentKey: pick(row, cols.Key, m.profile.PaymentKey),
		Name:       pick(row, cols.Name, m.profile.BeneficiaryName()),
		City:       pick(row, cols.City, m.profile.BeneficiaryCity()),
	}

	charge.RawAmount = column(row, cols.Amount)
	if charge.RawAmount == "" && cols.Product != "" {
		if product, ok := m.profile.FindProduct(column(row, cols.Product)); ok {
			charge.RawAmount = product.Price
		}
	}
	charge.Amount, charge.AmountErr = ParseAmount(charge.RawAmount)

	charge.Reference = column(row, cols.Reference)
	if charge.Reference == "" {
		charge.Reference = GenerateReference(m.profile.TransactionIDPrefix, m.now) + strconv.Itoa(row.Number)
	}

	return charge
}

// MapAll converts every row of a table.
func (m *OrderMapper) MapAll(rows []types.Row) []types.Charge {
	charges := make([]types.Charge, 0, len(rows))
	for _, row := range rows {
		charges = append(charges, m.Map(row))
	}
	return charges
}

func column(row types.Row, name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSpace(row.Values[name])
}

func pick(row types.Row, name, fallback string) string {
	if v := column(row, name); v != "" {
		return v
	}
	return fallback
}
