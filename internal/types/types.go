// =============================================================================
// BR Code Generator - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - csvparser / xlsxparser (Table, Row)
//   - converter (Table, Charge)
//   - validation (Charge)
//   - xmlwriter (Charge)
//
// =============================================================================

package types

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// TABULAR INPUT
// =============================================================================

// Row is one data row of an order file.
type Row struct {
	// Number is the 1-based row number in the source file (for CSV this
	// counts records, for XLSX it is the spreadsheet row).
	Number int

	// Values maps each header to the (trimmed) cell value.
	Values map[string]string
}

// Table is an order file read into memory. CSV and XLSX sources produce
// the same shape so the rest of the pipeline ignores the format.
type Table struct {
	Headers    []string
	Rows       []Row
	SourceFile string
}

// =============================================================================
// CHARGE
// =============================================================================

// Charge is a single payment request derived from one row.
type Charge struct {
	// Row is the source row number, used in error reports.
	Row int

	// Reference is the transaction id written to field 62/05.
	Reference string

	// RawAmount is the amount text as read from the file, after
	// transformations. It is kept for error reporting.
	RawAmount string

	// Amount is null when the row has no amount (open-value payload).
	Amount decimal.NullDecimal

	// AmountErr is set when RawAmount is not empty and could not be parsed.
	AmountErr error

	// PaymentKey, Name and City are resolved from the row, falling back to
	// the profile.
	PaymentKey string
	Name       string
	City       string

	// Payload is filled in once the charge has been encoded.
	Payload string
}
