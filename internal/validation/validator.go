// =============================================================================
// BR Code Generator - Validation Engine
// =============================================================================
//
// This module checks charges before they are encoded. Problems are
// collected, not thrown, so a single run reports every bad row of a file.
//
// SEVERITY:
//   error   : the row cannot produce a usable payload (bad amount, no key)
//   warning : the payload is produced, but differs from the input
//             (amount rounded, name truncated, reference sanitized)
//
// RULES:
//   | Rule              | Severity | Trigger                                   |
//   |-------------------|----------|-------------------------------------------|
//   | amount_format     | error    | amount cell is not a decimal number       |
//   | amount_negative   | error    | amount < 0                                |
//   | amount_too_large  | error    | formatted amount longer than 13           |
//   | amount_zero       | warning  | amount rounds to 0 (open-value payload)   |
//   | amount_precision  | warning  | more than two decimal places              |
//   | key_required      | error    | payment key is blank                      |
//   | key_too_long      | error    | payment key longer than 77                |
//   | name_required     | error    | name has no printable ASCII after folding |
//   | name_truncated    | warning  | folded name longer than 25                |
//   | city_required     | error    | city has no printable ASCII after folding |
//   | city_truncated    | warning  | folded city longer than 15                |
//   | reference_changed | warning  | reference is sanitized or truncated       |
//
// =============================================================================

package validation

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/brcode-generator/internal/types"
	"github.com/ginjaninja78/brcode-generator/pkg/brcode"
)

// MaxPaymentKeyLen is the longest key that fits the merchant account
// template next to the GUI subfield.
const MaxPaymentKeyLen = brcode.MaxValueLen - 4 - len(brcode.DefaultGUI) - 4

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the charge attribute: amount, key, name, city or reference.
	Field string

	// Value is the offending input value.
	Value string

	// Rule is the identifier of the violated rule (see table above).
	Rule string

	// Message is a human-readable error message.
	Message string

	// RowNumber is the source row number.
	RowNumber int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Row %d, Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.RowNumber,
		e.Field,
		e.Message,
		e.Value,
	)
}

// IsError reports whether the finding blocks the row.
func (e *ValidationError) IsError() bool {
	return e.Severity == SeverityError
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no errors.
	IsValid bool

	// Errors contains all findings, warnings included, in row order.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	// ChargesValidated is the number of charges checked.
	ChargesValidated int

	// RejectedRows holds the row numbers that have at least one error.
	RejectedRows map[int]bool
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks charges.
type Validator struct {
	options ValidationOptions
}

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors promotes every warning to an error.
	TreatWarningsAsErrors bool

	// Normalizer must be the one used to build the payloads so truncation
	// warnings match the output.
	Normalizer brcode.Normalizer
}

// DefaultValidationOptions returns the default options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{Normalizer: brcode.ASCIIFolder{}}
}

// NewValidator creates a validator with default options.
func NewValidator() *Validator {
	return NewValidatorWithOptions(DefaultValidationOptions())
}

// NewValidatorWithOptions creates a validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	if options.Normalizer == nil {
		options.Normalizer = brcode.ASCIIFolder{}
	}
	return &Validator{options: options}
}

// Validate checks charges with the default options.
func Validate(charges []types.Charge) *ValidationResult {
	return NewValidator().ValidateAll(charges)
}

// ValidateAll checks every charge and summarizes the findings.
func (v *Validator) ValidateAll(charges []types.Charge) *ValidationResult {
	result := &ValidationResult{
		IsValid:      true,
		RejectedRows: make(map[int]bool),
	}

	for i := range charges {
		for _, e := range v.ValidateCharge(&charges[i]) {
			result.Errors = append(result.Errors, e)
			if e.IsError() {
				result.ErrorCount++
				result.IsValid = false
				result.RejectedRows[e.RowNumber] = true
			} else {
				result.WarningCount++
			}
		}
		result.ChargesValidated++
	}

	return result
}

// ValidateCharge runs every rule against one charge.
func (v *Validator) ValidateCharge(c *types.Charge) []*ValidationError {
	var errs []*ValidationError
	add := func(severity, field, value, rule, message string) {
		if severity == SeverityWarning && v.options.TreatWarningsAsErrors {
			severity = SeverityError
		}
		errs = append(errs, &ValidationError{
			Severity:  severity,
			Field:     field,
			Value:     value,
			Rule:      rule,
			Message:   message,
			RowNumber: c.Row,
		})
	}

	// Amount.
	switch {
	case c.AmountErr != nil:
		add(SeverityError, "amount", c.RawAmount, "amount_format", "amount is not a decimal number")
	case c.Amount.Valid:
		amount := c.Amount.Decimal
		formatted, ok := brcode.FormatAmount(c.Amount)
		switch {
		case amount.IsNegative():
			add(SeverityError, "amount", c.RawAmount, "amount_negative", "amount must not be negative")
		case !ok:
			add(SeverityWarning, "amount", c.RawAmount, "amount_zero", "amount rounds to zero; the payer will type the value")
		case len(formatted) > brcode.MaxAmountLen:
			add(SeverityError, "amount", c.RawAmount, "amount_too_large",
				fmt.Sprintf("amount exceeds %d characters", brcode.MaxAmountLen))
		}
		if ok && amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
			add(SeverityWarning, "amount", c.RawAmount, "amount_precision",
				fmt.Sprintf("amount will be rounded to %s", formatted))
		}
	}

	// Payment key.
	switch key := strings.TrimSpace(c.PaymentKey); {
	case key == "":
		add(SeverityError, "key", c.PaymentKey, "key_required", "payment key is required")
	case len(c.PaymentKey) > MaxPaymentKeyLen:
		add(SeverityError, "key", c.PaymentKey, "key_too_long",
			fmt.Sprintf("payment key exceeds %d characters", MaxPaymentKeyLen))
	}

	// Name and city.
	v.checkText(add, "name", c.Name, brcode.MaxNameLen)
	v.checkText(add, "city", c.City, brcode.MaxCityLen)

	// Reference.
	if label := brcode.ReferenceLabel(c.Reference); label != c.Reference {
		add(SeverityWarning, "reference", c.Reference, "reference_changed",
			fmt.Sprintf("reference will be sent as %q", label))
	}

	return errs
}

func (v *Validator) checkText(add func(severity, field, value, rule, message string), field, value string, max int) {
	folded := v.options.Normalizer.Normalize(value)
	switch {
	case folded == "":
		add(SeverityError, field, value, field+"_required", field+" is required")
	case len(folded) > max:
		add(SeverityWarning, field, value, field+"_truncated",
			fmt.Sprintf("%s will be sent as %q", field, brcode.Truncate(folded, max)))
	}
}

// =============================================================================
// ERROR OUTPUT
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))
	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}

// WriteErrorLog writes validation errors to a log file.
func WriteErrorLog(errors []*ValidationError, sourceFile, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	fmt.Fprintf(w, "Source:    %s\n", sourceFile)
	fmt.Fprintf(w, "Generated: %s\n\n", time.Now().Format(time.RFC3339))
	w.WriteString(FormatErrors(errors))

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write error log: %w", err)
	}
	return nil
}
