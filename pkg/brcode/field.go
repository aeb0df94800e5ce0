// =============================================================================
// BR Code Generator - Field Encoder and Composite Field Builder
// =============================================================================
//
// A BR Code payload is a flat sequence of ASCII TLV fragments:
//
//   ID (2 digits) | LENGTH (2 decimal digits) | VALUE (LENGTH bytes)
//
//   Example: "5802BR"  -> ID "58", LENGTH "02", VALUE "BR"
//
// A composite field is a fragment whose VALUE is itself a sequence of
// fragments (the merchant account block "26" and the additional data block
// "62" are composites).
//
// LENGTH POLICY:
//   The encoder never truncates. A value longer than 99 bytes is reported as
//   ErrFieldTooLong; shortening user text to the limits of the standard is
//   done by the payload assembler before encoding.
//
// =============================================================================

package brcode

import (
	"strconv"
	"strings"
)

const (
	idLen     = 2
	lengthLen = 2

	// MaxValueLen is the largest value a two-digit length can describe.
	MaxValueLen = 99
)

// Field is a single (id, value) pair of the payload.
type Field struct {
	ID    string
	Value string
}

// Encode returns the TLV fragment for the field.
func (f Field) Encode() (string, error) {
	return EncodeField(f.ID, f.Value)
}

// =============================================================================
// FIELD ENCODER
// =============================================================================

// EncodeField encodes a single field as id + zero padded length + value.
//
// PARAMETERS:
//   - id: exactly two ASCII digits (e.g., "59").
//   - value: the raw value, at most 99 bytes.
//
// RETURNS:
//   - The fragment, whose length is always 4 + len(value).
//   - ErrInvalidFieldID or ErrFieldTooLong wrapped in a *FieldError.
func EncodeField(id, value string) (string, error) {
	if !validID(id) {
		return "", fieldErr(id, ErrInvalidFieldID)
	}
	if len(value) > MaxValueLen {
		return "", fieldErr(id, ErrFieldTooLong)
	}

	var b strings.Builder
	b.Grow(idLen + lengthLen + len(value))
	b.WriteString(id)
	if len(value) < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.Itoa(len(value)))
	b.WriteString(value)
	return b.String(), nil
}

func validID(id string) bool {
	return len(id) == idLen && allDigits(id)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// =============================================================================
// COMPOSITE FIELD BUILDER
// =============================================================================

// BuildComposite encodes the subfields in the given order and wraps their
// concatenation as the value of a field with the outer id.
//
// Subfields are emitted exactly in argument order so that identical input
// always yields identical bytes (and therefore an identical checksum).
func BuildComposite(id string, subfields ...Field) (string, error) {
	if !validID(id) {
		return "", fieldErr(id, ErrInvalidFieldID)
	}

	var inner strings.Builder
	for _, sub := range subfields {
		fragment, err := sub.Encode()
		if err != nil {
			return "", fieldErr(id, err)
		}
		inner.WriteString(fragment)
	}

	return EncodeField(id, inner.String())
}
