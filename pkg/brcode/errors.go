// =============================================================================
// BR Code Generator - Error Taxonomy
// =============================================================================
//
// All failures of the payload package are reported through the sentinel
// errors below. Callers test for them with errors.Is; when the failure is
// tied to a specific field the sentinel is wrapped in a *FieldError carrying
// the field id.
//
//   ErrInvalidFieldID     : an id is not exactly two ASCII digits
//   ErrFieldTooLong       : a value does not fit in a two-digit length
//   ErrEmptyRequiredValue : a mandatory input (payment key) is blank
//   ErrInvalidValue       : a registry value (category, currency, country)
//                           does not have the format wallets expect
//   ErrMalformedPayload   : a payload could not be split into fields
//   ErrChecksumMismatch   : the trailing CRC does not match the content
//
// =============================================================================

package brcode

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	ErrInvalidFieldID     = errors.New("invalid field id")
	ErrFieldTooLong       = errors.New("field value too long")
	ErrEmptyRequiredValue = errors.New("empty required value")
	ErrInvalidValue       = errors.New("invalid field value")
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrChecksumMismatch   = errors.New("checksum mismatch")
)

// FieldError ties an error to the id of the field that produced it.
type FieldError struct {
	ID  string
	Err error
}

func (fe *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", fe.ID, fe.Err)
}

func (fe *FieldError) Unwrap() error {
	return fe.Err
}

func fieldErr(id string, err error) error {
	return &FieldError{ID: id, Err: err}
}
