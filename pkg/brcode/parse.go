// =============================================================================
// BR Code Generator - Payload Parser and Verifier
// =============================================================================
//
// Wallets parse a payload field by field and reject it when a length or the
// trailing checksum is off. The functions below apply the same reading to a
// payload produced here (or pasted by a user) so that a code can be checked
// before it is printed or shared.
//
// =============================================================================

package brcode

import (
	"strconv"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Parse splits a flat TLV string into its top-level fields.
func Parse(payload string) ([]Field, error) {
	var fields []Field
	offset := 0
	for offset < len(payload) {
		if offset+idLen+lengthLen > len(payload) {
			return nil, errors.Wrapf(ErrMalformedPayload, "truncated header at offset %d", offset)
		}
		id := payload[offset : offset+idLen]
		if !validID(id) {
			return nil, errors.Wrapf(ErrMalformedPayload, "invalid id %q at offset %d", id, offset)
		}
		offset += idLen

		lengthStr := payload[offset : offset+lengthLen]
		if !allDigits(lengthStr) {
			return nil, errors.Wrapf(ErrMalformedPayload, "invalid length %q for field %s", lengthStr, id)
		}
		length, _ := strconv.Atoi(lengthStr)
		offset += lengthLen

		if offset+length > len(payload) {
			return nil, errors.Wrapf(ErrMalformedPayload, "field %s needs %d bytes, %d left", id, length, len(payload)-offset)
		}
		fields = append(fields, Field{ID: id, Value: payload[offset : offset+length]})
		offset += length
	}
	return fields, nil
}

// ParseComposite splits the value of a composite field into its subfields.
func ParseComposite(value string) ([]Field, error) {
	return Parse(value)
}

// Find returns the first field with the given id.
func Find(fields []Field, id string) (Field, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// Verify checks the structure and the trailing CRC of a payload. The CRC
// must be a top-level field 63 of four characters, appearing once and last.
func Verify(payload string) error {
	const trailer = len(crcHeader) + 4
	if len(payload) < trailer || payload[len(payload)-trailer:len(payload)-4] != crcHeader {
		return errors.Wrap(ErrMalformedPayload, "missing checksum field")
	}
	fields, err := Parse(payload)
	if err != nil {
		return err
	}
	for i, f := range fields {
		last := i == len(fields)-1
		switch {
		case last && (f.ID != idCRC || len(f.Value) != 4):
			return errors.Wrapf(ErrMalformedPayload, "last field is %s, not a checksum", f.ID)
		case !last && f.ID == idCRC:
			return errors.Wrapf(ErrMalformedPayload, "checksum field at position %d is not last", i+1)
		}
	}

	body := payload[:len(payload)-4]
	want := ChecksumHex([]byte(body))
	if got := payload[len(payload)-4:]; got != want {
		return errors.Wrapf(ErrChecksumMismatch, "got %s, want %s", got, want)
	}
	return nil
}

// Decoded is the semantic view of a verified payload.
type Decoded struct {
	FormatIndicator string
	GUI             string
	PaymentKey      string
	CategoryCode    string
	Currency        string
	Amount          decimal.NullDecimal
	Country         string
	MerchantName    string
	MerchantCity    string
	ReferenceLabel  string
	Checksum        string
}

// Decode verifies payload and extracts its fields.
func Decode(payload string) (*Decoded, error) {
	if err := Verify(payload); err != nil {
		return nil, err
	}
	fields, err := Parse(payload)
	if err != nil {
		return nil, err
	}

	d := &Decoded{}
	for _, f := range fields {
		switch f.ID {
		case idPayloadFormat:
			d.FormatIndicator = f.Value
		case idMerchantAccount:
			subs, err := ParseComposite(f.Value)
			if err != nil {
				return nil, fieldErr(f.ID, err)
			}
			if gui, ok := Find(subs, idAccountGUI); ok {
				d.GUI = gui.Value
			}
			if key, ok := Find(subs, idAccountKey); ok {
				d.PaymentKey = key.Value
			}
		case idCategoryCode:
			d.CategoryCode = f.Value
		case idCurrency:
			d.Currency = f.Value
		case idAmount:
			amount, err := decimal.NewFromString(f.Value)
			if err != nil {
				return nil, fieldErr(f.ID, errors.Wrap(ErrMalformedPayload, err.Error()))
			}
			d.Amount = Amount(amount)
		case idCountry:
			d.Country = f.Value
		case idMerchantName:
			d.MerchantName = f.Value
		case idMerchantCity:
			d.MerchantCity = f.Value
		case idAdditionalData:
			subs, err := ParseComposite(f.Value)
			if err != nil {
				return nil, fieldErr(f.ID, err)
			}
			if ref, ok := Find(subs, idReferenceLabel); ok {
				d.ReferenceLabel = ref.Value
			}
		case idCRC:
			d.Checksum = f.Value
		}
	}

	if d.PaymentKey == "" {
		return nil, fieldErr(idMerchantAccount, ErrEmptyRequiredValue)
	}
	return d, nil
}
