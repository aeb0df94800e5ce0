// =============================================================================
// BR Code Generator - Payload Assembler
// =============================================================================
//
// The assembler turns a payee identity plus an optional amount into the flat
// "copia e cola" string that wallets scan from a static QR code.
//
// FIELD ORDER (fixed, fragment 10 always last):
//   00  Payload format indicator        "01"
//   26  Merchant account information    00 = GUI, 01 = payment key
//   52  Merchant category code          "0000"
//   53  Transaction currency            "986"
//   54  Transaction amount              omitted when null or <= 0
//   58  Country code                    "BR"
//   59  Merchant name                   normalized, max 25
//   60  Merchant city                   normalized, max 15
//   62  Additional data field template  05 = reference label, max 25
//   63  CRC16                           over everything before + "6304"
//
// EXAMPLE:
//   00020126350014br.gov.bcb.pix0113user@bank.com520400005303986
//   540510.005802BR5913JOAO DA SILVA6009SAO PAULO62100506TXN1236304193D
//
// =============================================================================

package brcode

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultGUI identifies the Pix arrangement inside the merchant account block.
	DefaultGUI = "br.gov.bcb.pix"

	// DefaultCurrency is the ISO 4217 numeric code of the Brazilian real.
	DefaultCurrency = "986"

	// DefaultCountry is the ISO 3166-1 alpha-2 code of Brazil.
	DefaultCountry = "BR"

	// DefaultCategoryCode is used when the merchant category is not informed.
	DefaultCategoryCode = "0000"

	// ReferencePlaceholder replaces an empty reference label.
	ReferencePlaceholder = "***"

	MaxNameLen      = 25
	MaxCityLen      = 15
	MaxReferenceLen = 25
	MaxAmountLen    = 13
)

const (
	idPayloadFormat   = "00"
	idMerchantAccount = "26"
	idAccountGUI      = "00"
	idAccountKey      = "01"
	idCategoryCode    = "52"
	idCurrency        = "53"
	idAmount          = "54"
	idCountry         = "58"
	idMerchantName    = "59"
	idMerchantCity    = "60"
	idAdditionalData  = "62"
	idReferenceLabel  = "05"
	idCRC             = "63"

	payloadFormatVersion = "01"
	crcHeader            = idCRC + "04"
)

// =============================================================================
// INPUT
// =============================================================================

// Input is the caller supplied data for one payload. It is read only during
// Build and never retained.
type Input struct {
	// PaymentKey is the registered Pix key (e-mail, phone, CPF/CNPJ or random
	// key). It is copied verbatim into the payload.
	PaymentKey string

	// MerchantName and MerchantCity are free text; they are normalized and
	// truncated to 25 and 15 characters.
	MerchantName string
	MerchantCity string

	// Amount is optional. A null or non-positive amount omits field 54 and
	// lets the payer type the value.
	Amount decimal.NullDecimal

	// TransactionID becomes the reference label of field 62.
	TransactionID string
}

// Amount wraps d as a present amount.
func Amount(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder assembles payloads. A Builder is immutable once created and safe
// for concurrent use.
type Builder struct {
	normalizer   Normalizer
	gui          string
	currency     string
	country      string
	categoryCode string
}

// Option configures a Builder.
type Option func(*Builder)

// WithNormalizer replaces the folding strategy used for name and city.
func WithNormalizer(n Normalizer) Option {
	return func(b *Builder) {
		if n != nil {
			b.normalizer = n
		}
	}
}

// WithGUI overrides the arrangement identifier of field 26.
func WithGUI(gui string) Option {
	return func(b *Builder) { b.gui = gui }
}

// WithCurrency overrides the numeric currency code of field 53.
func WithCurrency(code string) Option {
	return func(b *Builder) { b.currency = code }
}

// WithCountry overrides the country code of field 58.
func WithCountry(code string) Option {
	return func(b *Builder) { b.country = code }
}

// WithCategoryCode overrides the merchant category code of field 52.
func WithCategoryCode(code string) Option {
	return func(b *Builder) { b.categoryCode = code }
}

// NewBuilder returns a Builder with the Pix defaults and the given options.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		normalizer:   ASCIIFolder{},
		gui:          DefaultGUI,
		currency:     DefaultCurrency,
		country:      DefaultCountry,
		categoryCode: DefaultCategoryCode,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var defaultBuilder = NewBuilder()

// Build assembles a payload with the default Builder.
func Build(in Input) (string, error) {
	return defaultBuilder.Build(in)
}

// Build assembles the payload for in.
//
// RETURNS:
//   - The payload string, printable ASCII, ending in "6304" + 4 hex digits.
//   - ErrEmptyRequiredValue when the payment key (or the normalized name or
//     city) is blank; ErrFieldTooLong when the verbatim payment key or the
//     amount cannot fit their fields.
//   - ErrInvalidValue (or ErrEmptyRequiredValue for the GUI) when an option
//     set a registry value wallets would reject.
func (b *Builder) Build(in Input) (string, error) {
	if err := b.checkRegistry(); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.PaymentKey) == "" {
		return "", fieldErr(idMerchantAccount, ErrEmptyRequiredValue)
	}

	name := Truncate(b.normalizer.Normalize(in.MerchantName), MaxNameLen)
	if name == "" {
		return "", fieldErr(idMerchantName, ErrEmptyRequiredValue)
	}
	city := Truncate(b.normalizer.Normalize(in.MerchantCity), MaxCityLen)
	if city == "" {
		return "", fieldErr(idMerchantCity, ErrEmptyRequiredValue)
	}

	amount, hasAmount := FormatAmount(in.Amount)
	if len(amount) > MaxAmountLen {
		return "", fieldErr(idAmount, ErrFieldTooLong)
	}

	w := &payloadWriter{}
	w.field(idPayloadFormat, payloadFormatVersion)
	w.composite(idMerchantAccount,
		Field{ID: idAccountGUI, Value: b.gui},
		Field{ID: idAccountKey, Value: in.PaymentKey},
	)
	w.field(idCategoryCode, b.categoryCode)
	w.field(idCurrency, b.currency)
	if hasAmount {
		w.field(idAmount, amount)
	}
	w.field(idCountry, b.country)
	w.field(idMerchantName, name)
	w.field(idMerchantCity, city)
	w.composite(idAdditionalData,
		Field{ID: idReferenceLabel, Value: ReferenceLabel(in.TransactionID)},
	)
	if w.err != nil {
		return "", w.err
	}

	w.sb.WriteString(crcHeader)
	w.sb.WriteString(ChecksumHex([]byte(w.sb.String())))
	return w.sb.String(), nil
}

// checkRegistry rejects option values that would produce fields wallets
// refuse to read.
func (b *Builder) checkRegistry() error {
	if strings.TrimSpace(b.gui) == "" {
		return fieldErr(idMerchantAccount, ErrEmptyRequiredValue)
	}
	if err := CheckCategoryCode(b.categoryCode); err != nil {
		return err
	}
	if len(b.currency) != 3 || !allDigits(b.currency) {
		return fieldErr(idCurrency, errors.Wrapf(ErrInvalidValue, "currency %q is not 3 digits", b.currency))
	}
	if len(b.country) != 2 || !isUpper(b.country[0]) || !isUpper(b.country[1]) {
		return fieldErr(idCountry, errors.Wrapf(ErrInvalidValue, "country %q is not 2 uppercase letters", b.country))
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// CheckCategoryCode reports an error unless code is a 4-digit merchant
// category code.
func CheckCategoryCode(code string) error {
	if len(code) != 4 || !allDigits(code) {
		return fieldErr(idCategoryCode, errors.Wrapf(ErrInvalidValue, "category code %q is not 4 digits", code))
	}
	return nil
}

func isUpper(c byte) bool {
	return 'A' <= c && c <= 'Z'
}

// FormatAmount renders a present, positive amount with exactly two decimals
// and a period separator ("12.5" -> "12.50"). The amount is rounded to
// cents first; anything that rounds to zero or less is reported absent.
func FormatAmount(a decimal.NullDecimal) (string, bool) {
	if !a.Valid {
		return "", false
	}
	cents := a.Decimal.Round(2)
	if !cents.IsPositive() {
		return "", false
	}
	return cents.StringFixed(2), true
}

// ReferenceLabel sanitizes a transaction id for field 62/05: only ASCII
// letters and digits are kept, the result is cut to 25 characters and an
// empty label becomes "***". Punctuation is dropped on purpose, since the
// txid charset wallets accept is alphanumeric ("PED-2024/001" becomes
// "PED2024001").
func ReferenceLabel(txid string) string {
	var b strings.Builder
	for i := 0; i < len(txid) && b.Len() < MaxReferenceLen; i++ {
		c := txid[i]
		if ('0' <= c && c <= '9') || ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z') {
			b.WriteByte(c)
		}
	}
	if b.Len() == 0 {
		return ReferencePlaceholder
	}
	return b.String()
}

// payloadWriter accumulates fragments and keeps the first error.
type payloadWriter struct {
	sb  strings.Builder
	err error
}

func (w *payloadWriter) field(id, value string) {
	if w.err != nil {
		return
	}
	fragment, err := EncodeField(id, value)
	if err != nil {
		w.err = err
		return
	}
	w.sb.WriteString(fragment)
}

func (w *payloadWriter) composite(id string, subfields ...Field) {
	if w.err != nil {
		return
	}
	fragment, err := BuildComposite(id, subfields...)
	if err != nil {
		w.err = err
		return
	}
	w.sb.WriteString(fragment)
}
