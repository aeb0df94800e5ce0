// =============================================================================
// BR Code Generator - Text Normalization
// =============================================================================
//
// Merchant name and city must be plain ASCII in the payload. Profile data
// usually carries Portuguese text ("João", "São Paulo", "Ribeirão Preto"),
// so the assembler folds it before truncating it to the limits of the
// standard.
//
// FOLDING PIPELINE (ASCIIFolder):
//   1. NFKD decomposition        "São"  -> "Sa" + U+0303 + "o"
//   2. Drop combining marks      "Sa~o" -> "Sao"
//   3. Keep ASCII letters, digits, spaces and . , - / & '
//   4. Uppercase, collapse whitespace, trim
//
// The strategy is pluggable through the Normalizer interface so a region
// specific folding table can replace the default without touching the
// assembler.
//
// =============================================================================

package brcode

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer turns free text into the character set accepted by the payload.
// Implementations must be deterministic and idempotent.
type Normalizer interface {
	Normalize(s string) string
}

// NormalizerFunc adapts a function to the Normalizer interface.
type NormalizerFunc func(s string) string

func (f NormalizerFunc) Normalize(s string) string {
	return f(s)
}

// ASCIIFolder is the default Normalizer.
type ASCIIFolder struct{}

// allowedPunct lists the punctuation kept by ASCIIFolder.
const allowedPunct = ".,-/&'"

// Normalize folds s to uppercase ASCII.
func (ASCIIFolder) Normalize(s string) string {
	// transform.Chain keeps state, so a fresh chain is built per call.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
			continue
		case r > unicode.MaxASCII:
			continue
		case 'a' <= r && r <= 'z':
			r -= 'a' - 'A'
		case 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
		case strings.ContainsRune(allowedPunct, r):
		default:
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Truncate cuts an ASCII string to at most n bytes and drops the trailing
// spaces the cut may leave behind.
func Truncate(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}
	return strings.TrimRight(s, " ")
}
