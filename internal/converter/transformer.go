// =============================================================================
// BR Code Generator - Transformation Engine
// =============================================================================
//
// Order files rarely arrive in the exact shape the payload needs. Each
// profile can attach a chain of actions to a column to clean it up before
// the row is mapped to a charge.
//
// TYPICAL USES:
//   - "R$ 1.234,50" -> "1234.50"            (decimal_comma)
//   - "PED-000123"  -> "000123"             (extract_digits)
//   - ""            -> value of another col (if_empty_use_field)
//   - "sp"          -> "SAO PAULO"          (lookup)
//
// Actions are validated when the Transformer is built, so a typo in a
// profile fails the file up front instead of on the first row.
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/brcode-generator/internal/config"
	"github.com/ginjaninja78/brcode-generator/internal/types"
)

var (
	digitsRe       = regexp.MustCompile(`\d+`)
	specialCharsRe = regexp.MustCompile(`[^a-zA-Z0-9]`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// knownActions lists the action types accepted by ApplyTransformation.
var knownActions = map[string]bool{
	"trim":                 true,
	"uppercase":            true,
	"lowercase":            true,
	"replace":              true,
	"regex_replace":        true,
	"substring":            true,
	"extract_digits":       true,
	"remove_special_chars": true,
	"normalize_whitespace": true,
	"if_empty_use_default": true,
	"if_empty_use_field":   true,
	"lookup":               true,
	"lookup_with_default":  true,
	"prepend_string":       true,
	"append_string":        true,
	"format_number":        true,
	"decimal_comma":        true,
}

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies the transformation rules of a profile to rows.
type Transformer struct {
	rules   []config.TransformationRule
	regexps map[string]*regexp.Regexp
}

// NewTransformer validates rules and returns a Transformer for them.
func NewTransformer(rules []config.TransformationRule) (*Transformer, error) {
	t := &Transformer{
		rules:   rules,
		regexps: make(map[string]*regexp.Regexp),
	}

	for _, rule := range rules {
		for _, action := range rule.Actions {
			if !knownActions[action.Type] {
				return nil, fmt.Errorf("field %q: unknown transformation type: %s", rule.Field, action.Type)
			}
			if action.Type == "regex_replace" && action.Find != "" {
				re, err := regexp.Compile(action.Find)
				if err != nil {
					return nil, fmt.Errorf("field %q: invalid regex pattern: %w", rule.Field, err)
				}
				t.regexps[action.Find] = re
			}
		}
	}
	return t, nil
}

// Transform applies the rule for fieldName (if any) to value.
func (t *Transformer) Transform(fieldName, value string, allFields map[string]string) (string, error) {
	result := value
	for _, rule := range t.rules {
		if rule.Field != fieldName {
			continue
		}
		for _, action := range rule.Actions {
			var err error
			result, err = t.apply(result, action, allFields)
			if err != nil {
				return "", fmt.Errorf("transformation '%s' failed: %w", action.Type, err)
			}
		}
	}
	return result, nil
}

// TransformRow applies every rule to row in rule order and returns the
// transformed copy. Columns named by a rule but absent from the file are
// created, so "if_empty_use_default" can add a column.
func (t *Transformer) TransformRow(row types.Row) (types.Row, error) {
	values := make(map[string]string, len(row.Values))
	for k, v := range row.Values {
		values[k] = v
	}

	for _, rule := range t.rules {
		result := values[rule.Field]
		for _, action := range rule.Actions {
			var err error
			result, err = t.apply(result, action, values)
			if err != nil {
				return row, fmt.Errorf("field '%s': transformation '%s' failed: %w", rule.Field, action.Type, err)
			}
		}
		values[rule.Field] = result
	}

	return types.Row{Number: row.Number, Values: values}, nil
}

func (t *Transformer) apply(value string, action config.TransformationAction, allFields map[string]string) (string, error) {
	if action.Type == "regex_replace" {
		re, ok := t.regexps[action.Find]
		if !ok {
			return value, nil
		}
		return re.ReplaceAllString(value, action.Value), nil
	}
	return ApplyTransformation(value, action, allFields)
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

// ApplyTransformation applies a single transformation action.
func ApplyTransformation(value string, action config.TransformationAction, allFields map[string]string) (string, error) {
	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "prepend_string":
		return action.Value + value, nil

	case "append_string":
		return value + action.Value, nil

	case "trim":
		if action.Value != "" {
			return strings.Trim(value, action.Value), nil
		}
		return strings.TrimSpace(value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "replace":
		if action.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		if action.Find == "" {
			return value, nil
		}
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return "", fmt.Errorf("invalid regex pattern: %w", err)
		}
		return re.ReplaceAllString(value, action.Value), nil

	case "substring":
		// VALUE FORMAT: "start,end" in characters, end exclusive.
		//   "ABCDEFGH" with "2,5" -> "CDE"
		parts := strings.Split(action.Value, ",")
		if len(parts) != 2 {
			return "", fmt.Errorf("substring expects \"start,end\", got %q", action.Value)
		}
		start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return "", fmt.Errorf("substring expects \"start,end\", got %q", action.Value)
		}

		runes := []rune(value)
		if start < 0 {
			start = 0
		}
		if end > len(runes) {
			end = len(runes)
		}
		if start >= end {
			return "", nil
		}
		return string(runes[start:end]), nil

	// =========================================================================
	// NUMERIC FORMATTING
	// =========================================================================

	case "format_number":
		// VALUE: number of decimal places. Non-numeric input is kept as is
		// and reported later by validation.
		//   "1234.5" with "2" -> "1234.50"
		places, err := strconv.Atoi(action.Value)
		if err != nil || places < 0 {
			return "", fmt.Errorf("format_number expects a number of places, got %q", action.Value)
		}
		num, err := decimal.NewFromString(value)
		if err != nil {
			return value, nil
		}
		return num.StringFixed(int32(places)), nil

	case "decimal_comma":
		// Brazilian notation to a plain decimal:
		//   "12,50" -> "12.50", "1.234,56" -> "1234.56", "R$ 7,9" -> "7.9"
		return FromDecimalComma(value), nil

	// =========================================================================
	// LOOKUP TABLE REPLACEMENTS
	// =========================================================================

	case "lookup":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return value, nil

	case "lookup_with_default":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return action.Value, nil

	// =========================================================================
	// FALLBACKS
	// =========================================================================

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value, nil
		}
		return value, nil

	case "if_empty_use_field":
		if strings.TrimSpace(value) == "" {
			if otherValue, exists := allFields[action.Value]; exists {
				return otherValue, nil
			}
		}
		return value, nil

	// =========================================================================
	// CLEANUP
	// =========================================================================

	case "extract_digits":
		return strings.Join(digitsRe.FindAllString(value, -1), ""), nil

	case "remove_special_chars":
		return specialCharsRe.ReplaceAllString(value, ""), nil

	case "normalize_whitespace":
		return strings.TrimSpace(whitespaceRe.ReplaceAllString(value, " ")), nil

	default:
		return "", fmt.Errorf("unknown transformation type: %s", action.Type)
	}
}

// FromDecimalComma converts an amount written with a decimal comma (and
// optionally "R$" and dot thousands separators) to dot notation. Values
// without a comma are returned trimmed.
func FromDecimalComma(value string) string {
	v := strings.TrimSpace(value)
	v = strings.TrimPrefix(v, "R$")
	v = strings.TrimSpace(v)

	if !strings.Contains(v, ",") {
		return v
	}
	v = strings.ReplaceAll(v, ".", "")
	return strings.Replace(v, ",", ".", 1)
}
