package converter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/brcode-generator/internal/config"
	"github.com/ginjaninja78/brcode-generator/internal/types"
)

func TestApplyTransformation(t *testing.T) {
	fields := map[string]string{"Cidade": "Recife"}

	tests := []struct {
		name   string
		value  string
		action config.TransformationAction
		want   string
	}{
		{name: "trim", value: "  A1 ", action: config.TransformationAction{Type: "trim"}, want: "A1"},
		{name: "trim chars", value: "##A1#", action: config.TransformationAction{Type: "trim", Value: "#"}, want: "A1"},
		{name: "uppercase", value: "loja", action: config.TransformationAction{Type: "uppercase"}, want: "LOJA"},
		{name: "lowercase", value: "LOJA", action: config.TransformationAction{Type: "lowercase"}, want: "loja"},
		{name: "replace", value: "PED-1", action: config.TransformationAction{Type: "replace", Find: "-", Value: ""}, want: "PED1"},
		{name: "regex", value: "PED-001", action: config.TransformationAction{Type: "regex_replace", Find: `^PED-0*`, Value: "P"}, want: "P1"},
		{name: "substring", value: "ABCDEFGH", action: config.TransformationAction{Type: "substring", Value: "2,5"}, want: "CDE"},
		{name: "substring runes", value: "JOÃOZINHO", action: config.TransformationAction{Type: "substring", Value: "0,4"}, want: "JOÃO"},
		{name: "substring past end", value: "AB", action: config.TransformationAction{Type: "substring", Value: "1,9"}, want: "B"},
		{name: "extract digits", value: "PED-123-A-45", action: config.TransformationAction{Type: "extract_digits"}, want: "12345"},
		{name: "special chars", value: "A-1/2 b", action: config.TransformationAction{Type: "remove_special_chars"}, want: "A12b"},
		{name: "whitespace", value: " a \t b\n", action: config.TransformationAction{Type: "normalize_whitespace"}, want: "a b"},
		{name: "default", value: " ", action: config.TransformationAction{Type: "if_empty_use_default", Value: "X"}, want: "X"},
		{name: "default kept", value: "Y", action: config.TransformationAction{Type: "if_empty_use_default", Value: "X"}, want: "Y"},
		{name: "use field", value: "", action: config.TransformationAction{Type: "if_empty_use_field", Value: "Cidade"}, want: "Recife"},
		{name: "lookup", value: "sp", action: config.TransformationAction{Type: "lookup", LookupTable: map[string]string{"sp": "SAO PAULO"}}, want: "SAO PAULO"},
		{name: "lookup miss", value: "rj", action: config.TransformationAction{Type: "lookup", LookupTable: map[string]string{"sp": "SAO PAULO"}}, want: "rj"},
		{name: "lookup default", value: "rj", action: config.TransformationAction{Type: "lookup_with_default", Value: "BRASILIA", LookupTable: map[string]string{}}, want: "BRASILIA"},
		{name: "prepend", value: "123", action: config.TransformationAction{Type: "prepend_string", Value: "PED"}, want: "PED123"},
		{name: "append", value: "123", action: config.TransformationAction{Type: "append_string", Value: "X"}, want: "123X"},
		{name: "format number", value: "1234.5", action: config.TransformationAction{Type: "format_number", Value: "2"}, want: "1234.50"},
		{name: "format not a number", value: "abc", action: config.TransformationAction{Type: "format_number", Value: "2"}, want: "abc"},
		{name: "decimal comma", value: "12,50", action: config.TransformationAction{Type: "decimal_comma"}, want: "12.50"},
		{name: "decimal comma thousands", value: "R$ 1.234,56", action: config.TransformationAction{Type: "decimal_comma"}, want: "1234.56"},
		{name: "decimal comma plain", value: " 10.00 ", action: config.TransformationAction{Type: "decimal_comma"}, want: "10.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyTransformation(tt.value, tt.action, fields)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestApplyTransformationErrors(t *testing.T) {
	for _, action := range []config.TransformationAction{
		{Type: "explode"},
		{Type: "substring", Value: "3"},
		{Type: "format_number", Value: "two"},
		{Type: "regex_replace", Find: "("},
	} {
		_, err := ApplyTransformation("x", action, nil)
		require.Error(t, err, action.Type)
	}
}

func TestNewTransformerRejectsBadRules(t *testing.T) {
	_, err := NewTransformer([]config.TransformationRule{
		{Field: "Valor", Actions: []config.TransformationAction{{Type: "explode"}}},
	})
	require.ErrorContains(t, err, "unknown transformation type: explode")

	_, err = NewTransformer([]config.TransformationRule{
		{Field: "Pedido", Actions: []config.TransformationAction{{Type: "regex_replace", Find: "("}}},
	})
	require.ErrorContains(t, err, "invalid regex pattern")
}

func TestTransformRow(t *testing.T) {
	tr, err := NewTransformer([]config.TransformationRule{
		{Field: "Valor", Actions: []config.TransformationAction{{Type: "decimal_comma"}}},
		{Field: "Pedido", Actions: []config.TransformationAction{
			{Type: "regex_replace", Find: `\D`, Value: ""},
			{Type: "prepend_string", Value: "PED"},
		}},
		{Field: "Cidade", Actions: []config.TransformationAction{{Type: "if_empty_use_default", Value: "Recife"}}},
	})
	require.NoError(t, err)

	in := types.Row{Number: 7, Values: map[string]string{"Valor": "1.050,00", "Pedido": "#42"}}
	out, err := tr.TransformRow(in)
	require.NoError(t, err)

	require.Equal(t, 7, out.Number)
	require.Equal(t, map[string]string{"Valor": "1050.00", "Pedido": "PED42", "Cidade": "Recife"}, out.Values)
	require.Equal(t, "#42", in.Values["Pedido"], "input row must not be modified")

	got, err := tr.Transform("Valor", "9,9", nil)
	require.NoError(t, err)
	require.Equal(t, "9.9", got)

	got, err = tr.Transform("Outro", "9,9", nil)
	require.NoError(t, err)
	require.Equal(t, "9,9", got)
}
