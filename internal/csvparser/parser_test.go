package csvparser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/ginjaninja78/brcode-generator/internal/config"
	"github.com/ginjaninja78/brcode-generator/internal/types"
)

func settings(delimiter string) config.CSVSettings {
	return config.CSVSettings{Delimiter: delimiter, HeaderRows: 1, DataStartRow: 2}
}

func TestParseReader(t *testing.T) {
	in := "Pedido;Valor;Cliente\n" +
		"A1; 10,00 ;João\n" +
		";;\n" +
		"A2;12.5\n"

	table, err := ParseReader(strings.NewReader(in), settings("semicolon"))
	require.NoError(t, err)

	want := &types.Table{
		Headers: []string{"Pedido", "Valor", "Cliente"},
		Rows: []types.Row{
			{Number: 2, Values: map[string]string{"Pedido": "A1", "Valor": "10,00", "Cliente": "João"}},
			{Number: 4, Values: map[string]string{"Pedido": "A2", "Valor": "12.5", "Cliente": ""}},
		},
	}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Fatalf("ParseReader() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseReaderKeepsEmptyRows(t *testing.T) {
	keep := false
	s := settings(",")
	s.SkipEmptyRows = &keep

	table, err := ParseReader(strings.NewReader("a,b\n1,2\n,\n"), s)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	require.Equal(t, 3, table.Rows[1].Number)
}

func TestParseReaderMultiLineHeaders(t *testing.T) {
	in := "Pedido,,Cliente,\n" +
		"Numero,Valor,Nome,\n" +
		"# exported 2024-05-01,,,\n" +
		"A1,10.00,Maria,SP\n"

	table, err := ParseReader(strings.NewReader(in), config.CSVSettings{
		Delimiter:    ",",
		HeaderRows:   2,
		DataStartRow: 4,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Pedido Numero", "Valor", "Cliente Nome", "Column_4"}, table.Headers)
	require.Len(t, table.Rows, 1)
	require.Equal(t, 4, table.Rows[0].Number)
	require.Equal(t, "SP", table.Rows[0].Values["Column_4"])
}

func TestParseReaderDelimiters(t *testing.T) {
	tests := []struct {
		delimiter string
		input     string
	}{
		{delimiter: "", input: "a,b\n1,2\n"},
		{delimiter: "comma", input: "a,b\n1,2\n"},
		{delimiter: "|", input: "a|b\n1|2\n"},
		{delimiter: "pipe", input: "a|b\n1|2\n"},
		{delimiter: "tab", input: "a\tb\n1\t2\n"},
		{delimiter: "\\t", input: "a\tb\n1\t2\n"},
		{delimiter: "#", input: "a#b\n1#2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.delimiter, func(t *testing.T) {
			table, err := ParseReader(strings.NewReader(tt.input), settings(tt.delimiter))
			require.NoError(t, err)
			require.Equal(t, map[string]string{"a": "1", "b": "2"}, table.Rows[0].Values)
		})
	}
}

func TestParseReaderEncodings(t *testing.T) {
	latin1, err := charmap.ISO8859_1.NewEncoder().String("Nome;Cidade\nJosé;São Paulo\n")
	require.NoError(t, err)

	s := settings(";")
	s.Encoding = "ISO-8859-1"
	table, err := ParseReader(strings.NewReader(latin1), s)
	require.NoError(t, err)
	require.Equal(t, "José", table.Rows[0].Values["Nome"])
	require.Equal(t, "São Paulo", table.Rows[0].Values["Cidade"])

	cp1252, err := charmap.Windows1252.NewEncoder().String("Nome\nAção\n")
	require.NoError(t, err)
	s.Encoding = "windows-1252"
	table, err = ParseReader(strings.NewReader(cp1252), s)
	require.NoError(t, err)
	require.Equal(t, "Ação", table.Rows[0].Values["Nome"])
}

func TestParseReaderStripsBOM(t *testing.T) {
	table, err := ParseReader(strings.NewReader("\ufeffValor,Pedido\n1,A\n"), settings(","))
	require.NoError(t, err)
	require.Equal(t, []string{"Valor", "Pedido"}, table.Headers)
}

func TestParseReaderErrors(t *testing.T) {
	_, err := ParseReader(strings.NewReader(""), settings(","))
	require.ErrorContains(t, err, "unexpected end of file")

	s := settings(",")
	s.Encoding = "EBCDIC"
	_, err = ParseReader(strings.NewReader("a\n1\n"), s)
	require.ErrorContains(t, err, "unsupported encoding")

	s = settings(",")
	s.HeaderRows = 0
	_, err = ParseReader(strings.NewReader("a\n1\n"), s)
	require.ErrorContains(t, err, "header_rows must be at least 1")
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loja_pedidos.csv")
	require.NoError(t, os.WriteFile(path, []byte("Pedido,Valor\nA1,10\n"), 0o644))

	table, err := Parse(path, settings(","))
	require.NoError(t, err)
	require.Equal(t, path, table.SourceFile)
	require.Len(t, table.Rows, 1)

	_, err = Parse(filepath.Join(t.TempDir(), "missing.csv"), settings(","))
	require.ErrorContains(t, err, "failed to open file")
}

func TestStreamingParser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.csv")
	var b strings.Builder
	b.WriteString("Pedido,Valor\n")
	for i := 0; i < 50; i++ {
		b.WriteString("A,1\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	parser, err := NewStreamingParser(path, settings(","))
	require.NoError(t, err)
	defer parser.Close()

	count := 0
	for parser.Next() {
		count++
		require.Equal(t, count+1, parser.Row().Number)
	}
	require.NoError(t, parser.Err())
	require.Equal(t, 50, count)
	require.Equal(t, []string{"Pedido", "Valor"}, parser.Headers())
}
