package xlsxparser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newWorkbook(t *testing.T, sheet string, rows map[string][]interface{}) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })

	if sheet != "Sheet1" {
		require.NoError(t, f.SetSheetName("Sheet1", sheet))
	}
	for cell, values := range rows {
		require.NoError(t, f.SetSheetRow(sheet, cell, &values))
	}
	return f
}

func TestParseReader(t *testing.T) {
	f := newWorkbook(t, "Pedidos", map[string][]interface{}{
		"A2": {"Pedido", "Valor", "", "Cidade"},
		"A3": {"A1", 10, "Maria José"},
		"A5": {"A2", 12.5, "", "Recife"},
	})
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := ParseReader(buf, "")
	require.NoError(t, err)

	require.Equal(t, []string{"Pedido", "Valor", "Column_C", "Cidade"}, table.Headers)
	require.Len(t, table.Rows, 2)

	require.Equal(t, 3, table.Rows[0].Number)
	require.Equal(t, "10", table.Rows[0].Values["Valor"])
	require.Equal(t, "Maria José", table.Rows[0].Values["Column_C"])
	require.Equal(t, "", table.Rows[0].Values["Cidade"])

	require.Equal(t, 5, table.Rows[1].Number)
	require.Equal(t, "12.5", table.Rows[1].Values["Valor"])
	require.Equal(t, "Recife", table.Rows[1].Values["Cidade"])
}

func TestParseNamedSheet(t *testing.T) {
	f := newWorkbook(t, "Sheet1", map[string][]interface{}{"A1": {"ignored"}})
	_, err := f.NewSheet("Maio")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Maio", "A1", &[]interface{}{"Pedido", "Valor"}))
	require.NoError(t, f.SetSheetRow("Maio", "A2", &[]interface{}{"M1", "7.90"}))

	path := filepath.Join(t.TempDir(), "loja_pedidos.xlsx")
	require.NoError(t, f.SaveAs(path))

	table, err := Parse(path, "Maio")
	require.NoError(t, err)
	require.Equal(t, path, table.SourceFile)
	require.Equal(t, "7.90", table.Rows[0].Values["Valor"])

	_, err = Parse(path, "Junho")
	require.ErrorContains(t, err, `sheet "Junho" not found`)
}

func TestParseErrors(t *testing.T) {
	f := newWorkbook(t, "Sheet1", nil)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	_, err = ParseReader(buf, "")
	require.ErrorContains(t, err, "is empty")

	_, err = Parse(filepath.Join(t.TempDir(), "missing.xlsx"), "")
	require.ErrorContains(t, err, "failed to open workbook")
}
