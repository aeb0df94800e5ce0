// =============================================================================
// BR Code Generator - XLSX Order Sheet Parser
// =============================================================================
//
// Merchants often keep their orders in a spreadsheet. This module reads one
// worksheet of an order workbook into the same Table shape the CSV parser
// produces, so the rest of the pipeline does not care about the format.
//
// SHEET LAYOUT (Expected):
//
//   | Column A | Column B | Column C       | Column D  |
//   |----------|----------|----------------|-----------|
//   | Pedido   | Valor    | Cliente        | Cidade    |   <- header row
//   | A1       | 10       | Maria José     | Recife    |
//   | A2       | 12.5     |                |           |
//
//   - The first non-empty row is the header row.
//   - Cells are read with RawCellValue so a number formatted as "R$ 10,00"
//     reaches the pipeline as "10".
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/brcode-generator/internal/types"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads the named worksheet (the first one when sheet is empty).
//
// RETURNS:
//   - The worksheet as a Table; row numbers are spreadsheet row numbers.
//   - An error if the workbook cannot be opened or the sheet does not exist.
func Parse(filePath, sheet string) (*types.Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	table, err := parseFile(f, sheet)
	if err != nil {
		return nil, err
	}
	table.SourceFile = filePath
	return table, nil
}

// ParseReader is Parse for an in-memory workbook.
func ParseReader(r io.Reader, sheet string) (*types.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return parseFile(f, sheet)
}

func parseFile(f *excelize.File, sheet string) (*types.Table, error) {
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found (available: %s)", sheet, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	headerIndex := -1
	for i, row := range rows {
		if !isRowEmpty(row) {
			headerIndex = i
			break
		}
	}
	if headerIndex < 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	headers := cleanHeaders(rows[headerIndex])
	table := &types.Table{Headers: headers, Rows: []types.Row{}}

	for i := headerIndex + 1; i < len(rows); i++ {
		if isRowEmpty(rows[i]) {
			continue
		}
		values := make(map[string]string, len(headers))
		for col, header := range headers {
			if col < len(rows[i]) {
				values[header] = strings.TrimSpace(rows[i][col])
			} else {
				values[header] = ""
			}
		}
		table.Rows = append(table.Rows, types.Row{Number: i + 1, Values: values})
	}

	return table, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func cleanHeaders(row []string) []string {
	headers := make([]string, len(row))
	for i, cell := range row {
		header := strings.TrimSpace(cell)
		if header == "" {
			name, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				name = fmt.Sprintf("%d", i+1)
			}
			header = "Column_" + name
		}
		headers[i] = header
	}
	return headers
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
