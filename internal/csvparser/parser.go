// =============================================================================
// BR Code Generator - CSV Parser Module
// =============================================================================
//
// This module reads order files exported as CSV. Exports from Brazilian
// spreadsheet and ERP tools come in many shapes, so the parser handles:
//   - Different delimiters (comma, semicolon, pipe, tab)
//   - Multi-line headers
//   - Custom data start rows
//   - Legacy encodings (ISO-8859-1, Windows-1252) and UTF-8 with BOM
//
// Every record keeps its 1-based record number so that validation errors
// can point at the offending line.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/brcode-generator/internal/config"
	"github.com/ginjaninja78/brcode-generator/internal/types"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file into a Table.
//
// PARSING PROCESS:
//   1. Decode the file from the configured encoding to UTF-8
//   2. Configure the CSV reader with the configured delimiter
//   3. Read and merge header rows (for multi-line headers)
//   4. Read data rows starting from the configured data start row
//
// The rows are collected through a StreamingParser; use it directly when
// the file does not need to be held in memory.
func Parse(filePath string, settings config.CSVSettings) (*types.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	table, err := ParseReader(file, settings)
	if err != nil {
		return nil, err
	}
	table.SourceFile = filePath
	return table, nil
}

// ParseReader is Parse for an arbitrary reader (stdin, tests).
func ParseReader(r io.Reader, settings config.CSVSettings) (*types.Table, error) {
	parser, err := NewStreamingReader(r, settings)
	if err != nil {
		return nil, err
	}

	table := &types.Table{Headers: parser.Headers(), Rows: []types.Row{}}
	for parser.Next() {
		table.Rows = append(table.Rows, parser.Row())
	}
	if err := parser.Err(); err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return table, nil
}

// decodeReader wraps r so that it yields UTF-8.
func decodeReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.ReplaceAll(name, "_", "-")) {
	case "", "UTF-8", "UTF8":
		return unicode.UTF8BOM, nil
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		return charmap.ISO8859_1, nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon", "SEMICOLON":
		reader.Comma = ';'
	case "", "comma", "COMMA":
		reader.Comma = ','
	default:
		reader.Comma = rune(settings.Delimiter[0])
	}

	// Exports often end rows with a trailing delimiter or leave cells out.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// extractHeaders merges the first headerRows rows into one header per
// column.
//
//   Row 1: "Pedido", "",      "Cliente", ""
//   Row 2: "Numero", "Valor", "Nome",    "Cidade"
//   Result: "Pedido Numero", "Valor", "Cliente Nome", "Cidade"
func extractHeaders(allRows [][]string, headerRows int) ([]string, error) {
	if headerRows <= 0 {
		return nil, fmt.Errorf("header_rows must be at least 1")
	}
	if len(allRows) < headerRows {
		return nil, fmt.Errorf("file has fewer rows than header_rows setting")
	}

	if headerRows == 1 {
		return cleanHeaders(allRows[0]), nil
	}

	maxCols := 0
	for i := 0; i < headerRows; i++ {
		if len(allRows[i]) > maxCols {
			maxCols = len(allRows[i])
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for row := 0; row < headerRows; row++ {
			if col < len(allRows[row]) {
				if value := strings.TrimSpace(allRows[row][col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return cleanHeaders(headers), nil
}

// cleanHeaders trims headers and names empty ones after their position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
}

func rowValues(headers, record []string) map[string]string {
	values := make(map[string]string, len(headers))
	for i, header := range headers {
		if i < len(record) {
			values[header] = strings.TrimSpace(record[i])
		} else {
			values[header] = ""
		}
	}
	return values
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// STREAMING PARSER FOR LARGE FILES
// =============================================================================

// StreamingParser reads one row at a time instead of loading the whole
// file.
//
// USAGE:
//   parser, err := NewStreamingParser(filePath, settings)
//   if err != nil {
//       return err
//   }
//   defer parser.Close()
//
//   for parser.Next() {
//       row := parser.Row()
//   }
//   if err := parser.Err(); err != nil {
//       return err
//   }
type StreamingParser struct {
	closer    io.Closer
	reader    *csv.Reader
	headers   []string
	current   types.Row
	rowNumber int
	err       error
	settings  config.CSVSettings
}

// NewStreamingParser opens filePath and reads its header rows.
func NewStreamingParser(filePath string, settings config.CSVSettings) (*StreamingParser, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	parser, err := NewStreamingReader(file, settings)
	if err != nil {
		file.Close()
		return nil, err
	}
	parser.closer = file
	return parser, nil
}

// NewStreamingReader is NewStreamingParser for an arbitrary reader.
func NewStreamingReader(r io.Reader, settings config.CSVSettings) (*StreamingParser, error) {
	decoded, err := decodeReader(r, settings.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bufio.NewReader(decoded))
	configureReader(reader, settings)

	parser := &StreamingParser{reader: reader, settings: settings}
	if err := parser.readHeaders(); err != nil {
		return nil, err
	}
	if err := parser.skipToDataStart(); err != nil {
		return nil, err
	}
	return parser, nil
}

func (p *StreamingParser) readHeaders() error {
	headerRows := make([][]string, 0, p.settings.HeaderRows)

	for i := 0; i < p.settings.HeaderRows; i++ {
		row, err := p.reader.Read()
		if err == io.EOF {
			return fmt.Errorf("unexpected end of file while reading headers")
		}
		if err != nil {
			return fmt.Errorf("error reading header row %d: %w", i+1, err)
		}
		headerRows = append(headerRows, row)
		p.rowNumber++
	}

	headers, err := extractHeaders(headerRows, p.settings.HeaderRows)
	if err != nil {
		return err
	}
	p.headers = headers
	return nil
}

func (p *StreamingParser) skipToDataStart() error {
	for p.rowNumber < p.settings.DataStartRow-1 {
		_, err := p.reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error skipping to data start: %w", err)
		}
		p.rowNumber++
	}
	return nil
}

// Next advances to the next row. Returns false when there are no more rows.
func (p *StreamingParser) Next() bool {
	for p.err == nil {
		record, err := p.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			p.err = fmt.Errorf("error reading row %d: %w", p.rowNumber+1, err)
			return false
		}
		p.rowNumber++

		if p.settings.ShouldSkipEmptyRows() && isRowEmpty(record) {
			continue
		}
		p.current = types.Row{Number: p.rowNumber, Values: rowValues(p.headers, record)}
		return true
	}
	return false
}

// Row returns the current row.
func (p *StreamingParser) Row() types.Row {
	return p.current
}

// Headers returns the parsed headers.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close closes the underlying file, if any.
func (p *StreamingParser) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
