package businessflow

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Accepted upload extensions
const (
	ExtXLSX = ".xlsx"
	ExtCSV  = ".csv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SheetRow is a non-blank data row with its spreadsheet display number.
// Number is the position among kept rows plus 2, accounting for the header.
type SheetRow struct {
	Number int
	Cells  []string
}

// Cell returns the trimmed cell at i, or an empty string past the row end
func (r SheetRow) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[i])
}

// UploadExtension returns the lower-cased extension when it is accepted, otherwise ""
func UploadExtension(fileName string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(fileName)))
	switch ext {
	case ExtXLSX, ExtCSV:
		return ext
	}
	return ""
}

// ParseSpreadsheet reads the first sheet of an xlsx workbook or a csv file.
// The first row is a header and is discarded; fully blank rows are dropped.
func ParseSpreadsheet(r io.Reader, fileName string) ([]SheetRow, error) {
	var (
		grid [][]string
		err  error
	)
	switch UploadExtension(fileName) {
	case ExtXLSX:
		grid, err = readXLSX(r)
	case ExtCSV:
		grid, err = readCSV(r)
	default:
		return nil, ErrUploadExtensionInvalid
	}
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, errors.New("the file has no header row")
	}

	rows := make([]SheetRow, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		if isBlankRow(cells) {
			continue
		}
		rows = append(rows, SheetRow{Number: len(rows) + 2, Cells: cells})
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = xl.Close() }()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("the workbook has no sheets")
	}
	rows, err := xl.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseAmount parses a money cell such as "120,000원" after dropping every
// character other than digits, '.' and '-'.
func ParseAmount(raw string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, ch := range raw {
		if (ch >= '0' && ch <= '9') || ch == '.' || ch == '-' {
			b.WriteRune(ch)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%q is not a number", raw)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not a number", raw)
	}
	return d, nil
}

// SplitNames splits a comma separated list, trimming and dropping empty entries
func SplitNames(raw string) []string {
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if n := strings.TrimSpace(p); n != "" {
			names = append(names, n)
		}
	}
	return names
}
