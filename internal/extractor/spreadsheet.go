package extractor

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const cellSeparator = " | "

func extractDelimited(data []byte, comma rune) (string, error) {
	reader := csv.NewReader(strings.NewReader(decodeText(data)))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse delimited file: %w", err)
	}
	return strings.Join(flattenRows(rows), "\n"), nil
}

func extractWorkbook(data []byte) (text string, warnings []string, err error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var sections []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("sheet %q skipped: %v", sheet, err))
			continue
		}
		lines := flattenRows(rows)
		if len(lines) == 0 {
			continue
		}
		sections = append(sections, "Sheet: "+sheet+"\n"+strings.Join(lines, "\n"))
	}
	return strings.Join(sections, "\n\n"), warnings, nil
}

// flattenRows turns a grid into one line per data row, row-major, with each
// value labelled by its column header: "Name: Ada | Amount: 12".
// The first row with any content is the header row.
func flattenRows(rows [][]string) []string {
	var headers []string
	var lines []string
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if headers == nil {
			headers = make([]string, len(row))
			for i, h := range row {
				headers[i] = columnLabel(h, i)
			}
			continue
		}
		for len(headers) < len(row) {
			headers = append(headers, columnLabel("", len(headers)))
		}
		parts := make([]string, len(headers))
		for i, h := range headers {
			value := ""
			if i < len(row) {
				value = strings.Join(strings.Fields(row[i]), " ")
			}
			parts[i] = h + ": " + value
		}
		lines = append(lines, strings.Join(parts, cellSeparator))
	}
	if len(lines) == 0 && headers != nil {
		return []string{strings.Join(headers, cellSeparator)}
	}
	return lines
}

func columnLabel(header string, idx int) string {
	header = strings.Join(strings.Fields(header), " ")
	if header == "" {
		return fmt.Sprintf("Column %d", idx+1)
	}
	return header
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
