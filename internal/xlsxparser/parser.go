// =============================================================================
// Rechnungstool - XLSX Parser Module
// =============================================================================
//
// This module reads line items prepared in a spreadsheet. The first sheet is
// used unless a sheet name is given. Row 1 holds the headers, every following
// non-empty row is one record.
//
// EXAMPLE SHEET:
//   | Bezeichnung      | Menge | Einzelpreis |
//   |------------------|-------|-------------|
//   | Beratung         | 2     | 100         |
//   | Reisekosten      | 1     | 50          |
//
// Numeric cells are read as raw values so a cell formatted as "100,00 €"
// still arrives as "100".
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is a header-keyed view of one worksheet.
type Sheet struct {
	// Name is the worksheet name.
	Name string

	// Headers contains the trimmed cells of the first row.
	Headers []string

	// Rows contains the data rows as maps of header -> value.
	Rows []map[string]string

	// SourceFile is the path to the workbook.
	SourceFile string
}

// Parse reads the first sheet of the workbook at path.
//
// PARAMETERS:
//   - path: The path to the XLSX file.
//
// RETURNS:
//   - The parsed sheet.
//   - An error if the file cannot be read or has no header row.
func Parse(path string) (*Sheet, error) {
	return ParseSheet(path, "")
}

// ParseSheet reads the named sheet, or the first sheet if sheetName is empty.
func ParseSheet(path, sheetName string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 || isRowEmpty(rows[0]) {
		return nil, fmt.Errorf("sheet %q has no header row", sheetName)
	}

	sheet := &Sheet{
		Name:       sheetName,
		Headers:    make([]string, len(rows[0])),
		SourceFile: path,
	}
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		sheet.Headers[i] = h
	}

	for _, row := range rows[1:] {
		if len(row) == 0 || isRowEmpty(row) {
			continue
		}
		record := make(map[string]string, len(sheet.Headers))
		for i, h := range sheet.Headers {
			if i < len(row) {
				record[h] = strings.TrimSpace(row[i])
			} else {
				record[h] = ""
			}
		}
		sheet.Rows = append(sheet.Rows, record)
	}

	return sheet, nil
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
