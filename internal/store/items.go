package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rechnungstool/internal/csvparser"
	"github.com/ginjaninja78/rechnungstool/internal/format"
	"github.com/ginjaninja78/rechnungstool/internal/types"
	"github.com/ginjaninja78/rechnungstool/internal/xlsxparser"
)

var (
	descriptionHeaders = []string{"Bezeichnung", "Beschreibung", "Leistung", "Description"}
	quantityHeaders    = []string{"Menge", "Anzahl", "Quantity"}
	priceHeaders       = []string{"Einzelpreis", "Preis", "Unit Price", "UnitPrice"}
)

// LoadItems reads line items from a .csv or .xlsx file. CSV files may use
// comma or semicolon separators.
func LoadItems(path string) ([]types.LineItem, error) {
	headers, rows, err := ReadTable(path, descriptionHeaders)
	if err != nil {
		return nil, err
	}
	items, err := ItemsFromRecords(headers, rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// ReadTable reads header-keyed rows from a .csv or .xlsx file. A CSV file is
// re-read with ';' when none of probe is found among the comma-split headers.
func ReadTable(path string, probe []string) ([]string, []map[string]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		sheet, err := xlsxparser.Parse(path)
		if err != nil {
			return nil, nil, err
		}
		return sheet.Headers, sheet.Rows, nil
	case ".csv", ".txt":
		data, err := csvparser.Parse(path, csvparser.DefaultSettings())
		if err != nil {
			return nil, nil, err
		}
		if FindHeader(data.Headers, probe) == "" {
			data, err = csvparser.Parse(path, csvparser.Settings{Delimiter: ";"})
			if err != nil {
				return nil, nil, err
			}
		}
		return data.Headers, data.Rows, nil
	}
	return nil, nil, fmt.Errorf("unsupported file %s: expected .csv or .xlsx", path)
}

// ItemsFromRecords converts header-keyed rows to line items in row order.
func ItemsFromRecords(headers []string, rows []map[string]string) ([]types.LineItem, error) {
	descCol, qtyCol, priceCol, err := ItemColumns(headers)
	if err != nil {
		return nil, err
	}

	items := make([]types.LineItem, 0, len(rows))
	for i, row := range rows {
		item, err := NewLineItem(row[descCol], row[qtyCol], row[priceCol])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// ItemColumns resolves the description, quantity and unit price headers.
func ItemColumns(headers []string) (desc, qty, price string, err error) {
	desc = FindHeader(headers, descriptionHeaders)
	qty = FindHeader(headers, quantityHeaders)
	price = FindHeader(headers, priceHeaders)
	if desc == "" || qty == "" || price == "" {
		return "", "", "", fmt.Errorf("item columns Bezeichnung, Menge and Einzelpreis are required, found %v", headers)
	}
	return desc, qty, price, nil
}

// ParseItemSpec parses "description;quantity;unit price".
func ParseItemSpec(spec string) (types.LineItem, error) {
	parts := strings.Split(spec, ";")
	if len(parts) != 3 {
		return types.LineItem{}, fmt.Errorf("item %q: expected \"description;quantity;price\"", spec)
	}
	return NewLineItem(parts[0], parts[1], parts[2])
}

// NewLineItem validates and converts the textual parts of a line item.
func NewLineItem(description, quantity, unitPrice string) (types.LineItem, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return types.LineItem{}, fmt.Errorf("item description is empty")
	}
	qty, err := format.ParseDecimal(quantity)
	if err != nil {
		return types.LineItem{}, fmt.Errorf("item %q: quantity: %w", description, err)
	}
	if !qty.IsPositive() {
		return types.LineItem{}, fmt.Errorf("item %q: quantity must be positive", description)
	}
	price, err := format.ParseDecimal(unitPrice)
	if err != nil {
		return types.LineItem{}, fmt.Errorf("item %q: unit price: %w", description, err)
	}
	if price.LessThan(decimal.Zero) {
		return types.LineItem{}, fmt.Errorf("item %q: unit price must not be negative", description)
	}
	return types.LineItem{Description: description, Quantity: qty, UnitPrice: price}, nil
}

// FindHeader returns the first header matching one of candidates, ignoring
// case and surrounding blanks, or "" if none matches.
func FindHeader(headers, candidates []string) string {
	for _, cand := range candidates {
		for _, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), cand) {
				return h
			}
		}
	}
	return ""
}
