// Package importer reads part lists from CSV, Excel and DXF files.
// Spreadsheet imports detect the delimiter and map columns by
// case-insensitive header aliases.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/curenest/internal/model"
)

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Parts    []model.Part
	Errors   []string
	Warnings []string
}

// ColumnMapping maps semantic column roles to their indices in the data.
// A negative index means the column is absent.
type ColumnMapping struct {
	ID           int
	Label        int
	Width        int
	Height       int
	Quantity     int
	Weight       int
	Group        int
	Rotatable    int
	SolidSupport int
	Thickness    int
}

type column int

const (
	colID column = iota
	colLabel
	colWidth
	colHeight
	colQuantity
	colWeight
	colGroup
	colRotatable
	colSolid
	colThickness
)

// headerAliases maps each column role to its accepted aliases (all lowercase).
var headerAliases = []struct {
	col     column
	aliases []string
}{
	{colID, []string{"id", "part id", "work order", "wo", "order"}},
	{colLabel, []string{"label", "name", "part", "part name", "description", "desc", "item"}},
	{colWidth, []string{"width", "w", "x"}},
	{colHeight, []string{"height", "h", "length", "len", "depth", "y"}},
	{colQuantity, []string{"quantity", "qty", "count", "pcs", "pieces"}},
	{colWeight, []string{"weight", "kg", "mass"}},
	{colGroup, []string{"group", "cycle", "cure cycle", "line", "process"}},
	{colRotatable, []string{"rotatable", "rotate", "rotation"}},
	{colSolid, []string{"solid support", "solid", "base only"}},
	{colThickness, []string{"thickness", "thk", "t"}},
}

func emptyMapping() ColumnMapping {
	return ColumnMapping{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1}
}

func (m *ColumnMapping) slot(c column) *int {
	switch c {
	case colID:
		return &m.ID
	case colLabel:
		return &m.Label
	case colWidth:
		return &m.Width
	case colHeight:
		return &m.Height
	case colQuantity:
		return &m.Quantity
	case colWeight:
		return &m.Weight
	case colGroup:
		return &m.Group
	case colRotatable:
		return &m.Rotatable
	case colSolid:
		return &m.SolidSupport
	default:
		return &m.Thickness
	}
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping.
// Returns the mapping and true if a header was detected, or the positional
// mapping (Label, Width, Height, Quantity, Weight, Group) and false otherwise.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := emptyMapping()

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for _, h := range headerAliases {
			for _, alias := range h.aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				if s := mapping.slot(h.col); *s == -1 {
					*s = i
				}
			}
		}
	}

	if !isHeader {
		positional := emptyMapping()
		positional.Label = 0
		positional.Width = 1
		positional.Height = 2
		positional.Quantity = 3
		positional.Weight = 4
		positional.Group = 5
		return positional, false
	}

	return mapping, true
}

// parseBool accepts the usual spreadsheet spellings of yes and no.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1", "x":
		return true, true
	case "no", "n", "false", "0", "-":
		return false, true
	default:
		return false, false
	}
}

// getCell safely retrieves a cell value from a row by column index.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseNumber(row []string, idx int, name, rowLabel string, required bool) (float64, string) {
	s := getCell(row, idx)
	if s == "" {
		if required {
			return 0, fmt.Sprintf("%s: Missing %s value", rowLabel, name)
		}
		return 0, ""
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, fmt.Sprintf("%s: Invalid %s '%s'", rowLabel, name, s)
	}
	return v, ""
}

// parseRow extracts the parts of one row. A quantity above one expands into
// several parts with suffixed ids and labels.
func parseRow(row []string, mapping ColumnMapping, rowLabel string, partCount int) ([]model.Part, string, []string) {
	var warnings []string

	label := getCell(row, mapping.Label)
	if label == "" {
		label = fmt.Sprintf("Part %d", partCount+1)
	}

	width, errMsg := parseNumber(row, mapping.Width, "width", rowLabel, true)
	if errMsg != "" {
		return nil, errMsg, nil
	}
	height, errMsg := parseNumber(row, mapping.Height, "height", rowLabel, true)
	if errMsg != "" {
		return nil, errMsg, nil
	}
	weight, errMsg := parseNumber(row, mapping.Weight, "weight", rowLabel, false)
	if errMsg != "" {
		return nil, errMsg, nil
	}
	thickness, errMsg := parseNumber(row, mapping.Thickness, "thickness", rowLabel, false)
	if errMsg != "" {
		return nil, errMsg, nil
	}

	qty := 1
	if qtyStr := getCell(row, mapping.Quantity); qtyStr != "" {
		n, err := strconv.Atoi(qtyStr)
		if err != nil {
			return nil, fmt.Sprintf("%s: Invalid quantity '%s'", rowLabel, qtyStr), nil
		}
		qty = n
	}

	if width <= 0 || height <= 0 || qty <= 0 {
		return nil, fmt.Sprintf("%s: Width, height, and quantity must be positive", rowLabel), nil
	}
	if weight < 0 || thickness < 0 {
		return nil, fmt.Sprintf("%s: Weight and thickness must not be negative", rowLabel), nil
	}

	proto := model.NewPart(label, width, height, weight, getCell(row, mapping.Group))
	proto.Thickness = thickness

	if s := getCell(row, mapping.Rotatable); s != "" {
		if v, ok := parseBool(s); ok {
			proto.Rotatable = v
		} else {
			warnings = append(warnings, fmt.Sprintf("%s: Unknown rotatable value '%s', defaulting to yes", rowLabel, s))
		}
	}
	if s := getCell(row, mapping.SolidSupport); s != "" {
		if v, ok := parseBool(s); ok {
			proto.SolidSupport = v
		} else {
			warnings = append(warnings, fmt.Sprintf("%s: Unknown solid support value '%s', defaulting to no", rowLabel, s))
		}
	}

	baseID := getCell(row, mapping.ID)
	parts := make([]model.Part, 0, qty)
	for i := 0; i < qty; i++ {
		p := proto
		if i > 0 {
			p = model.NewPart(label, width, height, weight, proto.Group)
			p.Thickness, p.Rotatable, p.SolidSupport = proto.Thickness, proto.Rotatable, proto.SolidSupport
		}
		if baseID != "" {
			p.ID = baseID
		}
		if qty > 1 {
			p.Label = fmt.Sprintf("%s #%d", label, i+1)
			if baseID != "" {
				p.ID = fmt.Sprintf("%s-%d", baseID, i+1)
			}
		}
		parts = append(parts, p)
	}
	return parts, "", warnings
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ImportCSV imports parts from a CSV file.
// It automatically detects the delimiter and maps columns by header names.
func ImportCSV(path string) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}

	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	var warnings []string
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		warnings = append(warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	records, err := readCSV(bytes.NewReader(data), delimiter)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return importFromRows(records, "Line", warnings)
}

// ImportCSVFromReader imports parts from a CSV reader with a known delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	result := ImportResult{}

	records, err := readCSV(reader, delimiter)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return importFromRows(records, "Line", nil)
}

func readCSV(r io.Reader, delimiter rune) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

// ImportExcel imports parts from the first sheet of an .xlsx file.
func ImportExcel(path string) ImportResult {
	result := ImportResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "Sheet is empty")
		return result
	}

	return importFromRows(rows, "Row", nil)
}

// ImportFile dispatches on the file extension.
func ImportFile(path string) ImportResult {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".csv"), strings.HasSuffix(lower, ".txt"):
		return ImportCSV(path)
	case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xlsm"):
		return ImportExcel(path)
	case strings.HasSuffix(lower, ".dxf"):
		return ImportDXF(path)
	default:
		return ImportResult{Errors: []string{fmt.Sprintf("Unsupported file type: %s", path)}}
	}
}

// importFromRows is the shared import logic for both CSV and Excel data.
func importFromRows(rows [][]string, rowPrefix string, initialWarnings []string) ImportResult {
	result := ImportResult{
		Warnings: initialWarnings,
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		var missing []string
		if mapping.Width == -1 {
			missing = append(missing, "Width")
		}
		if mapping.Height == -1 {
			missing = append(missing, "Height")
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) >= 3 {
		// An unrecognized header still has a non-numeric width cell.
		if _, err := strconv.ParseFloat(strings.TrimSpace(rows[0][1]), 64); err != nil {
			startRow = 1
			result.Warnings = append(result.Warnings, "Detected header row, skipping")
		}
	}

	seen := make(map[string]string)
	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		parts, errMsg, warnings := parseRow(row, mapping, rowLabel, len(result.Parts))
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		result.Warnings = append(result.Warnings, warnings...)

		for _, p := range parts {
			if first, dup := seen[p.ID]; dup {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: Duplicate part id '%s' (first seen on %s)", rowLabel, p.ID, first))
				continue
			}
			seen[p.ID] = rowLabel
			result.Parts = append(result.Parts, p)
		}
	}

	return result
}
