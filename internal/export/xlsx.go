package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/curenest/internal/model"
)

const (
	sheetPlacements = "Placements"
	sheetBeds       = "Beds"
	sheetUnplaced   = "Unplaced"
)

var placementHeader = []interface{}{
	"Batch", "Bed", "Level", "Part ID", "Label", "Group", "X (mm)", "Y (mm)", "Width (mm)", "Height (mm)", "Rotated", "Weight (kg)",
}

var bedHeader = []interface{}{
	"Bed", "Autoclave", "Batch", "State", "Parts", "Load (kg)", "Lines", "Covered (mm²)", "Efficiency (%)",
}

// ExportXLSX writes the placement list, per-bed summary and unplaced parts
// to a workbook for the shop-floor planning sheet.
func ExportXLSX(path string, report Report) error {
	f, err := buildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func buildWorkbook(report Report) (*excelize.File, error) {
	if len(report.Layouts) == 0 {
		return nil, fmt.Errorf("no bed layouts to export")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetPlacements); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{sheetBeds, sheetUnplaced} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	rows := [][]interface{}{placementHeader}
	for _, l := range report.Layouts {
		for _, p := range l.Placements {
			rotated := "no"
			if p.Rotated {
				rotated = "yes"
			}
			rows = append(rows, []interface{}{
				l.BatchID, l.Bed.ID, levelName(p.Level), p.PartID, report.partLabel(p.PartID), p.Group,
				p.X, p.Y, p.Width, p.Height, rotated, p.Weight,
			})
		}
	}
	if err := writeRows(f, sheetPlacements, rows); err != nil {
		f.Close()
		return nil, err
	}

	rows = [][]interface{}{bedHeader}
	for _, l := range report.Layouts {
		rows = append(rows, []interface{}{
			l.Bed.ID, l.Bed.Label, l.BatchID, string(l.State), len(l.Placements),
			l.Weight(), l.Groups(), l.CoveredArea(), l.Efficiency(),
		})
	}
	if err := writeRows(f, sheetBeds, rows); err != nil {
		f.Close()
		return nil, err
	}

	rows = [][]interface{}{{"Part ID", "Label", "Width (mm)", "Height (mm)", "Weight (kg)", "Group"}}
	for _, id := range report.Unplaced {
		p := report.Parts[id]
		rows = append(rows, []interface{}{id, report.partLabel(id), p.Width, p.Height, p.Weight, p.Group})
	}
	if err := writeRows(f, sheetUnplaced, rows); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func levelName(l model.Level) string {
	if l.IsStand() {
		return fmt.Sprintf("stand %d", int(l))
	}
	return "base"
}
