package importer

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"github.com/yofu/dxf"
)

// ─── DetectCSVDelimiter Tests ──────────────────────────────

func TestDetectCSVDelimiter(t *testing.T) {
	tests := []struct {
		name string
		data string
		want rune
	}{
		{"comma", "Label,Width,Height,Qty\nSkin,600,300,2\nRib,400,800,1\n", ','},
		{"semicolon", "Label;Width;Height;Qty\nSkin;600;300;2\nRib;400;800;1\n", ';'},
		{"tab", "Label\tWidth\tHeight\tQty\nSkin\t600\t300\t2\nRib\t400\t800\t1\n", '\t'},
		{"pipe", "Label|Width|Height|Qty\nSkin|600|300|2\nRib|400|800|1\n", '|'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectCSVDelimiter([]byte(tt.data)); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// ─── DetectColumns Tests ───────────────────────────────────

func TestDetectColumns_StandardHeaders(t *testing.T) {
	row := []string{"ID", "Label", "Width", "Height", "Quantity", "Weight", "Group", "Rotatable", "Solid Support", "Thickness"}
	mapping, isHeader := DetectColumns(row)

	if !isHeader {
		t.Fatal("expected header to be detected")
	}
	want := ColumnMapping{ID: 0, Label: 1, Width: 2, Height: 3, Quantity: 4, Weight: 5, Group: 6, Rotatable: 7, SolidSupport: 8, Thickness: 9}
	if mapping != want {
		t.Errorf("expected %+v, got %+v", want, mapping)
	}
}

func TestDetectColumns_AliasesAndCase(t *testing.T) {
	row := []string{"WO", "DESCRIPTION", "W", "LENGTH", "QTY", "KG", "Cure Cycle"}
	mapping, isHeader := DetectColumns(row)

	if !isHeader {
		t.Fatal("expected header to be detected")
	}
	if mapping.ID != 0 || mapping.Label != 1 || mapping.Width != 2 || mapping.Height != 3 {
		t.Errorf("unexpected mapping %+v", mapping)
	}
	if mapping.Quantity != 4 || mapping.Weight != 5 || mapping.Group != 6 {
		t.Errorf("unexpected mapping %+v", mapping)
	}
	if mapping.Rotatable != -1 || mapping.SolidSupport != -1 || mapping.Thickness != -1 {
		t.Errorf("absent columns must be -1, got %+v", mapping)
	}
}

func TestDetectColumns_NoHeader(t *testing.T) {
	mapping, isHeader := DetectColumns([]string{"Skin", "600", "300", "2", "12.5", "C1"})

	if isHeader {
		t.Error("expected no header")
	}
	if mapping.Label != 0 || mapping.Width != 1 || mapping.Height != 2 || mapping.Quantity != 3 || mapping.Weight != 4 || mapping.Group != 5 {
		t.Errorf("expected positional mapping, got %+v", mapping)
	}
	if mapping.ID != -1 {
		t.Errorf("positional mapping has no id column, got %d", mapping.ID)
	}
}

// ─── CSV Import Tests ──────────────────────────────────────

func TestImportCSVFromReader_WithHeaders(t *testing.T) {
	data := "ID,Label,Width,Height,Weight,Group,Rotatable,Solid Support,Thickness\n" +
		"WO-1,Skin,600,300,12.5,C1,no,yes,4\n" +
		"WO-2,Rib,400,800,3,C2,,,\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',')

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(result.Parts))
	}

	skin := result.Parts[0]
	if skin.ID != "WO-1" || skin.Label != "Skin" {
		t.Errorf("unexpected identity %q / %q", skin.ID, skin.Label)
	}
	if skin.Width != 600 || skin.Height != 300 {
		t.Errorf("unexpected footprint %.0f x %.0f", skin.Width, skin.Height)
	}
	if skin.Weight != 12.5 || skin.Group != "C1" || skin.Thickness != 4 {
		t.Errorf("unexpected process data %+v", skin)
	}
	if skin.Rotatable {
		t.Error("expected Skin to be non-rotatable")
	}
	if !skin.SolidSupport {
		t.Error("expected Skin to require solid support")
	}

	rib := result.Parts[1]
	if !rib.Rotatable {
		t.Error("rotatable defaults to yes")
	}
	if rib.SolidSupport {
		t.Error("solid support defaults to no")
	}
}

func TestImportCSVFromReader_WithoutHeaders(t *testing.T) {
	data := "Skin,600,300,1,12,C1\nRib,400,800,1,3,C2\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',')

	if len(result.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d (errors: %v)", len(result.Parts), result.Errors)
	}
	if result.Parts[0].Label != "Skin" || result.Parts[0].Width != 600 || result.Parts[0].Group != "C1" {
		t.Errorf("unexpected part %+v", result.Parts[0])
	}
	if result.Parts[0].ID == "" || result.Parts[0].ID == result.Parts[1].ID {
		t.Error("expected generated unique ids")
	}
}

func TestImportCSVFromReader_QuantityExpands(t *testing.T) {
	data := "ID,Label,Width,Height,Qty\nWO-7,Panel,100,50,3\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',')

	if len(result.Parts) != 3 {
		t.Fatalf("expected 3 parts, got %d (errors: %v)", len(result.Parts), result.Errors)
	}
	for i, p := range result.Parts {
		wantID := "WO-7-" + string(rune('1'+i))
		if p.ID != wantID {
			t.Errorf("part %d: expected id %s, got %s", i, wantID, p.ID)
		}
		wantLabel := "Panel #" + string(rune('1'+i))
		if p.Label != wantLabel {
			t.Errorf("part %d: expected label %s, got %s", i, wantLabel, p.Label)
		}
	}
}

func TestImportCSVFromReader_QuantityWithoutIDGetsFreshIDs(t *testing.T) {
	result := ImportCSVFromReader(strings.NewReader("Label,Width,Height,Qty\nPanel,100,50,2\n"), ',')

	if len(result.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(result.Parts))
	}
	if result.Parts[0].ID == result.Parts[1].ID {
		t.Error("expanded parts must not share an id")
	}
}

func TestImportCSVFromReader_DuplicateID(t *testing.T) {
	data := "ID,Width,Height\nA,10,10\nA,20,20\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',')

	if len(result.Parts) != 1 {
		t.Errorf("expected 1 part, got %d", len(result.Parts))
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "Duplicate part id") {
		t.Errorf("expected duplicate id error, got %v", result.Errors)
	}
}

func TestImportCSVFromReader_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"invalid width", "Label,Width,Height\nSkin,abc,300\n", "Invalid width"},
		{"missing height", "Label,Width,Height\nSkin,600,\n", "Missing height"},
		{"invalid quantity", "Label,Width,Height,Qty\nSkin,600,300,many\n", "Invalid quantity"},
		{"negative width", "Label,Width,Height\nSkin,-600,300\n", "must be positive"},
		{"zero quantity", "Label,Width,Height,Qty\nSkin,600,300,0\n", "must be positive"},
		{"negative weight", "Label,Width,Height,Weight\nSkin,600,300,-1\n", "must not be negative"},
		{"missing columns", "Label,Weight\nSkin,3\n", "Required columns not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ImportCSVFromReader(strings.NewReader(tt.data), ',')
			if len(result.Parts) != 0 {
				t.Errorf("expected no parts, got %d", len(result.Parts))
			}
			if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, result.Errors)
			}
		})
	}
}

func TestImportCSVFromReader_MixedValidAndInvalid(t *testing.T) {
	data := "Label,Width,Height\nSkin,600,300\nBad,xyz,300\nRib,400,800\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',')

	if len(result.Parts) != 2 {
		t.Errorf("expected 2 valid parts, got %d", len(result.Parts))
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 error, got %d", len(result.Errors))
	}
}

func TestImportCSVFromReader_UnknownBooleanWarns(t *testing.T) {
	data := "Label,Width,Height,Rotatable\nSkin,600,300,maybe\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',')

	if len(result.Parts) != 1 || !result.Parts[0].Rotatable {
		t.Fatalf("expected one rotatable part, got %+v", result.Parts)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "Unknown rotatable value") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected rotatable warning, got %v", result.Warnings)
	}
}

func TestImportCSVFromReader_EmptyRowsAndLabels(t *testing.T) {
	data := "Label,Width,Height\n,600,300\n\n,,\nRib,400,800\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',')

	if len(result.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d (errors: %v)", len(result.Parts), result.Errors)
	}
	if result.Parts[0].Label != "Part 1" {
		t.Errorf("expected generated label 'Part 1', got %q", result.Parts[0].Label)
	}
}

func TestImportCSVFromReader_DecimalComma(t *testing.T) {
	data := "Label;Width;Height;Weight\nSkin;600,5;300;1,25\n"
	result := ImportCSVFromReader(strings.NewReader(data), ';')

	if len(result.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d (errors: %v)", len(result.Parts), result.Errors)
	}
	if result.Parts[0].Width != 600.5 || result.Parts[0].Weight != 1.25 {
		t.Errorf("unexpected values %+v", result.Parts[0])
	}
}

func TestImportCSV_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parts.csv")
	if err := os.WriteFile(path, []byte("Label;Width;Height\nSkin;600;300\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	result := ImportCSV(path)
	if len(result.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d (errors: %v)", len(result.Parts), result.Errors)
	}
	if len(result.Warnings) == 0 || result.Warnings[0] != "Detected semicolon delimiter" {
		t.Errorf("expected delimiter warning first, got %v", result.Warnings)
	}
}

func TestImportCSV_FileNotFoundAndEmpty(t *testing.T) {
	if result := ImportCSV("/nonexistent/parts.csv"); len(result.Errors) == 0 {
		t.Error("expected error for nonexistent file")
	}

	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := ImportCSV(path); len(result.Errors) == 0 {
		t.Error("expected error for empty file")
	}
}

// ─── Excel Import Tests ────────────────────────────────────

func createTestExcel(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parts.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, row := range rows {
		for j, cell := range row {
			cellRef, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("failed to create cell reference: %v", err)
			}
			if err := f.SetCellValue(sheet, cellRef, cell); err != nil {
				t.Fatalf("failed to set cell value: %v", err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save Excel file: %v", err)
	}
	return path
}

func TestImportExcel_WithHeaders(t *testing.T) {
	path := createTestExcel(t, [][]interface{}{
		{"Work Order", "Name", "Height", "Width", "Weight", "Cycle"},
		{"WO-1", "Skin", 300, 600, 12, "C1"},
		{"WO-2", "Rib", 800, 400, 3, "C1"},
	})

	result := ImportExcel(path)

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
	if len(result.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(result.Parts))
	}
	p := result.Parts[0]
	if p.ID != "WO-1" || p.Width != 600 || p.Height != 300 || p.Weight != 12 || p.Group != "C1" {
		t.Errorf("unexpected part %+v", p)
	}
}

func TestImportExcel_InvalidData(t *testing.T) {
	path := createTestExcel(t, [][]interface{}{
		{"Label", "Width", "Height"},
		{"Skin", "abc", 300},
	})

	if result := ImportExcel(path); len(result.Errors) == 0 {
		t.Error("expected error for invalid width")
	}
}

func TestImportExcel_FileNotFound(t *testing.T) {
	if result := ImportExcel("/nonexistent/parts.xlsx"); len(result.Errors) == 0 {
		t.Error("expected error for nonexistent file")
	}
}

// ─── DXF Import Tests ──────────────────────────────────────

func TestImportDXF_ShapesBecomeFootprints(t *testing.T) {
	d := dxf.NewDrawing()
	corners := [][2]float64{{0, 0}, {200, 0}, {200, 100}, {0, 100}}
	for i, c := range corners {
		n := corners[(i+1)%len(corners)]
		if _, err := d.Line(c[0], c[1], 0, n[0], n[1], 0); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := d.Circle(500, 500, 0, 25); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "tool.dxf")
	if err := d.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	result := ImportDXF(path)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(result.Parts))
	}

	var sawRect, sawCircle bool
	for _, p := range result.Parts {
		switch {
		case math.Abs(p.Width-200) < 1e-6 && math.Abs(p.Height-100) < 1e-6:
			sawRect = true
		case math.Abs(p.Width-50) < 1e-6 && math.Abs(p.Height-50) < 1e-6:
			sawCircle = true
		}
		if !strings.HasPrefix(p.Label, "tool ") {
			t.Errorf("expected label from file name, got %q", p.Label)
		}
	}
	if !sawRect || !sawCircle {
		t.Errorf("expected rectangle and circle footprints, got %+v", result.Parts)
	}
}

func TestImportDXF_FileNotFound(t *testing.T) {
	if result := ImportDXF("/nonexistent/tool.dxf"); len(result.Errors) == 0 {
		t.Error("expected error for nonexistent file")
	}
}

func TestChainSegments_OpenChainDropped(t *testing.T) {
	segs := []segment{
		{start: point{0, 0}, end: point{10, 0}},
		{start: point{10, 0}, end: point{10, 10}},
	}
	if got := chainSegments(segs, 0.01); len(got) != 0 {
		t.Errorf("expected no closed outlines, got %d", len(got))
	}
}

func TestChainSegments_ReversedSegments(t *testing.T) {
	segs := []segment{
		{start: point{0, 0}, end: point{10, 0}},
		{start: point{10, 10}, end: point{10, 0}},
		{start: point{10, 10}, end: point{0, 10}},
		{start: point{0, 0}, end: point{0, 10}},
	}
	got := chainSegments(segs, 0.01)
	if len(got) != 1 {
		t.Fatalf("expected 1 outline, got %d", len(got))
	}
	if a := got[0].area(); math.Abs(a-100) > 1e-9 {
		t.Errorf("expected area 100, got %f", a)
	}
}

func TestImportFile_Dispatch(t *testing.T) {
	if result := ImportFile("parts.pdf"); len(result.Errors) == 0 || !strings.Contains(result.Errors[0], "Unsupported") {
		t.Errorf("expected unsupported file error, got %v", result.Errors)
	}

	path := filepath.Join(t.TempDir(), "parts.CSV")
	if err := os.WriteFile(path, []byte("Label,Width,Height\nSkin,600,300\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := ImportFile(path); len(result.Parts) != 1 {
		t.Errorf("expected 1 part, got %d (errors: %v)", len(result.Parts), result.Errors)
	}
}
