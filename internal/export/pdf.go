package export

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/curenest/internal/model"
)

// partColor represents an RGB color for a placed part.
type partColor struct {
	R, G, B int
}

// partColors is indexed by process group, so one color is one cure line.
var partColors = []partColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	statsHeight  = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// ExportPDF writes the layout report: one page per bed level in use,
// followed by a summary page.
func ExportPDF(path string, report Report) error {
	pdf, err := buildPDF(report)
	if err != nil {
		return err
	}
	return pdf.OutputFileAndClose(path)
}

func buildPDF(report Report) (*fpdf.Fpdf, error) {
	if len(report.Layouts) == 0 {
		return nil, fmt.Errorf("no bed layouts to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)
	colors := groupColors(report)

	for i, layout := range report.Layouts {
		pdf.AddPage()
		renderBasePage(pdf, report, layout, colors, i+1)
		if layout.HasStandLoad() {
			pdf.AddPage()
			renderStandPage(pdf, report, layout, colors, i+1)
		}
	}

	pdf.AddPage()
	renderSummaryPage(pdf, report)

	return pdf, pdf.Error()
}

// groupColors assigns colors to process groups in name order.
func groupColors(report Report) map[string]partColor {
	seen := make(map[string]bool)
	var groups []string
	for _, l := range report.Layouts {
		for _, p := range l.Placements {
			if !seen[p.Group] {
				seen[p.Group] = true
				groups = append(groups, p.Group)
			}
		}
	}
	sort.Strings(groups)
	colors := make(map[string]partColor, len(groups))
	for i, g := range groups {
		colors[g] = partColors[i%len(partColors)]
	}
	return colors
}

// canvas maps bed coordinates onto the drawing area of a page.
type canvas struct {
	scale, offsetX, offsetY, w, h float64
}

func newCanvas(bed model.Bed) canvas {
	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - statsHeight

	scale := 1.0
	if bed.Width > 0 && bed.Height > 0 {
		scale = math.Min(drawWidth/bed.Width, drawHeight/bed.Height)
	}
	c := canvas{scale: scale, w: bed.Width * scale, h: bed.Height * scale}
	c.offsetX = marginLeft + (drawWidth-c.w)/2
	c.offsetY = drawAreaTop
	return c
}

func (c canvas) rect(x, y, w, h float64) (float64, float64, float64, float64) {
	return c.offsetX + x*c.scale, c.offsetY + y*c.scale, w * c.scale, h * c.scale
}

func renderHeader(pdf *fpdf.Fpdf, title, stats string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")
}

func bedTitle(layout BedLayout, bedNum int, level string) string {
	name := layout.Bed.Label
	if name == "" {
		name = layout.Bed.ID
	}
	title := fmt.Sprintf("Bed %d: %s (%.0f x %.0f mm) - %s", bedNum, name, layout.Bed.Width, layout.Bed.Height, level)
	if layout.BatchID != "" {
		title += fmt.Sprintf(" - batch %s [%s]", layout.BatchID, layout.State)
	}
	return title
}

// renderBasePage draws the bed surface with keep-outs, stand footprints and
// base-level parts.
func renderBasePage(pdf *fpdf.Fpdf, report Report, layout BedLayout, colors map[string]partColor, bedNum int) {
	base := layout.Level(model.LevelBase)
	renderHeader(pdf, bedTitle(layout, bedNum, "base level"),
		fmt.Sprintf("Parts: %d | Load: %.1f kg | Lines: %d | Covered: %.0f mm² | Efficiency: %.1f%%",
			len(layout.Placements), layout.Weight(), layout.Groups(), layout.CoveredArea(), layout.Efficiency()))

	c := newCanvas(layout.Bed)

	// Bed surface
	pdf.SetFillColor(200, 200, 205)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(c.offsetX, c.offsetY, c.w, c.h, "FD")

	if m := report.Settings.EdgeMargin; m > 0 {
		pdf.SetDrawColor(150, 150, 150)
		pdf.SetDashPattern([]float64{1, 1}, 0)
		x, y, w, h := c.rect(m, m, layout.Bed.Width-2*m, layout.Bed.Height-2*m)
		pdf.Rect(x, y, w, h, "D")
		pdf.SetDashPattern([]float64{}, 0)
	}

	drawKeepouts(pdf, layout.Bed.Keepouts, c)
	drawParts(pdf, report, base, colors, c)

	if layout.Bed.HasStands() {
		pdf.SetDrawColor(60, 60, 60)
		pdf.SetLineWidth(0.4)
		pdf.SetDashPattern([]float64{2, 1.5}, 0)
		for _, s := range layout.Bed.Stands {
			x, y, w, h := c.rect(s.X, s.Y, s.Width, s.Length)
			pdf.Rect(x, y, w, h, "D")
		}
		pdf.SetDashPattern([]float64{}, 0)
	}

	drawDimensionAnnotations(pdf, layout.Bed, c)
	drawPartsLegend(pdf, report, base, colors, c.offsetY+c.h+5)
}

// renderStandPage draws the stand tops and the parts resting on them.
func renderStandPage(pdf *fpdf.Fpdf, report Report, layout BedLayout, colors map[string]partColor, bedNum int) {
	var stand []model.Placement
	for _, p := range layout.Placements {
		if p.Level.IsStand() {
			stand = append(stand, p)
		}
	}
	renderHeader(pdf, bedTitle(layout, bedNum, "stand level"),
		fmt.Sprintf("Stands loaded: %d of %d", len(stand), layout.Bed.StandLimit()))

	c := newCanvas(layout.Bed)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetDrawColor(180, 180, 180)
	pdf.SetLineWidth(0.3)
	pdf.Rect(c.offsetX, c.offsetY, c.w, c.h, "FD")

	pdf.SetFont("Helvetica", "", 7)
	for i, s := range layout.Bed.Stands {
		x, y, w, h := c.rect(s.X, s.Y, s.Width, s.Length)
		pdf.SetFillColor(215, 205, 185)
		pdf.SetDrawColor(90, 70, 40)
		pdf.Rect(x, y, w, h, "FD")
		pdf.SetTextColor(90, 70, 40)
		pdf.SetXY(x+1, y+1)
		pdf.CellFormat(w-2, 3, fmt.Sprintf("L%d %s +%.0f mm", i+1, s.ID, s.Elevation), "", 0, "L", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)

	drawParts(pdf, report, stand, colors, c)
	drawDimensionAnnotations(pdf, layout.Bed, c)
	drawPartsLegend(pdf, report, stand, colors, c.offsetY+c.h+5)
}

func drawParts(pdf *fpdf.Fpdf, report Report, placements []model.Placement, colors map[string]partColor, c canvas) {
	for _, p := range placements {
		col := colors[p.Group]
		px, py, pw, ph := c.rect(p.X, p.Y, p.Width, p.Height)

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.3)
		pdf.Rect(px, py, pw, ph, "FD")

		if pw <= 15 || ph <= 8 {
			continue
		}
		pdf.SetFont("Helvetica", "", labelFontSize(pw, ph))
		pdf.SetTextColor(0, 0, 0)

		label := report.partLabel(p.PartID)
		dims := fmt.Sprintf("%.0fx%.0f", p.Width, p.Height)
		labelW := pdf.GetStringWidth(label)
		dimsW := pdf.GetStringWidth(dims)

		if labelW < pw-2 {
			pdf.SetXY(px+(pw-labelW)/2, py+ph/2-4)
			pdf.CellFormat(labelW, 4, label, "", 0, "C", false, 0, "")
		}
		if ph > 14 && dimsW < pw-2 {
			pdf.SetXY(px+(pw-dimsW)/2, py+ph/2)
			pdf.CellFormat(dimsW, 4, dims, "", 0, "C", false, 0, "")
		}
	}
}

// drawKeepouts renders base-level keep-out zones with a hatch.
func drawKeepouts(pdf *fpdf.Fpdf, zones []model.Zone, c canvas) {
	for _, zone := range zones {
		zx, zy, zw, zh := c.rect(zone.X, zone.Y, zone.Width, zone.Height)

		pdf.SetFillColor(255, 200, 200)
		pdf.SetDrawColor(200, 0, 0)
		pdf.SetLineWidth(0.3)
		pdf.Rect(zx, zy, zw, zh, "FD")
		drawHatchPattern(pdf, zx, zy, zw, zh)

		if zw > 20 && zh > 8 {
			text := "KEEP OUT"
			if zone.Label != "" {
				text = zone.Label
			}
			pdf.SetFont("Helvetica", "B", 6)
			pdf.SetTextColor(180, 0, 0)
			labelW := pdf.GetStringWidth(text)
			pdf.SetXY(zx+(zw-labelW)/2, zy+zh/2-2)
			pdf.CellFormat(labelW, 4, text, "", 0, "C", false, 0, "")
		}
	}
	pdf.SetTextColor(0, 0, 0)
}

// drawHatchPattern draws diagonal lines inside a rectangle.
func drawHatchPattern(pdf *fpdf.Fpdf, x, y, w, h float64) {
	pdf.SetDrawColor(200, 0, 0)
	pdf.SetLineWidth(0.15)

	spacing := 4.0
	for d := spacing; d < w+h; d += spacing {
		x1 := x + math.Max(0, d-h)
		y1 := y + math.Min(h, d)
		x2 := x + math.Min(w, d)
		y2 := y + math.Max(0, d-w)
		pdf.Line(x1, y1, x2, y2)
	}
}

// drawDimensionAnnotations adds width and height labels outside the bed rectangle.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, bed model.Bed, c canvas) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	widthLabel := fmt.Sprintf("%.0f mm", bed.Width)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(c.offsetX+(c.w-wLabelW)/2, c.offsetY+c.h+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	heightLabel := fmt.Sprintf("%.0f mm", bed.Height)
	pdf.TransformBegin()
	pdf.TransformRotate(90, c.offsetX-3, c.offsetY+c.h/2)
	hLabelW := pdf.GetStringWidth(heightLabel)
	pdf.SetXY(c.offsetX-3-hLabelW/2, c.offsetY+c.h/2-2)
	pdf.CellFormat(hLabelW, 4, heightLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawPartsLegend renders a compact legend of placed parts below the bed.
func drawPartsLegend(pdf *fpdf.Fpdf, report Report, placements []model.Placement, colors map[string]partColor, startY float64) {
	if len(placements) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Parts placed:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for _, p := range placements {
		col := colors[p.Group]
		label := fmt.Sprintf("%s (%.0fx%.0f, %s)", report.partLabel(p.PartID), p.Width, p.Height, p.Group)
		if p.Rotated {
			label += " R"
		}
		labelW := pdf.GetStringWidth(label) + 6

		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")

		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
}

// renderSummaryPage draws the overall statistics, the per-bed table, the
// unplaced parts and the settings the result was computed under.
func renderSummaryPage(pdf *fpdf.Fpdf, report Report) {
	title := report.Title
	if title == "" {
		title = "Autoclave Nesting Summary"
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, title, "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	summaryItems := []struct {
		label string
		value string
	}{
		{"Beds Used", fmt.Sprintf("%d", len(report.Layouts))},
		{"Overall Efficiency", fmt.Sprintf("%.1f%%", report.Efficiency())},
		{"Parts Placed", fmt.Sprintf("%d", report.PlacedCount())},
		{"Unplaced Parts", fmt.Sprintf("%d", len(report.Unplaced))},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Bed Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{15, 55, 45, 20, 30, 20, 30, 50}
	headers := []string{"Bed", "Autoclave", "Dimensions", "Parts", "Load", "Lines", "Efficiency", "Free strips"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, layout := range report.Layouts {
		residual := model.DetectResidual(layout.Bed, layout.Placements, report.Settings.Spacing)
		rowData := []string{
			fmt.Sprintf("%d", i+1),
			layout.Bed.Label,
			fmt.Sprintf("%.0f x %.0f mm", layout.Bed.Width, layout.Bed.Height),
			fmt.Sprintf("%d", len(layout.Placements)),
			fmt.Sprintf("%.1f kg", layout.Weight()),
			fmt.Sprintf("%d", layout.Groups()),
			fmt.Sprintf("%.1f%%", layout.Efficiency()),
			fmt.Sprintf("%d (%.2f m²)", len(residual), model.TotalResidualArea(residual)/1e6),
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		xPos = marginLeft
		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	if len(report.Unplaced) > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Unplaced Parts", "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, id := range report.Unplaced {
			text := "- " + id
			if p, ok := report.Parts[id]; ok {
				text = fmt.Sprintf("- %s: %.0f x %.0f mm, %.1f kg, group %s", report.partLabel(id), p.Width, p.Height, p.Weight, p.Group)
			}
			pdf.SetXY(marginLeft+5, y)
			pdf.CellFormat(200, 5, text, "", 0, "L", false, 0, "")
			y += 5
			if y > pageHeight-marginBottom-40 {
				break
			}
		}
	}

	y += 8
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Nesting Settings", "", 0, "L", false, 0, "")
	y += 9

	s := report.Settings
	settingsItems := []struct {
		label string
		value string
	}{
		{"Part Spacing", fmt.Sprintf("%.1f mm", s.Spacing)},
		{"Edge Margin", fmt.Sprintf("%.1f mm", s.EdgeMargin)},
		{"Objective", s.Objective.Name},
		{"Time Budget", s.TimeBudget.String()},
	}

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range settingsItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(50, 5, item.label+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 5, item.value, "", 0, "L", false, 0, "")
		y += 5
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by CureNest - Autoclave Load Planner", "", 0, "C", false, 0, "")
}

// labelFontSize returns a font size for a part rectangle of the given size.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}
