// Package export renders nesting results to PDF layout reports, QR part
// labels and spreadsheets.
package export

import (
	"github.com/piwi3910/curenest/internal/model"
)

// BedLayout is the content of one bed in a report.
type BedLayout struct {
	Bed        model.Bed
	BatchID    string
	State      model.BatchState
	Placements []model.Placement
}

// CoveredArea returns the summed footprint of all placements on the bed.
func (l BedLayout) CoveredArea() float64 {
	var total float64
	for _, p := range l.Placements {
		total += p.Area()
	}
	return total
}

// Efficiency returns covered area over bed area, in percent.
func (l BedLayout) Efficiency() float64 {
	if l.Bed.Area() <= 0 {
		return 0
	}
	return l.CoveredArea() / l.Bed.Area() * 100
}

// Weight returns the total load of the bed.
func (l BedLayout) Weight() float64 {
	var total float64
	for _, p := range l.Placements {
		total += p.Weight
	}
	return total
}

// Groups returns the number of distinct process groups on the bed.
func (l BedLayout) Groups() int {
	seen := make(map[string]bool)
	for _, p := range l.Placements {
		seen[p.Group] = true
	}
	return len(seen)
}

// Level returns the placements on one level.
func (l BedLayout) Level(level model.Level) []model.Placement {
	var out []model.Placement
	for _, p := range l.Placements {
		if p.Level == level {
			out = append(out, p)
		}
	}
	return out
}

// HasStandLoad reports whether any placement rests on a stand.
func (l BedLayout) HasStandLoad() bool {
	for _, p := range l.Placements {
		if p.Level.IsStand() {
			return true
		}
	}
	return false
}

// Report is everything the exporters need to describe a nesting result.
type Report struct {
	Title    string
	Layouts  []BedLayout
	Parts    map[string]model.Part
	Unplaced []string
	Settings model.Settings
}

// NewReport builds a report from a single solution. Beds without
// placements are left out; layouts follow the bed input order.
func NewReport(title string, parts []model.Part, beds []model.Bed, sol model.Solution, settings model.Settings) Report {
	r := Report{
		Title:    title,
		Parts:    indexParts(parts),
		Unplaced: append([]string(nil), sol.Unplaced...),
		Settings: settings,
	}
	for _, b := range beds {
		if placements := sol.ForBed(b.ID); len(placements) > 0 {
			r.Layouts = append(r.Layouts, BedLayout{Bed: b, Placements: placements})
		}
	}
	return r
}

// BatchReport builds a report with one layout per batch.
func BatchReport(title string, parts []model.Part, beds []model.Bed, batches []model.Batch, unplaced []string, settings model.Settings) Report {
	bedByID := make(map[string]model.Bed, len(beds))
	for _, b := range beds {
		bedByID[b.ID] = b
	}
	r := Report{
		Title:    title,
		Parts:    indexParts(parts),
		Unplaced: append([]string(nil), unplaced...),
		Settings: settings,
	}
	for _, batch := range batches {
		placements := batch.Solution.ForBed(batch.BedID)
		bed, ok := bedByID[batch.BedID]
		if !ok {
			bed = extentBed(batch, placements)
		}
		r.Layouts = append(r.Layouts, BedLayout{
			Bed:        bed,
			BatchID:    batch.ID,
			State:      batch.State,
			Placements: placements,
		})
	}
	return r
}

// extentBed stands in for a bed that is no longer known, sized to the
// bounding box of its placements.
func extentBed(batch model.Batch, placements []model.Placement) model.Bed {
	bed := model.Bed{ID: batch.BedID, Label: batch.BedLabel}
	for _, p := range placements {
		bed.Width = max(bed.Width, p.X+p.Width)
		bed.Height = max(bed.Height, p.Y+p.Height)
	}
	return bed
}

func indexParts(parts []model.Part) map[string]model.Part {
	idx := make(map[string]model.Part, len(parts))
	for _, p := range parts {
		idx[p.ID] = p
	}
	return idx
}

// partLabel falls back to the id when the part is unknown or unlabeled.
func (r Report) partLabel(id string) string {
	if p, ok := r.Parts[id]; ok && p.Label != "" {
		return p.Label
	}
	return id
}

// PlacedCount returns the number of placements across all layouts.
func (r Report) PlacedCount() int {
	n := 0
	for _, l := range r.Layouts {
		n += len(l.Placements)
	}
	return n
}

// Efficiency returns covered area over the area of all reported beds, in percent.
func (r Report) Efficiency() float64 {
	var covered, area float64
	for _, l := range r.Layouts {
		covered += l.CoveredArea()
		area += l.Bed.Area()
	}
	if area <= 0 {
		return 0
	}
	return covered / area * 100
}
