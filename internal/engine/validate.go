package engine

import (
	"fmt"
	"math"

	"github.com/piwi3910/curenest/internal/model"
)

// Validate checks a solution against every invariant of the model and
// returns the violations found. An empty result means the solution is valid.
// Every part of the model must be either placed or listed as unplaced.
// Validation is independent of how the solution was produced.
func Validate(m *Model, sol model.Solution) []model.Violation {
	var out []model.Violation
	add := func(kind model.ViolationKind, bedID, partID, other, format string, args ...any) {
		out = append(out, model.Violation{
			Kind: kind, BedID: bedID, PartID: partID, Other: other,
			Detail: fmt.Sprintf(format, args...),
		})
	}

	s := m.Settings.Spacing
	mg := m.Settings.EdgeMargin

	seen := make(map[string]bool, len(sol.Placements))
	type entry struct {
		pl   model.Placement
		part model.Part
	}
	byBed := make(map[string][]entry)

	for _, pl := range sol.Placements {
		part, ok := m.PartByID(pl.PartID)
		if !ok {
			add(model.ViolationDuplicate, pl.BedID, pl.PartID, "", "unknown part")
			continue
		}
		if seen[pl.PartID] {
			add(model.ViolationDuplicate, pl.BedID, pl.PartID, "", "part placed more than once")
			continue
		}
		seen[pl.PartID] = true

		bed, ok := m.BedByID(pl.BedID)
		if !ok {
			add(model.ViolationDuplicate, pl.BedID, pl.PartID, "", "unknown bed")
			continue
		}

		if pl.Rotated && !part.Rotatable && part.Width != part.Height {
			add(model.ViolationOutOfBounds, bed.ID, part.ID, "", "rotation not allowed")
		}
		w, h := part.Dims(pl.Rotated)
		if !near(w, pl.Width) || !near(h, pl.Height) {
			add(model.ViolationOutOfBounds, bed.ID, part.ID, "",
				"footprint %.1fx%.1f does not match part %.1fx%.1f", pl.Width, pl.Height, w, h)
		}

		if pl.Level.IsStand() {
			validateStand(bed, part, pl, add)
		} else if pl.Level == model.LevelBase {
			if pl.X < mg-tol || pl.Y < mg-tol || pl.X+w > bed.Width-mg+tol || pl.Y+h > bed.Height-mg+tol {
				add(model.ViolationOutOfBounds, bed.ID, part.ID, "",
					"footprint (%.1f,%.1f %.1fx%.1f) leaves the usable area", pl.X, pl.Y, w, h)
			}
			inflated := rect{pl.X, pl.Y, w + s, h + s}
			for _, z := range bed.Keepouts {
				if rectsOverlap(inflated, rect{z.X, z.Y, z.Width, z.Height}) {
					add(model.ViolationOverlap, bed.ID, part.ID, z.Label, "intrudes into keep-out zone")
				}
			}
		} else {
			add(model.ViolationUnsupportedLevel, bed.ID, part.ID, "", "level %d does not exist", pl.Level)
		}

		byBed[bed.ID] = append(byBed[bed.ID], entry{pl, part})
	}

	listed := make(map[string]bool, len(sol.Unplaced))
	for _, id := range sol.Unplaced {
		if seen[id] {
			add(model.ViolationDuplicate, "", id, "", "part listed as both placed and unplaced")
		}
		listed[id] = true
	}
	for _, p := range m.Parts {
		if !seen[p.ID] && !listed[p.ID] {
			add(model.ViolationMissing, "", p.ID, "", "part neither placed nor unplaced")
		}
	}

	for _, bed := range m.Beds {
		entries := byBed[bed.ID]
		if len(entries) == 0 {
			continue
		}

		var weight float64
		groups := make(map[string]bool)
		standLoad := make(map[model.Level]string)
		for _, e := range entries {
			weight += e.part.Weight
			groups[e.part.Group] = true
			if e.pl.Level.IsStand() && bed.HasStands() && e.pl.Level.StandIndex() < len(bed.Stands) {
				if prev, taken := standLoad[e.pl.Level]; taken {
					add(model.ViolationUnsupportedLevel, bed.ID, e.part.ID, prev, "stand %d already carries a part", e.pl.Level)
				}
				standLoad[e.pl.Level] = e.part.ID
			}
		}
		if !bed.WeightAllows(weight) {
			add(model.ViolationCapacity, bed.ID, "", "", "load %.1f kg exceeds %.1f kg", weight, bed.MaxWeight)
		}
		if !bed.LinesAllow(len(groups)) {
			add(model.ViolationCapacity, bed.ID, "", "", "%d process lines exceed %d", len(groups), bed.MaxLines)
		}
		if len(standLoad) > bed.StandLimit() {
			add(model.ViolationCapacity, bed.ID, "", "", "%d stands loaded, limit %d", len(standLoad), bed.StandLimit())
		}

		for i := 0; i < len(entries); i++ {
			a := entries[i]
			ra := rect{a.pl.X, a.pl.Y, a.pl.Width + s, a.pl.Height + s}
			for j := i + 1; j < len(entries); j++ {
				b := entries[j]
				if a.pl.Level != b.pl.Level {
					continue
				}
				rb := rect{b.pl.X, b.pl.Y, b.pl.Width + s, b.pl.Height + s}
				if rectsOverlap(ra, rb) {
					add(model.ViolationOverlap, bed.ID, a.part.ID, b.part.ID, "footprints overlap on level %d", a.pl.Level)
				}
			}
		}

		// Base parts under a loaded stand must clear its elevation.
		for lvl := range standLoad {
			stand := bed.Stands[lvl.StandIndex()]
			for _, e := range entries {
				if e.pl.Level != model.LevelBase {
					continue
				}
				r := rect{e.pl.X, e.pl.Y, e.pl.Width, e.pl.Height}
				if !clearsStand(stand, r, e.part.Thickness) {
					add(model.ViolationUnsupportedLevel, bed.ID, e.part.ID, stand.ID,
						"thickness %.1f exceeds stand elevation %.1f", e.part.Thickness, stand.Elevation)
				}
			}
		}
	}

	return out
}

func validateStand(bed model.Bed, part model.Part, pl model.Placement,
	add func(model.ViolationKind, string, string, string, string, ...any)) {
	k := pl.Level.StandIndex()
	if !bed.HasStands() || k >= len(bed.Stands) {
		add(model.ViolationUnsupportedLevel, bed.ID, part.ID, "", "bed has no stand level %d", pl.Level)
		return
	}
	stand := bed.Stands[k]
	if part.SolidSupport {
		add(model.ViolationUnsupportedLevel, bed.ID, part.ID, stand.ID, "part requires solid support")
	}
	if !heightAllows(bed, stand, part) {
		add(model.ViolationUnsupportedLevel, bed.ID, part.ID, stand.ID,
			"load height %.1f exceeds %.1f", stand.Elevation+part.Thickness, bed.MaxLoadHeight)
	}
	if pl.X < stand.X-tol || pl.Y < stand.Y-tol ||
		pl.X+pl.Width > stand.X+stand.Width+tol || pl.Y+pl.Height > stand.Y+stand.Length+tol {
		add(model.ViolationOutOfBounds, bed.ID, part.ID, stand.ID, "footprint exceeds stand top")
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= tol
}
