package model

import (
	"math"
	"sort"
)

// ResidualRegion is a free rectangular strip left on a bed surface after
// nesting, large enough to take another part in a later run.
type ResidualRegion struct {
	BedID  string  `json:"bed_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the region area in square mm.
func (r ResidualRegion) Area() float64 {
	return r.Width * r.Height
}

// MinResidualDimension is the smallest width or height (mm) worth reporting.
const MinResidualDimension = 100.0

// MinResidualArea is the smallest area (sq mm) worth reporting.
const MinResidualArea = 40000.0 // 200mm x 200mm equivalent

// DetectResidual finds the right-hand and rear strips left free on the base
// level of a bed, measured from the bounding box of the base placements.
func DetectResidual(bed Bed, placements []Placement, spacing float64) []ResidualRegion {
	var base []Placement
	for _, p := range placements {
		if p.BedID == bed.ID && p.Level == LevelBase {
			base = append(base, p)
		}
	}

	if len(base) == 0 {
		return []ResidualRegion{{BedID: bed.ID, Width: bed.Width, Height: bed.Height}}
	}

	var maxRight, maxBack float64
	for _, p := range base {
		maxRight = math.Max(maxRight, p.X+p.Width+spacing)
		maxBack = math.Max(maxBack, p.Y+p.Height+spacing)
	}

	var regions []ResidualRegion

	rightW := bed.Width - maxRight
	if rightW >= MinResidualDimension && bed.Height >= MinResidualDimension && rightW*bed.Height >= MinResidualArea {
		regions = append(regions, ResidualRegion{
			BedID:  bed.ID,
			X:      maxRight,
			Width:  rightW,
			Height: bed.Height,
		})
	}

	// Rear strip stops at the right strip so the two never overlap.
	backH := bed.Height - maxBack
	backW := math.Min(maxRight, bed.Width)
	if backH >= MinResidualDimension && backW >= MinResidualDimension && backH*backW >= MinResidualArea {
		regions = append(regions, ResidualRegion{
			BedID:  bed.ID,
			Y:      maxBack,
			Width:  backW,
			Height: backH,
		})
	}

	sort.Slice(regions, func(i, j int) bool {
		return regions[i].Area() > regions[j].Area()
	})
	return regions
}

// TotalResidualArea sums region areas in square mm.
func TotalResidualArea(regions []ResidualRegion) float64 {
	var total float64
	for _, r := range regions {
		total += r.Area()
	}
	return total
}
