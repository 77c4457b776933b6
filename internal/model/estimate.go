package model

import "math"

// CapacityEstimate is a quick lower bound on how many beds a part list needs.
type CapacityEstimate struct {
	TotalPartArea   float64 `json:"total_part_area"`  // sq mm, spacing included
	TotalWeight     float64 `json:"total_weight"`     // kg
	Groups          int     `json:"groups"`           // distinct process groups
	BedArea         float64 `json:"bed_area"`         // sq mm of one reference bed
	BedsByArea      float64 `json:"beds_by_area"`     // exact fractional beds by area
	BedsByWeight    float64 `json:"beds_by_weight"`   // exact fractional beds by weight
	BedsByLines     int     `json:"beds_by_lines"`    // beds needed by the line limit
	BedsNeededMin   int     `json:"beds_needed_min"`  // max of the three, rounded up
	BedsWithSlack   int     `json:"beds_with_slack"`  // including the packing slack factor
	SlackPercent    float64 `json:"slack_percent"`    // slack applied (e.g. 20 for 20%)
	Spacing         float64 `json:"spacing"`          // spacing used in the calculation
	OversizedParts  int     `json:"oversized_parts"`  // parts larger than the reference bed
	OverweightParts int     `json:"overweight_parts"` // parts heavier than the bed limit
}

// EstimateBeds computes how many copies of a reference bed a part list needs.
// The area bound includes one spacing allowance per part; slackPercent is
// added on top to account for packing losses.
func EstimateBeds(parts []Part, bed Bed, spacing, slackPercent float64) CapacityEstimate {
	est := CapacityEstimate{
		BedArea:      bed.Area(),
		SlackPercent: slackPercent,
		Spacing:      spacing,
	}

	groups := make(map[string]bool)
	for _, p := range parts {
		est.TotalPartArea += (p.Width + spacing) * (p.Height + spacing)
		est.TotalWeight += p.Weight
		groups[p.Group] = true
		fits := (p.Width <= bed.Width && p.Height <= bed.Height) ||
			(p.Rotatable && p.Height <= bed.Width && p.Width <= bed.Height)
		if !fits {
			est.OversizedParts++
		}
		if bed.MaxWeight > 0 && p.Weight > bed.MaxWeight {
			est.OverweightParts++
		}
	}
	est.Groups = len(groups)

	if est.BedArea <= 0 || len(parts) == 0 {
		return est
	}

	est.BedsByArea = est.TotalPartArea / est.BedArea
	if bed.MaxWeight > 0 {
		est.BedsByWeight = est.TotalWeight / bed.MaxWeight
	}
	est.BedsByLines = 1
	if bed.MaxLines > 0 {
		est.BedsByLines = int(math.Ceil(float64(est.Groups) / float64(bed.MaxLines)))
	}

	exact := math.Max(est.BedsByArea, est.BedsByWeight)
	est.BedsNeededMin = int(math.Ceil(exact))
	if est.BedsByLines > est.BedsNeededMin {
		est.BedsNeededMin = est.BedsByLines
	}

	slack := 1.0 + slackPercent/100.0
	est.BedsWithSlack = int(math.Ceil(exact * slack))
	if est.BedsWithSlack < est.BedsNeededMin {
		est.BedsWithSlack = est.BedsNeededMin
	}
	return est
}
